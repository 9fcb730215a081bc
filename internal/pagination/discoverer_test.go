package pagination

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func document(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func discover(t *testing.T, html, currentRef string, pageIndex int) (string, bool) {
	t.Helper()
	d := NewDiscoverer(nil)
	c := d.Discover(document(t, html), currentRef, pageIndex)
	return c.Resolve(currentRef)
}

func TestDiscoverLoadMoreControl(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "Anchor href",
			html:     `<a class="load-more" href="/producten/6401?page=2">Meer laden</a>`,
			expected: "https://www.ah.nl/producten/6401?page=2",
		},
		{
			name:     "Data attribute on button",
			html:     `<button class="load-more" data-url="/producten/6401?page=2">Meer</button>`,
			expected: "https://www.ah.nl/producten/6401?page=2",
		},
		{
			name:     "Inline handler assignment",
			html:     `<button class="load-more" onclick="window.location = '/producten/6401?page=2'">Meer</button>`,
			expected: "https://www.ah.nl/producten/6401?page=2",
		},
		{
			name:     "Testhook attribute",
			html:     `<a data-testhook="load-more" href="/producten/6401?page=2">Toon meer</a>`,
			expected: "https://www.ah.nl/producten/6401?page=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := discover(t, tt.html, "https://www.ah.nl/producten/6401", 1)
			require.True(t, ok)
			assert.Equal(t, tt.expected, next)
		})
	}
}

func TestDiscoverNumberedControl(t *testing.T) {
	html := `<div data-testhook="pagination">
		<a href="/producten/6401?page=1">1</a>
		<a href="/producten/6401?page=2">2</a>
		<a href="/producten/6401?page=3">3</a>
	</div>`

	next, ok := discover(t, html, "https://www.ah.nl/producten/6401?page=1", 1)
	require.True(t, ok)
	assert.Equal(t, "https://www.ah.nl/producten/6401?page=2", next)
}

func TestDiscoverNumberedControlSkipsWrongLabel(t *testing.T) {
	// Page 3 has no "4" link, but the param increment still applies.
	html := `<div class="pagination">
		<a href="/producten/6401?page=1">1</a>
		<a href="/producten/6401?page=2">2</a>
	</div>`

	next, ok := discover(t, html, "https://www.ah.nl/producten/6401?page=3", 3)
	require.True(t, ok)
	assert.Equal(t, "https://www.ah.nl/producten/6401?page=4", next)
}

func TestDiscoverParamIncrement(t *testing.T) {
	tests := []struct {
		name       string
		currentRef string
		expected   string
	}{
		{
			name:       "Page parameter",
			currentRef: "https://www.ah.nl/producten/6401?page=1",
			expected:   "https://www.ah.nl/producten/6401?page=2",
		},
		{
			name:       "Offset parameter",
			currentRef: "https://www.ah.nl/producten/6401?offset=30",
			expected:   "https://www.ah.nl/producten/6401?offset=31",
		},
		{
			name:       "Short p parameter",
			currentRef: "https://www.ah.nl/producten/6401?p=5",
			expected:   "https://www.ah.nl/producten/6401?p=6",
		},
		{
			name:       "No cursor synthesizes page 2",
			currentRef: "https://www.ah.nl/producten/6401",
			expected:   "https://www.ah.nl/producten/6401?page=2",
		},
		{
			name:       "Unrelated params preserved",
			currentRef: "https://www.ah.nl/producten/6401?kenmerk=bonus&page=1",
			expected:   "https://www.ah.nl/producten/6401?kenmerk=bonus&page=2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := discover(t, `<div></div>`, tt.currentRef, 1)
			require.True(t, ok)
			assert.Equal(t, tt.expected, next)
		})
	}
}

func TestDiscoverPriorityOrder(t *testing.T) {
	// A load-more control outranks numbered links and the cursor bump.
	html := `
		<a class="load-more" href="/producten/6401/alles?start=24">Meer</a>
		<div class="pagination"><a href="/producten/6401?page=2">2</a></div>`

	next, ok := discover(t, html, "https://www.ah.nl/producten/6401?page=1", 1)
	require.True(t, ok)
	assert.Equal(t, "https://www.ah.nl/producten/6401/alles?start=24", next)
}

func TestDiscoverRelNextControl(t *testing.T) {
	// The rel=next anchor only matters when the reference cannot be
	// incremented, which requires an unparseable reference.
	d := NewDiscoverer(nil)
	doc := document(t, `<a rel="next" href="https://www.ah.nl/producten/6401?page=2">Volgende</a>`)

	c := d.Discover(doc, "://bad-ref", 1)
	assert.Equal(t, KindURL, c.Kind)
	assert.Equal(t, "https://www.ah.nl/producten/6401?page=2", c.URL)
}

func TestTerminalResolve(t *testing.T) {
	_, ok := Terminal().Resolve("https://www.ah.nl/producten/6401")
	assert.False(t, ok)
}

type recordingObserver struct {
	strategies []string
	dynamic    int
}

func (o *recordingObserver) StrategyApplied(strategy string) {
	o.strategies = append(o.strategies, strategy)
}

func (o *recordingObserver) DynamicPaginationSuspected() {
	o.dynamic++
}

func TestDetectDynamicPagination(t *testing.T) {
	obs := &recordingObserver{}
	d := NewDiscoverer(obs)
	doc := document(t, `<script>el.addEventListener('scroll', fetchNextPage)</script>`)

	d.Discover(doc, "https://www.ah.nl/producten/6401", 1)

	assert.Equal(t, 1, obs.dynamic)
	// The diagnostic does not stop the chain.
	assert.Contains(t, obs.strategies, "param-synthesized:page")
}
