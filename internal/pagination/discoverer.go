package pagination

import (
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Kind tags the continuation variants.
type Kind int

const (
	// KindNone signals the terminal page.
	KindNone Kind = iota
	// KindURL is a concrete reference resolved from the document.
	KindURL
	// KindParam is a query-parameter delta on the current reference.
	KindParam
)

// Continuation describes how to reach the next page of results. It is
// produced here and consumed only by the crawl loop, which builds the
// next fetch request from it.
type Continuation struct {
	Kind  Kind
	URL   string
	Param string
	Value string
}

// Terminal is the no-continuation signal.
func Terminal() Continuation {
	return Continuation{Kind: KindNone}
}

// Resolve turns the continuation into an absolute reference, given the
// reference the page was fetched from. Returns false for the terminal
// signal or an unusable reference.
func (c Continuation) Resolve(currentRef string) (string, bool) {
	switch c.Kind {
	case KindURL:
		base, err := url.Parse(currentRef)
		if err != nil {
			return "", false
		}
		next, err := url.Parse(c.URL)
		if err != nil {
			return "", false
		}
		return base.ResolveReference(next).String(), true
	case KindParam:
		u, err := url.Parse(currentRef)
		if err != nil {
			return "", false
		}
		q := u.Query()
		q.Set(c.Param, c.Value)
		u.RawQuery = q.Encode()
		return u.String(), true
	}
	return "", false
}

// Observer receives diagnostics about which discovery strategy applied.
type Observer interface {
	StrategyApplied(strategy string)
	DynamicPaginationSuspected()
}

// NopObserver discards all observations.
type NopObserver struct{}

func (NopObserver) StrategyApplied(string)      {}
func (NopObserver) DynamicPaginationSuspected() {}

// SlogObserver forwards observations to a structured logger.
type SlogObserver struct {
	Logger *slog.Logger
}

func (o SlogObserver) StrategyApplied(strategy string) {
	o.Logger.Debug("pagination strategy applied", "strategy", strategy)
}

func (o SlogObserver) DynamicPaginationSuspected() {
	o.Logger.Debug("pagination appears script-driven")
}

var loadMoreSelectors = []string{
	`[data-testhook="load-more"]`,
	"a.load-more",
	"button.load-more",
	".show-more a",
	"a.show-more",
}

var nextSelectors = []string{
	`a[rel="next"]`,
	`a[aria-label="Volgende"]`,
	`a[aria-label="Next"]`,
	".next a",
	"a.next",
}

var paginationContainers = []string{
	`[data-testhook="pagination"] a`,
	".pagination a",
	"nav a",
}

// incrementParams are the query parameters recognized as page cursors,
// in recognition order.
var incrementParams = []string{"page", "offset", "p"}

const (
	// defaultParam is synthesized when the reference carries no
	// recognized cursor at all.
	defaultParam = "page"
	// defaultNextValue assumes the un-parameterized reference was the
	// first page, so the next one is page 2.
	defaultNextValue = "2"
)

var inlineAssignPattern = regexp.MustCompile(`(?:window\.location|location\.href)\s*=\s*['"]([^'"]+)['"]`)

var dynamicHints = []string{"loadMore", "infiniteScroll", "fetchNextPage", "IntersectionObserver"}

// Discoverer determines the next-page continuation from a fetched
// listing document via a strict priority chain. No single mechanism is
// guaranteed to exist upstream, so each strategy is a fallback for the
// previous one.
type Discoverer struct {
	observer Observer
}

func NewDiscoverer(observer Observer) *Discoverer {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Discoverer{observer: observer}
}

// Discover evaluates the chain once for the given page. pageIndex is
// one-based and names the page the document came from.
func (d *Discoverer) Discover(doc *goquery.Document, currentRef string, pageIndex int) Continuation {
	// A script-driven continuation cannot be synthesized here; noting
	// it is purely diagnostic and the chain still runs.
	d.detectDynamic(doc)

	if c, ok := d.fromLoadMoreControl(doc); ok {
		return c
	}
	if c, ok := d.fromNumberedControl(doc, pageIndex); ok {
		return c
	}
	if c, ok := d.fromParamIncrement(currentRef); ok {
		return c
	}
	if c, ok := d.fromNextControl(doc); ok {
		return c
	}
	return Terminal()
}

func (d *Discoverer) fromLoadMoreControl(doc *goquery.Document) (Continuation, bool) {
	for _, css := range loadMoreSelectors {
		node := doc.Find(css).First()
		if node.Length() == 0 {
			continue
		}
		if href, ok := node.Attr("href"); ok && href != "" {
			d.observer.StrategyApplied("load-more:href")
			return Continuation{Kind: KindURL, URL: href}, true
		}
		for _, attr := range []string{"data-url", "data-href", "data-next"} {
			if v, ok := node.Attr(attr); ok && v != "" {
				d.observer.StrategyApplied("load-more:" + attr)
				return Continuation{Kind: KindURL, URL: v}, true
			}
		}
		if onclick, ok := node.Attr("onclick"); ok {
			if m := inlineAssignPattern.FindStringSubmatch(onclick); m != nil {
				d.observer.StrategyApplied("load-more:inline-handler")
				return Continuation{Kind: KindURL, URL: m[1]}, true
			}
		}
	}
	return Terminal(), false
}

// fromNumberedControl looks for a pagination link whose visible label
// is exactly the next page number.
func (d *Discoverer) fromNumberedControl(doc *goquery.Document, pageIndex int) (Continuation, bool) {
	label := strconv.Itoa(pageIndex + 1)
	for _, css := range paginationContainers {
		var href string
		doc.Find(css).EachWithBreak(func(_ int, node *goquery.Selection) bool {
			if strings.TrimSpace(node.Text()) != label {
				return true
			}
			if h, ok := node.Attr("href"); ok && h != "" {
				href = h
				return false
			}
			return true
		})
		if href != "" {
			d.observer.StrategyApplied("numbered-control")
			return Continuation{Kind: KindURL, URL: href}, true
		}
	}
	return Terminal(), false
}

// fromParamIncrement bumps a recognized page cursor in the current
// reference. When none is present, the default cursor is synthesized on
// the assumption that the bare reference was page one; this is a
// heuristic, not a guarantee.
func (d *Discoverer) fromParamIncrement(currentRef string) (Continuation, bool) {
	u, err := url.Parse(currentRef)
	if err != nil {
		return Terminal(), false
	}
	q := u.Query()
	for _, param := range incrementParams {
		if !q.Has(param) {
			continue
		}
		n, err := strconv.Atoi(q.Get(param))
		if err != nil {
			continue
		}
		d.observer.StrategyApplied("param-increment:" + param)
		return Continuation{Kind: KindParam, Param: param, Value: strconv.Itoa(n + 1)}, true
	}
	d.observer.StrategyApplied("param-synthesized:" + defaultParam)
	return Continuation{Kind: KindParam, Param: defaultParam, Value: defaultNextValue}, true
}

func (d *Discoverer) fromNextControl(doc *goquery.Document) (Continuation, bool) {
	for _, css := range nextSelectors {
		node := doc.Find(css).First()
		if node.Length() == 0 {
			continue
		}
		if href, ok := node.Attr("href"); ok && href != "" {
			d.observer.StrategyApplied("next-control")
			return Continuation{Kind: KindURL, URL: href}, true
		}
	}
	return Terminal(), false
}

func (d *Discoverer) detectDynamic(doc *goquery.Document) {
	var scripts strings.Builder
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		scripts.WriteString(s.Text())
	})
	text := scripts.String()
	for _, hint := range dynamicHints {
		if strings.Contains(text, hint) {
			d.observer.DynamicPaginationSuspected()
			return
		}
	}
}
