package crawler

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/parser"
)

func newTestCatalogCrawler(fetcher Fetcher, maxPages int) *CatalogCrawler {
	return NewCatalogCrawler(fetcher, parser.NewNormalizer(nil), nopLimiter{}, slog.Default(), maxPages)
}

func TestCatalogCrawlFollowsTotalPages(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]*FetchResult{
		"https://api.ah.nl/mobile-services/product/search/v2?page=0": {
			StatusCode: 200,
			Body: `{
				"page": {"totalPages": 2},
				"products": [{"webshopId": "wi1", "title": "melk", "price": {"now": 1.19}}]
			}`,
		},
		"https://api.ah.nl/mobile-services/product/search/v2?page=1": {
			StatusCode: 200,
			Body: `{
				"page": {"totalPages": 2},
				"products": [{"webshopId": "wi2", "title": "kaas", "price": {"now": 4.99, "was": 5.99}, "priceBeforeBonus": 5.99}]
			}`,
		},
	}}

	c := newTestCatalogCrawler(fetcher, 10)
	records := c.Crawl(context.Background(), "https://api.ah.nl/mobile-services/product/search/v2?page=0")

	assert.Len(t, fetcher.fetched, 2)
	require.Len(t, records, 2)
	assert.Equal(t, "wi1", records[0].ID)
	assert.Equal(t, "wi2", records[1].ID)
	assert.Equal(t, 5.99, records[1].OriginalPrice.Amount)
	assert.True(t, records[1].IsDiscounted())
}

func TestCatalogCrawlRespectsPageCap(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]*FetchResult{
		"https://api.ah.nl/mobile-services/product/search/v2?page=0": {
			StatusCode: 200,
			Body:       `{"page": {"totalPages": 50}, "products": [{"webshopId": "wi1", "title": "a", "price": 1}]}`,
		},
	}}

	c := newTestCatalogCrawler(fetcher, 1)
	records := c.Crawl(context.Background(), "https://api.ah.nl/mobile-services/product/search/v2?page=0")

	assert.Len(t, fetcher.fetched, 1)
	assert.Len(t, records, 1)
}

func TestCatalogCrawlStopsOnEmptyPage(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]*FetchResult{
		"https://api.ah.nl/mobile-services/product/search/v2?page=0": {
			StatusCode: 200,
			Body:       `{"page": {"totalPages": 5}, "products": []}`,
		},
	}}

	c := newTestCatalogCrawler(fetcher, 10)
	records := c.Crawl(context.Background(), "https://api.ah.nl/mobile-services/product/search/v2?page=0")

	assert.Len(t, fetcher.fetched, 1)
	assert.Empty(t, records)
}

func TestCatalogCrawlUndecodableBody(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]*FetchResult{
		"https://api.ah.nl/mobile-services/product/search/v2?page=0": {
			StatusCode: 200,
			Body:       `<html>maintenance</html>`,
		},
	}}

	c := newTestCatalogCrawler(fetcher, 10)
	records := c.Crawl(context.Background(), "https://api.ah.nl/mobile-services/product/search/v2?page=0")

	assert.Empty(t, records)
}

func TestCatalogCrawlNonSuccessStatus(t *testing.T) {
	fetcher := &stubFetcher{pages: map[string]*FetchResult{
		"https://api.ah.nl/mobile-services/product/search/v2?page=0": {
			StatusCode: 200,
			Body:       `{"page": {"totalPages": 3}, "products": [{"webshopId": "wi1", "title": "a", "price": 1}]}`,
		},
	}}

	c := newTestCatalogCrawler(fetcher, 10)
	records := c.Crawl(context.Background(), "https://api.ah.nl/mobile-services/product/search/v2?page=0")

	// page=1 is not stubbed and comes back 404; the first page survives.
	assert.Len(t, records, 1)
	assert.Equal(t, "wi1", records[0].ID)
}
