package crawler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/models"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/pagination"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/parser"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/ratelimit"
)

// searchPage is the page envelope of the mobile search endpoint. Only
// the fields the crawl needs are decoded; products stay schema-free
// maps because their shape drifts between API versions.
type searchPage struct {
	Products []map[string]any `json:"products"`
	Page     struct {
		TotalPages int `json:"totalPages"`
	} `json:"page"`
}

// CatalogCrawler walks the mobile API's search results. The API is
// zero-indexed and reports its own page count, so continuation is a
// plain cursor increment bounded by totalPages.
type CatalogCrawler struct {
	fetcher    Fetcher
	normalizer *parser.Normalizer
	limiter    ratelimit.Limiter
	logger     *slog.Logger
	maxPages   int
}

func NewCatalogCrawler(fetcher Fetcher, normalizer *parser.Normalizer, limiter ratelimit.Limiter, logger *slog.Logger, maxPages int) *CatalogCrawler {
	if maxPages < 1 {
		maxPages = 1
	}
	return &CatalogCrawler{
		fetcher:    fetcher,
		normalizer: normalizer,
		limiter:    limiter,
		logger:     logger.With("component", "catalog_crawler"),
		maxPages:   maxPages,
	}
}

// Crawl fetches search pages starting from startRef (which must carry
// page=0) until the reported page count, the page cap, or a failed
// fetch ends it. Like the site crawl, it returns whatever was
// accumulated on every exit path.
func (c *CatalogCrawler) Crawl(ctx context.Context, startRef string) []models.ProductRecord {
	state := &crawlState{
		pageIndex: 1,
		visited:   map[string]struct{}{startRef: {}},
	}

	ref := startRef
	totalPages := 1
	for !state.terminal {
		res, err := c.fetcher.Fetch(ctx, ref)
		if err != nil {
			c.logger.Error("fetch failed", "ref", ref, "error", err)
			break
		}
		if res.StatusCode != http.StatusOK {
			c.logger.Error("unexpected status", "ref", ref, "status", res.StatusCode)
			break
		}

		var page searchPage
		if err := json.Unmarshal([]byte(res.Body), &page); err != nil {
			c.logger.Error("undecodable page", "ref", ref, "error", err)
			break
		}
		if state.pageIndex == 1 && page.Page.TotalPages > 0 {
			totalPages = page.Page.TotalPages
		}

		for _, product := range page.Products {
			state.results = append(state.results, c.normalizer.FromJSON(product))
		}
		c.logger.Info("page crawled", "page", state.pageIndex, "total_pages", totalPages, "products", len(page.Products))

		if state.pageIndex >= totalPages || state.pageIndex >= c.maxPages || len(page.Products) == 0 {
			state.terminal = true
			break
		}

		cont := pagination.Continuation{Kind: pagination.KindParam, Param: "page", Value: nextCursor(ref)}
		next, ok := cont.Resolve(ref)
		if !ok {
			state.terminal = true
			break
		}
		if _, seen := state.visited[next]; seen {
			state.terminal = true
			break
		}

		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Info("crawl cancelled", "error", err)
			break
		}

		state.pageIndex++
		state.visited[next] = struct{}{}
		ref = next
	}

	return state.results
}

// nextCursor reads the zero-indexed page cursor out of the reference
// and advances it by one.
func nextCursor(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return "1"
	}
	n, err := strconv.Atoi(u.Query().Get("page"))
	if err != nil {
		return "1"
	}
	return strconv.Itoa(n + 1)
}
