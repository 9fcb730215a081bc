package crawler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/models"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/pagination"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/parser"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/ratelimit"
)

// FetchResult is what the fetch collaborator hands back: the status
// code verbatim and the raw body. The fetcher never retries; retry
// policy belongs to a wrapping layer.
type FetchResult struct {
	StatusCode int
	Body       string
}

// Fetcher retrieves one reference. Exactly one fetch is ever in flight.
type Fetcher interface {
	Fetch(ctx context.Context, ref string) (*FetchResult, error)
}

// crawlState is owned exclusively by one Crawl invocation and discarded
// when it returns.
type crawlState struct {
	pageIndex int
	visited   map[string]struct{}
	results   []models.ProductRecord
	terminal  bool
}

// Orchestrator drives the fetch, normalize, discover-next loop over the
// website's listing pages. Every exit path returns the records
// accumulated so far; a failed fetch yields a partial result, never an
// error.
type Orchestrator struct {
	fetcher    Fetcher
	normalizer *parser.Normalizer
	discoverer *pagination.Discoverer
	limiter    ratelimit.Limiter
	logger     *slog.Logger
	maxPages   int
	bonusOnly  bool
}

type Options struct {
	MaxPages  int
	BonusOnly bool
}

func NewOrchestrator(fetcher Fetcher, normalizer *parser.Normalizer, discoverer *pagination.Discoverer, limiter ratelimit.Limiter, logger *slog.Logger, opts Options) *Orchestrator {
	maxPages := opts.MaxPages
	if maxPages < 1 {
		maxPages = 1
	}
	return &Orchestrator{
		fetcher:    fetcher,
		normalizer: normalizer,
		discoverer: discoverer,
		limiter:    limiter,
		logger:     logger.With("component", "crawler"),
		maxPages:   maxPages,
		bonusOnly:  opts.BonusOnly,
	}
}

// Crawl walks listing pages starting at startRef until the discoverer
// goes terminal, the page cap is reached, a reference repeats, or a
// fetch fails.
func (o *Orchestrator) Crawl(ctx context.Context, startRef string) []models.ProductRecord {
	state := &crawlState{
		pageIndex: 1,
		visited:   map[string]struct{}{startRef: {}},
	}

	ref := startRef
	for !state.terminal {
		res, err := o.fetcher.Fetch(ctx, ref)
		if err != nil {
			o.logger.Error("fetch failed", "ref", ref, "error", err)
			break
		}
		if res.StatusCode != http.StatusOK {
			o.logger.Error("unexpected status", "ref", ref, "status", res.StatusCode)
			break
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.Body))
		if err != nil {
			o.logger.Error("unparseable page", "ref", ref, "error", err)
			break
		}

		records := o.parsePage(doc)
		state.results = append(state.results, records...)
		o.logger.Info("page crawled", "page", state.pageIndex, "ref", ref, "products", len(records))

		cont := o.discoverer.Discover(doc, ref, state.pageIndex)
		next, ok := cont.Resolve(ref)
		if !ok {
			state.terminal = true
			break
		}
		if state.pageIndex >= o.maxPages {
			o.logger.Info("page cap reached", "max_pages", o.maxPages)
			state.terminal = true
			break
		}
		if _, seen := state.visited[next]; seen {
			o.logger.Warn("continuation cycle", "ref", next)
			state.terminal = true
			break
		}

		if err := o.limiter.Wait(ctx); err != nil {
			o.logger.Info("crawl cancelled", "error", err)
			break
		}

		state.pageIndex++
		state.visited[next] = struct{}{}
		ref = next
	}

	return state.results
}

// parsePage turns one listing document into records. A page with no
// recognizable card container yields zero records and the crawl moves
// on to pagination discovery.
func (o *Orchestrator) parsePage(doc *goquery.Document) []models.ProductRecord {
	cards, ok := parser.FindProductCards(doc)
	if !ok {
		diag := parser.DiagnosePage(doc)
		o.logger.Warn("no product cards found",
			"frameworks", diag.Frameworks,
			"api_endpoints", len(diag.APIEndpoints),
			"login_redirect", diag.LoginRedirect,
		)
		return nil
	}

	records := make([]models.ProductRecord, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		if o.bonusOnly && !o.normalizer.IsBonusCard(card) {
			return
		}
		records = append(records, o.normalizer.FromCard(card))
	})
	return records
}
