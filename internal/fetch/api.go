package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/config"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/crawler"
)

// Header set of the mobile app; the API rejects requests that present
// themselves as anything else.
var apiHeaders = map[string]string{
	"x-application": "AHWEBSHOP",
	"user-agent":    "Appie/8.8.2 Model/phone Android/7.0-API24",
	"content-type":  "application/json; charset=UTF-8",
}

// APIClient fetches from the mobile JSON API with a bearer credential
// supplied by a TokenProvider. Status codes are surfaced verbatim and
// nothing is retried here.
type APIClient struct {
	client  *resty.Client
	baseURL string
	tokens  TokenProvider
	logger  *slog.Logger
}

func NewAPIClient(baseURL string, tokens TokenProvider, timeout time.Duration, logger *slog.Logger) *APIClient {
	client := resty.New().
		SetTimeout(timeout).
		SetHeaders(apiHeaders).
		SetRetryCount(0)

	return &APIClient{
		client:  client,
		baseURL: baseURL,
		tokens:  tokens,
		logger:  logger.With("component", "api_client"),
	}
}

// Fetch implements crawler.Fetcher.
func (c *APIClient) Fetch(ctx context.Context, ref string) (*crawler.FetchResult, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring credential: %w", err)
	}

	resp, err := c.client.R().SetContext(ctx).SetAuthToken(token).Get(ref)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched page", "ref", ref, "status", resp.StatusCode())
	return &crawler.FetchResult{
		StatusCode: resp.StatusCode(),
		Body:       resp.String(),
	}, nil
}

// SearchURL builds the first search reference (page 0, the API is
// zero-indexed). Crawl options are forwarded verbatim as query
// parameters; their semantic correctness is the upstream's business.
func SearchURL(baseURL string, opts config.CrawlConfig) string {
	q := url.Values{}
	q.Set("sortOn", opts.SortKey)
	q.Set("page", "0")
	q.Set("size", strconv.Itoa(opts.PageSize))
	if opts.Query != "" {
		q.Set("query", opts.Query)
	}
	if opts.TaxonomyID != "" {
		q.Set("taxonomyId", opts.TaxonomyID)
	}
	if opts.BonusOnly {
		q.Set("bonus", "true")
	}
	return baseURL + "/mobile-services/product/search/v2?" + q.Encode()
}

// Categories lists the top-level product shelves.
func (c *APIClient) Categories(ctx context.Context) ([]map[string]any, error) {
	var categories []map[string]any
	if err := c.getJSON(ctx, "/mobile-services/v1/product-shelves/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// SubCategories lists the shelves under one category.
func (c *APIClient) SubCategories(ctx context.Context, categoryID string) ([]map[string]any, error) {
	var categories []map[string]any
	path := "/mobile-services/v1/product-shelves/categories/" + url.PathEscape(categoryID) + "/sub-categories"
	if err := c.getJSON(ctx, path, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ProductDetail fetches the full detail document for one product.
func (c *APIClient) ProductDetail(ctx context.Context, productID string) (map[string]any, error) {
	var detail map[string]any
	path := "/mobile-services/product/detail/v4/fir/" + url.PathEscape(productID)
	if err := c.getJSON(ctx, path, &detail); err != nil {
		return nil, err
	}
	return detail, nil
}

// BonusPeriods returns the promotion windows currently advertised.
func (c *APIClient) BonusPeriods(ctx context.Context) ([]map[string]any, error) {
	var metadata struct {
		Periods []map[string]any `json:"periods"`
	}
	if err := c.getJSON(ctx, "/mobile-services/bonuspage/v1/metadata", &metadata); err != nil {
		return nil, err
	}
	return metadata.Periods, nil
}

func (c *APIClient) getJSON(ctx context.Context, path string, out any) error {
	res, err := c.Fetch(ctx, c.baseURL+path)
	if err != nil {
		return err
	}
	if res.StatusCode != 200 {
		return fmt.Errorf("GET %s returned %d", path, res.StatusCode)
	}
	if err := json.Unmarshal([]byte(res.Body), out); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
