package fetch

import (
	"context"
	"log/slog"
	"math/rand"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/crawler"
)

// Header set mimicking a desktop Chrome session. The webshop serves a
// consent interstitial to clients without these.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/100.0.4896.127 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.9",
	"Accept-Language":           "en-US,en;q=0.9,nl;q=0.8",
	"Connection":                "keep-alive",
	"sec-ch-ua":                 `" Not A;Brand";v="99", "Chromium";v="100", "Google Chrome";v="100"`,
	"sec-ch-ua-mobile":          "?0",
	"sec-ch-ua-platform":        `"Windows"`,
	"Sec-Fetch-Dest":            "document",
	"Sec-Fetch-Mode":            "navigate",
	"Sec-Fetch-Site":            "same-origin",
	"Sec-Fetch-User":            "?1",
	"Upgrade-Insecure-Requests": "1",
	"Cookie":                    "optOutCategories=[]",
}

// SiteClient fetches listing pages from the public website. It warms
// the session up with a homepage visit before the first listing fetch,
// surfaces status codes verbatim and never retries.
type SiteClient struct {
	client  *resty.Client
	baseURL string
	logger  *slog.Logger

	mu     sync.Mutex
	warmed bool
}

func NewSiteClient(baseURL string, timeout time.Duration, logger *slog.Logger) *SiteClient {
	client := resty.New().
		SetTimeout(timeout).
		SetHeaders(browserHeaders).
		SetHeader("Referer", baseURL+"/").
		SetRetryCount(0)

	return &SiteClient{
		client:  client,
		baseURL: baseURL,
		logger:  logger.With("component", "site_client"),
	}
}

// Fetch implements crawler.Fetcher.
func (c *SiteClient) Fetch(ctx context.Context, ref string) (*crawler.FetchResult, error) {
	if err := c.warmUp(ctx); err != nil {
		return nil, err
	}

	resp, err := c.client.R().SetContext(ctx).Get(ref)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("fetched page", "ref", ref, "status", resp.StatusCode())
	return &crawler.FetchResult{
		StatusCode: resp.StatusCode(),
		Body:       resp.String(),
	}, nil
}

// warmUp visits the homepage once per client so the session carries the
// cookies a direct listing request would be missing. A short jittered
// pause follows, like a human landing on the page before navigating.
func (c *SiteClient) warmUp(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.warmed {
		return nil
	}

	c.logger.Info("establishing session", "url", c.baseURL)
	if _, err := c.client.R().SetContext(ctx).Get(c.baseURL); err != nil {
		return err
	}

	pause := 2*time.Second + time.Duration(rand.Int63n(int64(time.Second)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(pause):
	}

	c.warmed = true
	return nil
}

// ListingURL builds the category listing reference, with the bonus
// filter expressed as the site's kenmerk parameter.
func ListingURL(baseURL, taxonomyID string, bonusOnly bool) string {
	ref := baseURL + "/producten/" + taxonomyID
	if bonusOnly {
		q := url.Values{}
		q.Set("kenmerk", "bonus")
		ref += "?" + q.Encode()
	}
	return ref
}
