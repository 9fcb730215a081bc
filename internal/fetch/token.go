package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// TokenProvider supplies the bearer credential for the mobile API. The
// token is treated as an opaque string; nothing here validates or
// interprets its contents.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

type anonymousToken struct {
	AccessToken string `json:"access_token"`
}

// AnonymousTokenSource obtains an anonymous access token the way the
// mobile app does on first launch, and caches it for the lifetime of
// the source.
type AnonymousTokenSource struct {
	client   *resty.Client
	baseURL  string
	clientID string
	logger   *slog.Logger

	mu    sync.Mutex
	token string
}

func NewAnonymousTokenSource(baseURL, clientID string, timeout time.Duration, logger *slog.Logger) *AnonymousTokenSource {
	client := resty.New().
		SetTimeout(timeout).
		SetHeaders(apiHeaders).
		SetRetryCount(0)

	return &AnonymousTokenSource{
		client:   client,
		baseURL:  baseURL,
		clientID: clientID,
		logger:   logger.With("component", "token_source"),
	}
}

func (s *AnonymousTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" {
		return s.token, nil
	}

	s.logger.Info("requesting anonymous access token")

	var tok anonymousToken
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"clientId": s.clientID}).
		SetResult(&tok).
		Post(s.baseURL + "/mobile-auth/v1/auth/token/anonymous")
	if err != nil {
		return "", fmt.Errorf("requesting anonymous token: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("anonymous token request returned %d", resp.StatusCode())
	}
	if tok.AccessToken == "" {
		return "", errors.New("anonymous token response missing access_token")
	}

	s.token = tok.AccessToken
	return s.token, nil
}
