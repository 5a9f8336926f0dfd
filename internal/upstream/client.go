// Package upstream implements the upstream client (C5): OAuth acquisition,
// search, single-item and bulk-item fetch, with the error classification the
// rest of the worker depends on (RateLimitError, AuthError, TransientError,
// BulkNotAuthorizedError).
package upstream

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/riguy5000/ebay-hunter-worker/internal/creds"
	"github.com/riguy5000/ebay-hunter-worker/internal/ratelimit"
	"github.com/riguy5000/ebay-hunter-worker/internal/store"
	"github.com/riguy5000/ebay-hunter-worker/internal/tokencache"
)

const (
	marketplaceID  = "EBAY_US"
	oauthScope     = "https://api.ebay.com/oauth/api_scope"
	bulkBatchSize  = 20
	searchLimit    = 200
)

// Config controls the upstream client's wire endpoints and deadlines.
type Config struct {
	APIBaseURL   string // e.g. https://api.ebay.com
	OAuthURL     string // e.g. https://api.ebay.com/identity/v1/oauth2/token
	SearchDeadline time.Duration
	BulkDeadline   time.Duration
	TokenDeadline  time.Duration
}

// DefaultConfig returns the production eBay Browse API endpoints with the
// deadlines (30s search/bulk, 10s token).
func DefaultConfig() Config {
	return Config{
		APIBaseURL:     "https://api.ebay.com",
		OAuthURL:       "https://api.ebay.com/identity/v1/oauth2/token",
		SearchDeadline: 30 * time.Second,
		BulkDeadline:   30 * time.Second,
		TokenDeadline:  10 * time.Second,
	}
}

// Client is the upstream API client. Every call obtains a fresh credential
// from the pool — tasks never "own" a credential, which spreads load and
// isolates rate-limiting events to single calls instead of whole tasks.
type Client struct {
	cfg      Config
	pool     *creds.Pool
	tokens   *tokencache.Cache
	governor *ratelimit.Governor
	st       store.Store
	http     *retryablehttp.Client
	log      *slog.Logger
}

// New builds an upstream Client.
func New(cfg Config, pool *creds.Pool, tokens *tokencache.Cache, gov *ratelimit.Governor, st store.Store, log *slog.Logger) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.Logger = nil
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil // connection-level errors: retry
		}
		if resp == nil {
			return false, nil
		}
		// 401/403/429 are business outcomes classified by the caller, not
		// blind-retried — retrying them would mask the cooldown/disable logic.
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests:
			return false, nil
		}
		return resp.StatusCode >= 500, nil
	}
	return &Client{cfg: cfg, pool: pool, tokens: tokens, governor: gov, st: st, http: rc, log: log}
}

// acquireToken runs the OAuth client-credentials grant for one credential.
func (c *Client) acquireToken(ctx context.Context, cred store.Credential) (string, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TokenDeadline)
	defer cancel()

	form := url.Values{
		"grant_type": {"client_credentials"},
		"scope":      {oauthScope},
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.cfg.OAuthURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, fmt.Errorf("upstream: build token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(cred.AppID + ":" + cred.CertID))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", 0, &TransientError{Status: 0, BodyExcerpt: err.Error()}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return "", 0, &AuthError{CredentialAppID: cred.AppID}
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, &TransientError{Status: resp.StatusCode, BodyExcerpt: excerpt(body)}
	}

	var tr struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, fmt.Errorf("upstream: decode token response: %w", err)
	}
	return tr.AccessToken, time.Duration(tr.ExpiresIn) * time.Second, nil
}

// bearerFor obtains a valid bearer token for cred, refreshing and
// propagating auth failures as needed. On 401 the credential is marked
// errored and its cached token evicted.
func (c *Client) bearerFor(ctx context.Context, cred store.Credential) (string, error) {
	tok, err := c.tokens.Get(ctx, cred.AppID, func(ctx context.Context) (string, time.Duration, error) {
		return c.acquireToken(ctx, cred)
	})
	if err != nil {
		var authErr *AuthError
		if isAuthError(err, &authErr) {
			c.tokens.Evict(cred.AppID)
			if markErr := c.pool.MarkError(ctx, cred.AppID); markErr != nil {
				c.log.Error("failed to persist credential disable", "app_id", cred.AppID, "error", markErr)
			}
		}
		return "", err
	}
	return tok, nil
}

func isAuthError(err error, target **AuthError) bool {
	if ae, ok := err.(*AuthError); ok {
		*target = ae
		return true
	}
	return false
}

func excerpt(body []byte) string {
	const max = 300
	s := string(body)
	if len(s) > max {
		return s[:max]
	}
	return s
}

// doAuthed obtains the next credential from the pool, acquires its bearer
// token, applies the rate-governor checks, and performs the request. Every
// request sent, successful or not, is recorded against both the governor and
// the per-credential observability counter; non-2xx responses are classified.
func (c *Client) doAuthed(ctx context.Context, endpoint string, build func(token string) (*retryablehttp.Request, error)) ([]byte, store.Credential, error) {
	if !c.governor.CanMakeCall() {
		return nil, store.Credential{}, nil // caller treats nil, nil as "empty result"
	}

	cred, err := c.pool.Next()
	if err != nil {
		return nil, store.Credential{}, err
	}

	token, err := c.bearerFor(ctx, cred)
	if err != nil {
		return nil, cred, err
	}

	c.governor.WaitSmoothing()

	req, err := build(token)
	if err != nil {
		return nil, cred, fmt.Errorf("upstream: build request: %w", err)
	}
	req.Header.Set("X-EBAY-C-MARKETPLACE-ID", marketplaceID)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	c.governor.RecordCall()
	statusCode := 0
	if resp != nil {
		statusCode = resp.StatusCode
	}
	if logErr := c.st.LogAPIUsage(ctx, store.APIUsageRecord{
		CredentialAppID: cred.AppID, Endpoint: endpoint, StatusCode: statusCode, CalledAt: time.Now(),
	}); logErr != nil {
		c.log.Warn("failed to log api usage", "error", logErr)
	}
	if recErr := c.pool.RecordCall(ctx, cred.AppID); recErr != nil {
		c.log.Warn("failed to record credential call count", "error", recErr)
	}

	if err != nil {
		return nil, cred, &TransientError{Status: 0, BodyExcerpt: err.Error()}
	}
	defer resp.Body.Close()
	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, cred, fmt.Errorf("upstream: read response: %w", readErr)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, cred, nil
	case http.StatusTooManyRequests:
		c.pool.Cooldown(cred.AppID)
		return body, cred, &RateLimitError{CredentialAppID: cred.AppID}
	case http.StatusForbidden:
		if endpoint == "item_bulk" {
			return body, cred, &BulkNotAuthorizedError{}
		}
		return body, cred, &TransientError{Status: resp.StatusCode, BodyExcerpt: excerpt(body)}
	default:
		return body, cred, &TransientError{Status: resp.StatusCode, BodyExcerpt: excerpt(body)}
	}
}
