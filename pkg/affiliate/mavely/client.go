// Package mavely provides an affiliate.Linker implementation backed by the
// Mavely creator dashboard GraphQL API. Link creation needs an authenticated
// browser session; the session artifact comes from a session.Manager and is
// never logged, only its presence and length are.
package mavely

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"linkmint/pkg/affiliate"
	"linkmint/pkg/logger"
	"linkmint/pkg/metrics"
	"linkmint/pkg/serrors"
	"linkmint/pkg/session"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	graphqlPath = "/api/graphql"
	sessionPath = "/api/auth/session"

	maxBackoff     = 10 * time.Second
	snippetMaxLen  = 500
	defaultRetries = 3

	// bearerSkew is how close to its exp claim a bearer token may get before
	// a session probe refreshes it preemptively.
	bearerSkew = 2 * time.Minute
)

// createLinkQuery is the link-creation mutation. The link and attributionUrl
// fields are the only ones consumed; either may carry the short link.
const createLinkQuery = `mutation CreateAffiliateLink($url: String!) {
  createAffiliateLink(url: $url) {
    id
    link
    attributionUrl
    originalUrl
    brand { id name slug }
  }
}`

// Options configure the Mavely client.
type Options struct {
	// BaseURL is the dashboard origin, e.g. https://creators.joinmavely.com.
	BaseURL string
	// GraphQLEndpoint overrides {BaseURL}/api/graphql when set.
	GraphQLEndpoint string
	// UserAgent is sent on every request.
	UserAgent string
	// MinInterval is the global minimum spacing between outbound calls.
	MinInterval time.Duration
	// MaxRetries bounds attempts per link creation.
	MaxRetries int
}

// Client mints Mavely affiliate links and fulfills the affiliate.Linker
// interface. It is safe for concurrent use: the pacing gate is a shared
// limiter and the session artifact lives behind the manager's lock.
type Client struct {
	httpClient *http.Client
	opts       Options
	sessions   *session.Manager
	limiter    *rate.Limiter
	sleep      func(ctx context.Context, d time.Duration) error
}

var _ affiliate.Linker = (*Client)(nil)

// New constructs a Client. The limiter admits one call per MinInterval; a
// zero interval disables pacing.
func New(httpClient *http.Client, sessions *session.Manager, opts Options) *Client {
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.MaxRetries < 1 {
		opts.MaxRetries = defaultRetries
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	return &Client{
		httpClient: httpClient,
		opts:       opts,
		sessions:   sessions,
		limiter:    rate.NewLimiter(limit, 1),
		sleep:      sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) graphqlURL() string {
	if c.opts.GraphQLEndpoint != "" {
		return c.opts.GraphQLEndpoint
	}

	return c.opts.BaseURL + graphqlPath
}

func (c *Client) headers(req *http.Request, referer string) {
	a := c.sessions.Artifact()

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Origin", c.opts.BaseURL)
	req.Header.Set("Referer", c.opts.BaseURL+referer)
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
	if a.Cookie != "" {
		req.Header.Set("Cookie", a.Cookie)
	}
	if a.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+a.Bearer)
	}
}

type graphqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
	} `json:"extensions"`
}

type createLinkResponse struct {
	Data struct {
		CreateAffiliateLink struct {
			Link           string `json:"link"`
			AttributionURL string `json:"attributionUrl"`
		} `json:"createAffiliateLink"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

func isTokenExpired(errs []graphqlError) bool {
	for _, e := range errs {
		if strings.EqualFold(strings.TrimSpace(e.Extensions.Code), "TOKEN_EXPIRED") {
			return true
		}
		msg := strings.ToLower(e.Message)
		if strings.Contains(msg, "token expired") ||
			strings.Contains(msg, "not logged in") ||
			strings.Contains(msg, "unauthorized") {
			return true
		}
	}

	return false
}

// isBrandNotFound matches the BAD_USER_INPUT error returned when Mavely has
// no brand for the merchant, meaning the URL cannot be monetized at all.
func isBrandNotFound(errs []graphqlError) bool {
	for _, e := range errs {
		if strings.Contains(strings.ToLower(e.Message), "brand not found for url") {
			return true
		}
	}

	return false
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > snippetMaxLen {
		s = s[:snippetMaxLen]
	}

	return s
}

// CreateLink mints an affiliate link for the destination URL. Transient
// statuses are retried with bounded exponential backoff; an expired session
// gets exactly one hot reload from the credential source before the failure
// is surfaced and the cooldown-gated refresh signal is raised.
func (c *Client) CreateLink(ctx context.Context, url string) (affiliate.Result, error) {
	if url == "" {
		return affiliate.Result{}, serrors.With(serrors.ErrBadRequest, "missing url")
	}
	if c.sessions.Artifact().Empty() {
		return affiliate.Result{}, serrors.With(serrors.ErrUnauthorized, "no session artifact configured")
	}

	// refresh a bearer that is about to expire before it can fail mid-call;
	// the probe pushes a fresh token into the manager on success
	if c.sessions.BearerExpiringSoon(bearerSkew) {
		if err := c.Preflight(ctx); err != nil {
			logger.Warn(ctx, "could not refresh expiring bearer token", zap.Error(err))
		}
	}

	var (
		reloaded bool
		lastErr  error
		lastRes  affiliate.Result
	)

	for attempt := 1; attempt <= c.opts.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return lastRes, serrors.Wrap(serrors.ErrTimeout, err, "rate gate wait interrupted")
		}

		res, err := c.tryCreateLink(ctx, url)
		if err == nil {
			c.sessions.MarkValidated()

			return res, nil
		}
		lastErr, lastRes = err, res

		switch {
		case isTransient(err):
			if attempt < c.opts.MaxRetries {
				logger.Warn(ctx, "transient affiliate error, retrying",
					zap.Int("attempt", attempt),
					zap.Int("status", res.StatusCode),
					zap.Error(err))
				if serr := c.sleep(ctx, backoff(attempt)); serr != nil {
					return lastRes, serrors.Wrap(serrors.ErrTimeout, serr, "backoff interrupted")
				}

				continue
			}

			return lastRes, serrors.Wrap(serrors.ErrRetriesExhausted, err,
				"affiliate link creation failed after %d attempts", attempt)
		case isAuthExpired(err) && !reloaded:
			// One retry with a fresher artifact from disk. The attempt
			// counter stays put; this is a credential fix, not a retry.
			reloaded = true
			if c.sessions.Reload(ctx) {
				logger.Info(ctx, "session artifact changed, retrying affiliate call")
				attempt--

				continue
			}

			fallthrough
		default:
			if isAuthExpired(err) {
				c.sessions.SignalExpired(ctx)
			}

			return lastRes, err
		}
	}

	return lastRes, serrors.Wrap(serrors.ErrRetriesExhausted, lastErr, "affiliate link creation failed")
}

func isTransient(err error) bool {
	return errors.Is(err, serrors.ErrRateLimited) ||
		errors.Is(err, serrors.ErrUnavailable) ||
		errors.Is(err, serrors.ErrTimeout)
}

func isAuthExpired(err error) bool {
	return errors.Is(err, serrors.ErrAuthExpired)
}

func backoff(attempt int) time.Duration {
	d := time.Second << attempt
	if d > maxBackoff {
		d = maxBackoff
	}

	return d
}

// tryCreateLink performs one GraphQL attempt. Errors are classified with
// semantic kinds so the retry loop can branch without string matching.
func (c *Client) tryCreateLink(ctx context.Context, url string) (affiliate.Result, error) {
	body, err := json.Marshal(map[string]any{
		"query":     createLinkQuery,
		"variables": map[string]string{"url": url},
	})
	if err != nil {
		return affiliate.Result{}, fmt.Errorf("could not marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL(), bytes.NewReader(body))
	if err != nil {
		return affiliate.Result{}, fmt.Errorf("could not create request: %w", err)
	}
	c.headers(req, "/tools")

	a := c.sessions.Artifact()
	logger.Debug(ctx, "affiliate graphql call",
		zap.Int("cookie_len", len(a.Cookie)),
		zap.Bool("has_bearer", a.Bearer != ""))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.AffiliateCallDuration.WithLabelValues("transport_error").Observe(time.Since(start).Seconds())

		return affiliate.Result{}, serrors.Wrap(serrors.ErrTimeout, err, "could not send request")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	metrics.AffiliateCallDuration.WithLabelValues(strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return affiliate.Result{StatusCode: resp.StatusCode},
			serrors.Wrap(serrors.ErrMalformedResponse, err, "could not read response body")
	}
	res := affiliate.Result{StatusCode: resp.StatusCode}

	// An HTML body means a login page or a bot challenge, not an API answer.
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "text/html") {
		return res, serrors.With(serrors.ErrAuthExpired,
			"blocked or not authenticated (html response, status %d)", resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return res, serrors.With(serrors.ErrAuthExpired, "unauthorized")
	case resp.StatusCode == http.StatusTooManyRequests:
		return res, serrors.With(serrors.ErrRateLimited, "rate limited: %s", snippet(b))
	case resp.StatusCode >= 500:
		return res, serrors.With(serrors.ErrUnavailable, "server error %d: %s", resp.StatusCode, snippet(b))
	case resp.StatusCode != http.StatusOK:
		return res, fmt.Errorf("graphql status %d: %s", resp.StatusCode, snippet(b))
	}

	var decoded createLinkResponse
	if err := json.Unmarshal(b, &decoded); err != nil {
		return res, serrors.Wrap(serrors.ErrMalformedResponse, err, "could not decode graphql response")
	}

	if len(decoded.Errors) > 0 {
		switch {
		case isBrandNotFound(decoded.Errors):
			return res, serrors.With(serrors.ErrBadRequest, "merchant not supported by the network for this url")
		case isTokenExpired(decoded.Errors):
			return res, serrors.With(serrors.ErrAuthExpired, "session token expired")
		default:
			return res, serrors.With(serrors.ErrMalformedResponse,
				"graphql errors: %s", decoded.Errors[0].Message)
		}
	}

	link := decoded.Data.CreateAffiliateLink.Link
	if link == "" {
		link = decoded.Data.CreateAffiliateLink.AttributionURL
	}
	if link == "" {
		return res, serrors.With(serrors.ErrMalformedResponse, "graphql response missing link")
	}
	res.Link = link

	return res, nil
}

// Preflight probes the session endpoint without side effects on the partner
// account. A valid session also yields a fresh bearer token, which is pushed
// into the session manager for subsequent GraphQL calls.
func (c *Client) Preflight(ctx context.Context) error {
	if c.sessions.Artifact().Empty() {
		return serrors.With(serrors.ErrUnauthorized, "no session artifact configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+sessionPath, nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	c.headers(req, "/home")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("could not read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK ||
		!strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "application/json") {
		return serrors.With(serrors.ErrAuthExpired, "session probe status %d", resp.StatusCode)
	}

	var data struct {
		Token       string `json:"token"`
		AccessToken string `json:"accessToken"`
		User        struct {
			Token       string `json:"token"`
			AccessToken string `json:"accessToken"`
		} `json:"user"`
	}
	if err := json.Unmarshal(b, &data); err != nil {
		return serrors.Wrap(serrors.ErrMalformedResponse, err, "could not decode session response")
	}

	// The session endpoint answers 200 with an empty object when the cookies
	// are no longer logged in.
	if strings.TrimSpace(string(b)) == "{}" {
		c.sessions.SignalExpired(ctx)

		return serrors.With(serrors.ErrAuthExpired, "session is empty (not logged in)")
	}

	for _, token := range []string{data.Token, data.AccessToken, data.User.Token, data.User.AccessToken} {
		if token != "" {
			c.sessions.SetBearer(token)
			logger.Debug(ctx, "derived bearer token from session", zap.Int("bearer_len", len(token)))

			break
		}
	}
	c.sessions.MarkValidated()

	return nil
}
