// Package resolver maps candidate URLs to their most-plausible final
// destination: pure query-parameter unwrapping, bounded redirect following
// for known shorteners and a best-effort HTML scan for deal-hub pages that
// embed an outbound merchant link instead of redirecting.
package resolver

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"linkmint/pkg/domain"
	"linkmint/pkg/logger"
	"linkmint/pkg/metrics"
	"linkmint/pkg/urlkit"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const (
	// maxHubHops bounds hub-to-hub chains, e.g. a deal page linking to
	// another deal page before the merchant.
	maxHubHops = 3
	// maxScanBytes caps how much of a hub page body is scanned.
	maxScanBytes = 200_000
)

// shortenerHosts are hosts worth a network round trip to expand. Everything
// else resolves without touching the network.
var shortenerHosts = map[string]struct{}{ //nolint: gochecknoglobals
	"bit.ly":                 {},
	"t.co":                   {},
	"tinyurl.com":            {},
	"goo.gl":                 {},
	"rebrand.ly":             {},
	"cutt.ly":                {},
	"rb.gy":                  {},
	"is.gd":                  {},
	"s.id":                   {},
	"linktr.ee":              {},
	"trackcm.com":            {},
	"walmrt.us":              {},
	"amzn.to":                {},
	"go.sylikes.com":         {},
	"rd.bizrate.com":         {},
	"go.skimresources.com":   {},
	"howl.link":              {},
	"howl.me":                {},
	"deals.pennyexplorer.com": {},
	"dealsabove.com":         {},
	"www.dealsabove.com":     {},
	"pricedoffers.com":       {},
	"saveyourdeals.com":      {},
	"joylink.io":             {},
	"fkd.deals":              {},
	"ringinthedeals.com":     {},
	"dmflip.com":             {},
}

// defaultHubHosts are content pages that embed the outbound link in HTML
// rather than redirecting. The set is best-effort and overridable, site
// redesigns break it routinely.
var defaultHubHosts = []string{ //nolint: gochecknoglobals
	"deals.pennyexplorer.com",
	"ringinthedeals.com",
	"dmflip.com",
	"trackcm.com",
	"joylink.io",
	"fkd.deals",
	"pricedoffers.com",
	"saveyourdeals.com",
	"go.sylikes.com",
	"rd.bizrate.com",
	"go.skimresources.com",
	"howl.link",
	"howl.me",
}

// Options configure a Resolver.
type Options struct {
	// Enabled toggles network resolution; query unwrapping always runs.
	Enabled bool
	// MaxRedirects bounds redirect hops per attempt.
	MaxRedirects int
	// Timeout bounds one resolution attempt.
	Timeout time.Duration
	// UserAgent is sent on every request.
	UserAgent string
	// ExtraHosts extends the shortener allowlist.
	ExtraHosts []string
	// HubHosts replaces the built-in deal-hub set when non-empty.
	HubHosts []string
	// NetworkLinkDomain is the affiliate network's own short domain; its
	// links expand like any other shortener.
	NetworkLinkDomain string
}

// Resolver resolves URLs to their final destination. It never returns an
// error: the worst case is the original URL with method "none".
type Resolver struct {
	opts       Options
	httpClient *http.Client
	altClient  *http.Client
	extraHosts map[string]struct{}
	hubHosts   map[string]struct{}
}

// New constructs a Resolver. The primary client follows redirects up to
// MaxRedirects; the alternate client forces HTTP/1.1 with a fresh TLS config
// for hosts that reject the default Go client fingerprint.
func New(opts Options) *Resolver {
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = 8
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 8 * time.Second
	}

	checkRedirect := func(req *http.Request, via []*http.Request) error {
		if len(via) >= opts.MaxRedirects {
			return http.ErrUseLastResponse
		}

		return nil
	}

	extra := make(map[string]struct{}, len(opts.ExtraHosts)+1)
	for _, h := range opts.ExtraHosts {
		extra[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	if opts.NetworkLinkDomain != "" {
		extra[strings.ToLower(opts.NetworkLinkDomain)] = struct{}{}
	}

	hubs := defaultHubHosts
	if len(opts.HubHosts) > 0 {
		hubs = opts.HubHosts
	}
	hubSet := make(map[string]struct{}, len(hubs)+1)
	for _, h := range hubs {
		hubSet[strings.ToLower(strings.TrimSpace(h))] = struct{}{}
	}
	if opts.NetworkLinkDomain != "" {
		hubSet[strings.ToLower(opts.NetworkLinkDomain)] = struct{}{}
	}

	return &Resolver{
		opts: opts,
		httpClient: &http.Client{
			Timeout:       opts.Timeout,
			CheckRedirect: checkRedirect,
		},
		altClient: &http.Client{
			Timeout:       opts.Timeout,
			CheckRedirect: checkRedirect,
			Transport: &http.Transport{
				// force HTTP/1.1 with a plain TLS config for hosts that
				// reject the default client
				TLSClientConfig:   &tls.Config{MinVersion: tls.VersionTLS12},
				TLSNextProto:      map[string]func(string, *tls.Conn) http.RoundTripper{},
				ForceAttemptHTTP2: false,
			},
		},
		extraHosts: extra,
		hubHosts:   hubSet,
	}
}

// Resolve maps the candidate URL to its final destination. Stages
// short-circuit on first success and every network failure degrades to the
// next stage, so the caller always gets a usable URL back.
func (r *Resolver) Resolve(ctx context.Context, candidate string) domain.ResolvedURL {
	res := domain.ResolvedURL{
		Original: candidate,
		Resolved: candidate,
		Method:   domain.ResolveNone,
	}

	if unwrapped, ok := Unwrap(candidate); ok {
		res.Resolved = unwrapped
		res.Method = domain.ResolveUnwrappedParam
	}

	if r.opts.Enabled && r.shouldExpand(res.Resolved) {
		if final, method, hops := r.expand(ctx, res.Resolved); final != "" && final != res.Resolved {
			res.Resolved = normalizeExpanded(final)
			res.Method = method
			res.Hops = hops

			// expansion may land on another wrappable URL
			if unwrapped, ok := Unwrap(res.Resolved); ok {
				res.Resolved = unwrapped
			}
		}
	}

	if r.opts.Enabled {
		if final, ok := r.scanHubChain(ctx, res.Resolved); ok {
			res.Resolved = final
			res.Method = domain.ResolveHTMLScrape
		}
	}

	metrics.ResolutionTotal.WithLabelValues(string(res.Method), outcome(res)).Inc()

	return res
}

func outcome(res domain.ResolvedURL) string {
	if res.Resolved == res.Original {
		return "unchanged"
	}

	return "resolved"
}

func (r *Resolver) shouldExpand(rawURL string) bool {
	host := urlkit.Host(rawURL)
	if host == "" {
		return false
	}
	if _, ok := r.extraHosts[host]; ok {
		return true
	}
	_, ok := shortenerHosts[host]

	return ok
}

// expand follows redirects with HEAD, then GET reading no body, then the
// alternate transport. The first attempt that lands somewhere wins.
func (r *Resolver) expand(ctx context.Context, rawURL string) (string, domain.ResolveMethod, int) {
	if final, hops, err := r.follow(ctx, r.httpClient, http.MethodHead, rawURL); err == nil {
		return final, domain.ResolveHeadFollow, hops
	}
	if final, hops, err := r.follow(ctx, r.httpClient, http.MethodGet, rawURL); err == nil {
		return final, domain.ResolveGetFollow, hops
	}
	if final, hops, err := r.follow(ctx, r.altClient, http.MethodGet, rawURL); err == nil {
		return final, domain.ResolveGetFollow, hops
	}
	logger.Debug(ctx, "all expansion attempts failed", zap.String("url", rawURL))

	return "", domain.ResolveNone, 0
}

func (r *Resolver) follow(ctx context.Context, client *http.Client, method, rawURL string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", r.opts.UserAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	final := resp.Request.URL.String()
	if final == rawURL && resp.StatusCode >= http.StatusBadRequest {
		// an error status with no movement means this verb is refused, let
		// the next attempt try; a redirect that lands on an error page still
		// counts since the URL itself is what matters
		return "", 0, fmt.Errorf("status %d without redirect", resp.StatusCode)
	}
	hops := 0
	if final != rawURL {
		// the client does not expose the hop count; approximate with one
		// per differing URL since only the budget ceiling matters
		hops = 1
	}

	return final, hops, nil
}

// scanHubChain follows hub pages whose body carries the outbound link,
// repeating for hub-to-hub chains up to maxHubHops.
func (r *Resolver) scanHubChain(ctx context.Context, rawURL string) (string, bool) {
	current := rawURL
	scanned := false

	for range maxHubHops {
		if _, ok := r.hubHosts[urlkit.Host(current)]; !ok {
			break
		}

		out, err := r.scanHubPage(ctx, current)
		if err != nil || out == "" {
			logger.Debug(ctx, "hub scan yielded nothing", zap.String("url", current), zap.Error(err))

			break
		}
		if abs := resolveRelative(current, out); abs != "" {
			out = abs
		}
		if unwrapped, ok := Unwrap(out); ok {
			out = unwrapped
		}
		current = out
		scanned = true
	}

	return current, scanned
}

func (r *Resolver) scanHubPage(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", r.opts.UserAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScanBytes))
	if err != nil {
		return "", err
	}

	return extractOutboundURL(string(body)), nil
}

func resolveRelative(base, ref string) string {
	if !strings.HasPrefix(ref, "/") {
		return ref
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	u, err := b.Parse(ref)
	if err != nil {
		return ref
	}

	return u.String()
}

var (
	// challengeB64Re matches bot-challenge pages that stash the real
	// destination base64-encoded in a b= parameter.
	challengeB64Re = regexp.MustCompile(`[?&]b=([A-Za-z0-9+/=_-]{40,})`)

	merchantRes = []*regexp.Regexp{ //nolint: gochecknoglobals
		regexp.MustCompile(`(?i)https?://(?:www\.)?amazon\.[^\s"'<>]+`),
		regexp.MustCompile(`(?i)https?://amzn\.to/[A-Za-z0-9]+`),
		regexp.MustCompile(`(?i)https?://saveyourdeals\.com/[A-Za-z0-9]+`),
		regexp.MustCompile(`(?i)https?://(?:www\.)?dealsabove\.com/[^\s"'<>]+`),
		regexp.MustCompile(`(?i)https?://(?:www\.)?walmart\.com/[^\s"'<>]+`),
		regexp.MustCompile(`(?i)https?://walmrt\.us/[A-Za-z0-9]+`),
		regexp.MustCompile(`(?i)https?://(?:www\.)?target\.com/[^\s"'<>]+`),
		regexp.MustCompile(`(?i)https?://bit\.ly/[A-Za-z0-9]+`),
	}

	// anchorLabels are explicit deal-button texts, checked before generic
	// merchant patterns.
	anchorLabels = []string{"Go to Deal", "Continue to Amazon", "Claim Amazon Deal", "Claim Deal"} //nolint: gochecknoglobals

	scanDenyHosts = map[string]struct{}{ //nolint: gochecknoglobals
		"howl.link":                {},
		"howl.me":                  {},
		"googletagmanager.com":     {},
		"www.googletagmanager.com": {},
		"google-analytics.com":     {},
		"www.google-analytics.com": {},
		"doubleclick.net":          {},
		"facebook.com":             {},
		"www.facebook.com":         {},
		"tiktok.com":               {},
		"www.tiktok.com":           {},
	}

	scanDenyExts = []string{ //nolint: gochecknoglobals
		".js", ".css", ".png", ".jpg", ".jpeg", ".gif", ".svg",
		".webp", ".ico", ".woff", ".woff2", ".ttf",
	}
)

// extractOutboundURL scans a hub page body for the first recognizable
// outbound merchant URL. Preference order: base64 challenge parameter,
// explicit deal-button anchors, known merchant patterns, then any outbound
// anchor that is not an analytics or asset link.
func extractOutboundURL(html string) string {
	if html == "" {
		return ""
	}

	if m := challengeB64Re.FindStringSubmatch(html); m != nil {
		decoded := urlkit.DecodeBase64(m[1])
		if decoded == "" {
			decoded = urlkit.DecodeBase64URL(m[1])
		}
		if urlkit.IsHTTP(decoded) {
			return decoded
		}
	}

	doc, docErr := goquery.NewDocumentFromReader(strings.NewReader(html))
	if docErr == nil {
		var fromButton string
		doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := strings.TrimSpace(s.Text())
			for _, label := range anchorLabels {
				if strings.EqualFold(text, label) {
					fromButton, _ = s.Attr("href")

					return false
				}
			}

			return true
		})
		if fromButton != "" {
			return fromButton
		}
	}

	for _, re := range merchantRes {
		if m := re.FindString(html); m != "" {
			return strings.TrimRight(m, `"'`)
		}
	}

	if docErr == nil {
		var fallback string
		doc.Find("a[href]").EachWithBreak(func(i int, s *goquery.Selection) bool {
			if i >= 60 {
				return false
			}
			href, _ := s.Attr("href")
			href = strings.TrimSpace(href)
			if !urlkit.IsHTTP(href) {
				return true
			}
			if _, deny := scanDenyHosts[urlkit.Host(href)]; deny {
				return true
			}
			pathOnly := strings.ToLower(strings.SplitN(href, "?", 2)[0])
			for _, ext := range scanDenyExts {
				if strings.HasSuffix(pathOnly, ext) {
					return true
				}
			}
			fallback = href

			return false
		})
		if fallback != "" {
			return fallback
		}
	}

	return ""
}

// normalizeExpanded fixes up known interstitial destinations, currently the
// Walmart /blocked page which carries the real path base64url-encoded in its
// url parameter.
func normalizeExpanded(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	host := strings.ToLower(u.Host)
	if !strings.Contains(host, "walmart.com") || !strings.HasPrefix(u.Path, "/blocked") {
		return rawURL
	}

	encoded := u.Query().Get("url")
	if encoded == "" {
		return rawURL
	}
	decoded := strings.TrimSpace(urlkit.DecodeBase64URL(encoded))
	switch {
	case urlkit.IsHTTP(decoded):
		return decoded
	case strings.HasPrefix(decoded, "/"):
		scheme := u.Scheme
		if scheme == "" {
			scheme = "https"
		}

		return scheme + "://" + u.Host + decoded
	default:
		return rawURL
	}
}

// unwrapParams maps hosts whose destination hides in a query parameter to
// the parameters worth checking, in preference order.
var unwrapParams = map[string][]string{ //nolint: gochecknoglobals
	"fkd.deals":            {"product"},
	"rd.bizrate.com":       {"t", "url", "u"},
	"go.skimresources.com": {"url", "u", "dest"},
	"dealsabove.com":       {"l", "url", "u"},
	"www.dealsabove.com":   {"l", "url", "u"},
	"joylink.io":           {"url", "u", "target", "dest"},
}

// Unwrap extracts the real destination from a known query-parameter redirect
// without any network cost. The second return reports whether an unwrap
// happened.
func Unwrap(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Host)
	q := u.Query()

	params, ok := unwrapParams[host]
	if !ok && strings.HasSuffix(host, "linksynergy.com") {
		// Rakuten deep links carry the destination under murl
		params = []string{"murl"}
	}

	for _, p := range params {
		cand := strings.TrimSpace(q.Get(p))
		if cand == "" {
			continue
		}
		// nested values are URL-encoded once or more
		cand = urlkit.MultiUnescape(cand)
		if urlkit.IsHTTP(cand) {
			return cand, true
		}
	}

	return "", false
}
