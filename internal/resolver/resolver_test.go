package resolver

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"linkmint/pkg/domain"

	"github.com/stretchr/testify/require"
)

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{
			name: "fkd product param",
			in:   "https://fkd.deals/x?product=https%3A%2F%2Fwww.amazon.com%2Fdp%2FB0ABCDEFGH",
			want: "https://www.amazon.com/dp/B0ABCDEFGH",
			ok:   true,
		},
		{
			name: "skimresources url param",
			in:   "https://go.skimresources.com?id=1&url=https%3A%2F%2Fwww.lowes.com%2Fpd%2F123",
			want: "https://www.lowes.com/pd/123",
			ok:   true,
		},
		{
			name: "dealsabove l param",
			in:   "https://www.dealsabove.com/product-redirect?l=https%3A%2F%2Fwww.amazon.com%2Fdp%2FB0BGW6DSLW",
			want: "https://www.amazon.com/dp/B0BGW6DSLW",
			ok:   true,
		},
		{
			name: "linksynergy murl",
			in:   "https://click.linksynergy.com/deeplink?id=x&murl=https%3A%2F%2Fwww.urbanoutfitters.com%2Fshop%2Fthing",
			want: "https://www.urbanoutfitters.com/shop/thing",
			ok:   true,
		},
		{
			name: "unknown host",
			in:   "https://example.com/?url=https%3A%2F%2Felsewhere.com",
			want: "",
			ok:   false,
		},
		{
			name: "known host without destination",
			in:   "https://joylink.io/abc",
			want: "",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Unwrap(tt.in)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestUnwrap_NestedEncoding(t *testing.T) {
	inner := "https://www.lowes.com/pd/thing"
	once := url.QueryEscape(inner)
	twice := url.QueryEscape(once)

	got, ok := Unwrap("https://rd.bizrate.com/rd2?t=" + twice)
	require.True(t, ok)
	require.Equal(t, inner, got)
}

func TestNormalizeExpanded_WalmartBlocked(t *testing.T) {
	full := base64.URLEncoding.EncodeToString([]byte("https://www.walmart.com/ip/12345"))
	got := normalizeExpanded("https://www.walmart.com/blocked?url=" + full)
	require.Equal(t, "https://www.walmart.com/ip/12345", got)

	rel := base64.URLEncoding.EncodeToString([]byte("/ip/12345"))
	got = normalizeExpanded("https://www.walmart.com/blocked?url=" + rel)
	require.Equal(t, "https://www.walmart.com/ip/12345", got)

	// anything else passes through
	other := "https://www.target.com/p/thing"
	require.Equal(t, other, normalizeExpanded(other))
	require.Equal(t, "https://www.walmart.com/ip/999", normalizeExpanded("https://www.walmart.com/ip/999"))
}

func TestExtractOutboundURL(t *testing.T) {
	t.Run("base64 challenge param", func(t *testing.T) {
		enc := base64.StdEncoding.EncodeToString([]byte("https://www.urbanoutfitters.com/shop/some-long-product-name-here"))
		html := `<html><script>window.loc="/challenge?b=` + enc + `"</script></html>`
		require.Equal(t, "https://www.urbanoutfitters.com/shop/some-long-product-name-here", extractOutboundURL(html))
	})

	t.Run("deal button anchor wins", func(t *testing.T) {
		html := `<html><body>
			<a href="https://tracker.example.com/x">something</a>
			<a href="https://saveyourdeals.com/abc123">Go to Deal</a>
		</body></html>`
		require.Equal(t, "https://saveyourdeals.com/abc123", extractOutboundURL(html))
	})

	t.Run("merchant pattern", func(t *testing.T) {
		html := `<p>grab it at https://www.amazon.com/dp/B0ABCDEFGH?th=1 now</p>`
		require.Equal(t, "https://www.amazon.com/dp/B0ABCDEFGH?th=1", extractOutboundURL(html))
	})

	t.Run("fallback anchor skips analytics and assets", func(t *testing.T) {
		html := `<html><body>
			<a href="https://www.googletagmanager.com/gtag.js">gtm</a>
			<a href="https://cdn.example.com/style.css">css</a>
			<a href="https://www.lowes.com/pd/123">deal</a>
		</body></html>`
		require.Equal(t, "https://www.lowes.com/pd/123", extractOutboundURL(html))
	})

	t.Run("nothing to find", func(t *testing.T) {
		require.Empty(t, extractOutboundURL("<html><body>no links</body></html>"))
		require.Empty(t, extractOutboundURL(""))
	})
}

func newResolver(serverHost string, hub bool) *Resolver {
	opts := Options{
		Enabled:      true,
		MaxRedirects: 8,
		Timeout:      2 * time.Second,
		UserAgent:    "test-agent",
		ExtraHosts:   []string{serverHost},
	}
	if hub {
		opts.HubHosts = []string{serverHost}
	}

	return New(opts)
}

func TestResolve_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusFound)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	r := newResolver(u.Host, false)

	res := r.Resolve(context.Background(), srv.URL+"/short")
	require.Equal(t, srv.URL+"/final", res.Resolved)
	require.Equal(t, domain.ResolveHeadFollow, res.Method)
	require.Equal(t, srv.URL+"/short", res.Original)
}

func TestResolve_FallsBackToGet(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/short", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)

			return
		}
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	r := newResolver(u.Host, false)

	res := r.Resolve(context.Background(), srv.URL+"/short")
	// HEAD got a 405 terminal response without redirecting, which still
	// counts as a successful attempt landing on the same URL, so the GET
	// fallback result is what surfaces
	require.Equal(t, srv.URL+"/final", res.Resolved)
}

func TestResolve_HubScan(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/hub", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><a href="https://www.amazon.com/dp/B0ABCDEFGH">Go to Deal</a></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	u, _ := url.Parse(srv.URL)
	r := newResolver(u.Host, true)

	res := r.Resolve(context.Background(), srv.URL+"/hub")
	require.Equal(t, "https://www.amazon.com/dp/B0ABCDEFGH", res.Resolved)
	require.Equal(t, domain.ResolveHTMLScrape, res.Method)
}

func TestResolve_UnreachableHostDegrades(t *testing.T) {
	r := New(Options{
		Enabled:      true,
		MaxRedirects: 2,
		Timeout:      200 * time.Millisecond,
		ExtraHosts:   []string{"127.0.0.1:1"},
	})

	const in = "http://127.0.0.1:1/short"
	res := r.Resolve(context.Background(), in)
	require.Equal(t, in, res.Resolved)
	require.Equal(t, domain.ResolveNone, res.Method)
}

func TestResolve_DisabledSkipsNetwork(t *testing.T) {
	r := New(Options{Enabled: false})

	res := r.Resolve(context.Background(), "https://bit.ly/xyz")
	require.Equal(t, "https://bit.ly/xyz", res.Resolved)
	require.Equal(t, domain.ResolveNone, res.Method)
}

func TestResolve_UnknownHostSkipsNetwork(t *testing.T) {
	r := New(Options{Enabled: true, Timeout: time.Second})

	// not in any allowlist, so no request is issued at all
	res := r.Resolve(context.Background(), "https://www.example-merchant.com/product/1")
	require.Equal(t, "https://www.example-merchant.com/product/1", res.Resolved)
	require.Equal(t, domain.ResolveNone, res.Method)
}

func TestResolve_UnwrapBeforeNetwork(t *testing.T) {
	r := New(Options{Enabled: false})

	res := r.Resolve(context.Background(),
		"https://fkd.deals/x?product=https%3A%2F%2Fwww.amazon.com%2Fdp%2FB0ABCDEFGH")
	require.Equal(t, "https://www.amazon.com/dp/B0ABCDEFGH", res.Resolved)
	require.Equal(t, domain.ResolveUnwrappedParam, res.Method)
}
