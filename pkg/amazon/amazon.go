// Package amazon recognizes Amazon retail URLs, extracts product identifiers
// and builds tagged (and optionally masked) affiliate URLs. Everything here is
// pure string work; the signed product-data call lives in the paapi
// subpackage.
package amazon

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"linkmint/pkg/serrors"
	"linkmint/pkg/urlkit"
)

// countrySuffixes are Amazon marketplace host suffixes recognized next to the
// generic "amazon." substring check.
var countrySuffixes = []string{ //nolint: gochecknoglobals
	"amazon.com",
	"amazon.ca",
	"amazon.co.uk",
	"amazon.de",
	"amazon.fr",
	"amazon.it",
	"amazon.es",
	"amazon.co.jp",
}

// shortDomain is Amazon's own link shortener.
const shortDomain = "amzn.to"

// IsAmazonURL reports whether rawURL points at an Amazon marketplace or the
// Amazon short domain.
func IsAmazonURL(rawURL string) bool {
	host := urlkit.Host(rawURL)
	if host == "" {
		return false
	}
	if strings.Contains(host, "amazon.") || strings.Contains(host, shortDomain) {
		return true
	}
	for _, suffix := range countrySuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}

	return false
}

var (
	dpRe        = regexp.MustCompile(`(?i)/dp/([A-Z0-9]{10})`)
	gpProductRe = regexp.MustCompile(`(?i)/gp/product/([A-Z0-9]{10})`)
	bareASINRe  = regexp.MustCompile(`\b([A-Z0-9]{10})\b`)
)

// ExtractASIN pulls a 10-character product identifier out of a URL or text,
// trying /dp/, /gp/product/ and finally a bare token containing a digit. The
// result is uppercased; "" means no match.
func ExtractASIN(textOrURL string) string {
	if textOrURL == "" {
		return ""
	}
	if m := dpRe.FindStringSubmatch(textOrURL); m != nil {
		return strings.ToUpper(m[1])
	}
	if m := gpProductRe.FindStringSubmatch(textOrURL); m != nil {
		return strings.ToUpper(m[1])
	}
	// bare tokens need at least one digit; plain ten-letter words like
	// "HEADPHONES" are not product identifiers
	for _, m := range bareASINRe.FindAllStringSubmatch(strings.ToUpper(textOrURL), -1) {
		if strings.ContainsAny(m[1], "0123456789") {
			return m[1]
		}
	}

	return ""
}

// Tagger builds tagged Amazon URLs for a configured associate account.
type Tagger struct {
	// AssociateTag is appended as the tag query parameter. Empty means URLs
	// are canonicalized but left untagged.
	AssociateTag string
	// MarketplaceBase is the origin used for rebuilt product URLs; defaults
	// to https://www.amazon.com when empty.
	MarketplaceBase string
}

// defaultMarketplace is used when no marketplace base is configured.
const defaultMarketplace = "https://www.amazon.com"

// AffiliateURL canonicalizes rawURL to {marketplace}/dp/{ASIN} and appends the
// associate tag, preserving existing query parameters on URLs that keep their
// original form. When no ASIN is present, real Amazon hosts (search and promo
// pages) are still tagged in place; short links must be expanded first and
// yield ErrNoASINFound.
func (t Tagger) AffiliateURL(rawURL string) (string, error) {
	u := strings.TrimSpace(rawURL)
	if u == "" {
		return "", serrors.With(serrors.ErrBadRequest, "empty URL")
	}

	asin := ExtractASIN(u)
	if asin == "" {
		host := urlkit.Host(u)
		if t.AssociateTag != "" && strings.Contains(host, "amazon.") {
			return urlkit.AddQueryParam(u, "tag", t.AssociateTag), nil
		}

		return "", serrors.With(serrors.ErrNoASINFound, "no ASIN in %s", host)
	}

	base := strings.TrimRight(t.MarketplaceBase, "/")
	if base == "" {
		base = defaultMarketplace
	}
	canonical := fmt.Sprintf("%s/dp/%s", base, asin)
	if t.AssociateTag == "" {
		return canonical, nil
	}

	return urlkit.AddQueryParam(canonical, "tag", t.AssociateTag), nil
}

// slugAlphabet is the character set for masked-link slugs.
const slugAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// MaskSlug returns a random slug of the requested length, clamped to 4..20.
func MaskSlug(length int) string {
	n := length
	if n < 4 {
		n = 4
	}
	if n > 20 {
		n = 20
	}

	var b strings.Builder
	for range n {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(slugAlphabet))))
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken;
			// fall back to a fixed character rather than a short slug.
			b.WriteByte('x')

			continue
		}
		b.WriteByte(slugAlphabet[idx.Int64()])
	}

	return b.String()
}

// MaskedLink renders targetURL as a markdown link whose label looks like a
// short link ("[amzn.to/ab12cd3](<target>)"). The angle brackets suppress the
// host platform's preview of the real destination.
func MaskedLink(displayPrefix, targetURL string, slugLength int) string {
	prefix := strings.TrimRight(strings.TrimSpace(displayPrefix), "/")
	if prefix == "" {
		prefix = shortDomain
	}

	return fmt.Sprintf("[%s/%s](<%s>)", prefix, MaskSlug(slugLength), strings.TrimSpace(targetURL))
}
