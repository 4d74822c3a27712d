package rewrite

import (
	"strings"

	"linkmint/pkg/amazon"
	"linkmint/pkg/domain"
	"linkmint/pkg/urlkit"
)

// Classify labels a resolved URL by its host and path alone; it performs no
// I/O. Network links are checked first so the network's own short domain is
// never treated as a generic merchant.
func Classify(resolvedURL, networkLinkDomain string) domain.Classification {
	host := urlkit.Host(resolvedURL)

	if networkLinkDomain != "" && strings.Contains(host, strings.ToLower(networkLinkDomain)) {
		return domain.Classification{Kind: domain.KindNetworkLink}
	}
	if amazon.IsAmazonURL(resolvedURL) {
		return domain.Classification{
			Kind: domain.KindAmazon,
			ASIN: amazon.ExtractASIN(resolvedURL),
		}
	}

	return domain.Classification{Kind: domain.KindGeneric}
}
