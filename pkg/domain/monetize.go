package domain

import "time"

// Strategy names how a URL was monetized.
type Strategy string

const (
	// StrategyAmazonAffiliate is a canonical Amazon product URL with our tag.
	StrategyAmazonAffiliate Strategy = "amazon-affiliate"
	// StrategyAmazonAffiliateMasked is the tagged Amazon URL displayed behind
	// a short-link-looking markdown label.
	StrategyAmazonAffiliateMasked Strategy = "amazon-affiliate-masked"
	// StrategyNetworkAffiliate is a short link minted through the affiliate
	// network.
	StrategyNetworkAffiliate Strategy = "network-affiliate"
	// StrategyExpandedOnly means monetization failed but the URL was at least
	// expanded to its real destination (with tracking params stripped).
	StrategyExpandedOnly Strategy = "expanded-only"
	// StrategyUnchanged means the URL was left as-is.
	StrategyUnchanged Strategy = "unchanged"
)

// MonetizationResult is the per-span outcome of a rewrite. Note is always set
// so callers can log or assert on the reason for the chosen strategy.
type MonetizationResult struct {
	Replacement string   `json:"replacement"`
	Strategy    Strategy `json:"strategy"`
	Note        string   `json:"note"`
	// Facts carries product display data when enrichment succeeded.
	Facts *ProductFacts `json:"facts,omitempty"`
}

// ProductFacts is the display data returned by the product enrichment call.
// All fields are best-effort; an empty value means the API did not return it.
type ProductFacts struct {
	ASIN     string `json:"asin"`
	Title    string `json:"title,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	// Price is the first listing's display amount, e.g. "$39.99".
	Price string `json:"price,omitempty"`
	// CategoryPath is the deepest browse-node ancestor chain joined with " > ".
	CategoryPath string `json:"categoryPath,omitempty"`
}

// Session tracks the freshness of the affiliate network credentials. The
// artifact itself (cookie header or bearer token) lives in the network client
// and is never logged verbatim.
type Session struct {
	LastValidatedAt time.Time `json:"lastValidatedAt"`
	Valid           bool      `json:"valid"`
}
