package domain

// URLSpan is a URL substring found in a source text together with its
// position. Offsets are byte offsets into the source string and satisfy
// 0 <= Start < End <= len(source). Spans produced by extraction never overlap.
type URLSpan struct {
	// Text is the matched URL, trimmed of trailing punctuation. When the
	// match was wrapped in angle brackets the wrapper is part of the span
	// (Start/End include it) but not part of Text.
	Text string `json:"text"`
	// Start is the byte offset of the first character of the span.
	Start int `json:"start"`
	// End is the byte offset one past the last character of the span.
	End int `json:"end"`
}

// ResolveMethod identifies which resolver stage produced the final URL.
type ResolveMethod string

const (
	// ResolveUnwrappedParam means the destination was embedded in a query
	// parameter of a known redirector host; no network call was made.
	ResolveUnwrappedParam ResolveMethod = "unwrapped-param"
	// ResolveHeadFollow means a HEAD request followed redirects to the end.
	ResolveHeadFollow ResolveMethod = "head-follow"
	// ResolveGetFollow means a GET request followed redirects to the end.
	ResolveGetFollow ResolveMethod = "get-follow"
	// ResolveHTMLScrape means the destination was scraped out of a deal-hub
	// page body.
	ResolveHTMLScrape ResolveMethod = "html-scrape"
	// ResolveNone means no stage applied and the URL was returned unchanged.
	ResolveNone ResolveMethod = "none"
)

// ResolvedURL is the outcome of one resolution attempt. It is immutable once
// produced.
type ResolvedURL struct {
	Original string        `json:"original"`
	Resolved string        `json:"resolved"`
	Hops     int           `json:"hops"`
	Method   ResolveMethod `json:"method"`
}

// LinkKind labels what a resolved URL points at.
type LinkKind string

const (
	// KindAmazon is an Amazon retail URL (any marketplace, or the short domain).
	KindAmazon LinkKind = "amazon"
	// KindNetworkLink is a link that already belongs to the affiliate network.
	KindNetworkLink LinkKind = "network-link"
	// KindGeneric is any other merchant or page.
	KindGeneric LinkKind = "generic"
)

// Classification is derived purely from a resolved URL's host and path.
type Classification struct {
	Kind LinkKind `json:"kind"`
	// ASIN is set only for Amazon URLs from which a product identifier could
	// be extracted. An Amazon kind with an empty ASIN is a distinct,
	// reportable outcome.
	ASIN string `json:"asin,omitempty"`
}
