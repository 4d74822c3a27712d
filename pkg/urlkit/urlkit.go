// Package urlkit holds small URL manipulation helpers shared by the resolver
// and the monetizers.
package urlkit

import (
	"encoding/base64"
	"net/url"
	"strings"
)

// Host returns the lowercased host of rawURL, or "" if it cannot be parsed.
func Host(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}

	return strings.ToLower(u.Host)
}

// IsHTTP reports whether s starts with an http or https scheme.
func IsHTTP(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// NormalizeInput turns a user-provided URL-ish string into a URL. Chat
// mentions (@everyone, <@123>, <#456>) are not URLs and yield "", so callers
// never manufacture links like https://@everyone. A surrounding <...>
// no-preview wrapper is stripped, and bare domains get an https scheme.
func NormalizeInput(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	low := strings.ToLower(s)
	if strings.HasPrefix(low, "@") ||
		strings.HasPrefix(low, "<@") ||
		strings.HasPrefix(low, "<#") {
		return ""
	}

	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") && len(s) > 2 {
		if inner := strings.TrimSpace(s[1 : len(s)-1]); inner != "" {
			s = inner
		}
	}

	if IsHTTP(s) {
		return s
	}

	return "https://" + s
}

// AddQueryParam sets key=value on rawURL, preserving all other query
// parameters. On parse failure the input is returned unchanged.
func AddQueryParam(rawURL, key, value string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return rawURL
	}

	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()

	return u.String()
}

// trackingParams are query parameters dropped by StripTracking so a URL we
// could not monetize does not keep crediting someone else's tracking.
var trackingParams = map[string]struct{}{ //nolint: gochecknoglobals
	"irgwc":       {},
	"clickid":     {},
	"click_id":    {},
	"irclickid":   {},
	"irclick":     {},
	"ecid":        {},
	"afsrc":       {},
	"affid":       {},
	"affiliate":   {},
	"aff":         {},
	"cid":         {},
	"source":      {},
	"ref":         {},
	"refid":       {},
	"ref_id":      {},
	"fbclid":      {},
	"gclid":       {},
	"yclid":       {},
	"mc_eid":      {},
	"mc_cid":      {},
	"spm":         {},
	"sc_channel":  {},
	"sc_campaign": {},
	"sc_medium":   {},
	"sc_content":  {},
	"sc_outcome":  {},
}

// StripTracking removes utm_* and known affiliate/campaign query parameters
// from rawURL and drops the fragment (often tracking too, e.g. "#code=...").
func StripTracking(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return rawURL
	}

	q := u.Query()
	for k := range q {
		kl := strings.ToLower(strings.TrimSpace(k))
		if kl == "" || strings.HasPrefix(kl, "utm_") {
			q.Del(k)

			continue
		}
		if _, deny := trackingParams[kl]; deny {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()
	u.Fragment = ""

	return u.String()
}

// DecodeBase64URL decodes a base64url string, tolerating missing padding.
// Returns "" when the input does not decode to valid text.
func DecodeBase64URL(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return ""
	}
	if pad := len(t) % 4; pad != 0 {
		t += strings.Repeat("=", 4-pad)
	}
	b, err := base64.URLEncoding.DecodeString(t)
	if err != nil {
		return ""
	}

	return string(b)
}

// DecodeBase64 decodes a standard base64 string, tolerating missing padding.
// Some bot-challenge pages embed the destination URL this way under b=.
func DecodeBase64(s string) string {
	t := strings.TrimSpace(s)
	if t == "" {
		return ""
	}
	if pad := len(t) % 4; pad != 0 {
		t += strings.Repeat("=", 4-pad)
	}
	b, err := base64.StdEncoding.DecodeString(t)
	if err != nil {
		return ""
	}

	return string(b)
}

// MultiUnescape percent-decodes s up to three times, for destinations that
// arrive double- or triple-encoded inside redirector query strings.
func MultiUnescape(s string) string {
	cand := s
	for range 3 {
		next, err := url.QueryUnescape(cand)
		if err != nil || next == cand {
			break
		}
		cand = next
	}

	return cand
}
