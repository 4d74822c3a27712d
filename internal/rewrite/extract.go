package rewrite

import (
	"regexp"
	"strings"

	"linkmint/pkg/domain"
)

// urlRe matches scheme://host forms and bare host.tld/path forms. Bare
// domains need at least one dot and a 2+ letter TLD so ordinary words never
// match.
var urlRe = regexp.MustCompile(`(?i)((?:https?://)?(?:www\.)?[a-z0-9][a-z0-9.-]*\.[a-z]{2,}(?:/[^\s<>()]*)?)`)

// trailingPunct is trimmed off matches without corrupting span offsets.
const trailingPunct = ".,);]}>"

// Extract finds URL substrings in text together with their byte offsets.
// A match immediately wrapped in <...> widens to include the brackets so the
// wrapper can be preserved or dropped deliberately later. Extraction never
// fails; malformed candidates are simply not matched.
func Extract(text string) []domain.URLSpan {
	var out []domain.URLSpan

	for _, m := range urlRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[2], m[3]
		raw := text[start:end]

		for raw != "" && strings.ContainsRune(trailingPunct, rune(raw[len(raw)-1])) {
			raw = raw[:len(raw)-1]
			end--
		}
		raw = strings.TrimSpace(raw)
		if raw == "" || end <= start {
			continue
		}

		span := domain.URLSpan{Text: raw, Start: start, End: end}
		if start > 0 && end < len(text) && text[start-1] == '<' && text[end] == '>' {
			span.Start--
			span.End++
		}
		out = append(out, span)
	}

	return out
}

// Candidates returns the distinct URLs of the spans, de-duplicated
// case-insensitively while preserving first-seen order.
func Candidates(spans []domain.URLSpan) []string {
	seen := make(map[string]struct{}, len(spans))
	out := make([]string, 0, len(spans))

	for _, s := range spans {
		key := strings.ToLower(s.Text)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s.Text)
	}

	return out
}
