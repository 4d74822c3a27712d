package rewrite

import (
	"context"
	"strings"

	"linkmint/pkg/amazon"
	"linkmint/pkg/domain"
	"linkmint/pkg/logger"
	"linkmint/pkg/urlkit"

	"go.uber.org/zap"
)

// Field is a named value inside structured content.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Structured is content with addressable parts, the shape of a chat embed.
// URL is a plain link field that cannot carry markdown.
type Structured struct {
	Title       string  `json:"title,omitempty"`
	Description string  `json:"description,omitempty"`
	URL         string  `json:"url,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
}

// RewriteText monetizes every URL found in text. It returns the rewritten
// text, whether any span was actually altered and a notes map keyed by
// original URL explaining what happened to each.
func (e *Engine) RewriteText(ctx context.Context, text string) (string, bool, map[string]string) {
	spans := Extract(text)
	if len(spans) == 0 {
		return text, false, nil
	}

	results := e.ComputeRewrites(ctx, Candidates(spans))
	byKey := make(map[string]domain.MonetizationResult, len(results))
	notes := make(map[string]string, len(results))
	for u, res := range results {
		byKey[strings.ToLower(u)] = res
		notes[u] = res.Note
	}

	out := text
	changed := false

	// highest offset first so substitutions never shift pending spans
	for i := len(spans) - 1; i >= 0; i-- {
		span := spans[i]
		res, ok := byKey[strings.ToLower(span.Text)]
		if !ok || res.Replacement == "" || res.Replacement == span.Text {
			continue
		}

		rep := res.Replacement
		isMarkdown := strings.HasPrefix(rep, "[")

		// a span that is the display label of a markdown link stays as is,
		// the target span carries the monetization
		if inMarkdownLabel(text, span.Start, span.End) {
			continue
		}
		// inside an existing [label](target) only the inner URL changes,
		// markdown never nests inside markdown
		if isMarkdown && inMarkdownTarget(text, span.Start, span.End) {
			rep = markdownTarget(rep)
			isMarkdown = false
		}

		wrapped := out[span.Start] == '<'
		if wrapped && !isMarkdown && !strings.HasPrefix(rep, "<") {
			rep = "<" + rep + ">"
		}

		if rep == out[span.Start:span.End] {
			continue
		}

		out = out[:span.Start] + rep + out[span.End:]
		changed = true
		notes[span.Text] = res.Note + " -> " + rep
	}

	if changed {
		logger.Debug(ctx, "rewrote text", zap.Int("spans", len(spans)))
	}

	return out, changed, notes
}

// RewriteStructured monetizes the text parts of structured content. The plain
// URL field only ever takes a tagged Amazon URL because link fields cannot
// render markdown; non-Amazon link fields pass through untouched.
func (e *Engine) RewriteStructured(ctx context.Context, s Structured) (Structured, bool, map[string]string) {
	notes := make(map[string]string)
	changed := false

	rewrite := func(text string) string {
		out, ch, ns := e.RewriteText(ctx, text)
		for u, n := range ns {
			notes[u] = n
		}
		if ch {
			changed = true
		}

		return out
	}

	s.Title = rewrite(s.Title)
	s.Description = rewrite(s.Description)
	for i := range s.Fields {
		s.Fields[i].Name = rewrite(s.Fields[i].Name)
		s.Fields[i].Value = rewrite(s.Fields[i].Value)
	}

	if u := urlkit.NormalizeInput(s.URL); u != "" && amazon.IsAmazonURL(u) {
		if tagged, err := e.tagger.AffiliateURL(u); err == nil && tagged != s.URL {
			notes[s.URL] = "amazon affiliate (plain field) -> " + tagged
			s.URL = tagged
			changed = true
		}
	}

	return s, changed, notes
}

// inMarkdownTarget reports whether text[start:end] is the target of a
// markdown link, i.e. directly preceded by "](" and followed by ")". Widened
// spans already include their angle brackets so no extra skip is needed.
func inMarkdownTarget(text string, start, end int) bool {
	return start >= 2 && text[start-1] == '(' && text[start-2] == ']' &&
		end < len(text) && text[end] == ')'
}

// inMarkdownLabel reports whether text[start:end] is the display label of a
// markdown link, i.e. wrapped in "[...]" followed by "(".
func inMarkdownLabel(text string, start, end int) bool {
	return start >= 1 && text[start-1] == '[' &&
		end+1 < len(text) && text[end] == ']' && text[end+1] == '('
}

// markdownTarget extracts the destination URL out of a "[label](<url>)"
// replacement. Anything that does not look like markdown passes through.
func markdownTarget(rep string) string {
	open := strings.LastIndex(rep, "](")
	if !strings.HasPrefix(rep, "[") || open < 0 || !strings.HasSuffix(rep, ")") {
		return rep
	}

	target := rep[open+2 : len(rep)-1]
	target = strings.TrimPrefix(target, "<")
	target = strings.TrimSuffix(target, ">")

	return target
}
