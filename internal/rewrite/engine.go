// Package rewrite is the heart of the engine: it extracts URLs from text,
// resolves and classifies them, picks a monetization strategy per URL and
// substitutes the replacements back into the text without breaking markdown
// or no-preview wrappers.
package rewrite

import (
	"context"
	"errors"
	"strings"
	"sync"

	"linkmint/pkg/affiliate"
	"linkmint/pkg/amazon"
	"linkmint/pkg/cache"
	"linkmint/pkg/domain"
	"linkmint/pkg/logger"
	"linkmint/pkg/metrics"
	"linkmint/pkg/serrors"
	"linkmint/pkg/urlkit"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options configure the Engine.
type Options struct {
	// NetworkLinkDomain is the affiliate network's own short-link domain.
	NetworkLinkDomain string
	// MaskEnabled turns tagged Amazon URLs into masked markdown links.
	MaskEnabled bool
	// MaskPrefix is the short-link-looking display host.
	MaskPrefix string
	// MaskSlugLength is the random slug length of masked links.
	MaskSlugLength int
	// Marketplace keys the enrichment cache alongside the ASIN.
	Marketplace string
	// Workers bounds concurrent URL resolutions per batch.
	Workers int
}

// Deps are the engine's collaborators. Linker, Enricher and Cache are
// optional; a nil value disables the corresponding capability and the engine
// degrades to the best remaining strategy.
type Deps struct {
	Resolver Resolver
	Linker   affiliate.Linker
	Enricher Enricher
	Cache    *cache.Enrichment
}

// Engine turns URLs found in content into monetized replacements.
type Engine struct {
	deps   Deps
	tagger amazon.Tagger
	opts   Options
}

// NewEngine constructs an Engine.
func NewEngine(deps Deps, tagger amazon.Tagger, opts Options) *Engine {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}

	return &Engine{deps: deps, tagger: tagger, opts: opts}
}

// ComputeRewrites resolves and monetizes each URL and returns one result per
// input, keyed by the original URL. Results with an empty Replacement (or one
// equal to the original) mean "leave this span alone"; the note always says
// why. An empty input yields an empty map, never an error.
func (e *Engine) ComputeRewrites(ctx context.Context, urls []string) map[string]domain.MonetizationResult {
	results := make(map[string]domain.MonetizationResult)

	var candidates []string
	normalized := make(map[string]string)
	seen := make(map[string]struct{})
	for _, raw := range urls {
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(u)]; ok {
			continue
		}
		seen[strings.ToLower(u)] = struct{}{}

		nu := urlkit.NormalizeInput(u)
		if nu == "" {
			results[u] = domain.MonetizationResult{Strategy: domain.StrategyUnchanged, Note: "not a url"}

			continue
		}
		normalized[u] = nu
		candidates = append(candidates, u)
	}
	if len(candidates) == 0 {
		return results
	}

	// resolve concurrently; monetization stays sequential because affiliate
	// calls are globally paced anyway
	resolved := make(map[string]domain.ResolvedURL, len(candidates))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for _, u := range candidates {
		g.Go(func() error {
			r := e.deps.Resolver.Resolve(gctx, normalized[u])
			mu.Lock()
			resolved[u] = r
			mu.Unlock()

			return nil
		})
	}
	_ = g.Wait()

	// masks stay stable per destination within one batch
	maskCache := make(map[string]string)

	for _, u := range candidates {
		res := e.monetize(ctx, normalized[u], resolved[u], maskCache)
		metrics.MonetizationTotal.WithLabelValues(string(res.Strategy)).Inc()
		results[u] = res
	}

	return results
}

// monetize picks the strategy for one resolved URL.
func (e *Engine) monetize(
	ctx context.Context,
	raw string,
	resolved domain.ResolvedURL,
	maskCache map[string]string) domain.MonetizationResult {
	target := strings.TrimSpace(resolved.Resolved)
	if target == "" {
		target = raw
	}

	rawKind := Classify(raw, e.opts.NetworkLinkDomain).Kind
	cls := Classify(target, e.opts.NetworkLinkDomain)

	// Links that already belong to the network are re-wrapped so forwarded
	// posts credit our account instead of the original poster's.
	if rawKind == domain.KindNetworkLink {
		return e.rewrapNetworkLink(ctx, raw, target, cls, maskCache)
	}

	// A URL that merely resolves to a network link keeps that destination.
	if cls.Kind == domain.KindNetworkLink && target != raw {
		return domain.MonetizationResult{
			Replacement: target,
			Strategy:    domain.StrategyExpandedOnly,
			Note:        "resolves to network link",
		}
	}

	if cls.Kind == domain.KindAmazon {
		return e.monetizeAmazon(ctx, target, cls, maskCache, "amazon affiliate")
	}

	return e.monetizeGeneric(ctx, raw, target)
}

func (e *Engine) rewrapNetworkLink(
	ctx context.Context,
	raw, target string,
	cls domain.Classification,
	maskCache map[string]string) domain.MonetizationResult {
	// prefer minting against the expanded destination
	if target != raw && cls.Kind != domain.KindNetworkLink {
		if link, err := e.mint(ctx, target); err == nil && link != raw {
			return domain.MonetizationResult{
				Replacement: link,
				Strategy:    domain.StrategyNetworkAffiliate,
				Note:        "rewrapped network link",
			}
		} else if cls.Kind == domain.KindAmazon {
			// network down is no reason to keep someone else's link when the
			// destination can carry our Amazon tag instead
			res := e.monetizeAmazon(ctx, target, cls, maskCache,
				"network rewrap failed, fell back to amazon affiliate")
			if res.Replacement != "" {
				return res
			}
		} else {
			return domain.MonetizationResult{
				Replacement: urlkit.StripTracking(target),
				Strategy:    domain.StrategyExpandedOnly,
				Note:        rewrapFailureNote(err),
			}
		}
	}

	// the network's pages do not always redirect cleanly; minting against
	// the link itself still moves attribution to our account
	if link, err := e.mint(ctx, raw); err == nil && link != raw {
		return domain.MonetizationResult{
			Replacement: link,
			Strategy:    domain.StrategyNetworkAffiliate,
			Note:        "rewrapped network link (direct)",
		}
	} else {
		return domain.MonetizationResult{
			Strategy: domain.StrategyUnchanged,
			Note:     rewrapFailureNote(err),
		}
	}
}

func rewrapFailureNote(err error) string {
	if errors.Is(err, serrors.ErrBadRequest) {
		return "merchant not supported by network; used expanded destination"
	}

	return "network rewrap failed: " + shortErr(err)
}

func (e *Engine) monetizeAmazon(
	ctx context.Context,
	target string,
	cls domain.Classification,
	maskCache map[string]string,
	note string) domain.MonetizationResult {
	affiliateURL, err := e.tagger.AffiliateURL(target)
	if err != nil {
		return domain.MonetizationResult{
			Strategy: domain.StrategyUnchanged,
			Note:     "amazon link but no asin",
		}
	}

	facts := e.enrich(ctx, cls.ASIN, &note)

	if !e.opts.MaskEnabled {
		return domain.MonetizationResult{
			Replacement: affiliateURL,
			Strategy:    domain.StrategyAmazonAffiliate,
			Note:        note,
			Facts:       facts,
		}
	}

	masked, ok := maskCache[affiliateURL]
	if !ok {
		masked = amazon.MaskedLink(e.opts.MaskPrefix, affiliateURL, e.opts.MaskSlugLength)
		maskCache[affiliateURL] = masked
	}

	return domain.MonetizationResult{
		Replacement: masked,
		Strategy:    domain.StrategyAmazonAffiliateMasked,
		Note:        note,
		Facts:       facts,
	}
}

// enrich fetches product facts through the cache. Failures are soft: they
// annotate the note and never block tag-only monetization.
func (e *Engine) enrich(ctx context.Context, asin string, note *string) *domain.ProductFacts {
	if asin == "" || e.deps.Enricher == nil || !e.deps.Enricher.Enabled() {
		return nil
	}

	if e.deps.Cache != nil {
		if facts := e.deps.Cache.Get(ctx, e.opts.Marketplace, asin); facts != nil {
			return facts
		}
	}

	facts, err := e.deps.Enricher.GetItems(ctx, asin)
	if err != nil {
		logger.Debug(ctx, "enrichment failed", zap.String("asin", asin), zap.Error(err))
		*note += " (enrichment failed: " + shortErr(err) + ")"

		return nil
	}
	if e.deps.Cache != nil {
		e.deps.Cache.Set(ctx, e.opts.Marketplace, asin, facts)
	}

	return facts
}

func (e *Engine) monetizeGeneric(ctx context.Context, raw, target string) domain.MonetizationResult {
	link, err := e.mint(ctx, target)
	if err == nil {
		return domain.MonetizationResult{
			Replacement: link,
			Strategy:    domain.StrategyNetworkAffiliate,
			Note:        "network affiliate",
		}
	}

	if target != raw {
		note := "expanded only (" + shortErr(err) + ")"
		if errors.Is(err, serrors.ErrBadRequest) {
			note = "expanded only (merchant not supported by network)"
		}

		return domain.MonetizationResult{
			Replacement: urlkit.StripTracking(target),
			Strategy:    domain.StrategyExpandedOnly,
			Note:        note,
		}
	}

	return domain.MonetizationResult{
		Strategy: domain.StrategyUnchanged,
		Note:     shortErr(err),
	}
}

// mint creates a network affiliate link for target.
func (e *Engine) mint(ctx context.Context, target string) (string, error) {
	if e.deps.Linker == nil {
		return "", serrors.With(serrors.ErrUnauthorized, "affiliate network not configured")
	}

	res, err := e.deps.Linker.CreateLink(ctx, target)
	if err != nil {
		return "", err
	}
	if res.Link == "" || res.Link == target {
		return "", serrors.With(serrors.ErrMalformedResponse, "network returned no link")
	}

	return res.Link, nil
}

const maxNoteLen = 160

func shortErr(err error) string {
	if err == nil {
		return "no change"
	}
	s := strings.Join(strings.Fields(err.Error()), " ")
	if len(s) > maxNoteLen {
		s = s[:maxNoteLen] + "..."
	}

	return s
}
