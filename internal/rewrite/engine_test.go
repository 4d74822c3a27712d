package rewrite_test

import (
	"context"
	"regexp"
	"testing"

	"linkmint/internal/rewrite"
	mockrewrite "linkmint/internal/rewrite/mock"
	"linkmint/pkg/affiliate"
	mockaffiliate "linkmint/pkg/affiliate/mock"
	"linkmint/pkg/amazon"
	"linkmint/pkg/domain"
	"linkmint/pkg/serrors"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	networkDomain = "mavely.app.link"
	testTag       = "mytag-20"
	taggedDP      = "https://www.amazon.com/dp/B0ABCDEFGH?tag=mytag-20"
)

// newResolver builds a resolver mock that expands the given URLs and leaves
// everything else untouched.
func newResolver(ctrl *gomock.Controller, hops map[string]string) *mockrewrite.MockResolver {
	resolver := mockrewrite.NewMockResolver(ctrl)
	resolver.EXPECT().Resolve(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, candidate string) domain.ResolvedURL {
			if to, ok := hops[candidate]; ok {
				return domain.ResolvedURL{Original: candidate, Resolved: to, Hops: 1, Method: domain.ResolveHeadFollow}
			}

			return domain.ResolvedURL{Original: candidate, Resolved: candidate, Method: domain.ResolveNone}
		}).AnyTimes()

	return resolver
}

func newEngine(deps rewrite.Deps, opts rewrite.Options) *rewrite.Engine {
	if opts.NetworkLinkDomain == "" {
		opts.NetworkLinkDomain = networkDomain
	}

	return rewrite.NewEngine(deps, amazon.Tagger{AssociateTag: testTag}, opts)
}

func TestComputeRewrites_AmazonAffiliate(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := newResolver(ctrl, map[string]string{
		"https://amzn.to/3xYz": "https://www.amazon.com/Some-Product/dp/B0ABCDEFGH?th=1",
	})

	e := newEngine(rewrite.Deps{Resolver: resolver}, rewrite.Options{})
	results := e.ComputeRewrites(context.Background(), []string{"https://amzn.to/3xYz"})

	res := results["https://amzn.to/3xYz"]
	require.Equal(t, domain.StrategyAmazonAffiliate, res.Strategy)
	require.Equal(t, taggedDP, res.Replacement)
	require.Equal(t, "amazon affiliate", res.Note)
	require.Nil(t, res.Facts)
}

func TestComputeRewrites_AmazonMasked_StablePerDestination(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := newResolver(ctrl, map[string]string{
		"https://amzn.to/aa": "https://www.amazon.com/dp/B0ABCDEFGH",
		"https://amzn.to/bb": "https://www.amazon.com/dp/B0ABCDEFGH?ref=share",
	})

	e := newEngine(rewrite.Deps{Resolver: resolver}, rewrite.Options{
		MaskEnabled:    true,
		MaskPrefix:     "amzn.to",
		MaskSlugLength: 8,
	})
	results := e.ComputeRewrites(context.Background(), []string{"https://amzn.to/aa", "https://amzn.to/bb"})

	first := results["https://amzn.to/aa"]
	second := results["https://amzn.to/bb"]
	require.Equal(t, domain.StrategyAmazonAffiliateMasked, first.Strategy)
	require.Regexp(t,
		regexp.MustCompile(`^\[amzn\.to/[a-z0-9]{8}\]\(<`+regexp.QuoteMeta(taggedDP)+`>\)$`),
		first.Replacement)

	// both short links canonicalize to the same product, so they share a mask
	require.Equal(t, first.Replacement, second.Replacement)
}

func TestComputeRewrites_GenericMinted(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := newResolver(ctrl, nil)
	linker := mockaffiliate.NewMockLinker(ctrl)
	linker.EXPECT().
		CreateLink(gomock.Any(), "https://www.walmart.com/ip/12345").
		Return(affiliate.Result{Link: "https://mavely.app.link/e/xyz", StatusCode: 200}, nil)

	e := newEngine(rewrite.Deps{Resolver: resolver, Linker: linker}, rewrite.Options{})
	results := e.ComputeRewrites(context.Background(), []string{"https://www.walmart.com/ip/12345"})

	res := results["https://www.walmart.com/ip/12345"]
	require.Equal(t, domain.StrategyNetworkAffiliate, res.Strategy)
	require.Equal(t, "https://mavely.app.link/e/xyz", res.Replacement)
}

func TestComputeRewrites_MintFailure_FallsBackToExpanded(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := newResolver(ctrl, map[string]string{
		"https://bit.ly/abc": "https://shop.example.com/item?utm_source=x&id=7",
	})
	linker := mockaffiliate.NewMockLinker(ctrl)
	linker.EXPECT().
		CreateLink(gomock.Any(), gomock.Any()).
		Return(affiliate.Result{}, serrors.With(serrors.ErrRetriesExhausted, "gave up after 3 attempts"))

	e := newEngine(rewrite.Deps{Resolver: resolver, Linker: linker}, rewrite.Options{})
	results := e.ComputeRewrites(context.Background(), []string{"https://bit.ly/abc"})

	res := results["https://bit.ly/abc"]
	require.Equal(t, domain.StrategyExpandedOnly, res.Strategy)
	// tracking junk is stripped off the expanded destination
	require.Equal(t, "https://shop.example.com/item?id=7", res.Replacement)
	require.Contains(t, res.Note, "expanded only")
}

func TestComputeRewrites_MintFailure_NoExpansion_Unchanged(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := newResolver(ctrl, nil)
	linker := mockaffiliate.NewMockLinker(ctrl)
	linker.EXPECT().
		CreateLink(gomock.Any(), gomock.Any()).
		Return(affiliate.Result{}, serrors.With(serrors.ErrBadRequest, "merchant not supported"))

	e := newEngine(rewrite.Deps{Resolver: resolver, Linker: linker}, rewrite.Options{})
	results := e.ComputeRewrites(context.Background(), []string{"https://obscure.example.org/p"})

	res := results["https://obscure.example.org/p"]
	require.Equal(t, domain.StrategyUnchanged, res.Strategy)
	require.Empty(t, res.Replacement)
	require.NotEmpty(t, res.Note)
}

func TestComputeRewrites_NoLinkerConfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := newResolver(ctrl, nil)

	e := newEngine(rewrite.Deps{Resolver: resolver}, rewrite.Options{})
	results := e.ComputeRewrites(context.Background(), []string{"https://shop.example.com/item"})

	res := results["https://shop.example.com/item"]
	require.Equal(t, domain.StrategyUnchanged, res.Strategy)
	require.Contains(t, res.Note, "affiliate network not configured")
}

func TestComputeRewrites_RewrapsNetworkLink(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := newResolver(ctrl, map[string]string{
		"https://mavely.app.link/e/theirs": "https://shop.example.com/thing",
	})
	linker := mockaffiliate.NewMockLinker(ctrl)
	linker.EXPECT().
		CreateLink(gomock.Any(), "https://shop.example.com/thing").
		Return(affiliate.Result{Link: "https://mavely.app.link/e/ours", StatusCode: 200}, nil)

	e := newEngine(rewrite.Deps{Resolver: resolver, Linker: linker}, rewrite.Options{})
	results := e.ComputeRewrites(context.Background(), []string{"https://mavely.app.link/e/theirs"})

	res := results["https://mavely.app.link/e/theirs"]
	require.Equal(t, domain.StrategyNetworkAffiliate, res.Strategy)
	require.Equal(t, "https://mavely.app.link/e/ours", res.Replacement)
	require.Equal(t, "rewrapped network link", res.Note)
}

func TestComputeRewrites_RewrapFallsBackToAmazon(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := newResolver(ctrl, map[string]string{
		"https://mavely.app.link/e/theirs": "https://www.amazon.com/dp/B0ABCDEFGH",
	})
	linker := mockaffiliate.NewMockLinker(ctrl)
	linker.EXPECT().
		CreateLink(gomock.Any(), gomock.Any()).
		Return(affiliate.Result{}, serrors.KindOnly(serrors.ErrRetriesExhausted))

	e := newEngine(rewrite.Deps{Resolver: resolver, Linker: linker}, rewrite.Options{})
	results := e.ComputeRewrites(context.Background(), []string{"https://mavely.app.link/e/theirs"})

	res := results["https://mavely.app.link/e/theirs"]
	require.Equal(t, domain.StrategyAmazonAffiliate, res.Strategy)
	require.Equal(t, taggedDP, res.Replacement)
	require.Contains(t, res.Note, "fell back to amazon affiliate")
}

func TestComputeRewrites_RewrapDirectWhenNoExpansion(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := newResolver(ctrl, nil)
	linker := mockaffiliate.NewMockLinker(ctrl)
	linker.EXPECT().
		CreateLink(gomock.Any(), "https://mavely.app.link/e/theirs").
		Return(affiliate.Result{Link: "https://mavely.app.link/e/ours", StatusCode: 200}, nil)

	e := newEngine(rewrite.Deps{Resolver: resolver, Linker: linker}, rewrite.Options{})
	results := e.ComputeRewrites(context.Background(), []string{"https://mavely.app.link/e/theirs"})

	res := results["https://mavely.app.link/e/theirs"]
	require.Equal(t, domain.StrategyNetworkAffiliate, res.Strategy)
	require.Equal(t, "rewrapped network link (direct)", res.Note)
}

func TestComputeRewrites_ResolvesToNetworkLink(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := newResolver(ctrl, map[string]string{
		"https://bit.ly/abc": "https://mavely.app.link/e/someone",
	})

	e := newEngine(rewrite.Deps{Resolver: resolver}, rewrite.Options{})
	results := e.ComputeRewrites(context.Background(), []string{"https://bit.ly/abc"})

	res := results["https://bit.ly/abc"]
	require.Equal(t, domain.StrategyExpandedOnly, res.Strategy)
	require.Equal(t, "https://mavely.app.link/e/someone", res.Replacement)
	require.Equal(t, "resolves to network link", res.Note)
}

func TestComputeRewrites_MentionIsNotAURL(t *testing.T) {
	ctrl := gomock.NewController(t)
	// the resolver must never be asked about a chat mention
	resolver := mockrewrite.NewMockResolver(ctrl)

	e := newEngine(rewrite.Deps{Resolver: resolver}, rewrite.Options{})
	results := e.ComputeRewrites(context.Background(), []string{"@everyone"})

	res := results["@everyone"]
	require.Equal(t, domain.StrategyUnchanged, res.Strategy)
	require.Equal(t, "not a url", res.Note)
}

func TestComputeRewrites_EnrichmentAttachesFacts(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := newResolver(ctrl, nil)
	enricher := mockrewrite.NewMockEnricher(ctrl)
	enricher.EXPECT().Enabled().Return(true)
	enricher.EXPECT().GetItems(gomock.Any(), "B0ABCDEFGH").Return(&domain.ProductFacts{
		ASIN:  "B0ABCDEFGH",
		Title: "Wireless Headphones",
		Price: "$79.99",
	}, nil)

	e := newEngine(rewrite.Deps{Resolver: resolver, Enricher: enricher}, rewrite.Options{Marketplace: "www.amazon.com"})
	results := e.ComputeRewrites(context.Background(), []string{"https://www.amazon.com/dp/B0ABCDEFGH"})

	res := results["https://www.amazon.com/dp/B0ABCDEFGH"]
	require.Equal(t, domain.StrategyAmazonAffiliate, res.Strategy)
	require.NotNil(t, res.Facts)
	require.Equal(t, "Wireless Headphones", res.Facts.Title)
}

func TestComputeRewrites_EnrichmentFailureIsSoft(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := newResolver(ctrl, nil)
	enricher := mockrewrite.NewMockEnricher(ctrl)
	enricher.EXPECT().Enabled().Return(true)
	enricher.EXPECT().GetItems(gomock.Any(), "B0ABCDEFGH").
		Return(nil, serrors.With(serrors.ErrRateLimited, "status 429"))

	e := newEngine(rewrite.Deps{Resolver: resolver, Enricher: enricher}, rewrite.Options{})
	results := e.ComputeRewrites(context.Background(), []string{"https://www.amazon.com/dp/B0ABCDEFGH"})

	// the tag still lands even when product facts are unavailable
	res := results["https://www.amazon.com/dp/B0ABCDEFGH"]
	require.Equal(t, domain.StrategyAmazonAffiliate, res.Strategy)
	require.Equal(t, taggedDP, res.Replacement)
	require.Nil(t, res.Facts)
	require.Contains(t, res.Note, "enrichment failed")
}

func TestComputeRewrites_AmazonWithoutASINUnchanged(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := newResolver(ctrl, nil)

	e := newEngine(rewrite.Deps{Resolver: resolver}, rewrite.Options{})
	results := e.ComputeRewrites(context.Background(), []string{"https://amzn.to/unresolvable"})

	res := results["https://amzn.to/unresolvable"]
	require.Equal(t, domain.StrategyUnchanged, res.Strategy)
	require.Equal(t, "amazon link but no asin", res.Note)
}

func TestComputeRewrites_EmptyInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	resolver := mockrewrite.NewMockResolver(ctrl)

	e := newEngine(rewrite.Deps{Resolver: resolver}, rewrite.Options{})
	require.Empty(t, e.ComputeRewrites(context.Background(), nil))
	require.Empty(t, e.ComputeRewrites(context.Background(), []string{"", "   "}))
}
