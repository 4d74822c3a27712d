package rewrite

import (
	"context"

	"linkmint/pkg/domain"
)

//go:generate mockgen -package mockrewrite -source=interface.go -destination=mock/mockrewrite.go *

// Resolver maps a candidate URL to its final destination. Implementations
// never return an error; the worst case is the input unchanged.
type Resolver interface {
	Resolve(ctx context.Context, candidate string) domain.ResolvedURL
}

// Enricher fetches product display data for an ASIN.
type Enricher interface {
	// Enabled reports whether enrichment credentials are configured.
	Enabled() bool
	// GetItems fetches product facts for one ASIN.
	GetItems(ctx context.Context, asin string) (*domain.ProductFacts, error)
}
