package v1handler

import (
	"context"

	"linkmint/internal/rewrite"
	"linkmint/pkg/domain"
)

//go:generate mockgen -package mockv1handler -source=interface.go -destination=mock/mockv1handler.go *

// Rewriter is the part of the monetization engine the handlers call.
type Rewriter interface {
	// ComputeRewrites resolves and monetizes each URL, one result per input.
	ComputeRewrites(ctx context.Context, urls []string) map[string]domain.MonetizationResult
	// RewriteText monetizes every URL found in free text.
	RewriteText(ctx context.Context, text string) (string, bool, map[string]string)
	// RewriteStructured monetizes the text parts of structured content.
	RewriteStructured(ctx context.Context, s rewrite.Structured) (rewrite.Structured, bool, map[string]string)
}
