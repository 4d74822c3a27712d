// Package affiliate defines the abstraction for minting affiliate links
// through a partner network.
package affiliate

import (
	"context"
)

// Result represents the outcome of one link-minting call. StatusCode is the
// last HTTP status observed and is carried through for diagnostics even on
// failure.
type Result struct {
	Link       string // Link is the network-generated affiliate short link.
	StatusCode int    // StatusCode is the HTTP status of the final attempt, 0 on transport failure.
}

// Linker is the abstraction for affiliate networks. Implementations own the
// session lifecycle and request pacing for their account.
//
//go:generate mockgen -package mockaffiliate -source=interface.go -destination=mock/mockaffiliate.go *
type Linker interface {
	// CreateLink mints an affiliate link for the destination URL.
	CreateLink(ctx context.Context, url string) (Result, error)
	// Preflight checks session validity without side effects on the
	// partner account.
	Preflight(ctx context.Context) error
}
