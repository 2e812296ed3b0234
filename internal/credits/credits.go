// Package credits defines the registry slot for the level-credits fetcher:
// an external collaborator (spec: "the credits fetcher") that the scheduled
// sweeper calls to expire stale entries. The fetcher's own data source and
// storage are someone else's concern; this package only owns the contract.
package credits

import "context"

// Fetcher expires credits entries that have aged out. Called periodically
// by the same sweeper that prunes invite tokens.
type Fetcher interface {
	Expire(ctx context.Context) error
}

// Noop does nothing. Used when no real credits fetcher is configured.
type Noop struct{}

func (Noop) Expire(context.Context) error { return nil }
