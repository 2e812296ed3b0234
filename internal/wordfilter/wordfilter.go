// Package wordfilter defines the interface the room engine calls to reject
// disallowed room names. The actual moderation list is an external
// collaborator (not this server's concern); this package only owns the
// contract and a conservative default used when no real filter is wired in.
package wordfilter

import "strings"

// Filter decides whether a proposed room name is allowed.
type Filter interface {
	IsAllowed(name string) bool
}

// None accepts every name. It's the default until a real filter (e.g. a
// blocklist loaded from config, or a moderation service) is registered.
type None struct{}

// IsAllowed always returns true.
func (None) IsAllowed(string) bool { return true }

// Blocklist rejects a name if it contains any configured substring,
// case-insensitively. Suitable for a small, locally-configured denylist;
// a production deployment would typically plug in something smarter here.
type Blocklist struct {
	terms []string
}

// NewBlocklist lowercases and stores terms for substring matching.
func NewBlocklist(terms []string) *Blocklist {
	b := &Blocklist{terms: make([]string, len(terms))}
	for i, t := range terms {
		b.terms[i] = strings.ToLower(t)
	}
	return b
}

// IsAllowed reports false if name contains any blocked term.
func (b *Blocklist) IsAllowed(name string) bool {
	lower := strings.ToLower(name)
	for _, term := range b.terms {
		if term != "" && strings.Contains(lower, term) {
			return false
		}
	}
	return true
}
