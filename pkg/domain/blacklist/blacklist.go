package blacklist

import "context"

// Store is the operator-maintained set of phrases that force-flag any
// matching message. Implementations must keep every operation atomic; no
// caller may observe a partially-updated set.
type Store interface {
	// Add inserts a phrase. Adding an existing phrase is a no-op reported
	// through added=false.
	Add(ctx context.Context, phrase string) (added bool, err error)

	// Remove deletes a phrase. Removing an absent phrase is a no-op reported
	// through removed=false.
	Remove(ctx context.Context, phrase string) (removed bool, err error)

	// List returns all phrases sorted lexicographically.
	List(ctx context.Context) ([]string, error)

	// Matches returns every stored phrase found in text as a whole word,
	// case-insensitively.
	Matches(ctx context.Context, text string) ([]string, error)
}
