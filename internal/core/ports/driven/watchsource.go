package driven

import "github.com/loupe-search/loupe/internal/core/domain"

// WatchSource is the abstract filesystem notification capability.
// Delivery is best effort: events may be coalesced or dropped under
// load. Periodic full rescans are the consistency backstop, not this.
type WatchSource interface {
	// Events returns the stream of normalized change events.
	// The channel is closed by Close.
	Events() <-chan domain.FileEvent

	// Errors returns non-fatal watch errors (e.g. overflow notices).
	Errors() <-chan error

	// Add starts watching a root directory recursively.
	Add(root string) error

	// Close stops watching and closes the event channel.
	Close() error
}
