package device

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnreachable indicates the entity exists but its live value could not
// be obtained (host offline, no retained state yet, device removed).
var ErrUnreachable = errors.New("entity unreachable")

// Accessor abstracts the host's device/variable read-write API.
// Implementations must be safe for use from the poller goroutine and from
// flash sequences concurrently.
type Accessor interface {
	// ReadValue returns the current value of the entity.
	// Returns ErrUnreachable (possibly wrapped) when no live value exists.
	ReadValue(ctx context.Context, entityID string) (Value, error)

	// WriteValue pushes a new value to the entity.
	WriteValue(ctx context.Context, entityID string, value Value) error
}

// WriteError records a single failed write, used by best-effort bulk
// operations that keep going after individual failures.
type WriteError struct {
	EntityID string
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.EntityID, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
