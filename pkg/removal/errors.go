package removal

import (
	"errors"
	"fmt"

	"licensepurge/pkg/licenses"
)

var (
	// ErrNoMatchingItems is returned when the candidate list has nothing on the allow-list
	ErrNoMatchingItems = errors.New("no matching package IDs found")
	// ErrCorruptState is returned by state stores whose saved state cannot be read
	ErrCorruptState = errors.New("saved state is corrupt")
)

// FatalError aborts a run after a response that was not structured data,
// usually because the session expired.
type FatalError struct {
	ID   licenses.PackageID
	Body string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("non-JSON response while removing package %d: session may have expired or requests are being blocked", e.ID)
}
