package space

import (
	"errors"
	"fmt"

	"cubespace.dev/internal/geom"
)

// ErrTooManyBlocks reports exhaustion of the uint16 block index space.
var ErrTooManyBlocks = errors.New("too many distinct blocks in space")

// ErrConcurrentAccess reports a mutation attempted while another borrow of
// the space was outstanding. The store never blocks; callers needing
// cross-goroutine coordination must serialize externally.
var ErrConcurrentAccess = errors.New("space is already borrowed")

// OutOfBoundsError reports a cell or region operation outside the space
// bounds. It is always returned before any mutation.
type OutOfBoundsError struct {
	Modification geom.Grid
	Bounds       geom.Grid
}

func (e OutOfBoundsError) Error() string {
	return fmt.Sprintf("%v is outside of the space bounds %v", e.Modification, e.Bounds)
}
