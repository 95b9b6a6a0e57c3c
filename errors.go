package beancache

import (
	"errors"
	"fmt"
)

// ErrUnknownStore is returned when no store provider is registered under the
// requested name.
var ErrUnknownStore = errors.New("beancache: unknown store provider")

// BatchCloseError reports a batch that could not be closed (committed) after
// the operation running in it succeeded. Errors raised by the operation itself
// are returned unchanged instead.
type BatchCloseError struct {
	Op  string
	Err error
}

func (e *BatchCloseError) Error() string {
	return fmt.Sprintf("beancache: %s: closing batch failed: %v", e.Op, e.Err)
}

func (e *BatchCloseError) Unwrap() error { return e.Err }
