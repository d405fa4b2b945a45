package annotation

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCategory is returned when a new marker uses a category that
	// is not configured.
	ErrUnknownCategory = errors.New("unknown marker category")
	// ErrInvalidCoordinates is returned for markers outside the lat/lon range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// StorageError reports a failed read, decode or write of a durable record.
// A mutation that returns it has not been committed.
type StorageError struct {
	Op     string
	Record string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Record, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
