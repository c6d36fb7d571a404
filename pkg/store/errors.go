package store

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotFound means the user has no stored history yet.
	ErrNotFound = errors.New("chat history not found")
	// ErrCorruptHistory means a blob exists but cannot be parsed or validated.
	ErrCorruptHistory = errors.New("chat history is corrupt")
)

// IOError is any store failure other than an absent history.
type IOError struct {
	Op  string
	Key string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// corruptError keeps both ErrCorruptHistory and the underlying validation
// error reachable through errors.Is / errors.As.
type corruptError struct {
	cause error
}

func (e *corruptError) Error() string {
	return fmt.Sprintf("%s: %v", ErrCorruptHistory, e.cause)
}

func (e *corruptError) Is(target error) bool {
	return target == ErrCorruptHistory
}

func (e *corruptError) Unwrap() error {
	return e.cause
}
