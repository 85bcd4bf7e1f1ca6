package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotFound      = errors.New("board not found")
	ErrNotStabilized = errors.New("board did not stabilize")
)

// NotStabilizedError is returned when no fixed point is found within the
// iteration budget. It matches ErrNotStabilized under errors.Is.
type NotStabilizedError struct {
	MaxIterations int
}

func (e *NotStabilizedError) Error() string {
	return fmt.Sprintf("board did not reach a stable state after %d steps", e.MaxIterations)
}

func (e *NotStabilizedError) Is(target error) bool { return target == ErrNotStabilized }
