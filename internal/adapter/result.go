// Package adapter wraps the detector, translator and summarizer capabilities
// behind uniform call contracts.
package adapter

import "errors"

var (
	ErrCapabilityUnavailable = errors.New("capability is unavailable")
	ErrEmptyInput            = errors.New("input is empty")
	// ErrSessionNotReady means no usable translation session exists after
	// the creation step.
	ErrSessionNotReady = errors.New("translation session is not ready")
)

type Status string

const (
	StatusOK          Status = "ok"
	StatusSkipped     Status = "skipped"
	StatusUnavailable Status = "unavailable"
	StatusFailed      Status = "failed"
)

// Result is the outcome of an adapter call. Any status other than StatusOK is
// the absent outcome and Err explains it.
type Result[T any] struct {
	Value  T
	Status Status
	Err    error
}

func (r Result[T]) Absent() bool {
	return r.Status != StatusOK
}

// Get returns the value and whether it is usable.
func (r Result[T]) Get() (T, bool) {
	return r.Value, r.Status == StatusOK
}

func succeeded[T any](value T) Result[T] {
	return Result[T]{Value: value, Status: StatusOK}
}

func absent[T any](status Status, err error) Result[T] {
	return Result[T]{Status: status, Err: err}
}
