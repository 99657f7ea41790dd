// Copyright 2025 Shadow Atlas Contributors
//
// Package orchestrator schedules a batch run over (layer, jurisdiction,
// vintage) tuples: bounded per-provider concurrency, checkpointing,
// exponential backoff, a dead-letter queue, and a circuit breaker that
// aborts the batch outright after too many consecutive dead letters
// (spec.md §4.7, §5).

package orchestrator

import "errors"

var (
	ErrNilRunner     = errors.New("orchestrator: tuple runner cannot be nil")
	ErrNilStore      = errors.New("orchestrator: checkpoint store cannot be nil")
	ErrEmptyTuples   = errors.New("orchestrator: no tuples to run")
	ErrBatchAborted  = errors.New("orchestrator: batch aborted by circuit breaker")
	ErrBatchDeadline = errors.New("orchestrator: batch wall deadline exceeded")
)

// AbortedError wraps the circuit breaker trip with diagnostic context.
type AbortedError struct {
	ConsecutiveDeadLetters int
	Threshold              int
}

func (e *AbortedError) Error() string {
	return ErrBatchAborted.Error()
}

func (e *AbortedError) Unwrap() error {
	return ErrBatchAborted
}
