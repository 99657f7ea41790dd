// Copyright 2025 Shadow Atlas Contributors

package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/shadowatlas/core/internal/boundary"
	"github.com/shadowatlas/core/internal/validator"
)

// RunResult is what one successful tuple run produces: the validated,
// resolved records it contributed plus the provider checksum used for
// checkpointing and the change detector's freshness cache.
type RunResult struct {
	Records  []boundary.NormalizedBoundary
	Checksum string
}

// TupleRunner performs the full per-tuple pipeline — download, transform,
// validate, resolve — for one (layer, jurisdiction, vintage). A
// *validator.HaltError returned from Run is treated as an isolation halt
// (the tuple is excluded from the build but the batch continues); any
// other error is treated as transient and retried with backoff.
type TupleRunner interface {
	Run(ctx context.Context, tuple boundary.Tuple) (RunResult, error)
}

// Sink receives the records contributed by each tuple that completes
// successfully, so the caller can feed them into the tree builder as they
// arrive rather than buffering the whole batch in the orchestrator itself
// (spec §5: "provider outputs stream through the validator").
type Sink interface {
	Accept(tuple boundary.Tuple, records []boundary.NormalizedBoundary)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(tuple boundary.Tuple, records []boundary.NormalizedBoundary)

func (f SinkFunc) Accept(tuple boundary.Tuple, records []boundary.NormalizedBoundary) {
	f(tuple, records)
}

// TupleOutcome classifies how one tuple's processing ended.
type TupleOutcome string

const (
	OutcomeSucceeded  TupleOutcome = "succeeded"
	OutcomeSkipped    TupleOutcome = "skipped" // checkpoint hit for this snapshot target
	OutcomeHalted     TupleOutcome = "halted"  // validator halt; isolated, not retried
	OutcomeDeadLetter TupleOutcome = "dead_letter"
)

// TupleReport records the final disposition of one tuple.
type TupleReport struct {
	Tuple    boundary.Tuple
	Outcome  TupleOutcome
	Checksum string
	Err      error
	Attempts int
}

// BatchResult is the outcome of one orchestrator run.
type BatchResult struct {
	Reports  []TupleReport
	Aborted  bool
	AbortErr error
}

// HaltReports returns the subset of Reports with Outcome == OutcomeHalted.
func (r *BatchResult) HaltReports() []TupleReport {
	var out []TupleReport
	for _, rep := range r.Reports {
		if rep.Outcome == OutcomeHalted {
			out = append(out, rep)
		}
	}
	return out
}

// DeadLetterReports returns the subset of Reports with Outcome ==
// OutcomeDeadLetter.
func (r *BatchResult) DeadLetterReports() []TupleReport {
	var out []TupleReport
	for _, rep := range r.Reports {
		if rep.Outcome == OutcomeDeadLetter {
			out = append(out, rep)
		}
	}
	return out
}

// asHaltError reports whether err is (or wraps) a *validator.HaltError.
func asHaltError(err error) (*validator.HaltError, bool) {
	var halt *validator.HaltError
	if errors.As(err, &halt) {
		return halt, true
	}
	return nil, false
}

// Config holds the scheduling tunables. None are hard-coded: every batch
// run supplies its own (spec §9 Open Questions treats these as
// configuration, not constants).
type Config struct {
	// Concurrency is the number of tuples that may run at once under each
	// provider key that has no ProviderConcurrency override. It is not a
	// batch-wide bound: tuples under different keys draw on separate slots.
	Concurrency int

	// ProviderKey maps a tuple to the provider-rate-limit bucket it
	// belongs to; tuples sharing a key are throttled together.
	ProviderKey func(boundary.Tuple) string

	// ProviderConcurrency overrides Concurrency per provider key.
	ProviderConcurrency map[string]int

	// MaxConsecutiveFailures is how many transient failures on the same
	// tuple trigger a move to the dead-letter queue (spec §4.7).
	MaxConsecutiveFailures int

	// CircuitBreakerThreshold is how many consecutive dead-lettered
	// tuples (in completion order) abort the whole batch (spec §4.7).
	CircuitBreakerThreshold int

	// TupleTimeout bounds a single tuple's total processing time.
	TupleTimeout time.Duration

	// BatchDeadline bounds the whole batch's wall-clock time.
	BatchDeadline time.Duration

	// InitialBackoff and MaxBackoff configure the exponential backoff
	// applied between retry attempts on the same tuple.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns reasonable seed defaults; operators are expected to
// tune these from configuration.
func DefaultConfig() Config {
	return Config{
		Concurrency:             4,
		MaxConsecutiveFailures:  3,
		CircuitBreakerThreshold: 5,
		TupleTimeout:            2 * time.Minute,
		BatchDeadline:           2 * time.Hour,
		InitialBackoff:          500 * time.Millisecond,
		MaxBackoff:              30 * time.Second,
	}
}
