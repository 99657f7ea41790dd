// Copyright 2025 Shadow Atlas Contributors

package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/shadowatlas/core/internal/boundary"
	"github.com/shadowatlas/core/internal/kv"
)

// checkpointRecord is what gets persisted to the checkpoint log per tuple
// per snapshot target.
type checkpointRecord struct {
	Checksum    string    `json:"checksum"`
	CompletedAt time.Time `json:"completed_at"`
}

func checkpointKey(snapshotTarget string, t boundary.Tuple) []byte {
	return []byte(fmt.Sprintf("checkpoint/%s/%s/%s/%d", snapshotTarget, t.Layer, t.Jurisdiction, t.Vintage))
}

// Orchestrator runs a batch over a set of tuples per spec §4.7.
type Orchestrator struct {
	store  kv.Store
	cfg    Config
	logger *log.Logger
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// New constructs an Orchestrator backed by store for checkpointing.
func New(store kv.Store, cfg Config, opts ...Option) (*Orchestrator, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	o := &Orchestrator{
		store:  store,
		cfg:    cfg,
		logger: log.New(log.Writer(), "[Orchestrator] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Run executes runner against every tuple, checkpointing successes under
// snapshotTarget, retrying transient failures with exponential backoff,
// isolating validator halts, dead-lettering tuples that exhaust their
// retries, and aborting the whole batch if the circuit breaker trips.
func (o *Orchestrator) Run(ctx context.Context, snapshotTarget string, tuples []boundary.Tuple, runner TupleRunner, sink Sink) (*BatchResult, error) {
	if runner == nil {
		return nil, ErrNilRunner
	}
	if len(tuples) == 0 {
		return nil, ErrEmptyTuples
	}

	batchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var batchTimer *time.Timer
	if o.cfg.BatchDeadline > 0 {
		batchTimer = time.AfterFunc(o.cfg.BatchDeadline, cancel)
		defer batchTimer.Stop()
	}

	sem := newProviderSemaphore(o.cfg)

	reportsCh := make(chan TupleReport, len(tuples))
	var wg sync.WaitGroup

	var abortOnce sync.Once
	var abortResult *AbortedError
	var consecutiveDeadLetters int
	var mu sync.Mutex

	for _, tuple := range tuples {
		tuple := tuple
		wg.Add(1)
		go func() {
			defer wg.Done()

			key := o.providerKey(tuple)
			release := sem.acquire(batchCtx, key)
			defer release()

			select {
			case <-batchCtx.Done():
				return
			default:
			}

			report := o.runOne(batchCtx, snapshotTarget, tuple, runner, sink)
			reportsCh <- report

			if report.Outcome == OutcomeDeadLetter {
				mu.Lock()
				consecutiveDeadLetters++
				tripped := consecutiveDeadLetters >= o.cfg.CircuitBreakerThreshold
				mu.Unlock()
				if tripped {
					abortOnce.Do(func() {
						abortResult = &AbortedError{ConsecutiveDeadLetters: consecutiveDeadLetters, Threshold: o.cfg.CircuitBreakerThreshold}
						o.logger.Printf("circuit breaker tripped: %d consecutive dead letters (threshold %d), aborting batch", consecutiveDeadLetters, o.cfg.CircuitBreakerThreshold)
						cancel()
					})
				}
			} else {
				mu.Lock()
				consecutiveDeadLetters = 0
				mu.Unlock()
			}
		}()
	}

	go func() {
		wg.Wait()
		close(reportsCh)
	}()

	result := &BatchResult{}
	for report := range reportsCh {
		result.Reports = append(result.Reports, report)
	}

	if abortResult != nil {
		result.Aborted = true
		result.AbortErr = abortResult
		return result, abortResult
	}
	if batchCtx.Err() != nil && ctx.Err() == nil {
		// Cancelled locally but not by the caller and not by the circuit
		// breaker: must be the batch deadline.
		result.Aborted = true
		result.AbortErr = ErrBatchDeadline
		return result, ErrBatchDeadline
	}
	return result, nil
}

// runOne executes the checkpoint-skip check, then the retry loop, for a
// single tuple.
func (o *Orchestrator) runOne(ctx context.Context, snapshotTarget string, tuple boundary.Tuple, runner TupleRunner, sink Sink) TupleReport {
	if rec, ok, err := o.lookupCheckpoint(snapshotTarget, tuple); err == nil && ok {
		o.logger.Printf("tuple %s/%s/%d already checkpointed for target %s, skipping", tuple.Layer, tuple.Jurisdiction, tuple.Vintage, snapshotTarget)
		return TupleReport{Tuple: tuple, Outcome: OutcomeSkipped, Checksum: rec.Checksum}
	}

	tupleCtx := ctx
	var cancel context.CancelFunc
	if o.cfg.TupleTimeout > 0 {
		tupleCtx, cancel = context.WithTimeout(ctx, o.cfg.TupleTimeout)
		defer cancel()
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = nonZeroDuration(o.cfg.InitialBackoff, 500*time.Millisecond)
	policy.MaxInterval = nonZeroDuration(o.cfg.MaxBackoff, 30*time.Second)
	policy.MaxElapsedTime = 0 // bounded by attempt count, not elapsed time

	attempts := 0
	var lastErr error
	var result RunResult

	for {
		attempts++
		res, err := runner.Run(tupleCtx, tuple)
		if err == nil {
			result = res
			lastErr = nil
			break
		}

		if halt, isHalt := asHaltError(err); isHalt {
			o.logger.Printf("tuple %s/%s/%d halted: %v", tuple.Layer, tuple.Jurisdiction, tuple.Vintage, halt)
			return TupleReport{Tuple: tuple, Outcome: OutcomeHalted, Err: err, Attempts: attempts}
		}

		lastErr = err
		if attempts >= o.cfg.MaxConsecutiveFailures {
			o.logger.Printf("tuple %s/%s/%d exhausted %d attempts, dead-lettering: %v", tuple.Layer, tuple.Jurisdiction, tuple.Vintage, attempts, err)
			return TupleReport{Tuple: tuple, Outcome: OutcomeDeadLetter, Err: err, Attempts: attempts}
		}

		wait := policy.NextBackOff()
		select {
		case <-tupleCtx.Done():
			return TupleReport{Tuple: tuple, Outcome: OutcomeDeadLetter, Err: tupleCtx.Err(), Attempts: attempts}
		case <-time.After(wait):
		}
	}

	if lastErr != nil {
		return TupleReport{Tuple: tuple, Outcome: OutcomeDeadLetter, Err: lastErr, Attempts: attempts}
	}

	if err := o.writeCheckpoint(snapshotTarget, tuple, result.Checksum); err != nil {
		o.logger.Printf("tuple %s/%s/%d succeeded but checkpoint write failed: %v", tuple.Layer, tuple.Jurisdiction, tuple.Vintage, err)
	}
	if sink != nil {
		sink.Accept(tuple, result.Records)
	}
	return TupleReport{Tuple: tuple, Outcome: OutcomeSucceeded, Checksum: result.Checksum, Attempts: attempts}
}

func (o *Orchestrator) lookupCheckpoint(snapshotTarget string, tuple boundary.Tuple) (checkpointRecord, bool, error) {
	raw, err := o.store.Get(checkpointKey(snapshotTarget, tuple))
	if err != nil {
		return checkpointRecord{}, false, err
	}
	if raw == nil {
		return checkpointRecord{}, false, nil
	}
	var rec checkpointRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return checkpointRecord{}, false, err
	}
	return rec, true, nil
}

func (o *Orchestrator) writeCheckpoint(snapshotTarget string, tuple boundary.Tuple, checksum string) error {
	rec := checkpointRecord{Checksum: checksum, CompletedAt: time.Now()}
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return o.store.Set(checkpointKey(snapshotTarget, tuple), raw)
}

func (o *Orchestrator) providerKey(tuple boundary.Tuple) string {
	if o.cfg.ProviderKey != nil {
		return o.cfg.ProviderKey(tuple)
	}
	return string(tuple.Layer)
}

func nonZeroDuration(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
