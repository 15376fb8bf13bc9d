// pkg/db/queue.go
package db

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/LerianStudio/lib-uncommons/v2/uncommons/backoff"
	"github.com/google/uuid"

	"guildbank/internal/util"
)

// Queue defaults, used when the corresponding config field is zero.
const (
	DefaultMaxRetries     = 8
	DefaultBaseRetryDelay = 30 * time.Millisecond
	defaultQueueBuffer    = 64
)

// Operation is one unit of work against the store. Results flow back to the
// caller through closure capture.
type Operation func(ctx context.Context) error

// QueueConfig configures the retry policy of the execution queue.
type QueueConfig struct {
	MaxRetries     int           // Total attempts per operation
	BaseRetryDelay time.Duration // Delay before attempt k+1 is base * 2^(k-1)
	Buffer         int           // Pending submissions before Submit blocks
}

// Queue funnels every database operation through one ordered pipeline with a
// single dedicated consumer. Callers submit concurrently; operations execute
// strictly one at a time in submission order, which keeps most lock
// contention from ever reaching the storage engine. Busy/locked conditions
// are retried with exponential backoff; every other error propagates
// immediately. An operation, once accepted, runs to completion or exhausts
// its retry budget; there is no cancellation of queued work.
type Queue struct {
	cfg    QueueConfig
	jobs   chan *queueJob
	logger *slog.Logger

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	wg        sync.WaitGroup
}

type queueJob struct {
	ctx  context.Context
	op   Operation
	opID string
	done chan error
}

// NewQueue creates the execution queue and starts its consumer goroutine.
func NewQueue(cfg QueueConfig, logger *slog.Logger) *Queue {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BaseRetryDelay <= 0 {
		cfg.BaseRetryDelay = DefaultBaseRetryDelay
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = defaultQueueBuffer
	}

	q := &Queue{
		cfg:    cfg,
		jobs:   make(chan *queueJob, cfg.Buffer),
		logger: logger,
	}
	q.wg.Add(1)
	go q.run()
	return q
}

// Submit enqueues op and blocks until it has fully executed, returning its
// result. Submissions made from inside a running unit of work return
// ErrNestedTransaction: the single consumer would deadlock waiting on itself.
func (q *Queue) Submit(ctx context.Context, op Operation) error {
	if inExclusive(ctx) {
		return util.ErrNestedTransaction
	}

	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return util.ErrQueueClosed
	}
	j := &queueJob{
		ctx:  ctx,
		op:   op,
		opID: uuid.NewString(),
		done: make(chan error, 1),
	}
	q.jobs <- j
	q.mu.RUnlock()

	return <-j.done
}

// Close stops intake, drains already-accepted operations, and waits for the
// consumer to finish. The queue never silently drops an operation.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		close(q.jobs)
		q.mu.Unlock()
		q.wg.Wait()
	})
}

func (q *Queue) run() {
	defer q.wg.Done()
	for j := range q.jobs {
		j.done <- q.execute(j)
	}
}

// execute runs one operation with the busy/locked retry policy.
func (q *Queue) execute(j *queueJob) error {
	var err error
	for attempt := 1; attempt <= q.cfg.MaxRetries; attempt++ {
		err = j.op(j.ctx)
		if err == nil || !IsBusy(err) {
			return err
		}
		if attempt == q.cfg.MaxRetries {
			break
		}

		delay := backoff.Exponential(q.cfg.BaseRetryDelay, attempt-1)
		q.logger.Warn("storage busy, backing off",
			"op_id", j.opID, "attempt", attempt, "delay", delay.String())
		if sleepErr := backoff.SleepWithContext(j.ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}

	q.logger.Error("operation exhausted retry budget",
		"op_id", j.opID, "attempts", q.cfg.MaxRetries, "error", err)
	return fmt.Errorf("%w after %d attempts: %v", util.ErrStorageBusy, q.cfg.MaxRetries, err)
}
