package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrClosed indicates the pool no longer accepts work.
	ErrClosed = errors.New("workerpool: pool closed")
	// ErrWaitTimeout indicates a batch did not drain within its deadline.
	ErrWaitTimeout = errors.New("workerpool: wait timed out")
)

// Task is one independent unit of work. Run reports the terminal outcome; a
// nil error counts as completed, anything else as failed.
type Task struct {
	ID  uuid.UUID
	Run func(ctx context.Context) error
}

// Summary aggregates terminal states for a batch.
type Summary struct {
	Completed  int
	Failed     int
	FailedJobs []uuid.UUID
}

// Pool is a bounded queue drained by a fixed set of workers. Tasks within a
// batch complete in any order; the only guarantee is that Batch.Wait does not
// return a Summary until every submitted task reached a terminal state.
type Pool struct {
	tasks   chan submission
	wg      sync.WaitGroup
	logger  zerolog.Logger
	closed  chan struct{}
	closeMu sync.Mutex
}

type submission struct {
	task  Task
	batch *Batch
}

// New starts size workers over a queue of the given depth.
func New(size, depth int, logger zerolog.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if depth <= 0 {
		depth = size
	}

	p := &Pool{
		tasks:  make(chan submission, depth),
		logger: logger.With().Str("component", "workerpool").Logger(),
		closed: make(chan struct{}),
	}

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker(i)
	}
	return p
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()
	for sub := range p.tasks {
		err := p.runTask(sub.batch.ctx, sub.task)
		sub.batch.record(sub.task.ID, err)
	}
	p.logger.Debug().Int("worker", id).Msg("worker stopped")
}

func (p *Pool) runTask(ctx context.Context, task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return task.Run(ctx)
}

// Close stops accepting work and waits for in-flight tasks to finish.
func (p *Pool) Close() {
	p.closeMu.Lock()
	select {
	case <-p.closed:
		p.closeMu.Unlock()
		return
	default:
		close(p.closed)
	}
	p.closeMu.Unlock()

	close(p.tasks)
	p.wg.Wait()
}

// Batch groups submissions so a caller can wait for all of them together.
type Batch struct {
	pool *Pool
	ctx  context.Context

	mu       sync.Mutex
	expected int
	summary  Summary
	done     chan struct{}
}

// NewBatch opens a batch whose tasks run under ctx.
func (p *Pool) NewBatch(ctx context.Context) *Batch {
	return &Batch{
		pool: p,
		ctx:  ctx,
		done: make(chan struct{}, 1),
	}
}

// Submit enqueues one task. It blocks while the queue is full and fails only
// when the pool is closed or the batch context is cancelled.
func (b *Batch) Submit(task Task) error {
	b.mu.Lock()
	b.expected++
	b.mu.Unlock()

	select {
	case <-b.pool.closed:
		b.record(task.ID, ErrClosed)
		return ErrClosed
	case <-b.ctx.Done():
		b.record(task.ID, b.ctx.Err())
		return b.ctx.Err()
	case b.pool.tasks <- submission{task: task, batch: b}:
		return nil
	}
}

func (b *Batch) record(id uuid.UUID, err error) {
	b.mu.Lock()
	if err != nil {
		b.summary.Failed++
		b.summary.FailedJobs = append(b.summary.FailedJobs, id)
	} else {
		b.summary.Completed++
	}
	finished := b.summary.Completed+b.summary.Failed >= b.expected
	b.mu.Unlock()

	if finished {
		select {
		case b.done <- struct{}{}:
		default:
		}
	}
}

// Wait blocks until every submitted task reached a terminal state, the
// timeout elapses, or ctx is cancelled. The timeout is mandatory: a stalled
// worker must surface as an operational error, not hang the caller forever.
func (b *Batch) Wait(ctx context.Context, timeout time.Duration) (Summary, error) {
	b.mu.Lock()
	outstanding := b.summary.Completed+b.summary.Failed < b.expected
	b.mu.Unlock()

	if outstanding {
		timer := time.NewTimer(timeout)
		defer timer.Stop()

		waiting := true
		for waiting {
			select {
			case <-ctx.Done():
				return b.snapshot(), ctx.Err()
			case <-timer.C:
				return b.snapshot(), ErrWaitTimeout
			case <-b.done:
				b.mu.Lock()
				waiting = b.summary.Completed+b.summary.Failed < b.expected
				b.mu.Unlock()
			}
		}
	}
	return b.snapshot(), nil
}

func (b *Batch) snapshot() Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := Summary{Completed: b.summary.Completed, Failed: b.summary.Failed}
	out.FailedJobs = append(out.FailedJobs, b.summary.FailedJobs...)
	return out
}
