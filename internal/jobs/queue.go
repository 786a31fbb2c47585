// Package jobs runs rewinds in the background on a bounded worker pool.
// Every submission returns a Ticket whose completion and error can be
// observed; nothing is fire-and-forget.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/pable/rift-rewind/internal/metrics"
	"github.com/pable/rift-rewind/internal/model"
)

var (
	ErrQueueFull = errors.New("job queue is full")
	ErrClosed    = errors.New("job queue is closed")
)

// Runner executes one job; *pipeline.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, id model.Identity) (*model.ResultRecord, error)
}

// Ticket tracks one submitted job.
type Ticket struct {
	Hash      string
	Identity  model.Identity
	Submitted time.Time

	done   chan struct{}
	result *model.ResultRecord
	err    error
}

func newTicket(id model.Identity) *Ticket {
	return &Ticket{Hash: id.Hash(), Identity: id, Submitted: time.Now(), done: make(chan struct{})}
}

func (t *Ticket) complete(rec *model.ResultRecord, err error) {
	t.result, t.err = rec, err
	close(t.done)
}

// Done is closed once the job has finished.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Wait blocks until the job finishes or ctx is done. Giving up on the wait
// does not cancel the job.
func (t *Ticket) Wait(ctx context.Context) (*model.ResultRecord, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Queue is a bounded FIFO of jobs served by a fixed set of workers.
type Queue struct {
	runner  Runner
	workers int
	jobs    chan *Ticket

	mu      sync.Mutex
	pending map[string]*Ticket
	closed  bool
	group   *errgroup.Group
}

// New builds a queue holding at most depth waiting jobs.
func New(runner Runner, workers, depth int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if depth <= 0 {
		depth = 64
	}
	return &Queue{
		runner:  runner,
		workers: workers,
		jobs:    make(chan *Ticket, depth),
		pending: make(map[string]*Ticket),
	}
}

// Start launches the workers. Jobs run under ctx, not under the context of
// whoever submitted them.
func (q *Queue) Start(ctx context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < q.workers; i++ {
		g.Go(func() error {
			q.work(ctx)
			return nil
		})
	}
	q.mu.Lock()
	q.group = g
	q.mu.Unlock()
}

func (q *Queue) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-q.jobs:
			if !ok {
				return
			}
			metrics.QueueDepth.Set(float64(len(q.jobs)))
			log.Debug().Str("identity", t.Hash).Dur("queued", time.Since(t.Submitted)).Msg("job picked up")
			rec, err := q.runner.Run(ctx, t.Identity)

			q.mu.Lock()
			delete(q.pending, t.Hash)
			q.mu.Unlock()
			t.complete(rec, err)
		}
	}
}

// Submit enqueues a job for id. A job already waiting or running for the
// same identity is returned instead of queuing a duplicate.
func (q *Queue) Submit(id model.Identity) (*Ticket, error) {
	id = model.NewIdentity(id.Name, id.Tag, id.Region)
	if err := id.Validate(); err != nil {
		return nil, err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}
	if t, ok := q.pending[id.Hash()]; ok {
		return t, nil
	}
	t := newTicket(id)
	select {
	case q.jobs <- t:
	default:
		return nil, fmt.Errorf("submit %s: %w", id, ErrQueueFull)
	}
	q.pending[t.Hash] = t
	metrics.QueueDepth.Set(float64(len(q.jobs)))
	return t, nil
}

// Pending returns the waiting or running ticket for hash.
func (q *Queue) Pending(hash string) (*Ticket, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	t, ok := q.pending[hash]
	return t, ok
}

// Close stops accepting jobs and waits for the workers to drain the queue.
// Jobs still queued after the workers stopped complete with ErrClosed.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.jobs)
	g := q.group
	q.mu.Unlock()

	var err error
	if g != nil {
		err = g.Wait()
	}
	for t := range q.jobs {
		q.mu.Lock()
		delete(q.pending, t.Hash)
		q.mu.Unlock()
		t.complete(nil, ErrClosed)
	}
	return err
}
