// Package queue implements a priority-ordered, concurrency-bounded
// scheduler for document-editing operations. Operations are admitted in
// priority order (stable among equals), executed each on their own
// goroutine, and tracked through a pending → running → terminal lifecycle.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/me/docbatch/pkg/model"
)

// DefaultMaxConcurrent bounds simultaneous executions when no explicit
// limit is configured.
const DefaultMaxConcurrent = 3

// AuditSink receives a copy of every operation that reaches a terminal
// status. Implementations must be safe for concurrent use.
type AuditSink interface {
	Record(ctx context.Context, op *model.Operation) error
}

// Config holds queue configuration.
type Config struct {
	MaxConcurrent int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxConcurrent: DefaultMaxConcurrent}
}

// Queue is the operation scheduler. All bookkeeping (records, pending
// order, running set) is guarded by one mutex; the mutex is never held
// across a handler call.
type Queue struct {
	cfg      Config
	logger   *slog.Logger
	registry *Registry
	audit    AuditSink

	mu      sync.Mutex
	records map[string]*model.Operation
	pending []string
	running map[string]context.CancelFunc
	done    map[string]*waiter
	closed  bool
	wg      sync.WaitGroup
}

// waiter delivers the terminal snapshot to blocked Wait calls. The
// snapshot is written before ch is closed, so a waiter that held the
// handle before a ClearCompleted sweep still observes the outcome.
type waiter struct {
	ch chan struct{}
	op *model.Operation
}

func (w *waiter) resolveLocked(op *model.Operation) {
	snap := *op
	w.op = &snap
	close(w.ch)
}

// Option configures optional Queue dependencies.
type Option func(*Queue)

// WithAudit attaches an audit sink that records terminal transitions.
func WithAudit(sink AuditSink) Option {
	return func(q *Queue) {
		q.audit = sink
	}
}

// New creates a Queue with its own handler registry.
func New(cfg Config, reg *Registry, logger *slog.Logger, opts ...Option) *Queue {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	q := &Queue{
		cfg:      cfg,
		logger:   logger.With("component", "queue"),
		registry: reg,
		records:  make(map[string]*model.Operation),
		running:  make(map[string]context.CancelFunc),
		done:     make(map[string]*waiter),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Registry returns the handler registry owned by this queue.
func (q *Queue) Registry() *Registry {
	return q.registry
}

// Add submits one operation and triggers an admission pass. It returns
// the generated operation id.
func (q *Queue) Add(req model.OperationRequest) (string, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", ErrClosed
	}

	id := "op_" + uuid.New().String()
	op := &model.Operation{
		ID:        id,
		Type:      req.Type,
		Priority:  req.Priority,
		Handler:   req.Handler,
		Method:    req.Method,
		Args:      req.Args,
		Status:    model.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	q.records[id] = op
	q.done[id] = &waiter{ch: make(chan struct{})}

	// Stable sort keeps submission order among equal priorities.
	q.pending = append(q.pending, id)
	sort.SliceStable(q.pending, func(i, j int) bool {
		return q.records[q.pending[i]].Priority > q.records[q.pending[j]].Priority
	})

	q.dispatchLocked()
	q.mu.Unlock()

	q.logger.Debug("operation submitted", "operation_id", id, "handler", req.Handler, "method", req.Method, "priority", req.Priority)
	return id, nil
}

// AddBatch submits operations in order and returns their ids in the same
// order. It is semantically equivalent to repeated Add calls.
func (q *Queue) AddBatch(reqs []model.OperationRequest) ([]string, error) {
	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		id, err := q.Add(req)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// dispatchLocked admits pending operations while concurrency slots are
// free. Callers must hold q.mu.
func (q *Queue) dispatchLocked() {
	for len(q.running) < q.cfg.MaxConcurrent && len(q.pending) > 0 {
		id := q.pending[0]
		q.pending = q.pending[1:]

		op := q.records[id]
		now := time.Now().UTC()
		op.Status = model.StatusRunning
		op.StartedAt = &now

		ctx, cancel := context.WithCancel(context.Background())
		q.running[id] = cancel
		q.wg.Add(1)
		go q.execute(ctx, id)
	}
}

// execute resolves the handler, invokes the named method, and records the
// outcome. It runs on its own goroutine with no lock held across the call.
func (q *Queue) execute(ctx context.Context, id string) {
	defer q.wg.Done()

	q.mu.Lock()
	op := q.records[id]
	handlerName, method, args := op.Handler, op.Method, op.Args
	q.mu.Unlock()

	var result any
	h, err := q.registry.Get(handlerName)
	if err == nil {
		// Recover so a panicking handler fails one operation, not the
		// whole process, and the cleanup path below always runs.
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			result, err = h.Invoke(ctx, method, args)
		}()
	}

	q.finish(id, result, err)
}

// finish records the outcome of an execution, frees the concurrency slot,
// and triggers the next admission pass. A result arriving after the
// operation was cancelled is discarded; cancelled wins the race.
func (q *Queue) finish(id string, result any, err error) {
	var terminal *model.Operation

	q.mu.Lock()
	if cancel, ok := q.running[id]; ok {
		delete(q.running, id)
		cancel()
	}
	op := q.records[id]
	if op != nil && op.Status == model.StatusRunning {
		now := time.Now().UTC()
		op.CompletedAt = &now
		if err != nil {
			op.Status = model.StatusFailed
			op.Error = err.Error()
		} else {
			op.Status = model.StatusCompleted
			op.Result = result
		}
		q.done[id].resolveLocked(op)
		terminal = q.done[id].op
	}
	q.dispatchLocked()
	q.mu.Unlock()

	if terminal != nil {
		if err != nil {
			q.logger.Info("operation failed", "operation_id", id, "error", err)
		} else {
			q.logger.Debug("operation completed", "operation_id", id)
		}
		q.recordAudit(terminal)
	}
}

// Cancel cancels a pending or running operation. Pending operations are
// removed from the queue and never execute; running operations have their
// context cancelled and are marked cancelled immediately, regardless of
// whether the in-flight call eventually returns. It reports false for
// unknown or already-terminal ids.
func (q *Queue) Cancel(id string) bool {
	var terminal *model.Operation

	q.mu.Lock()
	op, ok := q.records[id]
	if !ok || op.Status.IsTerminal() {
		q.mu.Unlock()
		return false
	}

	switch op.Status {
	case model.StatusPending:
		for i, pid := range q.pending {
			if pid == id {
				q.pending = append(q.pending[:i], q.pending[i+1:]...)
				break
			}
		}
	case model.StatusRunning:
		if cancel, ok := q.running[id]; ok {
			delete(q.running, id)
			cancel()
		}
	}

	now := time.Now().UTC()
	op.Status = model.StatusCancelled
	op.CompletedAt = &now
	q.done[id].resolveLocked(op)
	terminal = q.done[id].op

	q.dispatchLocked()
	q.mu.Unlock()

	q.logger.Info("operation cancelled", "operation_id", id)
	q.recordAudit(terminal)
	return true
}

// Wait blocks until the operation reaches a terminal status, the timeout
// expires, or ctx is cancelled. A timeout does not cancel the operation.
// A timeout of zero or less means wait indefinitely.
func (q *Queue) Wait(ctx context.Context, id string, timeout time.Duration) (*model.Operation, error) {
	q.mu.Lock()
	op, ok := q.records[id]
	if !ok {
		q.mu.Unlock()
		return nil, fmt.Errorf("operation %s: %w", id, ErrNotFound)
	}
	if op.Status.IsTerminal() {
		snap := *op
		q.mu.Unlock()
		return &snap, nil
	}
	w := q.done[id]
	q.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	// The waiter handle outlives the record, so a ClearCompleted sweep
	// between completion and wakeup cannot lose the outcome.
	select {
	case <-w.ch:
		snap := *w.op
		return &snap, nil
	case <-expired:
		return nil, fmt.Errorf("operation %s: %w", id, ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WaitAll waits for each id in turn. Every id gets the same timeout
// budget rather than sharing one deadline across the whole set.
func (q *Queue) WaitAll(ctx context.Context, ids []string, timeout time.Duration) ([]*model.Operation, error) {
	ops := make([]*model.Operation, 0, len(ids))
	for _, id := range ids {
		op, err := q.Wait(ctx, id, timeout)
		if err != nil {
			return ops, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// Status returns a snapshot of one operation or ErrNotFound.
func (q *Queue) Status(id string) (*model.Operation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	op, ok := q.records[id]
	if !ok {
		return nil, fmt.Errorf("operation %s: %w", id, ErrNotFound)
	}
	snap := *op
	return &snap, nil
}

// Stats returns a snapshot of queue occupancy.
func (q *Queue) Stats() model.QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()

	stats := model.QueueStats{
		Total:         len(q.records),
		MaxConcurrent: q.cfg.MaxConcurrent,
		QueueLength:   len(q.pending),
	}
	for _, op := range q.records {
		switch op.Status {
		case model.StatusPending:
			stats.Pending++
		case model.StatusRunning:
			stats.Running++
		case model.StatusCompleted:
			stats.Completed++
		case model.StatusFailed:
			stats.Failed++
		case model.StatusCancelled:
			stats.Cancelled++
		}
	}
	return stats
}

// ClearCompleted removes all terminal records to bound memory. The sweep
// is irreversible; only the audit sink, if any, retains history.
func (q *Queue) ClearCompleted() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	removed := 0
	for id, op := range q.records {
		if op.Status.IsTerminal() {
			delete(q.records, id)
			delete(q.done, id)
			removed++
		}
	}
	return removed
}

// Shutdown cancels every running operation, waits for their goroutines to
// resolve, then clears all internal state. The queue rejects submissions
// afterwards; construct a new Queue to resume work.
func (q *Queue) Shutdown(ctx context.Context) error {
	var terminal []*model.Operation

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrClosed
	}
	q.closed = true

	for id, cancel := range q.running {
		cancel()
		op := q.records[id]
		if op != nil && !op.Status.IsTerminal() {
			now := time.Now().UTC()
			op.Status = model.StatusCancelled
			op.CompletedAt = &now
			q.done[id].resolveLocked(op)
			terminal = append(terminal, q.done[id].op)
		}
	}
	q.running = make(map[string]context.CancelFunc)
	q.mu.Unlock()

	for _, op := range terminal {
		q.recordAudit(op)
	}

	// Wait for in-flight goroutines; their results are discarded because
	// the records are already terminal.
	waited := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-ctx.Done():
		return ctx.Err()
	}

	q.mu.Lock()
	q.records = make(map[string]*model.Operation)
	q.pending = nil
	q.done = make(map[string]*waiter)
	q.mu.Unlock()

	q.logger.Info("queue shut down")
	return nil
}

// recordAudit forwards a terminal snapshot to the audit sink, if any.
// Audit failures are logged, never propagated into operation state.
func (q *Queue) recordAudit(op *model.Operation) {
	if q.audit == nil {
		return
	}
	if err := q.audit.Record(context.Background(), op); err != nil {
		q.logger.Error("audit record", "operation_id", op.ID, "error", err)
	}
}
