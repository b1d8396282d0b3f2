package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/me/docbatch/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestQueue(maxConcurrent int, opts ...Option) *Queue {
	logger := testLogger()
	return New(Config{MaxConcurrent: maxConcurrent}, NewRegistry(logger), logger, opts...)
}

// stubHandler routes every Invoke to a single function.
type stubHandler struct {
	fn func(ctx context.Context, method string, args map[string]any) (any, error)
}

func (h *stubHandler) Invoke(ctx context.Context, method string, args map[string]any) (any, error) {
	return h.fn(ctx, method, args)
}

// echoHandler completes instantly and returns the "marker" arg.
func echoHandler() Handler {
	return &stubHandler{fn: func(_ context.Context, _ string, args map[string]any) (any, error) {
		return args["marker"], nil
	}}
}

func req(handler, method string, priority int, marker string) model.OperationRequest {
	return model.OperationRequest{
		Type:     model.TypeSpreadsheet,
		Handler:  handler,
		Method:   method,
		Args:     map[string]any{"marker": marker},
		Priority: priority,
	}
}

func TestAdd_CompletesOperation(t *testing.T) {
	q := newTestQueue(2)
	q.Registry().Register("sheet", echoHandler())

	id, err := q.Add(req("sheet", "write_cell", 0, "hello"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}

	op, err := q.Wait(context.Background(), id, time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if op.Status != model.StatusCompleted {
		t.Errorf("status = %s, want completed", op.Status)
	}
	if op.Result != "hello" {
		t.Errorf("result = %v, want hello", op.Result)
	}
	if op.Error != "" {
		t.Errorf("error = %q, want empty", op.Error)
	}
	if op.StartedAt == nil || op.CompletedAt == nil {
		t.Error("expected started_at and completed_at to be stamped")
	}
}

// TestAdmission_PriorityOrder fills both concurrency slots, submits
// operations with priorities [1,5,1,5,1], and releases one running
// operation at a time. Admission must follow priority descending with
// submission order breaking ties: b, d, a, c, e.
func TestAdmission_PriorityOrder(t *testing.T) {
	q := newTestQueue(2)

	starts := make(chan string, 16)
	release := map[string]chan struct{}{}
	for _, m := range []string{"f1", "f2", "a", "b", "c", "d", "e"} {
		release[m] = make(chan struct{})
	}
	q.Registry().Register("sheet", &stubHandler{fn: func(ctx context.Context, _ string, args map[string]any) (any, error) {
		marker := args["marker"].(string)
		starts <- marker
		select {
		case <-release[marker]:
		case <-ctx.Done():
		}
		return marker, nil
	}})

	mustStart := func(want string) {
		t.Helper()
		select {
		case got := <-starts:
			if got != want {
				t.Fatalf("admitted %q, want %q", got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for %q to start", want)
		}
	}

	// Occupy both slots. The filler goroutines may reach the handler in
	// either order; only that both start matters.
	fillers := map[string]bool{"f1": true, "f2": true}
	for m := range fillers {
		if _, err := q.Add(req("sheet", "noop", 10, m)); err != nil {
			t.Fatalf("Add(%s): %v", m, err)
		}
	}
	for i := 0; i < 2; i++ {
		select {
		case got := <-starts:
			if !fillers[got] {
				t.Fatalf("admitted %q before the fillers finished starting", got)
			}
			delete(fillers, got)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for fillers to start")
		}
	}

	// Scenario: priorities [1,5,1,5,1] submitted as a,b,c,d,e.
	ids := make([]string, 0, 5)
	for _, spec := range []struct {
		marker   string
		priority int
	}{
		{"a", 1}, {"b", 5}, {"c", 1}, {"d", 5}, {"e", 1},
	} {
		id, err := q.Add(req("sheet", "noop", spec.priority, spec.marker))
		if err != nil {
			t.Fatalf("Add(%s): %v", spec.marker, err)
		}
		ids = append(ids, id)
	}

	// Each release frees exactly one slot; the next admission must be the
	// highest-priority pending operation, earliest submission first.
	close(release["f1"])
	mustStart("b")
	close(release["f2"])
	mustStart("d")
	close(release["b"])
	mustStart("a")
	close(release["d"])
	mustStart("c")
	close(release["a"])
	mustStart("e")
	close(release["c"])
	close(release["e"])

	if _, err := q.WaitAll(context.Background(), ids, time.Second); err != nil {
		t.Fatalf("WaitAll: %v", err)
	}
}

func TestConcurrencyBound(t *testing.T) {
	const maxConcurrent = 2
	q := newTestQueue(maxConcurrent)

	var inFlight, peak int64
	q.Registry().Register("sheet", &stubHandler{fn: func(context.Context, string, map[string]any) (any, error) {
		n := atomic.AddInt64(&inFlight, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt64(&inFlight, -1)
		return nil, nil
	}})

	ids := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		id, err := q.Add(req("sheet", "noop", 0, fmt.Sprintf("op%d", i)))
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		ids = append(ids, id)
	}

	ops, err := q.WaitAll(context.Background(), ids, 5*time.Second)
	if err != nil {
		t.Fatalf("WaitAll: %v", err)
	}
	for _, op := range ops {
		if op.Status != model.StatusCompleted {
			t.Errorf("operation %s status = %s, want completed", op.ID, op.Status)
		}
	}
	if p := atomic.LoadInt64(&peak); p > maxConcurrent {
		t.Errorf("peak concurrency = %d, exceeds bound %d", p, maxConcurrent)
	}
}

func TestCancel_Pending(t *testing.T) {
	q := newTestQueue(1)

	var executed sync.Map
	blocked := make(chan struct{})
	started := make(chan struct{}, 1)
	q.Registry().Register("sheet", &stubHandler{fn: func(ctx context.Context, _ string, args map[string]any) (any, error) {
		executed.Store(args["marker"], true)
		if args["marker"] == "blocker" {
			started <- struct{}{}
			<-blocked
		}
		return nil, nil
	}})

	if _, err := q.Add(req("sheet", "noop", 0, "blocker")); err != nil {
		t.Fatalf("Add blocker: %v", err)
	}
	<-started

	victim, err := q.Add(req("sheet", "noop", 0, "victim"))
	if err != nil {
		t.Fatalf("Add victim: %v", err)
	}

	if !q.Cancel(victim) {
		t.Fatal("Cancel(pending) = false, want true")
	}
	op, err := q.Status(victim)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if op.Status != model.StatusCancelled {
		t.Errorf("status = %s, want cancelled", op.Status)
	}

	close(blocked)
	if _, err := q.Wait(context.Background(), victim, time.Second); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if _, ran := executed.Load("victim"); ran {
		t.Error("cancelled pending operation was executed")
	}
}

func TestCancel_UnknownAndTerminal(t *testing.T) {
	q := newTestQueue(2)
	q.Registry().Register("sheet", echoHandler())

	if q.Cancel("op_nope") {
		t.Error("Cancel(unknown) = true, want false")
	}

	id, _ := q.Add(req("sheet", "noop", 0, "x"))
	if _, err := q.Wait(context.Background(), id, time.Second); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if q.Cancel(id) {
		t.Error("Cancel(terminal) = true, want false")
	}
	op, _ := q.Status(id)
	if op.Status != model.StatusCompleted {
		t.Errorf("status mutated by rejected cancel: %s", op.Status)
	}
}

// TestCancel_RunningDiscardsLateResult verifies that cancelled wins the
// race with natural completion: a result arriving after Cancel is dropped.
func TestCancel_RunningDiscardsLateResult(t *testing.T) {
	q := newTestQueue(1)

	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})
	q.Registry().Register("sheet", &stubHandler{fn: func(context.Context, string, map[string]any) (any, error) {
		close(started)
		<-release
		defer close(finished)
		return "late result", nil
	}})

	id, err := q.Add(req("sheet", "noop", 0, "x"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	<-started

	if !q.Cancel(id) {
		t.Fatal("Cancel(running) = false, want true")
	}
	op, _ := q.Status(id)
	if op.Status != model.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", op.Status)
	}

	// Let the handler return its result after cancellation.
	close(release)
	<-finished
	time.Sleep(20 * time.Millisecond)

	op, _ = q.Status(id)
	if op.Status != model.StatusCancelled {
		t.Errorf("late completion overwrote cancelled: %s", op.Status)
	}
	if op.Result != nil {
		t.Errorf("late result written back: %v", op.Result)
	}
}

func TestWait_Timeout(t *testing.T) {
	q := newTestQueue(1)

	release := make(chan struct{})
	q.Registry().Register("sheet", &stubHandler{fn: func(ctx context.Context, _ string, _ map[string]any) (any, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, nil
	}})

	id, _ := q.Add(req("sheet", "noop", 0, "x"))

	_, err := q.Wait(context.Background(), id, 30*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Wait error = %v, want ErrTimeout", err)
	}

	// A wait timeout must not cancel the operation.
	op, _ := q.Status(id)
	if op.Status != model.StatusRunning {
		t.Errorf("status after wait timeout = %s, want running", op.Status)
	}
	close(release)
}

func TestWait_UnknownID(t *testing.T) {
	q := newTestQueue(1)
	if _, err := q.Wait(context.Background(), "op_missing", time.Second); !errors.Is(err, ErrNotFound) {
		t.Errorf("Wait error = %v, want ErrNotFound", err)
	}
	if _, err := q.Status("op_missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Status error = %v, want ErrNotFound", err)
	}
}

func TestAddBatch_PreservesOrder(t *testing.T) {
	q := newTestQueue(2)
	q.Registry().Register("sheet", echoHandler())

	reqs := []model.OperationRequest{
		req("sheet", "noop", 0, "one"),
		req("sheet", "noop", 0, "two"),
		req("sheet", "noop", 0, "three"),
	}
	ids, err := q.AddBatch(reqs)
	if err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if len(ids) != len(reqs) {
		t.Fatalf("got %d ids, want %d", len(ids), len(reqs))
	}

	ops, err := q.WaitAll(context.Background(), ids, time.Second)
	if err != nil {
		t.Fatalf("WaitAll: %v", err)
	}
	for i, want := range []string{"one", "two", "three"} {
		if ops[i].Result != want {
			t.Errorf("ops[%d].Result = %v, want %s", i, ops[i].Result, want)
		}
	}
}

func TestExecute_HandlerNotRegistered(t *testing.T) {
	q := newTestQueue(1)

	id, _ := q.Add(req("ghost", "noop", 0, "x"))
	op, err := q.Wait(context.Background(), id, time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if op.Status != model.StatusFailed {
		t.Errorf("status = %s, want failed", op.Status)
	}
	if !strings.Contains(op.Error, "not registered") {
		t.Errorf("error = %q, want handler lookup failure", op.Error)
	}
}

func TestExecute_UnknownMethod(t *testing.T) {
	q := newTestQueue(1)
	q.Registry().Register("sheet", &stubHandler{fn: func(_ context.Context, method string, _ map[string]any) (any, error) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}})

	id, _ := q.Add(req("sheet", "no_such_method", 0, "x"))
	op, err := q.Wait(context.Background(), id, time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if op.Status != model.StatusFailed {
		t.Errorf("status = %s, want failed", op.Status)
	}
	if !strings.Contains(op.Error, "unknown method") {
		t.Errorf("error = %q, want unknown method failure", op.Error)
	}
}

func TestExecute_HandlerPanicFailsOperation(t *testing.T) {
	q := newTestQueue(1)
	q.Registry().Register("sheet", &stubHandler{fn: func(context.Context, string, map[string]any) (any, error) {
		panic("boom")
	}})

	id, _ := q.Add(req("sheet", "noop", 0, "x"))
	op, err := q.Wait(context.Background(), id, time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if op.Status != model.StatusFailed {
		t.Errorf("status = %s, want failed", op.Status)
	}
	if !strings.Contains(op.Error, "panic") {
		t.Errorf("error = %q, want panic description", op.Error)
	}
}

// TestStats_Accounting exercises pending+running+completed+failed+cancelled
// = total across a mixed population.
func TestStats_Accounting(t *testing.T) {
	q := newTestQueue(1)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	q.Registry().Register("sheet", &stubHandler{fn: func(ctx context.Context, method string, _ map[string]any) (any, error) {
		if method == "block" {
			started <- struct{}{}
			select {
			case <-release:
			case <-ctx.Done():
			}
		}
		if method == "fail" {
			return nil, errors.New("simulated failure")
		}
		return nil, nil
	}})

	// One completed, one failed.
	done1, _ := q.Add(req("sheet", "noop", 0, "done"))
	if _, err := q.Wait(context.Background(), done1, time.Second); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	failed1, _ := q.Add(req("sheet", "fail", 0, "fail"))
	if _, err := q.Wait(context.Background(), failed1, time.Second); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	// One running (occupies the single slot), two pending, one of which
	// gets cancelled.
	q.Add(req("sheet", "block", 0, "blocker"))
	<-started
	q.Add(req("sheet", "noop", 0, "queued"))
	victim, _ := q.Add(req("sheet", "noop", 0, "victim"))
	q.Cancel(victim)

	stats := q.Stats()
	if stats.Total != 5 {
		t.Errorf("total = %d, want 5", stats.Total)
	}
	if stats.Completed != 1 || stats.Failed != 1 || stats.Running != 1 || stats.Pending != 1 || stats.Cancelled != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if sum := stats.Pending + stats.Running + stats.Completed + stats.Failed + stats.Cancelled; sum != stats.Total {
		t.Errorf("status counts sum to %d, total is %d", sum, stats.Total)
	}
	if stats.MaxConcurrent != 1 {
		t.Errorf("max_concurrent = %d, want 1", stats.MaxConcurrent)
	}
	if stats.QueueLength != 1 {
		t.Errorf("queue_length = %d, want 1", stats.QueueLength)
	}

	close(release)
}

func TestClearCompleted(t *testing.T) {
	q := newTestQueue(2)
	q.Registry().Register("sheet", echoHandler())

	ids, _ := q.AddBatch([]model.OperationRequest{
		req("sheet", "noop", 0, "a"),
		req("sheet", "noop", 0, "b"),
	})
	if _, err := q.WaitAll(context.Background(), ids, time.Second); err != nil {
		t.Fatalf("WaitAll: %v", err)
	}

	if removed := q.ClearCompleted(); removed != 2 {
		t.Errorf("ClearCompleted removed %d, want 2", removed)
	}
	if stats := q.Stats(); stats.Total != 0 {
		t.Errorf("total after sweep = %d, want 0", stats.Total)
	}
	if _, err := q.Status(ids[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("swept operation still queryable: %v", err)
	}
}

// A Wait that is already blocked when its operation finishes must report
// the outcome even if a sweep removes the record before the waiter wakes.
func TestWait_OutcomeSurvivesSweep(t *testing.T) {
	q := newTestQueue(1)

	started := make(chan struct{})
	release := make(chan struct{})
	q.Registry().Register("sheet", &stubHandler{fn: func(context.Context, string, map[string]any) (any, error) {
		close(started)
		<-release
		return "kept", nil
	}})

	id, err := q.Add(req("sheet", "noop", 0, "x"))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	<-started

	// Hold the completion handle the way a blocked Wait does, then let
	// the operation finish and sweep it before reading the outcome.
	q.mu.Lock()
	w := q.done[id]
	q.mu.Unlock()

	close(release)
	select {
	case <-w.ch:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for completion")
	}
	if removed := q.ClearCompleted(); removed != 1 {
		t.Fatalf("ClearCompleted removed %d, want 1", removed)
	}

	if w.op == nil {
		t.Fatal("completion handle carries no snapshot")
	}
	if w.op.Status != model.StatusCompleted || w.op.Result != "kept" {
		t.Errorf("snapshot after sweep = %s/%v, want completed/kept", w.op.Status, w.op.Result)
	}

	// A Wait entered after the sweep has no record to find.
	if _, err := q.Wait(context.Background(), id, time.Second); !errors.Is(err, ErrNotFound) {
		t.Errorf("Wait after sweep: %v, want ErrNotFound", err)
	}
}

// TestShutdown_CancelsRunning covers the shutdown scenario: three
// operations in flight, all resolved (cancelled or completed) afterwards,
// zero running in a subsequent stats snapshot.
func TestShutdown_CancelsRunning(t *testing.T) {
	q := newTestQueue(3)

	started := make(chan struct{}, 3)
	q.Registry().Register("sheet", &stubHandler{fn: func(ctx context.Context, _ string, _ map[string]any) (any, error) {
		started <- struct{}{}
		<-ctx.Done()
		return nil, ctx.Err()
	}})

	for i := 0; i < 3; i++ {
		if _, err := q.Add(req("sheet", "block", 0, fmt.Sprintf("op%d", i))); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		<-started
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	stats := q.Stats()
	if stats.Running != 0 {
		t.Errorf("running after shutdown = %d, want 0", stats.Running)
	}
	if stats.Total != 0 {
		t.Errorf("total after shutdown = %d, want 0", stats.Total)
	}

	if _, err := q.Add(req("sheet", "noop", 0, "x")); !errors.Is(err, ErrClosed) {
		t.Errorf("Add after shutdown error = %v, want ErrClosed", err)
	}
	if err := q.Shutdown(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("second Shutdown error = %v, want ErrClosed", err)
	}
}

// captureSink collects audited operations.
type captureSink struct {
	mu  sync.Mutex
	ops []*model.Operation
}

func (s *captureSink) Record(_ context.Context, op *model.Operation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, op)
	return nil
}

func (s *captureSink) statuses() map[model.OperationStatus]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[model.OperationStatus]int{}
	for _, op := range s.ops {
		counts[op.Status]++
	}
	return counts
}

func TestAudit_RecordsTerminalTransitions(t *testing.T) {
	sink := &captureSink{}
	q := newTestQueue(1, WithAudit(sink))
	q.Registry().Register("sheet", &stubHandler{fn: func(_ context.Context, method string, _ map[string]any) (any, error) {
		if method == "fail" {
			return nil, errors.New("simulated failure")
		}
		return "ok", nil
	}})

	ok, _ := q.Add(req("sheet", "noop", 0, "ok"))
	bad, _ := q.Add(req("sheet", "fail", 0, "bad"))
	if _, err := q.WaitAll(context.Background(), []string{ok, bad}, time.Second); err != nil {
		t.Fatalf("WaitAll: %v", err)
	}

	// Cancelled operations are audited too. Use a fresh pending one.
	blockRelease := make(chan struct{})
	blockStarted := make(chan struct{}, 1)
	q.Registry().Register("slow", &stubHandler{fn: func(ctx context.Context, _ string, _ map[string]any) (any, error) {
		blockStarted <- struct{}{}
		select {
		case <-blockRelease:
		case <-ctx.Done():
		}
		return nil, nil
	}})
	q.Add(model.OperationRequest{Type: model.TypeSpreadsheet, Handler: "slow", Method: "block"})
	<-blockStarted
	victim, _ := q.Add(req("sheet", "noop", 0, "victim"))
	q.Cancel(victim)
	close(blockRelease)

	deadline := time.Now().Add(time.Second)
	for {
		counts := sink.statuses()
		if counts[model.StatusCompleted] >= 2 && counts[model.StatusFailed] == 1 && counts[model.StatusCancelled] == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("audit counts never converged: %v", counts)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
