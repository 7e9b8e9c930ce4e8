package branch

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBranch_Submit(t *testing.T) {
	b := NewBranch(2)
	defer b.Shutdown()

	done := make(chan struct{})
	if err := b.Submit(func() { close(done) }); err != nil {
		t.Fatal(err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
}

func TestBranch_SubmitUrgentRunsAheadOfQueued(t *testing.T) {
	// One worker, Blocking strategy so ordering is deterministic: block the
	// single worker on the first task, queue a normal task, then an urgent
	// one, and check the urgent task reports first once the gate opens.
	b := NewBranch(1, WithWaitStrategy(Blocking))
	defer b.Shutdown()

	gate := make(chan struct{})
	order := make(chan string, 2)

	_ = b.Submit(func() { <-gate })
	_ = b.Submit(func() { order <- "normal" })
	_ = b.SubmitUrgent(func() { order <- "urgent" })
	close(gate)

	first := <-order
	if first != "urgent" {
		t.Fatalf("expected urgent task first, got %q", first)
	}
}

func TestBranch_SubmitResult(t *testing.T) {
	b := NewBranch(1)
	defer b.Shutdown()

	ch, err := SubmitResult(b, func() (int, error) { return 42, nil })
	if err != nil {
		t.Fatal(err)
	}
	res := <-ch
	if res.Err != nil || res.Value != 42 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if _, ok := <-ch; ok {
		t.Fatal("result channel should be closed after delivery")
	}
}

func TestBranch_SubmitResultPanic(t *testing.T) {
	b := NewBranch(1)
	defer b.Shutdown()

	ch, _ := SubmitResult(b, func() (int, error) {
		panic("boom")
	})
	res := <-ch
	if res.Err == nil {
		t.Fatal("expected error from panicking task")
	}
	if _, ok := res.Err.(*TaskFailure); !ok {
		t.Fatalf("expected *TaskFailure, got %T", res.Err)
	}
}

func TestBranch_SubmitSequenceFailStop(t *testing.T) {
	b := NewBranch(1)
	defer b.Shutdown()

	var ran []int
	var mu sync.Mutex
	record := func(n int) func() {
		return func() {
			mu.Lock()
			ran = append(ran, n)
			mu.Unlock()
		}
	}
	steps := []func(){
		record(1),
		func() { panic("stop here") },
		record(3),
	}
	done := make(chan struct{})
	err := b.SubmitSequence([]func(){
		steps[0], steps[1], steps[2],
		func() { close(done) },
	})
	if err != nil {
		t.Fatal(err)
	}
	// the close(done) step never runs because the sequence aborts after
	// the panic in step 1; give the worker a moment then check directly.
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	got := append([]int(nil), ran...)
	mu.Unlock()
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected sequence to stop after first step, ran=%v", got)
	}
}

func TestBranch_SubmitSequenceEmpty(t *testing.T) {
	b := NewBranch(1)
	defer b.Shutdown()

	if err := b.SubmitSequence(nil); err != ErrEmptySequence {
		t.Fatalf("expected ErrEmptySequence, got %v", err)
	}
}

func TestBranch_AddDelWorker(t *testing.T) {
	b := NewBranch(2)
	defer b.Shutdown()

	b.AddWorker()
	if n := b.NumWorkers(); n != 3 {
		t.Fatalf("expected 3 workers, got %d", n)
	}
	if err := b.DelWorker(); err != nil {
		t.Fatal(err)
	}
	// DelWorker is cooperative: give a worker a chance to see the decline.
	deadline := time.Now().Add(time.Second)
	for b.NumWorkers() != 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if n := b.NumWorkers(); n != 2 {
		t.Fatalf("expected 2 workers after DelWorker, got %d", n)
	}
}

func TestBranch_DelWorkerEmpty(t *testing.T) {
	b := NewBranch(1)
	_ = b.DelWorker()
	deadline := time.Now().Add(time.Second)
	for b.NumWorkers() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := b.DelWorker(); err != ErrNoWorkers {
		t.Fatalf("expected ErrNoWorkers, got %v", err)
	}
	b.Shutdown()
}

func TestBranch_WaitTasks(t *testing.T) {
	b := NewBranch(3, WithWaitStrategy(Blocking))
	defer b.Shutdown()

	var completed atomic.Int32
	for i := 0; i < 10; i++ {
		_ = b.Submit(func() {
			time.Sleep(5 * time.Millisecond)
			completed.Add(1)
		})
	}
	ok, err := b.WaitTasks(2 * time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("expected WaitTasks to observe quiescence before timeout")
	}
	if completed.Load() != 10 {
		t.Fatalf("expected all 10 tasks to complete, got %d", completed.Load())
	}
	if n := b.NumTasks(); n != 0 {
		t.Fatalf("expected empty queue after WaitTasks, got %d", n)
	}
}

func TestBranch_WaitTasksTimeout(t *testing.T) {
	b := NewBranch(1, WithWaitStrategy(Blocking))
	defer b.Shutdown()

	block := make(chan struct{})
	_ = b.Submit(func() { <-block })
	defer close(block)

	ok, err := b.WaitTasks(20 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected WaitTasks to time out while a task is still running")
	}
}

func TestBranch_WaitTasksZeroReturnsImmediately(t *testing.T) {
	b := NewBranch(1, WithWaitStrategy(Blocking))
	defer b.Shutdown()

	block := make(chan struct{})
	_ = b.Submit(func() { <-block })
	defer close(block)

	start := time.Now()
	ok, err := b.WaitTasks(0)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected WaitTasks(0) to report not-quiesced")
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("expected WaitTasks(0) to return promptly, took %v", elapsed)
	}
}

func TestBranch_WaitTasksRejectsConcurrentCall(t *testing.T) {
	b := NewBranch(1, WithWaitStrategy(Blocking))
	defer b.Shutdown()

	block := make(chan struct{})
	_ = b.Submit(func() { <-block })

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = b.WaitTasks(-1)
	}()
	time.Sleep(20 * time.Millisecond) // let the first WaitTasks take the flag
	_, err := b.WaitTasks(-1)
	close(block)
	wg.Wait()
	if err != ErrWaitInProgress {
		t.Fatalf("expected ErrWaitInProgress, got %v", err)
	}
}

func TestBranch_Shutdown(t *testing.T) {
	b := NewBranch(2)
	var completed atomic.Int32
	for i := 0; i < 5; i++ {
		_ = b.Submit(func() {
			time.Sleep(10 * time.Millisecond)
			completed.Add(1)
		})
	}
	b.Shutdown()
	// Shutdown declines every worker immediately; only the tasks already
	// in flight (at most one per worker) finish, and the rest of the
	// queue is discarded rather than drained.
	if n := completed.Load(); n > 2 {
		t.Fatalf("expected at most the 2 in-flight tasks to finish, got %d", n)
	}
	if n := b.NumTasks(); n == 0 {
		t.Fatal("expected queued-but-unpopped tasks to remain discarded, not drained")
	}
	if err := b.Submit(func() {}); err != ErrClosed {
		t.Fatalf("expected ErrClosed after Shutdown, got %v", err)
	}
}

func TestBranch_WaitStrategies(t *testing.T) {
	for _, strategy := range []WaitStrategy{LowLatency, Balance, Blocking} {
		strategy := strategy
		t.Run(strategyName(strategy), func(t *testing.T) {
			b := NewBranch(2, WithWaitStrategy(strategy))
			defer b.Shutdown()

			done := make(chan struct{})
			if err := b.Submit(func() { close(done) }); err != nil {
				t.Fatal(err)
			}
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("task never ran")
			}
		})
	}
}

func strategyName(s WaitStrategy) string {
	switch s {
	case LowLatency:
		return "LowLatency"
	case Balance:
		return "Balance"
	case Blocking:
		return "Blocking"
	default:
		return "unknown"
	}
}
