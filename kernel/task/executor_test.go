package task

import "testing"

func TestExecutorRunsRootTaskToCompletion(t *testing.T) {
	polls := 0
	root := NewTask(func(w *Waker) bool {
		polls++
		return true
	}, 10)

	ex, err := NewExecutor(10, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ex.Run()

	if polls != 1 {
		t.Fatalf("expected root task polled once; got %d", polls)
	}
	if ex.Status() != StatusFinished {
		t.Fatalf("expected executor to finish; got status %v", ex.Status())
	}
}

func TestExecutorRespawnsViaWaker(t *testing.T) {
	attempts := 0
	var selfWaker *Waker
	root := NewTask(func(w *Waker) bool {
		attempts++
		if attempts < 3 {
			selfWaker = w
			return false
		}
		return true
	}, 5)

	ex, err := NewExecutor(5, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// First Run drains the queue; a Pending task is never re-enqueued
	// automatically, so the test must simulate the external event that
	// wakes it by calling Wake before the next Run.
	ex.Run()
	if attempts != 1 {
		t.Fatalf("expected 1 attempt after first run; got %d", attempts)
	}
	selfWaker.Wake()
	ex.Run()
	if attempts != 2 {
		t.Fatalf("expected 2 attempts after second run; got %d", attempts)
	}
	selfWaker.Wake()
	ex.Run()
	if attempts != 3 {
		t.Fatalf("expected 3 attempts after third run; got %d", attempts)
	}
}

func TestExecutorSpawnRejectsDuplicateID(t *testing.T) {
	root := NewTask(func(w *Waker) bool { return true }, 0)
	ex, err := NewExecutor(0, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := ex.Spawn(root); err == nil {
		t.Fatal("expected duplicate spawn to be rejected")
	}
}

func TestExecutorStackAllocationIsUnique(t *testing.T) {
	ex1, err := NewExecutor(0, NewTask(func(w *Waker) bool { return true }, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ex2, err := NewExecutor(0, NewTask(func(w *Waker) bool { return true }, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ex1.StackTop() == ex2.StackTop() {
		t.Fatal("expected distinct executors to receive distinct stacks")
	}
	if err := ex1.Release(); err != nil {
		t.Fatalf("unexpected error releasing stack: %v", err)
	}
	if err := ex2.Release(); err != nil {
		t.Fatalf("unexpected error releasing stack: %v", err)
	}
}
