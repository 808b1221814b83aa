package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSubmitRunsInOrder(t *testing.T) {
	e := New(1, nil)
	var mu sync.Mutex
	var order []int
	for i := 0; i < 50; i++ {
		i := i
		if !e.Submit("job", func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}) {
			t.Fatal("Submit returned false on an open executor")
		}
	}
	e.Wait()

	if len(order) != 50 {
		t.Fatalf("ran %d jobs, want 50", len(order))
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("job %d ran at position %d", v, i)
		}
	}
}

func TestSubmitDoesNotBlock(t *testing.T) {
	e := New(1, nil)
	release := make(chan struct{})
	e.Submit("blocker", func(ctx context.Context) error {
		<-release
		return nil
	})

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			e.Submit("queued", func(ctx context.Context) error { return nil })
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked behind a running job")
	}
	close(release)
	e.Wait()
}

func TestBoundedConcurrency(t *testing.T) {
	const workers = 3
	e := New(workers, nil)
	var current, peak int32
	for i := 0; i < 30; i++ {
		e.Submit("job", func(ctx context.Context) error {
			n := atomic.AddInt32(&current, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&current, -1)
			return nil
		})
	}
	e.Wait()
	if peak > workers {
		t.Fatalf("peak concurrency %d exceeds %d", peak, workers)
	}
}

func TestErrorsAndPanics(t *testing.T) {
	e := New(1, nil)
	boom := errors.New("boom")
	e.Submit("fails", func(ctx context.Context) error { return boom })
	e.Submit("panics", func(ctx context.Context) error { panic("oops") })
	e.Submit("ok", func(ctx context.Context) error { return nil })
	e.Wait()

	errs := e.Errors()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	if !errors.Is(errs[0], boom) {
		t.Errorf("first error should wrap boom, got %v", errs[0])
	}

	s := e.Stats()
	if s.Submitted != 3 || s.Completed != 3 || s.Failed != 2 {
		t.Errorf("unexpected stats: %+v", s)
	}
}

func TestErrorHistoryIsBounded(t *testing.T) {
	e := New(1, nil)
	for i := 0; i < maxRecentErrors+10; i++ {
		e.Submit("fails", func(ctx context.Context) error { return errors.New("x") })
	}
	e.Wait()
	if got := len(e.Errors()); got != maxRecentErrors {
		t.Fatalf("kept %d errors, want %d", got, maxRecentErrors)
	}
}

func TestCloseDrainsAndRejects(t *testing.T) {
	e := New(1, nil)
	var ran int32
	for i := 0; i < 10; i++ {
		e.Submit("job", func(ctx context.Context) error {
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&ran, 1)
			return nil
		})
	}
	e.Close()
	if ran != 10 {
		t.Fatalf("Close returned before queued jobs finished: ran %d", ran)
	}
	if e.Submit("late", func(ctx context.Context) error { return nil }) {
		t.Fatal("Submit after Close returned true")
	}
}

func TestJobContextIsDetached(t *testing.T) {
	e := New(1, nil)
	var jobErr error
	e.Submit("job", func(ctx context.Context) error {
		jobErr = ctx.Err()
		return nil
	})
	e.Wait()
	if jobErr != nil {
		t.Fatalf("job context should not be cancelled, got %v", jobErr)
	}
}
