package attempt_test

import (
	"sync/atomic"
	"testing"
	"time"

	"edubridge_backend/internal/attempt"
)

func TestSchedulerFiresExpiryOnce(t *testing.T) {
	store := attempt.NewStore(1, 1) // 60 秒

	var fired int32
	expired := make(chan struct{})
	scheduler := attempt.StartScheduler(time.Millisecond, store, func() {
		if atomic.AddInt32(&fired, 1) == 1 {
			close(expired)
		}
	})
	defer scheduler.Stop()

	select {
	case <-expired:
	case <-time.After(5 * time.Second):
		t.Fatal("countdown never expired")
	}

	select {
	case <-scheduler.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler goroutine did not stand down after expiry")
	}

	if got := atomic.LoadInt32(&fired); got != 1 {
		t.Fatalf("expected expiry callback once, got %d", got)
	}
	if state := store.State(); state.RemainingSeconds != 0 {
		t.Fatalf("expected countdown at zero, got %d", state.RemainingSeconds)
	}
}

func TestSchedulerStandsDownAfterSubmission(t *testing.T) {
	store := attempt.NewStore(1, 10)

	scheduler := attempt.StartScheduler(time.Millisecond, store, func() {
		t.Error("expiry fired after submission began")
	})
	defer scheduler.Stop()

	if _, err := store.BeginSubmission(); err != nil {
		t.Fatalf("begin submission failed: %v", err)
	}

	select {
	case <-scheduler.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler kept running after phase left active")
	}
}

func TestSchedulerStopIdempotent(t *testing.T) {
	store := attempt.NewStore(1, 10)
	scheduler := attempt.StartScheduler(time.Hour, store, func() {})

	scheduler.Stop()
	scheduler.Stop()

	select {
	case <-scheduler.Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not exit after stop")
	}
}
