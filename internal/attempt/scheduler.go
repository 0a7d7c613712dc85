package attempt

import (
	"sync"
	"time"
)

// Scheduler drives the countdown for one attempt. It owns a single goroutine
// that ticks the store once per interval while the attempt stays Active, and
// fires the auto-submit callback when the countdown hits zero. The goroutine
// stands down on its own when the phase leaves Active (manual submit), and
// Stop covers the teardown path; both are safe to combine.
type Scheduler struct {
	stop chan struct{}
	once sync.Once
	done chan struct{}
}

// StartScheduler begins ticking immediately. onExpire runs at most once, on
// the scheduler goroutine, when remaining time reaches zero while Active.
func StartScheduler(interval time.Duration, store *Store, onExpire func()) *Scheduler {
	s := &Scheduler{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				remaining, active := store.Tick()
				if !active {
					return
				}
				if remaining == 0 {
					onExpire()
					return
				}
			}
		}
	}()

	return s
}

// Stop cancels the countdown. Idempotent. A tick already in flight is
// harmless: Store.Tick is a no-op once the phase has left Active.
func (s *Scheduler) Stop() {
	s.once.Do(func() { close(s.stop) })
}

// Done is closed when the tick goroutine has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}
