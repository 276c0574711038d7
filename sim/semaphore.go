// Counting semaphore for waiting-room seats. The kernel-side probe
// (Value) and the forced realignment (Reset) are part of the
// contract, which is why this is not x/sync's Weighted.

package sim

import (
	"context"
	"errors"
	"sync"
)

// ErrSemDestroyed is returned by Acquire after teardown.
var ErrSemDestroyed = errors.New("semaphore destroyed")

// Semaphore is a counting semaphore. The value is the number of free
// waiting-room seats.
type Semaphore struct {
	mu        sync.Mutex
	nonZero   *sync.Cond
	value     int
	destroyed bool
}

// NewSemaphore creates a semaphore with n initial units.
func NewSemaphore(n int) *Semaphore {
	if n < 0 {
		panic("NewSemaphore: n must be >= 0")
	}
	s := &Semaphore{value: n}
	s.nonZero = sync.NewCond(&s.mu)
	return s
}

// Acquire takes one unit, blocking until one is free. Returns
// ctx.Err() on cancelation and ErrSemDestroyed after teardown.
// Multi-seat callers loop; the acquisitions are deliberately not
// atomic across seats.
func (s *Semaphore) Acquire(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		s.nonZero.Broadcast()
		s.mu.Unlock()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if s.destroyed {
			return ErrSemDestroyed
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if s.value > 0 {
			s.value--
			return nil
		}
		s.nonZero.Wait()
	}
}

// TryAcquire takes one unit without blocking.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed || s.value == 0 {
		return false
	}
	s.value--
	return true
}

// Release returns n units.
func (s *Semaphore) Release(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.value += n
	s.nonZero.Broadcast()
}

// Value reports the current number of free units.
func (s *Semaphore) Value() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Reset forces the value to v. Only the monitor's reconcile guardrail
// calls this.
func (s *Semaphore) Reset(v int) {
	if v < 0 {
		v = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.value = v
	s.nonZero.Broadcast()
}

// Destroy tears the semaphore down and wakes every blocked acquirer.
// Idempotent.
func (s *Semaphore) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.destroyed {
		return
	}
	s.destroyed = true
	s.nonZero.Broadcast()
}
