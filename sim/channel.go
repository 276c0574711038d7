// Keyed channel: a bounded FIFO of records ordered by an integer
// priority key. Receivers ask for the lowest-keyed record whose key
// does not exceed a bound, which is what gives VIPs and red patients
// their precedence.

package sim

import (
	"container/heap"
	"context"
	"errors"
	"sync"
)

var (
	// ErrChanFull is returned by TrySend when the channel is at capacity.
	// It is the retryable saturation indication.
	ErrChanFull = errors.New("channel full")

	// ErrChanDestroyed is returned once the channel has been torn down.
	// Senders treat it as permanent; receivers treat it as a stop.
	ErrChanDestroyed = errors.New("channel destroyed")
)

// Keyed is anything carrying a priority key. Smaller keys are
// delivered first.
type Keyed interface {
	PriorityKey() int64
}

// item pairs a record with its arrival sequence for FIFO order
// within equal keys.
type item[T Keyed] struct {
	val T
	seq uint64
}

// keyHeap orders by key, then arrival sequence. The deterministic
// tie-break keeps equal-key records strictly FIFO.
type keyHeap[T Keyed] struct {
	items []item[T]
}

func (h *keyHeap[T]) Len() int { return len(h.items) }

func (h *keyHeap[T]) Less(i, j int) bool {
	ki, kj := h.items[i].val.PriorityKey(), h.items[j].val.PriorityKey()
	if ki != kj {
		return ki < kj
	}
	return h.items[i].seq < h.items[j].seq
}

func (h *keyHeap[T]) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
}

func (h *keyHeap[T]) Push(x any) {
	h.items = append(h.items, x.(item[T]))
}

func (h *keyHeap[T]) Pop() any {
	old := h.items
	n := len(old)
	it := old[n-1]
	h.items = old[:n-1]
	return it
}

// Chan is a bounded keyed channel. Sends never block: TrySend reports
// saturation and the caller retries. Receives block until a matching
// record arrives, the context is canceled, or the channel is
// destroyed.
type Chan[T Keyed] struct {
	mu        sync.Mutex
	notEmpty  *sync.Cond
	h         keyHeap[T]
	capacity  int
	seq       uint64
	destroyed bool
}

// NewChan creates a channel holding at most capacity records.
func NewChan[T Keyed](capacity int) *Chan[T] {
	if capacity <= 0 {
		panic("NewChan: capacity must be > 0")
	}
	c := &Chan[T]{capacity: capacity}
	c.notEmpty = sync.NewCond(&c.mu)
	return c
}

// TrySend enqueues v without blocking. Returns ErrChanFull at
// capacity and ErrChanDestroyed after teardown.
func (c *Chan[T]) TrySend(v T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return ErrChanDestroyed
	}
	if c.h.Len() >= c.capacity {
		return ErrChanFull
	}
	heap.Push(&c.h, item[T]{val: v, seq: c.seq})
	c.seq++
	// Broadcast, not Signal: concurrent receivers may hold different
	// key bounds and a single wakeup could land on a non-matching one.
	c.notEmpty.Broadcast()
	return nil
}

// Receive blocks until a record with key <= maxKey is available and
// returns the lowest-keyed such record, FIFO within equal keys.
// Returns ctx.Err() on cancelation and ErrChanDestroyed after
// teardown; both are normal shutdown paths for an actor.
func (c *Chan[T]) Receive(ctx context.Context, maxKey int64) (T, error) {
	var zero T

	// Wake the cond wait when the context goes away.
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		c.notEmpty.Broadcast()
		c.mu.Unlock()
	})
	defer stop()

	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if c.destroyed {
			return zero, ErrChanDestroyed
		}
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		// The heap root is the global minimum, so it is deliverable
		// iff any record is.
		if c.h.Len() > 0 && c.h.items[0].val.PriorityKey() <= maxKey {
			it := heap.Pop(&c.h).(item[T])
			return it.val, nil
		}
		c.notEmpty.Wait()
	}
}

// TryReceive is the non-blocking variant, used by drains and tests.
func (c *Chan[T]) TryReceive(maxKey int64) (T, bool) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed || c.h.Len() == 0 || c.h.items[0].val.PriorityKey() > maxKey {
		return zero, false
	}
	it := heap.Pop(&c.h).(item[T])
	return it.val, true
}

// Depth returns the number of queued records.
func (c *Chan[T]) Depth() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.h.Len()
}

// Destroy tears the channel down. Pending records are discarded and
// every blocked receiver wakes with ErrChanDestroyed. Idempotent.
func (c *Chan[T]) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return
	}
	c.destroyed = true
	c.h.items = nil
	c.notEmpty.Broadcast()
}
