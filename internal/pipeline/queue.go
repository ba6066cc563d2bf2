package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Policy selects what Push does when a bounded queue is full.
type Policy int

const (
	// PolicyNone is only valid for unbounded queues.
	PolicyNone Policy = iota

	// Block makes Push wait for space.
	Block

	// DropOldest makes Push evict the oldest item.
	DropOldest
)

// String returns the config spelling of the policy.
func (p Policy) String() string {
	switch p {
	case Block:
		return "block"
	case DropOldest:
		return "drop_oldest"
	default:
		return "none"
	}
}

// ParsePolicy converts a config value ("block", "drop_oldest", or empty).
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "":
		return PolicyNone, nil
	case "block":
		return Block, nil
	case "drop_oldest":
		return DropOldest, nil
	default:
		return PolicyNone, fmt.Errorf("pipeline: unknown overflow policy %q", s)
	}
}

// Options configures a Queue.
type Options struct {
	// Capacity limits the queue length. Zero means unbounded.
	Capacity int

	// Overflow is required when Capacity > 0.
	Overflow Policy
}

// Stats is a point-in-time view of queue counters.
type Stats struct {
	Depth    int    `json:"depth"`
	Capacity int    `json:"capacity"`
	Pushed   uint64 `json:"pushed"`
	Dropped  uint64 `json:"dropped"`
	Popped   uint64 `json:"popped"`
}

// Queue is a FIFO hand-off between producers and one consumer.
//
// Thread Safety: all methods are safe for concurrent use.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	policy   Policy
	closed   bool
	onDrop   func(T)

	ready chan struct{} // items available
	space chan struct{} // room available (bounded only)
	done  chan struct{} // closed by Close

	closeOnce sync.Once

	pushed  atomic.Uint64
	dropped atomic.Uint64
	popped  atomic.Uint64
}

// New creates a queue.
func New[T any](opts Options) (*Queue[T], error) {
	if opts.Capacity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, opts.Capacity)
	}
	if opts.Capacity > 0 && opts.Overflow != Block && opts.Overflow != DropOldest {
		return nil, fmt.Errorf("%w: capacity %d", ErrPolicyRequired, opts.Capacity)
	}

	return &Queue[T]{
		capacity: opts.Capacity,
		policy:   opts.Overflow,
		ready:    make(chan struct{}, 1),
		space:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// OnDrop sets a callback for items evicted by DropOldest. It runs on the
// producer goroutine, outside the queue lock.
func (q *Queue[T]) OnDrop(fn func(item T)) {
	q.mu.Lock()
	q.onDrop = fn
	q.mu.Unlock()
}

// Push appends item to the tail.
//
// With Block it waits while the queue is full; with DropOldest it evicts the
// head instead. It returns ErrClosed after Close and ctx.Err() if ctx ends
// while waiting.
func (q *Queue[T]) Push(ctx context.Context, item T) error {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return ErrClosed
		}

		if q.capacity == 0 || len(q.items) < q.capacity {
			q.items = append(q.items, item)
			roomLeft := q.capacity > 0 && len(q.items) < q.capacity
			q.mu.Unlock()

			q.pushed.Add(1)
			notify(q.ready)
			if roomLeft {
				// Pass the wake-up on to the next blocked producer.
				notify(q.space)
			}
			return nil
		}

		if q.policy == DropOldest {
			evicted := q.items[0]
			var zero T
			q.items[0] = zero
			q.items = append(q.items[1:], item)
			onDrop := q.onDrop
			q.mu.Unlock()

			q.pushed.Add(1)
			q.dropped.Add(1)
			if onDrop != nil {
				onDrop(evicted)
			}
			notify(q.ready)
			return nil
		}
		q.mu.Unlock()

		select {
		case <-q.space:
		case <-q.done:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Pop removes and returns the head, waiting while the queue is empty.
//
// Items pushed before Close are still returned; after that Pop returns
// ErrClosed.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	for {
		q.mu.Lock()
		if n := len(q.items); n > 0 {
			item := q.items[0]
			q.items[0] = zero
			if n == 1 {
				q.items = q.items[:0]
			} else {
				q.items = q.items[1:]
			}
			remaining := n - 1
			q.mu.Unlock()

			q.popped.Add(1)
			notify(q.space)
			if remaining > 0 {
				notify(q.ready)
			}
			return item, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return zero, ErrClosed
		}

		select {
		case <-q.ready:
		case <-q.done:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Close stops accepting items. Items already queued can still be popped.
// Calling Close more than once is harmless.
func (q *Queue[T]) Close() {
	q.closeOnce.Do(func() {
		q.mu.Lock()
		q.closed = true
		q.mu.Unlock()
		close(q.done)
	})
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Capacity returns the configured capacity (0 for unbounded).
func (q *Queue[T]) Capacity() int {
	return q.capacity
}

// Policy returns the configured overflow policy.
func (q *Queue[T]) Policy() Policy {
	return q.policy
}

// Stats returns the queue counters.
func (q *Queue[T]) Stats() Stats {
	return Stats{
		Depth:    q.Len(),
		Capacity: q.capacity,
		Pushed:   q.pushed.Load(),
		Dropped:  q.dropped.Load(),
		Popped:   q.popped.Load(),
	}
}

// notify performs a non-blocking send on a 1-buffered signal channel.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
