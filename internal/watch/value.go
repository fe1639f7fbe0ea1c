// Package watch provides a multicast value holder with replay for late
// subscribers.
package watch

import (
	"context"
	"sync"
)

// Value caches the latest published value and fans it out to subscribers.
// A new subscriber immediately receives the latest value if one was ever
// published. Per-subscriber channels are conflating: a slow subscriber skips
// intermediate values and observes the most recent one, never a torn or
// reordered sequence.
type Value[T any] struct {
	mu     sync.Mutex
	latest T
	set    bool
	subs   map[int]chan T
	nextID int
}

// NewValue creates an empty holder.
func NewValue[T any]() *Value[T] {
	return &Value[T]{subs: make(map[int]chan T)}
}

// Set publishes a new value to all subscribers, replacing any value a
// subscriber has not consumed yet.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.latest = val
	v.set = true

	for _, ch := range v.subs {
		// Sends happen only under v.mu, so after draining the buffered
		// slot the send below cannot block.
		select {
		case ch <- val:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- val
		}
	}
}

// Get returns the latest value and whether one was ever published.
func (v *Value[T]) Get() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.latest, v.set
}

// Watch subscribes to the value. The returned channel carries the latest
// value immediately if one exists, then one value per publish (conflated).
// The subscription ends and the channel is closed when ctx is done.
func (v *Value[T]) Watch(ctx context.Context) <-chan T {
	v.mu.Lock()
	id := v.nextID
	v.nextID++
	ch := make(chan T, 1)
	if v.set {
		ch <- v.latest
	}
	v.subs[id] = ch
	v.mu.Unlock()

	go func() {
		<-ctx.Done()
		v.mu.Lock()
		delete(v.subs, id)
		v.mu.Unlock()
		close(ch)
	}()

	return ch
}
