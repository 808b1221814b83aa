package store

import (
	"context"
	"sync"
)

// Notifier fans change signals out to subscribers.
// Each subscriber has a one-slot buffer, so signals sent while it is busy
// collapse into one and Notify never blocks.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[chan struct{}]struct{}
	done   chan struct{}
	closed bool
}

// NewNotifier creates a Notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		subs: make(map[chan struct{}]struct{}),
		done: make(chan struct{}),
	}
}

// Subscribe returns a channel that receives a signal after each change.
// On a closed notifier the returned channel is already closed.
func (n *Notifier) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		close(ch)
		return ch
	}
	n.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (n *Notifier) Unsubscribe(ch chan struct{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.subs[ch]; !ok {
		return
	}
	delete(n.subs, ch)
	close(ch)
}

// Notify signals every subscriber.
func (n *Notifier) Notify() {
	n.mu.RLock()
	for ch := range n.subs {
		select {
		case ch <- struct{}{}:
		default:
			// a signal is already pending
		}
	}
	n.mu.RUnlock()
}

// Close closes all subscriber channels. Later calls are no-ops.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	close(n.done)
	for ch := range n.subs {
		delete(n.subs, ch)
		close(ch)
	}
}

// Closed reports whether Close has been called.
func (n *Notifier) Closed() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.closed
}

// Done is closed when the notifier is closed.
func (n *Notifier) Done() <-chan struct{} {
	return n.done
}

type queryFunc func(ctx context.Context) ([]TaskEntity, error)

// skipFunc reports whether a failed re-query should be dropped, keeping the
// stream open until the next change signal.
type skipFunc func(err error) bool

// watch runs query once immediately and again after every change signal,
// delivering each result on the returned channel. When skip is non-nil, a
// failed re-query it accepts is not delivered. The first query always is.
func watch(ctx context.Context, n *Notifier, query queryFunc, skip skipFunc) <-chan Snapshot {
	out := make(chan Snapshot)
	// Subscribe before the first query so no change falls in between.
	changed := n.Subscribe()

	go func() {
		defer close(out)
		defer n.Unsubscribe(changed)

		if n.Closed() {
			select {
			case out <- Snapshot{Err: ErrClosed}:
			case <-ctx.Done():
			}
			return
		}

		for first := true; ; first = false {
			tasks, err := query(ctx)
			if ctx.Err() != nil {
				return
			}
			if err == nil || first || skip == nil || !skip(err) {
				select {
				case out <- Snapshot{Tasks: tasks, Err: err}:
				case <-ctx.Done():
					return
				case <-n.Done():
					return
				}
				if err != nil {
					return
				}
			}

			select {
			case _, ok := <-changed:
				if !ok {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
