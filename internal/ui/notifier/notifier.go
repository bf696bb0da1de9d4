// Package notifier fans out lineage rebuild events to SSE listeners.
package notifier

import "sync"

// Event announces a new lineage build.
type Event struct {
	Fingerprint string
}

// Notifier broadcasts rebuild events to all subscribed listeners.
// Each listener holds at most one pending event; a newer event replaces an
// unread older one, so slow listeners only ever see the latest build.
type Notifier struct {
	mu        sync.Mutex
	listeners map[chan Event]struct{}
}

// New creates a new Notifier instance.
func New() *Notifier {
	return &Notifier{
		listeners: make(map[chan Event]struct{}),
	}
}

// Subscribe returns a channel that receives rebuild events.
// The caller must call Unsubscribe when done.
func (n *Notifier) Subscribe() <-chan Event {
	ch := make(chan Event, 1)
	n.mu.Lock()
	n.listeners[ch] = struct{}{}
	n.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel.
// Unknown or already removed channels are ignored.
func (n *Notifier) Unsubscribe(ch <-chan Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for c := range n.listeners {
		if c == ch {
			delete(n.listeners, c)
			close(c)
			return
		}
	}
}

// Broadcast delivers ev to every listener without blocking.
func (n *Notifier) Broadcast(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.listeners {
		select {
		case ch <- ev:
			continue
		default:
		}
		// Drop the stale pending event and deliver the new one.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

// Len returns the number of subscribed listeners.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}
