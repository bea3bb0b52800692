// Package events fans the events of the simulation out to the clients
// watching it.
package events

import (
	"errors"
	"fmt"
	"sync"
)

// ErrUnknownSubscriber is returned when releasing an id that was never
// acquired or is already released.
var ErrUnknownSubscriber = errors.New("unknown subscriber")

// subscriberBuffer is how many events a slow subscriber can fall behind
// before events are dropped for it.
const subscriberBuffer = 100

// Events holds a channel per subscriber.
type Events struct {
	mu   sync.RWMutex
	subs map[string]chan string
}

// New constructs an empty set of subscribers.
func New() *Events {
	return &Events{
		subs: make(map[string]chan string),
	}
}

// Acquire registers the id and returns the channel its events arrive on.
// Acquiring the same id twice returns the same channel.
func (evt *Events) Acquire(id string) <-chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if ch, exists := evt.subs[id]; exists {
		return ch
	}

	ch := make(chan string, subscriberBuffer)
	evt.subs[id] = ch

	return ch
}

// Release closes the channel of the id and forgets it.
func (evt *Events) Release(id string) error {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	ch, exists := evt.subs[id]
	if !exists {
		return fmt.Errorf("%w: %q", ErrUnknownSubscriber, id)
	}

	delete(evt.subs, id)
	close(ch)

	return nil
}

// Count returns the number of subscribers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.subs)
}

// Send hands the event to every subscriber with room for it and returns how
// many received it. Send never blocks.
func (evt *Events) Send(s string) int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	var sent int
	for _, ch := range evt.subs {
		select {
		case ch <- s:
			sent++
		default:
		}
	}

	return sent
}

// Shutdown releases every subscriber.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, ch := range evt.subs {
		delete(evt.subs, id)
		close(ch)
	}
}
