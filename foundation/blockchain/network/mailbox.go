package network

import (
	"context"
	"errors"
	"sync"
)

// ErrMailboxClosed is returned by Next once the owning node left the network.
var ErrMailboxClosed = errors.New("mailbox closed")

// Mailbox is the unbounded FIFO inbox of a node. Senders never block, so two
// nodes broadcasting to each other can't deadlock.
type Mailbox struct {
	mu     sync.Mutex
	queue  []Envelope
	notify chan struct{}
	closed bool
}

// NewMailbox constructs an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{
		notify: make(chan struct{}, 1),
	}
}

// Push appends the envelope. It reports false if the mailbox is closed.
func (mb *Mailbox) Push(env Envelope) bool {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.closed {
		return false
	}

	mb.queue = append(mb.queue, env)

	select {
	case mb.notify <- struct{}{}:
	default:
	}

	return true
}

// Next blocks until an envelope is available, the context is cancelled or
// the mailbox is closed.
func (mb *Mailbox) Next(ctx context.Context) (Envelope, error) {
	for {
		mb.mu.Lock()
		if mb.closed {
			mb.mu.Unlock()
			return Envelope{}, ErrMailboxClosed
		}
		if len(mb.queue) > 0 {
			env := mb.queue[0]
			mb.queue[0] = Envelope{}
			mb.queue = mb.queue[1:]
			mb.mu.Unlock()
			return env, nil
		}
		mb.mu.Unlock()

		select {
		case <-ctx.Done():
			return Envelope{}, ctx.Err()
		case <-mb.notify:
		}
	}
}

// Len returns the number of envelopes waiting.
func (mb *Mailbox) Len() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	return len(mb.queue)
}

// Close drops everything waiting and wakes up any reader.
func (mb *Mailbox) Close() {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.closed {
		return
	}

	mb.closed = true
	mb.queue = nil
	close(mb.notify)
}
