// Package network routes messages between the nodes of a simulation. Delivery
// is asynchronous and best effort. Messages from one sender to one target
// arrive in the order they were sent.
package network

import (
	"slices"
	"sync"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
)

// Network is the routing table of every node currently registered.
type Network struct {
	mu        sync.RWMutex
	mailboxes map[database.Address]*Mailbox
}

// New constructs an empty network.
func New() *Network {
	return &Network{
		mailboxes: make(map[database.Address]*Mailbox),
	}
}

// Join registers the address and returns its mailbox. Joining twice returns
// the same mailbox.
func (n *Network) Join(addr database.Address) *Mailbox {
	n.mu.Lock()
	defer n.mu.Unlock()

	if mb, exists := n.mailboxes[addr]; exists {
		return mb
	}

	mb := NewMailbox()
	n.mailboxes[addr] = mb

	return mb
}

// Leave removes the address. Anything waiting in its mailbox is dropped.
func (n *Network) Leave(addr database.Address) bool {
	n.mu.Lock()
	mb, exists := n.mailboxes[addr]
	delete(n.mailboxes, addr)
	n.mu.Unlock()

	if exists {
		mb.Close()
	}

	return exists
}

// Send delivers the envelope to its target. It reports false if the target
// is not registered.
func (n *Network) Send(env Envelope) bool {
	n.mu.RLock()
	mb, exists := n.mailboxes[env.To]
	n.mu.RUnlock()

	if !exists {
		return false
	}

	return mb.Push(env)
}

// Broadcast delivers the message to every registered address except the
// sender and returns how many were reached.
func (n *Network) Broadcast(from database.Address, msg Message) int {
	n.mu.RLock()
	defer n.mu.RUnlock()

	var sent int
	for addr, mb := range n.mailboxes {
		if addr == from {
			continue
		}
		if mb.Push(Envelope{From: from, To: addr, Message: msg}) {
			sent++
		}
	}

	return sent
}

// Addresses returns every registered address in sorted order.
func (n *Network) Addresses() []database.Address {
	n.mu.RLock()
	defer n.mu.RUnlock()

	addrs := make([]database.Address, 0, len(n.mailboxes))
	for addr := range n.mailboxes {
		addrs = append(addrs, addr)
	}
	slices.Sort(addrs)

	return addrs
}

// Peers returns every registered address other than the specified one.
func (n *Network) Peers(self database.Address) []database.Address {
	return slices.DeleteFunc(n.Addresses(), func(addr database.Address) bool {
		return addr == self
	})
}
