// Package world is the registry of the nodes alive in the simulation. It
// creates nodes, wires them into the network, and tears them down.
package world

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/genesis"
	"github.com/ardanlabs/blocksim/foundation/blockchain/network"
	"github.com/ardanlabs/blocksim/foundation/blockchain/state"
	"github.com/ardanlabs/blocksim/foundation/blockchain/worker"
	"github.com/google/uuid"
)

// ErrNodeNotFound is returned when an address does not belong to a live node.
var ErrNodeNotFound = errors.New("node not found")

// EventHandler receives the events of every node with the address of the
// node that raised it.
type EventHandler func(node database.Address, v string, args ...any)

// Config represents the settings every node of the world is started with.
type Config struct {
	Genesis      genesis.Genesis
	SeenWindow   int
	SyncInterval time.Duration
	DisableMine  bool
	EvHandler    EventHandler
}

// World manages the set of live nodes.
type World struct {
	mu      sync.RWMutex
	cfg     Config
	network *network.Network
	nodes   map[database.Address]*state.State
}

// New constructs an empty world.
func New(cfg Config) *World {
	return &World{
		cfg:     cfg,
		network: network.New(),
		nodes:   make(map[database.Address]*state.State),
	}
}

// AddNode creates a node with a new random address, joins it to the network
// and starts its worker.
func (w *World) AddNode() (database.Address, error) {
	addr := database.Address(uuid.NewString())

	ev := func(v string, args ...any) {
		if w.cfg.EvHandler != nil {
			w.cfg.EvHandler(addr, v, args...)
		}
	}

	st, err := state.New(state.Config{
		Address:    addr,
		Genesis:    w.cfg.Genesis,
		Network:    w.network,
		SeenWindow: w.cfg.SeenWindow,
		EvHandler:  ev,
	})
	if err != nil {
		return "", err
	}

	// The mailbox must exist before the worker asks the peers for their
	// chains or the answers are lost.
	mailbox := w.network.Join(addr)

	worker.Run(worker.Config{
		State:        st,
		Mailbox:      mailbox,
		SyncInterval: w.cfg.SyncInterval,
		DisableMine:  w.cfg.DisableMine,
		EvHandler:    ev,
	})

	// The node is only handed out once its worker is registered.
	w.mu.Lock()
	w.nodes[addr] = st
	w.mu.Unlock()

	ev("world: AddNode: node created")

	return addr, nil
}

// RemoveNode takes the node out of the network and stops it. Messages still in
// flight to the node are dropped.
func (w *World) RemoveNode(addr database.Address) error {
	w.mu.Lock()
	st, exists := w.nodes[addr]
	delete(w.nodes, addr)
	w.mu.Unlock()

	if !exists {
		return ErrNodeNotFound
	}

	w.network.Leave(addr)
	st.Shutdown()

	return nil
}

// Node returns the state of the live node with the specified address.
func (w *World) Node(addr database.Address) (*state.State, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	st, exists := w.nodes[addr]
	if !exists {
		return nil, ErrNodeNotFound
	}

	return st, nil
}

// Addresses returns the addresses of every live node in sorted order.
func (w *World) Addresses() []database.Address {
	w.mu.RLock()
	defer w.mu.RUnlock()

	addrs := make([]database.Address, 0, len(w.nodes))
	for addr := range w.nodes {
		addrs = append(addrs, addr)
	}
	slices.Sort(addrs)

	return addrs
}

// Shutdown stops every node.
func (w *World) Shutdown() {
	for _, addr := range w.Addresses() {
		w.RemoveNode(addr)
	}
}

// =============================================================================

// Demo settings for the random transactions.
const (
	demoStartAmount = 100
	demoMinAmount   = 100
	demoStep        = 100
	demoBackoff     = 10
)

// RunDemo submits a random transaction between random nodes on every tick
// until the context is cancelled. The largest amount grows after every
// admitted transaction and shrinks after every rejection.
func (w *World) RunDemo(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	maxAmount := int64(demoStartAmount)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		addrs := w.Addresses()
		if len(addrs) == 0 {
			continue
		}

		entry := addrs[rand.IntN(len(addrs))]
		sender := addrs[rand.IntN(len(addrs))]
		recipient := addrs[rand.IntN(len(addrs))]
		amount := rand.Int64N(maxAmount + 1)

		st, err := w.Node(entry)
		if err != nil {
			continue
		}

		if _, err := st.SubmitTransaction(sender, recipient, amount); err != nil {
			maxAmount = max(maxAmount-demoBackoff, demoMinAmount)
			continue
		}

		maxAmount += demoStep
	}
}
