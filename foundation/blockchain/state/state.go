// Package state is the core API for a node of the simulation and implements
// all the business rules and processing. A State owns exactly one chain and
// one mempool and serializes every change to them.
package state

import (
	"errors"
	"sync"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/genesis"
	"github.com/ardanlabs/blocksim/foundation/blockchain/mempool"
	"github.com/ardanlabs/blocksim/foundation/blockchain/network"
	lru "github.com/hashicorp/golang-lru"
)

// DefaultSeenWindow is the number of transaction ids a node remembers to stop
// relaying transactions it has already seen.
const DefaultSeenWindow = 10_000

// =============================================================================

// EventHandler defines a function that is called when events
// occur in the processing of the node.
type EventHandler func(v string, args ...any)

// Worker interface represents the behavior required to be implemented by any
// package providing support for mining, chain syncing, and transaction sharing.
type Worker interface {
	Shutdown()
	SignalStartMining()
	SignalCancelMining()
	SignalShareTx(tx database.Tx)
}

// Fabric interface represents the behavior required to reach the other nodes
// of the simulation.
type Fabric interface {
	Send(env network.Envelope) bool
	Broadcast(from database.Address, msg network.Message) int
	Peers(self database.Address) []database.Address
}

// =============================================================================

// Config represents the configuration required to start a node.
type Config struct {
	Address    database.Address
	Genesis    genesis.Genesis
	Network    Fabric
	SeenWindow int
	EvHandler  EventHandler
}

// State manages the chain and mempool of a node.
type State struct {
	mu sync.Mutex

	address   database.Address
	genesis   genesis.Genesis
	evHandler EventHandler
	network   Fabric

	chain   *database.Chain
	mempool *mempool.Mempool
	seen    *lru.Cache

	Worker Worker
}

// New constructs the state of a node holding only the genesis block.
func New(cfg Config) (*State, error) {
	if cfg.Address == "" {
		return nil, errors.New("node address is required")
	}

	if cfg.Network == nil {
		return nil, errors.New("network is required")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	window := cfg.SeenWindow
	if window <= 0 {
		window = DefaultSeenWindow
	}

	seen, err := lru.New(window)
	if err != nil {
		return nil, err
	}

	chain := database.New(cfg.Genesis)

	state := State{
		address:   cfg.Address,
		genesis:   cfg.Genesis,
		evHandler: ev,
		network:   cfg.Network,
		chain:     chain,
		mempool:   mempool.New(chain.LatestHash()),
		seen:      seen,

		// The worker.Run call replaces this with the real worker.
		Worker: nopWorker{},
	}

	return &state, nil
}

// Shutdown cleanly brings the node down.
func (s *State) Shutdown() {
	s.evHandler("state: shutdown: node[%s]", s.address)

	s.Worker.Shutdown()
}

// =============================================================================

// nopWorker is used until a worker registers itself.
type nopWorker struct{}

func (nopWorker) Shutdown()                    {}
func (nopWorker) SignalStartMining()           {}
func (nopWorker) SignalCancelMining()          {}
func (nopWorker) SignalShareTx(tx database.Tx) {}
