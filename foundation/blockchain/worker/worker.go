// Package worker implements mining, message processing, chain syncing, and
// transaction sharing for a node.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/network"
	"github.com/ardanlabs/blocksim/foundation/blockchain/state"
)

// DefaultSyncInterval represents the interval of asking the peers for their
// chains to catch up on blocks this node missed.
const DefaultSyncInterval = 10 * time.Second

// maxTxShareRequests represents the max number of pending tx share requests
// that can be outstanding before share requests are dropped.
const maxTxShareRequests = 100

// =============================================================================

// Config represents the settings for the worker of a node.
type Config struct {
	State        *state.State
	Mailbox      *network.Mailbox
	SyncInterval time.Duration
	DisableMine  bool
	EvHandler    state.EventHandler
}

// Worker manages the goroutines of a node.
type Worker struct {
	state        *state.State
	mailbox      *network.Mailbox
	wg           sync.WaitGroup
	once         sync.Once
	ticker       *time.Ticker
	ctx          context.Context
	cancel       context.CancelFunc
	shut         chan struct{}
	startMining  chan bool
	cancelMining chan bool
	txSharing    chan database.Tx
	evHandler    state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes.
func Run(cfg Config) *Worker {
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	interval := cfg.SyncInterval
	if interval <= 0 {
		interval = DefaultSyncInterval
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := Worker{
		state:        cfg.State,
		mailbox:      cfg.Mailbox,
		ticker:       time.NewTicker(interval),
		ctx:          ctx,
		cancel:       cancel,
		shut:         make(chan struct{}),
		startMining:  make(chan bool, 1),
		cancelMining: make(chan bool, 1),
		txSharing:    make(chan database.Tx, maxTxShareRequests),
		evHandler:    ev,
	}

	// Register this worker with the state package.
	cfg.State.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.messageOperations,
		w.syncOperations,
		w.shareTxOperations,
	}
	if !cfg.DisableMine {
		operations = append(operations, w.miningOperations)
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for range g {
		<-hasStarted
	}

	// Catch up with the peers before the first block is mined on top of
	// the genesis block.
	w.Sync()

	return &w
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work.
func (w *Worker) Shutdown() {
	w.once.Do(func() {
		w.evHandler("worker: shutdown: started")
		defer w.evHandler("worker: shutdown: completed")

		w.evHandler("worker: shutdown: stop ticker")
		w.ticker.Stop()

		w.evHandler("worker: shutdown: terminate goroutines")
		close(w.shut)
		w.cancel()
		w.wg.Wait()
	})
}

// SignalStartMining restarts the mining operation so new transactions in the
// mempool are picked up. If there is already a signal pending in the channel,
// just return since a mining operation will restart.
func (w *Worker) SignalStartMining() {
	select {
	case w.startMining <- true:
	default:
	}
	w.evHandler("worker: SignalStartMining: mining signaled")
}

// SignalCancelMining signals the G executing the runMiningOperation function
// to stop immediately since the tip changed.
func (w *Worker) SignalCancelMining() {
	select {
	case w.cancelMining <- true:
	default:
	}
	w.evHandler("worker: SignalCancelMining: MINING: CANCEL: signaled")
}

// SignalShareTx signals a share transaction operation. If
// maxTxShareRequests signals exist in the channel, we won't send these.
func (w *Worker) SignalShareTx(tx database.Tx) {
	select {
	case w.txSharing <- tx:
		w.evHandler("worker: SignalShareTx: share Tx signaled")
	default:
		w.evHandler("worker: SignalShareTx: queue full, transactions won't be shared.")
	}
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
