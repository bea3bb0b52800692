package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/blocksim/foundation/blockchain/state"
)

// miningOperations mines continuously, one block after the other, until the
// worker is shut down. Blocks without transactions are mined too.
func (w *Worker) miningOperations() {
	w.evHandler("worker: miningOperations: G started")
	defer w.evHandler("worker: miningOperations: G completed")

	for !w.isShutdown() {
		w.runMiningOperation()
	}

	w.evHandler("worker: miningOperations: received shut signal")
}

// runMiningOperation mines a block on top of the current tip and announces
// it to the peers.
func (w *Worker) runMiningOperation() {
	w.evHandler("worker: runMiningOperation: MINING: started")
	defer w.evHandler("worker: runMiningOperation: MINING: completed")

	// Drain the signal channels before starting. The snapshot of the tip
	// taken below is newer than any of these signals.
	select {
	case <-w.cancelMining:
		w.evHandler("worker: runMiningOperation: MINING: drained cancel channel")
	default:
	}
	select {
	case <-w.startMining:
	default:
	}

	// Create a context so mining can be cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Can't return from this function until these G's are complete.
	var wg sync.WaitGroup
	wg.Add(2)

	// This G exists to cancel the mining operation.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		select {
		case <-w.cancelMining:
			w.evHandler("worker: runMiningOperation: MINING: CANCEL: requested")
		case <-w.startMining:
			w.evHandler("worker: runMiningOperation: MINING: RESTART: new transactions")
		case <-w.shut:
		case <-ctx.Done():
		}
	}()

	// This G is performing the mining.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		t := time.Now()
		block, err := w.state.MineNewBlock(ctx)
		duration := time.Since(t)

		w.evHandler("worker: runMiningOperation: MINING: mining duration[%v]", duration)

		if err != nil {
			switch {
			case errors.Is(err, state.ErrStaleTip):
				w.evHandler("worker: runMiningOperation: MINING: WARNING: tip changed, block discarded")
			case ctx.Err() != nil:
				w.evHandler("worker: runMiningOperation: MINING: CANCEL: complete")
			default:
				w.evHandler("worker: runMiningOperation: MINING: ERROR: %s", err)
			}
			return
		}

		// WOW, we mined a block. Announce the new block to the network.
		n := w.state.NetSendBlockToPeers(block)
		w.evHandler("worker: runMiningOperation: MINING: block announced: blk[%d]: peers[%d]", block.Index, n)
	}()

	// Wait for both G's to terminate.
	wg.Wait()
}
