package worker

import (
	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
)

// shareTxOperations handles sharing new transactions.
func (w *Worker) shareTxOperations() {
	w.evHandler("worker: shareTxOperations: G started")
	defer w.evHandler("worker: shareTxOperations: G completed")

	for {
		select {
		case tx := <-w.txSharing:
			if !w.isShutdown() {
				w.runShareTxOperation(tx)
			}
		case <-w.shut:
			w.evHandler("worker: shareTxOperations: received shut signal")
			return
		}
	}
}

// runShareTxOperation shares a new transaction with the peers.
func (w *Worker) runShareTxOperation(tx database.Tx) {
	n := w.state.NetSendTxToPeers(tx)
	w.evHandler("worker: runShareTxOperation: tx[%s]: peers[%d]", tx, n)
}
