package worker

// Sync asks every peer for its chain. Any longer chain that comes back is
// adopted by the message operation.
func (w *Worker) Sync() {
	w.evHandler("worker: sync: started")
	defer w.evHandler("worker: sync: completed")

	n := w.state.NetRequestPeerChains()
	w.evHandler("worker: sync: chain requested: peers[%d]", n)
}

// syncOperations periodically syncs with the peers to pick up blocks this
// node missed.
func (w *Worker) syncOperations() {
	w.evHandler("worker: syncOperations: G started")
	defer w.evHandler("worker: syncOperations: G completed")

	for {
		select {
		case <-w.ticker.C:
			if !w.isShutdown() {
				w.Sync()
			}
		case <-w.shut:
			w.evHandler("worker: syncOperations: received shut signal")
			return
		}
	}
}
