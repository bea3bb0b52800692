package worker

// messageOperations processes the node's mailbox one message at a time in
// arrival order.
func (w *Worker) messageOperations() {
	w.evHandler("worker: messageOperations: G started")
	defer w.evHandler("worker: messageOperations: G completed")

	for {
		env, err := w.mailbox.Next(w.ctx)
		if err != nil {
			w.evHandler("worker: messageOperations: mailbox: %s", err)
			return
		}

		if err := w.state.ProcessMessage(env); err != nil {
			w.evHandler("worker: messageOperations: %s: WARNING: %s", env, err)
		}
	}
}
