package state

import (
	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/mempool"
)

// SubmitTransaction is the entry point for a client transaction. The
// transaction is anchored at the current tip, admitted into the mempool and
// shared with the peers. A rejection is returned to the caller.
func (s *State) SubmitTransaction(sender database.Address, recipient database.Address, amount int64) (database.Tx, error) {
	if amount <= 0 {
		return database.Tx{}, mempool.ErrNonPositiveAmount
	}

	s.mu.Lock()
	tx := database.NewTx(sender, recipient, uint64(amount), s.chain.LatestHash())
	err := s.mempool.Admit(tx, s.chain.BalanceOf)
	s.mu.Unlock()

	if err != nil {
		s.evHandler("state: SubmitTransaction: REJECTED: tx[%s]: %s", tx, err)
		return database.Tx{}, err
	}

	s.evHandler("state: SubmitTransaction: ADMITTED: tx[%s]", tx)

	s.seen.Add(tx.ID(), struct{}{})
	s.Worker.SignalShareTx(tx)
	s.Worker.SignalStartMining()

	return tx, nil
}

// ProcessPeerTransaction takes a transaction relayed by a peer. Transactions
// already seen are ignored so relaying ends. Admitted transactions are
// relayed further.
func (s *State) ProcessPeerTransaction(from database.Address, tx database.Tx) error {
	if seen, _ := s.seen.ContainsOrAdd(tx.ID(), struct{}{}); seen {
		return nil
	}

	s.mu.Lock()
	err := s.mempool.Admit(tx, s.chain.BalanceOf)
	s.mu.Unlock()

	if err != nil {
		s.evHandler("state: ProcessPeerTransaction: REJECTED: from[%s]: tx[%s]: %s", from, tx, err)
		return err
	}

	s.evHandler("state: ProcessPeerTransaction: ADMITTED: from[%s]: tx[%s]", from, tx)

	s.Worker.SignalShareTx(tx)
	s.Worker.SignalStartMining()

	return nil
}
