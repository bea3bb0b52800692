// Package mempool maintains the pending transactions of a node in the order
// they were admitted.
package mempool

import (
	"errors"
	"fmt"
	"math/bits"
	"sync"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
)

// Reasons a transaction is rejected from the mempool.
var (
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	ErrStaleAnchor       = errors.New("anchor is not the current tip")
	ErrDuplicateTx       = errors.New("transaction already pending")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBalanceOverflow   = errors.New("credit overflows recipient balance")
)

// BalanceFunc returns the committed balance of an address.
type BalanceFunc func(addr database.Address) uint64

// entry is a pending transaction. Drained transactions stay in the pool,
// marked as in flight, until they are committed, restored or go stale.
type entry struct {
	tx       database.Tx
	inFlight bool
}

// Mempool represents a cache of pending transactions keyed by transaction id
// and kept in FIFO order. Every transaction is anchored at the current tip.
type Mempool struct {
	mu    sync.RWMutex
	tip   database.Hash
	pool  map[database.Hash]*entry
	order []database.Hash
}

// New constructs a new mempool anchored at the specified tip.
func New(tip database.Hash) *Mempool {
	return &Mempool{
		tip:  tip,
		pool: make(map[database.Hash]*entry),
	}
}

// Tip returns the hash every pending transaction is anchored at.
func (mp *Mempool) Tip() database.Hash {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.tip
}

// Count returns the number of transactions waiting to be drained. Drained
// transactions are not counted until they are restored.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	var n int
	for _, id := range mp.order {
		if !mp.pool[id].inFlight {
			n++
		}
	}
	return n
}

// Admit adds the transaction to the back of the pool if it is anchored at the
// current tip, is not already pending, and the sender can afford it on top of
// what the sender already has pending. The credit must also fit in the
// recipient's balance with everything it already has pending.
func (mp *Mempool) Admit(tx database.Tx, balanceFn BalanceFunc) error {
	if tx.Amount == 0 {
		return ErrNonPositiveAmount
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if tx.Anchor != mp.tip {
		return fmt.Errorf("%w: anchor %s, tip %s", ErrStaleAnchor, tx.Anchor, mp.tip)
	}

	id := tx.ID()
	if _, exists := mp.pool[id]; exists {
		return fmt.Errorf("%w: id %s", ErrDuplicateTx, id)
	}

	balance := balanceFn(tx.Sender)
	pending := mp.pendingSends(tx.Sender)
	if balance < pending || balance-pending < tx.Amount {
		return fmt.Errorf("%w: bal %d, pending %d, needed %d", ErrInsufficientFunds, balance, pending, tx.Amount)
	}

	received, carry := bits.Add64(mp.pendingReceipts(tx.Recipient), tx.Amount, 0)
	if carry == 0 {
		_, carry = bits.Add64(balanceFn(tx.Recipient), received, 0)
	}
	if carry != 0 {
		return fmt.Errorf("%w: recipient %s", ErrBalanceOverflow, tx.Recipient)
	}

	mp.pool[id] = &entry{tx: tx}
	mp.order = append(mp.order, id)

	return nil
}

// Drain marks up to max of the oldest transactions as in flight and returns
// them for block assembly.
func (mp *Mempool) Drain(max int) []database.Tx {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var trans []database.Tx
	for _, id := range mp.order {
		if len(trans) == max {
			break
		}

		e := mp.pool[id]
		if e.inFlight {
			continue
		}

		e.inFlight = true
		trans = append(trans, e.tx)
	}

	return trans
}

// Restore returns drained transactions to the pool after an abandoned mining
// operation. They keep their original position ahead of anything admitted
// later. Transactions that were committed or went stale meanwhile are gone.
func (mp *Mempool) Restore(trans []database.Tx) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var restored int
	for _, tx := range trans {
		if e, exists := mp.pool[tx.ID()]; exists && e.inFlight {
			e.inFlight = false
			restored++
		}
	}

	return restored
}

// Purge removes transactions that are now committed to the chain.
func (mp *Mempool) Purge(ids []database.Hash) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	var purged int
	for _, id := range ids {
		if _, exists := mp.pool[id]; exists {
			delete(mp.pool, id)
			purged++
		}
	}

	if purged > 0 {
		mp.compact()
	}

	return purged
}

// Rebase anchors the pool at a new tip. Transactions anchored at the old tip
// can never be mined on the new one and are dropped.
func (mp *Mempool) Rebase(tip database.Hash) int {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.tip = tip

	var dropped int
	for id, e := range mp.pool {
		if e.tx.Anchor != tip {
			delete(mp.pool, id)
			dropped++
		}
	}

	if dropped > 0 {
		mp.compact()
	}

	return dropped
}

// Copy returns the transactions waiting to be drained in FIFO order.
func (mp *Mempool) Copy() []database.Tx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	trans := make([]database.Tx, 0, len(mp.order))
	for _, id := range mp.order {
		if e := mp.pool[id]; !e.inFlight {
			trans = append(trans, e.tx)
		}
	}

	return trans
}

// PendingSends returns the total amount the address has pending.
func (mp *Mempool) PendingSends(addr database.Address) uint64 {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return mp.pendingSends(addr)
}

// BalanceOf applies the pending transactions to the committed balance of
// the address. Drained transactions still apply since their funds stay
// reserved until the block is committed or abandoned.
func (mp *Mempool) BalanceOf(addr database.Address, balance uint64) uint64 {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	balance += mp.pendingReceipts(addr)

	sends := mp.pendingSends(addr)
	if sends > balance {
		return 0
	}

	return balance - sends
}

// Balances applies every pending transaction, drained ones included, to a
// copy of the committed balances.
func (mp *Mempool) Balances(committed map[database.Address]uint64) map[database.Address]uint64 {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	balances := make(map[database.Address]uint64, len(committed))
	for addr, balance := range committed {
		balances[addr] = balance
	}
	for _, e := range mp.pool {
		if _, exists := balances[e.tx.Recipient]; !exists {
			balances[e.tx.Recipient] = 0
		}
	}

	for addr, balance := range balances {
		balance += mp.pendingReceipts(addr)
		sends := mp.pendingSends(addr)
		if sends > balance {
			balances[addr] = 0
			continue
		}
		balances[addr] = balance - sends
	}

	return balances
}

// =============================================================================

func (mp *Mempool) pendingReceipts(addr database.Address) uint64 {
	var total uint64
	for _, e := range mp.pool {
		if e.tx.Recipient == addr {
			total += e.tx.Amount
		}
	}
	return total
}

func (mp *Mempool) pendingSends(addr database.Address) uint64 {
	var total uint64
	for _, e := range mp.pool {
		if e.tx.Sender == addr {
			total += e.tx.Amount
		}
	}
	return total
}

// compact drops ids from the order that are no longer in the pool.
func (mp *Mempool) compact() {
	order := mp.order[:0]
	for _, id := range mp.order {
		if _, exists := mp.pool[id]; exists {
			order = append(order, id)
		}
	}
	mp.order = order
}
