package state

import (
	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
)

// Status summarizes the node.
type Status struct {
	Address       database.Address `json:"address"`
	Length        uint64           `json:"length"`
	LatestHash    database.Hash    `json:"latest_hash"`
	MempoolLength int              `json:"mempool_length"`
}

// QueryStatus returns a summary of the node.
func (s *State) QueryStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Status{
		Address:       s.address,
		Length:        s.chain.Length(),
		LatestHash:    s.chain.LatestHash(),
		MempoolLength: s.mempool.Count(),
	}
}

// QueryChainLength returns the number of blocks in the local chain.
func (s *State) QueryChainLength() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.chain.Length()
}

// QueryMempoolLength returns the current length of the mempool.
func (s *State) QueryMempoolLength() int {
	return s.mempool.Count()
}

// QueryBlockByHash returns the block with the specified hash from the local
// chain.
func (s *State) QueryBlockByHash(hash database.Hash) (database.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.chain.BlockByHash(hash)
}

// QueryChainBalance returns the balance of the address on the local chain.
func (s *State) QueryChainBalance(addr database.Address) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.chain.BalanceOf(addr)
}

// QueryMempoolBalance returns the balance of the address with the pending
// transactions applied.
func (s *State) QueryMempoolBalance(addr database.Address) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mempool.BalanceOf(addr, s.chain.BalanceOf(addr))
}
