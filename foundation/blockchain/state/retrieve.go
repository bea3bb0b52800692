package state

import (
	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/genesis"
)

// RetrieveAddress returns the address of the node.
func (s *State) RetrieveAddress() database.Address {
	return s.address
}

// RetrieveGenesis returns a copy of the genesis information.
func (s *State) RetrieveGenesis() genesis.Genesis {
	return s.genesis
}

// RetrieveLatestBlock returns a copy the current latest block.
func (s *State) RetrieveLatestBlock() database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.chain.LatestBlock()
}

// RetrieveChain returns a copy of the local chain.
func (s *State) RetrieveChain() []database.Block {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.chain.Blocks()
}

// RetrieveMempool returns the transactions waiting to be mined in FIFO order.
// Transactions drained by a mining operation in progress are not included.
func (s *State) RetrieveMempool() []database.Tx {
	return s.mempool.Copy()
}

// RetrieveChainBalances returns the balances folded from the chain.
func (s *State) RetrieveChainBalances() map[database.Address]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.chain.Balances()
}

// RetrieveMempoolBalances returns the balances with the pending transactions
// applied on top of the chain.
func (s *State) RetrieveMempoolBalances() map[database.Address]uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mempool.Balances(s.chain.Balances())
}

// RetrievePeers returns the addresses of the other nodes.
func (s *State) RetrievePeers() []database.Address {
	return s.network.Peers(s.address)
}
