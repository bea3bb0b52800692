package state

import (
	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/network"
)

// ProcessMessage handles one message from the node's mailbox. Messages are
// processed one at a time in arrival order by the worker.
func (s *State) ProcessMessage(env network.Envelope) error {
	switch msg := env.Message.(type) {
	case network.NewBlock:
		return s.ProcessProposedBlock(env.From, msg.Block)

	case network.NewTransaction:
		return s.ProcessPeerTransaction(env.From, msg.Tx)

	case network.ChainRequest:
		s.NetSendChain(env.From)
		return nil

	case network.ChainResponse:
		return s.ProcessPeerChain(env.From, msg.Chain)
	}

	s.evHandler("state: ProcessMessage: WARNING: unknown message: %s", env)

	return nil
}

// ProcessPeerChain takes a full chain from a peer and adopts it if it is
// longer than ours and valid. Transactions from our orphaned blocks are lost.
func (s *State) ProcessPeerChain(from database.Address, blocks []database.Block) error {
	s.mu.Lock()
	rep, err := s.chain.ReplaceIfLonger(blocks)
	if err == nil && rep.Outcome == database.ReplaceAdopted {
		s.commit(rep.Committed)
	}
	length := s.chain.Length()
	tip := s.chain.LatestHash()
	s.mu.Unlock()

	if err != nil {
		s.evHandler("state: ProcessPeerChain: WARNING: invalid chain: from[%s]: %s", from, err)
		return err
	}

	s.evHandler("state: ProcessPeerChain: from[%s]: candidate[%d]: length[%d]: outcome[%s]: orphaned[%d]", from, len(blocks), length, rep.Outcome, len(rep.Orphaned))

	if rep.Outcome == database.ReplaceAdopted {
		s.evHandler(`viewer: chain: {"node":%q,"length":%d,"tip":%q,"orphaned":%d}`, s.address, length, tip.Hex(), len(rep.Orphaned))
		s.Worker.SignalCancelMining()
	}

	return nil
}

// =============================================================================

// NetSendBlockToPeers announces a block to every other node.
func (s *State) NetSendBlockToPeers(block database.Block) int {
	s.evHandler("state: NetSendBlockToPeers: blk[%d]", block.Index)

	return s.network.Broadcast(s.address, network.NewBlock{Block: block})
}

// NetSendTxToPeers relays a transaction to every other node.
func (s *State) NetSendTxToPeers(tx database.Tx) int {
	return s.network.Broadcast(s.address, network.NewTransaction{Tx: tx})
}

// NetSendChain answers a chain request with a copy of the local chain.
func (s *State) NetSendChain(to database.Address) bool {
	s.mu.Lock()
	blocks := s.chain.Blocks()
	s.mu.Unlock()

	return s.network.Send(network.Envelope{
		From:    s.address,
		To:      to,
		Message: network.ChainResponse{Chain: blocks},
	})
}

// NetRequestPeerChains asks every other node for its chain.
func (s *State) NetRequestPeerChains() int {
	return s.network.Broadcast(s.address, network.ChainRequest{})
}
