package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/network"
)

// ErrStaleTip is returned when a block was mined on a tip that changed while
// the work was being done. The block is discarded.
var ErrStaleTip = errors.New("tip changed during mining")

// =============================================================================

// MineNewBlock assembles a block from the oldest pending transactions on top of
// the current tip and solves it. The search runs without holding the state
// lock and is abandoned when the context is cancelled. Drained transactions
// go back to the mempool whenever the block doesn't make it into the chain.
func (s *State) MineNewBlock(ctx context.Context) (database.Block, error) {
	s.mu.Lock()
	prevBlock := s.chain.LatestBlock()
	tip := s.chain.LatestHash()
	trans := s.mempool.Drain(int(s.genesis.TransPerBlock))
	s.mu.Unlock()

	s.evHandler("state: MineNewBlock: MINING: perform POW: prevBlk[%s]: trans[%d]", tip, len(trans))

	block, err := database.POW(ctx, database.POWArgs{
		Miner:      s.address,
		Difficulty: uint(s.genesis.Difficulty),
		PrevBlock:  prevBlock,
		Trans:      trans,
		EvHandler:  s.evHandler,
	})
	if err != nil {
		s.mempool.Restore(trans)
		return database.Block{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A peer block or chain may have been accepted while we were working.
	if s.chain.LatestHash() != tip {
		s.mempool.Restore(trans)
		return database.Block{}, ErrStaleTip
	}

	if err := s.chain.TryAppend(block); err != nil {
		s.mempool.Restore(trans)
		return database.Block{}, err
	}

	s.evHandler("state: MineNewBlock: MINING: update local state: blk[%d]", block.Index)

	s.commit(block.TxIDs())
	s.blockEvent(block)

	return block, nil
}

// ProcessProposedBlock takes a block received from a peer and appends it if it
// extends the tip. A block that doesn't extend the tip but could belong to a
// longer chain causes a chain request to the sender.
func (s *State) ProcessProposedBlock(from database.Address, block database.Block) error {
	s.evHandler("state: ProcessProposedBlock: started: from[%s]: prevBlk[%s]: blk[%d]: numTrans[%d]", from, block.PrevHash, block.Index, len(block.Transactions))

	s.mu.Lock()
	err := s.chain.TryAppend(block)
	if err == nil {
		s.commit(block.TxIDs())
		s.blockEvent(block)
	}
	length := s.chain.Length()
	s.mu.Unlock()

	switch {
	case err == nil:

		// Any mining operation is now working on a stale tip.
		s.Worker.SignalCancelMining()
		return nil

	case errors.Is(err, database.ErrBlockIndex) || errors.Is(err, database.ErrPrevHash):
		if block.Index < length {
			s.evHandler("state: ProcessProposedBlock: ignore: blk[%d]: length[%d]", block.Index, length)
			return nil
		}

		s.evHandler("state: ProcessProposedBlock: chain pull: from[%s]: blk[%d]: length[%d]", from, block.Index, length)
		s.network.Send(network.Envelope{From: s.address, To: from, Message: network.ChainRequest{}})
		return nil
	}

	s.evHandler("state: ProcessProposedBlock: WARNING: invalid block: from[%s]: %s", from, err)

	return err
}

// =============================================================================

// commit brings the mempool in line with a new tip. The caller must hold the
// state lock.
func (s *State) commit(txIDs []database.Hash) {
	purged := s.mempool.Purge(txIDs)
	dropped := s.mempool.Rebase(s.chain.LatestHash())

	s.evHandler("state: commit: tip[%s]: length[%d]: purged[%d]: dropped[%d]", s.chain.LatestHash(), s.chain.Length(), purged, dropped)
}

// blockEvent provides a specific event about a new block in the chain for
// application specific support.
func (s *State) blockEvent(block database.Block) {
	blockJSON, err := json.Marshal(database.NewBlockData(block))
	if err != nil {
		blockJSON = []byte(fmt.Sprintf("%q", err.Error()))
	}

	s.evHandler(`viewer: block: {"node":%q,"block":%s}`, s.address, string(blockJSON))
}
