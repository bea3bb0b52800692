// Package database maintains a node's local copy of the blockchain and the
// account balances folded from it.
package database

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/ardanlabs/blocksim/foundation/blockchain/genesis"
	mapset "github.com/deckarep/golang-set"
)

// Reasons a chain fails validation.
var (
	ErrEmptyChain       = errors.New("chain has no blocks")
	ErrGenesisMismatch  = errors.New("genesis block mismatch")
	ErrBrokenLinkage    = errors.New("broken linkage")
	ErrInsufficientWork = errors.New("block hash does not satisfy difficulty")
	ErrMisplacedAnchor  = errors.New("transaction anchor is not the parent block hash")
	ErrDuplicateTx      = errors.New("transaction already in chain")
	ErrNegativeBalance  = errors.New("transaction overdraws sender")
	ErrBalanceOverflow  = errors.New("credit overflows balance")
)

// Reasons a block can't be appended to the tip.
var (
	ErrBlockIndex = errors.New("block index does not follow the tip")
	ErrPrevHash   = errors.New("block prev hash does not match the tip")
)

// ErrBlockNotFound is returned when a block hash is not in the chain.
var ErrBlockNotFound = errors.New("block not found")

// =============================================================================

// ReplaceOutcome describes what ReplaceIfLonger did with a candidate.
type ReplaceOutcome int

// Set of outcomes for a chain replacement.
const (
	ReplaceNotLonger ReplaceOutcome = iota
	ReplaceInvalid
	ReplaceAdopted
)

func (o ReplaceOutcome) String() string {
	switch o {
	case ReplaceAdopted:
		return "adopted"
	case ReplaceInvalid:
		return "invalid"
	default:
		return "not longer"
	}
}

// Replacement reports the effect of ReplaceIfLonger.
type Replacement struct {
	Outcome   ReplaceOutcome
	Orphaned  []Block // Resident blocks that are not part of the adopted chain.
	Committed []Hash  // Transactions in the adopted blocks past the common prefix.
}

// =============================================================================

// Chain is an ordered list of blocks starting at genesis together with the
// state folded from them. A Chain is not safe for concurrent use, the owning
// node serializes access.
type Chain struct {
	genesis  genesis.Genesis
	blocks   []Block
	hashes   []Hash
	txIDs    mapset.Set
	balances map[Address]uint64
}

// New constructs a chain holding only the genesis block.
func New(gen genesis.Genesis) *Chain {
	gb := GenesisBlock()

	return &Chain{
		genesis:  gen,
		blocks:   []Block{gb},
		hashes:   []Hash{gb.Hash()},
		txIDs:    mapset.NewThreadUnsafeSet(),
		balances: genesisBalances(gen),
	}
}

// Validate re-derives every chain invariant from genesis forward without
// trusting any cached state. The first violation is returned.
func Validate(gen genesis.Genesis, blocks []Block) error {
	_, err := build(gen, blocks)
	return err
}

// build folds the blocks into a new chain, validating as it goes.
func build(gen genesis.Genesis, blocks []Block) (*Chain, error) {
	if len(blocks) == 0 {
		return nil, ErrEmptyChain
	}

	c := New(gen)
	if blocks[0].Hash() != c.hashes[0] {
		return nil, fmt.Errorf("block 0: %w", ErrGenesisMismatch)
	}

	for _, block := range blocks[1:] {
		if err := c.TryAppend(block); err != nil {
			if errors.Is(err, ErrBlockIndex) || errors.Is(err, ErrPrevHash) {
				return nil, fmt.Errorf("block %d: %w: %w", block.Index, ErrBrokenLinkage, err)
			}
			return nil, fmt.Errorf("block %d: %w", block.Index, err)
		}
	}

	return c, nil
}

// TryAppend adds the block to the tip of the chain if it directly extends the
// tip and keeps every chain invariant. The chain is unchanged on failure.
func (c *Chain) TryAppend(block Block) error {
	balances, err := c.check(block)
	if err != nil {
		return err
	}

	for _, tx := range block.Transactions {
		c.txIDs.Add(tx.ID())
	}
	for addr, balance := range balances {
		c.balances[addr] = balance
	}
	c.blocks = append(c.blocks, block)
	c.hashes = append(c.hashes, block.Hash())

	return nil
}

// check validates the block against the tip and returns the balances the
// block changes.
func (c *Chain) check(block Block) (map[Address]uint64, error) {
	tip := len(c.blocks) - 1

	if block.Index != uint64(tip+1) {
		return nil, fmt.Errorf("%w: got %d, exp %d", ErrBlockIndex, block.Index, tip+1)
	}

	if block.PrevHash != c.hashes[tip] {
		return nil, fmt.Errorf("%w: got %s, exp %s", ErrPrevHash, block.PrevHash, c.hashes[tip])
	}

	hash := block.Hash()
	if !IsHashSolved(uint(c.genesis.Difficulty), hash) {
		return nil, fmt.Errorf("%w: hash %s, difficulty %d", ErrInsufficientWork, hash, c.genesis.Difficulty)
	}

	changed := make(map[Address]uint64)
	balanceOf := func(addr Address) uint64 {
		if balance, exists := changed[addr]; exists {
			return balance
		}
		return c.balances[addr]
	}

	inBlock := mapset.NewThreadUnsafeSet()
	for _, tx := range block.Transactions {
		if tx.Anchor != block.PrevHash {
			return nil, fmt.Errorf("%w: tx[%s]", ErrMisplacedAnchor, tx)
		}

		id := tx.ID()
		if c.txIDs.Contains(id) || !inBlock.Add(id) {
			return nil, fmt.Errorf("%w: id %s", ErrDuplicateTx, id)
		}

		from := balanceOf(tx.Sender)
		if from < tx.Amount {
			return nil, fmt.Errorf("%w: tx[%s]: bal %d", ErrNegativeBalance, tx, from)
		}
		changed[tx.Sender] = from - tx.Amount

		to, carry := bits.Add64(balanceOf(tx.Recipient), tx.Amount, 0)
		if carry != 0 {
			return nil, fmt.Errorf("%w: tx[%s]", ErrBalanceOverflow, tx)
		}
		changed[tx.Recipient] = to
	}

	if block.Miner != "" {
		reward, carry := bits.Add64(balanceOf(block.Miner), c.genesis.MiningReward, 0)
		if carry != 0 {
			return nil, fmt.Errorf("%w: miner[%s]", ErrBalanceOverflow, block.Miner)
		}
		changed[block.Miner] = reward
	}

	return changed, nil
}

// ReplaceIfLonger swaps in the candidate chain when it is strictly longer and
// valid. Chains of equal length never replace the resident chain. The
// transactions of orphaned blocks are dropped.
func (c *Chain) ReplaceIfLonger(candidate []Block) (Replacement, error) {
	if len(candidate) <= len(c.blocks) {
		return Replacement{Outcome: ReplaceNotLonger}, nil
	}

	nc, err := build(c.genesis, candidate)
	if err != nil {
		return Replacement{Outcome: ReplaceInvalid}, err
	}

	prefix := 0
	for prefix < len(c.hashes) && c.hashes[prefix] == nc.hashes[prefix] {
		prefix++
	}

	rep := Replacement{
		Outcome:  ReplaceAdopted,
		Orphaned: append([]Block(nil), c.blocks[prefix:]...),
	}
	for _, block := range nc.blocks[prefix:] {
		rep.Committed = append(rep.Committed, block.TxIDs()...)
	}

	*c = *nc

	return rep, nil
}

// =============================================================================

// Genesis returns the genesis settings the chain validates with.
func (c *Chain) Genesis() genesis.Genesis {
	return c.genesis
}

// Length returns the number of blocks, which is the index of the tip plus one.
func (c *Chain) Length() uint64 {
	return uint64(len(c.blocks))
}

// LatestBlock returns the tip of the chain.
func (c *Chain) LatestBlock() Block {
	return c.blocks[len(c.blocks)-1]
}

// LatestHash returns the hash of the tip of the chain.
func (c *Chain) LatestHash() Hash {
	return c.hashes[len(c.hashes)-1]
}

// Blocks returns a copy of the blocks in index order.
func (c *Chain) Blocks() []Block {
	return append([]Block(nil), c.blocks...)
}

// BlockByHash looks up a block by its hash.
func (c *Chain) BlockByHash(hash Hash) (Block, error) {
	for i, h := range c.hashes {
		if h == hash {
			return c.blocks[i], nil
		}
	}

	return Block{}, ErrBlockNotFound
}

// Contains reports whether the transaction has been committed.
func (c *Chain) Contains(txID Hash) bool {
	return c.txIDs.Contains(txID)
}

// BalanceOf returns the balance of the address after every block.
func (c *Chain) BalanceOf(addr Address) uint64 {
	return c.balances[addr]
}

// Balances returns a copy of every known balance.
func (c *Chain) Balances() map[Address]uint64 {
	balances := make(map[Address]uint64, len(c.balances))
	for addr, balance := range c.balances {
		balances[addr] = balance
	}
	return balances
}

// Fold recomputes the balances from the blocks without using the cached
// state. For a valid chain the result always matches Balances.
func (c *Chain) Fold() map[Address]uint64 {
	balances := genesisBalances(c.genesis)

	for _, block := range c.blocks[1:] {
		for _, tx := range block.Transactions {
			balances[tx.Sender] -= tx.Amount
			balances[tx.Recipient] += tx.Amount
		}
		if block.Miner != "" {
			balances[block.Miner] += c.genesis.MiningReward
		}
	}

	return balances
}

func genesisBalances(gen genesis.Genesis) map[Address]uint64 {
	balances := make(map[Address]uint64, len(gen.Balances))
	for account, balance := range gen.Balances {
		balances[Address(account)] = balance
	}
	return balances
}
