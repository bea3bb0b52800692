package database

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"math/bits"
	"runtime"

	"github.com/ardanlabs/blocksim/foundation/blockchain/merkle"
)

// ErrTxNotFound is returned when a transaction is not part of a block.
var ErrTxNotFound = errors.New("transaction not found in block")

// NonceStep is the number of nonce attempts made between yields of the
// processor while mining.
const NonceStep = 1_000

// Block represents a group of transactions batched together.
type Block struct {
	Index        uint64  `json:"index"`
	PrevHash     Hash    `json:"prev_hash"`
	Miner        Address `json:"miner"`
	Transactions []Tx    `json:"transactions"`
	Nonce        uint64  `json:"nonce"`
}

// GenesisBlock returns the canonical first block every chain starts with.
func GenesisBlock() Block {
	return Block{}
}

// blockHeader is the value hashed to identify a block. The transactions are
// represented by the merkle root of their identities.
type blockHeader struct {
	Index     uint64  `json:"index"`
	PrevHash  Hash    `json:"prev_hash"`
	Miner     Address `json:"miner"`
	TransRoot Hash    `json:"trans_root"`
	Nonce     uint64  `json:"nonce"`
}

func (b Block) header() blockHeader {
	return blockHeader{
		Index:     b.Index,
		PrevHash:  b.PrevHash,
		Miner:     b.Miner,
		TransRoot: b.TransRoot(),
		Nonce:     b.Nonce,
	}
}

// TransRoot returns the merkle root of the transactions in the block. A block
// without transactions has the zero hash as its root.
func (b Block) TransRoot() Hash {
	tree, err := merkle.NewTree(b.TxIDs())
	if err != nil {
		return ZeroHash
	}
	return tree.Root()
}

// TxProof returns the proof the transaction is included in the block.
func (b Block) TxProof(txID Hash) ([]merkle.Step, error) {
	tree, err := merkle.NewTree(b.TxIDs())
	if err != nil {
		return nil, fmt.Errorf("%w: tx %s", ErrTxNotFound, txID)
	}

	proof, err := tree.Proof(txID)
	if err != nil {
		return nil, fmt.Errorf("%w: tx %s", ErrTxNotFound, txID)
	}

	return proof, nil
}

// Hash returns the unique hash for the Block.
func (b Block) Hash() Hash {
	return hashJSON(b.header())
}

// TxIDs returns the identities of the transactions in the block.
func (b Block) TxIDs() []Hash {
	ids := make([]Hash, len(b.Transactions))
	for i, tx := range b.Transactions {
		ids[i] = tx.ID()
	}
	return ids
}

// =============================================================================

// BlockData is the presentation of a block with its hash, used when a block
// leaves the node.
type BlockData struct {
	Hash  Hash  `json:"hash"`
	Block Block `json:"block"`
}

// NewBlockData constructs the value to hand to clients.
func NewBlockData(block Block) BlockData {
	return BlockData{
		Hash:  block.Hash(),
		Block: block,
	}
}

// =============================================================================

// POWArgs provides the inputs for a mining operation.
type POWArgs struct {
	Miner      Address
	Difficulty uint
	PrevBlock  Block
	Trans      []Tx
	EvHandler  func(v string, args ...any)
}

// POW constructs a new Block on top of the previous block and performs the
// work to find a nonce that solves the cryptographic POW puzzle. The search is
// abandoned with the context error as soon as the context is cancelled.
func POW(ctx context.Context, args POWArgs) (Block, error) {
	ev := args.EvHandler
	if ev == nil {
		ev = func(string, ...any) {}
	}

	nb := Block{
		Index:        args.PrevBlock.Index + 1,
		PrevHash:     args.PrevBlock.Hash(),
		Miner:        args.Miner,
		Transactions: args.Trans,
	}

	ev("database: POW: MINING: started: blk[%d]: trans[%d]", nb.Index, len(nb.Transactions))

	// Choose a random starting point for the nonce so competing miners
	// don't search the same space.
	nBig, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return Block{}, err
	}

	// The transactions are fixed for the duration of the search so the
	// header is constructed once and only the nonce changes.
	header := nb.header()
	header.Nonce = nBig.Uint64()

	var attempts uint64
	for {
		attempts++
		if attempts%NonceStep == 0 {
			runtime.Gosched()
		}

		if ctx.Err() != nil {
			ev("database: POW: MINING: CANCELLED: blk[%d]: attempts[%d]", nb.Index, attempts)
			return Block{}, ctx.Err()
		}

		hash := hashJSON(header)
		if !IsHashSolved(args.Difficulty, hash) {
			header.Nonce++
			continue
		}

		nb.Nonce = header.Nonce
		ev("database: POW: MINING: SOLVED: prevBlk[%s]: newBlk[%s]: attempts[%d]", nb.PrevHash, hash, attempts)

		return nb, nil
	}
}

// IsHashSolved checks the hash has at least difficulty leading zero bits.
func IsHashSolved(difficulty uint, hash Hash) bool {
	var zeros uint
	for _, b := range hash {
		if zeros >= difficulty {
			return true
		}
		if b != 0 {
			zeros += uint(bits.LeadingZeros8(b))
			break
		}
		zeros += 8
	}

	return zeros >= difficulty
}
