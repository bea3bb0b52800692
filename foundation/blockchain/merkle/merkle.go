// Package merkle provides a merkle tree over transaction identities so a block
// commits to its transactions with a single root hash and inclusion can be
// proven without the full block.
package merkle

import (
	"crypto/sha256"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// Set of errors returned by the tree.
var (
	ErrNoContent = errors.New("cannot construct tree with no content")
	ErrNotFound  = errors.New("unable to find data in tree")
)

// Step is one level of an inclusion proof. Left reports the sibling hash is
// concatenated before the running hash.
type Step struct {
	Hash common.Hash `json:"hash"`
	Left bool        `json:"left"`
}

// Tree holds every level of the tree, leaves first. A level with an odd
// number of nodes has its last node duplicated.
type Tree struct {
	levels [][]common.Hash
}

// NewTree constructs a tree from the ordered leaves.
func NewTree(leaves []common.Hash) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrNoContent
	}

	level := make([]common.Hash, len(leaves))
	copy(level, leaves)

	t := Tree{
		levels: [][]common.Hash{level},
	}

	for {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
			t.levels[len(t.levels)-1] = level
		}

		next := make([]common.Hash, len(level)/2)
		for i := range next {
			next[i] = hashPair(level[2*i], level[2*i+1])
		}
		t.levels = append(t.levels, next)

		if len(next) == 1 {
			break
		}
		level = next
	}

	return &t, nil
}

// Root returns the merkle root of the tree.
func (t *Tree) Root() common.Hash {
	return t.levels[len(t.levels)-1][0]
}

// Proof returns the sibling hashes from the leaf up to the root.
func (t *Tree) Proof(leaf common.Hash) ([]Step, error) {
	idx := -1
	for i, h := range t.levels[0] {
		if h == leaf {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, ErrNotFound
	}

	proof := make([]Step, 0, len(t.levels)-1)
	for _, level := range t.levels[:len(t.levels)-1] {
		proof = append(proof, Step{
			Hash: level[idx^1],
			Left: idx%2 == 1,
		})
		idx /= 2
	}

	return proof, nil
}

// Verify reports whether the proof leads from the leaf to the root.
func Verify(leaf common.Hash, proof []Step, root common.Hash) bool {
	h := leaf
	for _, step := range proof {
		switch {
		case step.Left:
			h = hashPair(step.Hash, h)
		default:
			h = hashPair(h, step.Hash)
		}
	}

	return h == root
}

func hashPair(left common.Hash, right common.Hash) common.Hash {
	return sha256.Sum256(append(left.Bytes(), right.Bytes()...))
}
