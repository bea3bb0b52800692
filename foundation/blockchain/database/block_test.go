package database_test

import (
	"errors"
	"testing"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/merkle"
)

func TestTxProof(t *testing.T) {
	t.Log("Given the need to prove a transaction is in a block.")
	{
		anchor := database.GenesisBlock().Hash()
		block := database.Block{
			Index:    1,
			PrevHash: anchor,
			Miner:    "M",
			Transactions: []database.Tx{
				database.NewTx("S", "A", 1, anchor),
				database.NewTx("S", "B", 2, anchor),
				database.NewTx("S", "C", 3, anchor),
			},
		}

		t.Logf("\tTest 0:\tWhen the transaction is in the block.")
		{
			for _, tx := range block.Transactions {
				proof, err := block.TxProof(tx.ID())
				if err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould get a proof: %v", failed, err)
				}
				if !merkle.Verify(tx.ID(), proof, block.TransRoot()) {
					t.Fatalf("\t%s\tTest 0:\tShould verify against the root.", failed)
				}
			}
			t.Logf("\t%s\tTest 0:\tShould verify against the root.", success)
		}

		t.Logf("\tTest 1:\tWhen the transaction is not in the block.")
		{
			other := database.NewTx("S", "D", 4, anchor)
			if _, err := block.TxProof(other.ID()); !errors.Is(err, database.ErrTxNotFound) {
				t.Fatalf("\t%s\tTest 1:\tShould not find the transaction: %v", failed, err)
			}
			if _, err := database.GenesisBlock().TxProof(other.ID()); !errors.Is(err, database.ErrTxNotFound) {
				t.Fatalf("\t%s\tTest 1:\tShould not find it in an empty block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould not find the transaction.", success)
		}

		t.Logf("\tTest 2:\tWhen the transactions change.")
		{
			if database.GenesisBlock().TransRoot() != database.ZeroHash {
				t.Fatalf("\t%s\tTest 2:\tShould use the zero root without transactions.", failed)
			}

			before := block.Hash()
			block.Transactions[0], block.Transactions[1] = block.Transactions[1], block.Transactions[0]
			if block.Hash() == before {
				t.Fatalf("\t%s\tTest 2:\tShould change the block hash with the order.", failed)
			}
			t.Logf("\t%s\tTest 2:\tShould commit to the order of the transactions.", success)
		}
	}
}
