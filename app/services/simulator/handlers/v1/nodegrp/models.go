package nodegrp

import (
	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/merkle"
)

// NewTx is what a client sends to submit a transaction through a node.
type NewTx struct {
	Sender    string `json:"sender" validate:"required"`
	Recipient string `json:"recipient" validate:"required"`
	Amount    int64  `json:"amount"`
}

type node struct {
	Address string `json:"address"`
}

type tx struct {
	ID        database.Hash    `json:"id"`
	Sender    database.Address `json:"sender"`
	Recipient database.Address `json:"recipient"`
	Amount    uint64           `json:"amount"`
	Anchor    database.Hash    `json:"anchor"`
}

func toTx(tran database.Tx) tx {
	return tx{
		ID:        tran.ID(),
		Sender:    tran.Sender,
		Recipient: tran.Recipient,
		Amount:    tran.Amount,
		Anchor:    tran.Anchor,
	}
}

func toTxs(trans []database.Tx) []tx {
	txs := make([]tx, len(trans))
	for i, tran := range trans {
		txs[i] = toTx(tran)
	}
	return txs
}

type balances struct {
	LatestBlock database.Hash               `json:"latest_block"`
	Uncommitted int                         `json:"uncommitted"`
	Balances    map[database.Address]uint64 `json:"balances"`
}

type proof struct {
	Block database.Hash `json:"block"`
	Tx    database.Hash `json:"tx"`
	Root  database.Hash `json:"root"`
	Steps []merkle.Step `json:"steps"`
}
