package database

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Address identifies a node or an account. Only equality is meaningful.
type Address string

// Hash is the 32 byte digest used for blocks and transaction identities.
type Hash = common.Hash

// ZeroHash represents a hash with every byte set to zero.
var ZeroHash Hash

// hashJSON produces the sha256 digest of the json encoding of the value.
func hashJSON(value any) Hash {
	data, err := json.Marshal(value)
	if err != nil {
		return ZeroHash
	}

	return Hash(sha256.Sum256(data))
}

// =============================================================================

// Tx moves an amount from the sender to the recipient. The anchor is the
// hash of the chain tip the transaction was admitted against, which binds the
// transaction to the block that is allowed to include it.
type Tx struct {
	Sender    Address `json:"sender"`
	Recipient Address `json:"recipient"`
	Amount    uint64  `json:"amount"`
	Anchor    Hash    `json:"anchor"`
}

// NewTx constructs a new transaction anchored at the specified tip.
func NewTx(sender Address, recipient Address, amount uint64, anchor Hash) Tx {
	return Tx{
		Sender:    sender,
		Recipient: recipient,
		Amount:    amount,
		Anchor:    anchor,
	}
}

// ID returns the identity of the transaction. Two transactions with the same
// fields share an identity.
func (tx Tx) ID() Hash {
	return hashJSON(tx)
}

// String implements the fmt.Stringer interface for logging.
func (tx Tx) String() string {
	return fmt.Sprintf("%s:%s:%d:%s", tx.Sender, tx.Recipient, tx.Amount, tx.Anchor.TerminalString())
}
