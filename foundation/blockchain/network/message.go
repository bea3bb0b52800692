package network

import (
	"fmt"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
)

// Message is the set of values nodes exchange through the network.
type Message interface {
	name() string
}

// NewBlock announces a block the sender mined or accepted.
type NewBlock struct {
	Block database.Block
}

// NewTransaction carries a transaction submitted by a client or relayed by a
// peer.
type NewTransaction struct {
	Tx database.Tx
}

// ChainRequest asks the receiver for a copy of its full chain.
type ChainRequest struct{}

// ChainResponse answers a ChainRequest.
type ChainResponse struct {
	Chain []database.Block
}

func (NewBlock) name() string       { return "NewBlock" }
func (NewTransaction) name() string { return "NewTransaction" }
func (ChainRequest) name() string   { return "ChainRequest" }
func (ChainResponse) name() string  { return "ChainResponse" }

// =============================================================================

// Envelope is a message in transit between two nodes.
type Envelope struct {
	From    database.Address
	To      database.Address
	Message Message
}

// String implements the fmt.Stringer interface for logging.
func (env Envelope) String() string {
	var name string
	if env.Message != nil {
		name = env.Message.name()
	}
	return fmt.Sprintf("%s: from[%s]: to[%s]", name, env.From, env.To)
}
