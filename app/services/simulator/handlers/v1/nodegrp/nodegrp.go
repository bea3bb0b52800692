// Package nodegrp maintains the group of handlers for node access.
package nodegrp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ardanlabs/blocksim/business/core/world"
	"github.com/ardanlabs/blocksim/business/sys/validate"
	"github.com/ardanlabs/blocksim/business/web/errs"
	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/state"
	"github.com/ardanlabs/blocksim/foundation/events"
	"github.com/ardanlabs/blocksim/foundation/web"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	World *world.World
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// List returns the addresses of the live nodes.
func (h Handlers) List(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	addrs := h.World.Addresses()

	nodes := make([]node, len(addrs))
	for i, addr := range addrs {
		nodes[i] = node{Address: string(addr)}
	}

	return web.Respond(ctx, w, nodes, http.StatusOK)
}

// Create adds a new node to the simulation.
func (h Handlers) Create(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	addr, err := h.World.AddNode()
	if err != nil {
		return fmt.Errorf("adding node: %w", err)
	}

	h.Log.Infow("add node", "traceid", v.TraceID, "node", addr)

	return web.Respond(ctx, w, node{Address: string(addr)}, http.StatusCreated)
}

// QueryByAddress returns a summary of the specified node.
func (h Handlers) QueryByAddress(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	st, err := h.node(r)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, st.QueryStatus(), http.StatusOK)
}

// Delete removes the specified node from the simulation.
func (h Handlers) Delete(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	addr := database.Address(web.Param(r, "node"))
	if err := h.World.RemoveNode(addr); err != nil {
		if errors.Is(err, world.ErrNodeNotFound) {
			return errs.NotFound(err)
		}
		return fmt.Errorf("removing node[%s]: %w", addr, err)
	}

	h.Log.Infow("remove node", "traceid", v.TraceID, "node", addr)

	return web.Respond(ctx, w, nil, http.StatusNoContent)
}

// Chain returns a copy of the chain of the specified node.
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	st, err := h.node(r)
	if err != nil {
		return err
	}

	blocks := st.RetrieveChain()

	data := make([]database.BlockData, len(blocks))
	for i, block := range blocks {
		data[i] = database.NewBlockData(block)
	}

	return web.Respond(ctx, w, data, http.StatusOK)
}

// BlockByHash returns the block with the specified hash from the chain of the
// specified node.
func (h Handlers) BlockByHash(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	st, err := h.node(r)
	if err != nil {
		return err
	}

	block, err := h.block(st, r)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, database.NewBlockData(block), http.StatusOK)
}

// TxProof returns the merkle proof that a transaction is included in the
// specified block.
func (h Handlers) TxProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	st, err := h.node(r)
	if err != nil {
		return err
	}

	block, err := h.block(st, r)
	if err != nil {
		return err
	}

	txID, err := parseHash(web.Param(r, "tx"))
	if err != nil {
		return err
	}

	steps, err := block.TxProof(txID)
	if err != nil {
		return errs.NotFound(err)
	}

	resp := proof{
		Block: block.Hash(),
		Tx:    txID,
		Root:  block.TransRoot(),
		Steps: steps,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mempool returns the pending transactions of the specified node.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	st, err := h.node(r)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, toTxs(st.RetrieveMempool()), http.StatusOK)
}

// ChainBalances returns the balances of the local chain of the specified
// node, or only the balance of the account when one is provided.
func (h Handlers) ChainBalances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	st, err := h.node(r)
	if err != nil {
		return err
	}

	var bals map[database.Address]uint64
	switch account := database.Address(web.Param(r, "account")); account {
	case "":
		bals = st.RetrieveChainBalances()
	default:
		bals = map[database.Address]uint64{account: st.QueryChainBalance(account)}
	}

	return web.Respond(ctx, w, h.balances(st, bals), http.StatusOK)
}

// MempoolBalances returns the balances of the specified node with the
// pending transactions applied, or only the balance of the account when one
// is provided.
func (h Handlers) MempoolBalances(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	st, err := h.node(r)
	if err != nil {
		return err
	}

	var bals map[database.Address]uint64
	switch account := database.Address(web.Param(r, "account")); account {
	case "":
		bals = st.RetrieveMempoolBalances()
	default:
		bals = map[database.Address]uint64{account: st.QueryMempoolBalance(account)}
	}

	return web.Respond(ctx, w, h.balances(st, bals), http.StatusOK)
}

// SubmitTransaction adds a new transaction to the mempool of the specified
// node. Ledger rejections are returned with their reason.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	st, err := h.node(r)
	if err != nil {
		return err
	}

	var ntx NewTx
	if err := web.Decode(r, &ntx); err != nil {
		return errs.BadRequest(fmt.Errorf("unable to decode payload: %w", err))
	}

	if err := validate.Check(ntx); err != nil {
		return err
	}

	h.Log.Infow("submit tran", "traceid", v.TraceID, "node", st.RetrieveAddress(), "sender", ntx.Sender, "recipient", ntx.Recipient, "amount", ntx.Amount)

	tran, err := st.SubmitTransaction(database.Address(ntx.Sender), database.Address(ntx.Recipient), ntx.Amount)
	if err != nil {
		return errs.Rejected(err)
	}

	return web.Respond(ctx, w, toTx(tran), http.StatusOK)
}

// =============================================================================

// node looks up the node named in the request.
func (h Handlers) node(r *http.Request) (*state.State, error) {
	st, err := h.World.Node(database.Address(web.Param(r, "node")))
	if err != nil {
		if errors.Is(err, world.ErrNodeNotFound) {
			return nil, errs.NotFound(err)
		}
		return nil, err
	}

	return st, nil
}

// block looks up the block named in the request in the chain of the node.
func (h Handlers) block(st *state.State, r *http.Request) (database.Block, error) {
	hash, err := parseHash(web.Param(r, "hash"))
	if err != nil {
		return database.Block{}, err
	}

	block, err := st.QueryBlockByHash(hash)
	if err != nil {
		if errors.Is(err, database.ErrBlockNotFound) {
			return database.Block{}, errs.NotFound(err)
		}
		return database.Block{}, err
	}

	return block, nil
}

// parseHash decodes a 0x prefixed hex hash.
func parseHash(s string) (database.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return database.Hash{}, errs.BadRequest(fmt.Errorf("invalid hash %q", s))
	}

	return common.BytesToHash(b), nil
}

func (h Handlers) balances(st *state.State, bals map[database.Address]uint64) balances {
	return balances{
		LatestBlock: st.RetrieveLatestBlock().Hash(),
		Uncommitted: st.QueryMempoolLength(),
		Balances:    bals,
	}
}
