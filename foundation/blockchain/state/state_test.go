package state_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/genesis"
	"github.com/ardanlabs/blocksim/foundation/blockchain/mempool"
	"github.com/ardanlabs/blocksim/foundation/blockchain/network"
	"github.com/ardanlabs/blocksim/foundation/blockchain/state"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// recorder captures the signals the state sends to its worker.
type recorder struct {
	mu      sync.Mutex
	shared  []database.Tx
	starts  int
	cancels int
}

func (r *recorder) Shutdown() {}

func (r *recorder) SignalStartMining() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.starts++
}

func (r *recorder) SignalCancelMining() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels++
}

func (r *recorder) SignalShareTx(tx database.Tx) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shared = append(r.shared, tx)
}

// node is a state without a worker, driven by hand.
type node struct {
	*state.State
	mailbox *network.Mailbox
	worker  *recorder
}

func newNode(t *testing.T, net *network.Network, addr database.Address, gen genesis.Genesis) node {
	t.Helper()

	st, err := state.New(state.Config{
		Address: addr,
		Genesis: gen,
		Network: net,
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct node %s: %v", failed, addr, err)
	}

	rec := recorder{}
	st.Worker = &rec

	return node{
		State:   st,
		mailbox: net.Join(addr),
		worker:  &rec,
	}
}

// deliver processes the next message waiting for the node.
func (n node) deliver(t *testing.T) network.Envelope {
	t.Helper()

	if n.mailbox.Len() == 0 {
		t.Fatalf("\t%s\tShould have a message waiting for %s.", failed, n.RetrieveAddress())
	}

	env, err := n.mailbox.Next(context.Background())
	if err != nil {
		t.Fatalf("\t%s\tShould be able to receive a message: %v", failed, err)
	}

	if err := n.ProcessMessage(env); err != nil {
		t.Fatalf("\t%s\tShould be able to process %s: %v", failed, env, err)
	}

	return env
}

func (n node) mine(t *testing.T) database.Block {
	t.Helper()

	block, err := n.MineNewBlock(context.Background())
	if err != nil {
		t.Fatalf("\t%s\tShould be able to mine a block: %v", failed, err)
	}

	return block
}

func testGenesis() genesis.Genesis {
	return genesis.Genesis{
		TransPerBlock: 10,
		Difficulty:    8,
		MiningReward:  100,
		Balances:      map[string]uint64{"S": 10},
	}
}

// =============================================================================

func TestSubmitTransaction(t *testing.T) {
	type table struct {
		name   string
		sender database.Address
		amount int64
		err    error
	}

	tt := []table{
		{name: "zero", sender: "S", amount: 0, err: mempool.ErrNonPositiveAmount},
		{name: "negative", sender: "S", amount: -1, err: mempool.ErrNonPositiveAmount},
		{name: "no-funds", sender: "E", amount: 1, err: mempool.ErrInsufficientFunds},
		{name: "funded", sender: "S", amount: 1},
	}

	t.Log("Given the need to submit client transactions.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen submitting a %s amount.", testID, tst.name)
			{
				f := func(t *testing.T) {
					n := newNode(t, network.New(), "A", testGenesis())

					tx, err := n.SubmitTransaction(tst.sender, "R", tst.amount)
					if tst.err != nil {
						if !errors.Is(err, tst.err) {
							t.Fatalf("\t%s\tTest %d:\tShould get %q, got %v.", failed, testID, tst.err, err)
						}
						if n.QueryMempoolLength() != 0 || len(n.worker.shared) != 0 {
							t.Fatalf("\t%s\tTest %d:\tShould not keep or share the transaction.", failed, testID)
						}
						t.Logf("\t%s\tTest %d:\tShould get %q.", success, testID, tst.err)
						return
					}

					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould admit the transaction: %v", failed, testID, err)
					}
					if tx.Anchor != n.RetrieveLatestBlock().Hash() {
						t.Fatalf("\t%s\tTest %d:\tShould anchor at the tip.", failed, testID)
					}
					if n.QueryMempoolLength() != 1 || len(n.worker.shared) != 1 || n.worker.starts != 1 {
						t.Fatalf("\t%s\tTest %d:\tShould keep and share the transaction.", failed, testID)
					}
					if got := n.QueryMempoolBalance("S"); got != 9 {
						t.Fatalf("\t%s\tTest %d:\tShould see 9 pending for S, got %d.", failed, testID, got)
					}
					if got := n.QueryChainBalance("S"); got != 10 {
						t.Fatalf("\t%s\tTest %d:\tShould still see 10 committed for S, got %d.", failed, testID, got)
					}
					t.Logf("\t%s\tTest %d:\tShould admit the transaction.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestPeerTransactionRelay(t *testing.T) {
	t.Log("Given the need to relay transactions only once.")
	{
		t.Logf("\tTest 0:\tWhen the same transaction arrives twice.")
		{
			n := newNode(t, network.New(), "A", testGenesis())
			tx := database.NewTx("S", "R", 3, n.RetrieveLatestBlock().Hash())

			if err := n.ProcessPeerTransaction("B", tx); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould admit the transaction: %v", failed, err)
			}
			if err := n.ProcessPeerTransaction("C", tx); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould ignore the second copy: %v", failed, err)
			}
			if len(n.worker.shared) != 1 || n.QueryMempoolLength() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould relay once, relayed %d.", failed, len(n.worker.shared))
			}
			t.Logf("\t%s\tTest 0:\tShould relay once.", success)
		}

		t.Logf("\tTest 1:\tWhen a relayed transaction overdraws.")
		{
			n := newNode(t, network.New(), "A", testGenesis())
			tx := database.NewTx("S", "R", 11, n.RetrieveLatestBlock().Hash())

			if err := n.ProcessPeerTransaction("B", tx); !errors.Is(err, mempool.ErrInsufficientFunds) {
				t.Fatalf("\t%s\tTest 1:\tShould reject the transaction: %v", failed, err)
			}
			if len(n.worker.shared) != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould not relay a rejected transaction.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould reject the transaction.", success)
		}
	}
}

func TestBlockPropagation(t *testing.T) {
	t.Log("Given two nodes starting from the same genesis.")
	{
		net := network.New()
		nodeA := newNode(t, net, "A", testGenesis())
		nodeB := newNode(t, net, "B", testGenesis())

		t.Logf("\tTest 0:\tWhen A mines a block with S sending 5 to R.")
		{
			tx, err := nodeA.SubmitTransaction("S", "R", 5)
			if err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould admit the transaction: %v", failed, err)
			}

			block := nodeA.mine(t)
			if len(block.Transactions) != 1 || block.Transactions[0] != tx {
				t.Fatalf("\t%s\tTest 0:\tShould include the transaction in the block.", failed)
			}
			if nodeA.QueryMempoolLength() != 0 {
				t.Fatalf("\t%s\tTest 0:\tShould remove the transaction from the mempool.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould include the transaction in the block.", success)

			if n := nodeA.NetSendBlockToPeers(block); n != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould announce the block to B, reached %d.", failed, n)
			}
			nodeB.deliver(t)

			if got := nodeB.QueryChainBalance("S"); got != 5 {
				t.Fatalf("\t%s\tTest 0:\tShould see 5 for S on B, got %d.", failed, got)
			}
			if got := nodeB.QueryChainBalance("R"); got != 5 {
				t.Fatalf("\t%s\tTest 0:\tShould see 5 for R on B, got %d.", failed, got)
			}
			if nodeB.QueryStatus().LatestHash != nodeA.QueryStatus().LatestHash {
				t.Fatalf("\t%s\tTest 0:\tShould share the same tip.", failed)
			}
			if nodeB.worker.cancels != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould cancel B's mining, got %d signals.", failed, nodeB.worker.cancels)
			}
			t.Logf("\t%s\tTest 0:\tShould apply the block on B.", success)

			found, err := nodeB.QueryBlockByHash(block.Hash())
			if err != nil || found.Index != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould find the block on B: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould find the block on B.", success)
		}

		t.Logf("\tTest 1:\tWhen the same block arrives again.")
		{
			nodeA.NetSendBlockToPeers(nodeA.RetrieveLatestBlock())
			nodeB.deliver(t)

			if nodeB.QueryChainLength() != 2 || nodeA.mailbox.Len() != 0 {
				t.Fatalf("\t%s\tTest 1:\tShould ignore a stale block without a chain pull.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould ignore a stale block without a chain pull.", success)
		}
	}
}

func TestMiningAbandoned(t *testing.T) {
	t.Log("Given the need to abandon a mining operation.")
	{
		t.Logf("\tTest 0:\tWhen the mining context is cancelled.")
		{
			n := newNode(t, network.New(), "A", testGenesis())
			if _, err := n.SubmitTransaction("S", "R", 4); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould admit the transaction: %v", failed, err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			if _, err := n.MineNewBlock(ctx); !errors.Is(err, context.Canceled) {
				t.Fatalf("\t%s\tTest 0:\tShould abandon the block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould abandon the block.", success)

			block := n.mine(t)
			if len(block.Transactions) != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould mine the restored transaction.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould mine the restored transaction.", success)
		}

		t.Logf("\tTest 1:\tWhen a peer block is accepted during the nonce search.")
		{
			peer := newNode(t, network.New(), "B", testGenesis())
			peerBlock := peer.mine(t)

			// The peer block arrives as soon as the search starts.
			var st *state.State
			var once sync.Once
			var procErr error
			ev := func(v string, args ...any) {
				if !strings.HasPrefix(v, "database: POW: MINING: started") {
					return
				}
				once.Do(func() {
					procErr = st.ProcessProposedBlock("B", peerBlock)
				})
			}

			var err error
			st, err = state.New(state.Config{
				Address:   "A",
				Genesis:   testGenesis(),
				Network:   network.New(),
				EvHandler: ev,
			})
			if err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to construct the node: %v", failed, err)
			}

			if _, err := st.SubmitTransaction("S", "R", 4); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould admit the transaction: %v", failed, err)
			}

			if _, err := st.MineNewBlock(context.Background()); !errors.Is(err, state.ErrStaleTip) {
				t.Fatalf("\t%s\tTest 1:\tShould discard the block mined on the old tip: %v", failed, err)
			}
			if procErr != nil {
				t.Fatalf("\t%s\tTest 1:\tShould accept the peer block: %v", failed, procErr)
			}
			t.Logf("\t%s\tTest 1:\tShould discard the block mined on the old tip.", success)

			if st.QueryChainLength() != 2 || st.RetrieveLatestBlock().Hash() != peerBlock.Hash() {
				t.Fatalf("\t%s\tTest 1:\tShould hold the peer block as the tip.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould hold the peer block as the tip.", success)

			if st.QueryMempoolLength() != 0 || st.QueryMempoolBalance("S") != 10 {
				t.Fatalf("\t%s\tTest 1:\tShould drop the transaction anchored at the old tip.", failed)
			}
			tx, err := st.SubmitTransaction("S", "R", 4)
			if err != nil || tx.Anchor != peerBlock.Hash() {
				t.Fatalf("\t%s\tTest 1:\tShould anchor new transactions at the peer block: %v", failed, err)
			}
			t.Logf("\t%s\tTest 1:\tShould rebase the mempool on the peer block.", success)
		}
	}
}

func TestForkResolution(t *testing.T) {
	t.Log("Given two nodes mining competing chains.")
	{
		net := network.New()
		nodeA := newNode(t, net, "A", testGenesis())
		nodeB := newNode(t, net, "B", testGenesis())

		tx, err := nodeA.SubmitTransaction("S", "R", 6)
		if err != nil {
			t.Fatalf("\t%s\tShould admit the transaction: %v", failed, err)
		}
		for range 2 {
			nodeA.mine(t)
		}

		var tip database.Block
		for range 4 {
			tip = nodeB.mine(t)
		}

		t.Logf("\tTest 0:\tWhen B's tip reaches A, which holds a chain of 3.")
		{
			nodeB.NetSendBlockToPeers(tip)
			nodeA.deliver(t)

			if nodeA.QueryChainLength() != 3 {
				t.Fatalf("\t%s\tTest 0:\tShould not append a block that does not extend the tip.", failed)
			}

			env := nodeB.deliver(t)
			if _, ok := env.Message.(network.ChainRequest); !ok || env.From != "A" {
				t.Fatalf("\t%s\tTest 0:\tShould pull B's chain, got %s.", failed, env)
			}
			t.Logf("\t%s\tTest 0:\tShould pull B's chain.", success)

			env = nodeA.deliver(t)
			if _, ok := env.Message.(network.ChainResponse); !ok {
				t.Fatalf("\t%s\tTest 0:\tShould receive B's chain, got %s.", failed, env)
			}

			if nodeA.QueryChainLength() != 5 || nodeA.QueryStatus().LatestHash != tip.Hash() {
				t.Fatalf("\t%s\tTest 0:\tShould adopt B's chain of 5.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould adopt B's chain of 5.", success)

			for _, block := range nodeA.RetrieveChain() {
				for _, committed := range block.Transactions {
					if committed == tx {
						t.Fatalf("\t%s\tTest 0:\tShould drop the orphaned transaction.", failed)
					}
				}
			}
			if nodeA.QueryMempoolLength() != 0 || nodeA.QueryChainBalance("S") != 10 {
				t.Fatalf("\t%s\tTest 0:\tShould not recycle the orphaned transaction.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould drop the orphaned transaction.", success)

			if nodeA.QueryChainBalance("A") != 0 || nodeA.QueryChainBalance("B") != 400 {
				t.Fatalf("\t%s\tTest 0:\tShould only keep B's rewards.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould only keep B's rewards.", success)
		}

		t.Logf("\tTest 1:\tWhen A's shorter chain reaches B.")
		{
			if !nodeA.NetSendChain("B") {
				t.Fatalf("\t%s\tTest 1:\tShould be able to send the chain.", failed)
			}
			nodeB.deliver(t)

			if nodeB.QueryChainLength() != 5 || nodeB.QueryStatus().LatestHash != tip.Hash() {
				t.Fatalf("\t%s\tTest 1:\tShould keep B's chain.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould keep B's chain.", success)
		}
	}
}
