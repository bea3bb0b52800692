package mempool_test

import (
	"errors"
	"math"
	"testing"

	"github.com/ardanlabs/blocksim/foundation/blockchain/database"
	"github.com/ardanlabs/blocksim/foundation/blockchain/mempool"
	"github.com/google/go-cmp/cmp"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

var (
	tip   = database.Hash{0x01}
	other = database.Hash{0x02}
)

func balances(bals map[database.Address]uint64) mempool.BalanceFunc {
	return func(addr database.Address) uint64 {
		return bals[addr]
	}
}

func TestAdmit(t *testing.T) {
	type table struct {
		name    string
		pending []database.Tx
		tx      database.Tx
		err     error
	}

	tt := []table{
		{
			name: "admitted",
			tx:   database.NewTx("S", "R", 1, tip),
		},
		{
			name: "zero-amount",
			tx:   database.NewTx("S", "R", 0, tip),
			err:  mempool.ErrNonPositiveAmount,
		},
		{
			name: "no-funds",
			tx:   database.NewTx("E", "R", 1, tip),
			err:  mempool.ErrInsufficientFunds,
		},
		{
			name: "stale-anchor",
			tx:   database.NewTx("S", "R", 1, other),
			err:  mempool.ErrStaleAnchor,
		},
		{
			name:    "duplicate",
			pending: []database.Tx{database.NewTx("S", "R", 1, tip)},
			tx:      database.NewTx("S", "R", 1, tip),
			err:     mempool.ErrDuplicateTx,
		},
		{
			name:    "pending-overdraft",
			pending: []database.Tx{database.NewTx("S", "R", 7, tip)},
			tx:      database.NewTx("S", "X", 4, tip),
			err:     mempool.ErrInsufficientFunds,
		},
		{
			name:    "pending-exact",
			pending: []database.Tx{database.NewTx("S", "R", 7, tip)},
			tx:      database.NewTx("S", "X", 3, tip),
		},
		{
			name: "recipient-overflow",
			tx:   database.NewTx("S", "W", 6, tip),
			err:  mempool.ErrBalanceOverflow,
		},
		{
			name:    "pending-receipt-overflow",
			pending: []database.Tx{database.NewTx("S", "W", 3, tip)},
			tx:      database.NewTx("S", "W", 3, tip),
			err:     mempool.ErrBalanceOverflow,
		},
		{
			name: "recipient-exact",
			tx:   database.NewTx("S", "W", 5, tip),
		},
	}

	t.Log("Given the need to admit transactions into the mempool.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen admitting a %s transaction.", testID, tst.name)
			{
				f := func(t *testing.T) {
					mp := mempool.New(tip)
					balanceFn := balances(map[database.Address]uint64{"S": 10, "W": math.MaxUint64 - 5})

					for _, tx := range tst.pending {
						if err := mp.Admit(tx, balanceFn); err != nil {
							t.Fatalf("\t%s\tTest %d:\tShould be able to admit the pending transactions: %v", failed, testID, err)
						}
					}

					err := mp.Admit(tst.tx, balanceFn)
					switch {
					case tst.err == nil && err != nil:
						t.Fatalf("\t%s\tTest %d:\tShould admit the transaction: %v", failed, testID, err)
					case tst.err != nil && !errors.Is(err, tst.err):
						t.Fatalf("\t%s\tTest %d:\tShould get %q, got %v.", failed, testID, tst.err, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get the expected result.", success, testID)

					exp := len(tst.pending)
					if tst.err == nil {
						exp++
					}
					if mp.Count() != exp {
						t.Fatalf("\t%s\tTest %d:\tShould have %d pending, got %d.", failed, testID, exp, mp.Count())
					}
					t.Logf("\t%s\tTest %d:\tShould have %d pending.", success, testID, exp)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func TestDrainRestore(t *testing.T) {
	t.Log("Given the need to assemble blocks from the mempool.")
	{
		mp := mempool.New(tip)
		balanceFn := balances(map[database.Address]uint64{"S": 100})

		trans := []database.Tx{
			database.NewTx("S", "A", 1, tip),
			database.NewTx("S", "B", 2, tip),
			database.NewTx("S", "C", 3, tip),
		}
		for _, tx := range trans {
			if err := mp.Admit(tx, balanceFn); err != nil {
				t.Fatalf("\t%s\tShould be able to admit: %v", failed, err)
			}
		}

		t.Logf("\tTest 0:\tWhen draining for a block.")
		{
			drained := mp.Drain(2)
			if diff := cmp.Diff(trans[:2], drained); diff != "" {
				t.Fatalf("\t%s\tTest 0:\tShould drain the oldest in order:\n%s", failed, diff)
			}
			t.Logf("\t%s\tTest 0:\tShould drain the oldest in order.", success)

			if diff := cmp.Diff(trans[2:], mp.Copy()); diff != "" || mp.Count() != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould no longer list drained transactions:\n%s", failed, diff)
			}
			if got := mp.BalanceOf("S", 100); got != 94 {
				t.Fatalf("\t%s\tTest 0:\tShould keep the funds of drained transactions reserved, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould no longer list drained transactions.", success)

			if err := mp.Admit(trans[0], balanceFn); !errors.Is(err, mempool.ErrDuplicateTx) {
				t.Fatalf("\t%s\tTest 0:\tShould not readmit an in flight transaction: %v", failed, err)
			}
			t.Logf("\t%s\tTest 0:\tShould not readmit an in flight transaction.", success)

			if got := mp.Drain(2); len(got) != 1 || got[0] != trans[2] {
				t.Fatalf("\t%s\tTest 0:\tShould only drain what is not in flight: %v", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould only drain what is not in flight.", success)
		}

		t.Logf("\tTest 1:\tWhen mining is abandoned.")
		{
			if n := mp.Restore(trans); n != 3 {
				t.Fatalf("\t%s\tTest 1:\tShould restore 3, got %d.", failed, n)
			}
			if mp.Count() != 3 {
				t.Fatalf("\t%s\tTest 1:\tShould list the restored transactions, got %d.", failed, mp.Count())
			}

			late := database.NewTx("S", "D", 4, tip)
			if err := mp.Admit(late, balanceFn); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to admit: %v", failed, err)
			}

			exp := append(append([]database.Tx(nil), trans...), late)
			if diff := cmp.Diff(exp, mp.Drain(10)); diff != "" {
				t.Fatalf("\t%s\tTest 1:\tShould keep restored transactions at the front:\n%s", failed, diff)
			}
			t.Logf("\t%s\tTest 1:\tShould keep restored transactions at the front.", success)
		}

		t.Logf("\tTest 2:\tWhen the transactions are committed.")
		{
			ids := []database.Hash{trans[0].ID(), trans[1].ID()}
			if n := mp.Purge(ids); n != 2 {
				t.Fatalf("\t%s\tTest 2:\tShould purge 2, got %d.", failed, n)
			}
			if n := mp.Purge(ids); n != 0 {
				t.Fatalf("\t%s\tTest 2:\tShould purge only once, got %d.", failed, n)
			}
			if n := mp.Restore(trans); n != 1 {
				t.Fatalf("\t%s\tTest 2:\tShould not restore committed transactions, got %d.", failed, n)
			}
			if diff := cmp.Diff(trans[2:], mp.Copy()); diff != "" {
				t.Fatalf("\t%s\tTest 2:\tShould only list the restored transaction:\n%s", failed, diff)
			}
			t.Logf("\t%s\tTest 2:\tShould purge committed transactions once.", success)
		}

		t.Logf("\tTest 3:\tWhen the tip changes.")
		{
			if n := mp.Rebase(other); n != 2 {
				t.Fatalf("\t%s\tTest 3:\tShould drop 2 stale transactions, got %d.", failed, n)
			}
			if mp.Count() != 0 || mp.Tip() != other {
				t.Fatalf("\t%s\tTest 3:\tShould be empty at the new tip.", failed)
			}
			t.Logf("\t%s\tTest 3:\tShould drop stale transactions.", success)

			if err := mp.Admit(database.NewTx("S", "A", 1, other), balanceFn); err != nil {
				t.Fatalf("\t%s\tTest 3:\tShould admit at the new tip: %v", failed, err)
			}
			t.Logf("\t%s\tTest 3:\tShould admit at the new tip.", success)
		}
	}
}

func TestBalanceOf(t *testing.T) {
	t.Log("Given the need to see balances with pending transactions.")
	{
		t.Logf("\tTest 0:\tWhen S sends 4 to R and R sends 1 to S.")
		{
			mp := mempool.New(tip)
			balanceFn := balances(map[database.Address]uint64{"S": 10, "R": 2})

			for _, tx := range []database.Tx{database.NewTx("S", "R", 4, tip), database.NewTx("R", "S", 1, tip)} {
				if err := mp.Admit(tx, balanceFn); err != nil {
					t.Fatalf("\t%s\tTest 0:\tShould be able to admit: %v", failed, err)
				}
			}

			if got := mp.BalanceOf("S", 10); got != 7 {
				t.Fatalf("\t%s\tTest 0:\tShould see 7 for S, got %d.", failed, got)
			}
			if got := mp.BalanceOf("R", 2); got != 5 {
				t.Fatalf("\t%s\tTest 0:\tShould see 5 for R, got %d.", failed, got)
			}
			if got := mp.PendingSends("S"); got != 4 {
				t.Fatalf("\t%s\tTest 0:\tShould have 4 pending for S, got %d.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould apply pending transactions.", success)
		}

		t.Logf("\tTest 1:\tWhen a transaction to a new account is being mined.")
		{
			committed := map[database.Address]uint64{"S": 10}

			mp := mempool.New(tip)
			if err := mp.Admit(database.NewTx("S", "N", 3, tip), balances(committed)); err != nil {
				t.Fatalf("\t%s\tTest 1:\tShould be able to admit: %v", failed, err)
			}
			mp.Drain(1)

			exp := map[database.Address]uint64{"S": 7, "N": 3}
			if diff := cmp.Diff(exp, mp.Balances(committed)); diff != "" {
				t.Fatalf("\t%s\tTest 1:\tShould apply the drained transaction:\n%s", failed, diff)
			}
			if committed["S"] != 10 {
				t.Fatalf("\t%s\tTest 1:\tShould not modify the committed balances.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould apply the drained transaction.", success)
		}
	}
}
