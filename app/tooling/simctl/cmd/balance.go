package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	balanceNode string
	pending     bool
)

type balances struct {
	LatestBlock string            `json:"latest_block"`
	Uncommitted int               `json:"uncommitted"`
	Balances    map[string]uint64 `json:"balances"`
}

var balanceCmd = &cobra.Command{
	Use:   "balance [account]",
	Short: "Print the balances seen by a node.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		view := "chain"
		if pending {
			view = "mempool"
		}

		path := fmt.Sprintf("/v1/nodes/%s/balances/%s", balanceNode, view)
		if len(args) == 1 {
			path += "/" + args[0]
		}

		var bals balances
		if err := call(http.MethodGet, path, nil, &bals); err != nil {
			return err
		}

		fmt.Println("Latest Block:", bals.LatestBlock)
		fmt.Println("Uncommitted :", bals.Uncommitted)
		for account, balance := range bals.Balances {
			fmt.Printf("%s: %d\n", account, balance)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().StringVarP(&balanceNode, "node", "n", "", "Node to ask.")
	balanceCmd.Flags().BoolVarP(&pending, "pending", "p", false, "Apply the pending transactions of the node.")
	balanceCmd.MarkFlagRequired("node")
}
