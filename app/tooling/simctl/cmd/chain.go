package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var chainNode string

var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Print the chain of a node.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var blocks []any
		if err := call(http.MethodGet, fmt.Sprintf("/v1/nodes/%s/chain", chainNode), nil, &blocks); err != nil {
			return err
		}
		return printJSON(blocks)
	},
}

var blockCmd = &cobra.Command{
	Use:   "block <hash>",
	Short: "Print a block of a node by its hash.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var block any
		if err := call(http.MethodGet, fmt.Sprintf("/v1/nodes/%s/blocks/%s", chainNode, args[0]), nil, &block); err != nil {
			return err
		}
		return printJSON(block)
	},
}

func init() {
	rootCmd.AddCommand(chainCmd)
	rootCmd.AddCommand(blockCmd)
	chainCmd.Flags().StringVarP(&chainNode, "node", "n", "", "Node to ask.")
	chainCmd.MarkFlagRequired("node")
	blockCmd.Flags().StringVarP(&chainNode, "node", "n", "", "Node to ask.")
	blockCmd.MarkFlagRequired("node")
}
