package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

type node struct {
	Address string `json:"address"`
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List the live nodes.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var nodes []node
		if err := call(http.MethodGet, "/v1/nodes", nil, &nodes); err != nil {
			return err
		}

		for _, n := range nodes {
			fmt.Println(n.Address)
		}
		return nil
	},
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a node to the simulation.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var n node
		if err := call(http.MethodPost, "/v1/nodes", nil, &n); err != nil {
			return err
		}

		fmt.Println(n.Address)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <node>",
	Short: "Remove a node from the simulation.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(http.MethodDelete, "/v1/nodes/"+args[0], nil, nil)
	},
}

func init() {
	rootCmd.AddCommand(nodesCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(removeCmd)
}
