package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"
)

var (
	entry     string
	sender    string
	recipient string
	amount    int64
)

type tx struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
	Anchor    string `json:"anchor"`
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit a transaction through a node.",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := struct {
			Sender    string `json:"sender"`
			Recipient string `json:"recipient"`
			Amount    int64  `json:"amount"`
		}{
			Sender:    sender,
			Recipient: recipient,
			Amount:    amount,
		}

		var out tx
		if err := call(http.MethodPost, fmt.Sprintf("/v1/nodes/%s/tx/submit", entry), in, &out); err != nil {
			return err
		}

		fmt.Println("admitted:", out.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&entry, "node", "n", "", "Node to submit the transaction to.")
	sendCmd.Flags().StringVarP(&sender, "from", "f", "", "Sending account.")
	sendCmd.Flags().StringVarP(&recipient, "to", "t", "", "Receiving account.")
	sendCmd.Flags().Int64VarP(&amount, "amount", "v", 0, "Amount to send.")
	sendCmd.MarkFlagRequired("node")
}
