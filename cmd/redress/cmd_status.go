package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"redress/internal/store"
)

var statusFlags struct {
	orderID  string
	returnID string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest return for an order",
	RunE:  runStatus,
}

func init() {
	f := statusCmd.Flags()
	f.StringVar(&statusFlags.orderID, "order", "", "Order reference")
	f.StringVar(&statusFlags.returnID, "id", "", "Return ID")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if statusFlags.orderID == "" && statusFlags.returnID == "" {
		return fmt.Errorf("pass --order or --id")
	}

	st, err := openStore(appCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var r *store.Return
	if statusFlags.returnID != "" {
		r, err = st.GetReturn(statusFlags.returnID)
	} else {
		r, err = st.GetReturnByOrder(statusFlags.orderID)
	}
	if err != nil {
		return err
	}
	if r == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "No return found.")
		return nil
	}

	printReturn(cmd, r)
	return nil
}
