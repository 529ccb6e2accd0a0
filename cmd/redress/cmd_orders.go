package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List seeded orders",
	RunE:  runOrders,
}

func runOrders(cmd *cobra.Command, _ []string) error {
	st, err := openStore(appCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	orders, err := st.ListOrders()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(orders) == 0 {
		fmt.Fprintln(out, "No orders. Seed some with 'redress seed --orders'.")
		return nil
	}
	for _, o := range orders {
		fmt.Fprintf(out, "%s  %s  category=%s  purchased=%s  status=%s\n",
			o.OrderID, o.ProductName, o.Category, o.PurchaseDate.Format("2006-01-02"), o.Status)
	}
	return nil
}
