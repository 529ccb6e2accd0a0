package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"redress/internal/capability"
	"redress/internal/communicate"
	"redress/internal/returns"
)

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "List returns pending manual review",
	RunE:  runReviews,
}

func runReviews(cmd *cobra.Command, _ []string) error {
	st, err := openStore(appCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	admin := returns.NewAdmin(st, communicate.New(capability.New(appCfg.Capability)))
	pending, err := admin.PendingReviews()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(pending) == 0 {
		fmt.Fprintln(out, "No returns pending review.")
		return nil
	}
	for _, r := range pending {
		fmt.Fprintf(out, "%s  order=%s  damage=%s  created=%s\n", r.ID, r.OrderID, r.DamageType, r.CreatedAt)
		fmt.Fprintf(out, "    %s\n", r.Description)
		if r.EscalationReason != "" {
			fmt.Fprintf(out, "    escalated: %s\n", r.EscalationReason)
		}
	}
	return nil
}
