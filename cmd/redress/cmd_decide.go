package main

import (
	"github.com/spf13/cobra"

	"redress/internal/capability"
	"redress/internal/communicate"
	"redress/internal/returns"
)

var decideFlags struct {
	returnID string
	decision string
	note     string
}

var decideCmd = &cobra.Command{
	Use:   "decide",
	Short: "Record a human decision on a pending review",
	RunE:  runDecide,
}

func init() {
	f := decideCmd.Flags()
	f.StringVar(&decideFlags.returnID, "id", "", "Return ID (required)")
	f.StringVar(&decideFlags.decision, "decision", "", "APPROVED or REJECTED (required)")
	f.StringVar(&decideFlags.note, "note", "", "Reviewer note included in the customer message")

	_ = decideCmd.MarkFlagRequired("id")
	_ = decideCmd.MarkFlagRequired("decision")
}

func runDecide(cmd *cobra.Command, _ []string) error {
	st, err := openStore(appCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	admin := returns.NewAdmin(st, communicate.New(capability.New(appCfg.Capability)))
	r, err := admin.Decide(decideFlags.returnID, decideFlags.decision, decideFlags.note)
	if err != nil {
		return err
	}

	printReturn(cmd, r)
	return nil
}
