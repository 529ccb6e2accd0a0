package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"redress/internal/domain"
	"redress/internal/store"
)

var submitFlags struct {
	orderID     string
	category    string
	damageType  string
	description string
	images      []string
	email       string
	phone       string
}

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a return request and adjudicate it",
	RunE:  runSubmit,
}

func init() {
	f := submitCmd.Flags()
	f.StringVar(&submitFlags.orderID, "order", "", "Order reference (required)")
	f.StringVar(&submitFlags.category, "category", "", "Product category, must match the order (required)")
	f.StringVar(&submitFlags.damageType, "damage", "", "Damage type, e.g. PHYSICAL, FUNCTIONAL, WRONG_ITEM (required)")
	f.StringVar(&submitFlags.description, "description", "", "Damage description (required)")
	f.StringArrayVar(&submitFlags.images, "image", nil, "Path to an evidence image (repeatable; only the first is analyzed)")
	f.StringVar(&submitFlags.email, "email", "", "Customer email for the decision message")
	f.StringVar(&submitFlags.phone, "phone", "", "Customer phone")

	_ = submitCmd.MarkFlagRequired("order")
	_ = submitCmd.MarkFlagRequired("category")
	_ = submitCmd.MarkFlagRequired("damage")
	_ = submitCmd.MarkFlagRequired("description")
}

func runSubmit(cmd *cobra.Command, _ []string) error {
	st, err := openStore(appCfg)
	if err != nil {
		return err
	}
	defer st.Close()
	clauses, err := openCorpus(appCfg)
	if err != nil {
		return err
	}
	defer clauses.Close()

	media, err := loadMedia(submitFlags.images)
	if err != nil {
		return err
	}

	svc := buildService(appCfg, st, clauses)
	r, err := svc.Process(cmd.Context(), domain.ReturnRequest{
		OrderID:       submitFlags.orderID,
		Category:      submitFlags.category,
		DamageType:    domain.DamageType(submitFlags.damageType),
		Description:   submitFlags.description,
		Media:         media,
		CustomerEmail: submitFlags.email,
		CustomerPhone: submitFlags.phone,
	})
	if err != nil {
		return err
	}

	printReturn(cmd, r)
	return nil
}

func loadMedia(paths []string) ([]domain.MediaItem, error) {
	var media []domain.MediaItem
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", p, err)
		}
		media = append(media, domain.MediaItem{
			Data:     data,
			MimeType: mimeTypeFor(p),
			Filename: filepath.Base(p),
		})
	}
	return media, nil
}

func printReturn(cmd *cobra.Command, r *store.Return) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Return:   %s\n", r.ID)
	fmt.Fprintf(out, "Order:    %s\n", r.OrderID)
	fmt.Fprintf(out, "Status:   %s\n", r.Status)
	if r.Adjudicated() {
		fmt.Fprintf(out, "Decision: %s (confidence %.2f)\n", r.Decision, r.Confidence)
		fmt.Fprintf(out, "Reason:   %s\n", r.Reason)
	}
	if r.AdminDecision != "" {
		fmt.Fprintf(out, "Admin:    %s", r.AdminDecision)
		if r.AdminNote != "" {
			fmt.Fprintf(out, " (%s)", r.AdminNote)
		}
		fmt.Fprintln(out)
	}
	fmt.Fprintf(out, "\n%s\n%s\n", r.MessageTitle, r.MessageBody)
}
