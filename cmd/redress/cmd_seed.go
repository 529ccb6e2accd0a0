package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"redress/internal/capability"
	"redress/internal/config"
	"redress/internal/corpus"
	"redress/internal/store"
)

var seedFlags struct {
	ordersPath   string
	policiesPath string
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load orders and policy clauses from YAML files",
	Long: `Seeds the order database and the policy clause corpus. Policy seeding
embeds every clause through the configured capability endpoint, so it
requires an API key; order seeding does not.`,
	RunE: runSeed,
}

func init() {
	f := seedCmd.Flags()
	f.StringVar(&seedFlags.ordersPath, "orders", "", "Path to orders YAML")
	f.StringVar(&seedFlags.policiesPath, "policies", "", "Path to policy clauses YAML")
}

// seedOrder is one order definition in the orders YAML.
type seedOrder struct {
	OrderID      string `yaml:"order_id"`
	CustomerID   string `yaml:"customer_id"`
	ProductName  string `yaml:"product_name"`
	Category     string `yaml:"category"`
	PurchaseDate string `yaml:"purchase_date"` // YYYY-MM-DD
	Status       string `yaml:"status"`
}

func runSeed(cmd *cobra.Command, _ []string) error {
	if seedFlags.ordersPath == "" && seedFlags.policiesPath == "" {
		return fmt.Errorf("nothing to seed: pass --orders and/or --policies")
	}
	out := cmd.OutOrStdout()

	if seedFlags.ordersPath != "" {
		n, err := seedOrders(seedFlags.ordersPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Seeded %d order(s)\n", n)
	}

	if seedFlags.policiesPath != "" {
		n, err := seedPolicies(cmd, seedFlags.policiesPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Seeded %d policy clause(s)\n", n)
	}
	return nil
}

func seedOrders(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read orders: %w", err)
	}
	var orders []seedOrder
	if err := yaml.Unmarshal(data, &orders); err != nil {
		return 0, fmt.Errorf("parse orders: %w", err)
	}

	st, err := openStore(appCfg)
	if err != nil {
		return 0, err
	}
	defer st.Close()

	for _, o := range orders {
		purchased, err := time.Parse("2006-01-02", o.PurchaseDate)
		if err != nil {
			return 0, fmt.Errorf("order %s: bad purchase_date %q: %w", o.OrderID, o.PurchaseDate, err)
		}
		status := o.Status
		if status == "" {
			status = "delivered"
		}
		if _, err := st.CreateOrder(&store.Order{
			OrderID:      o.OrderID,
			CustomerID:   o.CustomerID,
			ProductName:  o.ProductName,
			Category:     o.Category,
			PurchaseDate: purchased,
			Status:       status,
		}); err != nil {
			return 0, fmt.Errorf("seed order %s: %w", o.OrderID, err)
		}
	}
	return len(orders), nil
}

func seedPolicies(cmd *cobra.Command, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read policies: %w", err)
	}
	var clauses []corpus.SeedClause
	if err := yaml.Unmarshal(data, &clauses); err != nil {
		return 0, fmt.Errorf("parse policies: %w", err)
	}

	client := capability.New(appCfg.Capability)
	if !client.Available() {
		return 0, fmt.Errorf("policy seeding needs the embedding capability: set capability.api_key or $%s", config.APIKeyEnv)
	}

	cs, err := openCorpus(appCfg)
	if err != nil {
		return 0, err
	}
	defer cs.Close()

	if err := corpus.Seed(cmd.Context(), cs, client, clauses); err != nil {
		return 0, err
	}
	return len(clauses), nil
}
