package main

import (
	"github.com/spf13/cobra"

	"redress/internal/config"
	"redress/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configPath string
	appCfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:   "redress",
	Short: "Automated adjudication for product return requests",
	Long: "Redress adjudicates product return requests: it assesses photographic\n" +
		"evidence, retrieves the matching policy clauses, and decides whether to\n" +
		"approve, reject, or escalate to a human reviewer.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		appCfg = cfg
		logging.Init(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (defaults apply without one)")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(ordersCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reviewsCmd)
	rootCmd.AddCommand(decideCmd)
	rootCmd.Version = version
}
