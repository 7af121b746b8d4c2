package main

import (
	"fmt"

	"github.com/finsup/finops/internal/adapters/tempo"
	"github.com/finsup/finops/internal/config"
	"github.com/finsup/finops/internal/logger"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List every Tempo account the token can see",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := logger.New(cfg)
		if err := cfg.RequireTempo(); err != nil {
			return err
		}
		hc, err := cfg.HTTPClient()
		if err != nil {
			return err
		}

		accounts, err := tempo.NewClient(cfg, hc, log).Accounts(cmd.Context())
		if err != nil {
			return err
		}
		for _, a := range accounts {
			fmt.Printf("%-12s %-8s %s\n", a.Key, a.Status, a.Name)
		}
		log.Info().Int("accounts", len(accounts)).Msg("accounts pulled")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}
