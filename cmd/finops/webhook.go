package main

import (
	"github.com/finsup/finops/internal/config"
	"github.com/spf13/cobra"
)

var (
	webhookWorkbook string
	webhookSnapshot string
)

var webhookCmd = &cobra.Command{
	Use:   "webhook <events_file>",
	Short: "Replay a captured webhook events file through the pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(config.Config.RequireJira)
		if err != nil {
			return err
		}
		res, err := p.svc.Replay(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return p.write(res, webhookWorkbook, webhookSnapshot)
	},
}

func init() {
	webhookCmd.Flags().StringVar(&webhookWorkbook, "workbook", "utilisation_webhook.xlsx", "spreadsheet output path")
	webhookCmd.Flags().StringVar(&webhookSnapshot, "snapshot", "worklogs_webhook.parquet", "parquet audit snapshot path")
	rootCmd.AddCommand(webhookCmd)
}
