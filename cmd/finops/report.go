package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/finsup/finops/internal/config"
	"github.com/spf13/cobra"
)

var (
	reportDays     int
	reportWorkbook string
	reportSnapshot string
)

var reportCmd = &cobra.Command{
	Use:   "report <project_key> [days_back]",
	Short: "Pull worklogs for a project and write the utilisation workbook",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPipeline(config.Config.RequireTempo, config.Config.RequireJira)
		if err != nil {
			return err
		}
		projectKey := args[0]

		days := reportDays
		if len(args) == 2 {
			days, err = strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("days_back must be a number, got %q", args[1])
			}
		}
		if days == 0 {
			days = p.cfg.DaysBack
		}
		if days <= 0 {
			return errors.New("set days_back, --days or TEMPO_DAYS_BACK: no default lookback window is assumed")
		}

		res, err := p.svc.Run(cmd.Context(), projectKey, days)
		if err != nil {
			return err
		}

		workbook := reportWorkbook
		if workbook == "" {
			workbook = fmt.Sprintf("utilisation_%s.xlsx", strings.ToLower(projectKey))
		}
		snapshot := reportSnapshot
		if snapshot == "" {
			snapshot = fmt.Sprintf("worklogs_%s.parquet", strings.ToLower(projectKey))
		}
		return p.write(res, workbook, snapshot)
	},
}

func init() {
	reportCmd.Flags().IntVar(&reportDays, "days", 0, "lookback window in days (required unless TEMPO_DAYS_BACK is set)")
	reportCmd.Flags().StringVar(&reportWorkbook, "workbook", "", "spreadsheet output path")
	reportCmd.Flags().StringVar(&reportSnapshot, "snapshot", "", "parquet audit snapshot path")
	rootCmd.AddCommand(reportCmd)
}
