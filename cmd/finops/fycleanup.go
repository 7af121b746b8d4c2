package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/finsup/finops/internal/config"
	"github.com/finsup/finops/internal/gcp"
	"github.com/finsup/finops/internal/logger"
	"github.com/spf13/cobra"
)

var fyPlan gcp.CleanupPlan

var fyCleanupCmd = &cobra.Command{
	Use:   "fy-cleanup",
	Short: "Delete one fiscal-year slice from BigQuery rows and GCS objects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		log := logger.New(cfg)
		ctx := cmd.Context()

		fmt.Printf("\nCleanup plan: fiscal year %d -> %s\n", fyPlan.Year, fyPlan.Scope())
		fmt.Printf("Project: %s | Dataset: %s\n", fyPlan.Project, fyPlan.Dataset)
		fmt.Printf("Bucket: %s | Root: %s | Module: %s\n", fyPlan.Bucket, fyPlan.Root, fyPlan.Module)
		if fyPlan.DryRun {
			fmt.Println("*** dry-run mode: no data will be deleted ***")
		}
		if !promptYesNo("Proceed?") {
			return errors.New("aborted by user")
		}

		cleaner := gcp.NewCleaner(log)

		if !fyPlan.TablesOnly {
			sc, err := storage.NewClient(ctx)
			if err != nil {
				return err
			}
			defer sc.Close()
			if _, err := cleaner.DeleteYearObjects(ctx, sc, fyPlan); err != nil {
				return err
			}
		}

		if !fyPlan.FilesOnly {
			bq, err := bigquery.NewClient(ctx, fyPlan.Project)
			if err != nil {
				return err
			}
			defer bq.Close()
			tables, err := cleaner.TablesWithFiscalYear(ctx, bq, fyPlan)
			if err != nil {
				return err
			}
			log.Info().Int("tables", len(tables)).Msg("tables include fy_partition")
			for _, tbl := range tables {
				if _, err := cleaner.DeleteYearRows(ctx, bq, fyPlan, tbl); err != nil {
					return err
				}
			}
		}
		return nil
	},
}

func promptYesNo(message string) bool {
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Printf("%s [y/n]: ", message)
		line, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		fmt.Println("Please type y or n.")
	}
}

func init() {
	f := fyCleanupCmd.Flags()
	f.StringVar(&fyPlan.Project, "project", "", "GCP project ID")
	f.StringVar(&fyPlan.Dataset, "dataset", "", "BigQuery dataset ID")
	f.StringVar(&fyPlan.Bucket, "bucket", "", "GCS bucket name")
	f.StringVar(&fyPlan.Root, "root", "finsup", "top-level folder inside the bucket")
	f.StringVar(&fyPlan.Module, "module", "*", "module folder (AM|GL|static|*)")
	f.IntVar(&fyPlan.Year, "year", 0, "fiscal year, e.g. 2015")
	f.BoolVar(&fyPlan.FilesOnly, "files-only", false, "delete only GCS files")
	f.BoolVar(&fyPlan.TablesOnly, "tables-only", false, "delete only BigQuery rows")
	f.BoolVar(&fyPlan.DryRun, "dry-run", false, "show what would happen")
	_ = fyCleanupCmd.MarkFlagRequired("project")
	_ = fyCleanupCmd.MarkFlagRequired("dataset")
	_ = fyCleanupCmd.MarkFlagRequired("bucket")
	_ = fyCleanupCmd.MarkFlagRequired("year")
	fyCleanupCmd.MarkFlagsMutuallyExclusive("files-only", "tables-only")
	rootCmd.AddCommand(fyCleanupCmd)
}
