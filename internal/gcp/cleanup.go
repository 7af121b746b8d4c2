package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
)

// CleanupPlan describes one fiscal-year slice to remove from BigQuery rows
// and GCS objects.
type CleanupPlan struct {
	Project string
	Dataset string
	Bucket  string
	Root    string
	Module  string // "*" means any top-level module folder
	Year    int

	FilesOnly  bool
	TablesOnly bool
	DryRun     bool
}

func (p CleanupPlan) Scope() string {
	switch {
	case p.FilesOnly:
		return "files only"
	case p.TablesOnly:
		return "tables only"
	default:
		return "files + tables"
	}
}

// Prefix is the GCS listing prefix. A wildcard module lists from the root
// and filters on the FY folder afterwards.
func (p CleanupPlan) Prefix() string {
	if p.Module == "*" {
		return p.Root + "/"
	}
	return fmt.Sprintf("%s/%s/FY%d/", p.Root, p.Module, p.Year)
}

type Cleaner struct {
	log zerolog.Logger
}

func NewCleaner(log zerolog.Logger) *Cleaner {
	return &Cleaner{log: log}
}

// TablesWithFiscalYear lists every table in the dataset that carries a
// fy_partition column.
func (c *Cleaner) TablesWithFiscalYear(ctx context.Context, client *bigquery.Client, plan CleanupPlan) ([]string, error) {
	sql := fmt.Sprintf(`
		SELECT DISTINCT table_name
		FROM `+"`%s.%s.INFORMATION_SCHEMA.COLUMNS`"+`
		WHERE LOWER(column_name) = 'fy_partition'
	`, plan.Project, plan.Dataset)

	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("list fy tables: %w", err)
	}
	var tables []string
	for {
		var row struct {
			TableName string `bigquery:"table_name"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list fy tables: %w", err)
		}
		tables = append(tables, row.TableName)
	}
	return tables, nil
}

// DeleteYearRows removes the plan's fiscal year from one table and reports
// the affected row count. Dry runs only log the statement.
func (c *Cleaner) DeleteYearRows(ctx context.Context, client *bigquery.Client, plan CleanupPlan, table string) (int64, error) {
	sql := fmt.Sprintf("DELETE FROM `%s.%s.%s` WHERE fy_partition = %d",
		plan.Project, plan.Dataset, table, plan.Year)
	if plan.DryRun {
		c.log.Info().Str("sql", sql).Msg("dry-run")
		return 0, nil
	}

	job, err := client.Query(sql).Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	st, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	if err := st.Err(); err != nil {
		return 0, fmt.Errorf("delete from %s: %w", table, err)
	}
	var affected int64
	if qs, ok := st.Statistics.Details.(*bigquery.QueryStatistics); ok {
		affected = qs.NumDMLAffectedRows
	}
	c.log.Info().Str("table", table).Int64("rows", affected).Msg("fiscal year rows deleted")
	return affected, nil
}

// DeleteYearObjects removes every object under the plan's FY path and
// returns how many matched. Dry runs preview the first few names.
func (c *Cleaner) DeleteYearObjects(ctx context.Context, client *storage.Client, plan CleanupPlan) (int, error) {
	bucket := client.Bucket(plan.Bucket)
	marker := fmt.Sprintf("/FY%d/", plan.Year)

	var names []string
	it := bucket.Objects(ctx, &storage.Query{Prefix: plan.Prefix()})
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("list gs://%s/%s: %w", plan.Bucket, plan.Prefix(), err)
		}
		if plan.Module == "*" && !strings.Contains(attrs.Name, marker) {
			continue
		}
		names = append(names, attrs.Name)
	}

	if len(names) == 0 {
		c.log.Info().Msg("no objects matched the pattern, nothing to delete")
		return 0, nil
	}
	if plan.DryRun {
		preview := names
		if len(preview) > 10 {
			preview = preview[:10]
		}
		for _, n := range preview {
			c.log.Info().Str("object", n).Msg("dry-run")
		}
		c.log.Info().Int("objects", len(names)).Msg("dry-run total")
		return len(names), nil
	}

	for _, n := range names {
		if err := bucket.Object(n).Delete(ctx); err != nil {
			return 0, fmt.Errorf("delete gs://%s/%s: %w", plan.Bucket, n, err)
		}
	}
	c.log.Info().Int("objects", len(names)).Msg("objects deleted")
	return len(names), nil
}
