package report

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/finsup/finops/internal/domain"
	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	rawSheet   = "Utilisation"
	pivotSheet = "Pivot"

	dateLayout = "2006-01-02"
)

type Writer struct {
	log zerolog.Logger
}

func NewWriter(log zerolog.Logger) *Writer {
	return &Writer{log: log}
}

// WriteWorkbook writes the raw utilisation table and an hours-by-week pivot
// into one spreadsheet.
func (w *Writer) WriteWorkbook(path string, rows []domain.UtilisationRow) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", rawSheet)
	header := []any{"area", "project", "module", "category", "sub_category", "user", "week", "hours", "billable_hours", "util_pct"}
	if err := f.SetSheetRow(rawSheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{r.Area, r.ProjectKey, r.Module, r.Category, r.SubCategory, r.User, r.Week.Format(dateLayout), r.Hours, r.BillableHours, r.UtilPct}
		if err := f.SetSheetRow(rawSheet, cell, &row); err != nil {
			return err
		}
	}

	if err := w.writePivot(f, rows); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("write workbook %s: %w", path, err)
	}
	w.log.Info().Str("path", path).Int("rows", len(rows)).Msg("workbook written")
	return nil
}

type pivotKey struct {
	Area       string
	ProjectKey string
	Module     string
	User       string
}

// writePivot lays out hours per (area, project, module, user) against one
// column per week.
func (w *Writer) writePivot(f *excelize.File, rows []domain.UtilisationRow) error {
	if _, err := f.NewSheet(pivotSheet); err != nil {
		return err
	}

	weekSet := map[time.Time]struct{}{}
	cells := map[pivotKey]map[time.Time]float64{}
	var order []pivotKey
	for _, r := range rows {
		weekSet[r.Week] = struct{}{}
		k := pivotKey{Area: r.Area, ProjectKey: r.ProjectKey, Module: r.Module, User: r.User}
		if _, ok := cells[k]; !ok {
			cells[k] = map[time.Time]float64{}
			order = append(order, k)
		}
		cells[k][r.Week] += r.Hours
	}

	weeks := make([]time.Time, 0, len(weekSet))
	for wk := range weekSet {
		weeks = append(weeks, wk)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		switch {
		case a.Area != b.Area:
			return a.Area < b.Area
		case a.ProjectKey != b.ProjectKey:
			return a.ProjectKey < b.ProjectKey
		case a.Module != b.Module:
			return a.Module < b.Module
		default:
			return a.User < b.User
		}
	})

	header := []any{"area", "project", "module", "user"}
	for _, wk := range weeks {
		header = append(header, wk.Format(dateLayout))
	}
	if err := f.SetSheetRow(pivotSheet, "A1", &header); err != nil {
		return err
	}
	for i, k := range order {
		row := []any{k.Area, k.ProjectKey, k.Module, k.User}
		for _, wk := range weeks {
			if h, ok := cells[k][wk]; ok {
				row = append(row, h)
			} else {
				row = append(row, nil)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(pivotSheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

// snapshotRow is the columnar audit schema; dates are serialized as
// ISO strings to keep the file portable.
type snapshotRow struct {
	User          string  `parquet:"user"`
	Date          string  `parquet:"date"`
	Hours         float64 `parquet:"hours"`
	BillableHours float64 `parquet:"billable_hours"`
	IssueKey      string  `parquet:"issue_key"`
	IssueID       int64   `parquet:"issue_id"`
	WorklogID     int64   `parquet:"worklog_id"`
	Description   string  `parquet:"description"`
	ProjectKey    string  `parquet:"project_key"`
	ProjectName   string  `parquet:"project_name"`
	IssueType     string  `parquet:"issue_type"`
	Module        string  `parquet:"module"`
	Category      string  `parquet:"category"`
	SubCategory   string  `parquet:"sub_category"`
	Area          string  `parquet:"area"`
	Week          string  `parquet:"week"`
}

// WriteSnapshot writes every enriched record to a parquet file for audit.
func (w *Writer) WriteSnapshot(path string, records []domain.EnrichedRecord) error {
	rows := make([]snapshotRow, 0, len(records))
	for _, e := range records {
		rows = append(rows, snapshotRow{
			User:          e.User,
			Date:          e.Date.Format(dateLayout),
			Hours:         e.Hours,
			BillableHours: e.BillableHours,
			IssueKey:      e.IssueKey,
			IssueID:       e.IssueID,
			WorklogID:     e.WorklogID,
			Description:   e.Description,
			ProjectKey:    e.ProjectKey,
			ProjectName:   e.ProjectName,
			IssueType:     e.IssueType,
			Module:        e.Module,
			Category:      e.Category,
			SubCategory:   e.SubCategory,
			Area:          e.Area,
			Week:          e.Week.Format(dateLayout),
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	pw := parquet.NewGenericWriter[snapshotRow](f)
	if _, err := pw.Write(rows); err != nil {
		f.Close()
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := pw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	w.log.Info().Str("path", path).Int("records", len(records)).Msg("snapshot written")
	return nil
}
