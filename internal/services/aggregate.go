package services

import (
	"math"
	"sort"
	"time"

	"github.com/finsup/finops/internal/domain"
)

// Enrich left-joins issue metadata onto flattened records and derives the
// classification fields. Every input record yields exactly one output
// record; records whose key resolved to no metadata keep Unknown fields.
func Enrich(records []domain.WorklogRecord, meta map[string]domain.IssueMetadata) []domain.EnrichedRecord {
	out := make([]domain.EnrichedRecord, 0, len(records))
	for _, r := range records {
		e := domain.EnrichedRecord{
			WorklogRecord: r,
			ProjectKey:    domain.Unknown,
			ProjectName:   domain.Unknown,
			IssueType:     domain.Unknown,
			Module:        domain.Unknown,
			Category:      domain.Unknown,
			SubCategory:   domain.Unknown,
			Area:          domain.Unknown,
			Week:          WeekStart(r.Date),
		}
		if m, ok := meta[r.IssueKey]; ok && r.IssueKey != "" {
			e.ProjectKey = m.ProjectKey
			e.ProjectName = m.ProjectName
			e.IssueType = m.IssueType
			e.Labels = m.Labels
			e.Module = ModuleFor(m.Components)
			e.Category, e.SubCategory = ClassifyLabels(m.Labels)
			e.Area = AreaFor(m.ProjectName)
		}
		out = append(out, e)
	}
	return out
}

type bucketKey struct {
	Area        string
	ProjectKey  string
	Module      string
	Category    string
	SubCategory string
	User        string
	Week        time.Time
}

type bucketTotals struct {
	hours    float64
	billable float64
}

// Aggregate sums total and billable hours per bucket. The reduction is
// order-independent; the result is sorted for deterministic output.
func Aggregate(enriched []domain.EnrichedRecord) []domain.UtilisationRow {
	totals := make(map[bucketKey]bucketTotals)
	for _, e := range enriched {
		k := bucketKey{
			Area:        e.Area,
			ProjectKey:  e.ProjectKey,
			Module:      e.Module,
			Category:    e.Category,
			SubCategory: e.SubCategory,
			User:        e.User,
			Week:        e.Week,
		}
		t := totals[k]
		t.hours += e.Hours
		t.billable += e.BillableHours
		totals[k] = t
	}

	rows := make([]domain.UtilisationRow, 0, len(totals))
	for k, t := range totals {
		rows = append(rows, domain.UtilisationRow{
			Area:          k.Area,
			ProjectKey:    k.ProjectKey,
			Module:        k.Module,
			Category:      k.Category,
			SubCategory:   k.SubCategory,
			User:          k.User,
			Week:          k.Week,
			Hours:         t.hours,
			BillableHours: t.billable,
			UtilPct:       UtilPct(t.hours),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.Area != b.Area:
			return a.Area < b.Area
		case a.ProjectKey != b.ProjectKey:
			return a.ProjectKey < b.ProjectKey
		case a.Module != b.Module:
			return a.Module < b.Module
		case a.Category != b.Category:
			return a.Category < b.Category
		case a.SubCategory != b.SubCategory:
			return a.SubCategory < b.SubCategory
		case a.User != b.User:
			return a.User < b.User
		default:
			return a.Week.Before(b.Week)
		}
	})
	return rows
}

// UtilPct is hours against the fixed weekly capacity, as a percentage
// rounded to one decimal.
func UtilPct(hours float64) float64 {
	return math.Round(hours/domain.WeeklyCapacityHours*100*10) / 10
}
