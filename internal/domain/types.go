package domain

import "time"

// Unknown is the placeholder used wherever a source field could not be
// resolved: user names, modules, areas and classification buckets.
const Unknown = "Unknown"

// WeeklyCapacityHours is the fixed capacity a utilisation percentage is
// computed against.
const WeeklyCapacityHours = 40.0

// WorklogRecord is one logged time entry, normalized from either raw
// worklog shape. Immutable after flattening.
type WorklogRecord struct {
	User          string
	Date          time.Time
	Hours         float64
	BillableHours float64
	IssueKey      string // empty when the source payload only carried an id
	IssueID       int64
	WorklogID     int64
	Description   string
}

// IssueMetadata holds the tracking-system attributes needed for bucketing.
// One per issue key, fetched once per run.
type IssueMetadata struct {
	IssueKey    string
	ProjectKey  string
	ProjectName string
	IssueType   string
	Labels      []string
	Components  []string
}

// EnrichedRecord is a WorklogRecord joined with its issue metadata plus the
// derived classification fields.
type EnrichedRecord struct {
	WorklogRecord

	ProjectKey  string
	ProjectName string
	IssueType   string
	Labels      []string

	Module      string
	Category    string
	SubCategory string
	Area        string
	Week        time.Time // Monday that starts the ISO week of Date
}

// UtilisationRow is one aggregate bucket of summed total and billable
// hours.
type UtilisationRow struct {
	Area          string
	ProjectKey    string
	Module        string
	Category      string
	SubCategory   string
	User          string
	Week          time.Time
	Hours         float64
	BillableHours float64
	UtilPct       float64
}
