package services

import (
	"time"

	"github.com/finsup/finops/internal/adapters/tempo"
	"github.com/finsup/finops/internal/domain"
)

// NameResolver maps an account id to a display name. Implementations are
// memoized; a false return means the id could not be resolved.
type NameResolver func(accountID string) (string, bool)

type userSource struct {
	name    string
	extract func(a tempo.Author, resolve NameResolver) (string, bool)
}

// userSources is the ordered fallback chain for the user column. Sources
// are evaluated in order and the first present value wins.
var userSources = []userSource{
	{"display name", func(a tempo.Author, _ NameResolver) (string, bool) {
		return a.DisplayName, a.DisplayName != ""
	}},
	{"account lookup", func(a tempo.Author, resolve NameResolver) (string, bool) {
		if a.AccountID == "" || resolve == nil {
			return "", false
		}
		return resolve(a.AccountID)
	}},
	{"account id", func(a tempo.Author, _ NameResolver) (string, bool) {
		return a.AccountID, a.AccountID != ""
	}},
}

// ResolveUser walks the fallback chain, ending at the Unknown placeholder.
func ResolveUser(a tempo.Author, resolve NameResolver) string {
	for _, src := range userSources {
		if v, ok := src.extract(a, resolve); ok {
			return v
		}
	}
	return domain.Unknown
}

// Flatten normalizes one raw event into the fixed record schema. Absent
// optional fields become placeholders, never errors.
func Flatten(ev RawWorklogEvent, resolve NameResolver) domain.WorklogRecord {
	w := ev.worklog()
	// An unparseable or missing date leaves the zero time; the record is
	// still kept and buckets into the zero week.
	date, _ := time.Parse("2006-01-02", w.StartDate)
	return domain.WorklogRecord{
		User:          ResolveUser(w.Author, resolve),
		Date:          date,
		Hours:         w.TimeSpentSeconds / 3600,
		BillableHours: w.BillableSeconds / 3600,
		IssueKey:      w.Issue.Key,
		IssueID:       w.Issue.ID,
		WorklogID:     w.TempoWorklogID,
		Description:   w.Description,
	}
}
