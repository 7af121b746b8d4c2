package services

import (
	"testing"

	"github.com/finsup/finops/internal/adapters/tempo"
	"github.com/finsup/finops/internal/domain"
	"github.com/stretchr/testify/assert"
)

func bulkWorklog(seconds, billable float64) tempo.Worklog {
	return tempo.Worklog{
		TempoWorklogID:   42,
		Issue:            tempo.IssueRef{ID: 10001, Key: "FIN-1"},
		TimeSpentSeconds: seconds,
		BillableSeconds:  billable,
		StartDate:        "2024-06-12",
		Description:      "month-end close",
		Author:           tempo.Author{AccountID: "abc123", DisplayName: "Alice"},
	}
}

func TestFlattenHoursConversion(t *testing.T) {
	tests := []struct {
		name     string
		seconds  float64
		billable float64
		hours    float64
		billHrs  float64
	}{
		{"full day", 28800, 14400, 8, 4},
		{"zero", 0, 0, 0, 0},
		{"fractional", 1800, 900, 0.5, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Flatten(BulkEvent(bulkWorklog(tt.seconds, tt.billable)), nil)
			assert.Equal(t, tt.hours, rec.Hours)
			assert.Equal(t, tt.billHrs, rec.BillableHours)
		})
	}
}

func TestFlattenSchemaComplete(t *testing.T) {
	rec := Flatten(BulkEvent(bulkWorklog(3600, 3600)), nil)
	assert.Equal(t, "Alice", rec.User)
	assert.Equal(t, "2024-06-12", rec.Date.Format("2006-01-02"))
	assert.Equal(t, "FIN-1", rec.IssueKey)
	assert.Equal(t, int64(10001), rec.IssueID)
	assert.Equal(t, int64(42), rec.WorklogID)
	assert.Equal(t, "month-end close", rec.Description)
}

func TestFlattenEmptyWorklogNeverPanics(t *testing.T) {
	rec := Flatten(BulkEvent(tempo.Worklog{}), nil)
	assert.Equal(t, domain.Unknown, rec.User)
	assert.True(t, rec.Date.IsZero())
	assert.Zero(t, rec.Hours)
	assert.Empty(t, rec.IssueKey)
}

func TestFlattenWebhookVariant(t *testing.T) {
	w := bulkWorklog(7200, 0)
	bulk := Flatten(BulkEvent(w), nil)
	hook := Flatten(WebhookEnvelope(tempo.WebhookEvent{
		EventID:   "evt-1",
		EventType: "worklog.created",
		Payload:   w,
	}), nil)
	assert.Equal(t, bulk, hook)
}

func TestResolveUserFallbackChain(t *testing.T) {
	resolver := func(accountID string) (string, bool) {
		if accountID == "abc123" {
			return "Alice Resolved", true
		}
		return "", false
	}

	tests := []struct {
		name    string
		author  tempo.Author
		resolve NameResolver
		want    string
	}{
		{"display name wins", tempo.Author{DisplayName: "Alice", AccountID: "abc123"}, resolver, "Alice"},
		{"lookup when no display name", tempo.Author{AccountID: "abc123"}, resolver, "Alice Resolved"},
		{"raw id when lookup fails", tempo.Author{AccountID: "zzz999"}, resolver, "zzz999"},
		{"raw id when no resolver", tempo.Author{AccountID: "zzz999"}, nil, "zzz999"},
		{"unknown when nothing present", tempo.Author{}, resolver, domain.Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveUser(tt.author, tt.resolve))
		})
	}
}

func TestFlattenOneRowPerRecord(t *testing.T) {
	events := []RawWorklogEvent{
		BulkEvent(bulkWorklog(3600, 0)),
		BulkEvent(tempo.Worklog{}),
		WebhookEnvelope(tempo.WebhookEvent{Payload: bulkWorklog(1800, 1800)}),
	}
	records := make([]domain.WorklogRecord, 0, len(events))
	for _, ev := range events {
		records = append(records, Flatten(ev, nil))
	}
	assert.Len(t, records, len(events))
}
