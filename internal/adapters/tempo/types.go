package tempo

// Worklog is the raw v4 worklog object. The bulk pull and the webhook
// payload share this shape; either may omit the issue key or the author
// display name.
type Worklog struct {
	TempoWorklogID   int64    `json:"tempoWorklogId"`
	Issue            IssueRef `json:"issue"`
	TimeSpentSeconds float64  `json:"timeSpentSeconds"`
	BillableSeconds  float64  `json:"billableSeconds"`
	StartDate        string   `json:"startDate"`
	Description      string   `json:"description"`
	Author           Author   `json:"author"`
}

type IssueRef struct {
	ID   int64  `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

type Author struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
	Self        string `json:"self"`
}

// WebhookEvent is the envelope Tempo delivers on worklog changes; replay
// files contain one or more of these.
type WebhookEvent struct {
	EventID   string  `json:"eventId"`
	EventType string  `json:"eventType"`
	Payload   Worklog `json:"payload"`
}

type Account struct {
	ID     int64  `json:"id"`
	Key    string `json:"key"`
	Name   string `json:"name"`
	Status string `json:"status"`
}
