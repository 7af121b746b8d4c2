package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/finsup/finops/internal/adapters/tempo"
)

type EventKind int

const (
	EventBulk EventKind = iota + 1
	EventWebhook
)

// RawWorklogEvent is the tagged union of the two raw worklog shapes. The
// discriminant selects the extractor; callers never probe for field
// presence.
type RawWorklogEvent struct {
	Kind    EventKind
	Bulk    *tempo.Worklog
	Webhook *tempo.WebhookEvent
}

func BulkEvent(w tempo.Worklog) RawWorklogEvent {
	return RawWorklogEvent{Kind: EventBulk, Bulk: &w}
}

func WebhookEnvelope(e tempo.WebhookEvent) RawWorklogEvent {
	return RawWorklogEvent{Kind: EventWebhook, Webhook: &e}
}

func (ev RawWorklogEvent) worklog() tempo.Worklog {
	switch ev.Kind {
	case EventWebhook:
		return ev.Webhook.Payload
	default:
		return *ev.Bulk
	}
}

// LoadWebhookEvents reads a replay file holding either a JSON array of
// webhook envelopes or a single envelope object. Anything else is a fatal
// parse error.
func LoadWebhookEvents(path string) ([]RawWorklogEvent, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("webhook file: %w", err)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("webhook file %s is empty", path)
	}

	switch trimmed[0] {
	case '[':
		var envelopes []tempo.WebhookEvent
		if err := json.Unmarshal(trimmed, &envelopes); err != nil {
			return nil, fmt.Errorf("webhook file %s: %w", path, err)
		}
		out := make([]RawWorklogEvent, 0, len(envelopes))
		for _, e := range envelopes {
			out = append(out, WebhookEnvelope(e))
		}
		return out, nil
	case '{':
		var envelope tempo.WebhookEvent
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("webhook file %s: %w", path, err)
		}
		return []RawWorklogEvent{WebhookEnvelope(envelope)}, nil
	default:
		return nil, fmt.Errorf("webhook file %s: expected a JSON object or array", path)
	}
}
