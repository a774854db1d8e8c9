// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/bartab/internal/billing"
)

// TabEvent is the wire form of a tab event as published on the tab
// exchange. Payload is kept raw; the audit log only needs a few fields.
type TabEvent struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	TabID      uint64          `json:"tabId"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurredAt"`
}

type payloadSummary struct {
	Status string          `json:"status"`
	Totals *billing.Totals `json:"totals"`
}

// Line renders the event as a single human-friendly log line.
func (e TabEvent) Line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s | tab_id=%d | event_id=%s",
		e.OccurredAt.UTC().Format(time.RFC3339), e.Type, e.TabID, e.ID)

	var p payloadSummary
	if len(e.Payload) > 0 && json.Unmarshal(e.Payload, &p) == nil {
		if p.Totals != nil {
			fmt.Fprintf(&b, " | subtotal=%s | tax=%s | tip=%s | total=%s",
				p.Totals.Subtotal, p.Totals.Tax, p.Totals.Tip, p.Totals.Total)
		}
		if p.Status != "" {
			fmt.Fprintf(&b, " | status=%s", p.Status)
		}
	}
	b.WriteByte('\n')
	return b.String()
}
