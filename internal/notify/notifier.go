// Package notify fans tab events out to connected clients. Events are
// best-effort and at-most-once: services enqueue them after their
// transaction commits and never wait for, or fail on, delivery.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types published on a tab's topic.
const (
	EventItemAdded = "tab:item-added"
	EventPaid      = "tab:paid"
)

// Event is one tab-state change.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	TabID      uint64    `json:"tabId"`
	Payload    any       `json:"payload"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(typ string, tabID uint64, payload any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		TabID:      tabID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
}

// Topic is the per-tab channel name, tab-{id}.
func (e Event) Topic() string { return TabTopic(e.TabID) }

// TabTopic returns the channel name for a tab.
func TabTopic(tabID uint64) string { return fmt.Sprintf("tab-%d", tabID) }

// Notifier publishes an event to one transport.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

// Multi publishes to every notifier and joins their errors. One failing
// transport does not stop the others.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
