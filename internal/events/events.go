// Package events publishes domain state changes to other services.
package events

import (
	"context" // Context for blocking calls
	"sync"    // Mutex
	"time"    // Time handling
)

// Event types emitted by the engine.
const (
	ContributionCreated   = "contribution.created"
	ContributionPledged   = "contribution.pledged"
	ContributionUnsettled = "contribution.unsettled"
	ContributionSettled   = "contribution.settled"
	VoteCreated           = "vote.created"
	VoteResponded         = "vote.responded"
	PayoutProcessing      = "payout.processing"
	PayoutCompleted       = "payout.completed"
	PayoutFailed          = "payout.failed"
)

// Event is a state change keyed by the campaign it concerns.
type Event struct {
	ID         string    `json:"event_id"`
	Type       string    `json:"event_type"`
	Key        string    `json:"partition_key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"data"`
}

// Publisher delivers events. Publishing is best-effort for callers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

// Memory records events in order; used by tests and local runs.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Publish(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// Types returns the type of every published event, in order.
func (m *Memory) Types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Type
	}
	return out
}
