// Package domain holds the data model shared by every stage of the triage
// pipeline: the ticket record and the agent registry. The priority-queue
// entry and the storm detector's recent-text record live in pkg/queue and
// pkg/dedup.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Category is one of the four fixed ticket categories the classifier
// assigns.
type Category string

const (
	Billing   Category = "Billing"
	Technical Category = "Technical"
	Legal     Category = "Legal"
	General   Category = "General"
)

// ModelUsed records which classification path produced a ticket's category
// and urgency.
type ModelUsed string

const (
	ModelPrimary  ModelUsed = "primary"
	ModelFallback ModelUsed = "fallback"
)

// HighUrgencyThreshold is the default cutoff above which a ticket is
// considered high-urgency. Config can override it.
const HighUrgencyThreshold = 0.75

// Ticket is immutable after creation except for the Processed flag, which
// the broker drain worker flips once the ticket has left the broker stage
// and entered the priority queue.
type Ticket struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	Category      Category  `json:"category"`
	Urgency       float64   `json:"urgency"`
	IsHighUrgency bool      `json:"is_high_urgency"`
	Timestamp     time.Time `json:"timestamp"`
	ModelUsed     ModelUsed `json:"model_used"`
	Processed     bool      `json:"processed"`

	// CorrelationID is generated once at ingestion and carried through the
	// broker and queue payloads unchanged, so log lines from the drain
	// worker and the assignment solver can be tied back to the same
	// submission without depending on the caller-supplied ID staying
	// unique across retried submits.
	CorrelationID string `json:"correlation_id"`
}

// IsHighUrgencyAt reports whether urgency exceeds the given threshold.
func IsHighUrgencyAt(urgency, threshold float64) bool {
	return urgency > threshold
}

// NewTicket constructs a Ticket with its derived IsHighUrgency field set
// from the package default threshold. Callers that use a configured
// threshold should set IsHighUrgency explicitly instead.
func NewTicket(id, text string, category Category, urgency float64, modelUsed ModelUsed) Ticket {
	return Ticket{
		ID:            id,
		Text:          text,
		Category:      category,
		Urgency:       urgency,
		IsHighUrgency: IsHighUrgencyAt(urgency, HighUrgencyThreshold),
		Timestamp:     time.Now().UTC(),
		ModelUsed:     modelUsed,
		Processed:     false,
		CorrelationID: uuid.NewString(),
	}
}
