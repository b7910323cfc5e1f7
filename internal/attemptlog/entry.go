package attemptlog

import (
	"context"
	"errors"
	"time"
)

// ErrCorruptLog marks a durable document that exists but cannot be decoded.
// Only then is the document started over; any other read error leaves it alone.
var ErrCorruptLog = errors.New("attempt log document is corrupt")

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Entry records one tier-level delivery attempt.
type Entry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"`
	Recipient  string    `json:"recipient"`
	Subject    string    `json:"subject"`
	OrderID    string    `json:"order_id,omitempty"`
	Status     Status    `json:"status"`
	MessageID  string    `json:"message_id,omitempty"`
	Error      string    `json:"error,omitempty"`
	RetryCount int       `json:"retry_count"`
	Tier       string    `json:"tier,omitempty"`
}

// Store is the durable side of the log. It is read and written as a whole
// document, oldest entry first.
type Store interface {
	Load(ctx context.Context) ([]Entry, error)
	Save(ctx context.Context, entries []Entry) error
}

// Appender is implemented by stores that run the read-modify-write cycle
// atomically on their side. Logger prefers it over Load/Save.
type Appender interface {
	Append(ctx context.Context, e Entry, capacity int) error
}

// AppendCapped appends e and drops the oldest entries beyond capacity.
func AppendCapped(entries []Entry, e Entry, capacity int) []Entry {
	entries = append(entries, e)
	if over := len(entries) - capacity; capacity > 0 && over > 0 {
		entries = entries[over:]
	}
	return entries
}

type Stats struct {
	Total       int        `json:"total"`
	Success     int        `json:"success"`
	Failed      int        `json:"failed"`
	SuccessRate float64    `json:"success_rate"`
	LastAttempt *time.Time `json:"last_attempt,omitempty"`
}
