package message

import (
	"strings"
	"time"
)

// Message is the unit of ingestion. Created exactly once per id by the
// ingest pipeline, never mutated, never deleted.
type Message struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	Body       string    `json:"body"`
	ReceivedAt time.Time `json:"received_at"`
	// RawSignature keeps the signature header for audit; it is never served.
	RawSignature string `json:"-"`
}

// Filter is the fixed set of optional predicates a read may carry. Empty
// fields match everything.
type Filter struct {
	// Sender matches by exact equality.
	Sender string
	// Since is an inclusive lower bound on ReceivedAt.
	Since *time.Time
	// Query matches case-insensitively as a substring of body or sender.
	Query string
}

func (f Filter) IsZero() bool {
	return f.Sender == "" && f.Since == nil && f.Query == ""
}

// Fingerprint is a stable key for collapsing identical concurrent reads.
func (f Filter) Fingerprint() string {
	var b strings.Builder
	b.WriteString("sender=")
	b.WriteString(f.Sender)
	b.WriteString("|since=")
	if f.Since != nil {
		b.WriteString(f.Since.UTC().Format(time.RFC3339Nano))
	}
	b.WriteString("|q=")
	b.WriteString(f.Query)
	return b.String()
}

// Page is the list envelope served to clients.
type Page struct {
	Data   []Message `json:"data"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

type TopSender struct {
	Sender string `json:"sender"`
	Count  int    `json:"count"`
}

// Aggregates is a consistent set of analytical values computed in a single
// read transaction.
type Aggregates struct {
	Total         int
	UniqueSenders int
	TopSenders    []TopSender
	First         *time.Time
	Last          *time.Time
}
