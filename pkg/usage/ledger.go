// Package usage tracks token consumption and cost across a tutoring session.
// A Ledger is injected into the pipeline rather than held as package state so
// concurrent sessions can account independently.
package usage

import (
	"sync"
	"time"
)

// Record is one accounted LLM call.
type Record struct {
	Timestamp        time.Time
	Model            string
	Stage            string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
	Duration         time.Duration
}

// Snapshot is an aggregate view of a ledger at a point in time.
type Snapshot struct {
	Calls            int
	PromptTokens     int
	CompletionTokens int
	Cost             float64
}

// TotalTokens returns prompt plus completion tokens.
func (s Snapshot) TotalTokens() int {
	return s.PromptTokens + s.CompletionTokens
}

// Ledger accumulates usage records. Safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	records []Record
	totals  Snapshot
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Add accounts one LLM call.
func (l *Ledger) Add(rec Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	l.records = append(l.records, rec)
	l.totals.Calls++
	l.totals.PromptTokens += rec.PromptTokens
	l.totals.CompletionTokens += rec.CompletionTokens
	l.totals.Cost += rec.Cost
}

// Totals returns the aggregate usage so far.
func (l *Ledger) Totals() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totals
}

// Records returns a copy of all accounted calls in order.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Reset clears all records and totals.
func (l *Ledger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records = nil
	l.totals = Snapshot{}
}
