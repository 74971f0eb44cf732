package actionlog

import (
	"sync"
	"time"
)

// Type identifies the kind of bot action being rate limited.
type Type string

const (
	TypeLike       Type = "like"
	TypeReply      Type = "reply"
	TypeRetweet    Type = "retweet"
	TypeSearch     Type = "search"
	TypeEngagement Type = "engagement"
)

const (
	// MaxRecords bounds the in-memory history size.
	MaxRecords = 10000

	// RetentionPeriod bounds the age of kept records. Older entries are
	// evicted on load and on append.
	RetentionPeriod = 7 * 24 * time.Hour
)

// Record is a single performed action. Immutable once appended.
type Record struct {
	ID        string                 `json:"id,omitempty"`
	Type      Type                   `json:"type"`
	Success   bool                   `json:"success"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// History is a bounded, chronological sequence of action records.
// Appends must be in timestamp order; the history never reorders.
type History struct {
	mu      sync.Mutex
	records []Record
	max     int
}

// NewHistory creates an empty history with the default bounds.
func NewHistory() *History {
	return &History{max: MaxRecords}
}

// newHistoryFromRecords wraps an already-ordered record slice.
func newHistoryFromRecords(records []Record) *History {
	h := NewHistory()
	if len(records) > h.max {
		records = records[len(records)-h.max:]
	}
	h.records = records
	return h
}

// Append adds a record, evicting the oldest entry when the size bound is hit.
func (h *History) Append(record Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, record)
	if len(h.records) > h.max {
		excess := len(h.records) - h.max
		h.records = append(h.records[:0], h.records[excess:]...)
	}
}

// Len returns the number of records currently held.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

// CountSince returns the number of records strictly newer than cutoff.
// The boundary is exclusive: a record stamped exactly at cutoff does not count.
func (h *History) CountSince(cutoff time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := 0
	for _, record := range h.records {
		if record.Timestamp.After(cutoff) {
			count++
		}
	}
	return count
}

// CountTypeSince returns the number of records of the given type strictly
// newer than cutoff.
func (h *History) CountTypeSince(actionType Type, cutoff time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := 0
	for _, record := range h.records {
		if record.Type == actionType && record.Timestamp.After(cutoff) {
			count++
		}
	}
	return count
}

// CountSuccesses returns the number of successful records.
func (h *History) CountSuccesses() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	count := 0
	for _, record := range h.records {
		if record.Success {
			count++
		}
	}
	return count
}

// EvictBefore drops records at or older than cutoff.
func (h *History) EvictBefore(cutoff time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	i := 0
	for i < len(h.records) && !h.records[i].Timestamp.After(cutoff) {
		i++
	}
	if i > 0 {
		h.records = append(h.records[:0], h.records[i:]...)
	}
}

// Snapshot returns a copy of the current records, oldest first.
func (h *History) Snapshot() []Record {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Record, len(h.records))
	copy(out, h.records)
	return out
}

// CountByType returns per-type totals split into successes and failures.
func (h *History) CountByType() map[Type]TypeCounts {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[Type]TypeCounts)
	for _, record := range h.records {
		counts := out[record.Type]
		counts.Total++
		if record.Success {
			counts.Successful++
		} else {
			counts.Failed++
		}
		out[record.Type] = counts
	}
	return out
}

// TypeCounts aggregates outcomes for a single action type.
type TypeCounts struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}
