package internal

import "time"

// Segment is one contiguous page range of the source document.
// Pages are zero-based and inclusive.
type Segment struct {
	Index     int    `json:"index"`
	Title     string `json:"title"`
	StartPage int    `json:"start_page"`
	EndPage   int    `json:"end_page"`
}

// Pages returns the number of pages in the segment.
func (s Segment) Pages() int {
	return s.EndPage - s.StartPage + 1
}

// Attempt is one translate call as recorded in the journal.
type Attempt struct {
	ID          string    `json:"id"`
	Segment     string    `json:"segment"`
	Index       int       `json:"index"`
	TargetLang  string    `json:"target_lang"`
	Service     string    `json:"service"`
	Model       string    `json:"model"`
	PayloadKind string    `json:"payload_kind"`
	LatencyMs   int       `json:"latency_ms"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
