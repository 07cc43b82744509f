// Package types defines core data structures for mailwatch.
package types

import "time"

// Attachment is a single email attachment as fetched from the mail source.
// Raw bytes live only for the duration of one evaluation and are never
// persisted.
type Attachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// Message is one email fetched from the mail source. Messages are fetched
// fresh each poll cycle and never mutated.
type Message struct {
	ID          string       `json:"id"`
	Sender      string       `json:"sender"`
	Subject     string       `json:"subject"`
	ReceivedAt  time.Time    `json:"received_at"`
	BodyPreview string       `json:"body_preview,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// AttachmentMatch is the per-attachment classification outcome.
type AttachmentMatch struct {
	Filename string `json:"filename"`
	Matched  bool   `json:"matched"`
}

// MatchRecord is created once, when a message first evaluates to
// "matched", and never mutated afterwards. MatchedFilenames preserves the
// attachments' original order.
type MatchRecord struct {
	MessageID        string    `json:"message_id"`
	Sender           string    `json:"sender"`
	Subject          string    `json:"subject"`
	ReceivedAt       time.Time `json:"received_at"`
	BodyPreview      string    `json:"body_preview,omitempty"`
	MatchedFilenames []string  `json:"matched_filenames"`
}

// CycleResult summarizes one completed (or aborted) evaluation cycle.
type CycleResult struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Fetched    int       `json:"fetched"`
	Skipped    int       `json:"skipped"`
	Evaluated  int       `json:"evaluated"`
	NewMatches int       `json:"new_matches"`
	Error      string    `json:"error,omitempty"`
}

// Failed reports whether the cycle aborted before recording anything.
func (c CycleResult) Failed() bool {
	return c.Error != ""
}
