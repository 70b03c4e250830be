// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SubmissionOutcome indicates how a submission to the remote processor ended.
type SubmissionOutcome string

const (
	SubmissionDone   SubmissionOutcome = "done"
	SubmissionFailed SubmissionOutcome = "failed"
)

// Submission records one exchange with the remote processor.
type Submission struct {
	// ID uniquely identifies the submission.
	ID string `json:"id" yaml:"id"`

	// SessionID is the session that issued the submission.
	SessionID string `json:"session_id" yaml:"session_id"`

	// Filename is the name of the uploaded document.
	Filename string `json:"filename" yaml:"filename"`

	// PageCount is the page count of the uploaded document.
	PageCount int `json:"page_count" yaml:"page_count"`

	// Operations is the serialized operation log exactly as transmitted.
	Operations string `json:"operations" yaml:"operations"`

	// Outcome is done or failed.
	Outcome SubmissionOutcome `json:"outcome" yaml:"outcome"`

	// Error holds the failure reason when Outcome is failed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`

	// InputBytes and OutputBytes are the document and result sizes.
	InputBytes  int `json:"input_bytes" yaml:"input_bytes"`
	OutputBytes int `json:"output_bytes" yaml:"output_bytes"`

	// StartedAt and FinishedAt bracket the remote exchange.
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
}

// Duration returns how long the remote exchange took.
func (s Submission) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
