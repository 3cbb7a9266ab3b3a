package models

import "time"

// FileState is the lifecycle position of one file in a correction batch.
type FileState string

const (
	FileStateQueued      FileState = "queued"
	FileStateSizeChecked FileState = "size_checked"
	FileStateSubmitted   FileState = "submitted"
	FileStateSucceeded   FileState = "succeeded"
	FileStateFailed      FileState = "failed"
)

// Terminal reports whether no further transition can happen.
func (s FileState) Terminal() bool {
	return s == FileStateSucceeded || s == FileStateFailed
}

// BatchFile is one uploaded file.
type BatchFile struct {
	Name    string `json:"name" binding:"required"`
	Content string `json:"content"`
}

// FileOutcome is the settled result of one file: a new copy id or an error.
type FileOutcome struct {
	CopyID string `json:"copyId,omitempty"`
	Error  string `json:"error,omitempty"`
	Code   string `json:"code,omitempty"`
}

// Succeeded reports whether the file was committed.
func (o FileOutcome) Succeeded() bool {
	return o.CopyID != ""
}

// BatchSnapshot is a point-in-time view of a batch.
type BatchSnapshot struct {
	ID         string                 `json:"id"`
	ProjectID  string                 `json:"projectId"`
	States     map[string]FileState   `json:"states"`
	Outcomes   map[string]FileOutcome `json:"outcomes,omitempty"`
	Settled    bool                   `json:"settled"`
	StartedAt  time.Time              `json:"startedAt"`
	FinishedAt *time.Time             `json:"finishedAt,omitempty"`
}

// Count returns how many files are in state.
func (s BatchSnapshot) Count(state FileState) int {
	n := 0
	for _, st := range s.States {
		if st == state {
			n++
		}
	}
	return n
}
