package model

import (
	"encoding/json"
	"time"
)

// Status represents the lifecycle state of a verification session.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// IsValid checks whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the status is final. Terminal sessions are
// immutable.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether moving from s to next is a legal lifecycle
// transition. Transitions are monotonic: pending -> in_progress -> terminal.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress || next == StatusCompleted || next == StatusFailed
	case StatusInProgress:
		return next == StatusCompleted || next == StatusFailed
	}
	return false
}

// Session is one end-to-end automation run tracked by session ID.
// It is created at submission time and mutated only by the automation
// runner; every other component reads it.
type Session struct {
	SessionID    string          `json:"session_id"`
	UserID       string          `json:"user_id,omitempty"`
	Status       Status          `json:"status"`
	Progress     int             `json:"progress"` // 0-100, non-decreasing while in progress
	CurrentStep  string          `json:"current_step,omitempty"`
	FormData     json.RawMessage `json:"form_data,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Screenshot is one captured frame for a checkpoint step. Screenshots are
// unique per (session_id, step); recapturing a step overwrites the prior
// blob and row rather than duplicating.
type Screenshot struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Step        string    `json:"step"`
	Filename    string    `json:"filename"`
	Description string    `json:"description,omitempty"`
	StoragePath string    `json:"storage_path"`
	FileSize    int64     `json:"file_size,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
	URL         string    `json:"url,omitempty"` // signed URL, populated on read paths only
}
