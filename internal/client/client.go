// Package client provides a transport-agnostic interface for the
// verification service and an HTTP/JSON implementation that talks to its
// REST API.
package client

import (
	"context"

	"github.com/quillpoint/scraverify/internal/batch"
	"github.com/quillpoint/scraverify/internal/model"
)

// VerifyClient is the interface CLI commands use to communicate with the
// verification server. It is implemented by HTTPClient (default) and can
// be backed by any transport.
type VerifyClient interface {
	// Verifications
	CreateVerification(ctx context.Context, req *CreateVerificationRequest) (*model.Session, error)
	ValidateBatch(ctx context.Context, content string) (*batch.Result, error)
	SubmitBatch(ctx context.Context, content string) (*BatchResponse, error)

	// Sessions
	GetSession(ctx context.Context, id string) (*SessionStatus, error)
	ListSessions(ctx context.Context, req *ListSessionsRequest) (*ListSessionsResponse, error)
	ListScreenshots(ctx context.Context, sessionID string, refresh bool) ([]*model.Screenshot, error)

	// Records
	GetRecord(ctx context.Context, id int64) (*model.VerificationRecord, error)
	ListRecords(ctx context.Context, req *ListRecordsRequest) (*ListRecordsResponse, error)
	DeleteRecord(ctx context.Context, id int64, userID string) error

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// CreateVerificationRequest holds parameters for submitting a single
// verification. Person fields are flattened to match the API body.
type CreateVerificationRequest struct {
	UserID string `json:"user_id,omitempty"`
	model.Person
}

// BatchResponse is the response from SubmitBatch. On a rejected batch
// Valid is false and Errors carries the per-row failures.
type BatchResponse struct {
	Valid       bool             `json:"valid"`
	SessionID   string           `json:"session_id,omitempty"`
	RecordCount int              `json:"record_count"`
	ErrorCount  int              `json:"error_count,omitempty"`
	Errors      []batch.RowError `json:"errors,omitempty"`
	Filename    string           `json:"filename,omitempty"`
	Content     string           `json:"content,omitempty"`
	Preview     []batch.Record   `json:"preview,omitempty"`
}

// SessionStatus pairs a session with whether its run is still active.
type SessionStatus struct {
	Session *model.Session `json:"session"`
	Active  bool           `json:"active"`
}

// ListSessionsRequest holds parameters for listing sessions.
type ListSessionsRequest struct {
	UserID string   `json:"user_id,omitempty"`
	Status []string `json:"status,omitempty"`
	Sort   string   `json:"sort,omitempty"`
	Limit  int      `json:"limit,omitempty"`
	Offset int      `json:"offset,omitempty"`
}

// ListSessionsResponse is the response from ListSessions.
type ListSessionsResponse struct {
	Sessions []*model.Session `json:"sessions"`
	Total    int              `json:"total"`
}

// ListRecordsRequest holds parameters for listing verification records.
type ListRecordsRequest struct {
	UserID    string   `json:"user_id,omitempty"`
	SessionID string   `json:"session_id,omitempty"`
	Status    []string `json:"status,omitempty"`
	Sort      string   `json:"sort,omitempty"`
	Limit     int      `json:"limit,omitempty"`
	Offset    int      `json:"offset,omitempty"`
}

// ListRecordsResponse is the response from ListRecords.
type ListRecordsResponse struct {
	Records []*model.VerificationRecord `json:"records"`
	Total   int                         `json:"total"`
}
