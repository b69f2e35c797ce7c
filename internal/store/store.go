package store

import (
	"context"

	"github.com/quillpoint/scraverify/internal/model"
)

// Store defines the persistence interface for verification sessions,
// screenshots, and records.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id string) (*model.Session, error)
	ListSessions(ctx context.Context, filter model.SessionFilter) ([]*model.Session, int, error) // returns sessions, total count, error
	// UpdateSessionProgress applies a guarded progress update: terminal
	// sessions are never modified and progress never decreases. Returns
	// the stored row after the update.
	UpdateSessionProgress(ctx context.Context, id string, status model.Status, progress int, step, errorMessage string) (*model.Session, error)

	// Screenshots
	InsertScreenshot(ctx context.Context, shot *model.Screenshot) error
	ListScreenshots(ctx context.Context, sessionID string) ([]*model.Screenshot, error)

	// Verification records
	CreateRecord(ctx context.Context, rec *model.VerificationRecord) error
	GetRecord(ctx context.Context, id int64) (*model.VerificationRecord, error)
	ListRecords(ctx context.Context, filter model.RecordFilter) ([]*model.VerificationRecord, int, error)
	// DeleteRecord removes a record owned by userID and returns the
	// deleted row so callers can cascade blob cleanup.
	DeleteRecord(ctx context.Context, id int64, userID string) (*model.VerificationRecord, error)

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}
