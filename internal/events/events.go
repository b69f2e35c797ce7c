package events

import (
	"context"

	"github.com/quillpoint/scraverify/internal/model"
)

// Event topic constants
const (
	TopicSessionCreated     = "scra.session.created"
	TopicSessionUpdated     = "scra.session.updated"
	TopicScreenshotInserted = "scra.screenshot.inserted"
	TopicRecordCreated      = "scra.record.created"
	TopicRecordDeleted      = "scra.record.deleted"
)

// Event types

type SessionCreated struct {
	Session *model.Session `json:"session"`
}

type SessionUpdated struct {
	Session *model.Session `json:"session"`
	Changes map[string]any `json:"changes"` // field name -> new value
}

type ScreenshotInserted struct {
	Screenshot *model.Screenshot `json:"screenshot"`
}

type RecordCreated struct {
	Record *model.VerificationRecord `json:"record"`
}

type RecordDeleted struct {
	RecordID  int64  `json:"record_id"`
	SessionID string `json:"session_id"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
