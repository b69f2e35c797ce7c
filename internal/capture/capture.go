// Package capture records checkpoint screenshots and result certificates
// for verification sessions: bytes go to blob storage, metadata to the
// store, and an event is published for live viewers.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quillpoint/scraverify/internal/blob"
	"github.com/quillpoint/scraverify/internal/events"
	"github.com/quillpoint/scraverify/internal/model"
	"github.com/quillpoint/scraverify/internal/store"
)

// uploadAttempts bounds blob upload retries; backoff grows per attempt.
const (
	uploadAttempts = 3
	uploadBackoff  = 500 * time.Millisecond
)

// Recorder captures session artifacts. Screenshot capture is strictly
// best-effort: a failed capture logs and returns, it never interrupts the
// automation run that asked for it.
type Recorder struct {
	store  store.Store
	blobs  blob.Store
	pub    events.Publisher
	logger *slog.Logger
}

func NewRecorder(st store.Store, blobs blob.Store, pub events.Publisher, logger *slog.Logger) *Recorder {
	return &Recorder{
		store:  st,
		blobs:  blobs,
		pub:    pub,
		logger: logger,
	}
}

// Capture stores one checkpoint screenshot for a session step. The blob
// key is derived from the step alone, so recapturing a step overwrites
// the prior object in place of duplicating it. Any failure is swallowed:
// the screenshot is lost but the verification continues.
func (r *Recorder) Capture(ctx context.Context, sessionID, step, description string, image []byte) {
	if len(image) == 0 {
		r.logger.Warn("empty screenshot, skipping", "session_id", sessionID, "step", step)
		return
	}

	filename := fmt.Sprintf("%s.png", step)
	key := blob.ScreenshotKey(sessionID, filename)

	if err := r.upload(ctx, key, blob.ContentTypePNG, image); err != nil {
		r.logger.Error("screenshot upload failed", "session_id", sessionID, "step", step, "error", err)
		return
	}

	shot := &model.Screenshot{
		SessionID:   sessionID,
		Step:        step,
		Filename:    filename,
		Description: description,
		StoragePath: key,
		FileSize:    int64(len(image)),
	}
	if err := r.store.InsertScreenshot(ctx, shot); err != nil {
		r.logger.Error("screenshot insert failed", "session_id", sessionID, "step", step, "error", err)
		return
	}

	if err := r.pub.Publish(ctx, events.TopicScreenshotInserted, events.ScreenshotInserted{Screenshot: shot}); err != nil {
		r.logger.Warn("screenshot event publish failed", "session_id", sessionID, "error", err)
	}
}

// StoreCertificate uploads the result certificate PDF and returns its
// storage path.
func (r *Recorder) StoreCertificate(ctx context.Context, sessionID string, pdf []byte) (string, error) {
	if len(pdf) == 0 {
		return "", fmt.Errorf("empty certificate")
	}
	key := blob.CertificateKey(sessionID, "certificate.pdf")
	if err := r.upload(ctx, key, blob.ContentTypePDF, pdf); err != nil {
		return "", fmt.Errorf("certificate upload: %w", err)
	}
	return key, nil
}

// upload retries with progressive backoff; transient blob outages are
// common while a browser run is in flight.
func (r *Recorder) upload(ctx context.Context, key, contentType string, data []byte) error {
	var last error
	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		last = r.blobs.Put(ctx, key, contentType, data)
		if last == nil {
			return nil
		}
		if attempt == uploadAttempts {
			break
		}
		select {
		case <-time.After(time.Duration(attempt) * uploadBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return last
}
