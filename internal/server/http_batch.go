package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/quillpoint/scraverify/internal/automation"
	"github.com/quillpoint/scraverify/internal/batch"
	"github.com/quillpoint/scraverify/internal/events"
	"github.com/quillpoint/scraverify/internal/idgen"
	"github.com/quillpoint/scraverify/internal/model"
)

// readBatchBody reads the raw tabular upload, bounded to the batch size cap.
func readBatchBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, batch.MaxInputSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "batch input too large")
		return "", false
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "empty batch input")
		return "", false
	}
	return string(body), true
}

// handleBatchValidate handles POST /v1/batch/validate. It parses and
// validates the upload without producing output, so clients can check a
// file before committing to a submission.
func (s *VerifyServer) handleBatchValidate(w http.ResponseWriter, r *http.Request) {
	content, ok := readBatchBody(w, r)
	if !ok {
		return
	}

	res := batch.Process(content)
	// Validation never returns the encoded payload.
	res.Content = ""
	writeJSON(w, http.StatusOK, res)
}

// handleBatchVerification handles POST /v1/verifications/batch. The whole
// upload must validate; one bad row rejects the batch with the full error
// list so callers can fix the file and resubmit. A valid upload creates a
// pending session and launches the batch run in the background.
func (s *VerifyServer) handleBatchVerification(w http.ResponseWriter, r *http.Request) {
	content, ok := readBatchBody(w, r)
	if !ok {
		return
	}

	res := batch.Process(content)
	if !res.Valid {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	filename := batchFilename(time.Now().UTC())

	sessionID, err := idgen.NewSessionID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate session id")
		return
	}

	formData, _ := json.Marshal(map[string]any{
		"type":         "batch",
		"filename":     filename,
		"record_count": res.RecordCount,
	})
	session := &model.Session{
		SessionID: sessionID,
		UserID:    r.URL.Query().Get("user_id"),
		Status:    model.StatusPending,
		FormData:  formData,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateSession(r.Context(), session); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	s.publish(r.Context(), events.TopicSessionCreated, events.SessionCreated{Session: session})

	b := automation.Batch{
		Content:     res.Content,
		Filename:    filename,
		RecordCount: res.RecordCount,
	}
	if err := s.launcher.StartBatch(sessionID, b); err != nil {
		if errors.Is(err, automation.ErrTooManySessions) {
			writeError(w, http.StatusTooManyRequests, "too many active verifications, try again later")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to start batch verification")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"valid":        true,
		"session_id":   sessionID,
		"record_count": res.RecordCount,
		"filename":     filename,
		"content":      res.Content,
		"preview":      res.Preview,
	})
}

// batchFilename names the generated fixed-width file for download.
func batchFilename(t time.Time) string {
	return fmt.Sprintf("scra_batch_%s.txt", t.Format("20060102_150405"))
}
