package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/quillpoint/scraverify/internal/automation"
	"github.com/quillpoint/scraverify/internal/events"
	"github.com/quillpoint/scraverify/internal/idgen"
	"github.com/quillpoint/scraverify/internal/model"
)

// createVerificationInput is the JSON body for POST /v1/verifications.
// Person fields are flattened into the top level.
type createVerificationInput struct {
	UserID string `json:"user_id"`
	model.Person
}

// decodeCreateVerification parses and validates the request body,
// returning an inputError for anything the caller can fix.
func decodeCreateVerification(r *http.Request) (createVerificationInput, error) {
	var in createVerificationInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return in, inputError("invalid JSON body")
	}
	in.Person.Normalize()
	if errs := in.Person.Validate(); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return in, inputError(strings.Join(msgs, "; "))
	}
	return in, nil
}

// handleCreateVerification handles POST /v1/verifications. It creates a
// pending session, launches the automation run in the background, and
// returns 202 with the session.
func (s *VerifyServer) handleCreateVerification(w http.ResponseWriter, r *http.Request) {
	in, err := decodeCreateVerification(r)
	if err != nil {
		var bad inputError
		if errors.As(err, &bad) {
			writeError(w, http.StatusBadRequest, bad.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	person := in.Person

	sessionID, err := idgen.NewSessionID()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to generate session id")
		return
	}

	formData, _ := json.Marshal(person)
	session := &model.Session{
		SessionID: sessionID,
		UserID:    in.UserID,
		Status:    model.StatusPending,
		FormData:  formData,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateSession(r.Context(), session); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	s.publish(r.Context(), events.TopicSessionCreated, events.SessionCreated{Session: session})

	if err := s.launcher.Start(sessionID, person); err != nil {
		if errors.Is(err, automation.ErrSessionActive) {
			writeError(w, http.StatusConflict, "verification already running for session")
			return
		}
		if errors.Is(err, automation.ErrTooManySessions) {
			writeError(w, http.StatusTooManyRequests, "too many active verifications, try again later")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to start verification")
		return
	}

	writeJSON(w, http.StatusAccepted, session)
}
