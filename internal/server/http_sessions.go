package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/quillpoint/scraverify/internal/model"
	"github.com/quillpoint/scraverify/internal/store"
)

// handleListSessions handles GET /v1/sessions.
func (s *VerifyServer) handleListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.SessionFilter{
		UserID: q.Get("user_id"),
		Sort:   q.Get("sort"),
	}
	if v := q.Get("status"); v != "" {
		for _, st := range strings.Split(v, ",") {
			filter.Status = append(filter.Status, model.Status(st))
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	ctx, cancel := listContext(r.Context())
	defer cancel()

	var (
		sessions []*model.Session
		total    int
	)
	err := store.WithRetry(ctx, func() error {
		var err error
		sessions, total, err = s.store.ListSessions(ctx, filter)
		return err
	})
	if errors.Is(err, store.ErrTryAgain) {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "sessions temporarily unavailable, try again")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}

	if sessions == nil {
		sessions = []*model.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": sessions,
		"total":    total,
	})
}

// handleGetSession handles GET /v1/sessions/{id}.
func (s *VerifyServer) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	session, err := s.store.GetSession(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"session": session,
		"active":  s.launcher.Active(id),
	})
}

// handleListScreenshots handles GET /v1/sessions/{id}/screenshots.
// Each screenshot is returned with a signed read URL; URLs are cached
// until shortly before the signature expires. Pass refresh=1 to force
// re-signing.
func (s *VerifyServer) handleListScreenshots(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	refresh := r.URL.Query().Get("refresh") == "1"

	if _, err := s.store.GetSession(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get session")
		return
	}

	shots, err := s.store.ListScreenshots(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list screenshots")
		return
	}

	for _, shot := range shots {
		if refresh {
			s.urls.Invalidate(shot.StoragePath)
		}
		url, err := s.signedURL(r.Context(), shot.StoragePath)
		if err != nil {
			// A single signing failure leaves that URL empty rather than
			// failing the whole listing.
			continue
		}
		shot.URL = url
	}

	if shots == nil {
		shots = []*model.Screenshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id":  id,
		"screenshots": shots,
	})
}

// signedURL returns a cached signed URL for a storage path, signing a
// fresh one on miss.
func (s *VerifyServer) signedURL(ctx context.Context, path string) (string, error) {
	if url, ok := s.urls.Get(path); ok {
		return url, nil
	}
	url, err := s.blobs.SignedURL(ctx, path, s.signedURLTTL)
	if err != nil {
		return "", err
	}
	s.urls.Put(path, url)
	return url, nil
}
