package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/quillpoint/scraverify/internal/blob"
	"github.com/quillpoint/scraverify/internal/events"
	"github.com/quillpoint/scraverify/internal/model"
	"github.com/quillpoint/scraverify/internal/store"
)

// handleListRecords handles GET /v1/records. Pages are served from a
// short-lived cache purged on record events; pass refresh=1 to read the
// store directly.
func (s *VerifyServer) handleListRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.RecordFilter{
		UserID:    q.Get("user_id"),
		SessionID: q.Get("session_id"),
		Sort:      q.Get("sort"),
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
	refresh := q.Get("refresh") == "1"

	key := recordListKey(filter)
	if !refresh {
		if page, ok := s.recordLists.Get(key); ok {
			writeJSON(w, http.StatusOK, map[string]any{
				"records": page.Records,
				"total":   page.Total,
			})
			return
		}
	}

	ctx, cancel := listContext(r.Context())
	defer cancel()

	var (
		records []*model.VerificationRecord
		total   int
	)
	err := store.WithRetry(ctx, func() error {
		var err error
		records, total, err = s.store.ListRecords(ctx, filter)
		return err
	})
	if errors.Is(err, store.ErrTryAgain) {
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "records temporarily unavailable, try again")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	if records == nil {
		records = []*model.VerificationRecord{}
	}
	s.recordLists.Put(key, recordListPage{Records: records, Total: total})
	writeJSON(w, http.StatusOK, map[string]any{
		"records": records,
		"total":   total,
	})
}

// recordListKey canonicalizes a filter into a cache key.
func recordListKey(f model.RecordFilter) string {
	statuses := make([]string, 0, len(f.Status))
	for _, st := range f.Status {
		statuses = append(statuses, string(st))
	}
	return strings.Join([]string{
		f.UserID,
		f.SessionID,
		strings.Join(statuses, ","),
		f.Sort,
		strconv.Itoa(f.Limit),
		strconv.Itoa(f.Offset),
	}, "|")
}

// handleGetRecord handles GET /v1/records/{id}.
func (s *VerifyServer) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	rec, err := s.store.GetRecord(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get record")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleDeleteRecord handles DELETE /v1/records/{id}. Deletion is scoped
// to the owning user when user_id is supplied, and cascades to the
// session's stored blobs.
func (s *VerifyServer) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	userID := r.URL.Query().Get("user_id")

	rec, err := s.store.DeleteRecord(r.Context(), id, userID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete record")
		return
	}

	// Blob cleanup is best-effort; orphaned objects age out of signed-URL
	// reach on their own.
	if err := s.blobs.DeletePrefix(r.Context(), blob.SessionPrefix(rec.SessionID)); err != nil {
		slog.Warn("blob cleanup failed", "session_id", rec.SessionID, "error", err)
	}

	s.publish(r.Context(), events.TopicRecordDeleted, events.RecordDeleted{
		RecordID:  rec.ID,
		SessionID: rec.SessionID,
	})

	w.WriteHeader(http.StatusNoContent)
}

// recordID parses the numeric {id} path segment.
func recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid record id")
		return 0, false
	}
	return id, true
}
