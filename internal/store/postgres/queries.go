package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/quillpoint/scraverify/internal/model"
	"github.com/quillpoint/scraverify/internal/store"
)

// sessionColumns is the column list used for SELECT statements on the sessions table.
const sessionColumns = `session_id, user_id, status, progress, current_step,
	form_data, error_message, created_at, updated_at`

// recordColumns is the column list used for SELECT statements on the
// verification_records table.
const recordColumns = `id, session_id, user_id, form_data, result, status, created_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// notFound maps sql.ErrNoRows onto the store's sentinel.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func queryCreateSession(ctx context.Context, db executor, s *model.Session) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO sessions (session_id, user_id, status, progress, current_step, form_data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		s.SessionID,
		nullString(s.UserID),
		string(s.Status),
		s.Progress,
		nullString(s.CurrentStep),
		jsonbBytes(s.FormData),
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func queryGetSession(ctx context.Context, db executor, id string) (*model.Session, error) {
	row := db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE session_id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

func queryListSessions(ctx context.Context, db executor, filter model.SessionFilter) ([]*model.Session, int, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.UserID != "" {
		whereClauses = append(whereClauses, "user_id = "+nextArg())
		args = append(args, filter.UserID)
	}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = nextArg()
			args = append(args, string(s))
		}
		whereClauses = append(whereClauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	// Single query with COUNT(*) OVER() to get total and rows atomically.
	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + sessionColumns +
		" FROM sessions" + whereSQL + " ORDER BY " + parseSortClause(filter.Sort)

	if filter.Limit > 0 {
		dataQuery += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		dataQuery += " OFFSET " + nextArg()
		args = append(args, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	var total int
	for rows.Next() {
		s, t, err := scanSessionWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan sessions: %w", err)
		}
		total = t
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan sessions: %w", err)
	}

	return sessions, total, nil
}

// queryUpdateSessionProgress applies a guarded update: terminal sessions
// are untouched and progress never moves backwards. When the guard blocks
// the write, the stored row is returned unchanged so callers always see
// current state.
func queryUpdateSessionProgress(ctx context.Context, db executor, id string, status model.Status, progress int, step, errorMessage string) (*model.Session, error) {
	row := db.QueryRowContext(ctx, `
		UPDATE sessions SET
			status = $2,
			progress = GREATEST(progress, $3),
			current_step = $4,
			error_message = COALESCE(NULLIF($5, ''), error_message),
			updated_at = NOW()
		WHERE session_id = $1 AND status NOT IN ('completed', 'failed')
		RETURNING `+sessionColumns,
		id, string(status), progress, nullString(step), errorMessage,
	)
	s, err := scanSession(row)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	// Either the session does not exist or it is already terminal.
	return queryGetSession(ctx, db, id)
}

func queryInsertScreenshot(ctx context.Context, db executor, shot *model.Screenshot) error {
	// One screenshot per (session, step): a retried step replaces its
	// earlier capture instead of duplicating it.
	return db.QueryRowContext(ctx, `
		INSERT INTO screenshots (session_id, step, filename, description, storage_path, file_size)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, step) DO UPDATE SET
			filename = EXCLUDED.filename,
			description = EXCLUDED.description,
			storage_path = EXCLUDED.storage_path,
			file_size = EXCLUDED.file_size,
			uploaded_at = NOW()
		RETURNING id, uploaded_at`,
		shot.SessionID,
		shot.Step,
		shot.Filename,
		nullString(shot.Description),
		shot.StoragePath,
		shot.FileSize,
	).Scan(&shot.ID, &shot.UploadedAt)
}

func queryListScreenshots(ctx context.Context, db executor, sessionID string) ([]*model.Screenshot, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, session_id, step, filename, description, storage_path, file_size, uploaded_at
		FROM screenshots
		WHERE session_id = $1
		ORDER BY uploaded_at ASC, id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScreenshots(rows)
}

func queryCreateRecord(ctx context.Context, db executor, r *model.VerificationRecord) error {
	return db.QueryRowContext(ctx, `
		INSERT INTO verification_records (session_id, user_id, form_data, result, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		r.SessionID,
		nullString(r.UserID),
		jsonbBytes(r.FormData),
		jsonbBytes(r.Result),
		string(r.Status),
	).Scan(&r.ID, &r.CreatedAt)
}

func queryGetRecord(ctx context.Context, db executor, id int64) (*model.VerificationRecord, error) {
	row := db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM verification_records WHERE id = $1`, id)
	r, err := scanRecord(row)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func queryListRecords(ctx context.Context, db executor, filter model.RecordFilter) ([]*model.VerificationRecord, int, error) {
	var (
		whereClauses []string
		args         []any
		argIdx       int
	)

	nextArg := func() string {
		argIdx++
		return fmt.Sprintf("$%d", argIdx)
	}

	if filter.UserID != "" {
		whereClauses = append(whereClauses, "user_id = "+nextArg())
		args = append(args, filter.UserID)
	}

	if filter.SessionID != "" {
		whereClauses = append(whereClauses, "session_id = "+nextArg())
		args = append(args, filter.SessionID)
	}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = nextArg()
			args = append(args, string(s))
		}
		whereClauses = append(whereClauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}

	whereSQL := ""
	if len(whereClauses) > 0 {
		whereSQL = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	dataQuery := "SELECT COUNT(*) OVER() AS total_count, " + recordColumns +
		" FROM verification_records" + whereSQL + " ORDER BY " + parseSortClause(filter.Sort)

	if filter.Limit > 0 {
		dataQuery += " LIMIT " + nextArg()
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		dataQuery += " OFFSET " + nextArg()
		args = append(args, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []*model.VerificationRecord
	var total int
	for rows.Next() {
		r, t, err := scanRecordWithTotal(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan records: %w", err)
		}
		total = t
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("scan records: %w", err)
	}

	return records, total, nil
}

// queryDeleteRecord removes a record scoped to its owner; an empty userID
// skips the ownership check. The deleted row is returned so callers can
// cascade blob cleanup.
func queryDeleteRecord(ctx context.Context, db executor, id int64, userID string) (*model.VerificationRecord, error) {
	row := db.QueryRowContext(ctx, `
		DELETE FROM verification_records
		WHERE id = $1 AND ($2 = '' OR user_id = $2)
		RETURNING `+recordColumns,
		id, userID,
	)
	r, err := scanRecord(row)
	if err != nil {
		return nil, notFound(err)
	}
	return r, nil
}

func parseSortClause(sort string) string {
	if sort == "" {
		return "created_at DESC"
	}
	desc := strings.HasPrefix(sort, "-")
	col := strings.TrimPrefix(sort, "-")
	allowed := map[string]bool{
		"created_at": true, "updated_at": true, "status": true, "progress": true,
	}
	if !allowed[col] {
		return "created_at DESC"
	}
	if desc {
		return col + " DESC"
	}
	return col + " ASC"
}
