package postgres

import (
	"database/sql"
	"encoding/json"

	"github.com/quillpoint/scraverify/internal/model"
)

// scannable is the interface satisfied by both *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanSession scans a single row into a model.Session.
// The row must contain columns in the order defined by sessionColumns.
func scanSession(row scannable) (*model.Session, error) {
	var s model.Session
	var (
		userID       sql.NullString
		currentStep  sql.NullString
		formData     []byte
		errorMessage sql.NullString
	)

	err := row.Scan(
		&s.SessionID,
		&userID,
		&s.Status,
		&s.Progress,
		&currentStep,
		&formData,
		&errorMessage,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	s.UserID = userID.String
	s.CurrentStep = currentStep.String
	s.ErrorMessage = errorMessage.String
	if len(formData) > 0 {
		s.FormData = json.RawMessage(formData)
	}

	return &s, nil
}

// scanSessionWithTotal scans a row that has a leading total_count column
// followed by the standard session columns. Used by queryListSessions
// with COUNT(*) OVER().
func scanSessionWithTotal(row scannable) (*model.Session, int, error) {
	var total int
	var s model.Session
	var (
		userID       sql.NullString
		currentStep  sql.NullString
		formData     []byte
		errorMessage sql.NullString
	)

	err := row.Scan(
		&total,
		&s.SessionID,
		&userID,
		&s.Status,
		&s.Progress,
		&currentStep,
		&formData,
		&errorMessage,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, 0, err
	}

	s.UserID = userID.String
	s.CurrentStep = currentStep.String
	s.ErrorMessage = errorMessage.String
	if len(formData) > 0 {
		s.FormData = json.RawMessage(formData)
	}

	return &s, total, nil
}

// scanScreenshot scans a single row into a model.Screenshot.
func scanScreenshot(row scannable) (*model.Screenshot, error) {
	var sc model.Screenshot
	var description sql.NullString
	err := row.Scan(
		&sc.ID,
		&sc.SessionID,
		&sc.Step,
		&sc.Filename,
		&description,
		&sc.StoragePath,
		&sc.FileSize,
		&sc.UploadedAt,
	)
	if err != nil {
		return nil, err
	}
	sc.Description = description.String
	return &sc, nil
}

// scanScreenshots scans multiple rows into a slice of model.Screenshot pointers.
func scanScreenshots(rows *sql.Rows) ([]*model.Screenshot, error) {
	var shots []*model.Screenshot
	for rows.Next() {
		sc, err := scanScreenshot(rows)
		if err != nil {
			return nil, err
		}
		shots = append(shots, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return shots, nil
}

// scanRecord scans a single row into a model.VerificationRecord.
func scanRecord(row scannable) (*model.VerificationRecord, error) {
	var r model.VerificationRecord
	var (
		userID   sql.NullString
		formData []byte
		result   []byte
	)
	err := row.Scan(
		&r.ID,
		&r.SessionID,
		&userID,
		&formData,
		&result,
		&r.Status,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.UserID = userID.String
	if len(formData) > 0 {
		r.FormData = json.RawMessage(formData)
	}
	if len(result) > 0 {
		r.Result = json.RawMessage(result)
	}
	return &r, nil
}

// scanRecordWithTotal scans a row that has a leading total_count column
// followed by the standard record columns.
func scanRecordWithTotal(row scannable) (*model.VerificationRecord, int, error) {
	var total int
	var r model.VerificationRecord
	var (
		userID   sql.NullString
		formData []byte
		result   []byte
	)
	err := row.Scan(
		&total,
		&r.ID,
		&r.SessionID,
		&userID,
		&formData,
		&result,
		&r.Status,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, 0, err
	}
	r.UserID = userID.String
	if len(formData) > 0 {
		r.FormData = json.RawMessage(formData)
	}
	if len(result) > 0 {
		r.Result = json.RawMessage(result)
	}
	return &r, total, nil
}

// nullString converts a string to sql.NullString; empty string is null.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// jsonbBytes converts json.RawMessage to a []byte suitable for JSONB columns.
func jsonbBytes(m json.RawMessage) []byte {
	if len(m) == 0 {
		return nil
	}
	return []byte(m)
}
