package model

import (
	"encoding/json"
	"time"
)

// VerificationRecord is the long-lived audit entity for one finished
// verification. It is created exactly once when automation finalizes a
// session and is never mutated in place afterwards; the owning user may
// delete it (which cascades to the session's blobs).
type VerificationRecord struct {
	ID        int64           `json:"id"`
	SessionID string          `json:"session_id"`
	UserID    string          `json:"user_id,omitempty"`
	FormData  json.RawMessage `json:"form_data,omitempty"`
	Result    json.RawMessage `json:"result"`
	Status    Status          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// Result is the structured outcome of one automation run. Eligibility is
// stored verbatim as produced by the external system.
type Result struct {
	Success       bool            `json:"success"`
	Method        string          `json:"method"`
	TransactionID string          `json:"id,omitempty"`
	Person        *Person         `json:"person_request,omitempty"`
	Eligibility   json.RawMessage `json:"eligibility,omitempty"`
	RecordCount   int             `json:"record_count,omitempty"`
	Error         string          `json:"error,omitempty"`
	PageURL       string          `json:"page_url,omitempty"`
	Certificate   string          `json:"certificate_path,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Eligibility is the external system's coverage determination for one
// person and date of interest. Field names follow the portal's response
// shape; unknown fields are preserved by storing the raw payload on the
// Result.
type Eligibility struct {
	DateOfInterest         string `json:"dateOfInterest,omitempty"`
	TransactionID          string `json:"transactionId,omitempty"`
	Covered                bool   `json:"covered"`
	ActiveDutyCovered      bool   `json:"activeDutyCovered"`
	ActiveDutyStartDate    string `json:"activeDutyStartDate,omitempty"`
	ActiveDutyEndDate      string `json:"activeDutyEndDate,omitempty"`
	ActiveDutyIndicator    string `json:"activeDutyIndicatorCode,omitempty"`
	EarlyIndicationCovered bool   `json:"earlyIndicationCovered"`
	EarlyIndicationStart   string `json:"earlyIndicationStartDate,omitempty"`
	EarlyIndicationEnd     string `json:"earlyIndicationEndDate,omitempty"`
	HERACovered            bool   `json:"heraCovered"`
	HERAStartDate          string `json:"heraStartDate,omitempty"`
	HERAEndDate            string `json:"heraEndDate,omitempty"`
	MatchReasonCode        string `json:"matchReasonCode,omitempty"`
	EligibilityType        string `json:"scraEligibilityType,omitempty"`
}
