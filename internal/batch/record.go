// Package batch converts tabular verification input into the portal's
// fixed-width batch encoding: one 119-character line per person, byte
// layout per the published contract.
package batch

import (
	"fmt"
	"strings"

	"github.com/quillpoint/scraverify/internal/model"
)

// LineLength is the exact width of one encoded record.
const LineLength = 119

// Fixed-width column boundaries. The names section runs [17,91): last
// name gets 26 characters, first name the remaining 48.
const (
	ssnStart       = 0
	ssnWidth       = 9
	dobStart       = 9
	dobWidth       = 8
	lastNameStart  = 17
	lastNameWidth  = 26
	firstNameStart = 43
	firstNameWidth = 48
	dutyDateStart  = 91
	dutyDateWidth  = 8
	middleStart    = 99
	middleWidth    = 20
)

// Record is one validated row of a batch submission.
type Record struct {
	SSN              string `json:"ssn"`
	DateOfBirth      string `json:"date_of_birth,omitempty"` // YYYYMMDD or empty
	LastName         string `json:"last_name"`
	FirstName        string `json:"first_name"`
	MiddleName       string `json:"middle_name,omitempty"`
	ActiveDutyDate   string `json:"active_duty_date"` // YYYYMMDD
	CustomerRecordID string `json:"customer_record_id,omitempty"`

	// RowNumber is the 1-based line in the source input, for error messages.
	RowNumber int `json:"row_number"`
}

// NewRecord builds a Record from raw column values, normalizing each field.
func NewRecord(row map[string]string, rowNumber int) Record {
	return Record{
		SSN:              model.CleanSSN(row["ssn"]),
		DateOfBirth:      model.NormalizeDate(row["date_of_birth"]),
		LastName:         model.CleanName(row["last_name"]),
		FirstName:        model.CleanName(row["first_name"]),
		MiddleName:       model.CleanName(row["middle_name"]),
		ActiveDutyDate:   model.NormalizeDate(row["active_duty_status_date"]),
		CustomerRecordID: strings.TrimSpace(row["customer_record_id"]),
		RowNumber:        rowNumber,
	}
}

// Validate returns every rule violation for the record. An empty SSN is
// allowed (encoded as spaces); a non-empty SSN must be exactly 9 digits.
func (r Record) Validate() []error {
	var errs []error
	if r.SSN != "" && len(r.SSN) != 9 {
		errs = append(errs, fmt.Errorf("SSN must be 9 digits or empty, got %d", len(r.SSN)))
	}
	if r.LastName == "" {
		errs = append(errs, fmt.Errorf("last name is required"))
	}
	if r.FirstName == "" {
		errs = append(errs, fmt.Errorf("first name is required"))
	}
	if r.ActiveDutyDate == "" {
		errs = append(errs, fmt.Errorf("active duty status date is required"))
	} else if len(r.ActiveDutyDate) != 8 {
		errs = append(errs, fmt.Errorf("active duty status date must be in YYYYMMDD format"))
	}
	if r.DateOfBirth != "" && len(r.DateOfBirth) != 8 {
		errs = append(errs, fmt.Errorf("date of birth must be in YYYYMMDD format or empty"))
	}
	return errs
}

// Person converts the record to the single-lookup form shape.
func (r Record) Person() model.Person {
	return model.Person{
		SSN:              r.SSN,
		FirstName:        r.FirstName,
		LastName:         r.LastName,
		MiddleName:       r.MiddleName,
		DateOfBirth:      r.DateOfBirth,
		ActiveDutyDate:   r.ActiveDutyDate,
		CustomerRecordID: r.CustomerRecordID,
	}
}

// EncodeLine renders the record as one fixed-width line. The caller must
// have validated the record; invalid SSN or dates degrade to space fill
// rather than corrupting column positions.
func (r Record) EncodeLine() string {
	var b strings.Builder
	b.Grow(LineLength)

	if len(r.SSN) == ssnWidth {
		b.WriteString(r.SSN)
	} else {
		b.WriteString(strings.Repeat(" ", ssnWidth))
	}

	if len(r.DateOfBirth) == dobWidth {
		b.WriteString(r.DateOfBirth)
	} else {
		b.WriteString(strings.Repeat(" ", dobWidth))
	}

	b.WriteString(padField(titleCase(r.LastName), lastNameWidth))
	b.WriteString(padField(titleCase(r.FirstName), firstNameWidth))
	b.WriteString(padField(r.ActiveDutyDate, dutyDateWidth))
	b.WriteString(padField(titleCase(r.MiddleName), middleWidth))

	return b.String()
}

// padField space-pads (or truncates) a value to exactly width bytes.
func padField(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// titleCase renders a cleaned (upper-cased) name with only the first
// letter of each word capitalized, matching the portal's batch layout.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
