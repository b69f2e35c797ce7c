package model

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// maxNameLen is the widest name the portal accepts in any field.
const maxNameLen = 20

// Person holds the identity fields for a single-record verification.
// Dates are normalized to YYYYMMDD.
type Person struct {
	SSN              string `json:"ssn"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	MiddleName       string `json:"middle_name,omitempty"`
	Suffix           string `json:"suffix,omitempty"`
	DateOfBirth      string `json:"date_of_birth,omitempty"`
	ActiveDutyDate   string `json:"active_duty_date"`
	CustomerRecordID string `json:"customer_record_id,omitempty"`
}

// Normalize cleans every field in place: SSN stripped to digits, names
// trimmed and upper-cased, dates converted to YYYYMMDD.
func (p *Person) Normalize() {
	p.SSN = CleanSSN(p.SSN)
	p.FirstName = CleanName(p.FirstName)
	p.LastName = CleanName(p.LastName)
	p.MiddleName = CleanName(p.MiddleName)
	p.Suffix = CleanName(p.Suffix)
	p.DateOfBirth = NormalizeDate(p.DateOfBirth)
	p.ActiveDutyDate = NormalizeDate(p.ActiveDutyDate)
	p.CustomerRecordID = cleanID(p.CustomerRecordID)
}

// Validate checks the normalized fields and returns every problem found.
func (p *Person) Validate() []error {
	var errs []error
	if p.SSN != "" && len(p.SSN) != 9 {
		errs = append(errs, fmt.Errorf("SSN must be 9 digits or empty, got %d", len(p.SSN)))
	}
	if p.LastName == "" {
		errs = append(errs, fmt.Errorf("last name is required"))
	}
	if p.FirstName == "" {
		errs = append(errs, fmt.Errorf("first name is required"))
	}
	switch {
	case p.ActiveDutyDate == "":
		errs = append(errs, fmt.Errorf("active duty status date is required"))
	case !validYYYYMMDD(p.ActiveDutyDate):
		errs = append(errs, fmt.Errorf("active duty status date %q is not a valid date", p.ActiveDutyDate))
	}
	if p.DateOfBirth != "" && !validYYYYMMDD(p.DateOfBirth) {
		errs = append(errs, fmt.Errorf("date of birth %q is not a valid date", p.DateOfBirth))
	}
	return errs
}

// CleanSSN strips non-digits and truncates to 9 digits.
func CleanSSN(ssn string) string {
	var b strings.Builder
	for _, r := range ssn {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > 9 {
		return digits[:9]
	}
	return digits
}

// CleanName trims, upper-cases, and truncates a name field.
func CleanName(name string) string {
	name = strings.ToUpper(strings.TrimSpace(name))
	if len(name) > maxNameLen {
		return name[:maxNameLen]
	}
	return name
}

func cleanID(id string) string {
	id = strings.TrimSpace(id)
	if len(id) > maxNameLen {
		return id[:maxNameLen]
	}
	return id
}

// dateLayouts are the accepted input formats, tried in order. Two-digit
// years come first so "10/29/86" is not misread.
var dateLayouts = []string{
	"1/2/06",
	"1-2-06",
	"1/2/2006",
	"1-2-2006",
	"2006-1-2",
	"2006/1/2",
}

// NormalizeDate converts an input date to YYYYMMDD. Unparseable input
// yields an empty string; validation rejects it downstream.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	digits := digitsOnly(s)
	if len(digits) == 8 && len(s) == 8 {
		return digits
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("20060102")
		}
	}

	if len(digits) == 8 && validYYYYMMDD(digits) {
		return digits
	}
	return ""
}

// FormatDateSlash converts a YYYYMMDD date to the MM/DD/YYYY form the
// portal's date inputs expect.
func FormatDateSlash(yyyymmdd string) string {
	t, err := time.Parse("20060102", yyyymmdd)
	if err != nil {
		return yyyymmdd
	}
	return t.Format("01/02/2006")
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func validYYYYMMDD(s string) bool {
	if len(s) != 8 {
		return false
	}
	_, err := time.Parse("20060102", s)
	return err == nil
}
