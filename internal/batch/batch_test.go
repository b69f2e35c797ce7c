package batch

import (
	"strings"
	"testing"
)

const validCSV = `ssn,last_name,first_name,date_of_birth,active_duty_status_date
123-45-6789,Smith,John,10/29/1986,01/15/2024
987654321,DOE,jane,,2024-02-01
555443333,O'Brien,Patrick,19900315,20240301
`

func TestProcessValidBatch(t *testing.T) {
	res := Process(validCSV)
	if !res.Valid {
		t.Fatalf("expected valid batch, got errors: %v", res.Errors)
	}
	if res.RecordCount != 3 {
		t.Fatalf("record count = %d, want 3", res.RecordCount)
	}
	if res.ErrorCount != 0 {
		t.Fatalf("error count = %d, want 0", res.ErrorCount)
	}

	lines := strings.Split(strings.TrimRight(res.Content, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d output lines, want 3", len(lines))
	}
	for i, line := range lines {
		if len(line) != LineLength {
			t.Errorf("line %d is %d chars, want %d", i+1, len(line), LineLength)
		}
	}

	// Column boundaries of the first line.
	first := lines[0]
	if got := first[ssnStart : ssnStart+ssnWidth]; got != "123456789" {
		t.Errorf("ssn field = %q", got)
	}
	if got := first[dobStart : dobStart+dobWidth]; got != "19861029" {
		t.Errorf("dob field = %q", got)
	}
	if got := strings.TrimSpace(first[lastNameStart : lastNameStart+lastNameWidth]); got != "Smith" {
		t.Errorf("last name field = %q", got)
	}
	if got := first[dutyDateStart : dutyDateStart+dutyDateWidth]; got != "20240115" {
		t.Errorf("duty date field = %q", got)
	}
}

func TestProcessRejectsWholeBatchOnOneBadRow(t *testing.T) {
	input := `ssn,last_name,first_name,active_duty_status_date
123456789,Smith,John,01/15/2024
12345,Doe,Jane,01/15/2024
987654321,Jones,Bob,01/15/2024
`
	res := Process(input)
	if res.Valid {
		t.Fatal("expected batch to be rejected")
	}
	if res.ErrorCount != 1 {
		t.Fatalf("error count = %d, want 1: %v", res.ErrorCount, res.Errors)
	}
	if res.Content != "" {
		t.Fatal("rejected batch must produce no output")
	}
	if res.Errors[0].Row != 3 {
		t.Errorf("error attributed to row %d, want 3", res.Errors[0].Row)
	}
	if !strings.Contains(res.Errors[0].Message, "SSN") {
		t.Errorf("unexpected error message: %q", res.Errors[0].Message)
	}
}

func TestProcessHeaderVariations(t *testing.T) {
	input := `Social Security Number,Surname,Given Name,Duty Date
123456789,Smith,John,01/15/2024
`
	res := Process(input)
	if !res.Valid {
		t.Fatalf("header variations not resolved: %v", res.Errors)
	}
	if res.RecordCount != 1 {
		t.Fatalf("record count = %d, want 1", res.RecordCount)
	}
}

func TestProcessTabDelimited(t *testing.T) {
	input := "ssn\tlast_name\tfirst_name\tactive_duty_status_date\n" +
		"123456789\tSmith\tJohn\t01/15/2024\n"
	res := Process(input)
	if !res.Valid {
		t.Fatalf("tab-delimited input rejected: %v", res.Errors)
	}
}

func TestProcessMissingRequiredColumn(t *testing.T) {
	input := "last_name,first_name\nSmith,John\n"
	res := Process(input)
	if res.Valid {
		t.Fatal("expected rejection for missing columns")
	}
	if len(res.Errors) == 0 || !strings.Contains(res.Errors[0].Message, "missing required columns") {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
}

func TestProcessEmptySSNEncodedAsSpaces(t *testing.T) {
	input := `ssn,last_name,first_name,active_duty_status_date
,Smith,John,01/15/2024
`
	res := Process(input)
	if !res.Valid {
		t.Fatalf("empty SSN should be allowed: %v", res.Errors)
	}
	line := strings.TrimRight(res.Content, "\n")
	if got := line[ssnStart : ssnStart+ssnWidth]; got != strings.Repeat(" ", ssnWidth) {
		t.Errorf("empty SSN field = %q, want all spaces", got)
	}
}

func TestProcessOversizeInput(t *testing.T) {
	res := Process(strings.Repeat("x", MaxInputSize+1))
	if res.Valid {
		t.Fatal("oversize input must be rejected")
	}
	if !strings.Contains(res.Errors[0].Message, "maximum size") {
		t.Errorf("unexpected error: %q", res.Errors[0].Message)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	records, errs := Parse(validCSV)
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}

	decoded, err := Decode(Encode(records))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(records) {
		t.Fatalf("decoded %d records, want %d", len(decoded), len(records))
	}
	for i, want := range records {
		got := decoded[i]
		if got.SSN != want.SSN {
			t.Errorf("record %d: ssn %q != %q", i, got.SSN, want.SSN)
		}
		if got.DateOfBirth != want.DateOfBirth {
			t.Errorf("record %d: dob %q != %q", i, got.DateOfBirth, want.DateOfBirth)
		}
		if got.LastName != want.LastName {
			t.Errorf("record %d: last name %q != %q", i, got.LastName, want.LastName)
		}
		if got.FirstName != want.FirstName {
			t.Errorf("record %d: first name %q != %q", i, got.FirstName, want.FirstName)
		}
		if got.ActiveDutyDate != want.ActiveDutyDate {
			t.Errorf("record %d: duty date %q != %q", i, got.ActiveDutyDate, want.ActiveDutyDate)
		}
	}
}

func TestTitleCase(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"SMITH", "Smith"},
		{"VAN DER BERG", "Van Der Berg"},
		{"", ""},
	} {
		if got := titleCase(tc.in); got != tc.want {
			t.Errorf("titleCase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
