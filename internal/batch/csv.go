package batch

import (
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"
)

// MaxInputSize caps accepted tabular input at 5 MB.
const MaxInputSize = 5 << 20

// requiredColumns must be present (possibly under a known variation) and
// non-empty per row.
var requiredColumns = []string{"ssn", "last_name", "first_name", "active_duty_status_date"}

// optionalColumns pad or omit without failing the row.
var optionalColumns = []string{"date_of_birth", "middle_name", "customer_record_id"}

// columnVariations maps canonical column names to accepted header aliases.
var columnVariations = map[string][]string{
	"ssn":                     {"social_security_number", "social_security", "ss_number", "ssn_number"},
	"last_name":               {"lastname", "surname", "family_name", "last"},
	"first_name":              {"firstname", "given_name", "first"},
	"middle_name":             {"middlename", "middle_initial", "middle", "mi"},
	"date_of_birth":           {"dob", "birth_date", "birthdate", "date_birth"},
	"active_duty_status_date": {"active_duty_date", "duty_date", "status_date", "service_date"},
	"customer_record_id":      {"customer_id", "record_id", "id", "customer_number"},
}

var headerCleanRE = regexp.MustCompile(`[^\w]+`)

// RowError is one validation failure attributed to a source row.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s", e.Row, e.Message)
	}
	return e.Message
}

// Parse reads tabular content and returns the validated records together
// with every per-row error. Validation is all-or-nothing at the batch
// level: callers must treat any error as rejecting the whole submission.
func Parse(content string) ([]Record, []RowError) {
	if len(content) > MaxInputSize {
		return nil, []RowError{{Message: fmt.Sprintf("input exceeds maximum size of %d bytes", MaxInputSize)}}
	}

	r := csv.NewReader(strings.NewReader(content))
	r.Comma = sniffDelimiter(content)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, []RowError{{Message: fmt.Sprintf("error parsing input: %v", err)}}
	}
	if len(rows) == 0 {
		return nil, []RowError{{Message: "no valid records found in input"}}
	}

	header, missing := normalizeHeader(rows[0])
	if len(missing) > 0 {
		return nil, []RowError{{Message: "missing required columns: " + strings.Join(missing, ", ")}}
	}

	var (
		records []Record
		rowErrs []RowError
	)
	for i, row := range rows[1:] {
		rowNumber := i + 2 // 1-based, counting the header line

		values := make(map[string]string, len(header))
		for col, idx := range header {
			if idx < len(row) {
				values[col] = strings.TrimSpace(row[idx])
			}
		}

		rec := NewRecord(values, rowNumber)
		if errs := rec.Validate(); len(errs) > 0 {
			for _, e := range errs {
				rowErrs = append(rowErrs, RowError{Row: rowNumber, Message: e.Error()})
			}
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 && len(rowErrs) == 0 {
		rowErrs = append(rowErrs, RowError{Message: "no valid records found in input"})
	}

	return records, rowErrs
}

// normalizeHeader maps each canonical column name to its index in the
// header row, resolving known aliases. Returns the missing required
// column names.
func normalizeHeader(headerRow []string) (map[string]int, []string) {
	byName := make(map[string]int, len(headerRow))
	for i, h := range headerRow {
		byName[cleanHeader(h)] = i
	}

	resolved := make(map[string]int)
	for _, col := range append(append([]string{}, requiredColumns...), optionalColumns...) {
		if idx, ok := byName[col]; ok {
			resolved[col] = idx
			continue
		}
		for _, alias := range columnVariations[col] {
			if idx, ok := byName[alias]; ok {
				resolved[col] = idx
				break
			}
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := resolved[col]; !ok {
			missing = append(missing, col)
		}
	}
	return resolved, missing
}

// cleanHeader lower-cases a header cell and collapses separators to
// underscores ("Last Name" -> "last_name").
func cleanHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = headerCleanRE.ReplaceAllString(h, "_")
	return strings.Trim(h, "_")
}

// sniffDelimiter inspects the first line for tab or semicolon separation;
// comma is the default.
func sniffDelimiter(content string) rune {
	line := content
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		line = content[:i]
	}
	switch {
	case strings.Count(line, "\t") > strings.Count(line, ","):
		return '\t'
	case strings.Count(line, ";") > strings.Count(line, ","):
		return ';'
	}
	return ','
}
