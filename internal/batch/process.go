package batch

import "strings"

// previewRows caps how many parsed records Process echoes back for display.
const previewRows = 10

// Result reports a whole-batch processing attempt. Content is only set
// when the batch validated cleanly; a single bad row rejects everything.
type Result struct {
	Valid       bool       `json:"valid"`
	RecordCount int        `json:"record_count"`
	ErrorCount  int        `json:"error_count"`
	Errors      []RowError `json:"errors,omitempty"`
	Content     string     `json:"content,omitempty"`
	Preview     []Record   `json:"preview,omitempty"`
}

// Process parses, validates, and encodes tabular input in one step.
// Every row must pass validation for any output to be produced.
func Process(content string) Result {
	records, rowErrs := Parse(content)
	if len(rowErrs) > 0 {
		return Result{
			Valid:       false,
			RecordCount: len(records),
			ErrorCount:  len(rowErrs),
			Errors:      rowErrs,
		}
	}

	res := Result{
		Valid:       true,
		RecordCount: len(records),
		Content:     Encode(records),
	}
	if len(records) > previewRows {
		res.Preview = records[:previewRows]
	} else {
		res.Preview = records
	}
	return res
}

// Encode renders validated records as newline-terminated fixed-width lines.
func Encode(records []Record) string {
	var b strings.Builder
	b.Grow(len(records) * (LineLength + 1))
	for _, r := range records {
		b.WriteString(r.EncodeLine())
		b.WriteByte('\n')
	}
	return b.String()
}
