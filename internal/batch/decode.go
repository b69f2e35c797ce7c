package batch

import (
	"fmt"
	"strings"
)

// DecodeLine parses one fixed-width line back into a Record. Name fields
// come back upper-cased to match the normalized form NewRecord produces.
func DecodeLine(line string) (Record, error) {
	if len(line) != LineLength {
		return Record{}, fmt.Errorf("line must be exactly %d characters, got %d", LineLength, len(line))
	}
	field := func(start, width int) string {
		return strings.TrimSpace(line[start : start+width])
	}
	return Record{
		SSN:            field(ssnStart, ssnWidth),
		DateOfBirth:    field(dobStart, dobWidth),
		LastName:       strings.ToUpper(field(lastNameStart, lastNameWidth)),
		FirstName:      strings.ToUpper(field(firstNameStart, firstNameWidth)),
		ActiveDutyDate: field(dutyDateStart, dutyDateWidth),
		MiddleName:     strings.ToUpper(field(middleStart, middleWidth)),
	}, nil
}

// Decode parses a full fixed-width document, skipping blank lines.
func Decode(content string) ([]Record, error) {
	var records []Record
	for i, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := DecodeLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		rec.RowNumber = i + 1
		records = append(records, rec)
	}
	return records, nil
}
