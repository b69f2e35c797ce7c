package automation

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/quillpoint/scraverify/internal/model"
)

// Indicator word lists scanned against the lower-cased result page text.
var (
	coveredIndicators = []string{
		"covered", "protected", "eligible", "active duty",
		"servicemember", "military service confirmed",
	}
	notCoveredIndicators = []string{
		"not covered", "not protected", "not eligible",
		"no coverage", "not found", "no record",
	}
	errorIndicators = []string{
		"error", "failed", "invalid", "unable to verify",
		"timeout", "system error",
	}
)

// Outcome is the classification of a result page.
type Outcome struct {
	Covered         bool
	MatchReasonCode string
	EligibilityType string
	HasError        bool
}

// classify scans the result page text for status indicators. "Not
// covered" phrases contain "covered", so the negative check must win.
func classify(pageText string) Outcome {
	text := strings.ToLower(pageText)

	has := func(indicators []string) bool {
		for _, ind := range indicators {
			if strings.Contains(text, ind) {
				return true
			}
		}
		return false
	}

	isCovered := has(coveredIndicators)
	isNotCovered := has(notCoveredIndicators)
	hasError := has(errorIndicators)

	switch {
	case hasError:
		return Outcome{MatchReasonCode: "SYSTEM_ERROR", EligibilityType: "ERROR", HasError: true}
	case isCovered && !isNotCovered:
		return Outcome{Covered: true, MatchReasonCode: "MATCH_FOUND", EligibilityType: "ACTIVE_DUTY"}
	case isNotCovered:
		return Outcome{MatchReasonCode: "NO_MATCH", EligibilityType: "NOT_COVERED"}
	default:
		return Outcome{MatchReasonCode: "UNKNOWN", EligibilityType: "UNKNOWN"}
	}
}

// buildEligibility renders the outcome in the portal's eligibility shape.
func buildEligibility(o Outcome, person model.Person, transactionID string, now time.Time) json.RawMessage {
	indicator := "N"
	if o.Covered {
		indicator = "Y"
	}
	e := model.Eligibility{
		DateOfInterest:      now.Format("20060102"),
		TransactionID:       transactionID,
		Covered:             o.Covered,
		ActiveDutyCovered:   o.Covered,
		ActiveDutyIndicator: indicator,
		MatchReasonCode:     o.MatchReasonCode,
		EligibilityType:     o.EligibilityType,
	}
	if o.Covered {
		e.ActiveDutyStartDate = person.ActiveDutyDate
	}
	data, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	return data
}
