// Package automation drives a verification session through the portal:
// login, form entry, submission, and result capture, with checkpoint
// screenshots at every step.
package automation

// State tracks how far a run has progressed. Transitions are strictly
// forward; a failure from any state moves to StateFailed.
type State int

const (
	StateStart State = iota
	StateAgreementAccepted
	StateAuthenticated
	StateFormNavigated
	StateDataEntered
	StateSubmitted
	StateResultCaptured
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStart:
		return "start"
	case StateAgreementAccepted:
		return "agreement_accepted"
	case StateAuthenticated:
		return "authenticated"
	case StateFormNavigated:
		return "form_navigated"
	case StateDataEntered:
		return "data_entered"
	case StateSubmitted:
		return "submitted"
	case StateResultCaptured:
		return "result_captured"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Step names and their progress percentages, reported to session viewers.
const (
	StepInitializing       = "initializing"
	StepNavigatingToLogin  = "navigating_to_login"
	StepLoggingIn          = "logging_in"
	StepNavigatingToForm   = "navigating_to_form"
	StepNavigatingToBatch  = "navigating_to_batch"
	StepFillingForm        = "filling_form"
	StepUploadingBatch     = "uploading_batch"
	StepSubmittingForm     = "submitting_form"
	StepDownloadingResults = "downloading_results"
	StepCompleted          = "completed"
)

// stepProgress maps each step to the percentage shown while it runs.
// Progress only ever moves forward; the store enforces monotonicity.
var stepProgress = map[string]int{
	StepInitializing:       5,
	StepNavigatingToLogin:  10,
	StepLoggingIn:          20,
	StepNavigatingToForm:   30,
	StepNavigatingToBatch:  30,
	StepFillingForm:        60,
	StepUploadingBatch:     60,
	StepSubmittingForm:     80,
	StepDownloadingResults: 90,
	StepCompleted:          100,
}

// ProgressFor returns the progress percentage for a step name.
func ProgressFor(step string) int {
	return stepProgress[step]
}
