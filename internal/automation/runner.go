package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/quillpoint/scraverify/internal/capture"
	"github.com/quillpoint/scraverify/internal/events"
	"github.com/quillpoint/scraverify/internal/model"
	"github.com/quillpoint/scraverify/internal/portal"
	"github.com/quillpoint/scraverify/internal/store"
)

// stepRetries is how many times a non-fatal step is retried in place
// before the run fails; the pause between attempts doubles each time.
const (
	stepRetries = 2
	stepBackoff = 500 * time.Millisecond
)

// Credentials authenticate the automation against the portal.
type Credentials struct {
	Username string
	Password string
}

// Runner executes one verification against a portal target. It owns the
// session's progress reporting, checkpoint captures, and finalization;
// whatever happens mid-run, the session always ends terminal.
type Runner struct {
	store      store.Store
	recorder   *capture.Recorder
	pub        events.Publisher
	strategies portal.StrategySet
	creds      Credentials
	logger     *slog.Logger

	stepTimeout time.Duration
	backoff     time.Duration
	now         func() time.Time
}

func NewRunner(st store.Store, rec *capture.Recorder, pub events.Publisher, strategies portal.StrategySet, creds Credentials, stepTimeout time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		store:       st,
		recorder:    rec,
		pub:         pub,
		strategies:  strategies,
		creds:       creds,
		logger:      logger,
		stepTimeout: stepTimeout,
		backoff:     stepBackoff,
		now:         time.Now,
	}
}

// Batch is a pre-encoded fixed-width request file submitted through the
// portal's multiple-record page.
type Batch struct {
	Content     string
	Filename    string
	RecordCount int
}

// Run drives a session start to finish and returns the structured result.
// The session row is guaranteed terminal on return.
func (r *Runner) Run(ctx context.Context, sessionID string, person model.Person, target portal.Target) *model.Result {
	res := &model.Result{Method: "browser", Timestamp: r.now()}

	runErr := r.drive(ctx, sessionID, person, target, res)
	if runErr != nil {
		res.Success = false
		res.Error = runErr.Error()
		r.logger.Error("verification failed", "session_id", sessionID, "error", runErr)
	} else {
		res.Success = true
	}

	formData, _ := json.Marshal(person)
	r.finalize(ctx, sessionID, formData, res)
	return res
}

// RunBatch uploads a fixed-width batch file through the portal and
// captures the combined result certificate. Same terminal guarantee as
// Run.
func (r *Runner) RunBatch(ctx context.Context, sessionID string, b Batch, target portal.Target) *model.Result {
	res := &model.Result{Method: "browser_batch", Timestamp: r.now()}

	runErr := r.driveBatch(ctx, sessionID, b, target, res)
	if runErr != nil {
		res.Success = false
		res.Error = runErr.Error()
		r.logger.Error("batch verification failed", "session_id", sessionID, "error", runErr)
	} else {
		res.Success = true
	}

	formData, _ := json.Marshal(map[string]any{
		"type":         "batch",
		"filename":     b.Filename,
		"record_count": b.RecordCount,
	})
	r.finalize(ctx, sessionID, formData, res)
	return res
}

func (r *Runner) drive(ctx context.Context, sessionID string, person model.Person, target portal.Target, res *model.Result) error {
	r.progress(ctx, sessionID, StepInitializing)
	r.checkpoint(ctx, sessionID, target, StepInitializing, "Browser session ready")

	r.progress(ctx, sessionID, StepNavigatingToLogin)
	if err := r.retryStep(ctx, func(c context.Context) error {
		return target.Navigate(c, r.strategies.LoginURL)
	}); err != nil {
		return fmt.Errorf("navigate to login: %w", err)
	}
	r.dismissOverlays(ctx, target)
	r.checkpoint(ctx, sessionID, target, StepNavigatingToLogin, "Login page loaded")

	r.progress(ctx, sessionID, StepLoggingIn)
	if err := r.login(ctx, target); err != nil {
		return err
	}
	r.checkpoint(ctx, sessionID, target, StepLoggingIn, "Authenticated")

	r.progress(ctx, sessionID, StepNavigatingToForm)
	if err := r.retryStep(ctx, func(c context.Context) error {
		return target.Navigate(c, r.strategies.FormURL)
	}); err != nil {
		return fmt.Errorf("navigate to form: %w", err)
	}
	r.dismissOverlays(ctx, target)
	r.checkpoint(ctx, sessionID, target, StepNavigatingToForm, "Single record form")

	r.progress(ctx, sessionID, StepFillingForm)
	if err := r.retryStep(ctx, func(c context.Context) error {
		return r.fillForm(c, target, person)
	}); err != nil {
		return fmt.Errorf("fill form: %w", err)
	}
	r.checkpoint(ctx, sessionID, target, StepFillingForm, "Form populated")

	r.progress(ctx, sessionID, StepSubmittingForm)
	if err := r.retryStep(ctx, func(c context.Context) error {
		_, err := portal.ClickAny(c, target, r.strategies.Submit)
		return err
	}); err != nil {
		return fmt.Errorf("submit form: %w", err)
	}
	r.checkpoint(ctx, sessionID, target, StepSubmittingForm, "Form submitted")

	r.progress(ctx, sessionID, StepDownloadingResults)
	if err := r.captureResults(ctx, sessionID, person, target, res); err != nil {
		return fmt.Errorf("capture results: %w", err)
	}
	r.checkpoint(ctx, sessionID, target, StepDownloadingResults, "Results captured")

	return nil
}

func (r *Runner) driveBatch(ctx context.Context, sessionID string, b Batch, target portal.Target, res *model.Result) error {
	r.progress(ctx, sessionID, StepInitializing)
	r.checkpoint(ctx, sessionID, target, StepInitializing, "Browser session ready")

	r.progress(ctx, sessionID, StepNavigatingToLogin)
	if err := r.retryStep(ctx, func(c context.Context) error {
		return target.Navigate(c, r.strategies.LoginURL)
	}); err != nil {
		return fmt.Errorf("navigate to login: %w", err)
	}
	r.dismissOverlays(ctx, target)
	r.checkpoint(ctx, sessionID, target, StepNavigatingToLogin, "Login page loaded")

	r.progress(ctx, sessionID, StepLoggingIn)
	if err := r.login(ctx, target); err != nil {
		return err
	}
	r.checkpoint(ctx, sessionID, target, StepLoggingIn, "Authenticated")

	r.progress(ctx, sessionID, StepNavigatingToBatch)
	if err := r.retryStep(ctx, func(c context.Context) error {
		return target.Navigate(c, r.strategies.BatchURL)
	}); err != nil {
		return fmt.Errorf("navigate to batch page: %w", err)
	}
	r.dismissOverlays(ctx, target)
	r.checkpoint(ctx, sessionID, target, StepNavigatingToBatch, "Multiple record page")

	r.progress(ctx, sessionID, StepUploadingBatch)
	if err := r.retryStep(ctx, func(c context.Context) error {
		_, err := portal.UploadAny(c, target, r.strategies.BatchFile, b.Filename, []byte(b.Content))
		return err
	}); err != nil {
		return fmt.Errorf("upload batch file: %w", err)
	}
	r.checkpoint(ctx, sessionID, target, StepUploadingBatch, "Batch file attached")

	r.progress(ctx, sessionID, StepSubmittingForm)
	if err := r.retryStep(ctx, func(c context.Context) error {
		_, err := portal.ClickAny(c, target, r.strategies.BatchSubmit)
		return err
	}); err != nil {
		return fmt.Errorf("submit batch: %w", err)
	}
	r.checkpoint(ctx, sessionID, target, StepSubmittingForm, "Batch submitted")

	r.progress(ctx, sessionID, StepDownloadingResults)
	if err := r.captureBatchResults(ctx, sessionID, b, target, res); err != nil {
		return fmt.Errorf("capture results: %w", err)
	}
	r.checkpoint(ctx, sessionID, target, StepDownloadingResults, "Results captured")

	return nil
}

// login is the one step never retried: a second attempt with rejected
// credentials risks locking the portal account.
func (r *Runner) login(ctx context.Context, target portal.Target) error {
	stepCtx, cancel := r.stepContext(ctx)
	defer cancel()

	if _, err := portal.FillAny(stepCtx, target, r.strategies.Username, r.creds.Username); err != nil {
		return fmt.Errorf("username field: %w", err)
	}
	if _, err := portal.FillAny(stepCtx, target, r.strategies.Password, r.creds.Password); err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	if _, err := portal.ClickAny(stepCtx, target, r.strategies.LoginButton); err != nil {
		return fmt.Errorf("login button: %w", err)
	}

	for _, sel := range r.strategies.LoggedIn {
		if err := target.WaitVisible(stepCtx, sel); err == nil {
			return nil
		}
	}
	return portal.ErrAuthFailed
}

func (r *Runner) fillForm(ctx context.Context, target portal.Target, person model.Person) error {
	if person.SSN != "" {
		if _, err := portal.FillAny(ctx, target, r.strategies.SSN, person.SSN); err != nil {
			return err
		}
	}
	if _, err := portal.FillAny(ctx, target, r.strategies.LastName, person.LastName); err != nil {
		return err
	}
	if _, err := portal.FillAny(ctx, target, r.strategies.FirstName, person.FirstName); err != nil {
		return err
	}
	if person.MiddleName != "" {
		if _, err := portal.FillAny(ctx, target, r.strategies.MiddleName, person.MiddleName); err != nil {
			return err
		}
	}
	if person.DateOfBirth != "" {
		if _, err := portal.FillAny(ctx, target, r.strategies.BirthDate, model.FormatDateSlash(person.DateOfBirth)); err != nil {
			return err
		}
	}
	if _, err := portal.FillAny(ctx, target, r.strategies.DutyDate, model.FormatDateSlash(person.ActiveDutyDate)); err != nil {
		return err
	}
	// Terms-of-use checkbox; some portal revisions pre-check it.
	if _, err := portal.ClickAny(ctx, target, r.strategies.Agreement); err != nil {
		r.logger.Debug("agreement checkbox not found, continuing")
	}
	return nil
}

func (r *Runner) captureResults(ctx context.Context, sessionID string, person model.Person, target portal.Target, res *model.Result) error {
	stepCtx, cancel := r.stepContext(ctx)
	defer cancel()

	text, err := target.Text(stepCtx)
	if err != nil {
		return fmt.Errorf("read result page: %w", err)
	}

	outcome := classify(text)
	now := r.now()
	res.TransactionID = fmt.Sprintf("SCRA_%s", now.Format("20060102_150405"))
	res.Person = &person
	res.Eligibility = buildEligibility(outcome, person, res.TransactionID, now)

	if url, err := target.URL(stepCtx); err == nil {
		res.PageURL = url
	}

	// Certificate PDF is best-effort; the eligibility answer stands
	// without it.
	if pdf, err := target.PDF(stepCtx); err == nil {
		if path, err := r.recorder.StoreCertificate(ctx, sessionID, pdf); err == nil {
			res.Certificate = path
		} else {
			r.logger.Warn("certificate store failed", "session_id", sessionID, "error", err)
		}
	} else {
		r.logger.Warn("certificate render failed", "session_id", sessionID, "error", err)
	}

	if outcome.HasError {
		return fmt.Errorf("portal reported an error result")
	}
	return nil
}

// captureBatchResults records the combined certificate for a batch run.
// Per-record answers live inside the PDF the portal renders; there is no
// single eligibility to classify, only a page-level error check.
func (r *Runner) captureBatchResults(ctx context.Context, sessionID string, b Batch, target portal.Target, res *model.Result) error {
	stepCtx, cancel := r.stepContext(ctx)
	defer cancel()

	text, err := target.Text(stepCtx)
	if err != nil {
		return fmt.Errorf("read result page: %w", err)
	}
	outcome := classify(text)

	now := r.now()
	res.TransactionID = fmt.Sprintf("SCRA_%s", now.Format("20060102_150405"))
	res.RecordCount = b.RecordCount

	if url, err := target.URL(stepCtx); err == nil {
		res.PageURL = url
	}

	if pdf, err := target.PDF(stepCtx); err == nil {
		if path, err := r.recorder.StoreCertificate(ctx, sessionID, pdf); err == nil {
			res.Certificate = path
		} else {
			r.logger.Warn("certificate store failed", "session_id", sessionID, "error", err)
		}
	} else {
		r.logger.Warn("certificate render failed", "session_id", sessionID, "error", err)
	}

	if outcome.HasError {
		return fmt.Errorf("portal reported an error result")
	}
	return nil
}

// finalize moves the session to its terminal state, writes the audit
// record, and emits the closing events. Runs regardless of how the drive
// phase ended.
func (r *Runner) finalize(ctx context.Context, sessionID string, formData []byte, res *model.Result) {
	status := model.StatusCompleted
	step := StepCompleted
	progress := 100
	if !res.Success {
		status = model.StatusFailed
		step = "failed"
		progress = 0 // keep whatever progress the run reached
	}

	session, err := r.store.UpdateSessionProgress(ctx, sessionID, status, progress, step, res.Error)
	if err != nil {
		r.logger.Error("session finalize failed", "session_id", sessionID, "error", err)
	} else if err := r.pub.Publish(ctx, events.TopicSessionUpdated, events.SessionUpdated{
		Session: session,
		Changes: map[string]any{"status": string(status)},
	}); err != nil {
		r.logger.Warn("session event publish failed", "session_id", sessionID, "error", err)
	}

	resultJSON, err := json.Marshal(res)
	if err != nil {
		r.logger.Error("result marshal failed", "session_id", sessionID, "error", err)
		resultJSON = []byte(`{}`)
	}
	userID := ""
	if session != nil {
		userID = session.UserID
	}
	rec := &model.VerificationRecord{
		SessionID: sessionID,
		UserID:    userID,
		FormData:  formData,
		Result:    resultJSON,
		Status:    status,
	}
	if err := r.store.CreateRecord(ctx, rec); err != nil {
		r.logger.Error("record create failed", "session_id", sessionID, "error", err)
	} else if err := r.pub.Publish(ctx, events.TopicRecordCreated, events.RecordCreated{Record: rec}); err != nil {
		r.logger.Warn("record event publish failed", "session_id", sessionID, "error", err)
	}
}

// progress reports a step transition to the store and the event bus.
// Reporting failures never abort the run.
func (r *Runner) progress(ctx context.Context, sessionID, step string) {
	session, err := r.store.UpdateSessionProgress(ctx, sessionID, model.StatusInProgress, ProgressFor(step), step, "")
	if err != nil {
		r.logger.Warn("progress update failed", "session_id", sessionID, "step", step, "error", err)
		return
	}
	if err := r.pub.Publish(ctx, events.TopicSessionUpdated, events.SessionUpdated{
		Session: session,
		Changes: map[string]any{"current_step": step, "progress": ProgressFor(step)},
	}); err != nil {
		r.logger.Warn("session event publish failed", "session_id", sessionID, "error", err)
	}
}

// checkpoint grabs a screenshot for the step; failures are swallowed by
// the recorder.
func (r *Runner) checkpoint(ctx context.Context, sessionID string, target portal.Target, step, description string) {
	stepCtx, cancel := r.stepContext(ctx)
	defer cancel()
	img, err := target.Screenshot(stepCtx)
	if err != nil {
		r.logger.Warn("screenshot failed", "session_id", sessionID, "step", step, "error", err)
		return
	}
	r.recorder.Capture(ctx, sessionID, step, description, img)
}

// dismissOverlays clears consent modals and tour popups; absence of any
// overlay is the normal case.
func (r *Runner) dismissOverlays(ctx context.Context, target portal.Target) {
	stepCtx, cancel := r.stepContext(ctx)
	defer cancel()
	if _, err := portal.ClickAny(stepCtx, target, r.strategies.AcceptModal); err == nil {
		return
	}
	_, _ = portal.ClickAny(stepCtx, target, r.strategies.Dismiss)
}

// retryStep runs fn with the step timeout, retrying in place unless the
// failure is fatal. The portal tolerates re-driving a step after a short
// pause far better than an immediate hammer, so attempts back off.
func (r *Runner) retryStep(ctx context.Context, fn func(context.Context) error) error {
	var last error
	wait := r.backoff
	for attempt := 0; attempt <= stepRetries; attempt++ {
		stepCtx, cancel := r.stepContext(ctx)
		last = fn(stepCtx)
		cancel()
		if last == nil {
			return nil
		}
		if errors.Is(last, portal.ErrAuthFailed) || ctx.Err() != nil {
			return last
		}
		if attempt == stepRetries {
			break
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
		wait *= 2
	}
	return last
}

func (r *Runner) stepContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.stepTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.stepTimeout)
}
