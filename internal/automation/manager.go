package automation

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/quillpoint/scraverify/internal/model"
	"github.com/quillpoint/scraverify/internal/portal"
)

// ErrSessionActive is returned when a verification is already running for
// the session.
var ErrSessionActive = errors.New("session already has an active verification")

// ErrTooManySessions is returned when starting a run would exceed the
// concurrent session cap.
var ErrTooManySessions = errors.New("too many active verifications")

// TargetFactory creates a fresh browser target for one run.
type TargetFactory func(ctx context.Context) (portal.Target, error)

// Manager serializes verification runs per session and owns their
// lifecycle: one browser target per run, created on demand and always
// closed.
type Manager struct {
	runner         *Runner
	newTarget      TargetFactory
	sessionTimeout time.Duration
	maxSessions    int
	logger         *slog.Logger

	mu     sync.Mutex
	active map[string]struct{}
	wg     sync.WaitGroup
}

// NewManager creates a run manager. maxSessions caps concurrent runs;
// zero means unlimited.
func NewManager(runner *Runner, newTarget TargetFactory, sessionTimeout time.Duration, maxSessions int, logger *slog.Logger) *Manager {
	return &Manager{
		runner:         runner,
		newTarget:      newTarget,
		sessionTimeout: sessionTimeout,
		maxSessions:    maxSessions,
		logger:         logger,
		active:         make(map[string]struct{}),
	}
}

// Start launches a verification run for the session in the background.
// A second Start for the same session while one is running returns
// ErrSessionActive; exceeding the concurrency cap returns
// ErrTooManySessions.
func (m *Manager) Start(sessionID string, person model.Person) error {
	formData, _ := json.Marshal(person)
	return m.launch(sessionID, "browser", formData, func(ctx context.Context, target portal.Target) {
		m.runner.Run(ctx, sessionID, person, target)
	})
}

// StartBatch launches a batch verification run. Same dedup and cap rules
// as Start.
func (m *Manager) StartBatch(sessionID string, b Batch) error {
	formData, _ := json.Marshal(map[string]any{
		"type":         "batch",
		"filename":     b.Filename,
		"record_count": b.RecordCount,
	})
	return m.launch(sessionID, "browser_batch", formData, func(ctx context.Context, target portal.Target) {
		m.runner.RunBatch(ctx, sessionID, b, target)
	})
}

func (m *Manager) launch(sessionID, method string, formData []byte, run func(context.Context, portal.Target)) error {
	m.mu.Lock()
	if _, running := m.active[sessionID]; running {
		m.mu.Unlock()
		return ErrSessionActive
	}
	if m.maxSessions > 0 && len(m.active) >= m.maxSessions {
		m.mu.Unlock()
		return ErrTooManySessions
	}
	m.active[sessionID] = struct{}{}
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			m.mu.Lock()
			delete(m.active, sessionID)
			m.mu.Unlock()
		}()
		m.run(sessionID, method, formData, run)
	}()
	return nil
}

func (m *Manager) run(sessionID, method string, formData []byte, run func(context.Context, portal.Target)) {
	ctx, cancel := context.WithTimeout(context.Background(), m.sessionTimeout)
	defer cancel()

	target, err := m.newTarget(ctx)
	if err != nil {
		m.logger.Error("browser start failed", "session_id", sessionID, "error", err)
		res := &model.Result{Method: method, Error: "browser start failed: " + err.Error(), Timestamp: time.Now()}
		m.runner.finalize(ctx, sessionID, formData, res)
		return
	}
	defer func() {
		if err := target.Close(); err != nil {
			m.logger.Warn("browser close failed", "session_id", sessionID, "error", err)
		}
	}()

	run(ctx, target)
}

// Active reports whether a verification is currently running for the session.
func (m *Manager) Active(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, running := m.active[sessionID]
	return running
}

// Wait blocks until every in-flight run has finished. Used on shutdown.
func (m *Manager) Wait() {
	m.wg.Wait()
}
