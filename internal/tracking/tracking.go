// Package tracking follows live verification sessions for clients: an
// initial snapshot of session state layered with deltas from the event
// bus. One watch exists per session; starting a new one tears down the
// old watch first.
package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/quillpoint/scraverify/internal/events"
	"github.com/quillpoint/scraverify/internal/model"
	"github.com/quillpoint/scraverify/internal/store"
)

// View is the merged state of one watched session.
type View struct {
	Session     *model.Session      `json:"session"`
	Screenshots []*model.Screenshot `json:"screenshots"`
}

// Update is one change notification. Err is soft: the watch stays alive
// and later updates may still arrive.
type Update struct {
	View *View
	Err  error
}

// Snapshotter fetches the full current state of a session.
type Snapshotter interface {
	Snapshot(ctx context.Context, sessionID string) (*View, error)
}

// StoreSnapshotter reads snapshots straight from the store.
type StoreSnapshotter struct {
	Store store.Store
}

func (s *StoreSnapshotter) Snapshot(ctx context.Context, sessionID string) (*View, error) {
	session, err := s.Store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	shots, err := s.Store.ListScreenshots(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &View{Session: session, Screenshots: shots}, nil
}

// Tracker manages session watches.
type Tracker struct {
	sub    events.Subscriber
	snap   Snapshotter
	logger *slog.Logger

	mu      sync.Mutex
	watches map[string]*watch
}

type watch struct {
	sessionID string
	cancelSub func()
	updates   chan Update
	stop      chan struct{}
	stopOnce  sync.Once

	mu   sync.Mutex
	view View
}

func New(sub events.Subscriber, snap Snapshotter, logger *slog.Logger) *Tracker {
	return &Tracker{
		sub:     sub,
		snap:    snap,
		logger:  logger,
		watches: make(map[string]*watch),
	}
}

// Start begins watching a session. Any existing watch for the same
// session is stopped first, so the returned channel is the only live
// feed. The first Update on the channel is the initial snapshot.
func (t *Tracker) Start(ctx context.Context, sessionID string) (<-chan Update, error) {
	t.Stop(sessionID)

	ch, cancelSub, err := t.sub.Subscribe("scra.>")
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	snap, err := t.snap.Snapshot(ctx, sessionID)
	if err != nil {
		cancelSub()
		return nil, fmt.Errorf("snapshot %s: %w", sessionID, err)
	}

	w := &watch{
		sessionID: sessionID,
		cancelSub: cancelSub,
		updates:   make(chan Update, 16),
		stop:      make(chan struct{}),
		view:      *snap,
	}

	t.mu.Lock()
	t.watches[sessionID] = w
	t.mu.Unlock()

	w.send(Update{View: w.snapshot()})
	go t.loop(ctx, w, ch)

	return w.updates, nil
}

// Stop tears down the watch for a session, closing its update channel.
func (t *Tracker) Stop(sessionID string) {
	t.mu.Lock()
	w, ok := t.watches[sessionID]
	if ok {
		delete(t.watches, sessionID)
	}
	t.mu.Unlock()
	if ok {
		w.shutdown()
	}
}

// View returns the current merged view of a watched session.
func (t *Tracker) View(sessionID string) (*View, bool) {
	t.mu.Lock()
	w, ok := t.watches[sessionID]
	t.mu.Unlock()
	if !ok {
		return nil, false
	}
	return w.snapshot(), true
}

func (t *Tracker) loop(ctx context.Context, w *watch, ch <-chan []byte) {
	defer w.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case raw, ok := <-ch:
			if !ok {
				return
			}
			t.apply(w, raw)
		}
	}
}

// envelope is the union of event payload shapes the watch cares about.
type envelope struct {
	Session    *model.Session    `json:"session"`
	Screenshot *model.Screenshot `json:"screenshot"`
}

func (t *Tracker) apply(w *watch, raw []byte) {
	var ev envelope
	if err := json.Unmarshal(raw, &ev); err != nil {
		// A malformed event is reported but never kills the watch.
		w.send(Update{Err: fmt.Errorf("decode event: %w", err)})
		return
	}

	w.mu.Lock()
	changed := false
	if ev.Session != nil && ev.Session.SessionID == w.sessionID {
		w.view.Session = ev.Session
		changed = true
	}
	if ev.Screenshot != nil && ev.Screenshot.SessionID == w.sessionID {
		w.mergeScreenshot(ev.Screenshot)
		changed = true
	}
	w.mu.Unlock()

	if changed {
		w.send(Update{View: w.snapshot()})
	}
}

// mergeScreenshot layers a screenshot delta: replace by ID when already
// known, append otherwise, keep upload order. Caller holds w.mu.
func (w *watch) mergeScreenshot(shot *model.Screenshot) {
	replaced := false
	for i, existing := range w.view.Screenshots {
		if existing.ID == shot.ID {
			w.view.Screenshots[i] = shot
			replaced = true
			break
		}
	}
	if !replaced {
		w.view.Screenshots = append(w.view.Screenshots, shot)
	}
	sort.SliceStable(w.view.Screenshots, func(i, j int) bool {
		a, b := w.view.Screenshots[i], w.view.Screenshots[j]
		if !a.UploadedAt.Equal(b.UploadedAt) {
			return a.UploadedAt.Before(b.UploadedAt)
		}
		return a.ID < b.ID
	})
}

// snapshot copies the merged view so consumers never share slices with
// the watch goroutine.
func (w *watch) snapshot() *View {
	w.mu.Lock()
	defer w.mu.Unlock()
	shots := make([]*model.Screenshot, len(w.view.Screenshots))
	copy(shots, w.view.Screenshots)
	return &View{Session: w.view.Session, Screenshots: shots}
}

func (w *watch) send(u Update) {
	select {
	case w.updates <- u:
	default:
		// Drop when the consumer lags; the next update carries the
		// full merged view anyway.
	}
}

func (w *watch) shutdown() {
	w.stopOnce.Do(func() {
		close(w.stop)
		w.cancelSub()
		close(w.updates)
	})
}
