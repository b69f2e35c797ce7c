package server

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/quillpoint/scraverify/internal/automation"
	"github.com/quillpoint/scraverify/internal/cache"
	"github.com/quillpoint/scraverify/internal/events"
	"github.com/quillpoint/scraverify/internal/model"
	"github.com/quillpoint/scraverify/internal/store"
)

type mockStore struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
	shots    map[string][]*model.Screenshot
	records  map[int64]*model.VerificationRecord
	nextID   int64
	// listErr fails ListSessions and ListRecords when set.
	listErr error
	// listCalls counts ListRecords reads so caching is observable.
	listCalls int
}

func newMockStore() *mockStore {
	return &mockStore{
		sessions: make(map[string]*model.Session),
		shots:    make(map[string][]*model.Screenshot),
		records:  make(map[int64]*model.VerificationRecord),
	}
}

func (m *mockStore) CreateSession(_ context.Context, s *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.SessionID] = s
	return nil
}

func (m *mockStore) GetSession(_ context.Context, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (m *mockStore) ListSessions(_ context.Context, filter model.SessionFilter) ([]*model.Session, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var result []*model.Session
	for _, s := range m.sessions {
		if filter.UserID != "" && s.UserID != filter.UserID {
			continue
		}
		if len(filter.Status) > 0 {
			found := false
			for _, st := range filter.Status {
				if s.Status == st {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].SessionID < result[j].SessionID })
	return result, len(result), nil
}

func (m *mockStore) UpdateSessionProgress(_ context.Context, id string, status model.Status, progress int, step, errorMessage string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !s.Status.IsTerminal() {
		s.Status = status
		if progress > s.Progress {
			s.Progress = progress
		}
		s.CurrentStep = step
		if errorMessage != "" {
			s.ErrorMessage = errorMessage
		}
	}
	clone := *s
	return &clone, nil
}

func (m *mockStore) InsertScreenshot(_ context.Context, shot *model.Screenshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	shot.ID = m.nextID
	m.shots[shot.SessionID] = append(m.shots[shot.SessionID], shot)
	return nil
}

func (m *mockStore) ListScreenshots(_ context.Context, sessionID string) ([]*model.Screenshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shots[sessionID], nil
}

func (m *mockStore) CreateRecord(_ context.Context, rec *model.VerificationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	rec.ID = m.nextID
	m.records[rec.ID] = rec
	return nil
}

func (m *mockStore) GetRecord(_ context.Context, id int64) (*model.VerificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return rec, nil
}

func (m *mockStore) ListRecords(_ context.Context, filter model.RecordFilter) ([]*model.VerificationRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	var result []*model.VerificationRecord
	for _, rec := range m.records {
		if filter.UserID != "" && rec.UserID != filter.UserID {
			continue
		}
		if filter.SessionID != "" && rec.SessionID != filter.SessionID {
			continue
		}
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, len(result), nil
}

func (m *mockStore) DeleteRecord(_ context.Context, id int64, userID string) (*model.VerificationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if userID != "" && rec.UserID != userID {
		return nil, store.ErrNotFound
	}
	delete(m.records, id)
	return rec, nil
}

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error { return nil }

// mockBlob counts signing calls so cache behavior is observable.
type mockBlob struct {
	mu       sync.Mutex
	signs    int
	deleted  []string
	signErr  error
	putCalls int
}

func (b *mockBlob) Put(_ context.Context, key, contentType string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.putCalls++
	return nil
}

func (b *mockBlob) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.signErr != nil {
		return "", b.signErr
	}
	b.signs++
	return fmt.Sprintf("https://signed.example/%s?n=%d", key, b.signs), nil
}

func (b *mockBlob) DeletePrefix(_ context.Context, prefix string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deleted = append(b.deleted, prefix)
	return nil
}

func (b *mockBlob) signCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.signs
}

func (b *mockBlob) deletedPrefixes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deleted...)
}

// mockLauncher records launched sessions without running anything.
type mockLauncher struct {
	mu       sync.Mutex
	started  []string
	batches  []automation.Batch
	startErr error
	active   map[string]bool
}

func (l *mockLauncher) Start(sessionID string, _ model.Person) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.startErr != nil {
		return l.startErr
	}
	l.started = append(l.started, sessionID)
	return nil
}

func (l *mockLauncher) StartBatch(sessionID string, b automation.Batch) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.startErr != nil {
		return l.startErr
	}
	l.started = append(l.started, sessionID)
	l.batches = append(l.batches, b)
	return nil
}

func (l *mockLauncher) Active(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active[sessionID]
}

func (l *mockLauncher) startedSessions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.started...)
}

// newTestServer builds a VerifyServer over in-memory fakes.
func newTestServer() (*VerifyServer, *mockStore, *mockBlob, *mockLauncher, http.Handler) {
	st := newMockStore()
	blobs := &mockBlob{}
	launcher := &mockLauncher{active: make(map[string]bool)}
	srv := NewVerifyServer(st, &events.NoopPublisher{}, blobs, cache.New(45*time.Minute), launcher, time.Hour)
	return srv, st, blobs, launcher, srv.NewHTTPHandler("")
}
