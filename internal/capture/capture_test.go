package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/quillpoint/scraverify/internal/blob"
	"github.com/quillpoint/scraverify/internal/events"
	"github.com/quillpoint/scraverify/internal/model"
	"github.com/quillpoint/scraverify/internal/store"
)

type fakeBlob struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failures int // fail this many Puts before succeeding
	puts     int
}

func (f *fakeBlob) Put(ctx context.Context, key, contentType string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts++
	if f.failures > 0 {
		f.failures--
		return errors.New("put failed")
	}
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[key] = data
	return nil
}

func (f *fakeBlob) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

func (f *fakeBlob) DeletePrefix(ctx context.Context, prefix string) error { return nil }

var _ blob.Store = (*fakeBlob)(nil)

type fakeStore struct {
	store.Store
	mu        sync.Mutex
	shots     []*model.Screenshot
	insertErr error
}

func (f *fakeStore) InsertScreenshot(ctx context.Context, shot *model.Screenshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	shot.ID = int64(len(f.shots) + 1)
	shot.UploadedAt = time.Now()
	f.shots = append(f.shots, shot)
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCaptureStoresAndPublishes(t *testing.T) {
	blobs := &fakeBlob{}
	st := &fakeStore{}
	pub := &fakePublisher{}
	r := NewRecorder(st, blobs, pub, testLogger())

	r.Capture(context.Background(), "sess-abc123", "logging_in", "Login page", []byte("png-bytes"))

	if len(st.shots) != 1 {
		t.Fatalf("got %d screenshots, want 1", len(st.shots))
	}
	shot := st.shots[0]
	if shot.Filename != "logging_in.png" {
		t.Errorf("filename = %q", shot.Filename)
	}
	if shot.StoragePath != "sessions/sess-abc123/screenshots/logging_in.png" {
		t.Errorf("storage path = %q", shot.StoragePath)
	}
	if shot.FileSize != int64(len("png-bytes")) {
		t.Errorf("file size = %d", shot.FileSize)
	}
	if _, ok := blobs.objects[shot.StoragePath]; !ok {
		t.Error("blob not uploaded")
	}
	if len(pub.topics) != 1 || pub.topics[0] != events.TopicScreenshotInserted {
		t.Errorf("published topics = %v", pub.topics)
	}
}

func TestCaptureOverwritesSameStep(t *testing.T) {
	blobs := &fakeBlob{}
	st := &fakeStore{}
	r := NewRecorder(st, blobs, &fakePublisher{}, testLogger())
	ctx := context.Background()

	r.Capture(ctx, "sess-a", "logging_in", "", []byte("first"))
	r.Capture(ctx, "sess-a", "logging_in", "", []byte("second"))

	if len(st.shots) != 2 {
		t.Fatalf("got %d screenshots, want 2", len(st.shots))
	}
	if st.shots[0].StoragePath != st.shots[1].StoragePath {
		t.Errorf("recapture changed key: %q vs %q", st.shots[0].StoragePath, st.shots[1].StoragePath)
	}
	if blobs.puts != 2 {
		t.Errorf("puts = %d, want 2", blobs.puts)
	}
	if len(blobs.objects) != 1 {
		t.Fatalf("got %d blobs, want 1 (same step must overwrite)", len(blobs.objects))
	}
	if string(blobs.objects[st.shots[1].StoragePath]) != "second" {
		t.Errorf("blob not overwritten with latest capture")
	}
}

func TestCaptureRetriesUpload(t *testing.T) {
	blobs := &fakeBlob{failures: 2}
	st := &fakeStore{}
	r := NewRecorder(st, blobs, &fakePublisher{}, testLogger())

	r.Capture(context.Background(), "sess-abc123", "filling_form", "", []byte("x"))

	if blobs.puts != 3 {
		t.Errorf("puts = %d, want 3 (two failures then success)", blobs.puts)
	}
	if len(st.shots) != 1 {
		t.Fatalf("screenshot not recorded after retry")
	}
}

func TestCaptureSwallowsUploadFailure(t *testing.T) {
	blobs := &fakeBlob{failures: uploadAttempts}
	st := &fakeStore{}
	r := NewRecorder(st, blobs, &fakePublisher{}, testLogger())

	// Must not panic or error; the screenshot is simply lost.
	r.Capture(context.Background(), "sess-abc123", "filling_form", "", []byte("x"))

	if len(st.shots) != 0 {
		t.Errorf("no metadata row should exist after failed upload")
	}
}

func TestCaptureSwallowsInsertFailure(t *testing.T) {
	blobs := &fakeBlob{}
	st := &fakeStore{insertErr: errors.New("db down")}
	pub := &fakePublisher{}
	r := NewRecorder(st, blobs, pub, testLogger())

	r.Capture(context.Background(), "sess-abc123", "filling_form", "", []byte("x"))

	if len(pub.topics) != 0 {
		t.Errorf("no event should be published when insert fails")
	}
}

func TestCaptureSkipsEmptyImage(t *testing.T) {
	blobs := &fakeBlob{}
	st := &fakeStore{}
	r := NewRecorder(st, blobs, &fakePublisher{}, testLogger())

	r.Capture(context.Background(), "sess-abc123", "initializing", "", nil)

	if blobs.puts != 0 || len(st.shots) != 0 {
		t.Error("empty image must not be uploaded")
	}
}

func TestStoreCertificate(t *testing.T) {
	blobs := &fakeBlob{}
	r := NewRecorder(&fakeStore{}, blobs, &fakePublisher{}, testLogger())

	path, err := r.StoreCertificate(context.Background(), "sess-abc123", []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("StoreCertificate: %v", err)
	}
	if path != "sessions/sess-abc123/pdfs/certificate.pdf" {
		t.Errorf("path = %q", path)
	}
	if _, ok := blobs.objects[path]; !ok {
		t.Error("certificate not uploaded")
	}
}

func TestStoreCertificateEmpty(t *testing.T) {
	r := NewRecorder(&fakeStore{}, &fakeBlob{}, &fakePublisher{}, testLogger())
	if _, err := r.StoreCertificate(context.Background(), "sess-abc123", nil); err == nil {
		t.Fatal("expected error for empty certificate")
	}
}

