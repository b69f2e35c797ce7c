package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/quillpoint/scraverify/internal/events"
	"github.com/quillpoint/scraverify/internal/model"
)

func TestSSEHub_BroadcastAndReceive(t *testing.T) {
	hub := newSSEHub()

	client := hub.subscribe(nil) // all topics
	defer hub.unsubscribe(client)

	hub.broadcast("scra.session.updated", []byte(`{"session_id":"sess-1"}`))

	select {
	case evt := <-client.ch:
		if evt.Topic != "scra.session.updated" {
			t.Fatalf("expected topic=%q, got %q", "scra.session.updated", evt.Topic)
		}
		if string(evt.Data) != `{"session_id":"sess-1"}` {
			t.Fatalf("unexpected data %q", string(evt.Data))
		}
		if evt.ID != 1 {
			t.Fatalf("expected id=1, got %d", evt.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSSEHub_TopicFiltering(t *testing.T) {
	hub := newSSEHub()

	// Client only wants session events.
	client := hub.subscribe([]string{"scra.session.*"})
	defer hub.unsubscribe(client)

	hub.broadcast("scra.screenshot.inserted", []byte(`{}`))
	hub.broadcast("scra.session.updated", []byte(`{}`))

	select {
	case evt := <-client.ch:
		if evt.Topic != "scra.session.updated" {
			t.Fatalf("expected session event, got %q", evt.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	select {
	case evt := <-client.ch:
		t.Fatalf("unexpected event: topic=%q", evt.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHub_Unsubscribe(t *testing.T) {
	hub := newSSEHub()

	client := hub.subscribe(nil)
	hub.unsubscribe(client)

	hub.broadcast("scra.session.created", []byte(`{}`))

	select {
	case <-client.ch:
		t.Fatal("should not receive events after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHub_EventsSince(t *testing.T) {
	hub := newSSEHub()

	for range 5 {
		hub.broadcast("scra.session.updated", []byte(`{}`))
	}

	evts := hub.eventsSince(2)
	if len(evts) != 3 {
		t.Fatalf("expected 3 events, got %d", len(evts))
	}
	if evts[0].ID != 3 || evts[1].ID != 4 || evts[2].ID != 5 {
		t.Fatalf("expected IDs [3,4,5], got [%d,%d,%d]", evts[0].ID, evts[1].ID, evts[2].ID)
	}
}

func TestSSEHub_RingBufferWrap(t *testing.T) {
	hub := newSSEHub()

	for range sseRingBufferSize + 100 {
		hub.broadcast("scra.session.updated", []byte(`{}`))
	}

	evts := hub.eventsSince(0)
	if len(evts) != sseRingBufferSize {
		t.Fatalf("expected %d events, got %d", sseRingBufferSize, len(evts))
	}
	if evts[0].ID != 101 {
		t.Fatalf("expected oldest event ID=101, got %d", evts[0].ID)
	}
}

func TestMatchTopicPattern(t *testing.T) {
	for _, tc := range []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"scra.session.updated", "scra.session.updated", true},
		{"scra.session.updated", "scra.session.created", false},
		{"scra.session.*", "scra.session.updated", true},
		{"scra.session.*", "scra.screenshot.inserted", false},
		{"scra.>", "scra.session.updated", true},
		{"scra.>", "scra.record.deleted", true},
		{"scra.>", "other.topic", false},
		{"*.*.*", "scra.session.updated", true},
		{"*.*.*", "scra.session", false},
	} {
		t.Run(tc.pattern+"_"+tc.topic, func(t *testing.T) {
			got := matchTopicPattern(tc.pattern, tc.topic)
			if got != tc.want {
				t.Fatalf("matchTopicPattern(%q, %q) = %v, want %v", tc.pattern, tc.topic, got, tc.want)
			}
		})
	}
}

func TestHandleEventStream_SSE(t *testing.T) {
	srv, _, _, _, handler := newTestServer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest("GET", "/v1/events/stream", nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(rec, req)
	}()

	// Give the handler time to register the subscription.
	time.Sleep(50 * time.Millisecond)

	srv.sseHub.broadcast("scra.session.updated", []byte(`{"session_id":"sess-sse1"}`))

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected Content-Type=text/event-stream, got %q", ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event:scra.session.updated") {
		t.Fatalf("expected session event in body, got:\n%s", body)
	}
	if !strings.Contains(body, `data:{"session_id":"sess-sse1"}`) {
		t.Fatalf("expected data with sess-sse1 in body, got:\n%s", body)
	}
}

func TestHandleEventStream_TopicFilter(t *testing.T) {
	srv, _, _, _, handler := newTestServer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest("GET", "/v1/events/stream?topics=scra.screenshot.*", nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(rec, req)
	}()

	time.Sleep(50 * time.Millisecond)

	srv.sseHub.broadcast("scra.session.updated", []byte(`{"session_id":"sess-1"}`))
	srv.sseHub.broadcast("scra.screenshot.inserted", []byte(`{"step":"logging_in"}`))

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if strings.Contains(body, "scra.session.updated") {
		t.Fatalf("expected session event to be filtered out, got:\n%s", body)
	}
	if !strings.Contains(body, "scra.screenshot.inserted") {
		t.Fatalf("expected screenshot event in body, got:\n%s", body)
	}
}

func TestHandleEventStream_LastEventID(t *testing.T) {
	srv, _, _, _, handler := newTestServer()

	srv.sseHub.broadcast("scra.session.created", []byte(`{"n":1}`))
	srv.sseHub.broadcast("scra.session.updated", []byte(`{"n":2}`))
	srv.sseHub.broadcast("scra.session.updated", []byte(`{"n":3}`))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest("GET", "/v1/events/stream", nil)
	req.Header.Set("Last-Event-ID", "1") // Should replay events 2 and 3.
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(rec, req)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if strings.Contains(body, `data:{"n":1}`) {
		t.Fatalf("expected event 1 to be skipped, got:\n%s", body)
	}
	if !strings.Contains(body, `data:{"n":2}`) {
		t.Fatalf("expected event 2 in body, got:\n%s", body)
	}
	if !strings.Contains(body, `data:{"n":3}`) {
		t.Fatalf("expected event 3 in body, got:\n%s", body)
	}
}

// TestHandleEventStream_TeePublisher verifies events published through the
// server's publisher reach stream clients.
func TestHandleEventStream_TeePublisher(t *testing.T) {
	srv, _, _, _, handler := newTestServer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest("GET", "/v1/events/stream", nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(rec, req)
	}()

	time.Sleep(50 * time.Millisecond)

	pub := srv.Publisher()
	err := pub.Publish(context.Background(), events.TopicSessionUpdated, events.SessionUpdated{
		Session: &model.Session{SessionID: "sess-tee", Status: model.StatusInProgress, Progress: 30},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "event:scra.session.updated") {
		t.Fatalf("expected SSE event from tee publisher, got:\n%s", body)
	}
	if !strings.Contains(body, "sess-tee") {
		t.Fatalf("expected session payload, got:\n%s", body)
	}
}

// TestSSEEventFormat verifies the exact SSE wire format.
func TestSSEEventFormat(t *testing.T) {
	srv, _, _, _, handler := newTestServer()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest("GET", "/v1/events/stream", nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		handler.ServeHTTP(rec, req)
	}()

	time.Sleep(50 * time.Millisecond)
	srv.sseHub.broadcast("scra.record.created", []byte(`{"id":7}`))
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	var id, event, data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "id:") {
			id = strings.TrimPrefix(line, "id:")
		} else if strings.HasPrefix(line, "event:") {
			event = strings.TrimPrefix(line, "event:")
		} else if strings.HasPrefix(line, "data:") {
			data = strings.TrimPrefix(line, "data:")
		}
	}

	if id == "" {
		t.Fatal("expected non-empty id field")
	}
	if event != "scra.record.created" {
		t.Fatalf("expected event=scra.record.created, got %q", event)
	}
	if !json.Valid([]byte(data)) {
		t.Fatalf("expected valid JSON data, got %q", data)
	}
}
