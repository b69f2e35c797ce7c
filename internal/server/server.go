// Package server exposes the verification service over HTTP/JSON with a
// server-sent-events stream for live session updates.
package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/quillpoint/scraverify/internal/automation"
	"github.com/quillpoint/scraverify/internal/blob"
	"github.com/quillpoint/scraverify/internal/cache"
	"github.com/quillpoint/scraverify/internal/events"
	"github.com/quillpoint/scraverify/internal/model"
	"github.com/quillpoint/scraverify/internal/store"
)

// listTimeout bounds store reads issued on behalf of HTTP requests.
const listTimeout = 10 * time.Second

// Record listings are read far more often than records are written, so
// pages are cached briefly and purged on every record event.
const (
	recordListSize = 256
	recordListTTL  = 30 * time.Second
)

// Launcher starts verification runs. Implemented by automation.Manager.
type Launcher interface {
	Start(sessionID string, person model.Person) error
	StartBatch(sessionID string, b automation.Batch) error
	Active(sessionID string) bool
}

// recordListPage is one cached response page for GET /v1/records.
type recordListPage struct {
	Records []*model.VerificationRecord
	Total   int
}

// VerifyServer carries the dependencies shared by every HTTP handler.
type VerifyServer struct {
	store       store.Store
	publisher   events.Publisher
	blobs       blob.Store
	urls        *cache.URLCache
	recordLists *cache.ListCache[recordListPage]
	launcher    Launcher
	sseHub      *sseHub

	signedURLTTL time.Duration
}

// NewVerifyServer returns a VerifyServer wired to the given dependencies.
func NewVerifyServer(s store.Store, p events.Publisher, b blob.Store, urls *cache.URLCache, l Launcher, signedURLTTL time.Duration) *VerifyServer {
	return &VerifyServer{
		store:        s,
		publisher:    p,
		blobs:        b,
		urls:         urls,
		recordLists:  cache.NewList[recordListPage](recordListSize, recordListTTL),
		launcher:     l,
		sseHub:       newSSEHub(),
		signedURLTTL: signedURLTTL,
	}
}

// SetLauncher wires the run launcher after construction. The launcher
// depends on the server's publisher, so it cannot exist first.
func (s *VerifyServer) SetLauncher(l Launcher) {
	s.launcher = l
}

// publish emits an event to the bus and fans it out to SSE clients.
// Both paths are best-effort; failures are logged but do not block the caller.
func (s *VerifyServer) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "error", err)
	}
	s.invalidateLists(topic)
	s.broadcastEvent(topic, event)
}

// invalidateLists purges the record listing cache when a record event
// changes what a listing would return.
func (s *VerifyServer) invalidateLists(topic string) {
	switch topic {
	case events.TopicRecordCreated, events.TopicRecordDeleted:
		s.recordLists.Purge()
	}
}

// Publisher returns an events.Publisher that tees every publish into the
// SSE hub, so components outside the server (the automation runner) feed
// stream clients too.
func (s *VerifyServer) Publisher() events.Publisher {
	return &teePublisher{server: s}
}

type teePublisher struct {
	server *VerifyServer
}

func (t *teePublisher) Publish(ctx context.Context, topic string, event any) error {
	err := t.server.publisher.Publish(ctx, topic, event)
	t.server.invalidateLists(topic)
	t.server.broadcastEvent(topic, event)
	return err
}

func (t *teePublisher) Close() error { return nil }

// inputError indicates invalid user input.
// The HTTP layer maps this to 400.
type inputError string

func (e inputError) Error() string { return string(e) }

// listContext derives a bounded context for store reads.
func listContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, listTimeout)
}
