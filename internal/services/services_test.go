package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"organify/internal/amqp"
	"organify/internal/core"
	"organify/internal/storage"
)

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	r, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "organify.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func newUser(t *testing.T, r *storage.SQLiteRepository, email string) string {
	t.Helper()
	u, err := r.CreateUser(context.Background(), email)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u.ID
}

// recordingPublisher captures ledger events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) PublishLedgerEvent(_ context.Context, e *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) kinds() []amqp.EventKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]amqp.EventKind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

func date(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}
