package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"organify/internal/core"
	ports "organify/internal/sheets"
)

var _ ports.TransactionMirror = (*Store)(nil)

// Store is an in-process mirror used when no spreadsheet is configured.
type Store struct {
	mu    sync.Mutex
	order []string
	rows  map[string][]string
}

func New() *Store {
	return &Store{rows: map[string][]string{}}
}

// Upsert stores the rendered row and returns a synthetic row reference.
func (s *Store) Upsert(_ context.Context, t core.Transaction) (string, error) {
	if t.ID == "" {
		return "", errors.New("transaction id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[t.ID]; !ok {
		s.order = append(s.order, t.ID)
	}
	s.rows[t.ID] = ports.Row(t)
	return fmt.Sprintf("mem:%s", t.ID), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return nil
	}
	delete(s.rows, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Rows returns a copy of the mirrored rows in insertion order.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, append([]string(nil), s.rows[id]...))
	}
	return out
}

// Row returns the mirrored row of id, if any.
func (s *Store) Row(id string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	return append([]string(nil), r...), ok
}
