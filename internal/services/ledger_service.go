package services

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"organify/internal/amqp"
	"organify/internal/cache"
	"organify/internal/core"
)

// LedgerStore is the persistence the ledger needs.
type LedgerStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id string, p core.TransactionPatch) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
	ListTransactions(ctx context.Context, userID string, typ core.TransactionType, from, to core.Date) ([]core.Transaction, error)
	MonthTotals(ctx context.Context, userID string, from, to core.Date) (core.TypeTotals, error)
	RunningTotals(ctx context.Context, userID string, to core.Date) (core.TypeTotals, error)
}

// EventPublisher announces ledger changes to other processes.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, e *amqp.LedgerEvent) error
}

// LedgerService owns transactions and the figures derived from them.
type LedgerService struct {
	store  LedgerStore
	cache  cache.Store
	events EventPublisher
	group  singleflight.Group

	// gens counts writes per user. A read computed under an older generation
	// is neither cached nor shared with callers that arrive after the write.
	genMu sync.Mutex
	gens  map[string]uint64
}

// NewLedgerService wires the ledger. cache and events may be nil.
func NewLedgerService(store LedgerStore, c cache.Store, events EventPublisher) *LedgerService {
	return &LedgerService{store: store, cache: c, events: events, gens: make(map[string]uint64)}
}

func (s *LedgerService) generation(userID string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[userID]
}

func ledgerPrefix(userID string) string {
	return cache.Key("ledger", userID) + ":"
}

// GetSummaryTotals returns the per type totals of the month containing ref.
func (s *LedgerService) GetSummaryTotals(ctx context.Context, userID string, ref time.Time) (core.SummaryTotals, error) {
	if err := requireUser(userID); err != nil {
		return core.SummaryTotals{}, err
	}
	key := cache.Key("ledger", userID, "summary", core.MonthKey(ref))

	var out core.SummaryTotals
	err := s.cached(ctx, userID, key, &out, func() (any, error) {
		from, to := core.MonthRange(ref)
		totals, err := s.store.MonthTotals(ctx, userID, from, to)
		if err != nil {
			return nil, err
		}
		return totals.Summary(), nil
	})
	if err != nil {
		return core.SummaryTotals{}, translate(ctx, "summary totals", err)
	}
	return out, nil
}

// GetRunningBalance returns the cumulative position at the end of ref's month.
func (s *LedgerService) GetRunningBalance(ctx context.Context, userID string, ref time.Time) (core.RunningBalance, error) {
	if err := requireUser(userID); err != nil {
		return core.RunningBalance{}, err
	}
	key := cache.Key("ledger", userID, "running", core.MonthKey(ref))

	var out core.RunningBalance
	err := s.cached(ctx, userID, key, &out, func() (any, error) {
		totals, err := s.store.RunningTotals(ctx, userID, core.EndOfMonth(ref))
		if err != nil {
			return nil, err
		}
		return totals.Running(), nil
	})
	if err != nil {
		return core.RunningBalance{}, translate(ctx, "running balance", err)
	}
	return out, nil
}

// cached serves key from the cache, or computes it once for all concurrent
// callers of the same write generation and stores the result. Cache failures
// degrade to a direct read.
func (s *LedgerService) cached(ctx context.Context, userID, key string, dest any, compute func() (any, error)) error {
	gen := s.generation(userID)
	if s.cache != nil {
		hit, err := s.cache.Get(ctx, key, dest)
		if err != nil {
			slog.WarnContext(ctx, "Cache read failed", "key", key, "error", err)
		}
		if hit {
			return nil
		}
	}

	v, err, shared := s.group.Do(key+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		v, err := compute()
		if err != nil {
			return nil, err
		}
		s.remember(ctx, userID, gen, key, v)
		return v, nil
	})
	if err != nil {
		return err
	}
	if shared {
		slog.DebugContext(ctx, "Shared in-flight ledger read", "key", key)
	}

	switch d := dest.(type) {
	case *core.SummaryTotals:
		*d = v.(core.SummaryTotals)
	case *core.RunningBalance:
		*d = v.(core.RunningBalance)
	}
	return nil
}

// remember caches v unless a write for userID landed since gen was read. The
// check and the write hold genMu so they cannot interleave with afterWrite's
// bump and invalidation.
func (s *LedgerService) remember(ctx context.Context, userID string, gen uint64, key string, v any) {
	if s.cache == nil {
		return
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.gens[userID] != gen {
		slog.DebugContext(ctx, "Ledger changed during read, not caching", "key", key)
		return
	}
	if err := s.cache.Set(ctx, key, v); err != nil {
		slog.WarnContext(ctx, "Cache write failed", "key", key, "error", err)
	}
}

// GetTransactions lists the month's transactions, newest first. An empty typ
// lists every type.
func (s *LedgerService) GetTransactions(ctx context.Context, userID string, typ core.TransactionType, ref time.Time) ([]core.Transaction, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if typ != "" && !typ.Valid() {
		return nil, core.ValidationErrors{"type": "must be one of INCOME, FIXED_EXPENSE, VARIABLE_EXPENSE, INVESTMENT"}
	}
	from, to := core.MonthRange(ref)
	list, err := s.store.ListTransactions(ctx, userID, typ, from, to)
	if err != nil {
		return nil, translate(ctx, "list transactions", err)
	}
	return list, nil
}

func (s *LedgerService) CreateTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	if err := requireUser(userID); err != nil {
		return core.Transaction{}, err
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.UserID = userID

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, translate(ctx, "create transaction", err)
	}

	s.afterWrite(ctx, amqp.TransactionCreated, userID, created.ID, created.Date)
	return created, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, userID, id string, p core.TransactionPatch) (core.Transaction, error) {
	if err := requireUser(userID); err != nil {
		return core.Transaction{}, err
	}
	if err := p.Validate(); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.UpdateTransaction(ctx, userID, id, p)
	if err != nil {
		return core.Transaction{}, translate(ctx, "update transaction", err)
	}

	s.afterWrite(ctx, amqp.TransactionUpdated, userID, id, updated.Date)
	return updated, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return translate(ctx, "delete transaction", err)
	}

	s.afterWrite(ctx, amqp.TransactionDeleted, userID, id, core.Date{})
	return nil
}

// afterWrite drops the user's cached figures and announces the change. Both
// are best effort; the write itself already succeeded.
func (s *LedgerService) afterWrite(ctx context.Context, kind amqp.EventKind, userID, id string, date core.Date) {
	s.genMu.Lock()
	s.gens[userID]++
	if s.cache != nil {
		if err := s.cache.DeletePrefix(ctx, ledgerPrefix(userID)); err != nil {
			slog.WarnContext(ctx, "Failed to invalidate ledger cache", "user_id", userID, "error", err)
		}
	}
	s.genMu.Unlock()

	if s.events == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping ledger event", "kind", kind)
		return
	}
	month := ""
	if !date.IsZero() {
		month = core.MonthKey(date.Time)
	}
	if err := s.events.PublishLedgerEvent(ctx, amqp.NewLedgerEvent(kind, id, userID, month)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger event", "kind", kind, "id", id, "error", err)
	}
}
