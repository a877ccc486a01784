package services

import (
	"context"
	"time"

	"organify/internal/core"
)

type PlannedStore interface {
	CreatePlannedPurchase(ctx context.Context, p core.PlannedPurchase) (core.PlannedPurchase, error)
	UpdatePlannedPurchase(ctx context.Context, p core.PlannedPurchase) (core.PlannedPurchase, error)
	ListPlannedPurchases(ctx context.Context, userID string, from, to core.Date) ([]core.PlannedPurchase, error)
	TogglePlannedPurchase(ctx context.Context, userID, id string) (core.PlannedPurchase, error)
	DeletePlannedPurchase(ctx context.Context, userID, id string) error
}

type PlannedService struct {
	store PlannedStore
}

func NewPlannedService(store PlannedStore) *PlannedService {
	return &PlannedService{store: store}
}

// CreateOrUpdatePlannedPurchase creates p when it has no id and otherwise
// edits the owner's existing purchase.
func (s *PlannedService) CreateOrUpdatePlannedPurchase(ctx context.Context, userID string, p core.PlannedPurchase) (core.PlannedPurchase, error) {
	if err := requireUser(userID); err != nil {
		return core.PlannedPurchase{}, err
	}
	p.UserID = userID
	if p.Status == "" {
		p.Status = core.PlannedPending
	}
	if err := p.Validate(); err != nil {
		return core.PlannedPurchase{}, err
	}

	var (
		out core.PlannedPurchase
		err error
	)
	if p.ID == "" {
		out, err = s.store.CreatePlannedPurchase(ctx, p)
	} else {
		out, err = s.store.UpdatePlannedPurchase(ctx, p)
	}
	if err != nil {
		return core.PlannedPurchase{}, translate(ctx, "save planned purchase", err)
	}
	return out, nil
}

// ListPlannedPurchases returns purchases due in the month of ref.
func (s *PlannedService) ListPlannedPurchases(ctx context.Context, userID string, ref time.Time) ([]core.PlannedPurchase, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	from, to := core.MonthRange(ref)
	list, err := s.store.ListPlannedPurchases(ctx, userID, from, to)
	if err != nil {
		return nil, translate(ctx, "list planned purchases", err)
	}
	return list, nil
}

func (s *PlannedService) TogglePlannedPurchaseStatus(ctx context.Context, userID, id string) (core.PlannedPurchase, error) {
	if err := requireUser(userID); err != nil {
		return core.PlannedPurchase{}, err
	}
	p, err := s.store.TogglePlannedPurchase(ctx, userID, id)
	if err != nil {
		return core.PlannedPurchase{}, translate(ctx, "toggle planned purchase", err)
	}
	return p, nil
}

func (s *PlannedService) DeletePlannedPurchase(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.store.DeletePlannedPurchase(ctx, userID, id); err != nil {
		return translate(ctx, "delete planned purchase", err)
	}
	return nil
}
