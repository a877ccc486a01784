package services

import (
	"context"

	"organify/internal/core"
)

// DebtStore is the persistence the debt reconciler needs. Every payment
// mutation re-derives the parent debt's payoff flag in the same transaction.
type DebtStore interface {
	CreateDebt(ctx context.Context, d core.Debt) (core.Debt, error)
	GetDebt(ctx context.Context, userID, id string) (core.DebtView, error)
	ListDebts(ctx context.Context, userID string) ([]core.DebtView, error)
	UpdateDebt(ctx context.Context, userID, id string, p core.DebtPatch) (core.DebtView, error)
	DeleteDebt(ctx context.Context, userID, id string) error
	AddPayment(ctx context.Context, userID, debtID string, p core.DebtPayment) (core.DebtPayment, error)
	UpdatePayment(ctx context.Context, userID, id, debtID string, p core.PaymentPatch) (core.DebtPayment, error)
	DeletePayment(ctx context.Context, userID, id string) error
}

type DebtService struct {
	store DebtStore
}

func NewDebtService(store DebtStore) *DebtService {
	return &DebtService{store: store}
}

func (s *DebtService) CreateDebt(ctx context.Context, userID string, d core.Debt) (core.DebtView, error) {
	if err := requireUser(userID); err != nil {
		return core.DebtView{}, err
	}
	if err := d.Validate(); err != nil {
		return core.DebtView{}, err
	}
	d.UserID = userID
	d.IsPaidOff = false

	created, err := s.store.CreateDebt(ctx, d)
	if err != nil {
		return core.DebtView{}, translate(ctx, "create debt", err)
	}
	return core.NewDebtView(created, nil), nil
}

// GetDebts lists the user's debts with payments and derived amounts.
func (s *DebtService) GetDebts(ctx context.Context, userID string) ([]core.DebtView, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	views, err := s.store.ListDebts(ctx, userID)
	if err != nil {
		return nil, translate(ctx, "list debts", err)
	}
	return views, nil
}

func (s *DebtService) GetDebt(ctx context.Context, userID, id string) (core.DebtView, error) {
	if err := requireUser(userID); err != nil {
		return core.DebtView{}, err
	}
	v, err := s.store.GetDebt(ctx, userID, id)
	if err != nil {
		return core.DebtView{}, translate(ctx, "get debt", err)
	}
	return v, nil
}

func (s *DebtService) GetDebtsSummary(ctx context.Context, userID string) (core.DebtsSummary, error) {
	views, err := s.GetDebts(ctx, userID)
	if err != nil {
		return core.DebtsSummary{}, err
	}
	return core.SummarizeDebts(views), nil
}

// UpdateDebt applies a partial edit. A new total re-runs reconciliation.
func (s *DebtService) UpdateDebt(ctx context.Context, userID, id string, p core.DebtPatch) (core.DebtView, error) {
	if err := requireUser(userID); err != nil {
		return core.DebtView{}, err
	}
	if err := p.Validate(); err != nil {
		return core.DebtView{}, err
	}
	v, err := s.store.UpdateDebt(ctx, userID, id, p)
	if err != nil {
		return core.DebtView{}, translate(ctx, "update debt", err)
	}
	return v, nil
}

func (s *DebtService) DeleteDebt(ctx context.Context, userID, id string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.store.DeleteDebt(ctx, userID, id); err != nil {
		return translate(ctx, "delete debt", err)
	}
	return nil
}

func (s *DebtService) AddPayment(ctx context.Context, userID, debtID string, p core.DebtPayment) (core.DebtPayment, error) {
	if err := requireUser(userID); err != nil {
		return core.DebtPayment{}, err
	}
	if err := p.Validate(); err != nil {
		return core.DebtPayment{}, err
	}
	created, err := s.store.AddPayment(ctx, userID, debtID, p)
	if err != nil {
		return core.DebtPayment{}, translate(ctx, "add payment", err)
	}
	return created, nil
}

// UpdatePayment edits a payment. When debtID is given the payment must
// belong to that debt.
func (s *DebtService) UpdatePayment(ctx context.Context, userID, paymentID, debtID string, p core.PaymentPatch) (core.DebtPayment, error) {
	if err := requireUser(userID); err != nil {
		return core.DebtPayment{}, err
	}
	if err := p.Validate(); err != nil {
		return core.DebtPayment{}, err
	}

	updated, err := s.store.UpdatePayment(ctx, userID, paymentID, debtID, p)
	if err != nil {
		return core.DebtPayment{}, translate(ctx, "update payment", err)
	}
	return updated, nil
}

func (s *DebtService) DeletePayment(ctx context.Context, userID, paymentID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := s.store.DeletePayment(ctx, userID, paymentID); err != nil {
		return translate(ctx, "delete payment", err)
	}
	return nil
}
