package services

import (
	"context"
	"log/slog"

	"organify/internal/core"
)

type AccountStore interface {
	GetUser(ctx context.Context, id string) (core.User, error)
	CompleteOnboarding(ctx context.Context, id string, plan core.Plan) (core.User, error)
}

type AccountService struct {
	store AccountStore
}

func NewAccountService(store AccountStore) *AccountService {
	return &AccountService{store: store}
}

func (s *AccountService) GetAccount(ctx context.Context, userID string) (core.User, error) {
	if err := requireUser(userID); err != nil {
		return core.User{}, err
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return core.User{}, translate(ctx, "get account", err)
	}
	return u, nil
}

// CompleteOnboarding stores the chosen plan and marks onboarding done.
func (s *AccountService) CompleteOnboarding(ctx context.Context, userID string, plan core.Plan) (core.User, error) {
	if err := requireUser(userID); err != nil {
		return core.User{}, err
	}
	if !plan.Valid() {
		return core.User{}, core.ValidationErrors{"plan": "must be FREE or PREMIUM"}
	}
	u, err := s.store.CompleteOnboarding(ctx, userID, plan)
	if err != nil {
		return core.User{}, translate(ctx, "complete onboarding", err)
	}
	slog.InfoContext(ctx, "Onboarding completed", "user_id", userID, "plan", plan)
	return u, nil
}

// RequireAccess fails with core.ErrForbidden unless the user's plan grants
// access to a feature that needs required.
func (s *AccountService) RequireAccess(ctx context.Context, userID string, required core.Plan) error {
	u, err := s.GetAccount(ctx, userID)
	if err != nil {
		return err
	}
	if !core.HasRequiredAccess(u.Plan, &required) {
		return core.ErrForbidden
	}
	return nil
}
