package services

import (
	"context"
	"errors"
	"testing"

	"organify/internal/core"
)

func TestOnboardingAndAccess(t *testing.T) {
	r := newRepo(t)
	s := NewAccountService(r)
	ctx := context.Background()
	user := newUser(t, r, "acct@example.com")

	if err := s.RequireAccess(ctx, user, core.PlanFree); err != nil {
		t.Fatalf("free features are open: %v", err)
	}
	if err := s.RequireAccess(ctx, user, core.PlanPremium); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected ErrForbidden before onboarding, got %v", err)
	}

	if _, err := s.CompleteOnboarding(ctx, user, "GOLD"); err == nil {
		t.Fatal("expected validation error for unknown plan")
	}

	u, err := s.CompleteOnboarding(ctx, user, core.PlanPremium)
	if err != nil {
		t.Fatalf("onboarding: %v", err)
	}
	if !u.HasCompletedOnboarding || u.Plan == nil || *u.Plan != core.PlanPremium {
		t.Fatalf("unexpected user: %+v", u)
	}
	if err := s.RequireAccess(ctx, user, core.PlanPremium); err != nil {
		t.Fatalf("premium user denied: %v", err)
	}
}

func TestAccountUnknownUser(t *testing.T) {
	r := newRepo(t)
	s := NewAccountService(r)
	if _, err := s.GetAccount(context.Background(), "nobody"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetAccount(context.Background(), ""); !errors.Is(err, core.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
