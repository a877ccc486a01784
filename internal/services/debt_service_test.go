package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"organify/internal/core"
)

func newDebts(t *testing.T) (*DebtService, string, string) {
	t.Helper()
	r := newRepo(t)
	return NewDebtService(r), newUser(t, r, "debts@example.com"), newUser(t, r, "other@example.com")
}

func TestDebtScenario(t *testing.T) {
	s, user, _ := newDebts(t)
	ctx := context.Background()

	d, err := s.CreateDebt(ctx, user, core.Debt{
		Description: "notebook",
		TotalAmount: core.Money{Cents: 100000},
		StartDate:   date(t, "2024-01-01"),
	})
	if err != nil {
		t.Fatalf("create debt: %v", err)
	}
	if d.IsPaidOff || d.RemainingAmount.Cents != 100000 {
		t.Fatalf("new debt should be open: %+v", d)
	}

	type step struct {
		name      string
		run       func() error
		paidOff   bool
		remaining int64
	}
	var second core.DebtPayment
	steps := []step{
		{"pay 60000", func() error {
			_, err := s.AddPayment(ctx, user, d.ID, core.DebtPayment{AmountPaid: core.Money{Cents: 60000}, PaymentDate: date(t, "2024-02-01")})
			return err
		}, false, 40000},
		{"pay 40000", func() error {
			var err error
			second, err = s.AddPayment(ctx, user, d.ID, core.DebtPayment{AmountPaid: core.Money{Cents: 40000}, PaymentDate: date(t, "2024-03-01")})
			return err
		}, true, 0},
		{"delete second", func() error {
			return s.DeletePayment(ctx, user, second.ID)
		}, false, 40000},
	}

	for _, st := range steps {
		if err := st.run(); err != nil {
			t.Fatalf("%s: %v", st.name, err)
		}
		v, err := s.GetDebt(ctx, user, d.ID)
		if err != nil {
			t.Fatalf("%s: get: %v", st.name, err)
		}
		if v.IsPaidOff != st.paidOff || v.RemainingAmount.Cents != st.remaining {
			t.Fatalf("%s: paidOff=%v remaining=%d, want %v %d", st.name, v.IsPaidOff, v.RemainingAmount.Cents, st.paidOff, st.remaining)
		}
	}
}

func TestDebtsSummary(t *testing.T) {
	s, user, _ := newDebts(t)
	ctx := context.Background()

	a, _ := s.CreateDebt(ctx, user, core.Debt{Description: "a", TotalAmount: core.Money{Cents: 1000}, StartDate: date(t, "2024-01-01")})
	b, _ := s.CreateDebt(ctx, user, core.Debt{Description: "b", TotalAmount: core.Money{Cents: 500}, StartDate: date(t, "2024-01-01")})
	if _, err := s.AddPayment(ctx, user, a.ID, core.DebtPayment{AmountPaid: core.Money{Cents: 300}, PaymentDate: date(t, "2024-01-02")}); err != nil {
		t.Fatal(err)
	}
	// Overpayment counts as paid with nothing remaining.
	if _, err := s.AddPayment(ctx, user, b.ID, core.DebtPayment{AmountPaid: core.Money{Cents: 700}, PaymentDate: date(t, "2024-01-02")}); err != nil {
		t.Fatal(err)
	}

	sum, err := s.GetDebtsSummary(ctx, user)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	want := core.DebtsSummary{
		TotalDebt:        core.Money{Cents: 1500},
		TotalPaid:        core.Money{Cents: 1000},
		TotalRemaining:   core.Money{Cents: 700},
		ActiveDebtsCount: 1,
	}
	if sum != want {
		t.Fatalf("got %+v, want %+v", sum, want)
	}
}

func TestUpdatePaymentChecksDebt(t *testing.T) {
	s, user, _ := newDebts(t)
	ctx := context.Background()

	a, _ := s.CreateDebt(ctx, user, core.Debt{Description: "a", TotalAmount: core.Money{Cents: 1000}, StartDate: date(t, "2024-01-01")})
	b, _ := s.CreateDebt(ctx, user, core.Debt{Description: "b", TotalAmount: core.Money{Cents: 1000}, StartDate: date(t, "2024-01-01")})
	p, err := s.AddPayment(ctx, user, a.ID, core.DebtPayment{AmountPaid: core.Money{Cents: 100}, PaymentDate: date(t, "2024-01-02")})
	if err != nil {
		t.Fatal(err)
	}

	amount := core.Money{Cents: 1000}
	if _, err := s.UpdatePayment(ctx, user, p.ID, b.ID, core.PaymentPatch{AmountPaid: &amount}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("payment moved across debts: %v", err)
	}
	if _, err := s.UpdatePayment(ctx, user, p.ID, a.ID, core.PaymentPatch{AmountPaid: &amount}); err != nil {
		t.Fatalf("update: %v", err)
	}
	v, _ := s.GetDebt(ctx, user, a.ID)
	if !v.IsPaidOff {
		t.Fatalf("debt should be paid off: %+v", v)
	}
}

func TestDebtOwnershipAndValidation(t *testing.T) {
	s, user, other := newDebts(t)
	ctx := context.Background()

	d, _ := s.CreateDebt(ctx, user, core.Debt{Description: "car", TotalAmount: core.Money{Cents: 1000}, StartDate: date(t, "2024-01-01")})

	if _, err := s.AddPayment(ctx, other, d.ID, core.DebtPayment{AmountPaid: core.Money{Cents: 100}, PaymentDate: date(t, "2024-01-02")}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign payment: %v", err)
	}
	if err := s.DeleteDebt(ctx, other, d.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign delete: %v", err)
	}
	if _, err := s.AddPayment(ctx, user, d.ID, core.DebtPayment{AmountPaid: core.Money{Cents: -5}}); err == nil {
		t.Fatal("expected validation error")
	} else if _, ok := core.AsValidation(err); !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := s.GetDebts(ctx, ""); !errors.Is(err, core.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if err := s.DeleteDebt(ctx, user, d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ := s.GetDebts(ctx, user)
	if len(list) != 0 {
		t.Fatalf("debt still listed: %+v", list)
	}
}

func TestConcurrentPaymentsKeepPayoffDerived(t *testing.T) {
	s, user, _ := newDebts(t)
	ctx := context.Background()

	d, err := s.CreateDebt(ctx, user, core.Debt{
		Description: "car",
		TotalAmount: core.Money{Cents: 100000},
		StartDate:   date(t, "2024-01-01"),
	})
	if err != nil {
		t.Fatalf("create debt: %v", err)
	}

	check := func(stage string, wantPaid int64) {
		t.Helper()
		v, err := s.GetDebt(ctx, user, d.ID)
		if err != nil {
			t.Fatalf("%s: get debt: %v", stage, err)
		}
		if v.AmountPaid.Cents != wantPaid {
			t.Fatalf("%s: paid=%s want %d cents", stage, v.AmountPaid, wantPaid)
		}
		if v.IsPaidOff != (v.AmountPaid.Cents >= v.TotalAmount.Cents) {
			t.Fatalf("%s: isPaidOff=%v with paid=%s total=%s", stage, v.IsPaidOff, v.AmountPaid, v.TotalAmount)
		}
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		payments []core.DebtPayment
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := s.AddPayment(ctx, user, d.ID, core.DebtPayment{
				AmountPaid:  core.Money{Cents: 5000},
				PaymentDate: date(t, "2024-02-01"),
			})
			if err != nil {
				t.Errorf("add payment: %v", err)
				return
			}
			mu.Lock()
			payments = append(payments, p)
			mu.Unlock()
		}()
	}
	wg.Wait()
	if len(payments) != 20 {
		t.Fatalf("recorded %d payments, want 20", len(payments))
	}
	check("after adds", 100000)

	for _, p := range payments[:10] {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.DeletePayment(ctx, user, id); err != nil {
				t.Errorf("delete payment: %v", err)
			}
		}(p.ID)
	}
	wg.Wait()
	check("after deletes", 50000)
}
