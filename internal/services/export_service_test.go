package services

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"organify/internal/core"
	"organify/internal/export"
)

func TestMonthlyStatementRequiresPremium(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	user := newUser(t, r, "export@example.com")
	ledger := NewLedgerService(r, nil, nil)
	accounts := NewAccountService(r)
	s := NewExportService(ledger, accounts)

	addEntry(t, ledger, user, core.Income, 500000, "2024-01-05")
	ref := date(t, "2024-01-15").Time

	if _, err := s.MonthlyStatement(ctx, user, ref); !errors.Is(err, core.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	if _, err := accounts.CompleteOnboarding(ctx, user, core.PlanPremium); err != nil {
		t.Fatal(err)
	}
	b, err := s.MonthlyStatement(ctx, user, ref)
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows(export.TransactionsSheet)
	if len(rows) != 2 {
		t.Fatalf("expected header plus one transaction, got %d rows", len(rows))
	}
}
