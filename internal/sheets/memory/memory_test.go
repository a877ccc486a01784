package memory

import (
	"context"
	"testing"

	"organify/internal/core"
)

func tx(id string, cents int64) core.Transaction {
	return core.Transaction{
		ID:          id,
		Description: "groceries",
		Amount:      core.Money{Cents: cents},
		Date:        core.NewDate(2024, 1, 5),
		Type:        core.VariableExpense,
		Status:      core.StatusPaid,
		Category:    &core.CategoryRef{ID: "c1", Name: "Supermercado"},
	}
}

func TestUpsertReplacesRow(t *testing.T) {
	s := New()
	ctx := context.Background()

	ref, err := s.Upsert(ctx, tx("a", 1000))
	if err != nil || ref != "mem:a" {
		t.Fatalf("unexpected upsert: ref=%q err=%v", ref, err)
	}
	if _, err := s.Upsert(ctx, tx("b", 2000)); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Upsert(ctx, tx("a", 1500)); err != nil {
		t.Fatal(err)
	}

	rows := s.Rows()
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0][0] != "a" || rows[0][4] != "15.00" || rows[0][6] != "Supermercado" {
		t.Fatalf("unexpected first row: %v", rows[0])
	}
}

func TestDelete(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.Upsert(ctx, tx("a", 1000))
	_, _ = s.Upsert(ctx, tx("b", 1000))

	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Fatalf("missing row should be ignored: %v", err)
	}
	if _, ok := s.Row("a"); ok {
		t.Fatal("row a still present")
	}
	if rows := s.Rows(); len(rows) != 1 || rows[0][0] != "b" {
		t.Fatalf("unexpected rows: %v", rows)
	}
}

func TestUpsertRequiresID(t *testing.T) {
	if _, err := New().Upsert(context.Background(), tx("", 1)); err == nil {
		t.Fatal("expected error for empty id")
	}
}
