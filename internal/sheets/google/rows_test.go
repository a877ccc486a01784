package google

import (
	"context"
	"strings"
	"testing"

	"organify/internal/core"
)

func TestFindRow(t *testing.T) {
	ids := []string{"ID", "a", "", "b ", "c"}
	tests := []struct {
		id   string
		want int
	}{
		{"a", 2},
		{"b", 4},
		{"c", 5},
		{"ID", 0},
		{"missing", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := findRow(ids, tt.id); got != tt.want {
			t.Errorf("findRow(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestFirstColumn(t *testing.T) {
	values := [][]interface{}{{"ID", "Date"}, {}, {"abc", 1}}
	got := firstColumn(values)
	if len(got) != 3 || got[0] != "ID" || got[1] != "" || got[2] != "abc" {
		t.Fatalf("unexpected column: %v", got)
	}
}

func TestRowRange(t *testing.T) {
	if got := rowRange("Transactions", 7); got != "Transactions!A7:G7" {
		t.Fatalf("got %q", got)
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClientWithoutServiceFails(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheet: "Transactions"}
	_, err := c.Upsert(context.Background(), core.Transaction{ID: "x"})
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.Upsert(context.Background(), core.Transaction{}); err == nil {
		t.Fatal("expected error for empty id")
	}
	if err := c.Delete(context.Background(), "x"); err == nil {
		t.Fatal("expected error without service")
	}
}
