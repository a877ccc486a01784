package core

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateJSON(t *testing.T) {
	var d Date
	if err := json.Unmarshal([]byte(`"2025-03-09T12:00:00.000Z"`), &d); err != nil {
		t.Fatal(err)
	}
	if d.String() != "2025-03-09" {
		t.Fatalf("got %s", d)
	}
	b, _ := json.Marshal(d)
	if string(b) != `"2025-03-09"` {
		t.Fatalf("got %s", b)
	}
	if err := json.Unmarshal([]byte(`"09/03/2025"`), &d); err == nil {
		t.Fatal("expected error for non ISO date")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Description: "Rent",
		Amount:      Money{Cents: 100},
		Date:        NewDate(2025, 1, 1),
		Type:        FixedExpense,
		Status:      StatusPaid,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := map[string]Transaction{
		"description": {Description: "ab", Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1), Type: Income, Status: StatusReceived},
		"amount":      {Description: "abc", Amount: Money{Cents: 0}, Date: NewDate(2025, 1, 1), Type: Income, Status: StatusReceived},
		"date":        {Description: "abc", Amount: Money{Cents: 1}, Type: Income, Status: StatusReceived},
		"type":        {Description: "abc", Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1), Type: "SAVINGS", Status: StatusReceived},
		"status":      {Description: "abc", Amount: Money{Cents: 1}, Date: NewDate(2025, 1, 1), Type: Income, Status: "DONE"},
	}
	for field, tx := range bads {
		err := tx.Validate()
		v, ok := AsValidation(err)
		if !ok {
			t.Fatalf("%s: expected validation error, got %v", field, err)
		}
		if _, ok := v[field]; !ok {
			t.Errorf("%s: missing field error in %v", field, v)
		}
	}
}

func TestCategoryValidate(t *testing.T) {
	if err := (Category{Name: "Aluguel", Type: FixedExpense}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	for _, c := range []Category{
		{Name: "  ", Type: Income},
		{Name: "!!!", Type: Income},
		{Name: "Food", Type: "OTHER"},
	} {
		if err := c.Validate(); err == nil {
			t.Errorf("expected error for %+v", c)
		}
	}
}

func TestDebtValidate(t *testing.T) {
	due := NewDate(2024, 12, 1)
	zero := 0
	d := Debt{Description: "Car", TotalAmount: Money{Cents: 100000}, StartDate: NewDate(2025, 1, 1)}
	if err := d.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	d.DueDate = &due
	d.Installments = &zero
	v, ok := AsValidation(d.Validate())
	if !ok {
		t.Fatal("expected validation errors")
	}
	if v["dueDate"] == "" || v["installments"] == "" {
		t.Fatalf("unexpected errors %v", v)
	}
}

func TestPaymentPatchValidate(t *testing.T) {
	neg := Money{Cents: -1}
	if err := (PaymentPatch{AmountPaid: &neg}).Validate(); err == nil {
		t.Fatal("expected error for negative payment")
	}
	if err := (PaymentPatch{}).Validate(); err != nil {
		t.Fatalf("empty patch should be valid, got %v", err)
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	v := ValidationErrors{}
	v.Add("b", "second")
	v.Add("a", "first")
	v.Add("a", "ignored")
	if got := v.Error(); got != "validation failed: a: first; b: second" {
		t.Fatalf("got %q", got)
	}
	var target ValidationErrors
	if !errors.As(error(v), &target) {
		t.Fatal("errors.As should match ValidationErrors")
	}
}

func TestPlannedStatusToggle(t *testing.T) {
	if PlannedPending.Toggle() != PlannedPurchased || PlannedPurchased.Toggle() != PlannedPending {
		t.Fatal("toggle should flip between PENDING and PURCHASED")
	}
}
