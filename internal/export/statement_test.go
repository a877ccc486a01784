package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"organify/internal/core"
)

func TestStatementXLSX(t *testing.T) {
	st := Statement{
		Month: core.NewDate(2024, 1, 1).Time,
		Summary: core.TypeTotals{
			core.Income:          500000,
			core.FixedExpense:    200000,
			core.VariableExpense: 100000,
			core.Investment:      50000,
		}.Summary(),
		Running: core.RunningBalance{
			RunningBalance:  core.Money{Cents: 1234567},
			InvestmentTotal: core.Money{Cents: 50000},
		},
		Transactions: []core.Transaction{
			{
				Description: "=cmd|' /C calc'!A0",
				Amount:      core.Money{Cents: 150050},
				Date:        core.NewDate(2024, 1, 10),
				Type:        core.FixedExpense,
				Status:      core.StatusPaid,
				Category:    &core.CategoryRef{Name: "Aluguel"},
			},
		},
	}

	b, err := StatementXLSX(st)
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 2 || sheets[0] != SummarySheet || sheets[1] != TransactionsSheet {
		t.Fatalf("unexpected sheets: %v", sheets)
	}

	title, _ := f.GetCellValue(SummarySheet, "A1")
	if title != "Statement 2024-01" {
		t.Fatalf("title = %q", title)
	}
	label, _ := f.GetCellValue(SummarySheet, "A6")
	balance, _ := f.GetCellValue(SummarySheet, "B6", excelize.Options{RawCellValue: true})
	if label != "Balance" || balance != "2000" {
		t.Fatalf("balance row = %q %q", label, balance)
	}

	desc, _ := f.GetCellValue(TransactionsSheet, "B2")
	if desc[0] != '\'' {
		t.Fatalf("formula not escaped: %q", desc)
	}
	amount, _ := f.GetCellValue(TransactionsSheet, "F2", excelize.Options{RawCellValue: true})
	if amount != "1500.5" {
		t.Fatalf("amount = %q", amount)
	}
	cat, _ := f.GetCellValue(TransactionsSheet, "C2")
	if cat != "Aluguel" {
		t.Fatalf("category = %q", cat)
	}
}

func TestStatementXLSXEmptyMonth(t *testing.T) {
	b, err := StatementXLSX(Statement{Month: core.NewDate(2024, 2, 1).Time})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(TransactionsSheet)
	if err != nil || len(rows) != 1 {
		t.Fatalf("expected only the header row: %v %v", rows, err)
	}
}
