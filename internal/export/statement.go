// Package export renders monthly statements as XLSX workbooks.
package export

import (
	"fmt"
	"time"

	"dario.cat/mergo"
	"github.com/xuri/excelize/v2"

	"organify/internal/core"
	"organify/internal/sanitize"
)

const (
	SummarySheet      = "Summary"
	TransactionsSheet = "Transactions"
)

// Statement is everything one monthly workbook shows.
type Statement struct {
	Month        time.Time
	Summary      core.SummaryTotals
	Running      core.RunningBalance
	Transactions []core.Transaction
}

// StatementXLSX builds the workbook and returns its bytes.
func StatementXLSX(st Statement) ([]byte, error) {
	xlsx := excelize.NewFile()
	defer xlsx.Close()

	_ = xlsx.SetAppProps(&excelize.AppProperties{
		Application: "organify",
		DocSecurity: 2,
	})

	sheet := xlsx.GetSheetName(xlsx.GetActiveSheetIndex())
	if err := xlsx.SetSheetName(sheet, SummarySheet); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	writeSummary(xlsx, SummarySheet, st)

	if _, err := xlsx.NewSheet(TransactionsSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	writeTransactions(xlsx, TransactionsSheet, st.Transactions)

	buf, err := xlsx.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSummary(xlsx *excelize.File, sheet string, st Statement) {
	_ = xlsx.SetColWidth(sheet, "A", "A", 28)
	_ = xlsx.SetColWidth(sheet, "B", "B", 16)

	_ = xlsx.SetCellValue(sheet, cell('A', 1), "Statement "+core.MonthKey(st.Month))
	style, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), fontBold(), thickBorder("bottom")))
	_ = xlsx.SetCellStyle(sheet, cell('A', 1), cell('B', 1), style)

	rows := []struct {
		label  string
		amount core.Money
	}{
		{"Income", st.Summary.Income},
		{"Fixed expenses", st.Summary.FixedExpense},
		{"Variable expenses", st.Summary.VariableExpense},
		{"Investments", st.Summary.Investment},
	}
	row := 2
	amountStyle, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), numberFormat()))
	for _, r := range rows {
		_ = xlsx.SetCellValue(sheet, cell('A', row), r.label)
		_ = xlsx.SetCellValue(sheet, cell('B', row), r.amount.Major().InexactFloat64())
		_ = xlsx.SetCellStyle(sheet, cell('B', row), cell('B', row), amountStyle)
		row++
	}

	totalStyle, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), fontBold(), numberFormat(), thinBorder("top")))
	_ = xlsx.SetCellValue(sheet, cell('A', row), "Balance")
	_ = xlsx.SetCellValue(sheet, cell('B', row), st.Summary.Balance.Major().InexactFloat64())
	_ = xlsx.SetCellStyle(sheet, cell('A', row), cell('B', row), totalStyle)
	row += 2

	_ = xlsx.SetCellValue(sheet, cell('A', row), "Running balance")
	_ = xlsx.SetCellValue(sheet, cell('B', row), st.Running.RunningBalance.Major().InexactFloat64())
	_ = xlsx.SetCellStyle(sheet, cell('A', row), cell('B', row), totalStyle)
	row++
	_ = xlsx.SetCellValue(sheet, cell('A', row), "Invested to date")
	_ = xlsx.SetCellValue(sheet, cell('B', row), st.Running.InvestmentTotal.Major().InexactFloat64())
	_ = xlsx.SetCellStyle(sheet, cell('B', row), cell('B', row), amountStyle)
}

func writeTransactions(xlsx *excelize.File, sheet string, txs []core.Transaction) {
	_ = xlsx.SetColWidth(sheet, "A", "A", 12)
	_ = xlsx.SetColWidth(sheet, "B", "B", 40)
	_ = xlsx.SetColWidth(sheet, "C", "C", 20)
	_ = xlsx.SetColWidth(sheet, "D", "F", 16)

	headers := []string{"Date", "Description", "Category", "Type", "Status", "Amount"}
	for i, h := range headers {
		_ = xlsx.SetCellValue(sheet, cell('A'+rune(i), 1), h)
	}
	style, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), fontBold(), thinBorder("bottom")))
	_ = xlsx.SetCellStyle(sheet, cell('A', 1), cell('F', 1), style)

	amountStyle, _ := xlsx.NewStyle(mergeStyles(defaultStyle(), numberFormat()))
	row := 2
	for _, t := range txs {
		category := ""
		if t.Category != nil {
			category = t.Category.Name
		}
		_ = xlsx.SetCellValue(sheet, cell('A', row), t.Date.String())
		_ = xlsx.SetCellValue(sheet, cell('B', row), sanitize.Cell(t.Description))
		_ = xlsx.SetCellValue(sheet, cell('C', row), sanitize.Cell(category))
		_ = xlsx.SetCellValue(sheet, cell('D', row), string(t.Type))
		_ = xlsx.SetCellValue(sheet, cell('E', row), string(t.Status))
		_ = xlsx.SetCellValue(sheet, cell('F', row), t.Amount.Major().InexactFloat64())
		_ = xlsx.SetCellStyle(sheet, cell('F', row), cell('F', row), amountStyle)
		row++
	}
}

func cell(col rune, row int) string {
	return fmt.Sprintf("%c%d", col, row)
}

func defaultStyle() *excelize.Style {
	return &excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FFFFFF"},
			Pattern: 1,
		},
	}
}

func numberFormat() *excelize.Style {
	f := "#,##0.00"
	return &excelize.Style{CustomNumFmt: &f}
}

func fontBold() *excelize.Style {
	return &excelize.Style{Font: &excelize.Font{Bold: true}}
}

func thinBorder(where ...string) *excelize.Style {
	return border(1, where...)
}

func thickBorder(where ...string) *excelize.Style {
	return border(2, where...)
}

func border(weight int, where ...string) *excelize.Style {
	s := &excelize.Style{}
	for _, w := range where {
		s.Border = append(s.Border, excelize.Border{Type: w, Color: "#000000", Style: weight})
	}
	return s
}

func mergeStyles(ext ...*excelize.Style) *excelize.Style {
	if len(ext) == 0 {
		return nil
	}
	for _, e := range ext[1:] {
		_ = mergo.Merge(ext[0], e, mergo.WithOverride)
	}
	return ext[0]
}
