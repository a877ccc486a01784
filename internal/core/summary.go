package core

import "time"

// SummaryTotals is the per type breakdown of one month.
type SummaryTotals struct {
	Income          Money `json:"income"`
	FixedExpense    Money `json:"fixedExpense"`
	VariableExpense Money `json:"variableExpense"`
	Investment      Money `json:"investment"`
	Balance         Money `json:"balance"`
}

// RunningBalance is the cumulative cash position up to a month end.
type RunningBalance struct {
	RunningBalance  Money `json:"runningBalance"`
	InvestmentTotal Money `json:"investmentTotal"`
}

// TypeTotals holds raw sums in cents keyed by transaction type.
type TypeTotals map[TransactionType]int64

// Summary builds the monthly totals. Investment is reported but kept out of
// the balance.
func (t TypeTotals) Summary() SummaryTotals {
	s := SummaryTotals{
		Income:          Money{Cents: t[Income]},
		FixedExpense:    Money{Cents: t[FixedExpense]},
		VariableExpense: Money{Cents: t[VariableExpense]},
		Investment:      Money{Cents: t[Investment]},
	}
	s.Balance = s.Income.Sub(s.FixedExpense).Sub(s.VariableExpense)
	return s
}

// Running builds the cumulative balance from all-time sums.
func (t TypeTotals) Running() RunningBalance {
	return RunningBalance{
		RunningBalance:  Money{Cents: t[Income] - t[FixedExpense] - t[VariableExpense]},
		InvestmentTotal: Money{Cents: t[Investment]},
	}
}

// MonthRange returns the first and last day of the month containing ref.
func MonthRange(ref time.Time) (Date, Date) {
	start := NewDate(ref.Year(), int(ref.Month()), 1)
	end := Date{Time: start.AddDate(0, 1, -1)}
	return start, end
}

// EndOfMonth returns the last day of the month containing ref.
func EndOfMonth(ref time.Time) Date {
	_, end := MonthRange(ref)
	return end
}

// ParseMonth accepts "YYYY-MM" or a full "YYYY-MM-DD" date.
func ParseMonth(s string) (Date, error) {
	if t, err := time.Parse("2006-01", s); err == nil {
		return Date{Time: t}, nil
	}
	return ParseDate(s)
}

// MonthKey formats a reference date as "YYYY-MM".
func MonthKey(d time.Time) string {
	return d.Format("2006-01")
}
