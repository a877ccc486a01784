package core

// IsPaidOff reports whether cumulative payments cover the debt.
func IsPaidOff(total, paid Money) bool {
	return paid.Cents >= total.Cents
}

// Remaining is what is still owed. Overpayment counts as fully paid.
func Remaining(total, paid Money) Money {
	if paid.Cents >= total.Cents {
		return Money{}
	}
	return total.Sub(paid)
}

// DebtView is a debt with its payments and the amounts derived from them.
type DebtView struct {
	Debt
	AmountPaid      Money         `json:"amountPaid"`
	RemainingAmount Money         `json:"remainingAmount"`
	Payments        []DebtPayment `json:"payments"`
}

// NewDebtView derives paid and remaining amounts from the given payments.
func NewDebtView(d Debt, payments []DebtPayment) DebtView {
	var paid Money
	for _, p := range payments {
		paid = paid.Add(p.AmountPaid)
	}
	if payments == nil {
		payments = []DebtPayment{}
	}
	return DebtView{
		Debt:            d,
		AmountPaid:      paid,
		RemainingAmount: Remaining(d.TotalAmount, paid),
		Payments:        payments,
	}
}

// DebtsSummary aggregates every debt of a user.
type DebtsSummary struct {
	TotalDebt        Money `json:"totalDebt"`
	TotalPaid        Money `json:"totalPaid"`
	TotalRemaining   Money `json:"totalRemaining"`
	ActiveDebtsCount int   `json:"activeDebtsCount"`
}

// SummarizeDebts totals the views. A debt is active while it is open and
// something is still owed.
func SummarizeDebts(views []DebtView) DebtsSummary {
	var s DebtsSummary
	for _, v := range views {
		s.TotalDebt = s.TotalDebt.Add(v.TotalAmount)
		s.TotalPaid = s.TotalPaid.Add(v.AmountPaid)
		s.TotalRemaining = s.TotalRemaining.Add(v.RemainingAmount)
		if !v.IsPaidOff && v.RemainingAmount.Cents > 0 {
			s.ActiveDebtsCount++
		}
	}
	return s
}
