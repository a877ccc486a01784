package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"organify/internal/core"
	"organify/internal/export"
)

// ExportService renders monthly statements for users whose plan allows it.
type ExportService struct {
	ledger   *LedgerService
	accounts *AccountService
}

func NewExportService(ledger *LedgerService, accounts *AccountService) *ExportService {
	return &ExportService{ledger: ledger, accounts: accounts}
}

// MonthlyStatement returns the XLSX statement of the month containing ref.
// It requires the PREMIUM plan.
func (s *ExportService) MonthlyStatement(ctx context.Context, userID string, ref time.Time) ([]byte, error) {
	if err := s.accounts.RequireAccess(ctx, userID, core.PlanPremium); err != nil {
		return nil, err
	}

	summary, err := s.ledger.GetSummaryTotals(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	running, err := s.ledger.GetRunningBalance(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	txs, err := s.ledger.GetTransactions(ctx, userID, "", ref)
	if err != nil {
		return nil, err
	}

	b, err := export.StatementXLSX(export.Statement{
		Month:        ref,
		Summary:      summary,
		Running:      running,
		Transactions: txs,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to render statement", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: render statement", core.ErrDataAccess)
	}
	slog.InfoContext(ctx, "Statement exported", "user_id", userID, "month", core.MonthKey(ref), "transactions", len(txs), "bytes", len(b))
	return b, nil
}
