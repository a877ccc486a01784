package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"organify/internal/core"
)

const debtColumns = `id, user_id, description, total_amount, start_date, due_date, installments, category, is_paid_off, created_at`

const paymentColumns = `id, debt_id, amount_paid, payment_date, installment_number, notes, created_at`

func scanDebt(s scanner) (core.Debt, error) {
	var (
		d            core.Debt
		startDate    string
		dueDate      sql.NullString
		installments sql.NullInt64
		category     sql.NullString
		paidOff      int64
		createdAt    string
	)
	err := s.Scan(&d.ID, &d.UserID, &d.Description, &d.TotalAmount.Cents, &startDate,
		&dueDate, &installments, &category, &paidOff, &createdAt)
	if err != nil {
		return core.Debt{}, err
	}
	d.StartDate = parseDate(startDate)
	d.DueDate = datePtr(dueDate)
	d.Installments = intPtr(installments)
	d.Category = stringPtr(category)
	d.IsPaidOff = paidOff == 1
	d.CreatedAt = parseTimestamp(createdAt)
	return d, nil
}

func scanPayment(s scanner) (core.DebtPayment, error) {
	var (
		p           core.DebtPayment
		paymentDate string
		installment sql.NullInt64
		notes       sql.NullString
		createdAt   string
	)
	err := s.Scan(&p.ID, &p.DebtID, &p.AmountPaid.Cents, &paymentDate, &installment, &notes, &createdAt)
	if err != nil {
		return core.DebtPayment{}, err
	}
	p.PaymentDate = parseDate(paymentDate)
	p.InstallmentNumber = intPtr(installment)
	p.Notes = stringPtr(notes)
	p.CreatedAt = parseTimestamp(createdAt)
	return p, nil
}

// reconcilePayoff recomputes is_paid_off for one debt from its payments.
// It must run inside the transaction that changed the payments or the total.
func reconcilePayoff(ctx context.Context, q queryer, debtID string) (bool, error) {
	var (
		total   int64
		current int64
		paid    int64
	)
	err := q.QueryRowContext(ctx, `
		SELECT d.total_amount, d.is_paid_off,
		       COALESCE((SELECT SUM(amount_paid) FROM debt_payments WHERE debt_id = d.id), 0)
		FROM debts d WHERE d.id = ?`, debtID).Scan(&total, &current, &paid)
	if err != nil {
		return false, notFoundOnNoRows(err, "reconcile debt")
	}

	paidOff := core.IsPaidOff(core.Money{Cents: total}, core.Money{Cents: paid})
	if paidOff == (current == 1) {
		return paidOff, nil
	}

	if _, err := q.ExecContext(ctx, `UPDATE debts SET is_paid_off = ? WHERE id = ?`, boolInt(paidOff), debtID); err != nil {
		return false, fmt.Errorf("update debt payoff flag: %w", err)
	}
	slog.InfoContext(ctx, "Debt payoff status changed",
		"debt_id", debtID,
		"is_paid_off", paidOff,
		"total_cents", total,
		"paid_cents", paid)
	return paidOff, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *SQLiteRepository) CreateDebt(ctx context.Context, d core.Debt) (core.Debt, error) {
	d.ID = newID()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO debts (id, user_id, description, total_amount, start_date, due_date, installments, category, is_paid_off, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		d.ID, d.UserID, d.Description, d.TotalAmount.Cents, d.StartDate.String(),
		nullDate(d.DueDate), nullIntPtr(d.Installments), nullStringPtr(d.Category), now())
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Debt{}, fmt.Errorf("create debt owner: %w", core.ErrNotFound)
		}
		return core.Debt{}, fmt.Errorf("create debt: %w", err)
	}

	slog.InfoContext(ctx, "Debt created",
		"id", d.ID,
		"user_id", d.UserID,
		"total_cents", d.TotalAmount.Cents)

	return r.getDebt(ctx, r.db, d.UserID, d.ID)
}

func (r *SQLiteRepository) getDebt(ctx context.Context, q queryer, userID, id string) (core.Debt, error) {
	row := q.QueryRowContext(ctx, `SELECT `+debtColumns+` FROM debts WHERE id = ? AND user_id = ?`, id, userID)
	d, err := scanDebt(row)
	if err != nil {
		return core.Debt{}, notFoundOnNoRows(err, "get debt")
	}
	return d, nil
}

func (r *SQLiteRepository) listPayments(ctx context.Context, q queryer, debtID string) ([]core.DebtPayment, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM debt_payments WHERE debt_id = ? ORDER BY payment_date ASC, created_at ASC`, debtID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	out := []core.DebtPayment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return out, nil
}

// GetDebt returns one debt with its payments and derived amounts.
func (r *SQLiteRepository) GetDebt(ctx context.Context, userID, id string) (core.DebtView, error) {
	d, err := r.getDebt(ctx, r.db, userID, id)
	if err != nil {
		return core.DebtView{}, err
	}
	payments, err := r.listPayments(ctx, r.db, d.ID)
	if err != nil {
		return core.DebtView{}, err
	}
	return core.NewDebtView(d, payments), nil
}

// ListDebts returns every debt of the owner, newest first, with payments.
func (r *SQLiteRepository) ListDebts(ctx context.Context, userID string) ([]core.DebtView, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+debtColumns+` FROM debts WHERE user_id = ? ORDER BY created_at DESC, id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	var debts []core.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		debts = append(debts, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate debts: %w", err)
	}

	// Rows must be closed before issuing more queries on a single connection.
	views := make([]core.DebtView, 0, len(debts))
	for _, d := range debts {
		payments, err := r.listPayments(ctx, r.db, d.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, core.NewDebtView(d, payments))
	}
	return views, nil
}

// UpdateDebt applies p to the owner's debt. A changed total re-derives the
// payoff flag within the same transaction.
func (r *SQLiteRepository) UpdateDebt(ctx context.Context, userID, id string, p core.DebtPatch) (core.DebtView, error) {
	var desc sql.NullString
	if p.Description != nil {
		desc = sql.NullString{String: *p.Description, Valid: true}
	}

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE debts SET
				description = COALESCE(?, description),
				total_amount = COALESCE(?, total_amount),
				start_date = COALESCE(?, start_date),
				due_date = COALESCE(?, due_date),
				installments = COALESCE(?, installments),
				category = COALESCE(?, category)
			WHERE id = ? AND user_id = ?`,
			desc, nullMoney(p.TotalAmount), nullDate(p.StartDate), nullDate(p.DueDate),
			nullIntPtr(p.Installments), nullStringPtr(p.Category),
			id, userID)
		if err != nil {
			return fmt.Errorf("update debt: %w", err)
		}
		if err := expectAffected(res, "update debt"); err != nil {
			return err
		}
		if p.TotalAmount != nil {
			if _, err := reconcilePayoff(ctx, tx, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return core.DebtView{}, err
	}

	slog.InfoContext(ctx, "Debt updated", "id", id, "user_id", userID)
	return r.GetDebt(ctx, userID, id)
}

// DeleteDebt removes the debt and all of its payments atomically.
func (r *SQLiteRepository) DeleteDebt(ctx context.Context, userID, id string) error {
	var removed int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.getDebt(ctx, tx, userID, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM debt_payments WHERE debt_id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete debt payments: %w", err)
		}
		removed, _ = res.RowsAffected()

		res, err = tx.ExecContext(ctx, `DELETE FROM debts WHERE id = ? AND user_id = ?`, id, userID)
		if err != nil {
			return fmt.Errorf("delete debt: %w", err)
		}
		return expectAffected(res, "delete debt")
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Debt deleted", "id", id, "user_id", userID, "payments_removed", removed)
	return nil
}

// AddPayment records a payment against the owner's debt and re-derives the
// payoff flag before committing.
func (r *SQLiteRepository) AddPayment(ctx context.Context, userID, debtID string, p core.DebtPayment) (core.DebtPayment, error) {
	p.ID = newID()
	p.DebtID = debtID
	var paidOff bool

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.getDebt(ctx, tx, userID, debtID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO debt_payments (id, debt_id, amount_paid, payment_date, installment_number, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, debtID, p.AmountPaid.Cents, p.PaymentDate.String(),
			nullIntPtr(p.InstallmentNumber), nullStringPtr(p.Notes), now())
		if err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		paidOff, err = reconcilePayoff(ctx, tx, debtID)
		return err
	})
	if err != nil {
		return core.DebtPayment{}, err
	}

	slog.InfoContext(ctx, "Debt payment added",
		"id", p.ID,
		"debt_id", debtID,
		"amount_cents", p.AmountPaid.Cents,
		"is_paid_off", paidOff)

	return r.getPayment(ctx, r.db, userID, p.ID)
}

func (r *SQLiteRepository) getPayment(ctx context.Context, q queryer, userID, id string) (core.DebtPayment, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM debt_payments
		WHERE id = ? AND debt_id IN (SELECT id FROM debts WHERE user_id = ?)`, id, userID)
	p, err := scanPayment(row)
	if err != nil {
		return core.DebtPayment{}, notFoundOnNoRows(err, "get payment")
	}
	return p, nil
}

// UpdatePayment edits a payment on one of the owner's debts and re-derives
// the parent's payoff flag. A non empty debtID must name the payment's debt.
func (r *SQLiteRepository) UpdatePayment(ctx context.Context, userID, id, debtID string, p core.PaymentPatch) (core.DebtPayment, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := r.getPayment(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		if debtID != "" && existing.DebtID != debtID {
			slog.WarnContext(ctx, "Payment does not belong to debt", "id", id, "debt_id", debtID)
			return fmt.Errorf("update payment: %w", core.ErrNotFound)
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE debt_payments SET
				amount_paid = COALESCE(?, amount_paid),
				payment_date = COALESCE(?, payment_date),
				installment_number = COALESCE(?, installment_number),
				notes = COALESCE(?, notes)
			WHERE id = ? AND debt_id = ?`,
			nullMoney(p.AmountPaid), nullDate(p.PaymentDate), nullIntPtr(p.InstallmentNumber), nullStringPtr(p.Notes),
			id, existing.DebtID)
		if err != nil {
			return fmt.Errorf("update payment: %w", err)
		}
		if err := expectAffected(res, "update payment"); err != nil {
			return err
		}
		_, err = reconcilePayoff(ctx, tx, existing.DebtID)
		return err
	})
	if err != nil {
		return core.DebtPayment{}, err
	}

	slog.InfoContext(ctx, "Debt payment updated", "id", id, "user_id", userID)
	return r.getPayment(ctx, r.db, userID, id)
}

// DeletePayment removes a payment and re-derives the parent's payoff flag.
func (r *SQLiteRepository) DeletePayment(ctx context.Context, userID, id string) error {
	var debtID string
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			DELETE FROM debt_payments
			WHERE id = ? AND debt_id IN (SELECT id FROM debts WHERE user_id = ?)
			RETURNING debt_id`, id, userID).Scan(&debtID)
		if err != nil {
			return notFoundOnNoRows(err, "delete payment")
		}
		_, err = reconcilePayoff(ctx, tx, debtID)
		return err
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Debt payment deleted", "id", id, "debt_id", debtID)
	return nil
}
