package storage

import (
	"context"
	"fmt"
	"log/slog"

	"organify/internal/core"
)

const plannedColumns = `id, user_id, name, description, amount, deadline, status, created_at`

func scanPlanned(s scanner) (core.PlannedPurchase, error) {
	var (
		p         core.PlannedPurchase
		deadline  string
		createdAt string
	)
	err := s.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Amount.Cents, &deadline, &p.Status, &createdAt)
	if err != nil {
		return core.PlannedPurchase{}, err
	}
	p.Deadline = parseDate(deadline)
	p.CreatedAt = parseTimestamp(createdAt)
	return p, nil
}

func (r *SQLiteRepository) CreatePlannedPurchase(ctx context.Context, p core.PlannedPurchase) (core.PlannedPurchase, error) {
	p.ID = newID()
	if p.Status == "" {
		p.Status = core.PlannedPending
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO planned_purchases (id, user_id, name, description, amount, deadline, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.Description, p.Amount.Cents, p.Deadline.String(), string(p.Status), now())
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.PlannedPurchase{}, fmt.Errorf("create planned purchase owner: %w", core.ErrNotFound)
		}
		return core.PlannedPurchase{}, fmt.Errorf("create planned purchase: %w", err)
	}

	slog.InfoContext(ctx, "Planned purchase created", "id", p.ID, "user_id", p.UserID, "deadline", p.Deadline.String())
	return r.GetPlannedPurchase(ctx, p.UserID, p.ID)
}

func (r *SQLiteRepository) GetPlannedPurchase(ctx context.Context, userID, id string) (core.PlannedPurchase, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+plannedColumns+` FROM planned_purchases WHERE id = ? AND user_id = ?`, id, userID)
	p, err := scanPlanned(row)
	if err != nil {
		return core.PlannedPurchase{}, notFoundOnNoRows(err, "get planned purchase")
	}
	return p, nil
}

// ListPlannedPurchases returns the owner's purchases with a deadline within
// [from, to], soonest first.
func (r *SQLiteRepository) ListPlannedPurchases(ctx context.Context, userID string, from, to core.Date) ([]core.PlannedPurchase, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+plannedColumns+` FROM planned_purchases
		WHERE user_id = ? AND deadline >= ? AND deadline <= ?
		ORDER BY deadline ASC, created_at ASC`,
		userID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("list planned purchases: %w", err)
	}
	defer rows.Close()

	out := []core.PlannedPurchase{}
	for rows.Next() {
		p, err := scanPlanned(rows)
		if err != nil {
			return nil, fmt.Errorf("scan planned purchase: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate planned purchases: %w", err)
	}
	return out, nil
}

// UpdatePlannedPurchase replaces the editable fields of an owned purchase.
// The status only moves through TogglePlannedPurchase.
func (r *SQLiteRepository) UpdatePlannedPurchase(ctx context.Context, p core.PlannedPurchase) (core.PlannedPurchase, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE planned_purchases
		SET name = ?, description = ?, amount = ?, deadline = ?
		WHERE id = ? AND user_id = ?
		RETURNING `+plannedColumns,
		p.Name, p.Description, p.Amount.Cents, p.Deadline.String(), p.ID, p.UserID)
	updated, err := scanPlanned(row)
	if err != nil {
		return core.PlannedPurchase{}, notFoundOnNoRows(err, "update planned purchase")
	}
	slog.InfoContext(ctx, "Planned purchase updated", "id", p.ID, "user_id", p.UserID)
	return updated, nil
}

// TogglePlannedPurchase flips PENDING and PURCHASED in a single statement.
func (r *SQLiteRepository) TogglePlannedPurchase(ctx context.Context, userID, id string) (core.PlannedPurchase, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE planned_purchases
		SET status = CASE status WHEN 'PURCHASED' THEN 'PENDING' ELSE 'PURCHASED' END
		WHERE id = ? AND user_id = ?
		RETURNING `+plannedColumns, id, userID)
	p, err := scanPlanned(row)
	if err != nil {
		return core.PlannedPurchase{}, notFoundOnNoRows(err, "toggle planned purchase")
	}
	slog.InfoContext(ctx, "Planned purchase toggled", "id", id, "status", p.Status)
	return p, nil
}

func (r *SQLiteRepository) DeletePlannedPurchase(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM planned_purchases WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete planned purchase: %w", err)
	}
	if err := expectAffected(res, "delete planned purchase"); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Planned purchase deleted", "id", id, "user_id", userID)
	return nil
}
