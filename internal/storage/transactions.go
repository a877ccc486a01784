package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"organify/internal/core"
)

const transactionSelect = `
SELECT t.id, t.user_id, t.description, t.amount, t.date, t.type, t.status,
       t.category_id, c.name, t.created_at, t.updated_at
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id`

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t            core.Transaction
		date         string
		categoryID   sql.NullString
		categoryName sql.NullString
		createdAt    string
		updatedAt    string
	)
	err := s.Scan(&t.ID, &t.UserID, &t.Description, &t.Amount.Cents, &date, &t.Type, &t.Status,
		&categoryID, &categoryName, &createdAt, &updatedAt)
	if err != nil {
		return core.Transaction{}, err
	}
	t.Date = parseDate(date)
	if categoryID.Valid {
		t.CategoryID = categoryID.String
		t.Category = &core.CategoryRef{ID: categoryID.String, Name: categoryName.String}
	}
	t.CreatedAt = parseTimestamp(createdAt)
	t.UpdatedAt = parseTimestamp(updatedAt)
	return t, nil
}

// CreateTransaction inserts t for its owner. A category id, when given, must
// belong to the same owner or nothing is written.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t.ID = newID()
	ts := now()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, description, amount, date, type, status, category_id, created_at, updated_at)
		SELECT ?, ?, ?, ?, ?, ?, ?, ?, ?, ?
		WHERE ? = '' OR EXISTS (SELECT 1 FROM categories WHERE id = ? AND user_id = ?)`,
		t.ID, t.UserID, t.Description, t.Amount.Cents, t.Date.String(), string(t.Type), string(t.Status),
		nullString(t.CategoryID), ts, ts,
		t.CategoryID, t.CategoryID, t.UserID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return core.Transaction{}, fmt.Errorf("create transaction owner: %w", core.ErrNotFound)
		}
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	if err := expectAffected(res, "create transaction category"); err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"user_id", t.UserID,
		"type", t.Type,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.String())

	return r.GetTransaction(ctx, t.UserID, t.ID)
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, transactionSelect+` WHERE t.id = ? AND t.user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, notFoundOnNoRows(err, "get transaction")
	}
	return t, nil
}

// UpdateTransaction applies the non nil fields of p in one owner scoped statement.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID, id string, p core.TransactionPatch) (core.Transaction, error) {
	var (
		desc, date, typ, status sql.NullString
		setCategory             bool
		categoryID              string
	)
	if p.Description != nil {
		desc = sql.NullString{String: *p.Description, Valid: true}
	}
	if p.Date != nil {
		date = sql.NullString{String: p.Date.String(), Valid: true}
	}
	if p.Type != nil {
		typ = sql.NullString{String: string(*p.Type), Valid: true}
	}
	if p.Status != nil {
		status = sql.NullString{String: string(*p.Status), Valid: true}
	}
	if p.CategoryID != nil {
		setCategory = true
		categoryID = *p.CategoryID
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET
			description = COALESCE(?, description),
			amount = COALESCE(?, amount),
			date = COALESCE(?, date),
			type = COALESCE(?, type),
			status = COALESCE(?, status),
			category_id = CASE WHEN ? THEN NULLIF(?, '') ELSE category_id END,
			mirror_status = 'pending',
			mirror_version = mirror_version + 1,
			updated_at = ?
		WHERE id = ? AND user_id = ?
		  AND (? = '' OR EXISTS (SELECT 1 FROM categories WHERE id = ? AND user_id = ?))`,
		desc, nullMoney(p.Amount), date, typ, status,
		setCategory, categoryID,
		now(),
		id, userID,
		categoryID, categoryID, userID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := expectAffected(res, "update transaction"); err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction updated", "id", id, "user_id", userID)
	return r.GetTransaction(ctx, userID, id)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if err := expectAffected(res, "delete transaction"); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted", "id", id, "user_id", userID)
	return nil
}

// ListTransactions returns the owner's transactions dated within [from, to],
// newest first. An empty typ means every type.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, typ core.TransactionType, from, to core.Date) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, transactionSelect+`
		WHERE t.user_id = ? AND t.date >= ? AND t.date <= ? AND (? = '' OR t.type = ?)
		ORDER BY t.date DESC, t.created_at DESC`,
		userID, from.String(), to.String(), string(typ), string(typ))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func sumByType(ctx context.Context, q queryer, userID string, from *core.Date, to core.Date) (core.TypeTotals, error) {
	query := `SELECT type, COALESCE(SUM(amount), 0) FROM transactions WHERE user_id = ? AND date <= ?`
	args := []any{userID, to.String()}
	if from != nil {
		query += ` AND date >= ?`
		args = append(args, from.String())
	}
	query += ` GROUP BY type`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sum transactions by type: %w", err)
	}
	defer rows.Close()

	totals := core.TypeTotals{}
	for rows.Next() {
		var (
			typ string
			sum int64
		)
		if err := rows.Scan(&typ, &sum); err != nil {
			return nil, fmt.Errorf("scan type total: %w", err)
		}
		totals[core.TransactionType(typ)] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate type totals: %w", err)
	}
	return totals, nil
}

// MonthTotals sums the owner's transactions dated within [from, to] by type.
func (r *SQLiteRepository) MonthTotals(ctx context.Context, userID string, from, to core.Date) (core.TypeTotals, error) {
	return sumByType(ctx, r.db, userID, &from, to)
}

// RunningTotals sums every transaction dated on or before to, by type, from
// a single transactional snapshot.
func (r *SQLiteRepository) RunningTotals(ctx context.Context, userID string, to core.Date) (core.TypeTotals, error) {
	var totals core.TypeTotals
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		totals, err = sumByType(ctx, tx, userID, nil, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return totals, nil
}

// TransactionForMirror loads a transaction by id regardless of owner, with
// the mirror version it was read at. It is used by the background mirror only.
func (r *SQLiteRepository) TransactionForMirror(ctx context.Context, id string) (core.Transaction, int64, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT t.id, t.user_id, t.description, t.amount, t.date, t.type, t.status,
       t.category_id, c.name, t.created_at, t.updated_at, t.mirror_version
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id
WHERE t.id = ?`, id)

	var version int64
	t, err := scanTransaction(versionScanner{row, &version})
	if err != nil {
		return core.Transaction{}, 0, notFoundOnNoRows(err, "get transaction for mirror")
	}
	return t, version, nil
}

// versionScanner appends the mirror version to a transaction row scan.
type versionScanner struct {
	s       scanner
	version *int64
}

func (v versionScanner) Scan(dest ...any) error {
	return v.s.Scan(append(dest, v.version)...)
}

// PendingMirror returns ids of transactions not yet mirrored, oldest first.
func (r *SQLiteRepository) PendingMirror(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM transactions WHERE mirror_status = 'pending' ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending mirror transactions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan pending id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkMirrored records the external row reference of a mirrored transaction.
// The row stays pending when it was edited after version was read; the bool
// reports whether it was marked.
func (r *SQLiteRepository) MarkMirrored(ctx context.Context, id, ref string, version int64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET mirror_status = 'synced', mirror_ref = ? WHERE id = ? AND mirror_version = ?`,
		ref, id, version)
	if err != nil {
		return false, fmt.Errorf("mark transaction mirrored: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark transaction mirrored: %w", err)
	}
	if n == 0 {
		slog.DebugContext(ctx, "Transaction changed while mirroring, left pending", "id", id)
		return false, nil
	}
	slog.InfoContext(ctx, "Transaction marked as mirrored", "id", id, "ref", ref)
	return true, nil
}

// MarkMirrorError flags a transaction whose mirror write failed.
func (r *SQLiteRepository) MarkMirrorError(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET mirror_status = 'error' WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark transaction mirror error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with mirror error", "id", id)
	return nil
}
