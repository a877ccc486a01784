package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"organify/internal/core"
)

const categoryColumns = `id, user_id, name, normalized_name, type, created_at`

func scanCategory(s scanner) (core.Category, error) {
	var (
		c         core.Category
		createdAt string
	)
	if err := s.Scan(&c.ID, &c.UserID, &c.Name, &c.NormalizedName, &c.Type, &createdAt); err != nil {
		return core.Category{}, err
	}
	c.CreatedAt = parseTimestamp(createdAt)
	return c, nil
}

// CreateCategory stores c under its owner. Two names that normalize to the
// same key collide and yield core.ErrDuplicateCategory.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	c.ID = newID()
	c.Name = strings.TrimSpace(c.Name)
	c.NormalizedName = core.Normalize(c.Name)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, normalized_name, type, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.UserID, c.Name, c.NormalizedName, string(c.Type), now())
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, fmt.Errorf("create category %q: %w", c.Name, core.ErrDuplicateCategory)
		}
		if isForeignKeyViolation(err) {
			return core.Category{}, fmt.Errorf("create category owner: %w", core.ErrNotFound)
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category created",
		"id", c.ID,
		"user_id", c.UserID,
		"normalized_name", c.NormalizedName)

	return r.GetCategory(ctx, c.UserID, c.ID)
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, notFoundOnNoRows(err, "get category")
	}
	return c, nil
}

// ListCategories returns the owner's categories ordered by name.
func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY name COLLATE NOCASE ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// UpdateCategory renames or retypes a category. A rename recomputes the
// normalized key and is subject to the same uniqueness rule as create.
func (r *SQLiteRepository) UpdateCategory(ctx context.Context, userID, id string, p core.CategoryPatch) (core.Category, error) {
	var name, normalized, typ sql.NullString
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		name = sql.NullString{String: n, Valid: true}
		normalized = sql.NullString{String: core.Normalize(n), Valid: true}
	}
	if p.Type != nil {
		typ = sql.NullString{String: string(*p.Type), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET
			name = COALESCE(?, name),
			normalized_name = COALESCE(?, normalized_name),
			type = COALESCE(?, type)
		WHERE id = ? AND user_id = ?`,
		name, normalized, typ, id, userID)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, fmt.Errorf("rename category %q: %w", name.String, core.ErrDuplicateCategory)
		}
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if err := expectAffected(res, "update category"); err != nil {
		return core.Category{}, err
	}

	slog.InfoContext(ctx, "Category updated", "id", id, "user_id", userID)
	return r.GetCategory(ctx, userID, id)
}

// DeleteCategory removes a category. Transactions referencing it keep their
// data and lose the link.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if err := expectAffected(res, "delete category"); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Category deleted", "id", id, "user_id", userID)
	return nil
}

// SeedCategories inserts defaults for the owner, skipping names already
// present under the same normalized key. It returns how many were added.
func (r *SQLiteRepository) SeedCategories(ctx context.Context, userID string, defaults []core.DefaultCategory) (int, error) {
	added := 0
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		ts := now()
		for _, d := range defaults {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO categories (id, user_id, name, normalized_name, type, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT (user_id, normalized_name) DO NOTHING`,
				newID(), userID, d.Name, core.Normalize(d.Name), string(d.Type), ts)
			if err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("seed categories owner: %w", core.ErrNotFound)
				}
				return fmt.Errorf("seed category %q: %w", d.Name, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("seed category rows affected: %w", err)
			}
			added += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Default categories seeded", "user_id", userID, "added", added)
	return added, nil
}
