package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"organify/internal/core"
)

// ErrEmailTaken is returned when registering an email twice.
var ErrEmailTaken = errors.New("email already registered")

const userColumns = `id, email, subscription_status, has_completed_onboarding, created_at`

func scanUser(s scanner) (core.User, error) {
	var (
		u         core.User
		plan      sql.NullString
		completed int64
		createdAt string
	)
	if err := s.Scan(&u.ID, &u.Email, &plan, &completed, &createdAt); err != nil {
		return core.User{}, err
	}
	if plan.Valid {
		p := core.Plan(plan.String)
		u.Plan = &p
	}
	u.HasCompletedOnboarding = completed == 1
	u.CreatedAt = parseTimestamp(createdAt)
	return u, nil
}

// CreateUser registers an account owner. Identity issuance lives elsewhere;
// this only records the id every other row is scoped to.
func (r *SQLiteRepository) CreateUser(ctx context.Context, email string) (core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	id := newID()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, created_at) VALUES (?, ?, ?)`,
		id, email, now())
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, fmt.Errorf("create user %s: %w", email, ErrEmailTaken)
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User created", "user_id", id)
	return r.GetUser(ctx, id)
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return core.User{}, notFoundOnNoRows(err, "get user")
	}
	return u, nil
}

func (r *SQLiteRepository) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)))
	u, err := scanUser(row)
	if err != nil {
		return core.User{}, notFoundOnNoRows(err, "get user by email")
	}
	return u, nil
}

// CompleteOnboarding stores the chosen plan and marks onboarding as done.
func (r *SQLiteRepository) CompleteOnboarding(ctx context.Context, id string, plan core.Plan) (core.User, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET subscription_status = ?, has_completed_onboarding = 1 WHERE id = ?`,
		string(plan), id)
	if err != nil {
		return core.User{}, fmt.Errorf("complete onboarding: %w", err)
	}
	if err := expectAffected(res, "complete onboarding"); err != nil {
		return core.User{}, err
	}
	return r.GetUser(ctx, id)
}
