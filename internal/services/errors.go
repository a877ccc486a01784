package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"organify/internal/core"
	applog "organify/internal/log"
)

// requireUser fails fast when the caller has no resolved identity.
func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return core.ErrUnauthenticated
	}
	return nil
}

// translate passes domain errors through unchanged and turns anything else
// into core.ErrDataAccess after logging the cause.
func translate(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, core.ErrNotFound),
		errors.Is(err, core.ErrDuplicateCategory),
		errors.Is(err, core.ErrUnauthenticated),
		errors.Is(err, core.ErrForbidden),
		errors.Is(err, core.ErrDataAccess),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}
	if _, ok := core.AsValidation(err); ok {
		return err
	}

	fields := applog.NewFields().WithOperation(op).WithError(err)
	applog.FromContext(ctx).ErrorContext(ctx, "Data access failed", fields.ToSlice()...)
	return fmt.Errorf("%w: %s", core.ErrDataAccess, op)
}
