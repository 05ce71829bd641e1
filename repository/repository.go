package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"helperhand-server/apperror"
)

// conn picks the running transaction when there is one.
func conn(ctx context.Context, db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}

// translate maps gorm errors onto the application taxonomy.
func translate(err error, resource, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperror.NotFound(resource)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperror.Conflict("%s already exists", resource)
	case errors.Is(err, context.DeadlineExceeded):
		return apperror.Internal(op+" "+resource+": timed out", err)
	default:
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return err
		}
		return apperror.Internal(op+" "+resource, err)
	}
}
