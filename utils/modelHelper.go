package utils

import (
	"context"

	"github.com/invoicestream/invoicing_backend/config"
)

// FetchModel fetches a record by id scoped to the owning user.
// Never expose an unscoped "by id only" lookup: the user id filter is the
// tenant boundary for every read in this system.
func FetchModel[T any](ctx context.Context, userId string, id string, associations ...string) (*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("user_id = ?", userId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.Where("id = ?", id).First(&result).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}

// FetchAllModels fetches all of the user's records, optionally ordered.
func FetchAllModels[T any](ctx context.Context, userId string, order string, associations ...string) ([]*T, error) {
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("user_id = ?", userId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	if order != "" {
		dbCtx = dbCtx.Order(order)
	}
	var results []*T
	err := dbCtx.Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// ResourceCountWhere counts the user's records matching the condition.
func ResourceCountWhere[T any](ctx context.Context, userId string, cond string, values ...interface{}) (int64, error) {
	db := config.GetDB()
	var model T
	var count int64
	err := db.WithContext(ctx).Model(&model).
		Where("user_id = ?", userId).
		Where(cond, values...).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ValidateResourceId checks that the id exists for the user, returning
// ErrorRecordNotFound otherwise.
func ValidateResourceId[T any](ctx context.Context, userId string, id string) error {
	count, err := ResourceCountWhere[T](ctx, userId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}
