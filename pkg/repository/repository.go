package repository

import (
	"context"

	"gorm.io/gorm"
)

// QueryOption mutates a query before it is executed.
type QueryOption func(*gorm.DB) *gorm.DB

// Repository is a thin generic gorm store for lookup tables maintained
// upstream of settlement.
type Repository[T any] interface {
	Find(ctx context.Context, query *T, opts ...QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Count(ctx context.Context, query *T) (int64, error)
}

func OrderBy(expr string) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order(expr)
	}
}

// Where adds a raw condition.
func Where(query string, args ...any) QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	}
}
