package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradesettle/internal/customer/domain"
	"github.com/smallbiznis/tradesettle/pkg/repository"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	if id == 0 {
		return nil, nil
	}
	return repository.ProvideStore[domain.Customer](db).FindOne(ctx, &domain.Customer{ID: id})
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]domain.Customer, error) {
	out := make(map[snowflake.ID]domain.Customer, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := repository.ProvideStore[domain.Customer](db).Find(ctx, &domain.Customer{}, repository.Where("id IN ?", ids))
	if err != nil {
		return nil, err
	}
	for _, c := range rows {
		out[c.ID] = *c
	}
	return out, nil
}
