package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradesettle/internal/commission/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) activePlan(ctx context.Context, db *gorm.DB) (*domain.Plan, error) {
	var plan domain.Plan
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC, id DESC").
		First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repo) ActiveDefaultRate(ctx context.Context, db *gorm.DB) (decimal.NullDecimal, error) {
	plan, err := r.activePlan(ctx, db)
	if err != nil || plan == nil {
		return decimal.NullDecimal{}, err
	}
	return plan.DefaultRate, nil
}

func (r *repo) ActivePlan(ctx context.Context, db *gorm.DB) (*domain.Plan, []domain.Tier, error) {
	plan, err := r.activePlan(ctx, db)
	if err != nil || plan == nil {
		return nil, nil, err
	}
	var tiers []domain.Tier
	err = db.WithContext(ctx).
		Where("plan_id = ?", plan.ID).
		Order("sort_order ASC, min_days ASC, id ASC").
		Find(&tiers).Error
	if err != nil {
		return nil, nil, err
	}
	return plan, tiers, nil
}

func (r *repo) ListAssignments(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.Assignment, error) {
	var items []domain.Assignment
	err := db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.Event) (bool, error) {
	result := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "invoice_payment_id"}, {Name: "commission_assignment_id"}},
			DoNothing: true,
		}).
		Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListEventsByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]domain.Event, error) {
	var items []domain.Event
	err := db.WithContext(ctx).
		Where("invoice_payment_id = ?", paymentID).
		Order("commission_assignment_id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListEventsPostedBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.Event, error) {
	var items []domain.Event
	err := db.WithContext(ctx).
		Where("posted_at >= ? AND posted_at < ?", from, to).
		Order("posted_at ASC, invoice_payment_id ASC, id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindSalespeople(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]domain.Salesperson, error) {
	out := make(map[snowflake.ID]domain.Salesperson, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.Salesperson
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, u := range rows {
		out[u.ID] = u
	}
	return out, nil
}
