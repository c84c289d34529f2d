package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradesettle/internal/hours/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) GetOrderSite(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*domain.OrderSite, error) {
	var order domain.Order
	err := db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	site := &domain.OrderSite{Order: order}
	if order.LocationID == nil || *order.LocationID == 0 {
		return site, nil
	}

	var location domain.JobLocation
	err = db.WithContext(ctx).Where("id = ?", *order.LocationID).First(&location).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return site, nil
		}
		return nil, err
	}
	site.Location = &location
	return site, nil
}

func (r *repo) CountEntriesByStatus(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (domain.StatusCounts, error) {
	var rows []struct {
		Status domain.EntryStatus
		Total  int64
	}
	err := db.WithContext(ctx).
		Model(&domain.HourEntry{}).
		Select("status, COUNT(1) AS total").
		Where("order_id = ?", orderID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return domain.StatusCounts{}, err
	}

	var counts domain.StatusCounts
	for _, row := range rows {
		switch row.Status {
		case domain.EntryStatusPending:
			counts.Pending = row.Total
		case domain.EntryStatusApproved:
			counts.Approved = row.Total
		case domain.EntryStatusRejected:
			counts.Rejected = row.Total
		}
	}
	return counts, nil
}

func (r *repo) ListApprovedEntries(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.HourEntry, error) {
	var entries []domain.HourEntry
	err := db.WithContext(ctx).
		Preload("Lines", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Where("order_id = ? AND status = ? AND is_official = ?", orderID, domain.EntryStatusApproved, true).
		Order("period_start ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) ListApprovedEntriesOverlapping(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.HourEntry, error) {
	var entries []domain.HourEntry
	err := db.WithContext(ctx).
		Preload("Lines", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Where("status = ? AND is_official = ?", domain.EntryStatusApproved, true).
		Where("period_start < ? AND period_end >= ?", to.UTC(), from.UTC()).
		Order("employee_id ASC, period_start ASC, id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) ListOrderSites(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) (map[snowflake.ID]domain.OrderSite, error) {
	out := make(map[snowflake.ID]domain.OrderSite, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}

	var orders []domain.Order
	if err := db.WithContext(ctx).Where("id IN ?", orderIDs).Find(&orders).Error; err != nil {
		return nil, err
	}

	locationIDs := make([]snowflake.ID, 0, len(orders))
	for _, o := range orders {
		if o.LocationID != nil && *o.LocationID != 0 {
			locationIDs = append(locationIDs, *o.LocationID)
		}
	}
	locations := map[snowflake.ID]domain.JobLocation{}
	if len(locationIDs) > 0 {
		var rows []domain.JobLocation
		if err := db.WithContext(ctx).Where("id IN ?", locationIDs).Find(&rows).Error; err != nil {
			return nil, err
		}
		for _, l := range rows {
			locations[l.ID] = l
		}
	}

	for _, o := range orders {
		site := domain.OrderSite{Order: o}
		if o.LocationID != nil {
			if l, ok := locations[*o.LocationID]; ok {
				loc := l
				site.Location = &loc
			}
		}
		out[o.ID] = site
	}
	return out, nil
}

func (r *repo) ListEmployees(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]domain.Employee, error) {
	out := make(map[snowflake.ID]domain.Employee, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.Employee
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, e := range rows {
		out[e.ID] = e
	}
	return out, nil
}

func (r *repo) ListActiveDeductions(ctx context.Context, db *gorm.DB, employeeIDs []snowflake.ID, weekStart, weekEnd time.Time) ([]domain.PayrollDeduction, error) {
	if len(employeeIDs) == 0 {
		return nil, nil
	}
	var rows []domain.PayrollDeduction
	err := db.WithContext(ctx).
		Where("employee_id IN ? AND active = ?", employeeIDs, true).
		Where("effective_from < ?", weekEnd.UTC()).
		Where("(effective_to IS NULL OR effective_to >= ?)", weekStart.UTC()).
		Order("employee_id ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
