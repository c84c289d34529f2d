package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	GetOrderSite(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*OrderSite, error)
	CountEntriesByStatus(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (StatusCounts, error)
	// ListApprovedEntries returns APPROVED, official entries of an order with their lines.
	ListApprovedEntries(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]HourEntry, error)
	// ListApprovedEntriesOverlapping returns APPROVED, official entries whose
	// period overlaps [from, to).
	ListApprovedEntriesOverlapping(ctx context.Context, db *gorm.DB, from, to time.Time) ([]HourEntry, error)
	ListOrderSites(ctx context.Context, db *gorm.DB, orderIDs []snowflake.ID) (map[snowflake.ID]OrderSite, error)
	ListEmployees(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]Employee, error)
	// ListActiveDeductions returns active deductions effective on or before
	// weekEnd and not ended before weekStart.
	ListActiveDeductions(ctx context.Context, db *gorm.DB, employeeIDs []snowflake.ID, weekStart, weekEnd time.Time) ([]PayrollDeduction, error)
}

var (
	ErrOrderNotFound = errors.New("order_not_found")
)

// Lines flattens the lines of the given entries.
func Lines(entries []HourEntry) []HourEntryLine {
	var out []HourEntryLine
	for _, e := range entries {
		out = append(out, e.Lines...)
	}
	return out
}
