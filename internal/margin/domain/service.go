package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DefaultCommissionRate applies when no active plan carries a rate.
var DefaultCommissionRate = decimal.RequireFromString("0.10")

type Service interface {
	// CreateOrGet returns the invoice's snapshot, creating it from
	// paymentAmountCents when none exists yet.
	CreateOrGet(ctx context.Context, invoiceID snowflake.ID, paymentAmountCents int64) (*Result, error)
	GetByInvoice(ctx context.Context, invoiceID snowflake.ID) (*Snapshot, error)
}

type Repository interface {
	FindByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (*Snapshot, error)
	// Insert reports false when a snapshot for the invoice already exists.
	Insert(ctx context.Context, db *gorm.DB, snapshot *Snapshot) (bool, error)
}

// PlanRateSource supplies the active commission plan's default rate.
type PlanRateSource interface {
	ActiveDefaultRate(ctx context.Context, db *gorm.DB) (decimal.NullDecimal, error)
}

var (
	ErrInvalidInvoiceID = errors.New("invalid_invoice_id")
	ErrInvoiceNotFound  = errors.New("invoice_not_found")
	ErrSnapshotNotFound = errors.New("margin_snapshot_not_found")
)
