package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Service interface {
	// SettleForPayment creates the commission events of a payment. Re-running
	// it for the same payment creates nothing new.
	SettleForPayment(ctx context.Context, paymentID snowflake.ID) (*SettleResult, error)
	ListEventsByPayment(ctx context.Context, paymentID snowflake.ID) ([]Event, error)
	// Packet returns the events of payments posted in [from, to).
	Packet(ctx context.Context, from, to time.Time) ([]PacketRow, error)
	PacketCSV(ctx context.Context, from, to time.Time) ([]byte, error)
}

type Repository interface {
	ActiveDefaultRate(ctx context.Context, db *gorm.DB) (decimal.NullDecimal, error)
	// ActivePlan returns nil when no plan is active. Tiers are ordered by
	// sort order, then min days.
	ActivePlan(ctx context.Context, db *gorm.DB) (*Plan, []Tier, error)
	ListAssignments(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]Assignment, error)
	// InsertEvent reports false when the (payment, assignment) pair exists.
	InsertEvent(ctx context.Context, db *gorm.DB, event *Event) (bool, error)
	ListEventsByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]Event, error)
	ListEventsPostedBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]Event, error)
	FindSalespeople(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]Salesperson, error)
}

var (
	ErrInvalidPaymentID = errors.New("invalid_payment_id")
	ErrInvalidRange     = errors.New("invalid_posted_range")
	ErrPaymentNotFound  = errors.New("payment_not_found")
	ErrInvoiceNotFound  = errors.New("invoice_not_found")
)
