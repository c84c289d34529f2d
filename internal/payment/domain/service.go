package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	Record(ctx context.Context, req RecordRequest) (*RecordResult, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Payment, error)
	ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]Payment, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	// ListByInvoice orders payments by received, then posted time, then id.
	ListByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]Payment, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]Payment, error)
}

const MinJustificationLength = 5

var (
	ErrInvalidInvoiceID      = errors.New("invalid_invoice_id")
	ErrInvalidPaymentID      = errors.New("invalid_payment_id")
	ErrInvalidAmount         = errors.New("invalid_amount")
	ErrMissingTimestamps     = errors.New("missing_payment_timestamps")
	ErrReceivedAfterPosted   = errors.New("received_after_posted")
	ErrPostedAfterDeposit    = errors.New("posted_after_deposit")
	ErrJustificationRequired = errors.New("backdate_justification_required")
	ErrInvoiceNotFound       = errors.New("invoice_not_found")
	ErrInvoiceDraft          = errors.New("invoice_not_issued")
	ErrInvoiceVoided         = errors.New("invoice_voided")
	ErrPaymentNotFound       = errors.New("payment_not_found")
)
