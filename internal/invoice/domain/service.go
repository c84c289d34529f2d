package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradesettle/internal/approval"
	"gorm.io/gorm"
)

type IssueRequest struct {
	InvoiceID      snowflake.ID
	IssuedByUserID snowflake.ID
}

type Service interface {
	GetByID(ctx context.Context, id snowflake.ID) (*Invoice, error)
	// Issue moves a DRAFT invoice to ISSUED. A blocked routing decision is
	// persisted on the invoice and returned as *RoutingError.
	Issue(ctx context.Context, req IssueRequest) (*Invoice, error)
	RecordAdminOverride(ctx context.Context, id snowflake.ID, note string) (*Invoice, error)
	RecordCustomerApproval(ctx context.Context, id snowflake.ID) (*Invoice, error)
	Snapshot(ctx context.Context, id snowflake.ID) (*IssuedSnapshot, error)
}

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Invoice, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]Invoice, error)
	ListLineItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]LineItem, error)
	DeleteLineItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, kind LineItemKind) error
	InsertLineItems(ctx context.Context, db *gorm.DB, items []LineItem) error
	// UpdateLineItemCents writes the derived cent columns of items.
	UpdateLineItemCents(ctx context.Context, db *gorm.DB, items []LineItem) error
	// NextInvoiceNumber increments the counter row under its row lock and
	// returns the value it held before the increment.
	NextInvoiceNumber(ctx context.Context, db *gorm.DB, start int64) (int64, error)
	MarkIssued(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	SaveRouting(ctx context.Context, db *gorm.DB, id snowflake.ID, routedAt time.Time, outcome, reason string) error
	SaveApproval(ctx context.Context, db *gorm.DB, id snowflake.ID, status, note string, updatedAt time.Time) error
}

var (
	ErrInvalidInvoiceID           = errors.New("invalid_invoice_id")
	ErrInvalidIssuer              = errors.New("invalid_issued_by_user_id")
	ErrInvoiceNotFound            = errors.New("invoice_not_found")
	ErrInvoiceNotDraft            = errors.New("invoice_not_draft")
	ErrInvoiceAlreadyNumbered     = errors.New("invoice_already_numbered")
	ErrPendingHours               = errors.New("pending_hours_remain")
	ErrRejectedHours              = errors.New("rejected_hours_remain")
	ErrNoApprovedHours            = errors.New("no_approved_hours")
	ErrMissingBaseRate            = errors.New("missing_base_bill_rate")
	ErrOverrideNoteRequired       = errors.New("override_note_required")
	ErrUnsupportedSnapshotVersion = errors.New("unsupported_snapshot_version")
	ErrRoutingRequired            = errors.New("routing_required")
)

// RoutingError reports an issuance blocked by the approval router.
type RoutingError struct {
	Outcome approval.Outcome
	Reasons []string
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", ErrRoutingRequired, e.Outcome, strings.Join(e.Reasons, "; "))
}

func (e *RoutingError) Is(target error) bool {
	return target == ErrRoutingRequired
}
