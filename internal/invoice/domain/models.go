// Package domain contains persistence models for invoice issuance.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradesettle/pkg/money"
	"gorm.io/datatypes"
)

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "DRAFT"
	InvoiceStatusIssued InvoiceStatus = "ISSUED"
	InvoiceStatusVoided InvoiceStatus = "VOIDED"
)

// Invoice is a customer bill for one order. InvoiceNumber is set exactly
// once, when the invoice is issued.
type Invoice struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	CustomerID     snowflake.ID  `gorm:"not null;index" json:"customer_id"`
	OrderID        snowflake.ID  `gorm:"not null;index" json:"order_id"`
	Status         InvoiceStatus `gorm:"type:text;not null;default:'DRAFT'" json:"status"`
	InvoiceNumber  *int64        `gorm:"uniqueIndex" json:"invoice_number,omitempty"`
	SubtotalCents  int64         `gorm:"not null;default:0" json:"subtotal_cents"`
	TotalCents     int64         `gorm:"not null;default:0" json:"total_cents"`
	InvoiceDate    *time.Time    `json:"invoice_date,omitempty"`
	PeriodEnd      *time.Time    `json:"period_end,omitempty"`
	IssuedAt       *time.Time    `json:"issued_at,omitempty"`
	IssuedByUserID *snowflake.ID `json:"issued_by_user_id,omitempty"`

	ApprovalStatus string     `gorm:"type:text;not null;default:''" json:"approval_status"`
	ApprovalNote   string     `gorm:"type:text;not null;default:''" json:"approval_note"`
	RoutedAt       *time.Time `json:"routed_at,omitempty"`
	RoutingOutcome string     `gorm:"type:text;not null;default:''" json:"routing_outcome,omitempty"`
	RoutingReason  string     `gorm:"type:text;not null;default:''" json:"routing_reason,omitempty"`

	SnapshotVersion int            `gorm:"not null;default:0" json:"snapshot_version"`
	IssuedSnapshot  datatypes.JSON `gorm:"type:jsonb" json:"issued_snapshot,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

type LineItemKind string

const (
	LineItemKindLabor     LineItemKind = "LABOR"
	LineItemKindShiftDiff LineItemKind = "SHIFT_DIFF"
	LineItemKindOther     LineItemKind = "OTHER"
)

// LineItem is one billed line. Amount is the unit price; the cent columns are
// derived from Amount and Quantity and never set independently.
type LineItem struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID      snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	Kind           LineItemKind    `gorm:"type:text;not null;default:'LABOR'" json:"kind"`
	EarningCode    string          `gorm:"type:text;not null;default:''" json:"earning_code"`
	Description    string          `gorm:"type:text" json:"description"`
	Quantity       decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"quantity"`
	Amount         decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"amount"`
	UnitRateCents  int64           `gorm:"not null" json:"unit_rate_cents"`
	LineTotalCents int64           `gorm:"not null" json:"line_total_cents"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "invoice_line_items" }

// Recompute derives the cent columns from Amount and Quantity.
func (l *LineItem) Recompute() {
	l.UnitRateCents = money.ToCents(l.Amount)
	l.LineTotalCents = money.CentsOfProduct(l.Amount, l.Quantity)
}

// NumberCounter is the single-row invoice number sequence.
type NumberCounter struct {
	ID           int   `gorm:"primaryKey;autoIncrement:false"`
	CurrentValue int64 `gorm:"not null"`
}

// TableName sets the database table name.
func (NumberCounter) TableName() string { return "invoice_number_counters" }

const CounterRowID = 1
