package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Payment is an append-only receipt against an issued invoice.
// PaymentReceivedAt <= PaymentPostedAt <= BankDepositAt (when set).
type Payment struct {
	ID                snowflake.ID  `json:"id" gorm:"primaryKey"`
	InvoiceID         snowflake.ID  `json:"invoice_id" gorm:"not null;index"`
	AmountCents       int64         `json:"amount_cents" gorm:"not null"`
	PaymentReceivedAt time.Time     `json:"payment_received_at" gorm:"not null"`
	PaymentPostedAt   time.Time     `json:"payment_posted_at" gorm:"not null"`
	BankDepositAt     *time.Time    `json:"bank_deposit_at,omitempty"`
	Reference         string        `json:"reference" gorm:"type:text;not null;default:''"`
	Justification     string        `json:"justification,omitempty" gorm:"type:text;not null;default:''"`
	RecordedByUserID  *snowflake.ID `json:"recorded_by_user_id,omitempty"`
	CreatedAt         time.Time     `json:"created_at" gorm:"not null"`
}

func (Payment) TableName() string { return "invoice_payments" }

type RecordRequest struct {
	InvoiceID        snowflake.ID
	Amount           decimal.Decimal
	ReceivedAt       time.Time
	PostedAt         time.Time
	BankDepositAt    *time.Time
	Reference        string
	Justification    string
	RecordedByUserID *snowflake.ID
}

// DuplicateWarning is advisory. It never blocks a payment and is not stored.
type DuplicateWarning struct {
	Message            string         `json:"message"`
	MatchingPaymentIDs []snowflake.ID `json:"matching_payment_ids"`
}

type RecordResult struct {
	Payment          *Payment          `json:"payment"`
	DuplicateWarning *DuplicateWarning `json:"duplicate_warning,omitempty"`
}
