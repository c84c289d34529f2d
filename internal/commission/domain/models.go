package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Plan is a commission plan. At most one plan is active at a time; when
// several are flagged active the most recently created wins.
type Plan struct {
	ID          snowflake.ID        `gorm:"primaryKey" json:"id"`
	Name        string              `gorm:"type:text;not null" json:"name"`
	IsActive    bool                `gorm:"not null;default:false" json:"is_active"`
	DefaultRate decimal.NullDecimal `gorm:"type:numeric(8,4)" json:"default_rate"`
	CreatedAt   time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Plan) TableName() string { return "commission_plans" }

// Tier maps a days-to-paid range to a payout multiplier. A nil MaxDays is
// open-ended.
type Tier struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	PlanID     snowflake.ID    `gorm:"not null;index" json:"plan_id"`
	MinDays    int             `gorm:"not null" json:"min_days"`
	MaxDays    *int            `json:"max_days,omitempty"`
	Multiplier decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"multiplier"`
	SortOrder  int             `gorm:"not null;default:0" json:"sort_order"`
}

func (Tier) TableName() string { return "commission_tiers" }

func (t Tier) Contains(days int) bool {
	if days < t.MinDays {
		return false
	}
	return t.MaxDays == nil || days <= *t.MaxDays
}

// Assignment credits a salesperson with a split of an order's commission.
// SplitPercent is expressed 0-100.
type Assignment struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID       snowflake.ID    `gorm:"not null;index" json:"order_id"`
	UserID        snowflake.ID    `gorm:"not null;index" json:"user_id"`
	SplitPercent  decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"split_percent"`
	EffectiveFrom time.Time       `gorm:"not null" json:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty"`
}

func (Assignment) TableName() string { return "commission_assignments" }

// ActiveAt reports whether t falls inside [EffectiveFrom, EffectiveTo].
func (a Assignment) ActiveAt(t time.Time) bool {
	if t.Before(a.EffectiveFrom) {
		return false
	}
	return a.EffectiveTo == nil || !t.After(*a.EffectiveTo)
}

// Event is the commission earned by one assignment from one payment.
type Event struct {
	ID                     snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoicePaymentID       snowflake.ID    `gorm:"not null;uniqueIndex:ux_commission_events_payment_assignment" json:"invoice_payment_id"`
	CommissionAssignmentID snowflake.ID    `gorm:"not null;uniqueIndex:ux_commission_events_payment_assignment" json:"commission_assignment_id"`
	InvoiceID              snowflake.ID    `gorm:"not null;index" json:"invoice_id"`
	UserID                 snowflake.ID    `gorm:"not null;index" json:"user_id"`
	DaysToPaid             int             `gorm:"not null" json:"days_to_paid"`
	PayoutMultiplier       decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"payout_multiplier"`
	CommissionRate         decimal.Decimal `gorm:"type:numeric(8,4);not null" json:"commission_rate"`
	SplitPercent           decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"split_percent"`
	MarginForPaymentCents  int64           `gorm:"not null" json:"margin_for_payment_cents"`
	RawCommissionCents     int64           `gorm:"not null" json:"raw_commission_cents"`
	PayableCommissionCents int64           `gorm:"not null" json:"payable_commission_cents"`
	IsLatePosted           bool            `gorm:"not null;default:false" json:"is_late_posted"`
	// EarnedAt is when the payment was received; PostedAt when it was posted.
	EarnedAt               time.Time       `gorm:"not null" json:"earned_at"`
	PostedAt               time.Time       `gorm:"not null;index" json:"posted_at"`
	CreatedAt              time.Time       `gorm:"not null" json:"created_at"`
}

func (Event) TableName() string { return "commission_events" }

// Rule is the packet label for the event's aging bucket.
func (e Event) Rule() string {
	return RuleLabel(e.DaysToPaid, e.IsLatePosted)
}

// Salesperson is the read model of a user receiving commission.
type Salesperson struct {
	ID    snowflake.ID `gorm:"primaryKey" json:"id"`
	Email string       `gorm:"type:text" json:"email"`
}

func (Salesperson) TableName() string { return "users" }

type SettleResult struct {
	PaymentID             snowflake.ID    `json:"payment_id"`
	InvoiceID             snowflake.ID    `json:"invoice_id"`
	DaysToPaid            int             `json:"days_to_paid"`
	PayoutMultiplier      decimal.Decimal `json:"payout_multiplier"`
	Proportion            decimal.Decimal `json:"proportion"`
	MarginForPaymentCents int64           `json:"margin_for_payment_cents"`
	IsLatePosted          bool            `json:"is_late_posted"`
	Created               int             `json:"created"`
	Events                []Event         `json:"events"`
}

// PacketRow is one line of the commission packet export.
type PacketRow struct {
	InvoiceNumber         *int64
	InvoiceID             snowflake.ID
	CustomerName          string
	PaymentID             snowflake.ID
	PaymentPostedAt       time.Time
	PaymentAmountCents    int64
	CommissionRateApplied decimal.Decimal
	CommissionCents       int64
	SalespersonUserID     snowflake.ID
	SalespersonEmail      string
	CommissionRule        string
}
