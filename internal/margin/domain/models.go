// Package domain holds the trade margin snapshot: the one immutable record of
// an invoice's revenue, labor cost and burden, frozen at its first payment.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Snapshot struct {
	ID                       snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID                snowflake.ID    `gorm:"not null;uniqueIndex" json:"invoice_id"`
	StateCode                string          `gorm:"type:text;not null" json:"state_code"`
	TradeRevenuePaidCents    int64           `gorm:"not null" json:"trade_revenue_paid_cents"`
	TradeLaborCostCents      int64           `gorm:"not null" json:"trade_labor_cost_cents"`
	TradeBurdenCostCents     int64           `gorm:"not null" json:"trade_burden_cost_cents"`
	TradeMarginCents         int64           `gorm:"not null" json:"trade_margin_cents"`
	CommissionRateSnapshot   decimal.Decimal `gorm:"type:numeric(8,6);not null" json:"commission_rate_snapshot"`
	BankLagDaysSnapshot      int             `gorm:"not null" json:"bank_lag_days_snapshot"`
	PostingGraceDaysSnapshot int             `gorm:"not null" json:"posting_grace_days_snapshot"`
	BurdenBreakdown          datatypes.JSON  `gorm:"type:jsonb" json:"burden_breakdown"`
	CreatedAt                time.Time       `gorm:"not null" json:"created_at"`
}

func (Snapshot) TableName() string { return "trade_margin_snapshots" }

// Result tags whether the snapshot was created by this call or already existed.
type Result struct {
	Snapshot *Snapshot
	Created  bool
}
