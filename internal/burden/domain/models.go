package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type RateType string

const (
	RateWorkersComp RateType = "WC"
	RateFICA        RateType = "FICA"
	RateFUTA        RateType = "FUTA"
	RateSUTA        RateType = "SUTA"
	RateGL          RateType = "GL"
	RatePEO         RateType = "PEO"
)

// WageFollowingTypes are applied to the full labor cost.
var WageFollowingTypes = []RateType{RateFICA, RateFUTA, RateSUTA, RateGL, RatePEO}

// BurdenRate is a percentage effective over [EffectiveFrom, EffectiveTo].
// A nil StateCode marks a rate that applies to every state.
type BurdenRate struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	StateCode     *string         `gorm:"type:text;index"`
	RateType      RateType        `gorm:"type:text;not null"`
	RatePercent   decimal.Decimal `gorm:"type:numeric(8,4);not null"`
	EffectiveFrom time.Time       `gorm:"not null"`
	EffectiveTo   *time.Time
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (BurdenRate) TableName() string { return "burden_rates" }

// Rates are the percentages resolved for one state and date.
type Rates struct {
	WorkersComp decimal.NullDecimal
	FICA        decimal.Decimal
	FUTA        decimal.Decimal
	SUTA        decimal.Decimal
	GL          decimal.Decimal
	PEO         decimal.Decimal
}

// WageFollowingPercent sums FICA, FUTA, SUTA, GL and PEO.
func (r Rates) WageFollowingPercent() decimal.Decimal {
	return r.FICA.Add(r.FUTA).Add(r.SUTA).Add(r.GL).Add(r.PEO)
}

// LaborBucket is labor cost grouped by trade, earning code and unit.
type LaborBucket struct {
	TradeID     *snowflake.ID   `json:"trade_id,omitempty"`
	EarningCode string          `json:"earning_code"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	Cost        decimal.Decimal `json:"cost"`
}

// Breakdown is the structured result of a burden computation. It is stored
// verbatim on the margin snapshot.
type Breakdown struct {
	StateCode         string          `json:"state_code"`
	EffectiveDate     time.Time       `json:"effective_date"`
	LaborCost         decimal.Decimal `json:"labor_cost"`
	BaseWages         decimal.Decimal `json:"base_wages"`
	WorkersCompRate   decimal.Decimal `json:"workers_comp_rate"`
	WorkersCompCost   decimal.Decimal `json:"workers_comp_cost"`
	FICARate          decimal.Decimal `json:"fica_rate"`
	FUTARate          decimal.Decimal `json:"futa_rate"`
	SUTARate          decimal.Decimal `json:"suta_rate"`
	GLRate            decimal.Decimal `json:"gl_rate"`
	PEORate           decimal.Decimal `json:"peo_rate"`
	WageFollowingRate decimal.Decimal `json:"wage_following_rate"`
	WageFollowingCost decimal.Decimal `json:"wage_following_cost"`
	TotalBurden       decimal.Decimal `json:"total_burden"`
	Buckets           []LaborBucket   `json:"buckets"`
}
