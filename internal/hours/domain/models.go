// Package domain contains the read models of the hours/orders provider:
// orders, their job sites, approved hour entries and payroll-side employee data.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type EntryStatus string

const (
	EntryStatusPending  EntryStatus = "PENDING"
	EntryStatusApproved EntryStatus = "APPROVED"
	EntryStatusRejected EntryStatus = "REJECTED"
)

// Earning codes carried on hour entry lines.
const (
	CodeREG   = "REG"
	CodeOT    = "OT"
	CodeDT    = "DT"
	CodeHOL   = "HOL"
	CodeBONUS = "BONUS"
	CodeREM   = "REM"
	CodePD    = "PD"
	CodeREGSD = "REG_SD"
	CodeOTSD  = "OT_SD"
	CodeDTSD  = "DT_SD"
)

type Unit string

const (
	UnitHours   Unit = "HOURS"
	UnitDollars Unit = "DOLLARS"
)

// Order is a staffing order placed by a customer at a job location.
type Order struct {
	ID          snowflake.ID  `gorm:"primaryKey"`
	CustomerID  snowflake.ID  `gorm:"not null;index"`
	LocationID  *snowflake.ID `gorm:"index"`
	OrderNumber string        `gorm:"type:text"`
	// BaseBillRate is used for shift differential pricing when the invoice has
	// no REG labor line to take the rate from.
	BaseBillRate    decimal.NullDecimal `gorm:"type:numeric(12,4)"`
	SDBillDeltaRate decimal.Decimal     `gorm:"type:numeric(12,4);not null;default:0"`
	SDPayDeltaRate  decimal.Decimal     `gorm:"type:numeric(12,4);not null;default:0"`
	CreatedAt       time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Order) TableName() string { return "orders" }

// JobLocation is the job site an order is worked at.
type JobLocation struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Code      string       `gorm:"type:text;not null"`
	Name      string       `gorm:"type:text"`
	StateCode string       `gorm:"type:text"`
}

func (JobLocation) TableName() string { return "job_locations" }

// Employee is the payroll identity of a worker.
type Employee struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	FirstName string       `gorm:"type:text;not null"`
	LastName  string       `gorm:"type:text;not null"`
	SSN       string       `gorm:"type:text"`
}

func (Employee) TableName() string { return "employees" }

// DisplayName renders "Last, First".
func (e Employee) DisplayName() string {
	return e.LastName + ", " + e.FirstName
}

// HourEntry is one employee's timesheet for an order and period.
type HourEntry struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID     snowflake.ID    `gorm:"not null;index" json:"order_id"`
	EmployeeID  snowflake.ID    `gorm:"not null;index" json:"employee_id"`
	Status      EntryStatus     `gorm:"type:text;not null;default:'PENDING'" json:"status"`
	IsOfficial  bool            `gorm:"not null;default:true" json:"is_official"`
	PeriodStart time.Time       `gorm:"not null" json:"period_start"`
	PeriodEnd   time.Time       `gorm:"not null" json:"period_end"`
	ApprovedAt  *time.Time      `json:"approved_at,omitempty"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	Lines       []HourEntryLine `gorm:"foreignKey:HourEntryID" json:"lines"`
}

func (HourEntry) TableName() string { return "hour_entries" }

// HourEntryLine is one earning code on an hour entry.
type HourEntryLine struct {
	ID          snowflake.ID        `gorm:"primaryKey" json:"id"`
	HourEntryID snowflake.ID        `gorm:"not null;index" json:"hour_entry_id"`
	EarningCode string              `gorm:"type:text;not null" json:"earning_code"`
	Unit        Unit                `gorm:"type:text;not null;default:'HOURS'" json:"unit"`
	Quantity    decimal.Decimal     `gorm:"type:numeric(12,4);not null;default:0" json:"quantity"`
	Rate        decimal.NullDecimal `gorm:"type:numeric(12,4)" json:"rate"`
	Amount      decimal.NullDecimal `gorm:"type:numeric(12,4)" json:"amount"`
	TradeID     *snowflake.ID       `gorm:"index" json:"trade_id,omitempty"`
}

func (HourEntryLine) TableName() string { return "hour_entry_lines" }

// Cost is the line's dollar value: the explicit amount when present,
// otherwise quantity times rate.
func (l HourEntryLine) Cost() decimal.Decimal {
	if l.Amount.Valid {
		return l.Amount.Decimal
	}
	if l.Rate.Valid {
		return l.Quantity.Mul(l.Rate.Decimal)
	}
	return decimal.Zero
}

type DeductionType string

const (
	DeductionETV DeductionType = "ETV"
	DeductionADV DeductionType = "ADV"
)

// PayrollDeduction is a fixed-amount deduction taken every payroll week while active.
type PayrollDeduction struct {
	ID            snowflake.ID    `gorm:"primaryKey"`
	EmployeeID    snowflake.ID    `gorm:"not null;index"`
	Type          DeductionType   `gorm:"type:text;not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	EffectiveFrom time.Time       `gorm:"not null"`
	EffectiveTo   *time.Time
	Active        bool `gorm:"not null;default:true"`
}

func (PayrollDeduction) TableName() string { return "payroll_deductions" }

// StatusCounts tallies an order's hour entries by status.
type StatusCounts struct {
	Pending  int64
	Approved int64
	Rejected int64
}

// OrderSite joins an order to its job location.
type OrderSite struct {
	Order    Order
	Location *JobLocation
}

// StateCode returns the job-site state, empty when unknown.
func (s OrderSite) StateCode() string {
	if s.Location == nil {
		return ""
	}
	return s.Location.StateCode
}

// LocationCode returns the job-site code, empty when unknown.
func (s OrderSite) LocationCode() string {
	if s.Location == nil {
		return ""
	}
	return s.Location.Code
}
