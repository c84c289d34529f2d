package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Packet is the generated payroll packet of one Monday-anchored week.
type Packet struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	WeekStart   time.Time    `gorm:"not null;uniqueIndex" json:"week_start"`
	LineCount   int          `gorm:"not null;default:0" json:"line_count"`
	GeneratedAt time.Time    `gorm:"not null" json:"generated_at"`
	Lines       []Line       `gorm:"foreignKey:PacketID" json:"lines"`
}

func (Packet) TableName() string { return "payroll_packets" }

// Line aggregates one employee's approved hours at one location for the week.
// Shift differential hours are carried separately and never priced here.
type Line struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	PacketID         snowflake.ID    `gorm:"not null;index" json:"packet_id"`
	Position         int             `gorm:"not null" json:"position"`
	EmployeeID       snowflake.ID    `gorm:"not null" json:"employee_id"`
	SSN              string          `gorm:"type:text" json:"ssn"`
	EmployeeName     string          `gorm:"type:text;not null" json:"employee_name"`
	LocationCode     string          `gorm:"type:text;not null" json:"location_code"`
	RegRate          decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"reg_rate"`
	RegHours         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"reg_hours"`
	OTHours          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"ot_hours"`
	DTHours          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"dt_hours"`
	HolidayHours     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"holiday_hours"`
	BonusAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"bonus_amount"`
	ReimbAmount      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"reimb_amount"`
	MileageAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"mileage_amount"`
	PerDiemAmount    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"per_diem_amount"`
	AdvanceDeduction decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"advance_deduction_amount"`
	ETVDeduction     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"etv_deduction_amount"`
	RegSDHours       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"reg_sd_hours"`
	OTSDHours        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"ot_sd_hours"`
	DTSDHours        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"dt_sd_hours"`
}

func (Line) TableName() string { return "payroll_packet_lines" }
