package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeSystem ActorType = "system"
	ActorTypeUser   ActorType = "user"
)

// Actions written by the settlement pipeline.
const (
	ActionInvoiceIssued           = "invoice.issued"
	ActionInvoiceRouted           = "invoice.routed"
	ActionInvoiceOverrideRecorded = "invoice.override_recorded"
	ActionInvoiceCustomerApproved = "invoice.customer_approved"
	ActionPaymentRecorded         = "payment.recorded"
	ActionCommissionSettled       = "commission.settled"
	ActionMarginSnapshotCreated   = "margin.snapshot_created"
	ActionPayrollPacketGenerated  = "payroll.packet_generated"
)

// AuditLog is an append-only trail entry.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType  string            `gorm:"type:text;not null" json:"actor_type"`
	ActorID    *string           `gorm:"type:text" json:"actor_id,omitempty"`
	Action     string            `gorm:"type:text;not null;index" json:"action"`
	TargetType string            `gorm:"type:text;not null" json:"target_type"`
	TargetID   *string           `gorm:"type:text;index" json:"target_id,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb" json:"metadata"`
	CreatedAt  time.Time         `gorm:"not null" json:"created_at"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
	Limit      int
}
