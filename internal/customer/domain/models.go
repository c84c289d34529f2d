package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer is the billing party of an order. Records are maintained upstream.
type Customer struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	Name             string       `gorm:"not null" json:"name"`
	Email            string       `gorm:"type:text" json:"email"`
	RequiresApproval bool         `gorm:"not null;default:false" json:"requires_approval"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (Customer) TableName() string { return "customers" }
