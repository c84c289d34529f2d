package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	hoursdomain "github.com/smallbiznis/tradesettle/internal/hours/domain"
	"gorm.io/datatypes"
)

const SnapshotVersionV1 = 1

// IssuedSnapshot freezes the billed content of an invoice at issuance.
type IssuedSnapshot struct {
	Version        int                     `json:"version"`
	InvoiceID      snowflake.ID            `json:"invoice_id"`
	InvoiceNumber  int64                   `json:"invoice_number"`
	IssuedAt       time.Time               `json:"issued_at"`
	IssuedByUserID snowflake.ID            `json:"issued_by_user_id"`
	Customer       SnapshotCustomer        `json:"customer"`
	Order          SnapshotOrder           `json:"order"`
	LineItems      []SnapshotLineItem      `json:"line_items"`
	HourEntries    []hoursdomain.HourEntry `json:"hour_entries"`
	SubtotalCents  int64                   `json:"subtotal_cents"`
	TotalCents     int64                   `json:"total_cents"`
	FooterText     string                  `json:"footer_text"`
}

type SnapshotCustomer struct {
	ID   snowflake.ID `json:"id"`
	Name string       `json:"name"`
}

type SnapshotOrder struct {
	ID           snowflake.ID `json:"id"`
	OrderNumber  string       `json:"order_number"`
	LocationCode string       `json:"location_code"`
	StateCode    string       `json:"state_code"`
}

type SnapshotLineItem struct {
	ID             snowflake.ID    `json:"id"`
	Kind           LineItemKind    `json:"kind"`
	EarningCode    string          `json:"earning_code"`
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	Amount         decimal.Decimal `json:"amount"`
	UnitRateCents  int64           `json:"unit_rate_cents"`
	LineTotalCents int64           `json:"line_total_cents"`
}

func SnapshotLineItems(items []LineItem) []SnapshotLineItem {
	out := make([]SnapshotLineItem, 0, len(items))
	for _, item := range items {
		out = append(out, SnapshotLineItem{
			ID:             item.ID,
			Kind:           item.Kind,
			EarningCode:    item.EarningCode,
			Description:    item.Description,
			Quantity:       item.Quantity,
			Amount:         item.Amount,
			UnitRateCents:  item.UnitRateCents,
			LineTotalCents: item.LineTotalCents,
		})
	}
	return out
}

// Encode serializes the snapshot for the invoice's issued_snapshot column.
func (s IssuedSnapshot) Encode() (datatypes.JSON, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// DecodeSnapshot reads an issued snapshot, rejecting unknown versions.
func DecodeSnapshot(version int, raw datatypes.JSON) (*IssuedSnapshot, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	switch version {
	case SnapshotVersionV1:
		var snap IssuedSnapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, err
		}
		return &snap, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedSnapshotVersion, version)
	}
}
