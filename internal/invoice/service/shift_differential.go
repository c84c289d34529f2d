package service

import (
	"github.com/shopspring/decimal"
	hoursdomain "github.com/smallbiznis/tradesettle/internal/hours/domain"
	invoicedomain "github.com/smallbiznis/tradesettle/internal/invoice/domain"
)

type sdBucket struct {
	code        string
	multiplier  decimal.Decimal
	description string
}

var sdBuckets = []sdBucket{
	{code: hoursdomain.CodeREGSD, multiplier: decimal.NewFromInt(1), description: "Shift differential - regular"},
	{code: hoursdomain.CodeOTSD, multiplier: decimal.NewFromFloat(1.5), description: "Shift differential - overtime"},
	{code: hoursdomain.CodeDTSD, multiplier: decimal.NewFromInt(2), description: "Shift differential - double time"},
}

// baseLaborRate is the unit price of the invoice's REG labor line, falling
// back to the order's base bill rate.
func baseLaborRate(items []invoicedomain.LineItem, order hoursdomain.Order) (decimal.Decimal, bool) {
	for _, item := range items {
		if item.Kind == invoicedomain.LineItemKindLabor && item.EarningCode == hoursdomain.CodeREG {
			return item.Amount, true
		}
	}
	if order.BaseBillRate.Valid {
		return order.BaseBillRate.Decimal, true
	}
	return decimal.Zero, false
}

// shiftDifferentialItems prices the SD hour buckets of the approved lines.
// Buckets without hours produce no line. IDs and invoice ids are left unset.
func shiftDifferentialItems(lines []hoursdomain.HourEntryLine, existing []invoicedomain.LineItem, order hoursdomain.Order) ([]invoicedomain.LineItem, error) {
	hours := make(map[string]decimal.Decimal, len(sdBuckets))
	for _, line := range lines {
		if line.Unit != hoursdomain.UnitHours {
			continue
		}
		switch line.EarningCode {
		case hoursdomain.CodeREGSD, hoursdomain.CodeOTSD, hoursdomain.CodeDTSD:
			hours[line.EarningCode] = hours[line.EarningCode].Add(line.Quantity)
		}
	}

	var out []invoicedomain.LineItem
	for _, bucket := range sdBuckets {
		qty := hours[bucket.code]
		if !qty.IsPositive() {
			continue
		}
		base, ok := baseLaborRate(existing, order)
		if !ok {
			return nil, invoicedomain.ErrMissingBaseRate
		}
		item := invoicedomain.LineItem{
			Kind:        invoicedomain.LineItemKindShiftDiff,
			EarningCode: bucket.code,
			Description: bucket.description,
			Quantity:    qty,
			Amount:      base.Add(order.SDBillDeltaRate).Mul(bucket.multiplier),
		}
		item.Recompute()
		out = append(out, item)
	}
	return out, nil
}

func totalCents(items []invoicedomain.LineItem) int64 {
	var total int64
	for _, item := range items {
		total += item.LineTotalCents
	}
	return total
}
