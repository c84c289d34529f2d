package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CloseOutToleranceCents is the remaining balance under which an invoice
// counts as fully paid for allocation.
const CloseOutToleranceCents int64 = 10000

var (
	multiplierFull     = decimal.NewFromInt(1)
	multiplierReduced  = decimal.RequireFromString("0.75")
	multiplierHalf     = decimal.RequireFromString("0.5")
	multiplierForfeit  = decimal.Zero
	percentDenominator = decimal.NewFromInt(100)
)

// DaysToPaid counts whole days from base to receivedAt, never negative.
func DaysToPaid(base, receivedAt time.Time) int {
	days := int(receivedAt.Sub(base).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// PayoutMultiplier picks the first tier containing days, falling back to the
// fixed aging ladder when no tier matches.
func PayoutMultiplier(tiers []Tier, days int) decimal.Decimal {
	for _, t := range tiers {
		if t.Contains(days) {
			return t.Multiplier
		}
	}
	switch {
	case days <= 45:
		return multiplierFull
	case days <= 59:
		return multiplierReduced
	case days <= 89:
		return multiplierHalf
	default:
		return multiplierForfeit
	}
}

// effectivePaid clamps paid to total and closes out a small remainder.
func effectivePaid(paid, total int64) int64 {
	if paid > total {
		paid = total
	}
	if paid > 0 && total-paid < CloseOutToleranceCents {
		return total
	}
	return paid
}

// Proportion is the share of the invoice total attributed to a payment of
// amount made after paidBefore cents had already been received.
func Proportion(paidBefore, amount, total int64) decimal.Decimal {
	if total <= 0 {
		return decimal.Zero
	}
	before := effectivePaid(paidBefore, total)
	after := effectivePaid(paidBefore+amount, total)
	share := after - before
	if share <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(share).Div(decimal.NewFromInt(total))
}

// SplitFraction converts a 0-100 split percent to a fraction.
func SplitFraction(splitPercent decimal.Decimal) decimal.Decimal {
	return splitPercent.Div(percentDenominator)
}

// IsLatePosted reports a posting later than the bank lag plus grace allows.
func IsLatePosted(receivedAt, postedAt time.Time, bankLagDays, graceDays int) bool {
	return postedAt.After(receivedAt.AddDate(0, 0, bankLagDays+graceDays))
}

// RuleLabel names the aging bucket of an event for the commission packet.
func RuleLabel(days int, latePosted bool) string {
	var label string
	switch {
	case days <= 40:
		label = "tier-0-40"
	case days <= 59:
		label = "tier-41-59"
	case days <= 89:
		label = "tier-60-89"
	default:
		label = "tier-90+"
	}
	if latePosted {
		label += "/late-posted"
	}
	return label
}
