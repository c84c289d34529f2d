package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToCentsRoundsHalfUp(t *testing.T) {
	assert.Equal(t, int64(1235), ToCents(MustParse("12.345")))
	assert.Equal(t, int64(1234), ToCents(MustParse("12.344")))
	assert.Equal(t, int64(-1235), ToCents(MustParse("-12.345")))
	assert.Equal(t, int64(0), ToCents(decimal.Zero))
}

func TestCentsOfProductRoundsOnce(t *testing.T) {
	// 33.335 * 3 = 100.005 -> 10001, rounding the rate first would give 10002.
	assert.Equal(t, int64(10001), CentsOfProduct(MustParse("33.335"), decimal.NewFromInt(3)))
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "1000.00", FormatCents(100000))
	assert.Equal(t, "0.05", FormatCents(5))
	assert.Equal(t, "-3.10", FormatCents(-310))
}
