package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradesettle/internal/burden/domain"
	"github.com/smallbiznis/tradesettle/internal/burden/repository"
	"github.com/smallbiznis/tradesettle/internal/burden/service"
	hoursdomain "github.com/smallbiznis/tradesettle/internal/hours/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.BurdenRate{}))
	return db
}

func hoursLine(code string, qty, rate string) hoursdomain.HourEntryLine {
	return hoursdomain.HourEntryLine{
		EarningCode: code,
		Unit:        hoursdomain.UnitHours,
		Quantity:    decimal.RequireFromString(qty),
		Rate:        decimal.NewNullDecimal(decimal.RequireFromString(rate)),
	}
}

func dollarLine(code string, amount string) hoursdomain.HourEntryLine {
	return hoursdomain.HourEntryLine{
		EarningCode: code,
		Unit:        hoursdomain.UnitDollars,
		Quantity:    decimal.NewFromInt(1),
		Amount:      decimal.NewNullDecimal(decimal.RequireFromString(amount)),
	}
}

func sampleLines() []hoursdomain.HourEntryLine {
	return []hoursdomain.HourEntryLine{
		hoursLine(hoursdomain.CodeREG, "40", "20"),
		hoursLine(hoursdomain.CodeOT, "10", "30"),
		hoursLine(hoursdomain.CodeDT, "2", "40"),
		hoursLine(hoursdomain.CodeHOL, "8", "20"),
		dollarLine(hoursdomain.CodeBONUS, "50"),
	}
}

func pct(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeNormalizesPremiumForWorkersComp(t *testing.T) {
	rates := domain.Rates{
		WorkersComp: decimal.NewNullDecimal(pct("5")),
		FICA:        pct("7.65"),
		FUTA:        pct("0.6"),
		SUTA:        pct("2.7"),
		GL:          pct("1"),
		PEO:         pct("0.05"),
	}

	b := service.Compute(sampleLines(), rates)

	assert.Equal(t, "1390.00", b.LaborCost.StringFixed(2))
	// 800 REG + 160 HOL + 300/1.5 OT + 80/2 DT
	assert.Equal(t, "1200.00", b.BaseWages.StringFixed(2))
	assert.Equal(t, "60.00", b.WorkersCompCost.StringFixed(2))
	assert.Equal(t, "12.00", b.WageFollowingRate.StringFixed(2))
	assert.Equal(t, "166.80", b.WageFollowingCost.StringFixed(2))
	assert.Equal(t, "226.80", b.TotalBurden.StringFixed(2))
}

func TestComputeExcludesOtherCodesFromBase(t *testing.T) {
	lines := []hoursdomain.HourEntryLine{
		dollarLine(hoursdomain.CodeREM, "100"),
		dollarLine(hoursdomain.CodePD, "75"),
		hoursLine(hoursdomain.CodeREGSD, "4", "2"),
	}
	rates := domain.Rates{WorkersComp: decimal.NewNullDecimal(pct("10"))}

	b := service.Compute(lines, rates)

	assert.Equal(t, "183.00", b.LaborCost.StringFixed(2))
	assert.True(t, b.BaseWages.IsZero())
	assert.True(t, b.TotalBurden.IsZero())
}

func TestBucketsGroupByTradeAndCode(t *testing.T) {
	trade := snowflake.ID(7)
	a := hoursLine(hoursdomain.CodeREG, "8", "20")
	a.TradeID = &trade
	b := hoursLine(hoursdomain.CodeREG, "4", "20")
	b.TradeID = &trade
	c := hoursLine(hoursdomain.CodeOT, "2", "30")

	buckets := service.Buckets([]hoursdomain.HourEntryLine{a, b, c})

	require.Len(t, buckets, 2)
	assert.Nil(t, buckets[0].TradeID)
	assert.Equal(t, hoursdomain.CodeOT, buckets[0].EarningCode)
	assert.Equal(t, "12", buckets[1].Quantity.String())
	assert.Equal(t, "240.00", buckets[1].Cost.StringFixed(2))
}

func seedRate(t *testing.T, db *gorm.DB, id int64, state *string, typ domain.RateType, percent string, from time.Time, to *time.Time) {
	t.Helper()
	require.NoError(t, db.Create(&domain.BurdenRate{
		ID:            snowflake.ID(id),
		StateCode:     state,
		RateType:      typ,
		RatePercent:   pct(percent),
		EffectiveFrom: from,
		EffectiveTo:   to,
	}).Error)
}

func TestCalculateResolvesStateRates(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	tx := "TX"
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	jun := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	expired := time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC)

	seedRate(t, db, 1, &tx, domain.RateWorkersComp, "4", jan, &expired)
	seedRate(t, db, 2, &tx, domain.RateWorkersComp, "5", jun, nil)
	seedRate(t, db, 3, nil, domain.RateFICA, "7.65", jan, nil)
	seedRate(t, db, 4, nil, domain.RateSUTA, "2.7", jan, nil)
	seedRate(t, db, 5, &tx, domain.RateSUTA, "1.2", jan, nil)

	svc := service.NewService(service.Params{Log: zap.NewNop(), Resolver: repository.Provide()})

	b, err := svc.Calculate(ctx, db, "tx", time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), sampleLines())
	require.NoError(t, err)

	assert.Equal(t, "TX", b.StateCode)
	assert.Equal(t, "5", b.WorkersCompRate.String())
	assert.Equal(t, "1.2", b.SUTARate.String())
	assert.Equal(t, "7.65", b.FICARate.String())
	assert.Equal(t, "8.85", b.WageFollowingRate.String())

	b, err = svc.Calculate(ctx, db, "TX", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), sampleLines())
	require.NoError(t, err)
	assert.Equal(t, "4", b.WorkersCompRate.String())
}

func TestCalculateFailsWithoutStateWorkersComp(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seedRate(t, db, 1, nil, domain.RateWorkersComp, "3", jan, nil)

	svc := service.NewService(service.Params{Log: zap.NewNop(), Resolver: repository.Provide()})

	_, err := svc.Calculate(ctx, db, "OK", jan.AddDate(0, 1, 0), sampleLines())
	assert.ErrorIs(t, err, domain.ErrMissingWorkersCompRate)

	_, err = svc.Calculate(ctx, db, " ", jan, sampleLines())
	assert.ErrorIs(t, err, domain.ErrMissingStateCode)
}
