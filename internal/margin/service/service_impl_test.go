package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	burdendomain "github.com/smallbiznis/tradesettle/internal/burden/domain"
	burdenrepo "github.com/smallbiznis/tradesettle/internal/burden/repository"
	burdenservice "github.com/smallbiznis/tradesettle/internal/burden/service"
	"github.com/smallbiznis/tradesettle/internal/clock"
	hoursdomain "github.com/smallbiznis/tradesettle/internal/hours/domain"
	hoursrepo "github.com/smallbiznis/tradesettle/internal/hours/repository"
	invoicedomain "github.com/smallbiznis/tradesettle/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/tradesettle/internal/invoice/repository"
	margindomain "github.com/smallbiznis/tradesettle/internal/margin/domain"
	marginrepo "github.com/smallbiznis/tradesettle/internal/margin/repository"
	marginservice "github.com/smallbiznis/tradesettle/internal/margin/service"
	"github.com/smallbiznis/tradesettle/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type staticPlanRate struct {
	rate decimal.NullDecimal
}

func (s staticPlanRate) ActiveDefaultRate(context.Context, *gorm.DB) (decimal.NullDecimal, error) {
	return s.rate, nil
}

var issuedAt = time.Date(2025, 4, 2, 15, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&hoursdomain.Order{},
		&hoursdomain.JobLocation{},
		&hoursdomain.HourEntry{},
		&hoursdomain.HourEntryLine{},
		&invoicedomain.Invoice{},
		&burdendomain.BurdenRate{},
		&margindomain.Snapshot{},
	))
	return db
}

func newService(db *gorm.DB, node *snowflake.Node, s settings.Settings, plan margindomain.PlanRateSource) margindomain.Service {
	return newServiceWithRepo(db, node, s, plan, marginrepo.Provide())
}

func newServiceWithRepo(db *gorm.DB, node *snowflake.Node, s settings.Settings, plan margindomain.PlanRateSource, repo margindomain.Repository) margindomain.Service {
	return marginservice.NewService(marginservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clock.NewFakeClock(issuedAt.AddDate(0, 0, 10)),
		Settings:    settings.Static(s),
		Repo:        repo,
		InvoiceRepo: invoicerepo.Provide(),
		HoursRepo:   hoursrepo.Provide(),
		BurdenSvc:   burdenservice.NewService(burdenservice.Params{Log: zap.NewNop(), Resolver: burdenrepo.Provide()}),
		PlanRates:   plan,
	})
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seedInvoice creates an issued invoice whose order has 40 REG hours at $20
// and 5 OT hours at $30 on a job site in state.
func seedInvoice(t *testing.T, db *gorm.DB, node *snowflake.Node, state string) snowflake.ID {
	t.Helper()
	location := hoursdomain.JobLocation{ID: node.Generate(), Code: "DAL-02", StateCode: state}
	require.NoError(t, db.Create(&location).Error)
	order := hoursdomain.Order{ID: node.Generate(), CustomerID: node.Generate(), LocationID: &location.ID}
	require.NoError(t, db.Create(&order).Error)

	entry := hoursdomain.HourEntry{
		ID:          node.Generate(),
		OrderID:     order.ID,
		EmployeeID:  node.Generate(),
		Status:      hoursdomain.EntryStatusApproved,
		IsOfficial:  true,
		PeriodStart: issuedAt.AddDate(0, 0, -10),
		PeriodEnd:   issuedAt.AddDate(0, 0, -4),
		Lines: []hoursdomain.HourEntryLine{
			{ID: node.Generate(), EarningCode: hoursdomain.CodeREG, Unit: hoursdomain.UnitHours, Quantity: dec("40"), Rate: decimal.NewNullDecimal(dec("20"))},
			{ID: node.Generate(), EarningCode: hoursdomain.CodeOT, Unit: hoursdomain.UnitHours, Quantity: dec("5"), Rate: decimal.NewNullDecimal(dec("30"))},
		},
	}
	require.NoError(t, db.Create(&entry).Error)

	number := int64(1000)
	invoice := invoicedomain.Invoice{
		ID:            node.Generate(),
		CustomerID:    order.CustomerID,
		OrderID:       order.ID,
		Status:        invoicedomain.InvoiceStatusIssued,
		InvoiceNumber: &number,
		TotalCents:    150000,
		SubtotalCents: 150000,
		IssuedAt:      &issuedAt,
	}
	require.NoError(t, db.Create(&invoice).Error)
	return invoice.ID
}

func seedRates(t *testing.T, db *gorm.DB, node *snowflake.Node, state string) {
	t.Helper()
	from := issuedAt.AddDate(-1, 0, 0)
	require.NoError(t, db.Create(&[]burdendomain.BurdenRate{
		{ID: node.Generate(), StateCode: &state, RateType: burdendomain.RateWorkersComp, RatePercent: dec("5"), EffectiveFrom: from},
		{ID: node.Generate(), RateType: burdendomain.RateFICA, RatePercent: dec("10"), EffectiveFrom: from},
	}).Error)
}

func countSnapshots(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&margindomain.Snapshot{}).Count(&n).Error)
	return n
}

func TestCreateOrGetFreezesMarginInputs(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	invoiceID := seedInvoice(t, db, node, "TX")
	seedRates(t, db, node, "TX")

	svc := newService(db, node, settings.Settings{
		BankLagDays:      settings.IntPtr(2),
		PostingGraceDays: settings.IntPtr(3),
	}, staticPlanRate{rate: decimal.NewNullDecimal(dec("0.12"))})

	res, err := svc.CreateOrGet(ctx, invoiceID, 150000)
	require.NoError(t, err)
	require.True(t, res.Created)

	snap := res.Snapshot
	// labor 800 + 150; WC 5% of 800 + 150/1.5; FICA 10% of 950
	assert.Equal(t, int64(150000), snap.TradeRevenuePaidCents)
	assert.Equal(t, int64(95000), snap.TradeLaborCostCents)
	assert.Equal(t, int64(14000), snap.TradeBurdenCostCents)
	assert.Equal(t, int64(41000), snap.TradeMarginCents)
	assert.Equal(t, "0.12", snap.CommissionRateSnapshot.String())
	assert.Equal(t, 2, snap.BankLagDaysSnapshot)
	assert.Equal(t, 3, snap.PostingGraceDaysSnapshot)
	assert.Equal(t, "TX", snap.StateCode)

	var breakdown burdendomain.Breakdown
	require.NoError(t, json.Unmarshal(snap.BurdenBreakdown, &breakdown))
	assert.Equal(t, "900.00", breakdown.BaseWages.StringFixed(2))
	assert.Len(t, breakdown.Buckets, 2)
}

func TestCreateOrGetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	invoiceID := seedInvoice(t, db, node, "TX")
	seedRates(t, db, node, "TX")

	first, err := newService(db, node, settings.Settings{}, nil).CreateOrGet(ctx, invoiceID, 90000)
	require.NoError(t, err)
	require.True(t, first.Created)
	assert.Equal(t, margindomain.DefaultCommissionRate.String(), first.Snapshot.CommissionRateSnapshot.String())
	assert.Equal(t, 1, first.Snapshot.BankLagDaysSnapshot)

	// Later payments and later settings edits never touch the snapshot.
	changed := newService(db, node, settings.Settings{BankLagDays: settings.IntPtr(9)}, staticPlanRate{rate: decimal.NewNullDecimal(dec("0.5"))})
	for i := 0; i < 3; i++ {
		again, err := changed.CreateOrGet(ctx, invoiceID, 10000)
		require.NoError(t, err)
		assert.False(t, again.Created)
		assert.Equal(t, first.Snapshot.ID, again.Snapshot.ID)
		assert.Equal(t, int64(90000), again.Snapshot.TradeRevenuePaidCents)
		assert.Equal(t, 1, again.Snapshot.BankLagDaysSnapshot)
		assert.Equal(t, "0.1", again.Snapshot.CommissionRateSnapshot.String())
	}
	assert.Equal(t, int64(1), countSnapshots(t, db))
}

func TestInsertReportsExistingSnapshot(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := marginrepo.Provide()

	inserted, err := repo.Insert(ctx, db, &margindomain.Snapshot{ID: 1, InvoiceID: 42, CommissionRateSnapshot: dec("0.1"), CreatedAt: issuedAt})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Insert(ctx, db, &margindomain.Snapshot{ID: 2, InvoiceID: 42, CommissionRateSnapshot: dec("0.2"), CreatedAt: issuedAt})
	require.NoError(t, err)
	assert.False(t, inserted)

	winner, err := repo.FindByInvoice(ctx, db, 42)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(1), winner.ID)
}

func TestCreateOrGetRequiresCompleteData(t *testing.T) {
	tests := []struct {
		name    string
		state   string
		rates   bool
		wantErr error
	}{
		{name: "missing job-site state", state: "", rates: false, wantErr: burdendomain.ErrMissingStateCode},
		{name: "missing workers comp rate", state: "NM", rates: false, wantErr: burdendomain.ErrMissingWorkersCompRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			db := setupTestDB(t)
			node, err := snowflake.NewNode(1)
			require.NoError(t, err)
			invoiceID := seedInvoice(t, db, node, tt.state)
			seedRates(t, db, node, "TX")

			_, err = newService(db, node, settings.Settings{}, nil).CreateOrGet(ctx, invoiceID, 1000)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, int64(0), countSnapshots(t, db))
		})
	}
}

func TestCreateOrGetUnknownInvoice(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	_, err = newService(db, node, settings.Settings{}, nil).CreateOrGet(context.Background(), 777, 1000)
	assert.ErrorIs(t, err, margindomain.ErrInvoiceNotFound)
}

// staleReadRepo misses the snapshot a concurrent writer already committed,
// on its first read only.
type staleReadRepo struct {
	margindomain.Repository
	reads int
}

func (r *staleReadRepo) FindByInvoice(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) (*margindomain.Snapshot, error) {
	r.reads++
	if r.reads == 1 {
		return nil, nil
	}
	return r.Repository.FindByInvoice(ctx, db, invoiceID)
}

// plainInsertRepo also inserts without conflict handling, so the race
// surfaces as a unique violation.
type plainInsertRepo struct {
	*staleReadRepo
}

func (r plainInsertRepo) Insert(ctx context.Context, db *gorm.DB, snapshot *margindomain.Snapshot) (bool, error) {
	if err := db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return false, err
	}
	return true, nil
}

func TestCreateOrGetReturnsConcurrentWinner(t *testing.T) {
	tests := []struct {
		name string
		repo func() margindomain.Repository
	}{
		{name: "insert ignored on conflict", repo: func() margindomain.Repository {
			return &staleReadRepo{Repository: marginrepo.Provide()}
		}},
		{name: "insert hits unique violation", repo: func() margindomain.Repository {
			return plainInsertRepo{staleReadRepo: &staleReadRepo{Repository: marginrepo.Provide()}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			db := setupTestDB(t)
			node, err := snowflake.NewNode(1)
			require.NoError(t, err)
			invoiceID := seedInvoice(t, db, node, "TX")
			seedRates(t, db, node, "TX")

			winner, err := newService(db, node, settings.Settings{}, nil).CreateOrGet(ctx, invoiceID, 120000)
			require.NoError(t, err)
			require.True(t, winner.Created)

			loser, err := newServiceWithRepo(db, node, settings.Settings{}, nil, tt.repo()).CreateOrGet(ctx, invoiceID, 5000)
			require.NoError(t, err)
			assert.False(t, loser.Created)
			assert.Equal(t, winner.Snapshot.ID, loser.Snapshot.ID)
			assert.Equal(t, int64(120000), loser.Snapshot.TradeRevenuePaidCents)
			assert.Equal(t, int64(1), countSnapshots(t, db))
		})
	}
}
