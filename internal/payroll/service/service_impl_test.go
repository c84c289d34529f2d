package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradesettle/internal/clock"
	hoursdomain "github.com/smallbiznis/tradesettle/internal/hours/domain"
	hoursrepo "github.com/smallbiznis/tradesettle/internal/hours/repository"
	payrolldomain "github.com/smallbiznis/tradesettle/internal/payroll/domain"
	payrollrepo "github.com/smallbiznis/tradesettle/internal/payroll/repository"
	payrollservice "github.com/smallbiznis/tradesettle/internal/payroll/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var weekStart = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

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
		&hoursdomain.Employee{},
		&hoursdomain.HourEntry{},
		&hoursdomain.HourEntryLine{},
		&hoursdomain.PayrollDeduction{},
		&payrolldomain.Packet{},
		&payrolldomain.Line{},
	))
	return db
}

func newService(db *gorm.DB, node *snowflake.Node) payrolldomain.Service {
	return payrollservice.NewService(payrollservice.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clock.NewFakeClock(weekStart.AddDate(0, 0, 8)),
		Repo:      payrollrepo.Provide(),
		HoursRepo: hoursrepo.Provide(),
	})
}

type seed struct {
	db    *gorm.DB
	node  *snowflake.Node
	order hoursdomain.Order
}

func newSeed(t *testing.T, db *gorm.DB, node *snowflake.Node) *seed {
	t.Helper()
	location := hoursdomain.JobLocation{ID: node.Generate(), Code: "DAL-02", StateCode: "TX"}
	require.NoError(t, db.Create(&location).Error)
	order := hoursdomain.Order{ID: node.Generate(), CustomerID: node.Generate(), LocationID: &location.ID}
	require.NoError(t, db.Create(&order).Error)
	return &seed{db: db, node: node, order: order}
}

func (s *seed) employee(t *testing.T, first, last string) hoursdomain.Employee {
	t.Helper()
	e := hoursdomain.Employee{ID: s.node.Generate(), FirstName: first, LastName: last, SSN: "000-00-" + last[:1] + "000"}
	require.NoError(t, s.db.Create(&e).Error)
	return e
}

func (s *seed) entry(t *testing.T, employee snowflake.ID, status hoursdomain.EntryStatus, start time.Time, regHours string) {
	t.Helper()
	entry := hoursdomain.HourEntry{
		ID:          s.node.Generate(),
		OrderID:     s.order.ID,
		EmployeeID:  employee,
		Status:      status,
		IsOfficial:  true,
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 0, 6),
		Lines: []hoursdomain.HourEntryLine{{
			ID:          s.node.Generate(),
			EarningCode: hoursdomain.CodeREG,
			Unit:        hoursdomain.UnitHours,
			Quantity:    decimal.RequireFromString(regHours),
			Rate:        decimal.NewNullDecimal(decimal.NewFromInt(20)),
		}},
	}
	require.NoError(t, s.db.Create(&entry).Error)
}

func TestGeneratePersistsOnePacketPerWeek(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	s := newSeed(t, db, node)

	ortiz := s.employee(t, "Maria", "Ortiz")
	chen := s.employee(t, "Wei", "Chen")
	s.entry(t, ortiz.ID, hoursdomain.EntryStatusApproved, weekStart, "40")
	s.entry(t, chen.ID, hoursdomain.EntryStatusApproved, weekStart, "32")
	s.entry(t, chen.ID, hoursdomain.EntryStatusPending, weekStart, "8")
	s.entry(t, chen.ID, hoursdomain.EntryStatusApproved, weekStart.AddDate(0, 0, 14), "8")
	require.NoError(t, db.Create(&hoursdomain.PayrollDeduction{
		ID: node.Generate(), EmployeeID: ortiz.ID, Type: hoursdomain.DeductionADV,
		Amount: decimal.NewFromInt(40), EffectiveFrom: weekStart.AddDate(0, -1, 0), Active: true,
	}).Error)

	svc := newService(db, node)
	packet, err := svc.Generate(ctx, weekStart)
	require.NoError(t, err)
	require.Len(t, packet.Lines, 2)
	assert.Equal(t, "Chen, Wei", packet.Lines[0].EmployeeName)
	assert.Equal(t, "32", packet.Lines[0].RegHours.String())
	assert.Equal(t, "Ortiz, Maria", packet.Lines[1].EmployeeName)
	assert.Equal(t, "40", packet.Lines[1].AdvanceDeduction.String())

	// More approved hours arrive; regeneration replaces the lines in place.
	s.entry(t, ortiz.ID, hoursdomain.EntryStatusApproved, weekStart, "2")
	again, err := svc.Generate(ctx, weekStart)
	require.NoError(t, err)
	assert.Equal(t, packet.ID, again.ID)

	stored, err := svc.Get(ctx, weekStart)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 2)
	assert.Equal(t, "42", stored.Lines[1].RegHours.String())

	var packets, lines int64
	require.NoError(t, db.Model(&payrolldomain.Packet{}).Count(&packets).Error)
	require.NoError(t, db.Model(&payrolldomain.Line{}).Count(&lines).Error)
	assert.Equal(t, int64(1), packets)
	assert.Equal(t, int64(2), lines)
}

func TestCSVGeneratesOnFirstUse(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	s := newSeed(t, db, node)
	ortiz := s.employee(t, "Maria", "Ortiz")
	s.entry(t, ortiz.ID, hoursdomain.EntryStatusApproved, weekStart, "40")

	out, err := newService(db, node).CSV(context.Background(), weekStart)
	require.NoError(t, err)
	rows := strings.Split(string(out), "\r\n")
	require.Len(t, rows, 2)
	assert.True(t, strings.HasPrefix(rows[1], `000-00-O000,"Ortiz, Maria",DAL-02,20.00,40.00,`))
}

func TestWeekStartMustBeMondayMidnightUTC(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	svc := newService(db, node)

	for _, ws := range []time.Time{
		weekStart.AddDate(0, 0, 1),
		weekStart.Add(10 * time.Hour),
	} {
		_, err := svc.Generate(context.Background(), ws)
		assert.ErrorIs(t, err, payrolldomain.ErrInvalidWeekStart)
	}

	_, err = svc.Get(context.Background(), weekStart)
	assert.ErrorIs(t, err, payrolldomain.ErrPacketNotFound)
}
