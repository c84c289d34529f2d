package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	auditdomain "github.com/smallbiznis/tradesettle/internal/audit/domain"
	"github.com/smallbiznis/tradesettle/internal/audit/repository"
	"github.com/smallbiznis/tradesettle/internal/audit/service"
	"github.com/smallbiznis/tradesettle/internal/clock"
	obscontext "github.com/smallbiznis/tradesettle/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) (auditdomain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	svc := service.NewService(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clk,
	})
	return svc, db, clk
}

func TestAuditLogResolvesActorFromContext(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := obscontext.WithActorID(obscontext.WithRequestID(context.Background(), "req-9"), "77")
	target := "123"

	require.NoError(t, svc.AuditLog(ctx, "", nil, auditdomain.ActionInvoiceIssued, "invoice", &target, map[string]any{
		"invoice_number": 1001,
	}))

	logs, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{TargetType: "invoice", TargetID: "123"})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "user", logs[0].ActorType)
	require.NotNil(t, logs[0].ActorID)
	assert.Equal(t, "77", *logs[0].ActorID)
	assert.Equal(t, "req-9", logs[0].Metadata["request_id"])
}

func TestAuditLogDefaultsToSystemActor(t *testing.T) {
	svc, _, _ := newService(t)

	require.NoError(t, svc.AuditLog(context.Background(), "", nil, auditdomain.ActionPaymentRecorded, "", nil, nil))

	logs, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{Action: auditdomain.ActionPaymentRecorded})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "system", logs[0].ActorType)
	assert.Equal(t, "unknown", logs[0].TargetType)
	assert.Nil(t, logs[0].TargetID)
}

func TestAuditLogRejectsEmptyAction(t *testing.T) {
	svc, _, _ := newService(t)
	err := svc.AuditLog(context.Background(), "", nil, "  ", "invoice", nil, nil)
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListRejectsInvertedRange(t *testing.T) {
	svc, _, clk := newService(t)
	start := clk.Now()
	end := start.Add(-time.Hour)
	_, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{StartAt: &start, EndAt: &end})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidTimeRange)
}
