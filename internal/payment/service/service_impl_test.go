package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradesettle/internal/clock"
	invoicedomain "github.com/smallbiznis/tradesettle/internal/invoice/domain"
	invoicerepo "github.com/smallbiznis/tradesettle/internal/invoice/repository"
	paymentdomain "github.com/smallbiznis/tradesettle/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/tradesettle/internal/payment/repository"
	paymentservice "github.com/smallbiznis/tradesettle/internal/payment/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var now = time.Date(2025, 5, 14, 17, 30, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&invoicedomain.Invoice{}, &paymentdomain.Payment{}))
	return db
}

func newService(db *gorm.DB, node *snowflake.Node) paymentdomain.Service {
	return paymentservice.NewService(paymentservice.Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       clock.NewFakeClock(now),
		Repo:        paymentrepo.Provide(),
		InvoiceRepo: invoicerepo.Provide(),
	})
}

func seedInvoice(t *testing.T, db *gorm.DB, node *snowflake.Node, status invoicedomain.InvoiceStatus) snowflake.ID {
	t.Helper()
	invoice := invoicedomain.Invoice{
		ID:         node.Generate(),
		CustomerID: node.Generate(),
		OrderID:    node.Generate(),
		Status:     status,
		TotalCents: 100000,
	}
	require.NoError(t, db.Create(&invoice).Error)
	return invoice.ID
}

func request(invoiceID snowflake.ID, amount string, posted time.Time) paymentdomain.RecordRequest {
	return paymentdomain.RecordRequest{
		InvoiceID:  invoiceID,
		Amount:     decimal.RequireFromString(amount),
		ReceivedAt: posted.Add(-2 * time.Hour),
		PostedAt:   posted,
	}
}

func TestRecordPaymentStoresCents(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	invoiceID := seedInvoice(t, db, node, invoicedomain.InvoiceStatusIssued)

	deposit := now.Add(time.Hour)
	req := request(invoiceID, "250.005", now)
	req.BankDepositAt = &deposit
	req.Reference = "  ACH-4471 "

	res, err := newService(db, node).Record(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, res.DuplicateWarning)
	assert.Equal(t, int64(25001), res.Payment.AmountCents)
	assert.Equal(t, "ACH-4471", res.Payment.Reference)

	stored, err := newService(db, node).GetByID(context.Background(), res.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(25001), stored.AmountCents)
	require.NotNil(t, stored.BankDepositAt)
}

func TestRecordPaymentValidation(t *testing.T) {
	posted := now.Add(-time.Hour)
	before := posted.Add(-time.Minute)
	tests := []struct {
		name    string
		mutate  func(*paymentdomain.RecordRequest)
		wantErr error
	}{
		{name: "zero amount", mutate: func(r *paymentdomain.RecordRequest) { r.Amount = decimal.Zero }, wantErr: paymentdomain.ErrInvalidAmount},
		{name: "negative amount", mutate: func(r *paymentdomain.RecordRequest) { r.Amount = decimal.NewFromInt(-5) }, wantErr: paymentdomain.ErrInvalidAmount},
		{name: "rounds to zero", mutate: func(r *paymentdomain.RecordRequest) { r.Amount = decimal.RequireFromString("0.004") }, wantErr: paymentdomain.ErrInvalidAmount},
		{name: "received after posted", mutate: func(r *paymentdomain.RecordRequest) { r.ReceivedAt = posted.Add(time.Minute) }, wantErr: paymentdomain.ErrReceivedAfterPosted},
		{name: "deposit before posted", mutate: func(r *paymentdomain.RecordRequest) { r.BankDepositAt = &before }, wantErr: paymentdomain.ErrPostedAfterDeposit},
		{name: "missing posted", mutate: func(r *paymentdomain.RecordRequest) { r.PostedAt = time.Time{} }, wantErr: paymentdomain.ErrMissingTimestamps},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			node, err := snowflake.NewNode(1)
			require.NoError(t, err)
			invoiceID := seedInvoice(t, db, node, invoicedomain.InvoiceStatusIssued)

			req := request(invoiceID, "100", posted)
			tt.mutate(&req)
			_, err = newService(db, node).Record(context.Background(), req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRecordPaymentBackdateJustification(t *testing.T) {
	tests := []struct {
		name          string
		posted        time.Time
		justification string
		wantErr       error
	}{
		{name: "yesterday needs nothing", posted: now.AddDate(0, 0, -1), wantErr: nil},
		{name: "two days without note", posted: now.AddDate(0, 0, -2), wantErr: paymentdomain.ErrJustificationRequired},
		{name: "two days short note", posted: now.AddDate(0, 0, -2), justification: "  late ", wantErr: paymentdomain.ErrJustificationRequired},
		{name: "two days five chars", posted: now.AddDate(0, 0, -2), justification: "lockbox", wantErr: nil},
		{name: "two days four multibyte chars", posted: now.AddDate(0, 0, -2), justification: "éééé", wantErr: paymentdomain.ErrJustificationRequired},
		{name: "two days five multibyte chars", posted: now.AddDate(0, 0, -2), justification: "señal", wantErr: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			node, err := snowflake.NewNode(1)
			require.NoError(t, err)
			invoiceID := seedInvoice(t, db, node, invoicedomain.InvoiceStatusIssued)

			req := request(invoiceID, "100", tt.posted)
			req.Justification = tt.justification
			_, err = newService(db, node).Record(context.Background(), req)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRecordPaymentRequiresIssuedInvoice(t *testing.T) {
	tests := []struct {
		status  invoicedomain.InvoiceStatus
		wantErr error
	}{
		{status: invoicedomain.InvoiceStatusDraft, wantErr: paymentdomain.ErrInvoiceDraft},
		{status: invoicedomain.InvoiceStatusVoided, wantErr: paymentdomain.ErrInvoiceVoided},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			db := setupTestDB(t)
			node, err := snowflake.NewNode(1)
			require.NoError(t, err)
			invoiceID := seedInvoice(t, db, node, tt.status)

			_, err = newService(db, node).Record(context.Background(), request(invoiceID, "100", now))
			assert.ErrorIs(t, err, tt.wantErr)

			var n int64
			require.NoError(t, db.Model(&paymentdomain.Payment{}).Count(&n).Error)
			assert.Equal(t, int64(0), n)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		db := setupTestDB(t)
		node, err := snowflake.NewNode(1)
		require.NoError(t, err)
		_, err = newService(db, node).Record(context.Background(), request(12345, "100", now))
		assert.ErrorIs(t, err, paymentdomain.ErrInvoiceNotFound)
	})
}

func TestRecordPaymentDuplicateWarning(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	invoiceID := seedInvoice(t, db, node, invoicedomain.InvoiceStatusIssued)
	svc := newService(db, node)

	first, err := svc.Record(ctx, request(invoiceID, "400", now))
	require.NoError(t, err)
	assert.Nil(t, first.DuplicateWarning)

	// Same amount two days earlier still warns, but is recorded.
	second := request(invoiceID, "400.00", now.AddDate(0, 0, -2))
	second.Justification = "late lockbox file"
	res, err := svc.Record(ctx, second)
	require.NoError(t, err)
	require.NotNil(t, res.DuplicateWarning)
	assert.Equal(t, []snowflake.ID{first.Payment.ID}, res.DuplicateWarning.MatchingPaymentIDs)

	// Five days away is outside the window.
	far := request(invoiceID, "400", now.AddDate(0, 0, -5))
	far.Justification = "backfilled remittance"
	res, err = svc.Record(ctx, far)
	require.NoError(t, err)
	assert.Nil(t, res.DuplicateWarning)

	// A different amount on the same day is not a duplicate.
	res, err = svc.Record(ctx, request(invoiceID, "399.99", now))
	require.NoError(t, err)
	assert.Nil(t, res.DuplicateWarning)

	payments, err := svc.ListByInvoice(ctx, invoiceID)
	require.NoError(t, err)
	require.Len(t, payments, 4)
	assert.True(t, payments[0].PaymentReceivedAt.Before(payments[1].PaymentReceivedAt))
	assert.True(t, far.PostedAt.Equal(payments[0].PaymentPostedAt))
}
