package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tradesettle/internal/audit/domain"
	"github.com/smallbiznis/tradesettle/internal/clock"
	invoicedomain "github.com/smallbiznis/tradesettle/internal/invoice/domain"
	"github.com/smallbiznis/tradesettle/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/tradesettle/internal/payment/domain"
	"github.com/smallbiznis/tradesettle/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// duplicateWindowDays bounds how far apart two equal payments may post
// before they stop looking like the same remittance.
const duplicateWindowDays = 3

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Repo        paymentdomain.Repository
	InvoiceRepo invoicedomain.Repository
	AuditSvc    auditdomain.Service `optional:"true"`
	Metrics     *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        paymentdomain.Repository
	invoiceRepo invoicedomain.Repository
	auditSvc    auditdomain.Service
	metrics     *metrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("payment.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
		auditSvc:    p.AuditSvc,
		metrics:     p.Metrics,
	}
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*paymentdomain.Payment, error) {
	if id == 0 {
		return nil, paymentdomain.ErrInvalidPaymentID
	}
	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, paymentdomain.ErrPaymentNotFound
	}
	return payment, nil
}

func (s *Service) ListByInvoice(ctx context.Context, invoiceID snowflake.ID) ([]paymentdomain.Payment, error) {
	if invoiceID == 0 {
		return nil, paymentdomain.ErrInvalidInvoiceID
	}
	return s.repo.ListByInvoice(ctx, s.db, invoiceID)
}

func (s *Service) Record(ctx context.Context, req paymentdomain.RecordRequest) (*paymentdomain.RecordResult, error) {
	if req.InvoiceID == 0 {
		return nil, paymentdomain.ErrInvalidInvoiceID
	}
	now := s.clock.Now()
	justification := strings.TrimSpace(req.Justification)
	if err := validate(req, justification, now); err != nil {
		return nil, err
	}
	amountCents := money.ToCents(req.Amount)

	var (
		payment *paymentdomain.Payment
		dupes   []snowflake.ID
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.invoiceRepo.FindForUpdate(ctx, tx, req.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return paymentdomain.ErrInvoiceNotFound
		}
		switch invoice.Status {
		case invoicedomain.InvoiceStatusIssued:
		case invoicedomain.InvoiceStatusVoided:
			return paymentdomain.ErrInvoiceVoided
		default:
			return paymentdomain.ErrInvoiceDraft
		}

		existing, err := s.repo.ListByInvoice(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}
		dupes = matchingPayments(existing, amountCents, req.PostedAt)

		payment = &paymentdomain.Payment{
			ID:                s.genID.Generate(),
			InvoiceID:         invoice.ID,
			AmountCents:       amountCents,
			PaymentReceivedAt: req.ReceivedAt.UTC(),
			PaymentPostedAt:   req.PostedAt.UTC(),
			BankDepositAt:     utcPtr(req.BankDepositAt),
			Reference:         strings.TrimSpace(req.Reference),
			Justification:     justification,
			RecordedByUserID:  req.RecordedByUserID,
			CreatedAt:         now,
		}
		return s.repo.Insert(ctx, tx, payment)
	})
	if err != nil {
		return nil, err
	}

	result := &paymentdomain.RecordResult{Payment: payment}
	if len(dupes) > 0 {
		result.DuplicateWarning = &paymentdomain.DuplicateWarning{
			Message: fmt.Sprintf("%d existing payment(s) of %s posted within %d days",
				len(dupes), money.FormatCents(amountCents), duplicateWindowDays),
			MatchingPaymentIDs: dupes,
		}
		s.log.Warn("possible duplicate payment",
			zap.String("invoice_id", payment.InvoiceID.String()),
			zap.String("payment_id", payment.ID.String()),
			zap.Int("matches", len(dupes)),
		)
	}

	s.metrics.RecordPayment(ctx, result.DuplicateWarning != nil)
	s.emitAudit(ctx, payment, len(dupes) > 0)
	return result, nil
}

func validate(req paymentdomain.RecordRequest, justification string, now time.Time) error {
	if !req.Amount.IsPositive() || money.ToCents(req.Amount) <= 0 {
		return paymentdomain.ErrInvalidAmount
	}
	if req.ReceivedAt.IsZero() || req.PostedAt.IsZero() {
		return paymentdomain.ErrMissingTimestamps
	}
	if req.ReceivedAt.After(req.PostedAt) {
		return paymentdomain.ErrReceivedAfterPosted
	}
	if req.BankDepositAt != nil && req.PostedAt.After(*req.BankDepositAt) {
		return paymentdomain.ErrPostedAfterDeposit
	}
	if dayDiff(now, req.PostedAt) > 1 && utf8.RuneCountInString(justification) < paymentdomain.MinJustificationLength {
		return paymentdomain.ErrJustificationRequired
	}
	return nil
}

// matchingPayments returns the ids of payments with the same cents amount
// posted within the duplicate window of postedAt.
func matchingPayments(existing []paymentdomain.Payment, amountCents int64, postedAt time.Time) []snowflake.ID {
	var ids []snowflake.ID
	for _, p := range existing {
		if p.AmountCents != amountCents {
			continue
		}
		diff := dayDiff(p.PaymentPostedAt, postedAt)
		if diff < 0 {
			diff = -diff
		}
		if diff <= duplicateWindowDays {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// dayDiff counts UTC calendar days from b to a.
func dayDiff(a, b time.Time) int {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(da.Sub(db).Hours() / 24)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func (s *Service) emitAudit(ctx context.Context, payment *paymentdomain.Payment, duplicateSuspected bool) {
	if s.auditSvc == nil || payment == nil {
		return
	}
	targetID := payment.ID.String()
	metadata := map[string]any{
		"invoice_id":          payment.InvoiceID.String(),
		"amount_cents":        payment.AmountCents,
		"payment_posted_at":   payment.PaymentPostedAt.Format(time.RFC3339),
		"duplicate_suspected": duplicateSuspected,
	}
	if payment.Justification != "" {
		metadata["justification"] = payment.Justification
	}
	if err := s.auditSvc.AuditLog(ctx, "", nil, auditdomain.ActionPaymentRecorded, "invoice_payment", &targetID, metadata); err != nil {
		s.log.Warn("payment audit failed", zap.Error(err))
	}
}
