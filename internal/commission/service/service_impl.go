package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/tradesettle/internal/audit/domain"
	"github.com/smallbiznis/tradesettle/internal/clock"
	"github.com/smallbiznis/tradesettle/internal/commission/domain"
	customerdomain "github.com/smallbiznis/tradesettle/internal/customer/domain"
	invoicedomain "github.com/smallbiznis/tradesettle/internal/invoice/domain"
	margindomain "github.com/smallbiznis/tradesettle/internal/margin/domain"
	"github.com/smallbiznis/tradesettle/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/tradesettle/internal/payment/domain"
	"github.com/smallbiznis/tradesettle/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	PaymentRepo  paymentdomain.Repository
	InvoiceRepo  invoicedomain.Repository
	CustomerRepo customerdomain.Repository
	MarginSvc    margindomain.Service
	AuditSvc     auditdomain.Service `optional:"true"`
	Metrics      *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	paymentRepo  paymentdomain.Repository
	invoiceRepo  invoicedomain.Repository
	customerRepo customerdomain.Repository
	marginSvc    margindomain.Service
	auditSvc     auditdomain.Service
	metrics      *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("commission.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		paymentRepo:  p.PaymentRepo,
		invoiceRepo:  p.InvoiceRepo,
		customerRepo: p.CustomerRepo,
		marginSvc:    p.MarginSvc,
		auditSvc:     p.AuditSvc,
		metrics:      p.Metrics,
	}
}

func (s *Service) ListEventsByPayment(ctx context.Context, paymentID snowflake.ID) ([]domain.Event, error) {
	if paymentID == 0 {
		return nil, domain.ErrInvalidPaymentID
	}
	return s.repo.ListEventsByPayment(ctx, s.db, paymentID)
}

func (s *Service) SettleForPayment(ctx context.Context, paymentID snowflake.ID) (*domain.SettleResult, error) {
	if paymentID == 0 {
		return nil, domain.ErrInvalidPaymentID
	}
	payment, err := s.paymentRepo.FindByID(ctx, s.db, paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrPaymentNotFound
	}

	snapshotResult, err := s.marginSvc.CreateOrGet(ctx, payment.InvoiceID, payment.AmountCents)
	if err != nil {
		return nil, err
	}
	snapshot := snapshotResult.Snapshot

	var result *domain.SettleResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.invoiceRepo.FindByID(ctx, tx, payment.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrInvoiceNotFound
		}

		payments, err := s.paymentRepo.ListByInvoice(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}
		_, tiers, err := s.repo.ActivePlan(ctx, tx)
		if err != nil {
			return err
		}
		assignments, err := s.repo.ListAssignments(ctx, tx, invoice.OrderID)
		if err != nil {
			return err
		}

		days := domain.DaysToPaid(baseDate(invoice, payment), payment.PaymentReceivedAt)
		multiplier := domain.PayoutMultiplier(tiers, days)
		proportion := domain.Proportion(paidBefore(payments, payment.ID), payment.AmountCents, invoice.TotalCents)
		margin := decimal.NewFromInt(snapshot.TradeMarginCents).Div(decimal.NewFromInt(100)).Mul(proportion)
		late := domain.IsLatePosted(payment.PaymentReceivedAt, payment.PaymentPostedAt,
			snapshot.BankLagDaysSnapshot, snapshot.PostingGraceDaysSnapshot)

		result = &domain.SettleResult{
			PaymentID:             payment.ID,
			InvoiceID:             invoice.ID,
			DaysToPaid:            days,
			PayoutMultiplier:      multiplier,
			Proportion:            proportion,
			MarginForPaymentCents: money.ToCents(margin),
			IsLatePosted:          late,
		}

		now := s.clock.Now()
		for _, a := range assignments {
			if !a.ActiveAt(payment.PaymentReceivedAt) {
				continue
			}
			raw := margin.Mul(snapshot.CommissionRateSnapshot).Mul(domain.SplitFraction(a.SplitPercent))
			event := &domain.Event{
				ID:                     s.genID.Generate(),
				InvoicePaymentID:       payment.ID,
				CommissionAssignmentID: a.ID,
				InvoiceID:              invoice.ID,
				UserID:                 a.UserID,
				DaysToPaid:             days,
				PayoutMultiplier:       multiplier,
				CommissionRate:         snapshot.CommissionRateSnapshot,
				SplitPercent:           a.SplitPercent,
				MarginForPaymentCents:  result.MarginForPaymentCents,
				RawCommissionCents:     money.ToCents(raw),
				PayableCommissionCents: money.ToCents(raw.Mul(multiplier)),
				IsLatePosted:           late,
				EarnedAt:               payment.PaymentReceivedAt,
				PostedAt:               payment.PaymentPostedAt,
				CreatedAt:              now,
			}
			inserted, err := s.repo.InsertEvent(ctx, tx, event)
			if err != nil {
				return err
			}
			if inserted {
				result.Created++
			}
		}

		result.Events, err = s.repo.ListEventsByPayment(ctx, tx, payment.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCommissionEvents(ctx, result.Created, result.IsLatePosted)
	if result.Created > 0 {
		s.emitAudit(ctx, result)
	}
	return result, nil
}

// baseDate is the invoice's issue time, else its invoice date, else the
// payment's receipt time.
func baseDate(invoice *invoicedomain.Invoice, payment *paymentdomain.Payment) time.Time {
	if invoice.IssuedAt != nil {
		return *invoice.IssuedAt
	}
	if invoice.InvoiceDate != nil {
		return *invoice.InvoiceDate
	}
	return payment.PaymentReceivedAt
}

// paidBefore sums the payments ordered ahead of paymentID. payments must be
// in receipt order.
func paidBefore(payments []paymentdomain.Payment, paymentID snowflake.ID) int64 {
	var sum int64
	for _, p := range payments {
		if p.ID == paymentID {
			break
		}
		sum += p.AmountCents
	}
	return sum
}

func (s *Service) emitAudit(ctx context.Context, result *domain.SettleResult) {
	if s.auditSvc == nil {
		return
	}
	targetID := result.PaymentID.String()
	metadata := map[string]any{
		"invoice_id":               result.InvoiceID.String(),
		"events_created":           result.Created,
		"days_to_paid":             result.DaysToPaid,
		"payout_multiplier":        result.PayoutMultiplier.String(),
		"margin_for_payment_cents": result.MarginForPaymentCents,
		"late_posted":              result.IsLatePosted,
	}
	if err := s.auditSvc.AuditLog(ctx, "", nil, auditdomain.ActionCommissionSettled, "invoice_payment", &targetID, metadata); err != nil {
		s.log.Warn("commission audit failed", zap.Error(err))
	}
}
