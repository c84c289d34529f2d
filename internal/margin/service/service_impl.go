package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tradesettle/internal/audit/domain"
	burdendomain "github.com/smallbiznis/tradesettle/internal/burden/domain"
	"github.com/smallbiznis/tradesettle/internal/clock"
	hoursdomain "github.com/smallbiznis/tradesettle/internal/hours/domain"
	invoicedomain "github.com/smallbiznis/tradesettle/internal/invoice/domain"
	"github.com/smallbiznis/tradesettle/internal/margin/domain"
	"github.com/smallbiznis/tradesettle/internal/observability/metrics"
	"github.com/smallbiznis/tradesettle/internal/settings"
	pkgdb "github.com/smallbiznis/tradesettle/pkg/db"
	"github.com/smallbiznis/tradesettle/pkg/money"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	Settings    settings.Provider
	Repo        domain.Repository
	InvoiceRepo invoicedomain.Repository
	HoursRepo   hoursdomain.Repository
	BurdenSvc   burdendomain.Service
	PlanRates   domain.PlanRateSource `optional:"true"`
	AuditSvc    auditdomain.Service   `optional:"true"`
	Metrics     *metrics.Metrics      `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	settings    settings.Provider
	repo        domain.Repository
	invoiceRepo invoicedomain.Repository
	hoursRepo   hoursdomain.Repository
	burdenSvc   burdendomain.Service
	planRates   domain.PlanRateSource
	auditSvc    auditdomain.Service
	metrics     *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("margin.service"),
		genID:       p.GenID,
		clock:       p.Clock,
		settings:    p.Settings,
		repo:        p.Repo,
		invoiceRepo: p.InvoiceRepo,
		hoursRepo:   p.HoursRepo,
		burdenSvc:   p.BurdenSvc,
		planRates:   p.PlanRates,
		auditSvc:    p.AuditSvc,
		metrics:     p.Metrics,
	}
}

func (s *Service) GetByInvoice(ctx context.Context, invoiceID snowflake.ID) (*domain.Snapshot, error) {
	if invoiceID == 0 {
		return nil, domain.ErrInvalidInvoiceID
	}
	snapshot, err := s.repo.FindByInvoice(ctx, s.db, invoiceID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, domain.ErrSnapshotNotFound
	}
	return snapshot, nil
}

func (s *Service) CreateOrGet(ctx context.Context, invoiceID snowflake.ID, paymentAmountCents int64) (*domain.Result, error) {
	if invoiceID == 0 {
		return nil, domain.ErrInvalidInvoiceID
	}

	var result *domain.Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByInvoice(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = &domain.Result{Snapshot: existing}
			return nil
		}

		snapshot, err := s.build(ctx, tx, invoiceID, paymentAmountCents)
		if err != nil {
			return err
		}

		inserted, err := s.repo.Insert(ctx, tx, snapshot)
		if err != nil {
			return err
		}
		if !inserted {
			winner, err := s.repo.FindByInvoice(ctx, tx, invoiceID)
			if err != nil {
				return err
			}
			result = &domain.Result{Snapshot: winner}
			return nil
		}
		result = &domain.Result{Snapshot: snapshot, Created: true}
		return nil
	})
	if err != nil && pkgdb.IsDuplicateKeyErr(err) {
		// A concurrent first payment committed the snapshot between our read
		// and insert; the transaction is gone, so read the winner fresh.
		winner, readErr := s.repo.FindByInvoice(ctx, s.db, invoiceID)
		if readErr != nil {
			return nil, readErr
		}
		if winner == nil {
			return nil, err
		}
		result, err = &domain.Result{Snapshot: winner}, nil
	}
	if err != nil {
		if errors.Is(err, burdendomain.ErrMissingStateCode) || errors.Is(err, burdendomain.ErrMissingWorkersCompRate) {
			s.log.Warn("margin snapshot blocked by incomplete data",
				zap.String("invoice_id", invoiceID.String()),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.metrics.RecordMarginSnapshot(ctx, result.Created)
	if result.Created {
		s.emitAudit(ctx, result.Snapshot)
	}
	return result, nil
}

func (s *Service) build(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID, paymentAmountCents int64) (*domain.Snapshot, error) {
	invoice, err := s.invoiceRepo.FindByID(ctx, tx, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrInvoiceNotFound
	}

	site, err := s.hoursRepo.GetOrderSite(ctx, tx, invoice.OrderID)
	if err != nil {
		return nil, err
	}
	state := site.StateCode()
	if state == "" {
		return nil, burdendomain.ErrMissingStateCode
	}

	entries, err := s.hoursRepo.ListApprovedEntries(ctx, tx, invoice.OrderID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	asOf := now
	if invoice.IssuedAt != nil {
		asOf = *invoice.IssuedAt
	}
	breakdown, err := s.burdenSvc.Calculate(ctx, tx, state, asOf, hoursdomain.Lines(entries))
	if err != nil {
		return nil, err
	}
	rawBreakdown, err := json.Marshal(breakdown)
	if err != nil {
		return nil, fmt.Errorf("encode burden breakdown: %w", err)
	}

	rate := domain.DefaultCommissionRate
	if s.planRates != nil {
		planRate, err := s.planRates.ActiveDefaultRate(ctx, tx)
		if err != nil {
			return nil, err
		}
		if planRate.Valid {
			rate = planRate.Decimal
		}
	}

	current := s.settings.Current()
	laborCents := money.ToCents(breakdown.LaborCost)
	burdenCents := money.ToCents(breakdown.TotalBurden)

	return &domain.Snapshot{
		ID:                       s.genID.Generate(),
		InvoiceID:                invoice.ID,
		StateCode:                breakdown.StateCode,
		TradeRevenuePaidCents:    paymentAmountCents,
		TradeLaborCostCents:      laborCents,
		TradeBurdenCostCents:     burdenCents,
		TradeMarginCents:         paymentAmountCents - laborCents - burdenCents,
		CommissionRateSnapshot:   rate,
		BankLagDaysSnapshot:      current.BankLag(),
		PostingGraceDaysSnapshot: current.PostingGrace(),
		BurdenBreakdown:          datatypes.JSON(rawBreakdown),
		CreatedAt:                now,
	}, nil
}

func (s *Service) emitAudit(ctx context.Context, snapshot *domain.Snapshot) {
	if s.auditSvc == nil || snapshot == nil {
		return
	}
	targetID := snapshot.ID.String()
	metadata := map[string]any{
		"invoice_id":         snapshot.InvoiceID.String(),
		"state_code":         snapshot.StateCode,
		"trade_margin_cents": snapshot.TradeMarginCents,
		"commission_rate":    snapshot.CommissionRateSnapshot.String(),
	}
	if err := s.auditSvc.AuditLog(ctx, "", nil, auditdomain.ActionMarginSnapshotCreated, "margin_snapshot", &targetID, metadata); err != nil {
		s.log.Warn("margin audit failed", zap.Error(err))
	}
}
