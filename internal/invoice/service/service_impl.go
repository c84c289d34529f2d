package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradesettle/internal/approval"
	auditdomain "github.com/smallbiznis/tradesettle/internal/audit/domain"
	"github.com/smallbiznis/tradesettle/internal/calendar"
	"github.com/smallbiznis/tradesettle/internal/clock"
	"github.com/smallbiznis/tradesettle/internal/config"
	customerdomain "github.com/smallbiznis/tradesettle/internal/customer/domain"
	hoursdomain "github.com/smallbiznis/tradesettle/internal/hours/domain"
	invoicedomain "github.com/smallbiznis/tradesettle/internal/invoice/domain"
	"github.com/smallbiznis/tradesettle/internal/observability/metrics"
	"github.com/smallbiznis/tradesettle/internal/settings"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Config       config.Config
	Clock        clock.Clock
	Calendar     *calendar.Calendar
	Settings     settings.Provider
	Repo         invoicedomain.Repository
	HoursRepo    hoursdomain.Repository
	CustomerRepo customerdomain.Repository
	AuditSvc     auditdomain.Service `optional:"true"`
	Metrics      *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID        *snowflake.Node
	numberStart  int64
	clock        clock.Clock
	calendar     *calendar.Calendar
	settings     settings.Provider
	repo         invoicedomain.Repository
	hoursRepo    hoursdomain.Repository
	customerRepo customerdomain.Repository
	auditSvc     auditdomain.Service
	metrics      *metrics.Metrics
}

func NewService(p ServiceParam) invoicedomain.Service {
	start := p.Config.InvoiceNumberStart
	if start <= 0 {
		start = 1
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,

		numberStart:  start,
		clock:        p.Clock,
		calendar:     p.Calendar,
		settings:     p.Settings,
		repo:         p.Repo,
		hoursRepo:    p.HoursRepo,
		customerRepo: p.CustomerRepo,
		auditSvc:     p.AuditSvc,
		metrics:      p.Metrics,
	}
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	if id == 0 {
		return nil, invoicedomain.ErrInvalidInvoiceID
	}
	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	return invoice, nil
}

func (s *Service) Snapshot(ctx context.Context, id snowflake.ID) (*invoicedomain.IssuedSnapshot, error) {
	invoice, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return invoicedomain.DecodeSnapshot(invoice.SnapshotVersion, invoice.IssuedSnapshot)
}

// issueInputs is everything read before the issuance transaction.
type issueInputs struct {
	invoice  *invoicedomain.Invoice
	site     *hoursdomain.OrderSite
	customer *customerdomain.Customer
	entries  []hoursdomain.HourEntry
}

func (s *Service) Issue(ctx context.Context, req invoicedomain.IssueRequest) (*invoicedomain.Invoice, error) {
	if req.InvoiceID == 0 {
		return nil, invoicedomain.ErrInvalidInvoiceID
	}
	if req.IssuedByUserID == 0 {
		return nil, invoicedomain.ErrInvalidIssuer
	}

	in, err := s.loadIssueInputs(ctx, req.InvoiceID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	decision := s.route(in, now)
	if !decision.Proceed() {
		return nil, s.recordRouting(ctx, in.invoice, decision, now)
	}

	current := s.settings.Current()
	var issued *invoicedomain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindForUpdate(ctx, tx, req.InvoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if invoice.Status != invoicedomain.InvoiceStatusDraft {
			return invoicedomain.ErrInvoiceNotDraft
		}
		if invoice.InvoiceNumber != nil {
			return invoicedomain.ErrInvoiceAlreadyNumbered
		}
		// Hours may have changed since routing was evaluated.
		entries, err := s.issuableEntries(ctx, tx, invoice.OrderID)
		if err != nil {
			return err
		}
		in.entries = entries

		items, err := s.rebuildShiftDifferential(ctx, tx, invoice, in)
		if err != nil {
			return err
		}
		total := totalCents(items)

		number, err := s.repo.NextInvoiceNumber(ctx, tx, s.numberStart)
		if err != nil {
			return fmt.Errorf("allocate invoice number: %w", err)
		}

		issuer := req.IssuedByUserID
		invoice.InvoiceNumber = &number
		invoice.SubtotalCents = total
		invoice.TotalCents = total
		invoice.IssuedAt = &now
		invoice.IssuedByUserID = &issuer
		invoice.UpdatedAt = now

		snapshot := buildSnapshot(invoice, in, items, current.InvoiceFooterText)
		raw, err := snapshot.Encode()
		if err != nil {
			return fmt.Errorf("encode issued snapshot: %w", err)
		}
		invoice.SnapshotVersion = invoicedomain.SnapshotVersionV1
		invoice.IssuedSnapshot = raw

		if err := s.repo.MarkIssued(ctx, tx, invoice); err != nil {
			return err
		}
		invoice.Status = invoicedomain.InvoiceStatusIssued
		issued = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordInvoiceIssued(ctx)
	s.emitAudit(ctx, auditdomain.ActionInvoiceIssued, issued, map[string]any{
		"issued_by_user_id": req.IssuedByUserID.String(),
		"routing_reasons":   decision.Reasons,
	})
	s.log.Info("invoice issued",
		zap.String("invoice_id", issued.ID.String()),
		zap.Int64("invoice_number", *issued.InvoiceNumber),
		zap.Int64("total_cents", issued.TotalCents),
	)
	return issued, nil
}

func (s *Service) loadIssueInputs(ctx context.Context, id snowflake.ID) (*issueInputs, error) {
	invoice, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	if invoice.Status != invoicedomain.InvoiceStatusDraft {
		return nil, invoicedomain.ErrInvoiceNotDraft
	}
	if invoice.InvoiceNumber != nil {
		return nil, invoicedomain.ErrInvoiceAlreadyNumbered
	}

	entries, err := s.issuableEntries(ctx, s.db, invoice.OrderID)
	if err != nil {
		return nil, err
	}

	site, err := s.hoursRepo.GetOrderSite(ctx, s.db, invoice.OrderID)
	if err != nil {
		return nil, err
	}
	customer, err := s.customerRepo.FindByID(ctx, s.db, invoice.CustomerID)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, customerdomain.ErrNotFound
	}

	return &issueInputs{
		invoice:  invoice,
		site:     site,
		customer: customer,
		entries:  entries,
	}, nil
}

// issuableEntries enforces the hours preconditions and returns the order's
// approved entries.
func (s *Service) issuableEntries(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]hoursdomain.HourEntry, error) {
	counts, err := s.hoursRepo.CountEntriesByStatus(ctx, db, orderID)
	if err != nil {
		return nil, err
	}
	if counts.Pending > 0 {
		return nil, invoicedomain.ErrPendingHours
	}
	if counts.Rejected > 0 {
		return nil, invoicedomain.ErrRejectedHours
	}

	entries, err := s.hoursRepo.ListApprovedEntries(ctx, db, orderID)
	if err != nil {
		return nil, err
	}
	if !approvedHours(entries).IsPositive() {
		return nil, invoicedomain.ErrNoApprovedHours
	}
	return entries, nil
}

func (s *Service) route(in *issueInputs, now time.Time) approval.Decision {
	var cutoff time.Time
	if periodEnd, ok := cutoffPeriodEnd(in.invoice, in.entries); ok {
		cutoff, _ = s.calendar.CutoffFor(periodEnd, s.settings.Current().HolidayDates())
	}
	return approval.Route(approval.Input{
		ApprovalStatus:           in.invoice.ApprovalStatus,
		ApprovalNote:             in.invoice.ApprovalNote,
		CustomerRequiresApproval: in.customer.RequiresApproval,
		Cutoff:                   cutoff,
		Now:                      now,
	})
}

// recordRouting persists the routing decision for admin review. The write is
// outside any issuance transaction; the invoice itself stays DRAFT.
func (s *Service) recordRouting(ctx context.Context, invoice *invoicedomain.Invoice, decision approval.Decision, now time.Time) error {
	reason := strings.Join(decision.Reasons, "; ")
	if err := s.repo.SaveRouting(ctx, s.db, invoice.ID, now, string(decision.Outcome), reason); err != nil {
		return fmt.Errorf("persist routing: %w", err)
	}
	invoice.RoutedAt = &now
	invoice.RoutingOutcome = string(decision.Outcome)
	invoice.RoutingReason = reason

	s.metrics.RecordInvoiceRouted(ctx, string(decision.Outcome))
	s.emitAudit(ctx, auditdomain.ActionInvoiceRouted, invoice, map[string]any{
		"outcome": string(decision.Outcome),
		"reasons": decision.Reasons,
	})
	s.log.Info("invoice issuance routed",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("outcome", string(decision.Outcome)),
		zap.Strings("reasons", decision.Reasons),
	)
	return &invoicedomain.RoutingError{Outcome: decision.Outcome, Reasons: decision.Reasons}
}

func (s *Service) rebuildShiftDifferential(ctx context.Context, tx *gorm.DB, invoice *invoicedomain.Invoice, in *issueInputs) ([]invoicedomain.LineItem, error) {
	if err := s.repo.DeleteLineItems(ctx, tx, invoice.ID, invoicedomain.LineItemKindShiftDiff); err != nil {
		return nil, err
	}
	existing, err := s.repo.ListLineItems(ctx, tx, invoice.ID)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		existing[i].Recompute()
	}
	if err := s.repo.UpdateLineItemCents(ctx, tx, existing); err != nil {
		return nil, err
	}

	sdItems, err := shiftDifferentialItems(hoursdomain.Lines(in.entries), existing, in.site.Order)
	if err != nil {
		return nil, err
	}
	for i := range sdItems {
		sdItems[i].ID = s.genID.Generate()
		sdItems[i].InvoiceID = invoice.ID
	}
	if err := s.repo.InsertLineItems(ctx, tx, sdItems); err != nil {
		return nil, err
	}

	items := make([]invoicedomain.LineItem, 0, len(existing)+len(sdItems))
	items = append(items, existing...)
	return append(items, sdItems...), nil
}

func (s *Service) RecordAdminOverride(ctx context.Context, id snowflake.ID, note string) (*invoicedomain.Invoice, error) {
	note = strings.TrimSpace(note)
	if note == "" {
		return nil, invoicedomain.ErrOverrideNoteRequired
	}
	return s.recordApproval(ctx, id, approval.AdminOverrideSentinel+": "+note, auditdomain.ActionInvoiceOverrideRecorded)
}

func (s *Service) RecordCustomerApproval(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	return s.recordApproval(ctx, id, "", auditdomain.ActionInvoiceCustomerApproved)
}

// recordApproval marks a DRAFT invoice APPROVED. An empty note keeps the
// existing one so a customer approval does not erase an admin override.
func (s *Service) recordApproval(ctx context.Context, id snowflake.ID, note, action string) (*invoicedomain.Invoice, error) {
	if id == 0 {
		return nil, invoicedomain.ErrInvalidInvoiceID
	}

	var updated *invoicedomain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if invoice == nil {
			return invoicedomain.ErrInvoiceNotFound
		}
		if invoice.Status != invoicedomain.InvoiceStatusDraft {
			return invoicedomain.ErrInvoiceNotDraft
		}
		if note == "" {
			note = invoice.ApprovalNote
		}

		now := s.clock.Now()
		if err := s.repo.SaveApproval(ctx, tx, id, approval.StatusApproved, note, now); err != nil {
			return err
		}
		invoice.ApprovalStatus = approval.StatusApproved
		invoice.ApprovalNote = note
		invoice.UpdatedAt = now
		updated = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, action, updated, map[string]any{
		"approval_note": updated.ApprovalNote,
	})
	return updated, nil
}

func (s *Service) emitAudit(ctx context.Context, action string, invoice *invoicedomain.Invoice, extra map[string]any) {
	if s.auditSvc == nil || invoice == nil {
		return
	}
	metadata := map[string]any{
		"customer_id": invoice.CustomerID.String(),
		"order_id":    invoice.OrderID.String(),
		"status":      string(invoice.Status),
		"total_cents": invoice.TotalCents,
	}
	if invoice.InvoiceNumber != nil {
		metadata["invoice_number"] = *invoice.InvoiceNumber
	}
	for key, value := range extra {
		if key == "" {
			continue
		}
		metadata[key] = value
	}

	targetID := invoice.ID.String()
	if err := s.auditSvc.AuditLog(ctx, "", nil, action, "invoice", &targetID, metadata); err != nil {
		s.log.Warn("invoice audit failed", zap.String("action", action), zap.Error(err))
	}
}

// cutoffPeriodEnd picks the invoice's own period end, else the latest period
// end among its approved entries.
func cutoffPeriodEnd(invoice *invoicedomain.Invoice, entries []hoursdomain.HourEntry) (time.Time, bool) {
	if invoice.PeriodEnd != nil {
		return *invoice.PeriodEnd, true
	}
	var latest time.Time
	for _, entry := range entries {
		if entry.PeriodEnd.After(latest) {
			latest = entry.PeriodEnd
		}
	}
	return latest, !latest.IsZero()
}

func approvedHours(entries []hoursdomain.HourEntry) decimal.Decimal {
	total := decimal.Zero
	for _, line := range hoursdomain.Lines(entries) {
		if line.Unit == hoursdomain.UnitHours {
			total = total.Add(line.Quantity)
		}
	}
	return total
}

func buildSnapshot(invoice *invoicedomain.Invoice, in *issueInputs, items []invoicedomain.LineItem, footer string) invoicedomain.IssuedSnapshot {
	return invoicedomain.IssuedSnapshot{
		Version:        invoicedomain.SnapshotVersionV1,
		InvoiceID:      invoice.ID,
		InvoiceNumber:  *invoice.InvoiceNumber,
		IssuedAt:       *invoice.IssuedAt,
		IssuedByUserID: *invoice.IssuedByUserID,
		Customer: invoicedomain.SnapshotCustomer{
			ID:   in.customer.ID,
			Name: in.customer.Name,
		},
		Order: invoicedomain.SnapshotOrder{
			ID:           in.site.Order.ID,
			OrderNumber:  in.site.Order.OrderNumber,
			LocationCode: in.site.LocationCode(),
			StateCode:    in.site.StateCode(),
		},
		LineItems:     invoicedomain.SnapshotLineItems(items),
		HourEntries:   in.entries,
		SubtotalCents: invoice.SubtotalCents,
		TotalCents:    invoice.TotalCents,
		FooterText:    footer,
	}
}
