package service

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/tradesettle/internal/audit/domain"
	"github.com/smallbiznis/tradesettle/internal/clock"
	hoursdomain "github.com/smallbiznis/tradesettle/internal/hours/domain"
	"github.com/smallbiznis/tradesettle/internal/payroll/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const week = 7 * 24 * time.Hour

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	HoursRepo hoursdomain.Repository
	AuditSvc  auditdomain.Service `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	hoursRepo hoursdomain.Repository
	auditSvc  auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("payroll.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		hoursRepo: p.HoursRepo,
		auditSvc:  p.AuditSvc,
	}
}

// ValidateWeekStart rejects anything other than a Monday at 00:00 UTC.
func ValidateWeekStart(weekStart time.Time) error {
	ws := weekStart.UTC()
	if ws.Weekday() != time.Monday || !ws.Equal(ws.Truncate(24*time.Hour)) {
		return domain.ErrInvalidWeekStart
	}
	return nil
}

func (s *Service) Generate(ctx context.Context, weekStart time.Time) (*domain.Packet, error) {
	if err := ValidateWeekStart(weekStart); err != nil {
		return nil, err
	}
	weekStart = weekStart.UTC()
	weekEnd := weekStart.Add(week)

	var packet *domain.Packet
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		entries, err := s.hoursRepo.ListApprovedEntriesOverlapping(ctx, tx, weekStart, weekEnd)
		if err != nil {
			return err
		}

		orderIDs := make([]snowflake.ID, 0, len(entries))
		employeeIDs := make([]snowflake.ID, 0, len(entries))
		for _, e := range entries {
			orderIDs = append(orderIDs, e.OrderID)
			employeeIDs = append(employeeIDs, e.EmployeeID)
		}
		sites, err := s.hoursRepo.ListOrderSites(ctx, tx, orderIDs)
		if err != nil {
			return err
		}
		employees, err := s.hoursRepo.ListEmployees(ctx, tx, employeeIDs)
		if err != nil {
			return err
		}
		deductions, err := s.hoursRepo.ListActiveDeductions(ctx, tx, employeeIDs, weekStart, weekEnd)
		if err != nil {
			return err
		}

		lines := Aggregate(entries, sites, employees, deductions)
		for i := range lines {
			lines[i].ID = s.genID.Generate()
		}

		packet = &domain.Packet{
			ID:          s.genID.Generate(),
			WeekStart:   weekStart,
			LineCount:   len(lines),
			GeneratedAt: s.clock.Now(),
		}
		id, err := s.repo.Upsert(ctx, tx, packet)
		if err != nil {
			return err
		}
		packet.ID = id
		if err := s.repo.ReplaceLines(ctx, tx, id, lines); err != nil {
			return err
		}
		packet.Lines = lines
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("payroll packet generated",
		zap.Time("week_start", weekStart),
		zap.Int("lines", packet.LineCount),
	)
	s.emitAudit(ctx, packet)
	return packet, nil
}

func (s *Service) Get(ctx context.Context, weekStart time.Time) (*domain.Packet, error) {
	if err := ValidateWeekStart(weekStart); err != nil {
		return nil, err
	}
	packet, err := s.repo.FindByWeek(ctx, s.db, weekStart)
	if err != nil {
		return nil, err
	}
	if packet == nil {
		return nil, domain.ErrPacketNotFound
	}
	return packet, nil
}

// CSV renders the stored packet of the week, generating it on first use.
func (s *Service) CSV(ctx context.Context, weekStart time.Time) ([]byte, error) {
	packet, err := s.Get(ctx, weekStart)
	if errors.Is(err, domain.ErrPacketNotFound) {
		packet, err = s.Generate(ctx, weekStart)
	}
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, packet.Lines); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Service) emitAudit(ctx context.Context, packet *domain.Packet) {
	if s.auditSvc == nil {
		return
	}
	targetID := packet.ID.String()
	metadata := map[string]any{
		"week_start": packet.WeekStart.Format("2006-01-02"),
		"line_count": packet.LineCount,
	}
	if err := s.auditSvc.AuditLog(ctx, "", nil, auditdomain.ActionPayrollPacketGenerated, "payroll_packet", &targetID, metadata); err != nil {
		s.log.Warn("payroll audit failed", zap.Error(err))
	}
}
