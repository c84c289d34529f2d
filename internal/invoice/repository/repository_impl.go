package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradesettle/internal/invoice/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&invoice).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) (map[snowflake.ID]domain.Invoice, error) {
	out := make(map[snowflake.ID]domain.Invoice, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.Invoice
	if err := db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *repo) ListLineItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeleteLineItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID, kind domain.LineItemKind) error {
	return db.WithContext(ctx).
		Where("invoice_id = ? AND kind = ?", invoiceID, kind).
		Delete(&domain.LineItem{}).Error
}

func (r *repo) InsertLineItems(ctx context.Context, db *gorm.DB, items []domain.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) UpdateLineItemCents(ctx context.Context, db *gorm.DB, items []domain.LineItem) error {
	for _, item := range items {
		err := db.WithContext(ctx).
			Model(&domain.LineItem{}).
			Where("id = ?", item.ID).
			Updates(map[string]any{
				"unit_rate_cents":  item.UnitRateCents,
				"line_total_cents": item.LineTotalCents,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) NextInvoiceNumber(ctx context.Context, db *gorm.DB, start int64) (int64, error) {
	// The increment takes the row lock before the read, so concurrent issuers
	// serialize on the counter row.
	for attempt := 0; attempt < 2; attempt++ {
		result := db.WithContext(ctx).Exec(
			`UPDATE invoice_number_counters
			 SET current_value = current_value + 1
			 WHERE id = ?`,
			domain.CounterRowID,
		)
		if result.Error != nil {
			return 0, result.Error
		}
		if result.RowsAffected == 1 {
			var counter domain.NumberCounter
			if err := db.WithContext(ctx).
				Where("id = ?", domain.CounterRowID).
				First(&counter).Error; err != nil {
				return 0, err
			}
			return counter.CurrentValue - 1, nil
		}

		if err := db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&domain.NumberCounter{ID: domain.CounterRowID, CurrentValue: start}).Error; err != nil {
			return 0, err
		}
	}
	return 0, errors.New("invoice number counter unavailable")
}

func (r *repo) MarkIssued(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	result := db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET status = ?, invoice_number = ?, subtotal_cents = ?, total_cents = ?,
		     issued_at = ?, issued_by_user_id = ?, snapshot_version = ?, issued_snapshot = ?,
		     updated_at = ?
		 WHERE id = ? AND status = ? AND invoice_number IS NULL`,
		domain.InvoiceStatusIssued,
		invoice.InvoiceNumber,
		invoice.SubtotalCents,
		invoice.TotalCents,
		invoice.IssuedAt,
		invoice.IssuedByUserID,
		invoice.SnapshotVersion,
		invoice.IssuedSnapshot,
		invoice.UpdatedAt,
		invoice.ID,
		domain.InvoiceStatusDraft,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInvoiceAlreadyNumbered
	}
	return nil
}

func (r *repo) SaveRouting(ctx context.Context, db *gorm.DB, id snowflake.ID, routedAt time.Time, outcome, reason string) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET routed_at = ?, routing_outcome = ?, routing_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		routedAt,
		outcome,
		reason,
		routedAt,
		id,
		domain.InvoiceStatusDraft,
	).Error
}

func (r *repo) SaveApproval(ctx context.Context, db *gorm.DB, id snowflake.ID, status, note string, updatedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET approval_status = ?, approval_note = ?, updated_at = ?
		 WHERE id = ?`,
		status,
		note,
		updatedAt,
		id,
	).Error
}
