package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tradesettle/internal/payroll/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByWeek(ctx context.Context, db *gorm.DB, weekStart time.Time) (*domain.Packet, error) {
	var packet domain.Packet
	err := db.WithContext(ctx).
		Preload("Lines", func(tx *gorm.DB) *gorm.DB { return tx.Order("position ASC") }).
		Where("week_start = ?", weekStart.UTC()).
		First(&packet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &packet, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, packet *domain.Packet) (snowflake.ID, error) {
	err := db.WithContext(ctx).
		Omit("Lines").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "week_start"}},
			DoUpdates: clause.AssignmentColumns([]string{"line_count", "generated_at"}),
		}).
		Create(packet).Error
	if err != nil {
		return 0, err
	}

	var id snowflake.ID
	err = db.WithContext(ctx).
		Model(&domain.Packet{}).
		Select("id").
		Where("week_start = ?", packet.WeekStart.UTC()).
		Scan(&id).Error
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *repo) ReplaceLines(ctx context.Context, db *gorm.DB, packetID snowflake.ID, lines []domain.Line) error {
	if err := db.WithContext(ctx).Where("packet_id = ?", packetID).Delete(&domain.Line{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		lines[i].PacketID = packetID
	}
	return db.WithContext(ctx).CreateInBatches(lines, 200).Error
}
