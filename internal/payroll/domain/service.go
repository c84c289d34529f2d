package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	// Generate aggregates the week starting at weekStart and replaces the
	// stored packet for that week.
	Generate(ctx context.Context, weekStart time.Time) (*Packet, error)
	Get(ctx context.Context, weekStart time.Time) (*Packet, error)
	CSV(ctx context.Context, weekStart time.Time) ([]byte, error)
}

type Repository interface {
	FindByWeek(ctx context.Context, db *gorm.DB, weekStart time.Time) (*Packet, error)
	// Upsert creates or refreshes the packet row of the week and returns its id.
	Upsert(ctx context.Context, db *gorm.DB, packet *Packet) (snowflake.ID, error)
	ReplaceLines(ctx context.Context, db *gorm.DB, packetID snowflake.ID, lines []Line) error
}

var (
	ErrInvalidWeekStart = errors.New("invalid_week_start")
	ErrPacketNotFound   = errors.New("payroll_packet_not_found")
)
