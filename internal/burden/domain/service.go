package domain

import (
	"context"
	"errors"
	"time"

	hoursdomain "github.com/smallbiznis/tradesettle/internal/hours/domain"
	"gorm.io/gorm"
)

type RateResolver interface {
	// Resolve returns the rates for stateCode effective at asOf. State rows win
	// over global rows of the same type.
	Resolve(ctx context.Context, db *gorm.DB, stateCode string, asOf time.Time) (Rates, error)
}

type Service interface {
	Calculate(ctx context.Context, db *gorm.DB, stateCode string, asOf time.Time, lines []hoursdomain.HourEntryLine) (*Breakdown, error)
}

var (
	ErrMissingStateCode       = errors.New("missing_job_site_state")
	ErrMissingWorkersCompRate = errors.New("missing_workers_comp_rate")
)
