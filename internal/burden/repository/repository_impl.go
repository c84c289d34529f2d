package repository

import (
	"context"
	"strings"
	"time"

	"github.com/smallbiznis/tradesettle/internal/burden/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.RateResolver {
	return &repo{}
}

func (r *repo) Resolve(ctx context.Context, db *gorm.DB, stateCode string, asOf time.Time) (domain.Rates, error) {
	state := strings.ToUpper(strings.TrimSpace(stateCode))

	var rows []domain.BurdenRate
	err := db.WithContext(ctx).
		Where("effective_from <= ?", asOf).
		Where("(effective_to IS NULL OR effective_to >= ?)", asOf).
		Where("(state_code IS NULL OR UPPER(state_code) = ?)", state).
		Order("effective_from DESC").
		Find(&rows).Error
	if err != nil {
		return domain.Rates{}, err
	}

	// rows are newest first; the first state row per type wins, a global row
	// only fills a type that has no state row.
	chosen := make(map[domain.RateType]domain.BurdenRate)
	for _, row := range rows {
		current, ok := chosen[row.RateType]
		switch {
		case !ok:
			chosen[row.RateType] = row
		case current.StateCode == nil && row.StateCode != nil:
			chosen[row.RateType] = row
		}
	}

	var rates domain.Rates
	// Workers comp is priced per state and never falls back to a global row.
	if wc, ok := chosen[domain.RateWorkersComp]; ok && wc.StateCode != nil {
		rates.WorkersComp.Decimal = wc.RatePercent
		rates.WorkersComp.Valid = true
	}
	rates.FICA = chosen[domain.RateFICA].RatePercent
	rates.FUTA = chosen[domain.RateFUTA].RatePercent
	rates.SUTA = chosen[domain.RateSUTA].RatePercent
	rates.GL = chosen[domain.RateGL].RatePercent
	rates.PEO = chosen[domain.RatePEO].RatePercent
	return rates, nil
}
