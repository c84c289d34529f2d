package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tradesettle/internal/burden/domain"
	hoursdomain "github.com/smallbiznis/tradesettle/internal/hours/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	hundred   = decimal.NewFromInt(100)
	otPremium = decimal.NewFromFloat(1.5)
	dtPremium = decimal.NewFromInt(2)
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Resolver domain.RateResolver
}

type Service struct {
	log      *zap.Logger
	resolver domain.RateResolver
}

func NewService(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("burden.service"),
		resolver: p.Resolver,
	}
}

func (s *Service) Calculate(ctx context.Context, db *gorm.DB, stateCode string, asOf time.Time, lines []hoursdomain.HourEntryLine) (*domain.Breakdown, error) {
	state := strings.ToUpper(strings.TrimSpace(stateCode))
	if state == "" {
		return nil, domain.ErrMissingStateCode
	}

	rates, err := s.resolver.Resolve(ctx, db, state, asOf)
	if err != nil {
		return nil, fmt.Errorf("resolve burden rates: %w", err)
	}
	if !rates.WorkersComp.Valid {
		s.log.Warn("no workers comp rate for state",
			zap.String("state_code", state),
			zap.Time("as_of", asOf),
		)
		return nil, fmt.Errorf("%w: state %s", domain.ErrMissingWorkersCompRate, state)
	}

	breakdown := Compute(lines, rates)
	breakdown.StateCode = state
	breakdown.EffectiveDate = asOf
	return &breakdown, nil
}

// Compute prices the lines with the given rates. Premium OT and DT pay is
// normalized back to straight time for the workers comp base; wage-following
// rates apply to the full labor cost.
func Compute(lines []hoursdomain.HourEntryLine, rates domain.Rates) domain.Breakdown {
	laborCost := decimal.Zero
	baseWages := decimal.Zero
	for _, line := range lines {
		cost := line.Cost()
		laborCost = laborCost.Add(cost)

		switch line.EarningCode {
		case hoursdomain.CodeREG, hoursdomain.CodeHOL:
			baseWages = baseWages.Add(cost)
		case hoursdomain.CodeOT:
			baseWages = baseWages.Add(cost.Div(otPremium))
		case hoursdomain.CodeDT:
			baseWages = baseWages.Add(cost.Div(dtPremium))
		}
	}

	wcRate := rates.WorkersComp.Decimal
	wcCost := baseWages.Mul(wcRate).Div(hundred)
	wfRate := rates.WageFollowingPercent()
	wfCost := laborCost.Mul(wfRate).Div(hundred)

	return domain.Breakdown{
		LaborCost:         laborCost,
		BaseWages:         baseWages,
		WorkersCompRate:   wcRate,
		WorkersCompCost:   wcCost,
		FICARate:          rates.FICA,
		FUTARate:          rates.FUTA,
		SUTARate:          rates.SUTA,
		GLRate:            rates.GL,
		PEORate:           rates.PEO,
		WageFollowingRate: wfRate,
		WageFollowingCost: wfCost,
		TotalBurden:       wcCost.Add(wfCost),
		Buckets:           Buckets(lines),
	}
}

type bucketKey struct {
	trade int64
	code  string
	unit  hoursdomain.Unit
}

// Buckets groups labor cost by trade and earning code, ordered by trade then code.
func Buckets(lines []hoursdomain.HourEntryLine) []domain.LaborBucket {
	index := make(map[bucketKey]int)
	var out []domain.LaborBucket
	for _, line := range lines {
		key := bucketKey{code: line.EarningCode, unit: line.Unit}
		if line.TradeID != nil {
			key.trade = line.TradeID.Int64()
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, domain.LaborBucket{
				TradeID:     line.TradeID,
				EarningCode: line.EarningCode,
				Unit:        string(line.Unit),
			})
		}
		out[i].Quantity = out[i].Quantity.Add(line.Quantity)
		out[i].Cost = out[i].Cost.Add(line.Cost())
	}

	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := tradeOf(out[i]), tradeOf(out[j])
		if ti != tj {
			return ti < tj
		}
		if out[i].EarningCode != out[j].EarningCode {
			return out[i].EarningCode < out[j].EarningCode
		}
		return out[i].Unit < out[j].Unit
	})
	return out
}

func tradeOf(b domain.LaborBucket) int64 {
	if b.TradeID == nil {
		return 0
	}
	return b.TradeID.Int64()
}
