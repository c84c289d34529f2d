package commission

import (
	"github.com/smallbiznis/tradesettle/internal/commission/domain"
	"github.com/smallbiznis/tradesettle/internal/commission/repository"
	"github.com/smallbiznis/tradesettle/internal/commission/service"
	margindomain "github.com/smallbiznis/tradesettle/internal/margin/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("commission.service",
	fx.Provide(repository.Provide),
	// The active plan's default rate feeds margin snapshots.
	fx.Provide(func(repo domain.Repository) margindomain.PlanRateSource { return repo }),
	fx.Provide(service.NewService),
)
