package margin

import (
	"github.com/smallbiznis/tradesettle/internal/margin/repository"
	"github.com/smallbiznis/tradesettle/internal/margin/service"
	"go.uber.org/fx"
)

var Module = fx.Module("margin.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
