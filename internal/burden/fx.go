package burden

import (
	"github.com/smallbiznis/tradesettle/internal/burden/repository"
	"github.com/smallbiznis/tradesettle/internal/burden/service"
	"go.uber.org/fx"
)

var Module = fx.Module("burden.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
