package hours

import (
	"github.com/smallbiznis/tradesettle/internal/hours/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("hours.repository",
	fx.Provide(repository.Provide),
)
