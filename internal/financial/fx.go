package financial

import (
	"github.com/smallbiznis/laudo/internal/financial/repository"
	"github.com/smallbiznis/laudo/internal/financial/service"
	"go.uber.org/fx"
)

var Module = fx.Module("financial.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
