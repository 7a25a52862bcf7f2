package report

import (
	"github.com/smallbiznis/laudo/internal/report/assemble"
	"github.com/smallbiznis/laudo/internal/report/compiler"
	"github.com/smallbiznis/laudo/internal/report/domain"
	"github.com/smallbiznis/laudo/internal/report/render"
	"github.com/smallbiznis/laudo/internal/report/repository"
	"github.com/smallbiznis/laudo/internal/report/service"
	"github.com/smallbiznis/laudo/internal/scheduler"
	"go.uber.org/fx"
)

var Module = fx.Module("report.service",
	fx.Provide(repository.Provide),
	fx.Provide(assemble.New),
	fx.Provide(render.NewHTMLRenderer),
	compiler.Module,
	fx.Provide(service.New),
	fx.Provide(func(s *service.Service) domain.Service { return s }),
	fx.Provide(func(s *service.Service) scheduler.StagingReconciler { return s }),
)
