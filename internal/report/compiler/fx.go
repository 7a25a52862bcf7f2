package compiler

import (
	"github.com/smallbiznis/laudo/internal/report/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("report.compiler",
	fx.Provide(New),
	fx.Provide(func(c *Compiler) domain.Compiler { return c }),
)
