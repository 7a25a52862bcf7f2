package providers

import (
	"github.com/smallbiznis/laudo/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	pdf.Module,
)
