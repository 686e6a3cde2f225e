package staging

import (
	"github.com/revlake/revlake/internal/staging/service"
	"go.uber.org/fx"
)

var Module = fx.Module("staging.service",
	fx.Provide(service.New),
)
