package datedim

import (
	"github.com/revlake/revlake/internal/datedim/service"
	"go.uber.org/fx"
)

var Module = fx.Module("datedim.service",
	fx.Provide(service.New),
)
