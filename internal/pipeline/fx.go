package pipeline

import (
	"github.com/revlake/revlake/internal/pipeline/service"
	"go.uber.org/fx"
)

var Module = fx.Module("pipeline.service",
	fx.Provide(service.New),
)
