package plan

import (
	"github.com/agencyhub/entitlex/internal/plan/repository"
	"github.com/agencyhub/entitlex/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
