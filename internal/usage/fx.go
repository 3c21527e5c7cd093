package usage

import (
	"github.com/agencyhub/entitlex/internal/usage/repository"
	"github.com/agencyhub/entitlex/internal/usage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("usage.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
