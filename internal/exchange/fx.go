package exchange

import (
	"github.com/agencyhub/entitlex/internal/exchange/repository"
	"github.com/agencyhub/entitlex/internal/exchange/service"
	"go.uber.org/fx"
)

var Module = fx.Module("exchange.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
