package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/agencyhub/entitlex/internal/cache"
	"github.com/agencyhub/entitlex/internal/clock"
	"github.com/agencyhub/entitlex/internal/config"
	"github.com/agencyhub/entitlex/internal/lock"
	"github.com/agencyhub/entitlex/internal/logger"
	"github.com/agencyhub/entitlex/internal/migration"
	"github.com/agencyhub/entitlex/internal/observability"
	"github.com/agencyhub/entitlex/internal/server"
	"github.com/agencyhub/entitlex/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,
		lock.Module,
		migration.Module,
		server.Module,
	)

	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
