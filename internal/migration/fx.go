package migration

import (
	"strings"

	"github.com/agencyhub/entitlex/internal/config"
	exchangedomain "github.com/agencyhub/entitlex/internal/exchange/domain"
	plandomain "github.com/agencyhub/entitlex/internal/plan/domain"
	"github.com/agencyhub/entitlex/internal/seed"
	usagedomain "github.com/agencyhub/entitlex/internal/usage/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if strings.EqualFold(cfg.DBType, "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql are dev conveniences, schema from the models
			if err := conn.AutoMigrate(
				&plandomain.Plan{},
				&usagedomain.UsageSnapshot{},
				&exchangedomain.ResourceOverride{},
				&exchangedomain.ExchangeEvent{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDemoTenant {
			return seed.EnsureDemoTenant(conn)
		}
		return nil
	}),
)
