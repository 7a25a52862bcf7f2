package migration

import (
	"strings"

	catalogdomain "github.com/smallbiznis/laudo/internal/catalog/domain"
	clientdomain "github.com/smallbiznis/laudo/internal/client/domain"
	"github.com/smallbiznis/laudo/internal/config"
	reportdomain "github.com/smallbiznis/laudo/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.DBAutoMigrate {
			return nil
		}

		if strings.EqualFold(cfg.DBType, "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB, log)
		}

		log.Info("migrating schema from models", zap.String("dialect", cfg.DBType))
		return AutoMigrate(conn)
	}),
)

// Models lists every table the pipeline owns, parents first.
func Models() []any {
	models := []any{
		&clientdomain.Client{},
		&catalogdomain.Part{},
		&catalogdomain.Service{},
	}
	return append(models, reportdomain.Models()...)
}

func AutoMigrate(conn *gorm.DB) error {
	return conn.AutoMigrate(Models()...)
}
