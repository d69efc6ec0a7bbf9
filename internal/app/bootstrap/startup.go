// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/catalog/internal/app/catalog/postponement"
	"github.com/dalemusser/catalog/internal/app/system/tasks"
	"github.com/dalemusser/catalog/internal/app/system/timeouts"
	"github.com/dalemusser/catalog/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It applies
// the configured timeouts and starts the background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	ApplyTimeouts(appCfg)

	if deps.Background == nil {
		return nil
	}
	svc := NewServices(appCfg, deps, logger)

	cleanup := workers.New(tasks.ClipboardCleanupJob(svc.Clip, logger), logger, timeouts.Medium())
	cleanup.Start()
	deps.Background.Workers = append(deps.Background.Workers, cleanup)

	if appCfg.PostponementInterval > 0 {
		p := postponement.New(deps.CatalogMongoDatabase, logger, svc.Cal)
		runner := postponement.NewRunner(p, svc.Audit)
		w := workers.NewPostponement(tasks.YearPostponementJob(runner, logger, appCfg.PostponementInterval), logger)
		w.Start()
		deps.Background.Workers = append(deps.Background.Workers, w)
	} else {
		logger.Info("scheduled year postponement disabled")
	}
	return nil
}

// ApplyTimeouts installs the configured operation timeouts.
func ApplyTimeouts(appCfg AppConfig) {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
		Batch:  appCfg.TimeoutBatch,
	})
}
