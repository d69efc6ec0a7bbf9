// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops the background workers, then tears down DB connections.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Background != nil {
		for _, w := range deps.Background.Workers {
			w.Stop()
		}
		deps.Background.Workers = nil
		for _, l := range deps.Background.Limiters {
			l.Stop()
		}
		deps.Background.Limiters = nil
	}
	if deps.CatalogMongoClient != nil {
		logger.Info("disconnecting catalog MongoDB client")
		if err := deps.CatalogMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
