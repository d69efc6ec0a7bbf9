// internal/app/bootstrap/services.go
package bootstrap

import (
	"github.com/dalemusser/catalog/internal/app/catalog/academiccal"
	"github.com/dalemusser/catalog/internal/app/store/audit"
	"github.com/dalemusser/catalog/internal/app/store/clipboard"
	"github.com/dalemusser/catalog/internal/app/system/auditlog"
	"go.uber.org/zap"
)

// Services are the long-lived collaborators shared by the handlers and the
// background workers.
type Services struct {
	Cal   *academiccal.Calendar
	Audit *auditlog.Logger
	Clip  *clipboard.Store
}

func NewServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) Services {
	db := deps.CatalogMongoDatabase
	return Services{
		Cal: academiccal.New(db, appCfg.MaxPostponeYears),
		Audit: auditlog.New(audit.New(db), logger, auditlog.Config{
			Postponement: appCfg.AuditLogPostponement,
			Structure:    appCfg.AuditLogStructure,
		}),
		Clip: clipboard.New(db, appCfg.ClipboardTTL),
	}
}
