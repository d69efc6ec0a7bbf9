// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	auditlogfeature "github.com/dalemusser/catalog/internal/app/features/auditlog"
	formrulesfeature "github.com/dalemusser/catalog/internal/app/features/formrules"
	healthfeature "github.com/dalemusser/catalog/internal/app/features/health"
	importsfeature "github.com/dalemusser/catalog/internal/app/features/imports"
	postponementfeature "github.com/dalemusser/catalog/internal/app/features/postponement"
	prerequisitesfeature "github.com/dalemusser/catalog/internal/app/features/prerequisites"
	shortenfeature "github.com/dalemusser/catalog/internal/app/features/shorten"
	structurefeature "github.com/dalemusser/catalog/internal/app/features/structure"
	treefeature "github.com/dalemusser/catalog/internal/app/features/tree"
	personstore "github.com/dalemusser/catalog/internal/app/store/persons"
	"github.com/dalemusser/catalog/internal/app/system/authz"
	"github.com/dalemusser/catalog/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler of the catalogue API.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. The health check is public; every other route
// requires a caller identity, resolved to a Person by authz.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.CatalogMongoDatabase
	svc := NewServices(appCfg, deps, logger)

	r := chi.NewRouter()

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.CatalogMongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	identity := authz.NewMiddleware(personstore.New(db), logger)

	// Postponement runs and imports are throttled per caller.
	batch := ratelimit.New(appCfg.BatchRateLimit, time.Minute)
	if deps.Background != nil {
		deps.Background.Limiters = append(deps.Background.Limiters, batch)
	}
	throttle := ratelimit.Middleware(batch, func(req *http.Request) string {
		id, _ := authz.UserID(req)
		return id
	})

	r.Group(func(api chi.Router) {
		api.Use(identity.LoadPerson)

		// Trees, clipboard, edges and deletions share the API root.
		treefeature.Register(api, treefeature.NewHandler(db, logger))
		structurefeature.Register(api, structurefeature.NewHandler(db, svc.Clip, svc.Cal, svc.Audit, logger))
		shortenfeature.Register(api, shortenfeature.NewHandler(db, svc.Cal, svc.Audit, logger))

		postponementHandler := postponementfeature.NewHandler(db, svc.Cal, svc.Audit, logger)
		api.Route("/postponement", func(pr chi.Router) {
			pr.Use(throttle)
			pr.Mount("/", postponementfeature.Routes(postponementHandler))
		})

		prereqHandler := prerequisitesfeature.NewHandler(db, svc.Cal, svc.Audit, logger)
		api.Mount("/prerequisites", prerequisitesfeature.Routes(prereqHandler))

		formHandler := formrulesfeature.NewHandler(db, svc.Cal, logger)
		api.Mount("/formrules", formrulesfeature.Routes(formHandler))

		auditHandler := auditlogfeature.NewHandler(db, logger)
		api.Mount("/audit", auditlogfeature.Routes(auditHandler))

		importsHandler := importsfeature.NewHandler(db, svc.Audit, logger)
		api.Route("/imports", func(ir chi.Router) {
			ir.Use(throttle)
			ir.Mount("/", importsfeature.Routes(importsHandler))
		})
	})

	return r, nil
}
