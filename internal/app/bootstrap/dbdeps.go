// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/catalog/internal/app/system/ratelimit"
	"github.com/dalemusser/catalog/internal/app/system/workers"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app.
type DBDeps struct {
	CatalogMongoClient   *mongo.Client
	CatalogMongoDatabase *mongo.Database

	// Background is filled by Startup and drained by Shutdown.
	Background *Background
}

// Background holds the workers and limiters started with the server.
type Background struct {
	Workers  []*workers.Worker
	Limiters []*ratelimit.Limiter
}
