// internal/app/features/auditlog/handler.go
package auditlog

import (
	"github.com/dalemusser/catalog/internal/app/store/audit"
	"github.com/dalemusser/catalog/internal/app/store/filtercache"
	personstore "github.com/dalemusser/catalog/internal/app/store/persons"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Events  *audit.Store
	Persons *personstore.Store
	Filters *filtercache.Store
	Log     *zap.Logger
}

// NewHandler constructs an Audit Log feature handler bound to
// the given Mongo database and logger.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Events:  audit.New(db),
		Persons: personstore.New(db),
		Filters: filtercache.New(db),
		Log:     logger,
	}
}
