// internal/app/features/prerequisites/handler.go
package prerequisites

import (
	"context"
	"net/http"

	"github.com/dalemusser/catalog/internal/app/catalog/academiccal"
	"github.com/dalemusser/catalog/internal/app/catalog/prerequisite"
	"github.com/dalemusser/catalog/internal/app/features/apierr"
	"github.com/dalemusser/catalog/internal/app/policy/educationgrouppolicy"
	prerequisitestore "github.com/dalemusser/catalog/internal/app/store/prerequisites"
	"github.com/dalemusser/catalog/internal/app/system/auditlog"
	"github.com/dalemusser/catalog/internal/app/system/timeouts"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler reads and saves the prerequisites bound to a root.
type Handler struct {
	Engine  *prerequisite.Engine
	Prereqs *prerequisitestore.Store
	Cal     *academiccal.Calendar
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

// NewHandler constructs a prerequisites Handler bound to db.
func NewHandler(db *mongo.Database, cal *academiccal.Calendar, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Engine:  prerequisite.NewEngine(db),
		Prereqs: prerequisitestore.New(db),
		Cal:     cal,
		Audit:   audit,
		Log:     logger,
	}
}

type saveRequest struct {
	RootID             string `json:"root_id"`
	LearningUnitYearID string `json:"learning_unit_year_id"`
	Expression         string `json:"expression"`
}

type prerequisiteResponse struct {
	ID                 string   `json:"id"`
	RootID             string   `json:"root_id"`
	LearningUnitYearID string   `json:"learning_unit_year_id"`
	Expression         string   `json:"expression"`
	OutsideOfRoot      []string `json:"outside_of_root,omitempty"`
}

func toResponse(p models.Prerequisite) prerequisiteResponse {
	return prerequisiteResponse{
		ID:                 p.ID.Hex(),
		RootID:             p.EducationGroupYearID.Hex(),
		LearningUnitYearID: p.LearningUnitYearID.Hex(),
		Expression:         p.Expression,
	}
}

// ServeSave handles PUT /prerequisites. The expression is normalised and
// must only reference learning units reachable from the root. An empty
// expression clears the prerequisite.
func (h *Handler) ServeSave(w http.ResponseWriter, r *http.Request) {
	person, ok := apierr.Person(w, r)
	if !ok {
		return
	}
	var body saveRequest
	if !apierr.DecodeJSON(w, r, &body) {
		return
	}
	rootID, err := primitive.ObjectIDFromHex(body.RootID)
	if err != nil {
		apierr.BadRequest(w, "invalid root_id")
		return
	}
	luyID, err := primitive.ObjectIDFromHex(body.LearningUnitYearID)
	if err != nil {
		apierr.BadRequest(w, "invalid learning_unit_year_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := educationgrouppolicy.RequireChange(ctx, h.Cal, person); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	p, err := h.Engine.Save(ctx, rootID, luyID, body.Expression)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.PrerequisiteSaved(ctx, person.UserID, p)
	apierr.JSON(w, http.StatusOK, toResponse(p))
}

// ServeList handles GET /prerequisites/{rootID}. Each row lists the
// acronyms it references that are no longer reachable from the root.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	rootID, ok := apierr.PathID(w, r, "rootID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, err := h.Prereqs.ListByRoot(ctx, rootID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	out := make([]prerequisiteResponse, 0, len(rows))
	for _, p := range rows {
		resp := toResponse(p)
		if resp.OutsideOfRoot, err = h.Engine.OutsideOfRootFor(ctx, p); err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		out = append(out, resp)
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"prerequisites": out})
}
