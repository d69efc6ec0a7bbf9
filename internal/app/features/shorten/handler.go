// internal/app/features/shorten/handler.go
package shorten

import (
	"errors"
	"net/http"

	"github.com/dalemusser/catalog/internal/app/catalog/academiccal"
	"github.com/dalemusser/catalog/internal/app/catalog/shorten"
	"github.com/dalemusser/catalog/internal/app/features/apierr"
	"github.com/dalemusser/catalog/internal/app/policy/educationgrouppolicy"
	"github.com/dalemusser/catalog/internal/app/system/auditlog"
	"github.com/dalemusser/catalog/internal/app/system/timeouts"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler shortens education groups and deletes single year-versions.
type Handler struct {
	Shorten *shorten.Service
	Cal     *academiccal.Calendar
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

// NewHandler constructs a shorten Handler bound to db.
func NewHandler(db *mongo.Database, cal *academiccal.Calendar, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Shorten: shorten.New(db, logger),
		Cal:     cal,
		Audit:   audit,
		Log:     logger,
	}
}

type deletedYear struct {
	ID           string `json:"id"`
	Acronym      string `json:"acronym"`
	AcademicYear string `json:"academic_year"`
}

func deletedJSON(egys []models.EducationGroupYear) []deletedYear {
	out := make([]deletedYear, 0, len(egys))
	for _, e := range egys {
		out = append(out, deletedYear{
			ID:           e.ID.Hex(),
			Acronym:      e.Acronym,
			AcademicYear: models.AcademicYear{Year: e.AcademicYear}.String(),
		})
	}
	return out
}

// ServeCheck handles GET /groups/{groupID}/shorten?until=YYYY. It answers 200
// when the group can be shortened and 409 with the protection reasons
// otherwise. Nothing is written.
func (h *Handler) ServeCheck(w http.ResponseWriter, r *http.Request) {
	groupID, ok := apierr.PathID(w, r, "groupID")
	if !ok {
		return
	}
	until, ok := apierr.QueryYear(w, r, "until")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "shorten check")
	defer cancel()

	if err := h.Shorten.CheckEndDate(ctx, groupID, until); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"can_shorten": true})
}

// ServeShorten handles POST /groups/{groupID}/shorten?until=YYYY.
func (h *Handler) ServeShorten(w http.ResponseWriter, r *http.Request) {
	person, ok := apierr.Person(w, r)
	if !ok {
		return
	}
	groupID, ok := apierr.PathID(w, r, "groupID")
	if !ok {
		return
	}
	until, ok := apierr.QueryYear(w, r, "until")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "shorten")
	defer cancel()

	if err := educationgrouppolicy.RequireDelete(ctx, h.Cal, person); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	deleted, err := h.Shorten.Shorten(ctx, groupID, until)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if len(deleted) > 0 {
		h.Audit.GroupShortened(ctx, person.UserID, groupID, until, deleted)
	}
	apierr.JSON(w, http.StatusOK, map[string]any{
		"end_year": until,
		"deleted":  deletedJSON(deleted),
	})
}

// ServeDeleteYear handles DELETE /educationgroupyears/{egyID}.
func (h *Handler) ServeDeleteYear(w http.ResponseWriter, r *http.Request) {
	person, ok := apierr.Person(w, r)
	if !ok {
		return
	}
	egyID, ok := apierr.PathID(w, r, "egyID")
	if !ok {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "delete year")
	defer cancel()

	if err := educationgrouppolicy.RequireDelete(ctx, h.Cal, person); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	egy, groupDeleted, err := h.Shorten.DeleteYear(ctx, egyID)
	if errors.Is(err, shorten.ErrNotTraining) {
		apierr.JSON(w, http.StatusConflict, apierr.Payload{Error: "not_training", Message: err.Error()})
		return
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.YearDeleted(ctx, person.UserID, egy, groupDeleted)
	apierr.JSON(w, http.StatusOK, map[string]any{
		"deleted":       deletedJSON([]models.EducationGroupYear{egy})[0],
		"group_deleted": groupDeleted,
	})
}
