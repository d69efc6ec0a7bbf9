package tree

import (
	"context"
	"net/http"

	"github.com/dalemusser/catalog/internal/app/catalog/tree"
	"github.com/dalemusser/catalog/internal/app/features/apierr"
	academicyearstore "github.com/dalemusser/catalog/internal/app/store/academicyears"
	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	learningunitstore "github.com/dalemusser/catalog/internal/app/store/learningunits"
	mandatestore "github.com/dalemusser/catalog/internal/app/store/mandates"
	"github.com/dalemusser/catalog/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the read plane: trees, formations and mandataries.
type Handler struct {
	Reader   *tree.Reader
	EGYs     *egystore.Store
	LUYs     *learningunitstore.Store
	Years    *academicyearstore.Store
	Mandates *mandatestore.Store
	Log      *zap.Logger
}

// NewHandler constructs a tree Handler bound to db.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Reader:   tree.NewReader(db),
		EGYs:     egystore.New(db),
		LUYs:     learningunitstore.New(db),
		Years:    academicyearstore.New(db),
		Mandates: mandatestore.New(db),
		Log:      logger,
	}
}

// ServeTree handles GET /trees/{rootID} with the JSON tree of the root.
func (h *Handler) ServeTree(w http.ResponseWriter, r *http.Request) {
	rootID, ok := apierr.PathID(w, r, "rootID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, err := h.Reader.Load(ctx, rootID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, tree.JSTree(t))
}

type formation struct {
	ID           string `json:"id"`
	Acronym      string `json:"acronym"`
	Title        string `json:"title"`
	AcademicYear int    `json:"academic_year"`
}

// ServeFormations handles GET /learningunits/{luyID}/formations with the
// formations that include the learning unit year, ordered by acronym.
func (h *Handler) ServeFormations(w http.ResponseWriter, r *http.Request) {
	luyID, ok := apierr.PathID(w, r, "luyID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	luy, err := h.LUYs.GetYear(ctx, luyID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	byObject, err := h.Reader.FindLearningUnitFormations(ctx, []tree.Object{tree.LeafObject(luy)})
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ids := byObject[luy.ID]
	out := []formation{}
	if len(ids) > 0 {
		egys, err := h.EGYs.Search(ctx, egystore.Filter{IDs: ids})
		if err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
		for _, e := range egys {
			out = append(out, formation{ID: e.ID.Hex(), Acronym: e.Acronym, Title: e.Title, AcademicYear: e.AcademicYear})
		}
	}
	apierr.JSON(w, http.StatusOK, map[string]any{
		"learning_unit_year_id": luy.ID.Hex(),
		"formations":            out,
	})
}

// ServeAscendants handles GET /educationgroupyears/{egyID}/ascendants with
// the ids of every direct or indirect parent.
func (h *Handler) ServeAscendants(w http.ResponseWriter, r *http.Request) {
	egyID, ok := apierr.PathID(w, r, "egyID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	ids, err := h.Reader.AscendantsOfBranch(ctx, egyID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"ascendants": hexes(ids)})
}

// ServeMandataries handles GET /educationgroupyears/{egyID}/mandataries with
// the holders of the group's mandates over the whole academic year.
func (h *Handler) ServeMandataries(w http.ResponseWriter, r *http.Request) {
	egyID, ok := apierr.PathID(w, r, "egyID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	egy, err := h.EGYs.GetByID(ctx, egyID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	year, err := h.Years.GetByID(ctx, egy.AcademicYearID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	holders, err := h.Mandates.ListValidFor(ctx, egy.EducationGroupID, year)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if holders == nil {
		holders = []mandatestore.Holder{}
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"mandataries": holders})
}

func hexes(ids []primitive.ObjectID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.Hex())
	}
	return out
}
