// internal/app/features/structure/handler.go
package structure

import (
	"context"
	"net/http"

	"github.com/dalemusser/catalog/internal/app/catalog/academiccal"
	"github.com/dalemusser/catalog/internal/app/catalog/attach"
	"github.com/dalemusser/catalog/internal/app/features/apierr"
	"github.com/dalemusser/catalog/internal/app/policy/educationgrouppolicy"
	"github.com/dalemusser/catalog/internal/app/store/clipboard"
	"github.com/dalemusser/catalog/internal/app/system/auditlog"
	"github.com/dalemusser/catalog/internal/app/system/timeouts"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler edits the content of year-versions through the caller's clipboard.
type Handler struct {
	Attach *attach.Service
	Clip   *clipboard.Store
	Cal    *academiccal.Calendar
	Audit  *auditlog.Logger
	Log    *zap.Logger
}

// NewHandler wires the structure service over db.
func NewHandler(db *mongo.Database, clip *clipboard.Store, cal *academiccal.Calendar, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Attach: attach.New(db, logger, clip),
		Clip:   clip,
		Cal:    cal,
		Audit:  audit,
		Log:    logger,
	}
}

type edgeResponse struct {
	ID            string  `json:"id"`
	ParentID      string  `json:"parent_id"`
	ChildBranchID *string `json:"child_branch_id,omitempty"`
	ChildLeafID   *string `json:"child_leaf_id,omitempty"`
	Order         int     `json:"order"`
	AcademicYear  int     `json:"academic_year"`
}

func edgeJSON(g models.GroupElementYear) edgeResponse {
	out := edgeResponse{
		ID:           g.ID.Hex(),
		ParentID:     g.ParentID.Hex(),
		Order:        g.Order,
		AcademicYear: g.AcademicYear,
	}
	if g.ChildBranchID != nil {
		s := g.ChildBranchID.Hex()
		out.ChildBranchID = &s
	}
	if g.ChildLeafID != nil {
		s := g.ChildLeafID.Hex()
		out.ChildLeafID = &s
	}
	return out
}

// authorize loads the caller and checks the change permission. It writes the
// refusal itself.
func (h *Handler) authorize(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.Person, bool) {
	person, ok := apierr.Person(w, r)
	if !ok {
		return models.Person{}, false
	}
	if err := educationgrouppolicy.RequireChange(ctx, h.Cal, person); err != nil {
		apierr.Write(w, r, h.Log, err)
		return models.Person{}, false
	}
	return person, true
}

type selectRequest struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// ServeSelect handles POST /clipboard/select with {kind, id}.
func (h *Handler) ServeSelect(w http.ResponseWriter, r *http.Request) {
	person, ok := apierr.Person(w, r)
	if !ok {
		return
	}
	var body selectRequest
	if !apierr.DecodeJSON(w, r, &body) {
		return
	}
	kind := clipboard.Kind(body.Kind)
	if !kind.Valid() {
		apierr.BadRequest(w, "kind must be learningunityear or educationgroupyear")
		return
	}
	id, err := primitive.ObjectIDFromHex(body.ID)
	if err != nil {
		apierr.BadRequest(w, "invalid id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Attach.Select(ctx, person.UserID, kind, id); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.ElementSelected(ctx, person.UserID, string(kind), id)
	apierr.JSON(w, http.StatusOK, clipboard.Selection{Kind: kind, ID: id})
}

// ServeClipboard handles GET /clipboard with the caller's selection.
func (h *Handler) ServeClipboard(w http.ResponseWriter, r *http.Request) {
	person, ok := apierr.Person(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sel, found, err := h.Clip.Get(ctx, person.UserID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if !found {
		apierr.JSON(w, http.StatusOK, map[string]any{"selection": nil})
		return
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"selection": sel})
}

// ServeClear handles DELETE /clipboard.
func (h *Handler) ServeClear(w http.ResponseWriter, r *http.Request) {
	person, ok := apierr.Person(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Attach.Clear(ctx, person.UserID); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeAttach handles POST /clipboard/attach/{parentID}. A new edge answers
// 201, an already existing one 200.
func (h *Handler) ServeAttach(w http.ResponseWriter, r *http.Request) {
	parentID, ok := apierr.PathID(w, r, "parentID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	person, ok := h.authorize(ctx, w, r)
	if !ok {
		return
	}
	gey, created, err := h.Attach.Attach(ctx, person.UserID, parentID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.Audit.ElementAttached(ctx, person.UserID, gey)
	}
	apierr.JSON(w, status, edgeJSON(gey))
}

// ServeDetach handles DELETE /edges/{edgeID}.
func (h *Handler) ServeDetach(w http.ResponseWriter, r *http.Request) {
	edgeID, ok := apierr.PathID(w, r, "edgeID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	person, ok := h.authorize(ctx, w, r)
	if !ok {
		return
	}
	gey, err := h.Attach.Detach(ctx, edgeID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.ElementDetached(ctx, person.UserID, gey)
	apierr.JSON(w, http.StatusOK, edgeJSON(gey))
}

// ServeUp handles POST /edges/{edgeID}/up.
func (h *Handler) ServeUp(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.Attach.MoveUp, "up")
}

// ServeDown handles POST /edges/{edgeID}/down.
func (h *Handler) ServeDown(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, h.Attach.MoveDown, "down")
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request, fn func(context.Context, primitive.ObjectID) (models.GroupElementYear, error), name string) {
	edgeID, ok := apierr.PathID(w, r, "edgeID")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	person, ok := h.authorize(ctx, w, r)
	if !ok {
		return
	}
	gey, err := fn(ctx, edgeID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.ElementMoved(ctx, person.UserID, gey, name)
	apierr.JSON(w, http.StatusOK, edgeJSON(gey))
}
