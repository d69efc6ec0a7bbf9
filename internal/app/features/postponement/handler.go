// internal/app/features/postponement/handler.go
package postponement

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/dalemusser/catalog/internal/app/catalog/academiccal"
	"github.com/dalemusser/catalog/internal/app/catalog/contentpostpone"
	"github.com/dalemusser/catalog/internal/app/catalog/postponement"
	"github.com/dalemusser/catalog/internal/app/features/apierr"
	"github.com/dalemusser/catalog/internal/app/policy/educationgrouppolicy"
	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	"github.com/dalemusser/catalog/internal/app/system/auditlog"
	"github.com/dalemusser/catalog/internal/app/system/timeouts"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler runs year and content postponement on behalf of an operator.
type Handler struct {
	DB        *mongo.Database
	Log       *zap.Logger
	Cal       *academiccal.Calendar
	Audit     *auditlog.Logger
	Postponer *postponement.Postponer
	Runner    *postponement.Runner
}

// NewHandler wires the postponement services. Runs report to audit.
func NewHandler(db *mongo.Database, cal *academiccal.Calendar, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	p := postponement.New(db, logger, cal)
	return &Handler{
		DB:        db,
		Log:       logger,
		Cal:       cal,
		Audit:     audit,
		Postponer: p,
		Runner:    postponement.NewRunner(p, audit),
	}
}

type egyRef struct {
	ID           string `json:"id"`
	Acronym      string `json:"acronym"`
	AcademicYear int    `json:"academic_year"`
}

func refs(egys []models.EducationGroupYear) []egyRef {
	out := make([]egyRef, 0, len(egys))
	for _, e := range egys {
		out = append(out, egyRef{ID: e.ID.Hex(), Acronym: e.Acronym, AcademicYear: e.AcademicYear})
	}
	return out
}

type elementError struct {
	EducationGroupYear egyRef `json:"education_group_year"`
	Error              string `json:"error"`
}

type yearsResponse struct {
	RunID             string         `json:"run_id,omitempty"`
	TargetYear        int            `json:"target_year"`
	DryRun            bool           `json:"dry_run"`
	ToDuplicate       []egyRef       `json:"to_duplicate"`
	AlreadyDuplicated int            `json:"already_duplicated"`
	NotDuplicated     int            `json:"not_duplicated"`
	Created           []egyRef       `json:"created"`
	Errors            []elementError `json:"errors"`
	Message           string         `json:"message,omitempty"`
}

// filterFrom reads the optional acronym, title and category query
// parameters.
func filterFrom(r *http.Request) egystore.Filter {
	q := r.URL.Query()
	f := egystore.Filter{
		Acronym: strings.TrimSpace(q.Get("acronym")),
		Title:   strings.TrimSpace(q.Get("title")),
	}
	if c := strings.TrimSpace(q.Get("category")); c != "" {
		f.Categories = []string{strings.ToUpper(c)}
	}
	return f
}

// ServeYears handles POST /postponement/years. It extends every training of
// the penultimate year into the furthest year. With dry_run=true only the
// partition is computed.
func (h *Handler) ServeYears(w http.ResponseWriter, r *http.Request) {
	person, ok := apierr.Person(w, r)
	if !ok {
		return
	}
	if err := educationgrouppolicy.RequireCentralManager(person); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "year postponement")
	defer cancel()

	var (
		res postponement.Result
		err error
	)
	if dryRun {
		res, err = h.Runner.Partition(ctx, filterFrom(r))
	} else {
		res, err = h.Runner.Run(ctx, filterFrom(r))
	}
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	out := yearsResponse{
		RunID:             res.RunID,
		TargetYear:        res.Target.Year,
		DryRun:            dryRun,
		ToDuplicate:       refs(res.ToDuplicate),
		AlreadyDuplicated: len(res.AlreadyDuplicated),
		NotDuplicated:     len(res.NotDuplicated),
		Created:           refs(res.Created),
		Errors:            []elementError{},
	}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, elementError{
			EducationGroupYear: refs([]models.EducationGroupYear{e.Source})[0],
			Error:              e.Err.Error(),
		})
	}
	if !dryRun {
		out.Message = res.Message()
	}
	apierr.JSON(w, http.StatusOK, out)
}

type contentResponse struct {
	Root     egyRef   `json:"root"`
	Next     egyRef   `json:"next"`
	Edges    int      `json:"edges"`
	Branches []egyRef `json:"branches_created"`
	Message  string   `json:"message"`
}

// ServeContent handles POST /postponement/content/{rootID}: the content of
// the training is copied under its next-year version.
func (h *Handler) ServeContent(w http.ResponseWriter, r *http.Request) {
	person, ok := apierr.Person(w, r)
	if !ok {
		return
	}
	rootID, ok := apierr.PathID(w, r, "rootID")
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "content postponement")
	defer cancel()

	if err := educationgrouppolicy.RequireChange(ctx, h.Cal, person); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	c, err := contentpostpone.New(ctx, h.DB, h.Log, h.Postponer, rootID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	res, err := c.Postpone(ctx)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.Audit.ContentPostponed(ctx, person.UserID, res.Root, res.Next, len(res.Edges))

	apierr.JSON(w, http.StatusOK, contentResponse{
		Root:     refs([]models.EducationGroupYear{res.Root})[0],
		Next:     refs([]models.EducationGroupYear{res.Next})[0],
		Edges:    len(res.Edges),
		Branches: refs(res.Branches),
		Message:  "The content of " + res.Root.String() + " has been postponed to " + res.Next.String() + ".",
	})
}
