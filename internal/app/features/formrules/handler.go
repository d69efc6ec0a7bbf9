// internal/app/features/formrules/handler.go
package formrules

import (
	"context"
	"net/http"
	"sort"

	"github.com/dalemusser/catalog/internal/app/catalog/academiccal"
	"github.com/dalemusser/catalog/internal/app/features/apierr"
	"github.com/dalemusser/catalog/internal/app/policy/educationgrouppolicy"
	egystore "github.com/dalemusser/catalog/internal/app/store/educationgroupyears"
	validationrulestore "github.com/dalemusser/catalog/internal/app/store/validationrules"
	"github.com/dalemusser/catalog/internal/app/system/rules"
	"github.com/dalemusser/catalog/internal/app/system/timeouts"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Form names used as validation rule prefixes, per category.
var formNames = map[string]string{
	models.CategoryTraining:     "TrainingForm",
	models.CategoryMiniTraining: "MiniTrainingForm",
	models.CategoryGroup:        "GroupForm",
}

// Handler tells the edit form of a year-version what the caller may change
// and checks submitted values against the configured rules.
type Handler struct {
	EGYs  *egystore.Store
	Rules *validationrulestore.Store
	Table rules.Table
	Cal   *academiccal.Calendar
	Log   *zap.Logger
}

// NewHandler constructs a formrules Handler using the default permission
// table.
func NewHandler(db *mongo.Database, cal *academiccal.Calendar, logger *zap.Logger) *Handler {
	return &Handler{
		EGYs:  egystore.New(db),
		Rules: validationrulestore.New(db),
		Table: rules.DefaultTable(),
		Cal:   cal,
		Log:   logger,
	}
}

type formResponse struct {
	Form                      string                           `json:"form"`
	Context                   rules.Context                    `json:"context"`
	DisabledFields            []string                         `json:"disabled_fields"`
	CanAdd                    bool                             `json:"can_add"`
	CanChange                 bool                             `json:"can_change"`
	CanDelete                 bool                             `json:"can_delete"`
	CanEditAdministrativeData bool                             `json:"can_edit_administrative_data"`
	Rules                     map[string]models.ValidationRule `json:"rules"`
}

// load resolves the year-version and the form rules it is edited with.
func (h *Handler) load(ctx context.Context, w http.ResponseWriter, r *http.Request) (models.EducationGroupYear, string, map[string]models.ValidationRule, bool) {
	egyID, ok := apierr.PathID(w, r, "egyID")
	if !ok {
		return models.EducationGroupYear{}, "", nil, false
	}
	egy, err := h.EGYs.GetByID(ctx, egyID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return models.EducationGroupYear{}, "", nil, false
	}
	all, err := h.Rules.List(ctx)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return models.EducationGroupYear{}, "", nil, false
	}
	form := formNames[egy.Category]
	return egy, form, rules.Form(all, form), true
}

// ServeForm handles GET /formrules/{egyID}?stage=DAILY_MANAGEMENT. The stage
// defaults to daily management.
func (h *Handler) ServeForm(w http.ResponseWriter, r *http.Request) {
	person, ok := apierr.Person(w, r)
	if !ok {
		return
	}
	stage := rules.Stage(r.URL.Query().Get("stage"))
	if stage == "" {
		stage = rules.StageDaily
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	egy, form, formRules, ok := h.load(ctx, w, r)
	if !ok {
		return
	}
	rc, err := rules.ContextFor(egy.Category, stage)
	if err != nil {
		apierr.BadRequest(w, err.Error())
		return
	}

	apierr.JSON(w, http.StatusOK, formResponse{
		Form:                      form,
		Context:                   rc,
		DisabledFields:            h.Table.DisabledFields(rc, person),
		CanAdd:                    educationgrouppolicy.CanAdd(ctx, h.Cal, person),
		CanChange:                 educationgrouppolicy.CanChange(ctx, h.Cal, person),
		CanDelete:                 educationgrouppolicy.CanDelete(ctx, h.Cal, person),
		CanEditAdministrativeData: educationgrouppolicy.CanEditAdministrativeData(person, egy),
		Rules:                     formRules,
	})
}

// ServeValidate handles POST /formrules/{egyID}/validate with a flat
// {field: value} body. Required fields missing from the body are reported.
func (h *Handler) ServeValidate(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if !apierr.DecodeJSON(w, r, &values) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	_, _, formRules, ok := h.load(ctx, w, r)
	if !ok {
		return
	}

	fields := make([]string, 0, len(formRules))
	for field := range formRules {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	ve := catalogerr.NewValidationError()
	for _, field := range fields {
		if msg := rules.Check(formRules[field], values[field]); msg != "" {
			ve.Add(field, msg)
		}
	}
	if err := ve.OrNil(); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"valid": true})
}
