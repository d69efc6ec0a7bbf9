// internal/app/features/imports/handler.go
package imports

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/dalemusser/catalog/internal/app/catalog/importer"
	"github.com/dalemusser/catalog/internal/app/features/apierr"
	"github.com/dalemusser/catalog/internal/app/policy/educationgrouppolicy"
	"github.com/dalemusser/catalog/internal/app/system/auditlog"
	"github.com/dalemusser/catalog/internal/app/system/csvutil"
	"github.com/dalemusser/catalog/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler accepts operator uploads: admission conditions and validation
// rules.
type Handler struct {
	Importer *importer.Importer
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

// NewHandler constructs an imports Handler bound to db.
func NewHandler(db *mongo.Database, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Importer: importer.New(db, logger),
		Audit:    audit,
		Log:      logger,
	}
}

// authorize reserves imports to central managers.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) bool {
	person, ok := apierr.Person(w, r)
	if !ok {
		return false
	}
	if err := educationgrouppolicy.RequireCentralManager(person); err != nil {
		apierr.Write(w, r, h.Log, err)
		return false
	}
	return true
}

// upload returns the "file" part of a multipart request, or the raw body
// otherwise.
func upload(w http.ResponseWriter, r *http.Request) (io.ReadCloser, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, csvutil.MaxUploadSize)
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return r.Body, true
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		msg := "A file is required."
		if strings.Contains(err.Error(), "request body too large") {
			msg = "The file is too large. Maximum size is 5 MB."
		}
		apierr.BadRequest(w, msg)
		return nil, false
	}
	return file, true
}

func (h *Handler) writeImportError(w http.ResponseWriter, r *http.Request, err error) {
	var rows *importer.RowsError
	switch {
	case errors.As(err, &rows):
		msgs := make([]string, 0, len(rows.Rows))
		for _, row := range rows.Rows {
			msgs = append(msgs, row.String())
		}
		apierr.JSON(w, http.StatusBadRequest, apierr.Payload{Error: apierr.CodeValidation, Message: "The file contains invalid rows.", Warnings: msgs})
	case errors.Is(err, importer.ErrUnhandledKey),
		errors.Is(err, importer.ErrUnsupportedLanguage),
		errors.Is(err, csvutil.ErrTooManyRows):
		apierr.BadRequest(w, err.Error())
	default:
		apierr.Write(w, r, h.Log, err)
	}
}

// ServeAdmission handles POST /imports/admission?lang=fr|en with the
// admission conditions JSON export.
func (h *Handler) ServeAdmission(w http.ResponseWriter, r *http.Request) {
	h.serveAdmission(w, r, "admission", h.Importer.ImportAdmission)
}

// ServeCommon handles POST /imports/common?lang=fr|en with the common
// admission texts.
func (h *Handler) ServeCommon(w http.ResponseWriter, r *http.Request) {
	h.serveAdmission(w, r, "common", h.Importer.ImportCommon)
}

func (h *Handler) serveAdmission(w http.ResponseWriter, r *http.Request, kind string, run func(ctx context.Context, r io.Reader, lang string) (importer.Report, error)) {
	if !h.authorize(w, r) {
		return
	}
	body, ok := upload(w, r)
	if !ok {
		return
	}
	defer body.Close()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "import "+kind)
	defer cancel()

	rep, err := run(ctx, body, r.URL.Query().Get("lang"))
	h.Audit.ImportCompleted(ctx, kind, rep.Details(), err)
	if err != nil {
		h.writeImportError(w, r, err)
		return
	}
	apierr.JSON(w, http.StatusOK, map[string]any{
		"conditions":       rep.Conditions,
		"lines":            rep.Lines,
		"unknown_acronyms": nonNil(rep.UnknownAcronyms),
	})
}

// ServeRules handles POST /imports/rules with the validation rules CSV.
func (h *Handler) ServeRules(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	body, ok := upload(w, r)
	if !ok {
		return
	}
	defer body.Close()

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "import rules")
	defer cancel()

	rep, err := h.Importer.ImportRules(ctx, body)
	h.Audit.ImportCompleted(ctx, "rules", rep.Details(), err)
	if err != nil {
		h.writeImportError(w, r, err)
		return
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"created": rep.Created, "updated": rep.Updated})
}

// ServeDuplicate handles POST /imports/admission/duplicate?from=YYYY&to=YYYY.
func (h *Handler) ServeDuplicate(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	from, ok := apierr.QueryYear(w, r, "from")
	if !ok {
		return
	}
	to, ok := apierr.QueryYear(w, r, "to")
	if !ok {
		return
	}
	if from == to {
		apierr.BadRequest(w, "from and to must differ")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "duplicate admission")
	defer cancel()

	rep, err := h.Importer.DuplicateAdmission(ctx, from, to)
	h.Audit.ImportCompleted(ctx, "duplicate-admission", rep.Details(), err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, rep.Details())
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
