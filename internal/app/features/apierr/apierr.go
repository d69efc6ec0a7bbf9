// internal/app/features/apierr/apierr.go
//
// Package apierr renders service errors as JSON payloads with the status
// code that matches their kind.
package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dalemusser/catalog/internal/app/policy/educationgrouppolicy"
	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"go.uber.org/zap"
)

// Payload is the body of every error response.
type Payload struct {
	Error    string              `json:"error"`
	Message  string              `json:"message,omitempty"`
	Fields   map[string][]string `json:"fields,omitempty"`
	Warnings []string            `json:"warnings,omitempty"`
	Reasons  []Reason            `json:"reasons,omitempty"`
}

// Reason is one protected year-version.
type Reason struct {
	EducationGroupYearID string   `json:"education_group_year_id"`
	Acronym              string   `json:"acronym"`
	Year                 string   `json:"year"`
	Messages             []string `json:"messages"`
}

// Error codes.
const (
	CodeValidation        = "validation"
	CodeIncompatibleTypes = "incompatible_types"
	CodeCycle             = "cycle"
	CodeIntegrity         = "integrity"
	CodeOneParent         = "maximum_one_parent"
	CodeNotPostponable    = "not_postponable"
	CodeConsistency       = "consistency"
	CodeProtected         = "protected"
	CodeNotFound          = "not_found"
	CodeForbidden         = "forbidden"
	CodeUnauthorized      = "unauthorized"
	CodeBadRequest        = "bad_request"
	CodeInternal          = "internal"
)

// From maps err onto a status code and payload.
func From(err error) (int, Payload) {
	var (
		ve  *catalogerr.ValidationError
		ite *catalogerr.IncompatibleTypesError
		npe *catalogerr.NotPostponeError
		ce  *catalogerr.ConsistencyError
		pe  *catalogerr.ProtectedError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, Payload{Error: CodeValidation, Fields: ve.Fields}
	case errors.As(err, &ite):
		return http.StatusConflict, Payload{Error: CodeIncompatibleTypes, Message: ite.Error()}
	case errors.As(err, &npe):
		return http.StatusConflict, Payload{Error: CodeNotPostponable, Message: npe.Msg}
	case errors.As(err, &ce):
		return http.StatusConflict, Payload{Error: CodeConsistency, Message: ce.Error(), Warnings: ce.Warnings()}
	case errors.As(err, &pe):
		reasons := make([]Reason, 0, len(pe.Reasons))
		for _, r := range pe.Reasons {
			reasons = append(reasons, Reason(r))
		}
		return http.StatusConflict, Payload{Error: CodeProtected, Message: "The education group is protected.", Reasons: reasons}
	case errors.Is(err, catalogerr.ErrCycle):
		return http.StatusConflict, Payload{Error: CodeCycle, Message: err.Error()}
	case errors.Is(err, catalogerr.ErrIntegrity):
		return http.StatusConflict, Payload{Error: CodeIntegrity, Message: err.Error()}
	case errors.Is(err, catalogerr.ErrMaximumOneParentAllowed):
		return http.StatusConflict, Payload{Error: CodeOneParent, Message: err.Error()}
	case errors.Is(err, educationgrouppolicy.ErrForbidden):
		return http.StatusForbidden, Payload{Error: CodeForbidden, Message: err.Error()}
	case errors.Is(err, catalogerr.ErrNotFound):
		return http.StatusNotFound, Payload{Error: CodeNotFound, Message: err.Error()}
	}
	return http.StatusInternalServerError, Payload{Error: CodeInternal, Message: "internal error"}
}

// Write renders err. Unexpected errors are logged with the request path.
func Write(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	status, p := From(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("request failed", zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
	}
	JSON(w, status, p)
}

// BadRequest renders a 400 with msg.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, Payload{Error: CodeBadRequest, Message: msg})
}

// Unauthorized renders a 401.
func Unauthorized(w http.ResponseWriter) {
	JSON(w, http.StatusUnauthorized, Payload{Error: CodeUnauthorized, Message: "Please sign in to continue."})
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
