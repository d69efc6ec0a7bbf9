// Package catalogerr defines the error kinds shared by the catalogue stores
// and the services built on top of them.
//
// Sentinel values are compared with errors.Is; the structured kinds
// (ValidationError, ProtectedError, ...) are extracted with errors.As so
// callers can render their payload.
package catalogerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is the lookup outcome when no document matches.
	ErrNotFound = errors.New("object does not exist")

	// ErrMultipleReturned is the lookup outcome when a single match was
	// expected but several documents matched.
	ErrMultipleReturned = errors.New("multiple objects returned")

	// ErrIntegrity reports a uniqueness breach detected by the database.
	ErrIntegrity = errors.New("integrity error")

	// ErrCycle reports an attachment that would make a node its own ancestor.
	ErrCycle = fmt.Errorf("%w: the child is already an ascendant of the parent", ErrIntegrity)

	// ErrMaximumOneParentAllowed is raised when a year-version has more than
	// one parent of category TRAINING.
	ErrMaximumOneParentAllowed = errors.New("only one training parent is allowed")
)

// FromMongo maps driver errors onto the catalogue kinds. Unknown errors are
// returned unchanged.
func FromMongo(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case wafflemongo.IsDup(err):
		return fmt.Errorf("%w: %v", ErrIntegrity, err)
	}
	return err
}

/* ------------------------------- validation ------------------------------- */

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// Add records msg against field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Empty reports whether no message was recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

// OrNil returns e when it holds at least one message, nil otherwise.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], " "))
	}
	return "validation error: " + strings.Join(parts, "; ")
}

/* --------------------------------- types ---------------------------------- */

// IncompatibleTypesError is returned when no authorized relationship allows
// the child type under the parent type.
type IncompatibleTypesError struct {
	Child      string
	ChildType  string
	Parent     string
	ParentType string
}

func (e *IncompatibleTypesError) Error() string {
	return fmt.Sprintf("You cannot attach \"%s\" (type \"%s\") to \"%s\" (type \"%s\")",
		e.Child, e.ChildType, e.Parent, e.ParentType)
}

/* ------------------------------ postponement ------------------------------ */

// NotPostponeError reports an unmet precondition of content postponement.
type NotPostponeError struct {
	Msg string
}

func (e *NotPostponeError) Error() string { return e.Msg }

// Messages used by content postponement.
const (
	MsgNotATraining         = "The education group is not a training."
	MsgEndDateTooSmall      = "The end date of the education group is smaller than the year of postponement."
	MsgNoContent            = "This training has no content to postpone."
	MsgRootMissingNextYear  = "The root does not exist in the next academic year."
	MsgContentAlreadyCopied = "The content has already been postponed."
)

// ConsistencyError is raised when a postponed year-version was modified
// independently of its source and cannot be overwritten.
type ConsistencyError struct {
	TargetID    string
	Year        string
	Differences []string
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency error in %s: %s", e.Year, strings.Join(e.Differences, ", "))
}

// Warnings renders one operator message per divergent field.
func (e *ConsistencyError) Warnings() []string {
	out := make([]string, 0, len(e.Differences))
	for _, field := range e.Differences {
		out = append(out, fmt.Sprintf("Consistency error in %s : %s has been already modified.", e.Year, field))
	}
	return out
}

/* ------------------------------- protection ------------------------------- */

// ProtectedReason lists why one year-version cannot be deleted.
type ProtectedReason struct {
	EducationGroupYearID string
	Acronym              string
	Year                 string
	Messages             []string
}

// ProtectedError reports a deletion blocked by references. Reasons are kept
// in year order.
type ProtectedError struct {
	Reasons []ProtectedReason
}

func (e *ProtectedError) Error() string {
	parts := make([]string, 0, len(e.Reasons))
	for _, r := range e.Reasons {
		parts = append(parts, fmt.Sprintf("%s - %s: %s", r.Year, r.Acronym, strings.Join(r.Messages, " ")))
	}
	return "protected: " + strings.Join(parts, "; ")
}

// IsBatchRecoverable reports whether err is one of the expected per-element
// failures of a batch postponement: driver errors, integrity, not found,
// multiple returned, consistency, protection and postponement preconditions.
func IsBatchRecoverable(err error) bool {
	if err == nil {
		return false
	}
	var ce *ConsistencyError
	var pe *ProtectedError
	var npe *NotPostponeError
	if errors.As(err, &ce) || errors.As(err, &pe) || errors.As(err, &npe) {
		return true
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrMultipleReturned) || errors.Is(err, ErrIntegrity) {
		return true
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return true
	}
	var we mongo.WriteException
	var ce2 mongo.CommandError
	var bwe mongo.BulkWriteException
	return errors.As(err, &we) || errors.As(err, &ce2) || errors.As(err, &bwe) || mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}
