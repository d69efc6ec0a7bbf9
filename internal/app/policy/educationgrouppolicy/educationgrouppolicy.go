// internal/app/policy/educationgrouppolicy/educationgrouppolicy.go
package educationgrouppolicy

import (
	"context"
	"errors"

	"github.com/dalemusser/catalog/internal/domain/models"
)

var (
	// ErrForbidden is the base of every refusal below.
	ErrForbidden = errors.New("permission denied")

	ErrEditionClosed      = wrap("The education group edition period is not open.")
	ErrNoAddPermission    = wrap("User has not permission to add education groups.")
	ErrNoChangePermission = wrap("User has not permission to change education groups.")
	ErrNoDeletePermission = wrap("User has not permission to delete education groups.")
	ErrNotCentralManager  = wrap("Only central managers can run catalogue-wide operations.")
)

type denied struct{ msg string }

func (d denied) Error() string        { return d.msg }
func (d denied) Is(target error) bool { return target == ErrForbidden }

func wrap(msg string) error { return denied{msg: msg} }

// EditionCalendar reports whether the education group edition period is
// open.
type EditionCalendar interface {
	IsEditionOpen(ctx context.Context) (bool, error)
}

// require grants perm to p when p is a central manager or the edition
// calendar is open.
func require(ctx context.Context, cal EditionCalendar, p models.Person, perm string, missing error) error {
	if !p.HasPerm(perm) {
		return missing
	}
	if p.HasRole(models.RoleCentralManager) {
		return nil
	}
	open, err := cal.IsEditionOpen(ctx)
	if err != nil {
		return err
	}
	if !open {
		return ErrEditionClosed
	}
	return nil
}

// RequireAdd returns nil when p may create education groups.
func RequireAdd(ctx context.Context, cal EditionCalendar, p models.Person) error {
	return require(ctx, cal, p, models.PermAddEducationGroup, ErrNoAddPermission)
}

// RequireChange returns nil when p may edit education groups, attachments
// and prerequisites included.
func RequireChange(ctx context.Context, cal EditionCalendar, p models.Person) error {
	return require(ctx, cal, p, models.PermChangeEducationGroup, ErrNoChangePermission)
}

// RequireDelete returns nil when p may delete or shorten education groups.
func RequireDelete(ctx context.Context, cal EditionCalendar, p models.Person) error {
	return require(ctx, cal, p, models.PermDeleteEducationGroup, ErrNoDeletePermission)
}

// RequireCentralManager returns nil when p is a central manager. Year
// postponement and imports touch every group and are reserved to them.
func RequireCentralManager(p models.Person) error {
	if !p.HasRole(models.RoleCentralManager) {
		return ErrNotCentralManager
	}
	return nil
}

// CanAdd, CanChange and CanDelete are the boolean forms of the checks above.
// A calendar failure reads as a refusal.
func CanAdd(ctx context.Context, cal EditionCalendar, p models.Person) bool {
	return RequireAdd(ctx, cal, p) == nil
}

func CanChange(ctx context.Context, cal EditionCalendar, p models.Person) bool {
	return RequireChange(ctx, cal, p) == nil
}

func CanDelete(ctx context.Context, cal EditionCalendar, p models.Person) bool {
	return RequireDelete(ctx, cal, p) == nil
}

// CanEditAdministrativeData reports whether p may edit the administrative
// data of egy: the permission is required, then a central manager must be
// attached to the management entity, otherwise p must be a program manager.
func CanEditAdministrativeData(p models.Person, egy models.EducationGroupYear) bool {
	if !p.HasPerm(models.PermEditAdministrative) {
		return false
	}
	if p.HasRole(models.RoleCentralManager) && egy.ManagementEntityID != nil && p.IsAttachedTo(*egy.ManagementEntityID) {
		return true
	}
	return p.HasRole(models.RoleProgramManager)
}
