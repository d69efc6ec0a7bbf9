package educationgrouppolicy

import (
	"context"
	"errors"
	"testing"

	"github.com/dalemusser/catalog/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type calendar struct {
	open bool
	err  error
}

func (c calendar) IsEditionOpen(context.Context) (bool, error) { return c.open, c.err }

func TestRequireDelete(t *testing.T) {
	ctx := context.Background()
	withPerm := []string{models.PermDeleteEducationGroup}

	tests := []struct {
		name    string
		person  models.Person
		cal     calendar
		wantErr error
	}{
		{"no permission", models.Person{Roles: []string{models.RoleCentralManager}}, calendar{open: true}, ErrNoDeletePermission},
		{"central manager, calendar closed", models.Person{Roles: []string{models.RoleCentralManager}, Permissions: withPerm}, calendar{}, nil},
		{"faculty manager, calendar open", models.Person{Roles: []string{models.RoleFacultyManager}, Permissions: withPerm}, calendar{open: true}, nil},
		{"faculty manager, calendar closed", models.Person{Roles: []string{models.RoleFacultyManager}, Permissions: withPerm}, calendar{}, ErrEditionClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RequireDelete(ctx, tt.cal, tt.person)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("RequireDelete() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RequireDelete() = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrForbidden) {
				t.Errorf("refusal should match ErrForbidden")
			}
		})
	}
}

func TestRequire_CalendarError(t *testing.T) {
	boom := errors.New("boom")
	p := models.Person{Permissions: []string{models.PermChangeEducationGroup}}
	err := RequireChange(context.Background(), calendar{err: boom}, p)
	if !errors.Is(err, boom) {
		t.Fatalf("RequireChange() = %v, want calendar error", err)
	}
	if errors.Is(err, ErrForbidden) {
		t.Error("a calendar failure is not a refusal")
	}
	if CanChange(context.Background(), calendar{err: boom}, p) {
		t.Error("CanChange should be false when the calendar fails")
	}
}

func TestCanAdd(t *testing.T) {
	p := models.Person{Permissions: []string{models.PermAddEducationGroup}}
	if !CanAdd(context.Background(), calendar{open: true}, p) {
		t.Error("CanAdd should be true while the calendar is open")
	}
	if CanDelete(context.Background(), calendar{open: true}, p) {
		t.Error("CanDelete needs the delete permission")
	}
}

func TestCanEditAdministrativeData(t *testing.T) {
	entity := primitive.NewObjectID()
	egy := models.EducationGroupYear{ManagementEntityID: &entity}
	perm := []string{models.PermEditAdministrative}

	tests := []struct {
		name   string
		person models.Person
		want   bool
	}{
		{"no permission", models.Person{Roles: []string{models.RoleProgramManager}}, false},
		{"attached central manager", models.Person{Roles: []string{models.RoleCentralManager}, Permissions: perm, EntityIDs: []primitive.ObjectID{entity}}, true},
		{"detached central manager", models.Person{Roles: []string{models.RoleCentralManager}, Permissions: perm}, false},
		{"program manager", models.Person{Roles: []string{models.RoleProgramManager}, Permissions: perm}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanEditAdministrativeData(tt.person, egy); got != tt.want {
				t.Errorf("CanEditAdministrativeData() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequireCentralManager(t *testing.T) {
	if err := RequireCentralManager(models.Person{Roles: []string{models.RoleCentralManager}}); err != nil {
		t.Fatalf("central manager refused: %v", err)
	}
	err := RequireCentralManager(models.Person{Roles: []string{models.RoleProgramManager}})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("program manager: got %v, want ErrForbidden", err)
	}
}
