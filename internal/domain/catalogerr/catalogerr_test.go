package catalogerr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestFromMongo(t *testing.T) {
	if got := FromMongo(nil); got != nil {
		t.Errorf("FromMongo(nil) = %v, want nil", got)
	}
	if got := FromMongo(mongo.ErrNoDocuments); !errors.Is(got, ErrNotFound) {
		t.Errorf("FromMongo(ErrNoDocuments) = %v, want ErrNotFound", got)
	}
	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
	if got := FromMongo(dup); !errors.Is(got, ErrIntegrity) {
		t.Errorf("FromMongo(dup) = %v, want ErrIntegrity", got)
	}
	other := errors.New("boom")
	if got := FromMongo(other); got != other {
		t.Errorf("FromMongo(other) = %v, want unchanged", got)
	}
}

func TestErrCycle_IsIntegrity(t *testing.T) {
	if !errors.Is(ErrCycle, ErrIntegrity) {
		t.Error("ErrCycle should match ErrIntegrity")
	}
}

func TestValidationError(t *testing.T) {
	ve := NewValidationError()
	if ve.OrNil() != nil {
		t.Fatal("empty ValidationError should collapse to nil")
	}
	ve.Add("title", "This field is required.")
	ve.Add("acronym", "Invalid code.")
	if ve.OrNil() == nil {
		t.Fatal("expected non-nil error")
	}
	want := "validation error: acronym: Invalid code.; title: This field is required."
	if ve.Error() != want {
		t.Errorf("Error() = %q, want %q", ve.Error(), want)
	}
}

func TestIncompatibleTypesError_Message(t *testing.T) {
	err := &IncompatibleTypesError{Child: "LDROI100G", ChildType: "Common core", Parent: "DROI1BA", ParentType: "Bachelor"}
	want := `You cannot attach "LDROI100G" (type "Common core") to "DROI1BA" (type "Bachelor")`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestConsistencyError_Warnings(t *testing.T) {
	err := &ConsistencyError{Year: "2019-20", Differences: []string{"title", "credits"}}
	got := err.Warnings()
	if len(got) != 2 {
		t.Fatalf("expected 2 warnings, got %d", len(got))
	}
	if got[0] != "Consistency error in 2019-20 : title has been already modified." {
		t.Errorf("unexpected warning %q", got[0])
	}
}

func TestIsBatchRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", fmt.Errorf("load: %w", ErrNotFound), true},
		{"multiple", ErrMultipleReturned, true},
		{"integrity", ErrCycle, true},
		{"consistency", &ConsistencyError{}, true},
		{"protected", &ProtectedError{}, true},
		{"not postpone", &NotPostponeError{Msg: MsgNoContent}, true},
		{"no documents", mongo.ErrNoDocuments, true},
		{"command error", mongo.CommandError{Code: 2}, true},
		{"canceled", context.Canceled, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsBatchRecoverable(tt.err); got != tt.want {
				t.Errorf("IsBatchRecoverable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
