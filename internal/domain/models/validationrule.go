// internal/domain/models/validationrule.go
package models

// ValidationRule configures a form field: its status, initial value and an
// optional format check. FieldReference is the natural key.
type ValidationRule struct {
	FieldReference    string `bson:"_id" json:"field_reference" validate:"required,max=255"`
	StatusField       string `bson:"status_field" json:"status_field" validate:"omitempty,oneof=DISABLED REQUIRED NOT_REQUIRED FIXED ALERT"`
	InitialValue      string `bson:"initial_value,omitempty" json:"initial_value,omitempty"`
	RegexRule         string `bson:"regex_rule,omitempty" json:"regex_rule,omitempty"`
	RegexErrorMessage string `bson:"regex_error_message,omitempty" json:"regex_error_message,omitempty"`
}
