// internal/domain/models/validate.go
package models

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/dalemusser/catalog/internal/domain/catalogerr"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields under their bson names so messages line up with stored documents.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("bson"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// checkStruct runs the struct tags of v and folds the failures into ve.
func checkStruct(v any, ve *catalogerr.ValidationError) {
	err := validate.Struct(v)
	if err == nil {
		return
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		ve.Add("__all__", err.Error())
		return
	}
	for _, fe := range fieldErrs {
		ve.Add(fe.Field(), tagMessage(fe))
	}
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "gte":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", fe.Param())
	case "lte":
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", fe.Param())
	case "oneof":
		return fmt.Sprintf("Select a valid choice. %v is not one of the available choices.", fe.Value())
	}
	return fmt.Sprintf("Invalid value (%s).", fe.Tag())
}
