package library

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	validate.RegisterValidation("notblank", validateNotBlank)
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

// validateDraft checks the struct tags of an author or book draft and returns
// the first violation as a *ValidationError.
func validateDraft(draft any) error {
	err := validate.Struct(draft)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Field: "draft", Reason: err.Error()}
	}

	fe := fieldErrs[0]
	field := fieldName(fe.Field())
	param := fe.Param()

	var reason string
	switch fe.Tag() {
	case "required", "notblank":
		reason = "must not be empty"
	case "min", "gte":
		reason = fmt.Sprintf("must be at least %s", param)
	case "max", "lte":
		reason = fmt.Sprintf("must be at most %s", param)
	case "oneof":
		reason = fmt.Sprintf("must be one of: %s", strings.ReplaceAll(param, " ", ", "))
	default:
		reason = "is invalid"
	}

	return &ValidationError{Field: field, Reason: reason}
}

var fieldNames = map[string]string{
	"ISBN":      "isbn",
	"AuthorIDs": "authorIds",
	"BookIDs":   "bookIds",
}

func fieldName(structField string) string {
	if name, ok := fieldNames[structField]; ok {
		return name
	}
	return strings.ToLower(structField[:1]) + structField[1:]
}
