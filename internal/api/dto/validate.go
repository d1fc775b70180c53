package dto

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/spec-kit/auth-service/pkg/util"
)

var validate = validator.New()

// Validate checks struct tags and returns a VALIDATION_FAILED error with one
// detail per offending field.
func Validate(req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperrors.NewValidationError("invalid request data", nil)
	}

	details := make(map[string]any, len(validationErrs))
	for _, fieldErr := range validationErrs {
		details[fieldErr.Field()] = fieldMessage(fieldErr)
	}
	return apperrors.NewValidationError("validation failed", details)
}

func fieldMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", err.Field())
	case "email":
		return fmt.Sprintf("field '%s' must be a valid email address", err.Field())
	default:
		return fmt.Sprintf("field '%s' failed on the '%s' rule", err.Field(), err.Tag())
	}
}
