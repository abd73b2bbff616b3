package validation

import (
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "attendcli/internal/errors"
)

// RequestValidator validates request payloads against struct tags.
type RequestValidator struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewRequestValidator creates a request validator with the custom tags used
// by the API contracts registered.
func NewRequestValidator(logger *slog.Logger) *RequestValidator {
	v := validator.New()

	v.RegisterValidation("clock", isValidClock)
	v.RegisterValidation("filename", isValidFilename)

	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &RequestValidator{
		validator: v,
		logger:    logger.With(slog.String("component", "request_validator")),
	}
}

// ValidateStruct validates a struct and returns validation errors
func (rv *RequestValidator) ValidateStruct(v interface{}) error {
	if err := rv.validator.Struct(v); err != nil {
		var validationErrors []apierrors.ValidationError

		for _, err := range err.(validator.ValidationErrors) {
			ve := apierrors.ValidationError{
				Field:   err.Field(),
				Message: formatValidationError(err),
			}
			validationErrors = append(validationErrors, ve)
		}

		return apierrors.NewValidationErrors(validationErrors)
	}
	return nil
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	tag := err.Tag()
	param := err.Param()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Replace(param, " ", ", ", -1))
	case "clock":
		return fmt.Sprintf("%s must be a clock time in HH:MM form", field)
	case "filename":
		return fmt.Sprintf("%s must be a valid filename", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, tag)
	}
}

// isValidClock validates HH:MM wall-clock values such as shift starts
func isValidClock(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return false
	}
	var h, m int
	if _, err := fmt.Sscanf(value, "%d:%d", &h, &m); err != nil {
		return false
	}
	return h >= 0 && h <= 23 && m >= 0 && m <= 59
}

// isValidFilename rejects empty names, traversal sequences, and names too
// long for the upload store.
func isValidFilename(fl validator.FieldLevel) bool {
	filename := fl.Field().String()
	if filename == "" {
		return false
	}
	if strings.Contains(filename, "..") || strings.Contains(filename, "/") || strings.Contains(filename, "\\") {
		return false
	}
	return len(filename) <= 255
}

// QueryParamValidator validates query parameters
type QueryParamValidator struct {
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewQueryParamValidator creates a new query parameter validator
func NewQueryParamValidator(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *QueryParamValidator {
	return &QueryParamValidator{
		logger:       logger.With(slog.String("component", "query_validator")),
		errorHandler: errorHandler,
	}
}

// ValidateInt validates an integer query parameter. An absent parameter
// yields defaultValue without a range check.
func (v *QueryParamValidator) ValidateInt(w http.ResponseWriter, r *http.Request, param string, min, max int, defaultValue int) (int, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}

	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be a valid integer", param)))
		return 0, false
	}

	if intValue < min || intValue > max {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be between %d and %d", param, min, max)))
		return 0, false
	}

	return intValue, true
}

// ValidateEnum validates an enum query parameter
func (v *QueryParamValidator) ValidateEnum(w http.ResponseWriter, r *http.Request, param string, allowed []string, defaultValue string) (string, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}

	for _, a := range allowed {
		if value == a {
			return value, true
		}
	}

	v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be one of: %s", param, strings.Join(allowed, ", "))))
	return "", false
}
