package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a singleton validator instance
	validate *validator.Validate

	// MaxNodeIDLength bounds node ids accepted from the data layer
	MaxNodeIDLength = 512

	// Airflow DAG ids: alphanumerics, dashes, dots and underscores
	dagIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_.\-]+$`)
)

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("dagid", func(fl validator.FieldLevel) bool {
		return dagIDPattern.MatchString(fl.Field().String())
	})
}

// Struct validates a struct using its `validate` tags and returns the first
// failure in a readable form.
func Struct(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	if err := validate.Struct(v); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateDagID validates an Airflow DAG id
func ValidateDagID(id string) error {
	if id == "" {
		return errors.New("dag id cannot be empty")
	}
	if len(id) > 250 {
		return fmt.Errorf("dag id '%s' exceeds maximum length of 250 characters", id)
	}
	if !dagIDPattern.MatchString(id) {
		return fmt.Errorf("dag id '%s' contains invalid characters (only alphanumeric, dash, dot and underscore allowed)", id)
	}
	return nil
}

// ValidatePartitionKey validates a partition key. Any printable text is
// allowed, but it must be present and must not contain a path separator
// since it is sent as a URL path segment.
func ValidatePartitionKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("partition key cannot be empty")
	}
	if strings.Contains(key, "/") {
		return fmt.Errorf("partition key '%s' must not contain '/'", key)
	}
	return nil
}

// ValidateNodeID validates a graph node id
func ValidateNodeID(id string) error {
	if id == "" {
		return errors.New("node id cannot be empty")
	}
	if len(id) > MaxNodeIDLength {
		return fmt.Errorf("node id '%.32s...' exceeds maximum length of %d characters", id, MaxNodeIDLength)
	}
	return nil
}

// formatValidationError converts validator errors to a more user-friendly format
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Namespace()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%s: field is required", field)
		case "min", "gte":
			return fmt.Errorf("%s: must be at least %s", field, param)
		case "max", "lte":
			return fmt.Errorf("%s: must not exceed %s", field, param)
		case "gt":
			return fmt.Errorf("%s: must be greater than %s", field, param)
		case "oneof":
			return fmt.Errorf("%s: must be one of [%s]", field, param)
		case "url", "http_url":
			return fmt.Errorf("%s: must be a valid URL", field)
		case "dagid":
			return fmt.Errorf("%s: invalid dag id", field)
		default:
			return fmt.Errorf("%s: validation failed (%s)", field, tag)
		}
	}

	return err
}
