package validation

import (
	"errors"
	"fmt"
	"time"
)

// ConfigValidator collects every problem in a configuration instead of
// stopping at the first. Each error is prefixed with the field path.
type ConfigValidator struct {
	section string
	errs    []error
}

// NewConfigValidator creates a validator whose errors are prefixed with section
func NewConfigValidator(section string) *ConfigValidator {
	return &ConfigValidator{section: section}
}

func (cv *ConfigValidator) add(field string, err error) {
	cv.errs = append(cv.errs, fmt.Errorf("%s.%s: %w", cv.section, field, err))
}

// Struct runs the struct's `validate` tags
func (cv *ConfigValidator) Struct(v any) *ConfigValidator {
	if err := Struct(v); err != nil {
		cv.errs = append(cv.errs, fmt.Errorf("%s.%w", cv.section, err))
	}
	return cv
}

// MinDuration requires value >= min
func (cv *ConfigValidator) MinDuration(field string, value, min time.Duration) *ConfigValidator {
	if value < min {
		cv.add(field, fmt.Errorf("must be at least %v, got %v", min, value))
	}
	return cv
}

// Custom records fn's error against field
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		cv.add(field, err)
	}
	return cv
}

// When applies validations only if condition holds
func (cv *ConfigValidator) When(condition bool, validations func(*ConfigValidator)) *ConfigValidator {
	if condition {
		validations(cv)
	}
	return cv
}

// Validate returns the collected errors joined, or nil
func (cv *ConfigValidator) Validate() error {
	return errors.Join(cv.errs...)
}
