package config

import (
	"fmt"
	"strings"
	"time"

	"k8s.io/apimachinery/pkg/util/validation"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// ValidateRequired checks if a required string field is not empty
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("is required for %s", entityType),
		}
	}
	return nil
}

// ValidateOneOf checks if a value is in a list of allowed values
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")),
	}
}

// FormatValidationError creates a consistent validation error message
func FormatValidationError(entityType, entityName string, err error) error {
	if err == nil {
		return nil
	}

	if entityName != "" {
		return fmt.Errorf("validation failed for %s '%s': %w", entityType, entityName, err)
	}
	return fmt.Errorf("validation failed for %s: %w", entityType, err)
}

// Validate checks the configuration for values the runtime cannot work with.
func Validate(cfg *Config) error {
	var errs ValidationErrors

	if err := ValidateRequired("kubernetes.namespace", cfg.Kubernetes.Namespace, "config"); err != nil {
		errs = append(errs, err.(ValidationError))
	} else if msgs := validation.IsDNS1123Label(cfg.Kubernetes.Namespace); len(msgs) > 0 {
		errs.Add("kubernetes.namespace", strings.Join(msgs, "; "), cfg.Kubernetes.Namespace)
	}
	if err := ValidateRequired("runtime.image", cfg.Runtime.Image, "config"); err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if cfg.Runtime.ContainerPort <= 0 || cfg.Runtime.ContainerPort > 65535 {
		errs.Add("runtime.containerPort", "must be between 1 and 65535", cfg.Runtime.ContainerPort)
	}
	if cfg.Runtime.ServicePort <= 0 || cfg.Runtime.ServicePort > 65535 {
		errs.Add("runtime.servicePort", "must be between 1 and 65535", cfg.Runtime.ServicePort)
	}
	if err := ValidateOneOf("runtime.imagePullPolicy", cfg.Runtime.ImagePullPolicy, []string{"Always", "IfNotPresent", "Never"}); err != nil {
		errs = append(errs, err.(ValidationError))
	}
	if cfg.Timeouts.Request < time.Second {
		errs.Add("timeouts.request", "must be at least 1s", cfg.Timeouts.Request)
	}
	if cfg.Status.PollInterval < 0 {
		errs.Add("status.pollInterval", "must not be negative", cfg.Status.PollInterval)
	}
	if cfg.Logs.TailLines < 0 {
		errs.Add("logs.tailLines", "must not be negative", cfg.Logs.TailLines)
	}
	if err := ValidateOneOf("logging.format", cfg.Logging.Format, []string{"text", "json"}); err != nil {
		errs = append(errs, err.(ValidationError))
	}

	if errs.HasErrors() {
		return FormatValidationError("config", "", errs)
	}
	return nil
}
