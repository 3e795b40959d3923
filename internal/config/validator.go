package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/redcell-ai/redcell/internal/types"
)

// Validator validates configuration values.
type Validator interface {
	Validate(cfg *Config) error
}

// validatorImpl implements Validator using go-playground/validator.
type validatorImpl struct {
	validate *validator.Validate
}

// NewValidator creates a Validator instance.
func NewValidator() Validator {
	return &validatorImpl{validate: validator.New()}
}

// Validate checks struct tags plus the cross-field rules tags cannot
// express, and returns one aggregated error.
func (v *validatorImpl) Validate(cfg *Config) error {
	if cfg == nil {
		return types.NewError(types.CONFIG_VALIDATION_FAILED, "configuration is nil")
	}

	if err := v.validate.Struct(cfg); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return types.WrapError(types.CONFIG_VALIDATION_FAILED, "validation error", err)
		}
		var messages []string
		for _, e := range validationErrs {
			messages = append(messages, formatFieldError(e))
		}
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(messages, "\n  - ")))
	}

	if cfg.Retry.Enabled && cfg.Retry.BaseDelay <= 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			"configuration validation failed:\n  - retry.base_delay must be positive when retry is enabled")
	}
	if cfg.Pipeline.Resume && cfg.Core.CheckpointDir == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			"configuration validation failed:\n  - core.checkpoint_dir is required when pipeline.resume is set")
	}
	if cfg.Gates.Scope.Enabled && len(cfg.Gates.Scope.AuthorizedDomains) == 0 && cfg.Core.ScopeFile == "" {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			"configuration validation failed:\n  - gates.scope needs authorized_domains or core.scope_file when enabled")
	}

	return nil
}

func formatFieldError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Namespace())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s (got: %v)", e.Namespace(), e.Param(), e.Value())
	case "gte":
		return fmt.Sprintf("%s must be >= %s (got: %v)", e.Namespace(), e.Param(), e.Value())
	case "lte":
		return fmt.Sprintf("%s must be <= %s (got: %v)", e.Namespace(), e.Param(), e.Value())
	default:
		return fmt.Sprintf("%s failed validation: %s", e.Namespace(), e.Tag())
	}
}
