package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// minPruneKnots keeps the outlier threshold above what a fishing vessel
	// can steam, so real segments are never pruned
	minPruneKnots = 30.0
	maxPruneKnots = 200.0
)

// Validator checks a loaded Config with struct tags plus the fishtrack rules
// registered in NewValidator
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("vessel_ids", validateVesselIDs)
	_ = v.RegisterValidation("prune_knots", validatePruneKnots)
	_ = v.RegisterValidation("postgres_url", validatePostgresURL)
	v.RegisterStructValidation(validateConfig, Config{})

	return &Validator{validate: v}
}

// Validate validates a struct using validation tags
func (v *Validator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// validateVesselIDs accepts an empty filter or positive, distinct ids
func validateVesselIDs(fl validator.FieldLevel) bool {
	ids, ok := fl.Field().Interface().([]int64)
	if !ok {
		return false
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return false
		}
		if _, dup := seen[id]; dup {
			return false
		}
		seen[id] = struct{}{}
	}
	return true
}

func validatePruneKnots(fl validator.FieldLevel) bool {
	knots := fl.Field().Float()
	return knots >= minPruneKnots && knots <= maxPruneKnots
}

func validatePostgresURL(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil {
		return false
	}
	return (u.Scheme == "postgres" || u.Scheme == "postgresql") && u.Host != ""
}

// validateConfig holds the rules spanning more than one section
func validateConfig(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	validateListeners(sl, cfg)
	validatePool(sl, cfg)
}

// validateListeners rejects a metrics listener on the health server's port
func validateListeners(sl validator.StructLevel, cfg Config) {
	if !cfg.Metrics.Enabled {
		return
	}
	_, port, err := net.SplitHostPort(cfg.Daemon.HealthAddress)
	if err != nil {
		return
	}
	if port == strconv.Itoa(cfg.Metrics.Port) {
		sl.ReportError(cfg.Metrics.Port, "Metrics.Port", "Port", "distinct_port", cfg.Daemon.HealthAddress)
	}
}

// validatePool rejects a postgres pool too small for the trip workers; the
// extra workers would only queue on connections
func validatePool(sl validator.StructLevel, cfg Config) {
	if cfg.Database.Type != "postgres" {
		return
	}
	if cfg.Database.Pool.MaxOpen < cfg.Pipeline.Workers {
		sl.ReportError(cfg.Database.Pool.MaxOpen, "Database.Pool.MaxOpen", "MaxOpen", "covers_workers", strconv.Itoa(cfg.Pipeline.Workers))
	}
}

// formatValidationError lists every failed rule as "Section.Field: reason"
func formatValidationError(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	messages := make([]string, 0, len(validationErrs))
	for _, e := range validationErrs {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		messages = append(messages, fmt.Sprintf("%s: %s", field, reason(e)))
	}
	return fmt.Errorf("validation failed:\n  %s", strings.Join(messages, "\n  "))
}

func reason(e validator.FieldError) string {
	switch e.Tag() {
	case "vessel_ids":
		return fmt.Sprintf("vessel ids must be positive and distinct, got %v", e.Value())
	case "prune_knots":
		return fmt.Sprintf("must lie between %.0f and %.0f knots, got %v", minPruneKnots, maxPruneKnots, e.Value())
	case "postgres_url":
		return "must be a postgres:// or postgresql:// URL with a host"
	case "distinct_port":
		return fmt.Sprintf("port %v is taken by the health server at %s", e.Value(), e.Param())
	case "covers_workers":
		return fmt.Sprintf("pool of %v connections is smaller than %s pipeline workers", e.Value(), e.Param())
	case "required_if":
		return "required when " + e.Param()
	}
	if e.Param() != "" {
		return fmt.Sprintf("failed %s=%s (value: '%v')", e.Tag(), e.Param(), e.Value())
	}
	return fmt.Sprintf("failed %s (value: '%v')", e.Tag(), e.Value())
}

// ValidateConfig validates the entire configuration
func ValidateConfig(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
