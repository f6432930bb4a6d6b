package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateTargetURL validates the target resource URL
func (v *Validator) ValidateTargetURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("target url cannot be empty")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid target url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("target url must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("target url has no host")
	}

	return nil
}

// ValidateSelectors validates the selector set
func (v *Validator) ValidateSelectors(sel SelectorsConfig) error {
	if strings.TrimSpace(sel.Surface) == "" {
		return fmt.Errorf("surface selector is required")
	}
	return nil
}

// ValidateTiming validates the rotation and send timing values
func (v *Validator) ValidateTiming(agents AgentsConfig) error {
	if agents.CycleSeconds <= 0 {
		return fmt.Errorf("cycle_seconds must be positive, got %d", agents.CycleSeconds)
	}
	if agents.RotateLeadSeconds < 0 {
		return fmt.Errorf("rotate_lead_seconds must be >= 0, got %d", agents.RotateLeadSeconds)
	}
	if agents.RotateLeadSeconds >= agents.CycleSeconds {
		return fmt.Errorf("rotate_lead_seconds (%d) must be less than cycle_seconds (%d)",
			agents.RotateLeadSeconds, agents.CycleSeconds)
	}
	if agents.SendDelayMs < 0 {
		return fmt.Errorf("send_delay_ms must be >= 0, got %d", agents.SendDelayMs)
	}
	if agents.SendRetries < 0 {
		return fmt.Errorf("send_retries must be >= 0, got %d", agents.SendRetries)
	}
	if agents.ConnectAttempts <= 0 {
		return fmt.Errorf("connect_attempts must be positive, got %d", agents.ConnectAttempts)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateSummaryEvery validates the periodic summary interval
func (v *Validator) ValidateSummaryEvery(every string) error {
	if every == "" {
		return nil // Summary disabled
	}
	d, err := time.ParseDuration(every)
	if err != nil {
		return fmt.Errorf("invalid summary_every: %w", err)
	}
	if d < time.Second {
		return fmt.Errorf("summary_every must be at least 1s, got %s", every)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateTargetURL(cfg.Target.URL); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateSelectors(cfg.Target.Selectors); err != nil {
		errors = append(errors, err)
	}

	if strings.TrimSpace(cfg.Corpus.Descriptor) == "" {
		errors = append(errors, fmt.Errorf("corpus descriptor is required"))
	}

	if err := v.ValidateTiming(cfg.Agents); err != nil {
		errors = append(errors, err)
	}

	if cfg.Status.Enabled {
		if strings.TrimSpace(cfg.Status.Addr) == "" {
			errors = append(errors, fmt.Errorf("status.addr is required when status is enabled"))
		}
	}
	if err := v.ValidateSummaryEvery(cfg.Status.SummaryEvery); err != nil {
		errors = append(errors, err)
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
