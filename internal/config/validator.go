package config

import (
	"fmt"
	"strings"

	"github.com/rohankatakam/paycheck/internal/errors"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("configuration validation failed:\n")
	for _, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err))
	}

	if len(vr.Warnings) > 0 {
		sb.WriteString("\nwarnings:\n")
		for _, warn := range vr.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", warn))
		}
	}

	return sb.String()
}

// Err converts a failed result into a fatal config error
func (vr *ValidationResult) Err() error {
	if !vr.HasErrors() {
		return nil
	}
	return errors.ConfigError(strings.TrimRight(vr.Error(), "\n"))
}

// Validate checks everything a report run needs
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{Valid: true}

	c.validateTracker(result)
	c.validatePay(result)
	c.validateFetch(result)
	c.validateLog(result)

	return result
}

// ValidateCalendar checks only the pay calendar, for commands that do not
// talk to the tracker
func (c *Config) ValidateCalendar() *ValidationResult {
	result := &ValidationResult{Valid: true}
	c.validatePay(result)
	return result
}

func (c *Config) validateTracker(result *ValidationResult) {
	t := c.Tracker

	if t.Hostname == "" {
		result.AddError("tracker.hostname is required but not set")
	} else if strings.Contains(t.Hostname, "://") || strings.Contains(t.Hostname, "/") {
		result.AddError("tracker.hostname must be a bare host name, got %q", t.Hostname)
	}

	switch t.Scheme {
	case "http":
		result.AddWarning("tracker.scheme is http; credentials are sent in clear text")
	case "https":
	default:
		result.AddError("tracker.scheme must be http or https, got %q", t.Scheme)
	}

	if t.Port < 0 || t.Port > 65535 {
		result.AddError("tracker.port is out of range [0,65535]: %d", t.Port)
	}

	switch {
	case t.Token != "" && t.Password != "":
		result.AddWarning("both tracker.token and tracker.password are set; the token is used")
	case t.Token == "" && t.Password == "":
		result.AddWarning("no tracker credentials configured; requests are sent anonymously. Run: paycheck login")
	case t.Token == "" && t.Username == "":
		result.AddError("tracker.password is set but tracker.username is empty")
	}
}

func (c *Config) validatePay(result *ValidationResult) {
	if c.Pay.Day < 1 || c.Pay.Day > 31 {
		result.AddError("pay.day is out of range [1,31]: %d", c.Pay.Day)
	} else if c.Pay.Day > 28 {
		result.AddWarning("pay.day %d does not exist in every month; short months roll over into the next", c.Pay.Day)
	}

	if c.Pay.HoursPerDay <= 0 {
		result.AddError("pay.hours_per_day must be positive, got %g", c.Pay.HoursPerDay)
	} else if c.Pay.HoursPerDay > 24 {
		result.AddError("pay.hours_per_day cannot exceed 24, got %g", c.Pay.HoursPerDay)
	}
}

func (c *Config) validateFetch(result *ValidationResult) {
	if c.Fetch.Concurrency < 1 {
		result.AddError("fetch.concurrency must be at least 1, got %d", c.Fetch.Concurrency)
	}
	if c.Fetch.RateLimit < 0 {
		result.AddError("fetch.rate_limit cannot be negative, got %g", c.Fetch.RateLimit)
	} else if c.Fetch.RateLimit == 0 {
		result.AddWarning("fetch.rate_limit is 0; requests are not rate limited")
	}
	if c.Fetch.RequestTimeout <= 0 {
		result.AddError("fetch.request_timeout must be positive, got %s", c.Fetch.RequestTimeout)
	}
	if c.Fetch.MaxResults < 0 {
		result.AddError("fetch.max_results cannot be negative, got %d", c.Fetch.MaxResults)
	}
}

func (c *Config) validateLog(result *ValidationResult) {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		result.AddError("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
}
