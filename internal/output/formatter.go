package output

import (
	"io"
	"os"
	"strings"

	"github.com/rohankatakam/paycheck/internal/errors"
	"github.com/rohankatakam/paycheck/internal/report"
)

// Formatter defines output formatting interface
type Formatter interface {
	Format(r *report.Report, w io.Writer) error
}

// Format selects the report layout
type Format string

const (
	FormatText Format = "text" // console layout for people
	FormatJSON Format = "json" // machine-readable, one document
	FormatYAML Format = "yaml"
)

// ParseFormat validates a --format value
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", errors.ValidationErrorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// NewFormatter creates the formatter for f
func NewFormatter(f Format) Formatter {
	switch f {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TextFormatter{}
	}
}

// DefaultFormat returns text for interactive terminals and JSON otherwise,
// unless PAYCHECK_FORMAT overrides it.
func DefaultFormat(interactive bool) Format {
	if env := os.Getenv("PAYCHECK_FORMAT"); env != "" {
		if f, err := ParseFormat(env); err == nil {
			return f
		}
	}
	if interactive {
		return FormatText
	}
	return FormatJSON
}
