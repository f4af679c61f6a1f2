package extract

import (
	"errors"
	"fmt"

	"error-collector/internal/db"
)

// Format is the closed set of inbound webhook layouts.
type Format int

const (
	// FormatSentry is the structured issue-event layout:
	// {action, data: {issue, event, project}}.
	FormatSentry Format = iota
	// FormatGlitchTip is the Slack/Teams-compatible layout GlitchTip sends:
	// a top-level alias plus a non-empty attachments list.
	FormatGlitchTip
)

func (f Format) String() string {
	if f == FormatGlitchTip {
		return "glitchtip"
	}
	return "sentry"
}

// Detect classifies a parsed payload. The GlitchTip check is unconditional
// and runs first; everything else is treated as the structured layout. Only
// the two marker fields are inspected, so missing optional fields never
// affect detection.
func Detect(raw map[string]any) Format {
	if _, ok := raw["alias"]; !ok {
		return FormatSentry
	}
	if atts, ok := raw["attachments"].([]any); ok && len(atts) > 0 {
		return FormatGlitchTip
	}
	return FormatSentry
}

// Outcome is the result of running an extractor over an accepted payload.
// Exactly one of Record and Ignored is set: a nil Record with a non-empty
// Ignored reason means "accepted but not stored" (HTTP 200), while a
// populated Record is ready for the persistence gate.
type Outcome struct {
	Record  *db.Error
	Ignored string
}

// ErrMissingData marks a payload whose required top-level section is absent.
// The handler maps it to HTTP 400.
var ErrMissingData = errors.New("webhook payload missing 'data' section")

// ValidationError carries a field-path-qualified description of a payload
// that failed both the strict and the relaxed parse. Mapped to HTTP 422.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Path, e.Reason)
}
