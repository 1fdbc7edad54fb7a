// Package diagnostics holds per-document diagnostic snapshots reported by
// editor plugins and the change events derived from them.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Severity mirrors the editor severity levels.
type Severity string

const (
	SeverityError       Severity = "error"
	SeverityWarning     Severity = "warning"
	SeverityInformation Severity = "information"
	SeverityHint        Severity = "hint"
)

// ParseSeverity accepts level names case-insensitively plus the common short forms.
func ParseSeverity(raw string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "error", "err":
		return SeverityError, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "information", "info":
		return SeverityInformation, nil
	case "hint":
		return SeverityHint, nil
	default:
		return "", fmt.Errorf("unknown severity %q", raw)
	}
}

// UnmarshalJSON accepts a level name or an LSP numeric severity (1..4).
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		parsed, err := ParseSeverity(name)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	}

	var level int
	if err := json.Unmarshal(data, &level); err != nil {
		return fmt.Errorf("severity must be a string or number: %s", string(data))
	}
	switch level {
	case 1:
		*s = SeverityError
	case 2:
		*s = SeverityWarning
	case 3:
		*s = SeverityInformation
	case 4:
		*s = SeverityHint
	default:
		return fmt.Errorf("unknown severity level %d", level)
	}
	return nil
}

// Diagnostic is one reported problem on a zero-based line.
type Diagnostic struct {
	Line     int      `json:"line"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// IsError reports whether d has error severity.
func (d Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}

// Document is the full current diagnostic set for one document.
type Document struct {
	URI         string       `json:"uri"`
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// ChangeEvent names the documents whose diagnostics changed.
type ChangeEvent struct {
	URIs []string `json:"uris"`
}

// Source answers diagnostics queries for a document.
type Source interface {
	Diagnostics(uri string) []Diagnostic
}

// HasErrors reports whether any diagnostic in list has error severity.
func HasErrors(list []Diagnostic) bool {
	for _, d := range list {
		if d.IsError() {
			return true
		}
	}
	return false
}
