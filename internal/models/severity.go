package models

import (
	"fmt"
	"strings"
)

// Severity is the derived alert level of a prediction
type Severity string

const (
	SeverityNone     Severity = "NONE"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

// Score thresholds of the water quality index
const (
	CriticalScoreThreshold = 25.0
	WarningScoreThreshold  = 50.0
)

// Prediction labels forwarded with a severity
const (
	LabelNormal    = "정상"
	LabelCaution   = "주의"
	LabelPollution = "오염"
)

// SeverityFromScore maps a predicted score onto a severity.
// score <= 25 is CRITICAL, 25 < score <= 50 is WARNING, anything above is NONE.
func SeverityFromScore(score float64) Severity {
	switch {
	case score <= CriticalScoreThreshold:
		return SeverityCritical
	case score <= WarningScoreThreshold:
		return SeverityWarning
	default:
		return SeverityNone
	}
}

// ParseSeverity accepts a case-insensitive severity name
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToUpper(strings.TrimSpace(s))) {
	case SeverityNone, "NORMAL":
		return SeverityNone, nil
	case SeverityWarning:
		return SeverityWarning, nil
	case SeverityCritical:
		return SeverityCritical, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Rank orders severities; a higher rank is more severe
func (s Severity) Rank() int {
	switch s {
	case SeverityWarning:
		return 1
	case SeverityCritical:
		return 2
	default:
		return 0
	}
}

// IsAbnormal reports whether the severity warrants an alert
func (s Severity) IsAbnormal() bool {
	return s.Rank() > 0
}

// Label returns the prediction label carried with the severity
func (s Severity) Label() string {
	switch s {
	case SeverityCritical:
		return LabelPollution
	case SeverityWarning:
		return LabelCaution
	default:
		return LabelNormal
	}
}

// AlertLevel returns the realtime alert level name
func (s Severity) AlertLevel() string {
	if s == SeverityNone || s == "" {
		return "NORMAL"
	}
	return string(s)
}

func (s Severity) String() string {
	return string(s)
}
