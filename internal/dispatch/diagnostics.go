package dispatch

import (
	"fmt"

	"github.com/aqua-monitor/aqua-alert/internal/models"
)

// Diagnostic is one metric line of a notification section
type Diagnostic struct {
	Metric   string
	Value    string
	Standard string
	Status   string
	Flagged  bool
}

// Metric standards
const (
	phLow         = 6.5
	phHigh        = 8.5
	phAdvisoryLow = 6.0
	phAdvisoryHi  = 9.0
	doMin         = 5.0
	doAdvisoryMin = 3.0
	bodMax        = 8.0
	bodAdvisory   = 6.0
	codMax        = 10.0
	codAdvisory   = 8.0
)

const (
	phStandard  = "6.5 - 8.5"
	doStandard  = ">= 5.0 mg/L"
	bodStandard = "<= 8.0 mg/L"
	codStandard = "<= 10.0 mg/L"
)

// Diagnose lists the metric lines for a reading under a severity's bands.
// CRITICAL shows every known core metric, WARNING only the advisory-band ones.
// Water temperature is always shown when known.
func Diagnose(severity models.Severity, r *models.Reading) []Diagnostic {
	if r == nil {
		return nil
	}

	var out []Diagnostic
	if severity == models.SeverityCritical {
		out = criticalDiagnostics(r)
	} else {
		out = warningDiagnostics(r)
	}

	if t, ok := models.Value(r.Temperature); ok {
		out = append(out, Diagnostic{Metric: "Water temperature", Value: fmt.Sprintf("%.1f°C", t)})
	}
	return out
}

func criticalDiagnostics(r *models.Reading) []Diagnostic {
	var out []Diagnostic

	if ph, ok := models.Value(r.PH); ok {
		status := "normal"
		switch {
		case ph < phLow:
			status = "acidification warning"
		case ph > phHigh:
			status = "alkalization warning"
		}
		out = append(out, Diagnostic{Metric: "pH", Value: fmt.Sprintf("%.1f", ph), Standard: phStandard, Status: status, Flagged: status != "normal"})
	}
	if do, ok := models.Value(r.DO); ok {
		flagged := do < doMin
		out = append(out, Diagnostic{Metric: "DO (dissolved oxygen)", Value: mgL(do), Standard: doStandard, Status: pick(flagged, "oxygen depletion", "normal"), Flagged: flagged})
	}
	if bod, ok := models.Value(r.BOD); ok {
		flagged := bod > bodMax
		out = append(out, Diagnostic{Metric: "BOD", Value: mgL(bod), Standard: bodStandard, Status: pick(flagged, "high pollution", "normal"), Flagged: flagged})
	}
	if cod, ok := models.Value(r.COD); ok {
		flagged := cod > codMax
		out = append(out, Diagnostic{Metric: "COD", Value: mgL(cod), Standard: codStandard, Status: pick(flagged, "high pollution", "normal"), Flagged: flagged})
	}
	return out
}

func warningDiagnostics(r *models.Reading) []Diagnostic {
	var out []Diagnostic

	if ph, ok := models.Value(r.PH); ok {
		switch {
		case ph >= phAdvisoryLow && ph < phLow:
			out = append(out, Diagnostic{Metric: "pH", Value: fmt.Sprintf("%.1f", ph), Standard: phStandard, Status: "slightly acidic", Flagged: true})
		case ph > phHigh && ph <= phAdvisoryHi:
			out = append(out, Diagnostic{Metric: "pH", Value: fmt.Sprintf("%.1f", ph), Standard: phStandard, Status: "slightly alkaline", Flagged: true})
		}
	}
	if do, ok := models.Value(r.DO); ok && do >= doAdvisoryMin && do < doMin {
		out = append(out, Diagnostic{Metric: "DO (dissolved oxygen)", Value: mgL(do), Standard: doStandard, Status: "somewhat low", Flagged: true})
	}
	if bod, ok := models.Value(r.BOD); ok && bod >= bodAdvisory && bod <= bodMax {
		out = append(out, Diagnostic{Metric: "BOD", Value: mgL(bod), Standard: bodStandard, Status: "needs attention", Flagged: true})
	}
	if cod, ok := models.Value(r.COD); ok && cod >= codAdvisory && cod <= codMax {
		out = append(out, Diagnostic{Metric: "COD", Value: mgL(cod), Standard: codStandard, Status: "needs attention", Flagged: true})
	}
	return out
}

func mgL(v float64) string {
	return fmt.Sprintf("%.1f mg/L", v)
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}
