package models

import (
	"strings"
	"time"
)

// PredictionPoint is one forecast entry of the model service
type PredictionPoint struct {
	Date  string  `json:"date"`
	Score float64 `json:"wqiScore"`
	Grade string  `json:"wqiGrade"`
}

// PredictionOutcome is a tagged result: Ok(points) or Err(message)
type PredictionOutcome struct {
	points []PredictionPoint
	err    string
	ok     bool
}

// OkOutcome wraps a successful list of predictions
func OkOutcome(points []PredictionPoint) PredictionOutcome {
	return PredictionOutcome{points: points, ok: true}
}

// ErrOutcome wraps a failure message returned for a grouping
func ErrOutcome(message string) PredictionOutcome {
	return PredictionOutcome{err: message}
}

// IsOk reports whether the outcome carries predictions
func (o PredictionOutcome) IsOk() bool { return o.ok }

// Points returns the predictions of an Ok outcome
func (o PredictionOutcome) Points() []PredictionPoint { return o.points }

// Err returns the failure message of an Err outcome
func (o PredictionOutcome) Err() string { return o.err }

var predictionDateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

func parsePredictionDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range predictionDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Latest returns the latest-dated prediction. Later entries win ties.
func (o PredictionOutcome) Latest() (PredictionPoint, bool) {
	if !o.ok || len(o.points) == 0 {
		return PredictionPoint{}, false
	}

	best := 0
	for i := 1; i < len(o.points); i++ {
		if !dateBefore(o.points[i].Date, o.points[best].Date) {
			best = i
		}
	}
	return o.points[best], true
}

// dateBefore reports whether a is strictly earlier than b
func dateBefore(a, b string) bool {
	ta, okA := parsePredictionDate(a)
	tb, okB := parsePredictionDate(b)
	if okA && okB {
		return ta.Before(tb)
	}
	return a < b
}

// Severity derives the outcome severity from the latest-dated entry
func (o PredictionOutcome) Severity() Severity {
	latest, ok := o.Latest()
	if !ok {
		return SeverityNone
	}
	return SeverityFromScore(latest.Score)
}
