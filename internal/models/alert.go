package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Alert is the per-device alert record. At most one unresolved alert
// exists per device; the partial unique index enforces it in the store.
type Alert struct {
	ID                 uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID           string         `gorm:"type:varchar(100);not null;index:idx_alerts_device;uniqueIndex:idx_alerts_one_active,where:resolved = false" json:"deviceId"`
	Severity           Severity       `gorm:"type:varchar(20);not null;index" json:"severity"`
	PredictionLabel    string         `gorm:"type:varchar(50)" json:"predictionLabel"`
	Score              float64        `gorm:"type:double precision" json:"score"`
	ReadingID          *uint          `json:"readingId,omitempty"`
	Forecast           datatypes.JSON `json:"forecast,omitempty"`
	DetectedAt         time.Time      `gorm:"not null;index:,sort:desc" json:"detectedAt"`
	NotificationSentAt *time.Time     `json:"notificationSentAt,omitempty"`
	ResolvedAt         *time.Time     `json:"resolvedAt,omitempty"`
	Resolved           bool           `gorm:"not null;default:false;index" json:"resolved"`
	Version            int            `gorm:"not null" json:"version"`
	CreatedAt          time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (Alert) TableName() string {
	return "alerts"
}

// NewAlert creates an undispatched, unresolved alert
func NewAlert(deviceID string, severity Severity, label string, score float64, readingID *uint, now time.Time) *Alert {
	return &Alert{
		ID:              uuid.New(),
		DeviceID:        deviceID,
		Severity:        severity,
		PredictionLabel: label,
		Score:           score,
		ReadingID:       readingID,
		DetectedAt:      now,
		Version:         1,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Escalate raises the severity in place and makes the alert eligible for dispatch again
func (a *Alert) Escalate(severity Severity, label string, score float64, readingID *uint, now time.Time) {
	a.Severity = severity
	a.PredictionLabel = label
	a.Score = score
	if readingID != nil {
		a.ReadingID = readingID
	}
	a.DetectedAt = now
	a.NotificationSentAt = nil
	a.UpdatedAt = now
}

// Resolve marks the alert as resolved
func (a *Alert) Resolve(now time.Time) {
	a.Resolved = true
	a.ResolvedAt = &now
	a.UpdatedAt = now
}

// IsActive returns true while the alert is unresolved
func (a *Alert) IsActive() bool {
	return !a.Resolved
}

// IsDispatched returns true once a sweep included the alert
func (a *Alert) IsDispatched() bool {
	return a.NotificationSentAt != nil
}

// SetForecast stores the prediction snapshot that produced the alert
func (a *Alert) SetForecast(points []PredictionPoint) {
	if len(points) == 0 {
		a.Forecast = nil
		return
	}
	data, err := json.Marshal(points)
	if err != nil {
		a.Forecast = nil
		return
	}
	a.Forecast = datatypes.JSON(data)
}

// ForecastPoints decodes the stored prediction snapshot
func (a *Alert) ForecastPoints() []PredictionPoint {
	if len(a.Forecast) == 0 {
		return nil
	}
	var points []PredictionPoint
	if err := json.Unmarshal(a.Forecast, &points); err != nil {
		return nil
	}
	return points
}

// Clone returns a copy safe to hand across goroutines
func (a *Alert) Clone() *Alert {
	c := *a
	if a.NotificationSentAt != nil {
		t := *a.NotificationSentAt
		c.NotificationSentAt = &t
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	if a.ReadingID != nil {
		id := *a.ReadingID
		c.ReadingID = &id
	}
	if a.Forecast != nil {
		c.Forecast = append(datatypes.JSON(nil), a.Forecast...)
	}
	return &c
}
