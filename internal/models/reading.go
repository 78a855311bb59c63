package models

import (
	"math"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
)

// Reading is one timestamped snapshot of sensor metrics for a device.
// Metrics are pointers so that absent values stay distinguishable from zero.
type Reading struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	DeviceID     string    `gorm:"type:varchar(100);not null;index:idx_readings_device_measured,priority:1" json:"deviceId"`
	PH           *float64  `gorm:"column:ph" json:"ph,omitempty"`
	DO           *float64  `gorm:"column:do_value" json:"doValue,omitempty"`
	Temperature  *float64  `json:"temperature,omitempty"`
	EC           *float64  `gorm:"column:ec" json:"ec,omitempty"`
	Turbidity    *float64  `json:"turbidity,omitempty"`
	BOD          *float64  `gorm:"column:bod" json:"bod,omitempty"`
	COD          *float64  `gorm:"column:cod" json:"cod,omitempty"`
	TP           *float64  `gorm:"column:tp" json:"tp,omitempty"`
	TN           *float64  `gorm:"column:tn" json:"tn,omitempty"`
	SS           *float64  `gorm:"column:ss" json:"ss,omitempty"`
	ChlorophyllA *float64  `gorm:"column:chlorophyll_a" json:"chlorophyllA,omitempty"`
	NO3N         *float64  `gorm:"column:no3n" json:"no3n,omitempty"`
	MeasuredAt   time.Time `gorm:"not null;index:idx_readings_device_measured,priority:2,sort:desc" json:"measuredAt"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName specifies the table name for GORM
func (Reading) TableName() string {
	return "readings"
}

type namedMetric struct {
	name  string
	value *float64
}

func (r *Reading) metrics() []namedMetric {
	return []namedMetric{
		{"ph", r.PH},
		{"doValue", r.DO},
		{"temperature", r.Temperature},
		{"ec", r.EC},
		{"turbidity", r.Turbidity},
		{"bod", r.BOD},
		{"cod", r.COD},
		{"tp", r.TP},
		{"tn", r.TN},
		{"ss", r.SS},
		{"chlorophyllA", r.ChlorophyllA},
		{"no3n", r.NO3N},
	}
}

// Validate rejects readings that must not enter the pipeline
func (r *Reading) Validate() error {
	if r.DeviceID == "" {
		return apperr.NewValidationError("deviceId", "is required")
	}
	if r.PH == nil && r.DO == nil && r.BOD == nil && r.COD == nil {
		return apperr.NewValidationError("", "at least one of ph, doValue, bod, cod is required")
	}

	for _, m := range r.metrics() {
		if m.value == nil {
			continue
		}
		v := *m.value
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return apperr.NewValidationError(m.name, "must be a finite number")
		}
		// water temperature may dip below zero
		if m.name != "temperature" && v < 0 {
			return apperr.NewValidationError(m.name, "must not be negative")
		}
	}

	if r.PH != nil && *r.PH > 14 {
		return apperr.NewValidationError("ph", "must be between 0 and 14")
	}
	return nil
}

// Float returns a pointer to v
func Float(v float64) *float64 {
	return &v
}

// Value dereferences a metric, reporting whether it was present
func Value(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}
