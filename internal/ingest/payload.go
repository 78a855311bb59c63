package ingest

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
	"github.com/aqua-monitor/aqua-alert/internal/models"
)

// Payload is the telemetry message accepted over MQTT and HTTP
type Payload struct {
	DeviceID     string   `json:"deviceId" binding:"required"`
	PH           *float64 `json:"ph"`
	DO           *float64 `json:"doValue"`
	Temperature  *float64 `json:"temperature"`
	EC           *float64 `json:"ec"`
	Turbidity    *float64 `json:"turbidity"`
	BOD          *float64 `json:"bod"`
	COD          *float64 `json:"cod"`
	TP           *float64 `json:"tp"`
	TN           *float64 `json:"tn"`
	SS           *float64 `json:"ss"`
	ChlorophyllA *float64 `json:"chlorophyllA"`
	NO3N         *float64 `json:"no3n"`
	MeasuredAt   string   `json:"measuredAt"`
}

var measuredAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseMeasuredAt accepts RFC 3339 and zone-less local timestamps.
// An empty value yields the zero time.
func ParseMeasuredAt(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range measuredAtLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperr.NewValidationError("measuredAt", "has an unsupported time format")
}

// ToReading converts the payload into an unsaved reading
func (p *Payload) ToReading() (*models.Reading, error) {
	measuredAt, err := ParseMeasuredAt(p.MeasuredAt)
	if err != nil {
		return nil, err
	}
	return &models.Reading{
		DeviceID:     strings.TrimSpace(p.DeviceID),
		PH:           p.PH,
		DO:           p.DO,
		Temperature:  p.Temperature,
		EC:           p.EC,
		Turbidity:    p.Turbidity,
		BOD:          p.BOD,
		COD:          p.COD,
		TP:           p.TP,
		TN:           p.TN,
		SS:           p.SS,
		ChlorophyllA: p.ChlorophyllA,
		NO3N:         p.NO3N,
		MeasuredAt:   measuredAt,
	}, nil
}

// DecodePayload parses a raw telemetry message
func DecodePayload(data []byte) (*models.Reading, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, apperr.NewValidationError("", "empty payload")
	}

	var p Payload
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&p); err != nil {
		return nil, apperr.NewValidationError("", "malformed payload: "+err.Error())
	}
	return p.ToReading()
}
