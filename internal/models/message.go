package models

import "time"

// MessageTypePrediction tags realtime prediction results
const MessageTypePrediction = "PREDICTION_RESULT"

// Realtime topics
const (
	TopicPrediction   = "/water/prediction"
	TopicDevicePrefix = "/water/prediction/device/"
	TopicAlerts       = "/water/alerts"
)

// DeviceTopic returns the per-device prediction topic
func DeviceTopic(deviceID string) string {
	return TopicDevicePrefix + deviceID
}

// SensorValues are the raw metrics echoed in realtime messages
type SensorValues struct {
	PH           *float64 `json:"ph,omitempty"`
	DO           *float64 `json:"doValue,omitempty"`
	Temperature  *float64 `json:"temperature,omitempty"`
	EC           *float64 `json:"ec,omitempty"`
	BOD          *float64 `json:"bod,omitempty"`
	COD          *float64 `json:"cod,omitempty"`
	TP           *float64 `json:"tp,omitempty"`
	TN           *float64 `json:"tn,omitempty"`
	SS           *float64 `json:"ss,omitempty"`
	ChlorophyllA *float64 `json:"chlorophyllA,omitempty"`
	NO3N         *float64 `json:"no3n,omitempty"`
}

// SensorValuesOf copies the metrics of a reading
func SensorValuesOf(r *Reading) *SensorValues {
	return &SensorValues{
		PH:           r.PH,
		DO:           r.DO,
		Temperature:  r.Temperature,
		EC:           r.EC,
		BOD:          r.BOD,
		COD:          r.COD,
		TP:           r.TP,
		TN:           r.TN,
		SS:           r.SS,
		ChlorophyllA: r.ChlorophyllA,
		NO3N:         r.NO3N,
	}
}

// PredictionSummary is the prediction part of a realtime message
type PredictionSummary struct {
	Grouping     string            `json:"grouping"`
	Predictions  []PredictionPoint `json:"predictions"`
	OverallGrade string            `json:"overallGrade,omitempty"`
	OverallScore *float64          `json:"overallScore,omitempty"`
	AlertLevel   string            `json:"alertLevel"`
}

// PredictionResultMessage is published for every accepted reading
type PredictionResultMessage struct {
	MessageType       string             `json:"messageType"`
	DeviceID          string             `json:"deviceId"`
	SensorName        string             `json:"sensorName,omitempty"`
	Grouping          string             `json:"grouping,omitempty"`
	SensorValues      *SensorValues      `json:"sensorValues,omitempty"`
	PredictionSummary *PredictionSummary `json:"predictionSummary,omitempty"`
	Timestamp         time.Time          `json:"timestamp"`
	Success           bool               `json:"success"`
	ErrorMessage      string             `json:"errorMessage,omitempty"`
}

// NewPredictionSuccess builds the success message of a prediction
func NewPredictionSuccess(device *Device, grouping string, reading *Reading, outcome PredictionOutcome, now time.Time) *PredictionResultMessage {
	summary := &PredictionSummary{
		Grouping:    grouping,
		Predictions: outcome.Points(),
		AlertLevel:  outcome.Severity().AlertLevel(),
	}
	if latest, ok := outcome.Latest(); ok {
		summary.OverallGrade = latest.Grade
		score := latest.Score
		summary.OverallScore = &score
	}

	msg := &PredictionResultMessage{
		MessageType:       MessageTypePrediction,
		DeviceID:          reading.DeviceID,
		Grouping:          grouping,
		SensorValues:      SensorValuesOf(reading),
		PredictionSummary: summary,
		Timestamp:         now,
		Success:           true,
	}
	if device != nil {
		msg.SensorName = device.Name
	}
	return msg
}

// NewPredictionFailure builds the failure message of a prediction
func NewPredictionFailure(deviceID, errorMessage string, now time.Time) *PredictionResultMessage {
	return &PredictionResultMessage{
		MessageType:  MessageTypePrediction,
		DeviceID:     deviceID,
		Timestamp:    now,
		Success:      false,
		ErrorMessage: errorMessage,
	}
}
