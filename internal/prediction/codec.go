package prediction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
	"github.com/aqua-monitor/aqua-alert/internal/models"
)

// ReadingPoint is one sensor record of the model service request.
// The service requires every metric, absent values are sent as zero.
type ReadingPoint struct {
	Date         string  `json:"ds"`
	SS           float64 `json:"ss"`
	BOD          float64 `json:"bod"`
	PH           float64 `json:"ph"`
	Temp         float64 `json:"temp"`
	DO           float64 `json:"do"`
	EC           float64 `json:"ec"`
	NO3N         float64 `json:"no3_n"`
	TP           float64 `json:"t_p"`
	TN           float64 `json:"t_n"`
	ChlorophyllA float64 `json:"chlorophyll_a"`
	COD          float64 `json:"cod"`
}

// PointFromReading converts a reading into the request shape, dated by its measurement day
func PointFromReading(r *models.Reading) ReadingPoint {
	v := func(p *float64) float64 {
		f, _ := models.Value(p)
		return f
	}
	return ReadingPoint{
		Date:         r.MeasuredAt.Format("2006-01-02"),
		SS:           v(r.SS),
		BOD:          v(r.BOD),
		PH:           v(r.PH),
		Temp:         v(r.Temperature),
		DO:           v(r.DO),
		EC:           v(r.EC),
		NO3N:         v(r.NO3N),
		TP:           v(r.TP),
		TN:           v(r.TN),
		ChlorophyllA: v(r.ChlorophyllA),
		COD:          v(r.COD),
	}
}

type request struct {
	AllSensorData map[string][]ReadingPoint `json:"all_sensor_data"`
}

type wirePrediction struct {
	Date  *string  `json:"ds"`
	Score *float64 `json:"yhat"`
	Grade *string  `json:"WQI_등급"`
}

// Codec translates between pipeline types and the model service wire format
type Codec interface {
	EncodeRequest(grouping string, points []ReadingPoint) ([]byte, error)
	DecodeResponse(body []byte) (map[string]models.PredictionOutcome, error)
}

// JSONCodec is the model service JSON codec
type JSONCodec struct{}

// NewJSONCodec creates a JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

func (JSONCodec) EncodeRequest(grouping string, points []ReadingPoint) ([]byte, error) {
	if grouping == "" {
		return nil, apperr.NewPredictionError("encode", fmt.Errorf("grouping is required"))
	}
	if len(points) == 0 {
		return nil, apperr.NewPredictionError("encode", fmt.Errorf("no reading points for %q", grouping))
	}
	data, err := json.Marshal(request{AllSensorData: map[string][]ReadingPoint{grouping: points}})
	if err != nil {
		return nil, apperr.NewPredictionError("encode", err)
	}
	return data, nil
}

// DecodeResponse validates the response: each grouping maps to either an
// error string or a list of {ds, yhat, WQI_등급} records.
func (JSONCodec) DecodeResponse(body []byte) (map[string]models.PredictionOutcome, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, apperr.NewPredictionError("decode", fmt.Errorf("response is not an object: %w", err))
	}
	if raw == nil {
		return nil, apperr.NewPredictionError("decode", fmt.Errorf("response is null"))
	}

	result := make(map[string]models.PredictionOutcome, len(raw))
	for grouping, value := range raw {
		outcome, err := decodeGrouping(bytes.TrimSpace(value))
		if err != nil {
			return nil, apperr.NewPredictionError("decode", fmt.Errorf("grouping %q: %w", grouping, err))
		}
		result[grouping] = outcome
	}
	return result, nil
}

func decodeGrouping(value []byte) (models.PredictionOutcome, error) {
	if len(value) == 0 {
		return models.PredictionOutcome{}, fmt.Errorf("empty value")
	}

	switch value[0] {
	case '"':
		var msg string
		if err := json.Unmarshal(value, &msg); err != nil {
			return models.PredictionOutcome{}, err
		}
		return models.ErrOutcome(strings.TrimSpace(msg)), nil

	case '[':
		var entries []wirePrediction
		if err := json.Unmarshal(value, &entries); err != nil {
			return models.PredictionOutcome{}, err
		}
		points := make([]models.PredictionPoint, 0, len(entries))
		for i, e := range entries {
			p, err := e.validate()
			if err != nil {
				return models.PredictionOutcome{}, fmt.Errorf("entry %d: %w", i, err)
			}
			points = append(points, p)
		}
		return models.OkOutcome(points), nil

	default:
		return models.PredictionOutcome{}, fmt.Errorf("expected list or error string, got %s", truncate(value, 40))
	}
}

func (e wirePrediction) validate() (models.PredictionPoint, error) {
	if e.Date == nil || strings.TrimSpace(*e.Date) == "" {
		return models.PredictionPoint{}, fmt.Errorf("missing ds")
	}
	if e.Score == nil {
		return models.PredictionPoint{}, fmt.Errorf("missing yhat")
	}
	if math.IsNaN(*e.Score) || math.IsInf(*e.Score, 0) {
		return models.PredictionPoint{}, fmt.Errorf("yhat is not finite")
	}
	grade := ""
	if e.Grade != nil {
		grade = *e.Grade
	}
	return models.PredictionPoint{Date: strings.TrimSpace(*e.Date), Score: *e.Score, Grade: grade}, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
