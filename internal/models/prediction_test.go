package models_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aqua-monitor/aqua-alert/internal/models"
)

var _ = Describe("PredictionOutcome", func() {
	It("should pick the latest dated entry regardless of order", func() {
		outcome := models.OkOutcome([]models.PredictionPoint{
			{Date: "2025-03-03", Score: 20, Grade: "매우 나쁨"},
			{Date: "2025-03-01", Score: 80, Grade: "좋음"},
			{Date: "2025-03-02", Score: 45, Grade: "나쁨"},
		})

		latest, ok := outcome.Latest()
		Expect(ok).To(BeTrue())
		Expect(latest.Date).To(Equal("2025-03-03"))
		Expect(outcome.Severity()).To(Equal(models.SeverityCritical))
	})

	It("should prefer the later entry on equal dates", func() {
		outcome := models.OkOutcome([]models.PredictionPoint{
			{Date: "2025-03-01", Score: 20},
			{Date: "2025-03-01", Score: 70},
		})
		latest, _ := outcome.Latest()
		Expect(latest.Score).To(Equal(70.0))
	})

	It("should report no latest entry for failures and empty lists", func() {
		_, ok := models.ErrOutcome("model not loaded").Latest()
		Expect(ok).To(BeFalse())

		_, ok = models.OkOutcome(nil).Latest()
		Expect(ok).To(BeFalse())
		Expect(models.OkOutcome(nil).Severity()).To(Equal(models.SeverityNone))
	})

	It("should expose the failure message", func() {
		outcome := models.ErrOutcome("model not loaded")
		Expect(outcome.IsOk()).To(BeFalse())
		Expect(outcome.Err()).To(Equal("model not loaded"))
	})
})

var _ = Describe("PredictionResultMessage", func() {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	It("should build a success message from the latest prediction", func() {
		reading := &models.Reading{DeviceID: "S1", PH: models.Float(7.1), DO: models.Float(8)}
		device := &models.Device{DeviceID: "S1", Name: "Han-Seoul"}
		outcome := models.OkOutcome([]models.PredictionPoint{
			{Date: "2025-03-01", Score: 60, Grade: "보통"},
			{Date: "2025-03-02", Score: 40, Grade: "나쁨"},
		})

		msg := models.NewPredictionSuccess(device, "Han", reading, outcome, now)

		Expect(msg.Success).To(BeTrue())
		Expect(msg.MessageType).To(Equal(models.MessageTypePrediction))
		Expect(msg.SensorName).To(Equal("Han-Seoul"))
		Expect(msg.SensorValues.PH).To(Equal(reading.PH))
		Expect(msg.PredictionSummary.OverallGrade).To(Equal("나쁨"))
		Expect(*msg.PredictionSummary.OverallScore).To(Equal(40.0))
		Expect(msg.PredictionSummary.AlertLevel).To(Equal("WARNING"))
		Expect(msg.PredictionSummary.Predictions).To(HaveLen(2))
	})

	It("should build a failure message", func() {
		msg := models.NewPredictionFailure("S1", "timeout", now)
		Expect(msg.Success).To(BeFalse())
		Expect(msg.ErrorMessage).To(Equal("timeout"))
		Expect(msg.SensorValues).To(BeNil())
		Expect(msg.PredictionSummary).To(BeNil())
	})
})
