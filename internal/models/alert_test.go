package models_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aqua-monitor/aqua-alert/internal/models"
)

var _ = Describe("Alert", func() {
	var now time.Time

	BeforeEach(func() {
		now = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	})

	Describe("NewAlert", func() {
		It("should create an undispatched unresolved alert", func() {
			readingID := uint(7)
			alert := models.NewAlert("S1", models.SeverityCritical, models.LabelPollution, 20, &readingID, now)

			Expect(alert.ID.String()).NotTo(BeEmpty())
			Expect(alert.DeviceID).To(Equal("S1"))
			Expect(alert.Severity).To(Equal(models.SeverityCritical))
			Expect(alert.PredictionLabel).To(Equal("오염"))
			Expect(alert.Score).To(Equal(20.0))
			Expect(*alert.ReadingID).To(Equal(uint(7)))
			Expect(alert.DetectedAt).To(Equal(now))
			Expect(alert.NotificationSentAt).To(BeNil())
			Expect(alert.ResolvedAt).To(BeNil())
			Expect(alert.Resolved).To(BeFalse())
			Expect(alert.Version).To(Equal(1))
			Expect(alert.IsActive()).To(BeTrue())
			Expect(alert.IsDispatched()).To(BeFalse())
		})

		It("should generate distinct ids", func() {
			a := models.NewAlert("S1", models.SeverityWarning, "주의", 40, nil, now)
			b := models.NewAlert("S1", models.SeverityWarning, "주의", 40, nil, now)
			Expect(a.ID).NotTo(Equal(b.ID))
		})
	})

	Describe("TableName", func() {
		It("should return the correct table name", func() {
			Expect(models.Alert{}.TableName()).To(Equal("alerts"))
		})
	})

	Describe("Escalate", func() {
		It("should raise severity and reset the dispatch marker", func() {
			alert := models.NewAlert("S1", models.SeverityWarning, "주의", 40, nil, now)
			sent := now.Add(time.Minute)
			alert.NotificationSentAt = &sent

			later := now.Add(time.Hour)
			readingID := uint(9)
			alert.Escalate(models.SeverityCritical, "오염", 10, &readingID, later)

			Expect(alert.Severity).To(Equal(models.SeverityCritical))
			Expect(alert.DetectedAt).To(Equal(later))
			Expect(alert.NotificationSentAt).To(BeNil())
			Expect(*alert.ReadingID).To(Equal(uint(9)))
			Expect(alert.Score).To(Equal(10.0))
		})

		It("should keep the previous reading when none is given", func() {
			readingID := uint(3)
			alert := models.NewAlert("S1", models.SeverityWarning, "주의", 40, &readingID, now)
			alert.Escalate(models.SeverityCritical, "오염", 10, nil, now)
			Expect(*alert.ReadingID).To(Equal(uint(3)))
		})
	})

	Describe("Resolve", func() {
		It("should mark alert as resolved and set resolved timestamp", func() {
			alert := models.NewAlert("S1", models.SeverityWarning, "주의", 40, nil, now)
			alert.Resolve(now.Add(time.Hour))

			Expect(alert.Resolved).To(BeTrue())
			Expect(alert.ResolvedAt).NotTo(BeNil())
			Expect(*alert.ResolvedAt).To(Equal(now.Add(time.Hour)))
			Expect(alert.IsActive()).To(BeFalse())
		})
	})

	Describe("Forecast", func() {
		It("should round trip the prediction snapshot", func() {
			alert := models.NewAlert("S1", models.SeverityWarning, "주의", 40, nil, now)
			points := []models.PredictionPoint{
				{Date: "2025-03-01", Score: 45, Grade: "나쁨"},
				{Date: "2025-03-02", Score: 40, Grade: "나쁨"},
			}
			alert.SetForecast(points)

			Expect(alert.ForecastPoints()).To(Equal(points))
		})

		It("should clear the snapshot for empty input", func() {
			alert := models.NewAlert("S1", models.SeverityWarning, "주의", 40, nil, now)
			alert.SetForecast(nil)
			Expect(alert.Forecast).To(BeNil())
			Expect(alert.ForecastPoints()).To(BeNil())
		})
	})

	Describe("Clone", func() {
		It("should not share pointers with the original", func() {
			sent := now
			alert := models.NewAlert("S1", models.SeverityWarning, "주의", 40, nil, now)
			alert.NotificationSentAt = &sent

			clone := alert.Clone()
			*clone.NotificationSentAt = now.Add(time.Hour)

			Expect(*alert.NotificationSentAt).To(Equal(now))
			Expect(clone.ID).To(Equal(alert.ID))
		})
	})
})
