package models_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aqua-monitor/aqua-alert/internal/models"
)

var _ = Describe("Severity", func() {
	DescribeTable("SeverityFromScore",
		func(score float64, expected models.Severity) {
			Expect(models.SeverityFromScore(score)).To(Equal(expected))
		},
		Entry("zero", 0.0, models.SeverityCritical),
		Entry("critical boundary", 25.0, models.SeverityCritical),
		Entry("just above critical", 25.01, models.SeverityWarning),
		Entry("warning boundary", 50.0, models.SeverityWarning),
		Entry("just above warning", 50.01, models.SeverityNone),
		Entry("clean water", 90.0, models.SeverityNone),
	)

	DescribeTable("ParseSeverity",
		func(input string, expected models.Severity) {
			s, err := models.ParseSeverity(input)
			Expect(err).NotTo(HaveOccurred())
			Expect(s).To(Equal(expected))
		},
		Entry("lower warning", "warning", models.SeverityWarning),
		Entry("upper critical", "CRITICAL", models.SeverityCritical),
		Entry("normal alias", "normal", models.SeverityNone),
	)

	It("should reject unknown severities", func() {
		_, err := models.ParseSeverity("urgent")
		Expect(err).To(HaveOccurred())
	})

	It("should order severities by rank", func() {
		Expect(models.SeverityCritical.Rank()).To(BeNumerically(">", models.SeverityWarning.Rank()))
		Expect(models.SeverityWarning.Rank()).To(BeNumerically(">", models.SeverityNone.Rank()))
		Expect(models.SeverityNone.IsAbnormal()).To(BeFalse())
		Expect(models.SeverityWarning.IsAbnormal()).To(BeTrue())
	})

	It("should map labels and alert levels", func() {
		Expect(models.SeverityCritical.Label()).To(Equal("오염"))
		Expect(models.SeverityWarning.Label()).To(Equal("주의"))
		Expect(models.SeverityNone.Label()).To(Equal("정상"))
		Expect(models.SeverityNone.AlertLevel()).To(Equal("NORMAL"))
		Expect(models.SeverityCritical.AlertLevel()).To(Equal("CRITICAL"))
	})
})
