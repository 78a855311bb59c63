package models_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
	"github.com/aqua-monitor/aqua-alert/internal/models"
)

var _ = Describe("Reading", func() {
	It("should accept a reading with a core metric", func() {
		r := &models.Reading{DeviceID: "S1", PH: models.Float(7.2)}
		Expect(r.Validate()).To(Succeed())
	})

	It("should accept negative water temperature", func() {
		r := &models.Reading{DeviceID: "S1", DO: models.Float(9), Temperature: models.Float(-0.5)}
		Expect(r.Validate()).To(Succeed())
	})

	DescribeTable("rejections",
		func(r *models.Reading, field string) {
			err := r.Validate()
			Expect(err).To(HaveOccurred())
			Expect(apperr.IsValidation(err)).To(BeTrue())
			Expect(err.(*apperr.ValidationError).Field).To(Equal(field))
		},
		Entry("missing device id", &models.Reading{PH: models.Float(7)}, "deviceId"),
		Entry("no core metric", &models.Reading{DeviceID: "S1", Temperature: models.Float(10)}, ""),
		Entry("ph above 14", &models.Reading{DeviceID: "S1", PH: models.Float(14.5)}, "ph"),
		Entry("negative bod", &models.Reading{DeviceID: "S1", BOD: models.Float(-1)}, "bod"),
		Entry("nan cod", &models.Reading{DeviceID: "S1", COD: models.Float(math.NaN())}, "cod"),
		Entry("infinite ec", &models.Reading{DeviceID: "S1", PH: models.Float(7), EC: models.Float(math.Inf(1))}, "ec"),
	)

	It("should distinguish absent metrics", func() {
		v, ok := models.Value(nil)
		Expect(ok).To(BeFalse())
		Expect(v).To(BeZero())

		v, ok = models.Value(models.Float(0))
		Expect(ok).To(BeTrue())
		Expect(v).To(BeZero())
	})
})
