package models_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aqua-monitor/aqua-alert/internal/models"
)

var _ = Describe("Device", func() {
	It("should register with an unknown location", func() {
		d := models.NewDevice("S1")
		Expect(d.DeviceID).To(Equal("S1"))
		Expect(d.Location).To(Equal(models.UnknownLocation))
		Expect(d.Name).To(BeEmpty())
	})

	DescribeTable("Grouping",
		func(d *models.Device, expected string) {
			Expect(d.Grouping()).To(Equal(expected))
		},
		Entry("explicit waterbody", &models.Device{DeviceID: "S1", Name: "Han-Seoul", Waterbody: "Nakdong"}, "Nakdong"),
		Entry("name prefix", &models.Device{DeviceID: "S1", Name: "Han-Seoul"}, "Han"),
		Entry("name without dash", &models.Device{DeviceID: "S1", Name: "Geum"}, "Geum"),
		Entry("leading dash keeps name", &models.Device{DeviceID: "S1", Name: "-odd"}, "-odd"),
		Entry("device id fallback", &models.Device{DeviceID: "S1"}, "S1"),
	)

	DescribeTable("DisplayLocation",
		func(d *models.Device, expected string) {
			Expect(d.DisplayLocation()).To(Equal(expected))
		},
		Entry("location", &models.Device{DeviceID: "S1", Location: "Seoul bridge 3"}, "Seoul bridge 3"),
		Entry("unknown location uses name", &models.Device{DeviceID: "S1", Location: "unknown", Name: "Han-Seoul"}, "Han-Seoul"),
		Entry("coordinates", &models.Device{DeviceID: "S1", Location: "UNKNOWN", Latitude: 37.5665, Longitude: 126.978}, "Sensor S1 (lat: 37.5665, lon: 126.9780)"),
		Entry("no device", (*models.Device)(nil), "location unavailable"),
	)
})
