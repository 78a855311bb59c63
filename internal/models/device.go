package models

import (
	"fmt"
	"strings"
	"time"
)

// UnknownLocation is the placeholder location of auto-registered devices
const UnknownLocation = "unknown"

// Device holds sensor metadata
type Device struct {
	DeviceID  string    `gorm:"type:varchar(100);primaryKey" json:"deviceId"`
	Name      string    `gorm:"type:varchar(200)" json:"name"`
	Waterbody string    `gorm:"type:varchar(200)" json:"waterbody"`
	Location  string    `gorm:"type:varchar(500);not null;default:'unknown'" json:"location"`
	Latitude  float64   `gorm:"type:double precision" json:"latitude"`
	Longitude float64   `gorm:"type:double precision" json:"longitude"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// TableName specifies the table name for GORM
func (Device) TableName() string {
	return "devices"
}

// NewDevice creates the record registered on a device's first reading
func NewDevice(deviceID string) *Device {
	return &Device{
		DeviceID: deviceID,
		Location: UnknownLocation,
	}
}

// Grouping resolves the waterbody label used for prediction requests:
// explicit waterbody, the name prefix before the first "-", the name, the device id.
func (d *Device) Grouping() string {
	if d == nil {
		return ""
	}
	if w := strings.TrimSpace(d.Waterbody); w != "" {
		return w
	}
	name := strings.TrimSpace(d.Name)
	if name != "" {
		if i := strings.Index(name, "-"); i > 0 {
			return name[:i]
		}
		return name
	}
	return d.DeviceID
}

// DisplayLocation describes where the device is for notifications
func (d *Device) DisplayLocation() string {
	if d == nil {
		return "location unavailable"
	}
	if loc := strings.TrimSpace(d.Location); loc != "" && !strings.EqualFold(loc, UnknownLocation) {
		return loc
	}
	if name := strings.TrimSpace(d.Name); name != "" {
		return name
	}
	return fmt.Sprintf("Sensor %s (lat: %.4f, lon: %.4f)", d.DeviceID, d.Latitude, d.Longitude)
}
