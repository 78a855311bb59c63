package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
	"github.com/aqua-monitor/aqua-alert/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceRepo interface for device metadata
type DeviceRepo interface {
	// FindOrCreate returns the device, registering it on first sight
	FindOrCreate(ctx context.Context, deviceID string) (*models.Device, error)
	// FindByDeviceID returns the device, or nil when unknown
	FindByDeviceID(ctx context.Context, deviceID string) (*models.Device, error)
	// FindByDeviceIDs fetches several devices at once, keyed by device id
	FindByDeviceIDs(ctx context.Context, deviceIDs []string) (map[string]*models.Device, error)
	Save(ctx context.Context, device *models.Device) error
}

// InMemoryDeviceRepo stores devices in memory
type InMemoryDeviceRepo struct {
	devices map[string]*models.Device
	mu      sync.RWMutex
}

func NewInMemoryDeviceRepo() *InMemoryDeviceRepo {
	return &InMemoryDeviceRepo{devices: make(map[string]*models.Device)}
}

func (r *InMemoryDeviceRepo) FindOrCreate(ctx context.Context, deviceID string) (*models.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if d, ok := r.devices[deviceID]; ok {
		c := *d
		return &c, nil
	}
	d := models.NewDevice(deviceID)
	r.devices[deviceID] = d
	c := *d
	return &c, nil
}

func (r *InMemoryDeviceRepo) FindByDeviceID(ctx context.Context, deviceID string) (*models.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.devices[deviceID]; ok {
		c := *d
		return &c, nil
	}
	return nil, nil
}

func (r *InMemoryDeviceRepo) FindByDeviceIDs(ctx context.Context, deviceIDs []string) (map[string]*models.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*models.Device, len(deviceIDs))
	for _, id := range deviceIDs {
		if d, ok := r.devices[id]; ok {
			c := *d
			result[id] = &c
		}
	}
	return result, nil
}

func (r *InMemoryDeviceRepo) Save(ctx context.Context, device *models.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := *device
	r.devices[device.DeviceID] = &c
	return nil
}

// GormDeviceRepo stores devices through gorm
type GormDeviceRepo struct {
	db *gorm.DB
}

func NewGormDeviceRepo(db *gorm.DB) *GormDeviceRepo {
	return &GormDeviceRepo{db: db}
}

func (r *GormDeviceRepo) FindOrCreate(ctx context.Context, deviceID string) (*models.Device, error) {
	device := models.NewDevice(deviceID)
	// concurrent first readings of one device race on the insert, the loser reads the winner's row
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(device).Error
	if err != nil {
		return nil, apperr.NewPersistenceError("register device", err)
	}

	var stored models.Device
	if err := r.db.WithContext(ctx).First(&stored, "device_id = ?", deviceID).Error; err != nil {
		return nil, apperr.NewPersistenceError("find device", err)
	}
	return &stored, nil
}

func (r *GormDeviceRepo) FindByDeviceID(ctx context.Context, deviceID string) (*models.Device, error) {
	var device models.Device
	err := r.db.WithContext(ctx).First(&device, "device_id = ?", deviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.NewPersistenceError("find device", err)
	}
	return &device, nil
}

func (r *GormDeviceRepo) FindByDeviceIDs(ctx context.Context, deviceIDs []string) (map[string]*models.Device, error) {
	result := make(map[string]*models.Device, len(deviceIDs))
	if len(deviceIDs) == 0 {
		return result, nil
	}

	var devices []*models.Device
	if err := r.db.WithContext(ctx).Where("device_id IN ?", deviceIDs).Find(&devices).Error; err != nil {
		return nil, apperr.NewPersistenceError("find devices", err)
	}
	for _, d := range devices {
		result[d.DeviceID] = d
	}
	return result, nil
}

func (r *GormDeviceRepo) Save(ctx context.Context, device *models.Device) error {
	return apperr.NewPersistenceError("save device", r.db.WithContext(ctx).Save(device).Error)
}
