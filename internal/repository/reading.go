package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
	"github.com/aqua-monitor/aqua-alert/internal/models"
	"gorm.io/gorm"
)

// ReadingRepo interface for sensor readings
type ReadingRepo interface {
	Save(ctx context.Context, reading *models.Reading) error
	// FindByIDs fetches several readings at once, keyed by id
	FindByIDs(ctx context.Context, ids []uint) (map[uint]*models.Reading, error)
	// FindLatest returns the most recently measured reading of a device, or nil
	FindLatest(ctx context.Context, deviceID string) (*models.Reading, error)
}

// InMemoryReadingRepo stores readings in memory
type InMemoryReadingRepo struct {
	readings []*models.Reading
	nextID   uint
	mu       sync.RWMutex
}

func NewInMemoryReadingRepo() *InMemoryReadingRepo {
	return &InMemoryReadingRepo{
		readings: make([]*models.Reading, 0, 256),
		nextID:   1,
	}
}

func (r *InMemoryReadingRepo) Save(ctx context.Context, reading *models.Reading) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reading.ID = r.nextID
	r.nextID++
	c := *reading
	r.readings = append(r.readings, &c)
	return nil
}

func (r *InMemoryReadingRepo) FindByIDs(ctx context.Context, ids []uint) (map[uint]*models.Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	result := make(map[uint]*models.Reading, len(ids))
	for _, reading := range r.readings {
		if _, ok := wanted[reading.ID]; ok {
			c := *reading
			result[reading.ID] = &c
		}
	}
	return result, nil
}

func (r *InMemoryReadingRepo) FindLatest(ctx context.Context, deviceID string) (*models.Reading, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *models.Reading
	for _, reading := range r.readings {
		if reading.DeviceID != deviceID {
			continue
		}
		if latest == nil || !reading.MeasuredAt.Before(latest.MeasuredAt) {
			latest = reading
		}
	}
	if latest == nil {
		return nil, nil
	}
	c := *latest
	return &c, nil
}

// GormReadingRepo stores readings through gorm
type GormReadingRepo struct {
	db *gorm.DB
}

func NewGormReadingRepo(db *gorm.DB) *GormReadingRepo {
	return &GormReadingRepo{db: db}
}

func (r *GormReadingRepo) Save(ctx context.Context, reading *models.Reading) error {
	return apperr.NewPersistenceError("save reading", r.db.WithContext(ctx).Create(reading).Error)
}

func (r *GormReadingRepo) FindByIDs(ctx context.Context, ids []uint) (map[uint]*models.Reading, error) {
	result := make(map[uint]*models.Reading, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var readings []*models.Reading
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&readings).Error; err != nil {
		return nil, apperr.NewPersistenceError("find readings", err)
	}
	for _, reading := range readings {
		result[reading.ID] = reading
	}
	return result, nil
}

func (r *GormReadingRepo) FindLatest(ctx context.Context, deviceID string) (*models.Reading, error) {
	var reading models.Reading
	err := r.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("measured_at DESC").
		Order("id DESC").
		First(&reading).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.NewPersistenceError("find latest reading", err)
	}
	return &reading, nil
}
