package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/apperr"
	"github.com/aqua-monitor/aqua-alert/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrActiveAlertExists is returned when a second unresolved alert is created for a device
var ErrActiveAlertExists = errors.New("device already has an unresolved alert")

// DispatchRef identifies an alert row at the version a sweep selected it
type DispatchRef struct {
	ID      uuid.UUID
	Version int
}

// RefsOf builds dispatch refs for the selected alerts
func RefsOf(alerts []*models.Alert) []DispatchRef {
	refs := make([]DispatchRef, 0, len(alerts))
	for _, a := range alerts {
		refs = append(refs, DispatchRef{ID: a.ID, Version: a.Version})
	}
	return refs
}

// AlertRepo interface for alert storage
type AlertRepo interface {
	// FindActive returns the unresolved alert of a device, or nil
	FindActive(ctx context.Context, deviceID string) (*models.Alert, error)
	Create(ctx context.Context, alert *models.Alert) error
	// Update writes the alert if its version is unchanged and bumps the version.
	// Returns apperr.ErrStaleAlert when another writer got there first.
	Update(ctx context.Context, alert *models.Alert) error
	// FindUndispatched returns unresolved alerts of a severity with no notification sent
	FindUndispatched(ctx context.Context, severity models.Severity) ([]*models.Alert, error)
	// MarkDispatched stamps sentAt on every ref still at its selected version.
	// Runs as one batch and returns the number of rows marked.
	MarkDispatched(ctx context.Context, refs []DispatchRef, sentAt time.Time) (int64, error)
	FindUnresolved(ctx context.Context) ([]*models.Alert, error)
	GetRecent(ctx context.Context, limit int) ([]*models.Alert, error)
	CountUndispatched(ctx context.Context, severity models.Severity) (int64, error)
	CountUnresolved(ctx context.Context) (int64, error)
	CountDetectedBetween(ctx context.Context, severity models.Severity, from, to time.Time) (int64, error)
}

// InMemoryAlertRepo stores alerts in memory
type InMemoryAlertRepo struct {
	alerts map[uuid.UUID]*models.Alert
	order  []uuid.UUID
	mu     sync.RWMutex
}

func NewInMemoryAlertRepo() *InMemoryAlertRepo {
	return &InMemoryAlertRepo{
		alerts: make(map[uuid.UUID]*models.Alert),
		order:  make([]uuid.UUID, 0, 64),
	}
}

func (r *InMemoryAlertRepo) FindActive(ctx context.Context, deviceID string) (*models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		a := r.alerts[id]
		if a.DeviceID == deviceID && !a.Resolved {
			return a.Clone(), nil
		}
	}
	return nil, nil
}

func (r *InMemoryAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !alert.Resolved {
		for _, a := range r.alerts {
			if a.DeviceID == alert.DeviceID && !a.Resolved {
				return ErrActiveAlertExists
			}
		}
	}
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.Version == 0 {
		alert.Version = 1
	}
	r.alerts[alert.ID] = alert.Clone()
	r.order = append(r.order, alert.ID)
	return nil
}

func (r *InMemoryAlertRepo) Update(ctx context.Context, alert *models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.alerts[alert.ID]
	if !ok || stored.Version != alert.Version {
		return apperr.ErrStaleAlert
	}
	alert.Version++
	r.alerts[alert.ID] = alert.Clone()
	return nil
}

func (r *InMemoryAlertRepo) FindUndispatched(ctx context.Context, severity models.Severity) ([]*models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Alert
	for _, id := range r.order {
		a := r.alerts[id]
		if a.Severity == severity && a.NotificationSentAt == nil && !a.Resolved {
			result = append(result, a.Clone())
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DetectedAt.Before(result[j].DetectedAt)
	})
	return result, nil
}

func (r *InMemoryAlertRepo) MarkDispatched(ctx context.Context, refs []DispatchRef, sentAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var marked int64
	for _, ref := range refs {
		a, ok := r.alerts[ref.ID]
		if !ok || a.Version != ref.Version || a.NotificationSentAt != nil || a.Resolved {
			continue
		}
		ts := sentAt
		a.NotificationSentAt = &ts
		a.Version++
		a.UpdatedAt = sentAt
		marked++
	}
	return marked, nil
}

func (r *InMemoryAlertRepo) FindUnresolved(ctx context.Context) ([]*models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Alert
	for _, id := range r.order {
		if a := r.alerts[id]; !a.Resolved {
			result = append(result, a.Clone())
		}
	}
	return result, nil
}

func (r *InMemoryAlertRepo) GetRecent(ctx context.Context, limit int) ([]*models.Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Alert, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.alerts[id].Clone())
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DetectedAt.After(result[j].DetectedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *InMemoryAlertRepo) CountUndispatched(ctx context.Context, severity models.Severity) (int64, error) {
	alerts, err := r.FindUndispatched(ctx, severity)
	return int64(len(alerts)), err
}

func (r *InMemoryAlertRepo) CountUnresolved(ctx context.Context) (int64, error) {
	alerts, err := r.FindUnresolved(ctx)
	return int64(len(alerts)), err
}

func (r *InMemoryAlertRepo) CountDetectedBetween(ctx context.Context, severity models.Severity, from, to time.Time) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := int64(0)
	for _, a := range r.alerts {
		if a.Severity == severity && !a.DetectedAt.Before(from) && a.DetectedAt.Before(to) {
			count++
		}
	}
	return count, nil
}

// GormAlertRepo stores alerts through gorm (PostgreSQL or SQLite)
type GormAlertRepo struct {
	db *gorm.DB
}

func NewGormAlertRepo(db *gorm.DB) *GormAlertRepo {
	return &GormAlertRepo{db: db}
}

func (r *GormAlertRepo) FindActive(ctx context.Context, deviceID string) (*models.Alert, error) {
	var alert models.Alert
	err := r.db.WithContext(ctx).
		Where("device_id = ? AND resolved = ?", deviceID, false).
		Order("detected_at DESC").
		First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.NewPersistenceError("find active alert", err)
	}
	return &alert, nil
}

func (r *GormAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	if alert.ID == uuid.Nil {
		alert.ID = uuid.New()
	}
	if alert.Version == 0 {
		alert.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(alert).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrActiveAlertExists
		}
		return apperr.NewPersistenceError("create alert", err)
	}
	return nil
}

func (r *GormAlertRepo) Update(ctx context.Context, alert *models.Alert) error {
	res := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("id = ? AND version = ?", alert.ID, alert.Version).
		Updates(map[string]interface{}{
			"severity":             alert.Severity,
			"prediction_label":     alert.PredictionLabel,
			"score":                alert.Score,
			"reading_id":           alert.ReadingID,
			"forecast":             alert.Forecast,
			"detected_at":          alert.DetectedAt,
			"notification_sent_at": alert.NotificationSentAt,
			"resolved_at":          alert.ResolvedAt,
			"resolved":             alert.Resolved,
			"version":              alert.Version + 1,
			"updated_at":           alert.UpdatedAt,
		})
	if res.Error != nil {
		return apperr.NewPersistenceError("update alert", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrStaleAlert
	}
	alert.Version++
	return nil
}

func (r *GormAlertRepo) FindUndispatched(ctx context.Context, severity models.Severity) ([]*models.Alert, error) {
	var alerts []*models.Alert
	err := r.db.WithContext(ctx).
		Where("severity = ? AND notification_sent_at IS NULL AND resolved = ?", severity, false).
		Order("detected_at ASC").
		Find(&alerts).Error
	if err != nil {
		return nil, apperr.NewPersistenceError("find undispatched alerts", err)
	}
	return alerts, nil
}

func (r *GormAlertRepo) MarkDispatched(ctx context.Context, refs []DispatchRef, sentAt time.Time) (int64, error) {
	if len(refs) == 0 {
		return 0, nil
	}

	var marked int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ref := range refs {
			res := tx.Model(&models.Alert{}).
				Where("id = ? AND version = ? AND notification_sent_at IS NULL AND resolved = ?", ref.ID, ref.Version, false).
				Updates(map[string]interface{}{
					"notification_sent_at": sentAt,
					"version":              gorm.Expr("version + 1"),
					"updated_at":           sentAt,
				})
			if res.Error != nil {
				return res.Error
			}
			marked += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, apperr.NewPersistenceError("mark alerts dispatched", err)
	}
	return marked, nil
}

func (r *GormAlertRepo) FindUnresolved(ctx context.Context) ([]*models.Alert, error) {
	var alerts []*models.Alert
	err := r.db.WithContext(ctx).
		Where("resolved = ?", false).
		Order("detected_at DESC").
		Find(&alerts).Error
	if err != nil {
		return nil, apperr.NewPersistenceError("find unresolved alerts", err)
	}
	return alerts, nil
}

func (r *GormAlertRepo) GetRecent(ctx context.Context, limit int) ([]*models.Alert, error) {
	var alerts []*models.Alert
	err := r.db.WithContext(ctx).
		Order("detected_at DESC").
		Limit(limit).
		Find(&alerts).Error
	if err != nil {
		return nil, apperr.NewPersistenceError("get recent alerts", err)
	}
	return alerts, nil
}

func (r *GormAlertRepo) CountUndispatched(ctx context.Context, severity models.Severity) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("severity = ? AND notification_sent_at IS NULL AND resolved = ?", severity, false).
		Count(&count).Error
	return count, apperr.NewPersistenceError("count undispatched alerts", err)
}

func (r *GormAlertRepo) CountUnresolved(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("resolved = ?", false).
		Count(&count).Error
	return count, apperr.NewPersistenceError("count unresolved alerts", err)
}

func (r *GormAlertRepo) CountDetectedBetween(ctx context.Context, severity models.Severity, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("severity = ? AND detected_at >= ? AND detected_at < ?", severity, from, to).
		Count(&count).Error
	return count, apperr.NewPersistenceError("count detected alerts", err)
}
