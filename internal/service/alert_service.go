package service

import (
	"context"
	"time"

	"github.com/aqua-monitor/aqua-alert/internal/models"
	"github.com/aqua-monitor/aqua-alert/internal/repository"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 1000
	detectionWindow    = 24 * time.Hour
)

// SeverityCounts holds counts for each alerting severity
type SeverityCounts struct {
	Warning  int64 `json:"warning"`
	Critical int64 `json:"critical"`
	Total    int64 `json:"total"`
}

// DispatchStatus summarizes what the batch notifier still has to send
type DispatchStatus struct {
	Pending       SeverityCounts       `json:"pending"`
	Unresolved    int64                `json:"unresolved"`
	DetectedToday SeverityCounts       `json:"detectedLast24h"`
	NextRuns      map[string]time.Time `json:"nextRuns,omitempty"`
	GeneratedAt   time.Time            `json:"generatedAt"`
}

// ScheduleInspector reports the next scheduled sweep per severity
type ScheduleInspector interface {
	NextRuns() map[models.Severity]time.Time
}

// AlertService handles alert queries for the HTTP surface
type AlertService interface {
	GetActiveAlerts(ctx context.Context) ([]*models.Alert, error)
	GetRecentAlerts(ctx context.Context, limit int) ([]*models.Alert, error)
	GetPendingCounts(ctx context.Context) (*SeverityCounts, error)
	GetDispatchStatus(ctx context.Context) (*DispatchStatus, error)
}

type alertService struct {
	repo     repository.AlertRepo
	schedule ScheduleInspector
	now      func() time.Time
}

// NewAlertService creates a new alert service. schedule may be nil.
func NewAlertService(repo repository.AlertRepo, schedule ScheduleInspector) AlertService {
	return &alertService{
		repo:     repo,
		schedule: schedule,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *alertService) GetActiveAlerts(ctx context.Context) ([]*models.Alert, error) {
	return s.repo.FindUnresolved(ctx)
}

func (s *alertService) GetRecentAlerts(ctx context.Context, limit int) ([]*models.Alert, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	return s.repo.GetRecent(ctx, limit)
}

func (s *alertService) GetPendingCounts(ctx context.Context) (*SeverityCounts, error) {
	warning, err := s.repo.CountUndispatched(ctx, models.SeverityWarning)
	if err != nil {
		return nil, err
	}
	critical, err := s.repo.CountUndispatched(ctx, models.SeverityCritical)
	if err != nil {
		return nil, err
	}
	return &SeverityCounts{Warning: warning, Critical: critical, Total: warning + critical}, nil
}

func (s *alertService) GetDispatchStatus(ctx context.Context) (*DispatchStatus, error) {
	pending, err := s.GetPendingCounts(ctx)
	if err != nil {
		return nil, err
	}
	unresolved, err := s.repo.CountUnresolved(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	from := now.Add(-detectionWindow)
	warning, err := s.repo.CountDetectedBetween(ctx, models.SeverityWarning, from, now)
	if err != nil {
		return nil, err
	}
	critical, err := s.repo.CountDetectedBetween(ctx, models.SeverityCritical, from, now)
	if err != nil {
		return nil, err
	}

	status := &DispatchStatus{
		Pending:       *pending,
		Unresolved:    unresolved,
		DetectedToday: SeverityCounts{Warning: warning, Critical: critical, Total: warning + critical},
		GeneratedAt:   now,
	}
	if s.schedule != nil {
		runs := s.schedule.NextRuns()
		status.NextRuns = make(map[string]time.Time, len(runs))
		for sev, at := range runs {
			status.NextRuns[sev.String()] = at
		}
	}
	return status, nil
}
