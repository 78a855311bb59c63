package service_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/aqua-monitor/aqua-alert/internal/models"
	"github.com/aqua-monitor/aqua-alert/internal/repository"
	"github.com/aqua-monitor/aqua-alert/internal/service"
)

// MockAlertRepo overrides the query methods of an in-memory repo
type MockAlertRepo struct {
	*repository.InMemoryAlertRepo
	GetRecentFunc         func(ctx context.Context, limit int) ([]*models.Alert, error)
	CountUndispatchedFunc func(ctx context.Context, severity models.Severity) (int64, error)
}

func (m *MockAlertRepo) GetRecent(ctx context.Context, limit int) ([]*models.Alert, error) {
	if m.GetRecentFunc != nil {
		return m.GetRecentFunc(ctx, limit)
	}
	return m.InMemoryAlertRepo.GetRecent(ctx, limit)
}

func (m *MockAlertRepo) CountUndispatched(ctx context.Context, severity models.Severity) (int64, error) {
	if m.CountUndispatchedFunc != nil {
		return m.CountUndispatchedFunc(ctx, severity)
	}
	return m.InMemoryAlertRepo.CountUndispatched(ctx, severity)
}

type fixedSchedule map[models.Severity]time.Time

func (f fixedSchedule) NextRuns() map[models.Severity]time.Time { return f }

var _ = Describe("AlertService", func() {
	var (
		mockRepo     *MockAlertRepo
		alertService service.AlertService
		ctx          context.Context
		now          time.Time
	)

	seed := func(deviceID string, severity models.Severity, detectedAt time.Time) *models.Alert {
		alert := models.NewAlert(deviceID, severity, severity.Label(), 40, nil, detectedAt)
		Expect(mockRepo.Create(ctx, alert)).To(Succeed())
		return alert
	}

	BeforeEach(func() {
		mockRepo = &MockAlertRepo{InMemoryAlertRepo: repository.NewInMemoryAlertRepo()}
		alertService = service.NewAlertService(mockRepo, nil)
		ctx = context.Background()
		now = time.Now().UTC()
	})

	Describe("GetActiveAlerts", func() {
		It("should return only unresolved alerts", func() {
			seed("S1", models.SeverityWarning, now.Add(-time.Hour))
			resolved := seed("S2", models.SeverityCritical, now.Add(-time.Hour))
			resolved.Resolve(now)
			Expect(mockRepo.Update(ctx, resolved)).To(Succeed())

			alerts, err := alertService.GetActiveAlerts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(alerts).To(HaveLen(1))
			Expect(alerts[0].DeviceID).To(Equal("S1"))
		})
	})

	Describe("GetRecentAlerts", func() {
		Context("with valid limit", func() {
			It("should pass the limit through", func() {
				mockRepo.GetRecentFunc = func(ctx context.Context, limit int) ([]*models.Alert, error) {
					Expect(limit).To(Equal(10))
					return []*models.Alert{}, nil
				}

				_, err := alertService.GetRecentAlerts(ctx, 10)
				Expect(err).NotTo(HaveOccurred())
			})
		})

		Context("with limit too low", func() {
			It("should default to 50", func() {
				mockRepo.GetRecentFunc = func(ctx context.Context, limit int) ([]*models.Alert, error) {
					Expect(limit).To(Equal(50))
					return []*models.Alert{}, nil
				}

				_, err := alertService.GetRecentAlerts(ctx, 0)
				Expect(err).NotTo(HaveOccurred())
				_, err = alertService.GetRecentAlerts(ctx, -5)
				Expect(err).NotTo(HaveOccurred())
			})
		})

		Context("with limit too high", func() {
			It("should cap at 1000", func() {
				mockRepo.GetRecentFunc = func(ctx context.Context, limit int) ([]*models.Alert, error) {
					Expect(limit).To(Equal(1000))
					return []*models.Alert{}, nil
				}

				_, err := alertService.GetRecentAlerts(ctx, 2000)
				Expect(err).NotTo(HaveOccurred())
			})
		})

		Context("when repository returns an error", func() {
			It("should return the error", func() {
				expectedErr := errors.New("database error")
				mockRepo.GetRecentFunc = func(ctx context.Context, limit int) ([]*models.Alert, error) {
					return nil, expectedErr
				}

				_, err := alertService.GetRecentAlerts(ctx, 10)
				Expect(err).To(MatchError(expectedErr))
			})
		})
	})

	Describe("GetPendingCounts", func() {
		It("should count undispatched alerts per severity", func() {
			seed("S1", models.SeverityWarning, now.Add(-time.Minute))
			seed("S2", models.SeverityWarning, now.Add(-time.Minute))
			seed("S3", models.SeverityCritical, now.Add(-time.Minute))

			counts, err := alertService.GetPendingCounts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(*counts).To(Equal(service.SeverityCounts{Warning: 2, Critical: 1, Total: 3}))
		})

		It("should return repository errors", func() {
			expectedErr := errors.New("database error")
			mockRepo.CountUndispatchedFunc = func(ctx context.Context, severity models.Severity) (int64, error) {
				return 0, expectedErr
			}

			_, err := alertService.GetPendingCounts(ctx)
			Expect(err).To(MatchError(expectedErr))
		})
	})

	Describe("GetDispatchStatus", func() {
		It("should combine pending, unresolved and last day detections", func() {
			seed("S1", models.SeverityWarning, now.Add(-time.Hour))
			seed("S2", models.SeverityCritical, now.Add(-48*time.Hour))
			sent := seed("S3", models.SeverityCritical, now.Add(-2*time.Hour))
			_, err := mockRepo.MarkDispatched(ctx, repository.RefsOf([]*models.Alert{sent}), now)
			Expect(err).NotTo(HaveOccurred())

			status, err := alertService.GetDispatchStatus(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.Pending).To(Equal(service.SeverityCounts{Warning: 1, Critical: 1, Total: 2}))
			Expect(status.Unresolved).To(Equal(int64(3)))
			Expect(status.DetectedToday).To(Equal(service.SeverityCounts{Warning: 1, Critical: 1, Total: 2}))
			Expect(status.NextRuns).To(BeNil())
		})

		It("should include next scheduled runs", func() {
			next := now.Add(5 * time.Minute)
			alertService = service.NewAlertService(mockRepo, fixedSchedule{models.SeverityCritical: next})

			status, err := alertService.GetDispatchStatus(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(status.NextRuns).To(HaveKeyWithValue("CRITICAL", next))
		})
	})
})
