package service

import (
	"context"
	"sync/atomic"
	"time"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/repository"

	"github.com/stretchr/testify/mock"
)

// MockBonusMalusRepo
type MockBonusMalusRepo struct {
	mock.Mock
}

func (m *MockBonusMalusRepo) Get(ctx context.Context, userID string) (*domain.BonusMalusFactor, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BonusMalusFactor), args.Error(1)
}
func (m *MockBonusMalusRepo) Upsert(ctx context.Context, f *domain.BonusMalusFactor) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}
func (m *MockBonusMalusRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]string, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
func (m *MockBonusMalusRepo) Postpone(ctx context.Context, userID string, until time.Time) error {
	args := m.Called(ctx, userID, until)
	return args.Error(0)
}
func (m *MockBonusMalusRepo) ListFactors(ctx context.Context) ([]float64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

// MockMetricsRepo
type MockMetricsRepo struct {
	mock.Mock
}

func (m *MockMetricsRepo) GetMetrics(ctx context.Context, userID string) (*domain.BehavioralMetrics, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BehavioralMetrics), args.Error(1)
}

// MockDriverProfileRepo
type MockDriverProfileRepo struct {
	mock.Mock
}

func (m *MockDriverProfileRepo) GetProfile(ctx context.Context, userID string) (*domain.DriverProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DriverProfile), args.Error(1)
}

// MockRiskSnapshotRepo
type MockRiskSnapshotRepo struct {
	mock.Mock
}

func (m *MockRiskSnapshotRepo) Save(ctx context.Context, s *domain.RiskSnapshot) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}
func (m *MockRiskSnapshotRepo) GetLatestByBookingID(ctx context.Context, bookingID string) (*domain.RiskSnapshot, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RiskSnapshot), args.Error(1)
}

// MockRiskCalculator
type MockRiskCalculator struct {
	mock.Mock
}

func (m *MockRiskCalculator) CalculateRisk(ctx context.Context, in domain.RiskInput) (*domain.RiskCalculation, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RiskCalculation), args.Error(1)
}

// MockNotificationService
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) Notify(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}
func (m *MockNotificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, page, pageSize)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendEmail(ctx context.Context, to, toName, subject, plainText, htmlContent string) error {
	args := m.Called(ctx, to, toName, subject, plainText, htmlContent)
	return args.Error(0)
}

// MockRateSource
type MockRateSource struct {
	mock.Mock
}

func (m *MockRateSource) GetRate(ctx context.Context, from, to string) (domain.FxQuote, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(domain.FxQuote), args.Error(1)
}

// slowMetricsRepo counts lookups and holds each one long enough for callers to overlap.
type slowMetricsRepo struct {
	metrics domain.BehavioralMetrics
	delay   time.Duration
	calls   atomic.Int32
}

func (r *slowMetricsRepo) GetMetrics(_ context.Context, userID string) (*domain.BehavioralMetrics, error) {
	r.calls.Add(1)
	time.Sleep(r.delay)
	m := r.metrics
	m.UserID = userID
	return &m, nil
}

var _ repository.BehavioralMetricsRepository = (*slowMetricsRepo)(nil)

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}
