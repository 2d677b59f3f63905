package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/repository"
	"vehicle-risk-backend/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	goodMetrics = domain.BehavioralMetrics{
		AverageRating:    4.9,
		CancellationRate: 0.02,
		TotalRentals:     26,
		CompletedRentals: 25,
		IsVerified:       true,
	}
	poorMetrics = domain.BehavioralMetrics{
		AverageRating:    3.2,
		CancellationRate: 0.25,
		TotalRentals:     4,
		CompletedRentals: 2,
	}
)

func TestBonusMalusService_GetOrCompute(t *testing.T) {
	ctx := context.Background()
	opts := BonusMalusOptions{Clock: fixedClock(testNow)}

	t.Run("Empty user id has no data", func(t *testing.T) {
		repo := new(MockBonusMalusRepo)
		svc := NewBonusMalusService(repo, new(MockMetricsRepo), nil, opts)

		assert.Nil(t, svc.GetOrCompute(ctx, ""))
		repo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	})

	t.Run("Fresh row is returned without recomputing", func(t *testing.T) {
		repo := new(MockBonusMalusRepo)
		metricsRepo := new(MockMetricsRepo)
		stored := &domain.BonusMalusFactor{UserID: "u1", TotalFactor: -0.05, NextRecalculationAt: testNow.Add(time.Hour)}
		repo.On("Get", ctx, "u1").Return(stored, nil)

		svc := NewBonusMalusService(repo, metricsRepo, nil, opts)
		assert.Equal(t, stored, svc.GetOrCompute(ctx, "u1"))
		metricsRepo.AssertNotCalled(t, "GetMetrics", mock.Anything, mock.Anything)
	})

	t.Run("Missing row is computed and stored", func(t *testing.T) {
		repo := new(MockBonusMalusRepo)
		metricsRepo := new(MockMetricsRepo)
		m := goodMetrics
		repo.On("Get", mock.Anything, "u1").Return(nil, repository.ErrNotFound)
		metricsRepo.On("GetMetrics", mock.Anything, "u1").Return(&m, nil).Once()
		repo.On("Upsert", mock.Anything, mock.MatchedBy(func(f *domain.BonusMalusFactor) bool {
			return f.UserID == "u1" && f.TotalFactor == -0.13
		})).Return(nil).Once()

		svc := NewBonusMalusService(repo, metricsRepo, nil, opts)
		f := svc.GetOrCompute(ctx, "u1")

		require.NotNil(t, f)
		assert.Equal(t, -0.13, f.TotalFactor)
		assert.Equal(t, -0.05, f.RatingFactor)
		assert.Equal(t, -0.02, f.CancellationFactor)
		assert.Equal(t, -0.03, f.CompletionFactor)
		assert.Equal(t, -0.03, f.VerificationFactor)
		assert.Equal(t, testNow.Add(7*24*time.Hour), f.NextRecalculationAt)
		repo.AssertExpectations(t)
	})

	t.Run("Store read failure is treated as absent", func(t *testing.T) {
		repo := new(MockBonusMalusRepo)
		metricsRepo := new(MockMetricsRepo)
		m := goodMetrics
		repo.On("Get", mock.Anything, "u1").Return(nil, errors.New("connection reset"))
		metricsRepo.On("GetMetrics", mock.Anything, "u1").Return(&m, nil)
		repo.On("Upsert", mock.Anything, mock.Anything).Return(nil)

		svc := NewBonusMalusService(repo, metricsRepo, nil, opts)
		assert.NotNil(t, svc.GetOrCompute(ctx, "u1"))
	})

	t.Run("Metrics failure degrades to no data", func(t *testing.T) {
		repo := new(MockBonusMalusRepo)
		metricsRepo := new(MockMetricsRepo)
		repo.On("Get", mock.Anything, "u1").Return(nil, repository.ErrNotFound)
		metricsRepo.On("GetMetrics", mock.Anything, "u1").Return(nil, errors.New("timeout"))

		svc := NewBonusMalusService(repo, metricsRepo, nil, opts)
		assert.Nil(t, svc.GetOrCompute(ctx, "u1"))
		assert.Equal(t, 0.0, svc.FactorFor(ctx, "u1"))
		repo.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
	})

	t.Run("Write failure degrades to no data", func(t *testing.T) {
		repo := new(MockBonusMalusRepo)
		metricsRepo := new(MockMetricsRepo)
		m := goodMetrics
		repo.On("Get", mock.Anything, "u1").Return(nil, repository.ErrNotFound)
		metricsRepo.On("GetMetrics", mock.Anything, "u1").Return(&m, nil)
		repo.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("read-only transaction"))

		svc := NewBonusMalusService(repo, metricsRepo, nil, opts)
		assert.Nil(t, svc.GetOrCompute(ctx, "u1"))
	})
}

func TestBonusMalusService_ConcurrentFirstComputeRunsOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBonusMalusStore()
	metricsRepo := &slowMetricsRepo{metrics: goodMetrics, delay: 20 * time.Millisecond}
	svc := NewBonusMalusService(store, metricsRepo, nil, BonusMalusOptions{Clock: fixedClock(testNow)})

	const callers = 32
	results := make([]*domain.BonusMalusFactor, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = svc.GetOrCompute(ctx, "u1")
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), metricsRepo.calls.Load())
	assert.Equal(t, 1, store.Upserts())
	assert.Equal(t, 1, store.Len())
	for _, f := range results {
		require.NotNil(t, f)
		assert.Equal(t, -0.13, f.TotalFactor)
	}
}

func TestBonusMalusService_NotifiesOnTypeChange(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBonusMalusStore()
	metricsRepo := new(MockMetricsRepo)
	notifier := new(MockNotificationService)

	created := testNow.Add(-30 * 24 * time.Hour)
	require.NoError(t, store.Upsert(ctx, &domain.BonusMalusFactor{
		UserID: "u1", TotalFactor: 0.2, CreatedAt: created, NextRecalculationAt: testNow.Add(-time.Hour),
	}))

	m := goodMetrics
	metricsRepo.On("GetMetrics", mock.Anything, "u1").Return(&m, nil)
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n *domain.Notification) bool {
		return n.UserID == "u1" && n.Attributes["previous_type"] == "MALUS" && n.Attributes["type"] == "BONUS"
	})).Return(nil).Once()

	svc := NewBonusMalusService(store, metricsRepo, notifier, BonusMalusOptions{Clock: fixedClock(testNow)})
	f := svc.GetOrCompute(ctx, "u1")

	require.NotNil(t, f)
	assert.Equal(t, created, f.CreatedAt)
	notifier.AssertExpectations(t)
}

func TestBonusMalusService_NoNotificationWhenTypeUnchanged(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBonusMalusStore()
	metricsRepo := new(MockMetricsRepo)
	notifier := new(MockNotificationService)

	require.NoError(t, store.Upsert(ctx, &domain.BonusMalusFactor{UserID: "u1", TotalFactor: -0.08, NextRecalculationAt: testNow.Add(-time.Hour)}))
	m := goodMetrics
	metricsRepo.On("GetMetrics", mock.Anything, "u1").Return(&m, nil)

	svc := NewBonusMalusService(store, metricsRepo, notifier, BonusMalusOptions{Clock: fixedClock(testNow)})
	_, err := svc.Recalculate(ctx, "u1")

	require.NoError(t, err)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestBonusMalusService_RecalculateDue(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBonusMalusStore()
	profiles := memory.NewProfileStore()

	stale := testNow.Add(-time.Minute)
	require.NoError(t, store.Upsert(ctx, &domain.BonusMalusFactor{UserID: "a", NextRecalculationAt: stale}))
	require.NoError(t, store.Upsert(ctx, &domain.BonusMalusFactor{UserID: "b", NextRecalculationAt: stale}))
	require.NoError(t, store.Upsert(ctx, &domain.BonusMalusFactor{UserID: "c", NextRecalculationAt: testNow.Add(time.Hour)}))

	a := poorMetrics
	a.UserID = "a"
	profiles.PutMetrics(a)

	svc := NewBonusMalusService(store, profiles, nil, BonusMalusOptions{Clock: fixedClock(testNow), BatchSize: 10})
	updated, err := svc.RecalculateDue(ctx)

	require.NoError(t, err)
	assert.Equal(t, 1, updated, "b has no metrics and is skipped")

	f, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 0.2, f.TotalFactor)
	assert.Equal(t, testNow.Add(7*24*time.Hour), f.NextRecalculationAt)

	skipped, err := store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(24*time.Hour), skipped.NextRecalculationAt, "failed rows retry a day later")
}

func TestBonusMalusService_RecalculateDue_FailuresDoNotStarveBatch(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBonusMalusStore()
	profiles := memory.NewProfileStore()

	// Two rows without metrics hold the oldest leases and fill a whole batch.
	require.NoError(t, store.Upsert(ctx, &domain.BonusMalusFactor{UserID: "broken-1", NextRecalculationAt: testNow.Add(-3 * time.Hour)}))
	require.NoError(t, store.Upsert(ctx, &domain.BonusMalusFactor{UserID: "broken-2", NextRecalculationAt: testNow.Add(-2 * time.Hour)}))
	require.NoError(t, store.Upsert(ctx, &domain.BonusMalusFactor{UserID: "healthy", NextRecalculationAt: testNow.Add(-time.Hour)}))
	m := goodMetrics
	m.UserID = "healthy"
	profiles.PutMetrics(m)

	svc := NewBonusMalusService(store, profiles, nil, BonusMalusOptions{Clock: fixedClock(testNow), BatchSize: 2})

	updated, err := svc.RecalculateDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, updated)

	updated, err = svc.RecalculateDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, updated, "the healthy row gets a slot on the next run")

	f, err := store.Get(ctx, "healthy")
	require.NoError(t, err)
	assert.Equal(t, testNow, f.LastCalculatedAt)
}

func TestBonusMalusService_RecalculateDue_PostponeFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	repo := new(MockBonusMalusRepo)
	metricsRepo := new(MockMetricsRepo)

	repo.On("ListDue", ctx, testNow, defaultRecalculationBatch).Return([]string{"u1"}, nil)
	repo.On("Get", mock.Anything, "u1").Return(nil, repository.ErrNotFound)
	metricsRepo.On("GetMetrics", mock.Anything, "u1").Return(nil, errors.New("metrics service down"))
	repo.On("Postpone", ctx, "u1", testNow.Add(failedRecalculationRetry)).Return(errors.New("connection reset"))

	svc := NewBonusMalusService(repo, metricsRepo, nil, BonusMalusOptions{Clock: fixedClock(testNow)})
	updated, err := svc.RecalculateDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
	repo.AssertExpectations(t)
}

func TestBonusMalusService_ApplyToDeposit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBonusMalusStore()
	profiles := memory.NewProfileStore()

	elite := goodMetrics
	elite.UserID = "elite"
	profiles.PutMetrics(elite)

	trusted := goodMetrics
	trusted.UserID = "trusted"
	trusted.AverageRating = 4.2
	trusted.CancellationRate = 0.07
	trusted.CompletedRentals = 5
	profiles.PutMetrics(trusted)

	svc := NewBonusMalusService(store, profiles, nil, BonusMalusOptions{Clock: fixedClock(testNow)})

	adj := svc.ApplyToDeposit(ctx, "elite", 50000)
	assert.Equal(t, domain.UserTierElite, adj.Tier)
	assert.Equal(t, int64(0), adj.AdjustedDepositCents)
	assert.Equal(t, int64(50000), adj.SavingsCents)

	adj = svc.ApplyToDeposit(ctx, "trusted", 50000)
	assert.Equal(t, domain.UserTierTrusted, adj.Tier)
	assert.Equal(t, int64(25000), adj.AdjustedDepositCents)

	adj = svc.ApplyToDeposit(ctx, "unknown", 50000)
	assert.Equal(t, domain.UserTierStandard, adj.Tier)
	assert.Equal(t, int64(50000), adj.AdjustedDepositCents)
}

func TestBonusMalusService_TipsAndStats(t *testing.T) {
	ctx := context.Background()
	repo := new(MockBonusMalusRepo)
	metricsRepo := new(MockMetricsRepo)
	svc := NewBonusMalusService(repo, metricsRepo, nil, BonusMalusOptions{Clock: fixedClock(testNow)})

	m := poorMetrics
	metricsRepo.On("GetMetrics", ctx, "u1").Return(&m, nil)
	tips, err := svc.ImprovementTips(ctx, "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, tips)

	_, err = svc.ImprovementTips(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	repo.On("ListFactors", ctx).Return([]float64{-0.1, 0, 0.2, -0.05}, nil)
	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalUsers)
	assert.Equal(t, 2, stats.UsersWithBonus)
	assert.Equal(t, 1, stats.UsersWithMalus)
	assert.Equal(t, 1, stats.UsersNeutral)
	assert.Equal(t, 0.0125, stats.AverageFactor)
}

// gatedMetricsRepo blocks until released and honors ctx like a database driver.
type gatedMetricsRepo struct {
	metrics domain.BehavioralMetrics
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedMetricsRepo) GetMetrics(ctx context.Context, userID string) (*domain.BehavioralMetrics, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	m := g.metrics
	m.UserID = userID
	return &m, nil
}

func TestBonusMalusService_CancelledCallerDoesNotFailOthers(t *testing.T) {
	store := memory.NewBonusMalusStore()
	metricsRepo := &gatedMetricsRepo{metrics: goodMetrics, entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewBonusMalusService(store, metricsRepo, nil, BonusMalusOptions{Clock: fixedClock(testNow)})

	firstCtx, cancel := context.WithCancel(context.Background())
	first := make(chan *domain.BonusMalusFactor, 1)
	go func() { first <- svc.GetOrCompute(firstCtx, "u1") }()
	<-metricsRepo.entered

	second := make(chan *domain.BonusMalusFactor, 1)
	go func() { second <- svc.GetOrCompute(context.Background(), "u1") }()

	cancel()
	assert.Nil(t, <-first, "the cancelled caller stops waiting")

	close(metricsRepo.release)
	f := <-second
	require.NotNil(t, f)
	assert.Equal(t, -0.13, f.TotalFactor)
	assert.Equal(t, 1, store.Upserts())
}
