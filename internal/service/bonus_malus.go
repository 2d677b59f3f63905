package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/logger"
	"vehicle-risk-backend/internal/metrics"
	"vehicle-risk-backend/internal/pricing"
	"vehicle-risk-backend/internal/repository"

	"golang.org/x/sync/singleflight"
)

const defaultRecalculationBatch = 500

// failedRecalculationRetry is how far a row's lease moves when its recalculation
// fails, so it queues behind rows that fell due in the meantime.
const failedRecalculationRetry = 24 * time.Hour

const sharedComputeTimeout = 30 * time.Second

type bonusMalusService struct {
	repo        repository.BonusMalusRepository
	metricsRepo repository.BehavioralMetricsRepository
	notifier    NotificationService
	interval    time.Duration
	batchSize   int
	now         Clock

	group singleflight.Group
}

type BonusMalusOptions struct {
	Interval  time.Duration
	BatchSize int
	Clock     Clock
}

// NewBonusMalusService wires the engine to its store. notifier may be nil.
func NewBonusMalusService(repo repository.BonusMalusRepository, metricsRepo repository.BehavioralMetricsRepository, notifier NotificationService, opts BonusMalusOptions) BonusMalusService {
	if opts.Interval <= 0 {
		opts.Interval = pricing.DefaultRecalculationInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultRecalculationBatch
	}
	if opts.Clock == nil {
		opts.Clock = systemClock
	}
	return &bonusMalusService{
		repo:        repo,
		metricsRepo: metricsRepo,
		notifier:    notifier,
		interval:    opts.Interval,
		batchSize:   opts.BatchSize,
		now:         opts.Clock,
	}
}

func (s *bonusMalusService) GetOrCompute(ctx context.Context, userID string) *domain.BonusMalusFactor {
	if userID == "" {
		return nil
	}

	if f := s.load(ctx, userID); f != nil && !pricing.NeedsRecalculation(f, s.now()) {
		metrics.BonusMalusComputations.WithLabelValues("cached").Inc()
		return f
	}

	f, shared := s.shared(ctx, userID, func(ctx context.Context) *domain.BonusMalusFactor {
		// Another caller may have finished between our read and joining the group.
		prev := s.load(ctx, userID)
		if prev != nil && !pricing.NeedsRecalculation(prev, s.now()) {
			return prev
		}
		return s.recompute(ctx, userID, prev)
	})
	if shared {
		logger.Debug("Shared in-flight bonus-malus computation", "userID", userID)
	}
	return f
}

// shared runs fn once per user across concurrent callers. fn runs detached from
// the caller that started it, so one caller giving up does not fail the others;
// each caller still stops waiting when its own ctx is done.
func (s *bonusMalusService) shared(ctx context.Context, userID string, fn func(context.Context) *domain.BonusMalusFactor) (*domain.BonusMalusFactor, bool) {
	ch := s.group.DoChan(userID, func() (interface{}, error) {
		work, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedComputeTimeout)
		defer cancel()
		return fn(work), nil
	})

	select {
	case res := <-ch:
		f, _ := res.Val.(*domain.BonusMalusFactor)
		return f, res.Shared
	case <-ctx.Done():
		logger.Warn("Gave up waiting for bonus-malus computation", "userID", userID, "error", ctx.Err())
		return nil, false
	}
}

func (s *bonusMalusService) FactorFor(ctx context.Context, userID string) float64 {
	if f := s.GetOrCompute(ctx, userID); f != nil {
		return f.TotalFactor
	}
	return 0
}

func (s *bonusMalusService) Recalculate(ctx context.Context, userID string) (*domain.BonusMalusFactor, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	f, _ := s.shared(ctx, userID, func(ctx context.Context) *domain.BonusMalusFactor {
		return s.recompute(ctx, userID, s.load(ctx, userID))
	})
	if f == nil {
		return nil, fmt.Errorf("no bonus-malus data for user %s", userID)
	}
	return f, nil
}

// RecalculateDue recomputes one batch of factors whose lease has run out.
func (s *bonusMalusService) RecalculateDue(ctx context.Context) (int, error) {
	logger.EnterMethod("bonusMalusService.RecalculateDue", "batchSize", s.batchSize)

	ids, err := s.repo.ListDue(ctx, s.now(), s.batchSize)
	if err != nil {
		logger.ExitMethodWithError("bonusMalusService.RecalculateDue", err)
		return 0, err
	}

	updated := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if _, err := s.Recalculate(ctx, id); err != nil {
			retryAt := s.now().Add(failedRecalculationRetry)
			logger.Warn("Skipping bonus-malus recalculation", "userID", id, "retryAt", retryAt, "error", err)
			if perr := s.repo.Postpone(ctx, id, retryAt); perr != nil {
				logger.Warn("Failed to postpone bonus-malus recalculation", "userID", id, "error", perr)
			}
			continue
		}
		updated++
	}

	logger.ExitMethod("bonusMalusService.RecalculateDue", "due", len(ids), "updated", updated)
	return updated, ctx.Err()
}

func (s *bonusMalusService) ImprovementTips(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	m, err := s.metricsRepo.GetMetrics(ctx, userID)
	if err != nil {
		return nil, err
	}
	return pricing.ImprovementTips(*m), nil
}

func (s *bonusMalusService) Stats(ctx context.Context) (domain.BonusMalusStats, error) {
	factors, err := s.repo.ListFactors(ctx)
	if err != nil {
		return domain.BonusMalusStats{}, err
	}
	return pricing.Stats(factors), nil
}

// ApplyToDeposit discounts a base deposit by the renter's tier. Without data the
// renter is standard tier and pays the base deposit.
func (s *bonusMalusService) ApplyToDeposit(ctx context.Context, userID string, baseCents int64) domain.DepositAdjustment {
	tier := domain.UserTierStandard
	if f := s.GetOrCompute(ctx, userID); f != nil {
		tier = pricing.TierFor(f.TotalFactor, f.Metrics.IsVerified)
	}
	return pricing.AdjustDeposit(baseCents, tier)
}

// load reads the stored factor. Read failures count as "no record".
func (s *bonusMalusService) load(ctx context.Context, userID string) *domain.BonusMalusFactor {
	f, err := s.repo.Get(ctx, userID)
	if err == nil {
		return f
	}
	if !errors.Is(err, repository.ErrNotFound) {
		logger.Warn("Bonus-malus read failed, treating as absent", "userID", userID, "error", err)
	}
	return nil
}

func (s *bonusMalusService) recompute(ctx context.Context, userID string, prev *domain.BonusMalusFactor) *domain.BonusMalusFactor {
	log := logger.WithUser(userID)

	m, err := s.metricsRepo.GetMetrics(ctx, userID)
	if err != nil {
		log.Warn("Behavioral metrics unavailable, no bonus-malus", "error", err)
		metrics.BonusMalusComputations.WithLabelValues("no_metrics").Inc()
		return nil
	}
	m.UserID = userID

	now := s.now()
	f := pricing.ComputeFactor(*m, now, s.interval)
	if prev != nil {
		f.CreatedAt = prev.CreatedAt
	}

	if err := s.repo.Upsert(ctx, f); err != nil {
		log.Warn("Failed to store bonus-malus", "error", err)
		metrics.BonusMalusComputations.WithLabelValues("store_failed").Inc()
		return nil
	}
	metrics.BonusMalusComputations.WithLabelValues("computed").Inc()
	log.Info("Bonus-malus computed", "totalFactor", f.TotalFactor, "nextRecalculationAt", f.NextRecalculationAt)

	if prev != nil {
		before, after := pricing.ClassifyFactor(prev.TotalFactor), pricing.ClassifyFactor(f.TotalFactor)
		if before.Type != after.Type {
			metrics.BonusMalusTypeChanges.Inc()
			s.notifyTypeChange(ctx, userID, before, after)
		}
	}
	return f
}

func (s *bonusMalusService) notifyTypeChange(ctx context.Context, userID string, before, after domain.BonusMalusDisplay) {
	if s.notifier == nil {
		return
	}

	title := "Your pricing has changed"
	var msg string
	switch after.Type {
	case domain.BonusMalusTypeBonus:
		msg = fmt.Sprintf("Good news! You now get a %.0f%% discount on your rentals.", after.Percentage)
	case domain.BonusMalusTypeMalus:
		msg = fmt.Sprintf("Your rentals now carry a %.0f%% surcharge. Check your profile for tips to lower it.", after.Percentage)
	default:
		msg = "Your rentals are now charged at the standard price."
	}

	note := &domain.Notification{
		UserID:  userID,
		Title:   title,
		Message: msg,
		Attributes: map[string]string{
			"kind":          "bonus_malus_change",
			"previous_type": string(before.Type),
			"type":          string(after.Type),
		},
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		logger.Warn("Bonus-malus change notification failed", "userID", userID, "error", err)
	}
}
