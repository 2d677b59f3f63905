package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/fxrate"
	"vehicle-risk-backend/internal/logger"
	"vehicle-risk-backend/internal/metrics"
	"vehicle-risk-backend/internal/pricing"
	"vehicle-risk-backend/internal/repository"
)

type fxService struct {
	source    fxrate.Source
	repo      repository.FxSnapshotRepository
	validity  time.Duration
	threshold float64
	now       Clock
}

type FxOptions struct {
	Validity           time.Duration
	VariationThreshold float64
	Clock              Clock
}

// NewFxService freezes rates from source. Every snapshot it creates is saved to repo for audit.
func NewFxService(source fxrate.Source, repo repository.FxSnapshotRepository, opts FxOptions) FxService {
	if opts.Validity <= 0 {
		opts.Validity = pricing.DefaultFxValidity
	}
	if opts.VariationThreshold <= 0 {
		opts.VariationThreshold = pricing.DefaultVariationThreshold
	}
	if opts.Clock == nil {
		opts.Clock = systemClock
	}
	return &fxService{source: source, repo: repo, validity: opts.Validity, threshold: opts.VariationThreshold, now: opts.Clock}
}

func (s *fxService) CurrentSnapshot(ctx context.Context, from, to string) (*domain.FxSnapshot, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == "" || to == "" {
		return nil, fmt.Errorf("%w: currency pair is required", ErrInvalidInput)
	}

	quote, err := s.source.GetRate(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s rate: %w", fxrate.PairKey(from, to), err)
	}

	ts := quote.ObservedAt
	if ts.IsZero() {
		ts = s.now()
	}
	snap, err := pricing.NewFxSnapshot(from, to, quote.Rate, ts, s.validity, s.threshold)
	if err != nil {
		return nil, err
	}
	s.audit(ctx, snap)
	return snap, nil
}

// Revalidate replaces old when it expired or the market moved past its threshold.
func (s *fxService) Revalidate(ctx context.Context, old *domain.FxSnapshot) (*domain.FxSnapshot, bool, error) {
	if old == nil {
		return nil, false, fmt.Errorf("%w: snapshot is required", ErrInvalidInput)
	}

	quote, err := s.source.GetRate(ctx, old.FromCurrency, old.ToCurrency)
	if err != nil {
		return nil, false, fmt.Errorf("failed to fetch %s rate: %w", fxrate.PairKey(old.FromCurrency, old.ToCurrency), err)
	}

	next, changed, err := pricing.Revalidate(old, quote, s.now())
	if err != nil {
		return nil, false, err
	}
	if !changed {
		metrics.FxRevalidations.WithLabelValues("kept").Inc()
		return old, false, nil
	}

	metrics.FxRevalidations.WithLabelValues("replaced").Inc()
	logger.WithPair(old.FromCurrency, old.ToCurrency).Info("FX snapshot replaced",
		"oldRate", old.Rate, "newRate", next.Rate, "variation", pricing.FxVariation(old.Rate, next.Rate))
	s.audit(ctx, next)
	return next, true, nil
}

func (s *fxService) Refresh(ctx context.Context, from, to string) (*domain.FxSnapshot, bool, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if s.repo != nil {
		latest, err := s.repo.GetLatest(ctx, from, to)
		switch {
		case err == nil:
			return s.Revalidate(ctx, latest)
		case !errors.Is(err, repository.ErrNotFound):
			logger.WithPair(from, to).Warn("FX snapshot read failed, freezing a new rate", "error", err)
		}
	}

	snap, err := s.CurrentSnapshot(ctx, from, to)
	if err != nil {
		return nil, false, err
	}
	return snap, true, nil
}

func (s *fxService) Freeze(from, to string, rate float64, ts time.Time) (*domain.FxSnapshot, error) {
	snap, err := pricing.NewFxSnapshot(strings.ToUpper(from), strings.ToUpper(to), rate, ts, s.validity, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return snap, nil
}

func (s *fxService) audit(ctx context.Context, snap *domain.FxSnapshot) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Save(ctx, snap); err != nil {
		logger.Warn("Failed to store FX snapshot", "snapshotID", snap.ID, "error", err)
	}
}
