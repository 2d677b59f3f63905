// Package memory provides in-process stores for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/repository"
)

// BonusMalusStore is an in-memory bonus-malus store keyed by user id.
type BonusMalusStore struct {
	mu      sync.RWMutex
	factors map[string]*domain.BonusMalusFactor
	upserts int
}

func NewBonusMalusStore() *BonusMalusStore {
	return &BonusMalusStore{factors: make(map[string]*domain.BonusMalusFactor)}
}

func (m *BonusMalusStore) Get(_ context.Context, userID string) (*domain.BonusMalusFactor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.factors[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *BonusMalusStore) Upsert(_ context.Context, f *domain.BonusMalusFactor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *f
	if prev, ok := m.factors[f.UserID]; ok {
		cp.CreatedAt = prev.CreatedAt
	}
	m.factors[f.UserID] = &cp
	m.upserts++
	return nil
}

func (m *BonusMalusStore) ListDue(_ context.Context, now time.Time, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	due := []*domain.BonusMalusFactor{}
	for _, f := range m.factors {
		if f.NextRecalculationAt.Before(now) {
			due = append(due, f)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRecalculationAt.Before(due[j].NextRecalculationAt) })

	ids := []string{}
	for _, f := range due {
		if limit > 0 && len(ids) >= limit {
			break
		}
		ids = append(ids, f.UserID)
	}
	return ids, nil
}

func (m *BonusMalusStore) Postpone(_ context.Context, userID string, until time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.factors[userID]
	if !ok {
		return repository.ErrNotFound
	}
	f.NextRecalculationAt = until
	return nil
}

func (m *BonusMalusStore) ListFactors(_ context.Context) ([]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]float64, 0, len(m.factors))
	for _, f := range m.factors {
		out = append(out, f.TotalFactor)
	}
	return out, nil
}

// Len returns the number of stored rows.
func (m *BonusMalusStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.factors)
}

// Upserts returns how many writes the store has accepted.
func (m *BonusMalusStore) Upserts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upserts
}

// RiskSnapshotStore keeps every snapshot per booking in insertion order.
type RiskSnapshotStore struct {
	mu        sync.RWMutex
	snapshots map[string][]domain.RiskSnapshot
}

func NewRiskSnapshotStore() *RiskSnapshotStore {
	return &RiskSnapshotStore{snapshots: make(map[string][]domain.RiskSnapshot)}
}

func (m *RiskSnapshotStore) Save(_ context.Context, s *domain.RiskSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[s.BookingID] = append(m.snapshots[s.BookingID], *s)
	return nil
}

func (m *RiskSnapshotStore) GetLatestByBookingID(_ context.Context, bookingID string) (*domain.RiskSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.snapshots[bookingID]
	if len(list) == 0 {
		return nil, repository.ErrNotFound
	}
	cp := list[len(list)-1]
	return &cp, nil
}

// FxSnapshotStore keeps every frozen rate.
type FxSnapshotStore struct {
	mu        sync.RWMutex
	snapshots []domain.FxSnapshot
}

func NewFxSnapshotStore() *FxSnapshotStore {
	return &FxSnapshotStore{}
}

func (m *FxSnapshotStore) Save(_ context.Context, s *domain.FxSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, *s)
	return nil
}

func (m *FxSnapshotStore) GetLatest(_ context.Context, from, to string) (*domain.FxSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.snapshots) - 1; i >= 0; i-- {
		s := m.snapshots[i]
		if s.FromCurrency == from && s.ToCurrency == to {
			return &s, nil
		}
	}
	return nil, repository.ErrNotFound
}
