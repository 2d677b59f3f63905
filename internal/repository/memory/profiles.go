package memory

import (
	"context"
	"sync"

	"vehicle-risk-backend/internal/domain"
	"vehicle-risk-backend/internal/repository"
)

// ProfileStore holds the read-only user data the engines consume: behavioral
// metrics, driver profiles, wallet balances and contacts. Seeded by callers.
type ProfileStore struct {
	mu       sync.RWMutex
	metrics  map[string]domain.BehavioralMetrics
	drivers  map[string]domain.DriverProfile
	balances map[string]int64
	contacts map[string]domain.UserContact
}

func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		metrics:  make(map[string]domain.BehavioralMetrics),
		drivers:  make(map[string]domain.DriverProfile),
		balances: make(map[string]int64),
		contacts: make(map[string]domain.UserContact),
	}
}

func (m *ProfileStore) PutMetrics(metrics domain.BehavioralMetrics) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics[metrics.UserID] = metrics
}

func (m *ProfileStore) PutDriverProfile(p domain.DriverProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[p.UserID] = p
}

func (m *ProfileStore) PutBalance(userID string, cents int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userID] = cents
}

func (m *ProfileStore) PutContact(c domain.UserContact) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts[c.UserID] = c
}

func (m *ProfileStore) GetMetrics(_ context.Context, userID string) (*domain.BehavioralMetrics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.metrics[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (m *ProfileStore) GetProfile(_ context.Context, userID string) (*domain.DriverProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.drivers[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

func (m *ProfileStore) GetBalance(_ context.Context, userID string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.balances[userID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return v, nil
}

func (m *ProfileStore) GetContact(_ context.Context, userID string) (*domain.UserContact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.contacts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &v, nil
}

// NotificationStore records notifications in memory.
type NotificationStore struct {
	mu    sync.Mutex
	notes []domain.Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{}
}

func (m *NotificationStore) Create(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = int64(len(m.notes) + 1)
	m.notes = append(m.notes, *n)
	return nil
}

func (m *NotificationStore) List(_ context.Context, userID string, limit, offset int32) ([]domain.Notification, int32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var mine []domain.Notification
	for i := len(m.notes) - 1; i >= 0; i-- {
		if m.notes[i].UserID == userID {
			mine = append(mine, m.notes[i])
		}
	}
	total := int32(len(mine))
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return mine[offset:end], total, nil
}
