// Package memory implements the repository interfaces in-process. It backs
// the service and handler tests and is handy for running the API without a
// database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/akulagin/mlservice/internal/apperr"
	"github.com/akulagin/mlservice/internal/models"
)

type Users struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]models.User
	byName map[string]int64
}

func NewUsers() *Users {
	return &Users{byID: make(map[int64]models.User), byName: make(map[string]int64)}
}

func (m *Users) Create(username, passwordHash string, balance float64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[username]; exists {
		return models.User{}, fmt.Errorf("username %q: %w", username, apperr.ErrConflict)
	}
	m.nextID++
	u := models.User{
		ID:           m.nextID,
		Username:     username,
		PasswordHash: passwordHash,
		Balance:      balance,
		CreatedAt:    time.Now().UTC(),
	}
	m.byID[u.ID] = u
	m.byName[username] = u.ID
	return u, nil
}

func (m *Users) GetByID(id int64) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.byID[id]
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	return u, nil
}

func (m *Users) GetByUsername(username string) (models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[username]
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	return m.byID[id], nil
}

func (m *Users) TouchLastLogin(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return apperr.ErrNotFound
	}
	now := time.Now().UTC()
	u.LastLoginAt = &now
	m.byID[id] = u
	return nil
}

func (m *Users) AddBalance(id int64, delta float64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return models.User{}, apperr.ErrNotFound
	}
	u.Balance += delta
	m.byID[id] = u
	return u, nil
}

type Predictions struct {
	mu     sync.RWMutex
	users  *Users
	nextID int64
	byJob  map[string]models.Prediction
}

// NewPredictions shares the Users store so DebitAndCreate can move credits.
func NewPredictions(users *Users) *Predictions {
	return &Predictions{users: users, byJob: make(map[string]models.Prediction)}
}

func (m *Predictions) DebitAndCreate(ctx context.Context, userID int64, jobID string, cost float64) (models.Prediction, error) {
	m.users.mu.Lock()
	u, ok := m.users.byID[userID]
	if !ok || u.Balance < cost {
		m.users.mu.Unlock()
		return models.Prediction{}, apperr.ErrInsufficientCredit
	}
	u.Balance -= cost
	m.users.byID[userID] = u
	m.users.mu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p := models.Prediction{
		ID:        m.nextID,
		JobID:     jobID,
		UserID:    userID,
		Cost:      cost,
		CreatedAt: time.Now().UTC(),
	}
	m.byJob[jobID] = p
	return p, nil
}

func (m *Predictions) GetByJobID(jobID string) (models.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byJob[jobID]
	if !ok {
		return models.Prediction{}, apperr.ErrNotFound
	}
	return p, nil
}

func (m *Predictions) SetResultIfUnset(jobID, result string) (models.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byJob[jobID]
	if !ok {
		return models.Prediction{}, apperr.ErrNotFound
	}
	if p.Result == nil {
		p.Result = &result
		m.byJob[jobID] = p
	}
	return p, nil
}

func (m *Predictions) ListByUser(userID int64) ([]models.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Prediction
	for _, p := range m.byJob {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
