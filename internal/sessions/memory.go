package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/galinilin/docgemma-connect/pkg/models"
)

// MemoryStore is an in-memory Store, used by tests and single-process
// local runs where durability across restarts is not required.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*models.Session)}
}

func (m *MemoryStore) Create(_ context.Context) (*models.Session, error) {
	now := time.Now()
	s := &models.Session{
		ID:        uuid.NewString(),
		Status:    models.SessionIdle,
		Messages:  []models.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return s.Clone(), nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) List(_ context.Context) ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Clone())
	}
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) AppendMessage(_ context.Context, id string, msg models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) SetPendingApproval(_ context.Context, id string, pa models.PendingApproval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.PendingApproval = &pa
	s.Status = models.SessionWaitingApproval
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) ClearPendingApproval(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.PendingApproval = nil
	if s.Status == models.SessionWaitingApproval {
		s.Status = models.SessionProcessing
	}
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) ResetForNewTurn(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.PendingApproval = nil
	s.Status = models.SessionProcessing
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) SetStatus(_ context.Context, id string, status models.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	s.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) SetPatientHint(_ context.Context, id string, hint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.PatientHint = hint
	s.UpdatedAt = time.Now()
	return nil
}

var _ Store = (*MemoryStore)(nil)
