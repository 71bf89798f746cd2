package mocks

import (
	"context"
	"sync"
	"uxreview/internal/models"
)

// SessionRepositoryMock keeps sessions in memory, newest first. Set the Func
// fields to inject failures.
type SessionRepositoryMock struct {
	SaveFunc   func(ctx context.Context, session models.Session) error
	DeleteFunc func(ctx context.Context, id string) error

	mu       sync.Mutex
	sessions []models.Session
	Saves    []models.Session
}

func (m *SessionRepositoryMock) GetAll(ctx context.Context) []models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Session, len(m.sessions))
	for i, s := range m.sessions {
		out[i] = s.Clone()
	}
	return out
}

func (m *SessionRepositoryMock) GetByID(ctx context.Context, id string) *models.Session {
	for _, s := range m.GetAll(ctx) {
		if s.ID == id {
			found := s
			return &found
		}
	}
	return nil
}

func (m *SessionRepositoryMock) Save(ctx context.Context, session models.Session) error {
	if m.SaveFunc != nil {
		if err := m.SaveFunc(ctx, session); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves = append(m.Saves, session.Clone())
	for i := range m.sessions {
		if m.sessions[i].ID == session.ID {
			m.sessions[i] = session.Clone()
			return nil
		}
	}
	m.sessions = append([]models.Session{session.Clone()}, m.sessions...)
	return nil
}

func (m *SessionRepositoryMock) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		if err := m.DeleteFunc(ctx, id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.sessions[:0]
	for _, s := range m.sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	m.sessions = kept
	return nil
}

// SaveCount returns how many successful saves were recorded.
func (m *SessionRepositoryMock) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Saves)
}
