package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"uxreview/internal/apperrors"
	"uxreview/internal/logging"
	"uxreview/internal/models"

	"go.uber.org/zap"
)

// SessionsKey namespaces the session history blob in the key-value store.
const SessionsKey = "ux_review_sessions"

// SessionRepository keeps the review history as one JSON array, newest first.
type SessionRepository interface {
	GetAll(ctx context.Context) []models.Session
	GetByID(ctx context.Context, id string) *models.Session
	Save(ctx context.Context, session models.Session) error
	Delete(ctx context.Context, id string) error
}

type sessionRepository struct {
	kv     KVRepository
	logger *zap.Logger
	mu     sync.Mutex
}

func NewSessionRepository(kv KVRepository, logger *zap.Logger) SessionRepository {
	return &sessionRepository{kv: kv, logger: logging.OrNop(logger)}
}

// GetAll returns an empty history when the blob is missing, unreadable or
// corrupt.
func (r *sessionRepository) GetAll(ctx context.Context) []models.Session {
	sessions, err := r.load(ctx)
	if err != nil {
		r.logger.Warn("failed to load sessions", zap.Error(err))
		return []models.Session{}
	}
	return sessions
}

func (r *sessionRepository) GetByID(ctx context.Context, id string) *models.Session {
	for _, s := range r.GetAll(ctx) {
		if s.ID == id {
			found := s
			return &found
		}
	}
	return nil
}

func (r *sessionRepository) Save(ctx context.Context, session models.Session) error {
	if session.ID == "" {
		return apperrors.Validation("session ID is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.load(ctx)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrPersistenceRead) {
			return err
		}
		// A corrupt blob is replaced rather than blocking every save.
		r.logger.Warn("discarding unparsable session history", zap.Error(err))
		sessions = []models.Session{}
	}

	replaced := false
	for i := range sessions {
		if sessions[i].ID == session.ID {
			sessions[i] = session
			replaced = true
			break
		}
	}
	if !replaced {
		sessions = append([]models.Session{session}, sessions...)
	}
	return r.store(ctx, sessions)
}

// Delete is a no-op for unknown ids.
func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, err := r.load(ctx)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrPersistenceRead) {
			return err
		}
		sessions = []models.Session{}
	}
	kept := make([]models.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	return r.store(ctx, kept)
}

// load distinguishes a corrupt blob (ErrPersistenceRead) from a failing store.
func (r *sessionRepository) load(ctx context.Context) ([]models.Session, error) {
	raw, found, err := r.kv.Get(ctx, SessionsKey)
	if err != nil {
		return nil, fmt.Errorf("read sessions: %w", err)
	}
	if !found || raw == "" {
		return []models.Session{}, nil
	}
	var sessions []models.Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrPersistenceRead, "failed to parse sessions", err)
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, nil
}

func (r *sessionRepository) store(ctx context.Context, sessions []models.Session) error {
	data, err := json.Marshal(sessions)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrPersistenceWrite, "failed to encode sessions", err)
	}
	if err := r.kv.Put(ctx, SessionsKey, string(data)); err != nil {
		return apperrors.Wrap(apperrors.ErrPersistenceWrite, "failed to save sessions", err)
	}
	return nil
}
