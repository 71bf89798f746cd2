package services

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"uxreview/internal/apperrors"
	"uxreview/internal/events"
	"uxreview/internal/logging"
	"uxreview/internal/models"
	"uxreview/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	msgNoActiveSession    = "No active session found. Please start a new review."
	msgNoScreens          = "Please add at least one screen to analyze."
	msgAlreadyRunning     = "Analysis is already in progress."
	msgDeleteWhileRunning = "Cannot delete session while analysis is in progress."
	msgSaveFailed         = "Failed to save the session. Please try again."
	msgDeleteFailed       = "Failed to delete the session. Please try again."
	msgSessionNotFound    = "Session not found."
)

// Snapshot is the observable orchestrator state. Sessions and CurrentSession
// are copies.
type Snapshot struct {
	Sessions       []models.Session `json:"sessions"`
	CurrentSession *models.Session  `json:"currentSession"`
	Loading        bool             `json:"loading"`
	Error          string           `json:"error"`
}

// SessionUpdate carries the fields to change; nil leaves a field as is.
type SessionUpdate struct {
	Screens *[]models.Screen        `json:"screens,omitempty"`
	Options *models.AnalysisOptions `json:"options,omitempty"`
	State   *models.SessionState    `json:"state,omitempty"`
}

type SessionServiceConfig struct {
	Repo     repositories.SessionRepository
	Analyzer Analyzer
	// Settings supplies default analysis options for new sessions.
	Settings        AppSettingsService
	AnalysisTimeout time.Duration
	Emit            func(ctx context.Context, name string, evt events.Event)
	Clock           func() time.Time
	NewID           func() string
	Logger          *zap.Logger
}

// SessionService owns the current review session and the history list.
// The lock is never held across image fetching or model calls.
type SessionService struct {
	repo     repositories.SessionRepository
	analyzer Analyzer
	settings AppSettingsService
	timeout  time.Duration
	emit     func(ctx context.Context, name string, evt events.Event)
	clock    func() time.Time
	newID    func() string
	logger   *zap.Logger

	mu              sync.Mutex
	sessions        []models.Session
	current         *models.Session
	loading         bool
	errMsg          string
	runningID       string
	cancel          context.CancelFunc
	cancelRequested bool
}

func NewSessionService(cfg SessionServiceConfig) *SessionService {
	s := &SessionService{
		repo:     cfg.Repo,
		analyzer: cfg.Analyzer,
		settings: cfg.Settings,
		timeout:  cfg.AnalysisTimeout,
		emit:     cfg.Emit,
		clock:    cfg.Clock,
		newID:    cfg.NewID,
		logger:   logging.OrNop(cfg.Logger),
		sessions: []models.Session{},
	}
	if s.emit == nil {
		s.emit = func(ctx context.Context, name string, evt events.Event) { events.Emit(ctx, name, evt) }
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Startup loads the session history.
func (s *SessionService) Startup(ctx context.Context) {
	s.mu.Lock()
	s.sessions = s.repo.GetAll(ctx)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(ctx, snap)
}

func (s *SessionService) State() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *SessionService) ClearError(ctx context.Context) {
	s.mu.Lock()
	s.errMsg = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(ctx, snap)
}

// CreateNewSession starts a draft that lives in memory until it leaves draft.
func (s *SessionService) CreateNewSession(ctx context.Context) models.Session {
	options := models.DefaultAnalysisOptions()
	if s.settings != nil {
		if settings, err := s.settings.Get(ctx); err != nil {
			s.logger.Warn("using built-in analysis defaults", zap.Error(err))
		} else {
			options = settings.DefaultOptions()
		}
	}
	session := models.NewSession(s.newID(), s.clock().UTC(), options)

	s.mu.Lock()
	current := session.Clone()
	s.current = &current
	s.errMsg = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publish(ctx, snap)
	s.logger.Info("session created", zap.String("session_id", session.ID))
	return session
}

// UpdateSession applies upd to the current session. Changing screens or
// options of a completed session moves it back to draft.
func (s *SessionService) UpdateSession(ctx context.Context, upd SessionUpdate) error {
	s.mu.Lock()
	err := s.updateLocked(ctx, upd)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(ctx, snap)
	return err
}

func (s *SessionService) updateLocked(ctx context.Context, upd SessionUpdate) error {
	if s.current == nil {
		return apperrors.Validation(msgNoActiveSession)
	}
	if s.current.State == models.SessionRunning {
		return apperrors.Validation(msgAlreadyRunning)
	}
	if upd.State != nil && *upd.State != models.SessionDraft {
		return apperrors.Validation("A session can only be moved back to draft.")
	}
	if upd.Screens != nil {
		if err := models.ValidateScreens(*upd.Screens); err != nil {
			return apperrors.Wrap(apperrors.ErrValidation, err.Error(), err)
		}
	}
	if upd.Options != nil && !upd.Options.Strictness.Valid() {
		return apperrors.Validation("Strictness must be light, normal or strict.")
	}

	next := s.current.Clone()
	if upd.Screens != nil {
		next.Screens = append([]models.Screen{}, (*upd.Screens)...)
	}
	if upd.Options != nil {
		next.Options = *upd.Options
	}
	if upd.State != nil {
		next.State = *upd.State
	}
	if next.State == models.SessionCompleted && (upd.Screens != nil || upd.Options != nil) {
		next.State = models.SessionDraft
	}
	s.current = &next

	if next.State != models.SessionDraft || s.inStoreLocked(next.ID) {
		return s.persistLocked(ctx, next)
	}
	return nil
}

// AddScreen appends a screen to the current session. Url screens take their
// host as the default name.
func (s *SessionService) AddScreen(ctx context.Context, name string, typ models.ScreenType, previewURL string) (models.Screen, error) {
	screen, err := newScreen(s.newID(), name, typ, previewURL)
	if err != nil {
		return models.Screen{}, err
	}
	err = s.mutateScreens(ctx, func(screens []models.Screen) ([]models.Screen, error) {
		screen.Order = len(screens)
		return append(screens, screen), nil
	})
	if err != nil {
		return models.Screen{}, err
	}
	return screen, nil
}

func (s *SessionService) RemoveScreen(ctx context.Context, screenID string) error {
	return s.mutateScreens(ctx, func(screens []models.Screen) ([]models.Screen, error) {
		kept := make([]models.Screen, 0, len(screens))
		for _, screen := range screens {
			if screen.ID != screenID {
				kept = append(kept, screen)
			}
		}
		if len(kept) == len(screens) {
			return nil, apperrors.New(apperrors.ErrNotFound, "Screen not found.")
		}
		ids := make([]string, len(kept))
		for i := range kept {
			ids[i] = kept[i].ID
		}
		return models.ReorderScreens(kept, ids)
	})
}

func (s *SessionService) RenameScreen(ctx context.Context, screenID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperrors.Validation("Screen name is required.")
	}
	return s.mutateScreens(ctx, func(screens []models.Screen) ([]models.Screen, error) {
		for i := range screens {
			if screens[i].ID == screenID {
				screens[i].Name = name
				return screens, nil
			}
		}
		return nil, apperrors.New(apperrors.ErrNotFound, "Screen not found.")
	})
}

// ReorderScreens sets the screen order to ids, which must name every screen
// exactly once.
func (s *SessionService) ReorderScreens(ctx context.Context, ids []string) error {
	return s.mutateScreens(ctx, func(screens []models.Screen) ([]models.Screen, error) {
		reordered, err := models.ReorderScreens(screens, ids)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.ErrValidation, err.Error(), err)
		}
		return reordered, nil
	})
}

func (s *SessionService) mutateScreens(ctx context.Context, fn func([]models.Screen) ([]models.Screen, error)) error {
	s.mu.Lock()
	var err error
	if s.current == nil {
		err = apperrors.Validation(msgNoActiveSession)
	} else {
		var screens []models.Screen
		screens, err = fn(append([]models.Screen{}, s.current.Screens...))
		if err == nil {
			err = s.updateLocked(ctx, SessionUpdate{Screens: &screens})
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(ctx, snap)
	return err
}

// StartAnalysis runs the analysis for the current session and blocks until
// it finishes, fails or is cancelled.
func (s *SessionService) StartAnalysis(ctx context.Context) error {
	s.mu.Lock()
	if s.runningID != "" {
		s.mu.Unlock()
		return apperrors.Validation(msgAlreadyRunning)
	}
	if s.current == nil {
		return s.failLocked(ctx, apperrors.Validation(msgNoActiveSession))
	}
	if len(s.current.Screens) == 0 {
		return s.failLocked(ctx, apperrors.Validation(msgNoScreens))
	}

	running := s.current.Clone()
	running.State = models.SessionRunning
	if err := s.repo.Save(ctx, running); err != nil {
		s.logger.Error("failed to persist running session", zap.String("session_id", running.ID), zap.Error(err))
		return s.failLocked(ctx, apperrors.Wrap(apperrors.ErrPersistenceWrite, msgSaveFailed, err))
	}

	runCtx, cancel := context.WithCancel(ctx)
	if s.timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, s.timeout)
		parent := cancel
		cancel = func() { cancelTimeout(); parent() }
	}
	current := running.Clone()
	s.current = &current
	s.loading = true
	s.errMsg = ""
	s.runningID = running.ID
	s.cancel = cancel
	s.cancelRequested = false
	s.sessions = s.repo.GetAll(ctx)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(ctx, snap)

	s.logger.Info("analysis started",
		zap.String("session_id", running.ID),
		zap.Int("screens", len(running.Screens)))
	s.progress(ctx, running.ID, events.NewInfo(fmt.Sprintf("Analyzing %d screen(s)", len(running.Screens))))
	result, err := s.analyzer.Analyze(runCtx, running)
	cancel()

	s.mu.Lock()
	if s.cancelRequested && err != nil {
		err = apperrors.New(apperrors.ErrCancelled, msgCancelled)
	}
	s.runningID = ""
	s.cancel = nil
	s.cancelRequested = false
	s.loading = false

	var outcome models.Session
	var runErr error
	if err != nil || result == nil {
		if err == nil {
			err = apperrors.New(apperrors.ErrModelResponse, msgAnalysisFailed)
		}
		outcome = running.Clone()
		outcome.State = models.SessionDraft
		runErr = err
		s.errMsg = apperrors.UserMessage(err)
		s.logger.Warn("analysis failed", zap.String("session_id", running.ID), zap.Error(err))
	} else {
		outcome = result.Clone()
		outcome.State = models.SessionCompleted
		s.errMsg = ""
		s.logger.Info("analysis completed",
			zap.String("session_id", outcome.ID),
			zap.Int("issues", len(outcome.Issues)),
			zap.String("health", string(outcome.OverallHealth)))
	}

	if saveErr := s.repo.Save(ctx, outcome); saveErr != nil {
		s.logger.Error("failed to persist analysis outcome", zap.String("session_id", outcome.ID), zap.Error(saveErr))
		if runErr == nil {
			runErr = apperrors.Wrap(apperrors.ErrPersistenceWrite, msgSaveFailed, saveErr)
			s.errMsg = msgSaveFailed
		}
	}
	if s.current != nil && s.current.ID == outcome.ID {
		cur := outcome.Clone()
		s.current = &cur
	}
	s.sessions = s.repo.GetAll(ctx)
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.publish(ctx, snap)

	switch {
	case runErr == nil:
		s.progress(ctx, outcome.ID, events.NewSuccess(fmt.Sprintf("Analysis completed with %d issue(s)", len(outcome.Issues))))
	case apperrors.Is(runErr, apperrors.ErrCancelled):
		s.progress(ctx, outcome.ID, events.NewWarn(msgCancelled))
	default:
		s.progress(ctx, outcome.ID, events.NewError(apperrors.UserMessage(runErr)))
	}
	if len(outcome.ScreensExcluded) > 0 && runErr == nil {
		s.progress(ctx, outcome.ID, events.NewWarn(fmt.Sprintf("%d screen(s) could not be loaded and were skipped", len(outcome.ScreensExcluded))))
	}
	return runErr
}

// CancelAnalysis stops the in-flight analysis. It reports false when none
// is running.
func (s *SessionService) CancelAnalysis() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancelRequested = true
	s.cancel()
	return true
}

// SelectSession makes a stored session current.
func (s *SessionService) SelectSession(ctx context.Context, id string) error {
	s.mu.Lock()
	found := s.repo.GetByID(ctx, id)
	if found == nil {
		return s.failLocked(ctx, apperrors.New(apperrors.ErrNotFound, msgSessionNotFound))
	}
	selected := found.Clone()
	if selected.State == models.SessionRunning && selected.ID != s.runningID {
		// Left running by an interrupted process.
		selected.State = models.SessionDraft
	}
	s.current = &selected
	s.errMsg = ""
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(ctx, snap)
	return nil
}

// DeleteSession removes a stored session. It refuses the session being
// analysed.
func (s *SessionService) DeleteSession(ctx context.Context, id string) bool {
	s.mu.Lock()
	if id == s.runningID && s.runningID != "" {
		s.errMsg = msgDeleteWhileRunning
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.publish(ctx, snap)
		return false
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logger.Error("failed to delete session", zap.String("session_id", id), zap.Error(err))
		s.errMsg = msgDeleteFailed
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.publish(ctx, snap)
		return false
	}
	s.sessions = s.repo.GetAll(ctx)
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(ctx, snap)
	return true
}

// UpdateIssueStatus changes one issue's status. Overall health is left as
// computed by the analysis.
func (s *SessionService) UpdateIssueStatus(ctx context.Context, issueID string, status models.IssueStatus) error {
	if !status.Valid() {
		return apperrors.Validation("Unknown issue status.")
	}
	s.mu.Lock()
	if s.current == nil {
		return s.failLocked(ctx, apperrors.Validation(msgNoActiveSession))
	}
	if s.current.State == models.SessionRunning {
		s.mu.Unlock()
		return apperrors.Validation(msgAlreadyRunning)
	}
	idx, ok := s.current.FindIssue(issueID)
	if !ok {
		return s.failLocked(ctx, apperrors.New(apperrors.ErrNotFound, "Issue not found."))
	}
	next := s.current.Clone()
	next.Issues[idx].Status = status
	s.current = &next
	err := s.persistLocked(ctx, next)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(ctx, snap)
	return err
}

// RecheckIssue re-verifies one issue of the current session against its
// screen. The session is not modified.
func (s *SessionService) RecheckIssue(ctx context.Context, issueID string) (models.IssueStatus, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return "", apperrors.Validation(msgNoActiveSession)
	}
	session := s.current.Clone()
	s.mu.Unlock()
	return s.analyzer.RecheckIssue(ctx, issueID, session)
}

// persistLocked saves session and refreshes the list. On failure the error
// message is surfaced and in-memory state is kept.
func (s *SessionService) persistLocked(ctx context.Context, session models.Session) error {
	if err := s.repo.Save(ctx, session); err != nil {
		s.logger.Error("failed to persist session", zap.String("session_id", session.ID), zap.Error(err))
		s.errMsg = msgSaveFailed
		return apperrors.Wrap(apperrors.ErrPersistenceWrite, msgSaveFailed, err)
	}
	s.sessions = s.repo.GetAll(ctx)
	return nil
}

// failLocked records err as the visible error, releases the lock and
// publishes.
func (s *SessionService) failLocked(ctx context.Context, err error) error {
	s.errMsg = apperrors.UserMessage(err)
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(ctx, snap)
	return err
}

func (s *SessionService) inStoreLocked(id string) bool {
	for _, stored := range s.sessions {
		if stored.ID == id {
			return true
		}
	}
	return false
}

func (s *SessionService) snapshotLocked() Snapshot {
	snap := Snapshot{
		Sessions: make([]models.Session, len(s.sessions)),
		Loading:  s.loading,
		Error:    s.errMsg,
	}
	for i, stored := range s.sessions {
		snap.Sessions[i] = stored.Clone()
	}
	if s.current != nil {
		cur := s.current.Clone()
		snap.CurrentSession = &cur
	}
	return snap
}

func (s *SessionService) progress(ctx context.Context, sessionID string, evt events.Event) {
	evt.SessionID = sessionID
	s.emit(ctx, events.AnalysisProgress, evt)
}

func (s *SessionService) publish(ctx context.Context, snap Snapshot) {
	evt := events.NewState(snap)
	if snap.CurrentSession != nil {
		evt.SessionID = snap.CurrentSession.ID
	}
	s.emit(ctx, events.SessionState, evt)
}

func newScreen(id, name string, typ models.ScreenType, previewURL string) (models.Screen, error) {
	previewURL = strings.TrimSpace(previewURL)
	name = strings.TrimSpace(name)
	if !typ.Valid() {
		return models.Screen{}, apperrors.Validation("Screen type must be upload or url.")
	}
	if previewURL == "" {
		return models.Screen{}, apperrors.Validation("Screen image is required.")
	}

	switch typ {
	case models.ScreenURL:
		u, err := url.Parse(previewURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return models.Screen{}, apperrors.Validation("Please enter a valid http(s) URL.")
		}
		if name == "" {
			name = u.Hostname()
		}
	case models.ScreenUpload:
		switch {
		case strings.HasPrefix(previewURL, "data:"):
			if !strings.HasPrefix(previewURL, "data:image/") {
				return models.Screen{}, apperrors.Validation("Uploaded file must be an image.")
			}
		case strings.HasPrefix(previewURL, "http://"), strings.HasPrefix(previewURL, "https://"):
			return models.Screen{}, apperrors.Validation("Use a url screen for web addresses.")
		}
		if name == "" {
			name = uploadName(previewURL)
		}
	}
	if name == "" {
		return models.Screen{}, apperrors.Validation("Screen name is required.")
	}
	return models.Screen{ID: id, Name: name, Type: typ, PreviewURL: previewURL}, nil
}

func uploadName(src string) string {
	if strings.HasPrefix(src, "data:") {
		return "Uploaded screen"
	}
	if u, err := url.Parse(src); err == nil && u.Scheme == "file" {
		src = u.Path
	}
	return filepath.Base(src)
}
