package unit_tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
	"uxreview/internal/apperrors"
	"uxreview/internal/events"
	"uxreview/internal/models"
	"uxreview/internal/services"
	"uxreview/internal/tests/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

type emitted struct {
	name  string
	event events.Event
}

type eventRecorder struct {
	mu     sync.Mutex
	events []emitted
}

func (r *eventRecorder) emit(_ context.Context, name string, evt events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{name: name, event: evt})
}

func (r *eventRecorder) last(name string) (events.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].name == name {
			return r.events[i].event, true
		}
	}
	return events.Event{}, false
}

type orchestratorFixture struct {
	svc      *services.SessionService
	repo     *mocks.SessionRepositoryMock
	analyzer *mocks.AnalyzerMock
	events   *eventRecorder
}

func newOrchestrator(t *testing.T, timeout time.Duration) *orchestratorFixture {
	t.Helper()
	f := &orchestratorFixture{
		repo:     &mocks.SessionRepositoryMock{},
		analyzer: &mocks.AnalyzerMock{},
		events:   &eventRecorder{},
	}
	var (
		idMu sync.Mutex
		next int
	)
	f.svc = services.NewSessionService(services.SessionServiceConfig{
		Repo:            f.repo,
		Analyzer:        f.analyzer,
		AnalysisTimeout: timeout,
		Emit:            f.events.emit,
		Clock:           func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) },
		NewID: func() string {
			idMu.Lock()
			defer idMu.Unlock()
			next++
			return fmt.Sprintf("id-%d", next)
		},
		Logger: zaptest.NewLogger(t),
	})
	return f
}

func issue(id string, severity models.Severity) models.Issue {
	return models.Issue{
		ID:             id,
		Title:          "Issue " + id,
		Severity:       severity,
		Confidence:     models.ConfidenceHigh,
		Evidence:       "Visible evidence",
		Description:    "Visible evidence",
		Impact:         "Users hesitate",
		Recommendation: "Fix it",
		Status:         models.StatusOpen,
		Anchors:        models.Anchors{models.PointAnchor{X: 0.5, Y: 0.5}},
	}
}

func completeWith(issues ...models.Issue) func(ctx context.Context, s models.Session) (*models.Session, error) {
	return func(ctx context.Context, s models.Session) (*models.Session, error) {
		out := s.Clone()
		out.SetIssues(issues)
		out.State = models.SessionCompleted
		return &out, nil
	}
}

func addScreens(t *testing.T, f *orchestratorFixture, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := f.svc.AddScreen(context.Background(), fmt.Sprintf("Screen %d", i+1), models.ScreenURL,
			fmt.Sprintf("https://example.com/%d.png", i+1))
		require.NoError(t, err)
	}
}

func TestSessionService_ScenarioA_CompletedWithCriticalHealth(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()
	var seenState models.SessionState
	f.analyzer.AnalyzeFunc = func(ctx context.Context, s models.Session) (*models.Session, error) {
		seenState = s.State
		return completeWith(
			issue("issue-1", models.SeverityCritical),
			issue("issue-2", models.SeverityInfo),
			issue("issue-3", models.SeverityInfo),
		)(ctx, s)
	}

	f.svc.CreateNewSession(ctx)
	addScreens(t, f, 2)
	require.NoError(t, f.svc.StartAnalysis(ctx))

	assert.Equal(t, models.SessionRunning, seenState)
	state := f.svc.State()
	require.NotNil(t, state.CurrentSession)
	assert.Equal(t, models.HealthCritical, state.CurrentSession.OverallHealth)
	assert.Equal(t, models.SessionCompleted, state.CurrentSession.State)
	require.Len(t, state.CurrentSession.Issues, 3)
	for _, is := range state.CurrentSession.Issues {
		assert.Equal(t, models.StatusOpen, is.Status)
	}
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)

	require.Len(t, state.Sessions, 1)
	assert.Equal(t, models.SessionCompleted, state.Sessions[0].State)
}

func TestSessionService_ScenarioB_NoScreensMakesNoCall(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()
	calls := 0
	f.analyzer.AnalyzeFunc = func(ctx context.Context, s models.Session) (*models.Session, error) {
		calls++
		return nil, errors.New("unexpected")
	}

	f.svc.CreateNewSession(ctx)
	err := f.svc.StartAnalysis(ctx)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
	assert.Equal(t, 0, calls)
	state := f.svc.State()
	assert.Equal(t, "Please add at least one screen to analyze.", state.Error)
	assert.Equal(t, models.SessionDraft, state.CurrentSession.State)
	assert.Equal(t, 0, f.repo.SaveCount())
}

func TestSessionService_ScenarioC_FailureRevertsToDraft(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()
	f.analyzer.AnalyzeFunc = func(ctx context.Context, s models.Session) (*models.Session, error) {
		return nil, apperrors.New(apperrors.ErrModelResponse, "AI returned an empty response.")
	}

	f.svc.CreateNewSession(ctx)
	addScreens(t, f, 2)
	opts := models.AnalysisOptions{Sequential: true, Strictness: models.StrictnessStrict, AccessibilityFocus: false}
	require.NoError(t, f.svc.UpdateSession(ctx, services.SessionUpdate{Options: &opts}))
	before := f.svc.State().CurrentSession

	err := f.svc.StartAnalysis(ctx)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrModelResponse))
	state := f.svc.State()
	assert.Equal(t, models.SessionDraft, state.CurrentSession.State)
	assert.Equal(t, "AI returned an empty response.", state.Error)
	assert.Equal(t, before.Screens, state.CurrentSession.Screens)
	assert.Equal(t, opts, state.CurrentSession.Options)
	assert.False(t, state.Loading)

	stored := f.repo.GetByID(ctx, before.ID)
	require.NotNil(t, stored)
	assert.Equal(t, models.SessionDraft, stored.State)
}

func TestSessionService_ScenarioD_IssueStatusKeepsHealth(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()
	f.analyzer.AnalyzeFunc = completeWith(issue("issue-1", models.SeverityCritical), issue("issue-2", models.SeverityInfo))

	f.svc.CreateNewSession(ctx)
	addScreens(t, f, 1)
	require.NoError(t, f.svc.StartAnalysis(ctx))

	require.NoError(t, f.svc.UpdateIssueStatus(ctx, "issue-1", models.StatusFixed))

	state := f.svc.State()
	assert.Equal(t, models.StatusFixed, state.CurrentSession.Issues[0].Status)
	assert.Equal(t, models.HealthCritical, state.CurrentSession.OverallHealth)
	assert.Equal(t, models.SessionCompleted, state.CurrentSession.State)

	stored := f.repo.GetByID(ctx, state.CurrentSession.ID)
	require.NotNil(t, stored)
	assert.Equal(t, models.StatusFixed, stored.Issues[0].Status)
}

func TestSessionService_ScenarioE_DeleteOtherSession(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()

	first := f.svc.CreateNewSession(ctx)
	addScreens(t, f, 1)
	require.NoError(t, f.svc.StartAnalysis(ctx))
	second := f.svc.CreateNewSession(ctx)
	addScreens(t, f, 1)
	require.NoError(t, f.svc.StartAnalysis(ctx))
	require.Len(t, f.svc.State().Sessions, 2)

	assert.True(t, f.svc.DeleteSession(ctx, first.ID))

	state := f.svc.State()
	require.Len(t, state.Sessions, 1)
	assert.Equal(t, second.ID, state.Sessions[0].ID)
	require.NotNil(t, state.CurrentSession)
	assert.Equal(t, second.ID, state.CurrentSession.ID)
}

func TestSessionService_DeleteCurrentClearsIt(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()

	s := f.svc.CreateNewSession(ctx)
	addScreens(t, f, 1)
	require.NoError(t, f.svc.StartAnalysis(ctx))

	assert.True(t, f.svc.DeleteSession(ctx, s.ID))
	state := f.svc.State()
	assert.Nil(t, state.CurrentSession)
	assert.Empty(t, state.Sessions)
}

func TestSessionService_DeleteStoreFailure(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()
	f.repo.DeleteFunc = func(ctx context.Context, id string) error { return errors.New("disk full") }

	assert.False(t, f.svc.DeleteSession(ctx, "whatever"))
	assert.NotEmpty(t, f.svc.State().Error)
}

func TestSessionService_StartWithoutSession(t *testing.T) {
	f := newOrchestrator(t, 0)

	err := f.svc.StartAnalysis(context.Background())

	require.Error(t, err)
	assert.Equal(t, "No active session found. Please start a new review.", f.svc.State().Error)
}

func TestSessionService_EditingCompletedSessionReturnsToDraft(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()
	f.analyzer.AnalyzeFunc = completeWith(issue("issue-1", models.SeverityAttention))

	f.svc.CreateNewSession(ctx)
	addScreens(t, f, 1)
	require.NoError(t, f.svc.StartAnalysis(ctx))

	opts := models.DefaultAnalysisOptions()
	opts.Strictness = models.StrictnessLight
	require.NoError(t, f.svc.UpdateSession(ctx, services.SessionUpdate{Options: &opts}))
	assert.Equal(t, models.SessionDraft, f.svc.State().CurrentSession.State)

	require.NoError(t, f.svc.StartAnalysis(ctx))
	assert.Equal(t, models.SessionCompleted, f.svc.State().CurrentSession.State)

	addScreens(t, f, 1)
	state := f.svc.State()
	assert.Equal(t, models.SessionDraft, state.CurrentSession.State)
	stored := f.repo.GetByID(ctx, state.CurrentSession.ID)
	require.NotNil(t, stored)
	assert.Equal(t, models.SessionDraft, stored.State)
	assert.Len(t, stored.Screens, 2)
}

func TestSessionService_UpdateRejectsNonDraftState(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()
	f.svc.CreateNewSession(ctx)

	completed := models.SessionCompleted
	err := f.svc.UpdateSession(ctx, services.SessionUpdate{State: &completed})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
	assert.Equal(t, models.SessionDraft, f.svc.State().CurrentSession.State)
}

func TestSessionService_DraftIsNotPersisted(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()

	f.svc.CreateNewSession(ctx)
	addScreens(t, f, 3)

	assert.Equal(t, 0, f.repo.SaveCount())
	assert.Empty(t, f.svc.State().Sessions)
}

func TestSessionService_ScreenIntents(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()
	f.svc.CreateNewSession(ctx)

	a, err := f.svc.AddScreen(ctx, "", models.ScreenURL, "https://shop.example.com/checkout")
	require.NoError(t, err)
	assert.Equal(t, "shop.example.com", a.Name)
	b, err := f.svc.AddScreen(ctx, "Upload", models.ScreenUpload, "data:image/png;base64,iVBORw0KGgo=")
	require.NoError(t, err)
	c, err := f.svc.AddScreen(ctx, "", models.ScreenUpload, "/tmp/screens/home.png")
	require.NoError(t, err)
	assert.Equal(t, "home.png", c.Name)

	_, err = f.svc.AddScreen(ctx, "bad", models.ScreenURL, "ftp://example.com/x.png")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
	_, err = f.svc.AddScreen(ctx, "bad", models.ScreenUpload, "data:text/plain,hello")
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))

	require.NoError(t, f.svc.ReorderScreens(ctx, []string{c.ID, a.ID, b.ID}))
	screens := f.svc.State().CurrentSession.Screens
	require.Len(t, screens, 3)
	assert.Equal(t, []string{c.ID, a.ID, b.ID}, []string{screens[0].ID, screens[1].ID, screens[2].ID})
	assert.Equal(t, []int{0, 1, 2}, []int{screens[0].Order, screens[1].Order, screens[2].Order})

	require.NoError(t, f.svc.RenameScreen(ctx, a.ID, "Checkout"))
	require.NoError(t, f.svc.RemoveScreen(ctx, c.ID))
	screens = f.svc.State().CurrentSession.Screens
	require.Len(t, screens, 2)
	assert.Equal(t, "Checkout", screens[0].Name)
	assert.Equal(t, 0, screens[0].Order)
	assert.Equal(t, 1, screens[1].Order)

	err = f.svc.RemoveScreen(ctx, "missing")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	err = f.svc.ReorderScreens(ctx, []string{a.ID})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}

func TestSessionService_RunningSnapshotWriteFailureBlocksRun(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()
	called := false
	f.analyzer.AnalyzeFunc = func(ctx context.Context, s models.Session) (*models.Session, error) {
		called = true
		return nil, nil
	}
	f.repo.SaveFunc = func(ctx context.Context, s models.Session) error { return errors.New("read-only database") }

	f.svc.CreateNewSession(ctx)
	addScreens(t, f, 1)
	err := f.svc.StartAnalysis(ctx)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrPersistenceWrite))
	assert.False(t, called)
	state := f.svc.State()
	assert.Equal(t, models.SessionDraft, state.CurrentSession.State)
	assert.False(t, state.Loading)
	assert.NotEmpty(t, state.Error)
}

func TestSessionService_GuardsWhileRunning(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newOrchestrator(t, 0)
	ctx := context.Background()
	release := make(chan struct{})
	f.analyzer.AnalyzeFunc = func(ctx context.Context, s models.Session) (*models.Session, error) {
		<-release
		return completeWith(issue("issue-1", models.SeverityInfo))(ctx, s)
	}

	s := f.svc.CreateNewSession(ctx)
	addScreens(t, f, 1)

	done := make(chan error, 1)
	go func() { done <- f.svc.StartAnalysis(ctx) }()
	require.Eventually(t, func() bool { return f.svc.State().Loading }, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, models.SessionRunning, f.svc.State().CurrentSession.State)
	err := f.svc.StartAnalysis(ctx)
	require.Error(t, err)
	assert.Equal(t, "Analysis is already in progress.", apperrors.UserMessage(err))

	deleteCalls := 0
	f.repo.DeleteFunc = func(ctx context.Context, id string) error {
		deleteCalls++
		return nil
	}
	assert.False(t, f.svc.DeleteSession(ctx, s.ID))
	assert.Equal(t, "Cannot delete session while analysis is in progress.", f.svc.State().Error)
	assert.Zero(t, deleteCalls)
	stored := f.repo.GetByID(ctx, s.ID)
	require.NotNil(t, stored)
	assert.Equal(t, models.SessionRunning, stored.State)
	assert.Len(t, f.svc.State().Sessions, 1)

	opts := models.DefaultAnalysisOptions()
	assert.Error(t, f.svc.UpdateSession(ctx, services.SessionUpdate{Options: &opts}))

	close(release)
	require.NoError(t, <-done)
	state := f.svc.State()
	assert.Equal(t, models.SessionCompleted, state.CurrentSession.State)
	assert.Empty(t, state.Error)
}

func TestSessionService_CancelAfterSuccessKeepsResult(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()
	f.analyzer.AnalyzeFunc = func(ctx context.Context, s models.Session) (*models.Session, error) {
		assert.True(t, f.svc.CancelAnalysis())
		return completeWith(issue("issue-1", models.SeverityAttention))(ctx, s)
	}

	s := f.svc.CreateNewSession(ctx)
	addScreens(t, f, 1)

	require.NoError(t, f.svc.StartAnalysis(ctx))
	state := f.svc.State()
	assert.Equal(t, models.SessionCompleted, state.CurrentSession.State)
	assert.Len(t, state.CurrentSession.Issues, 1)
	assert.Empty(t, state.Error)
	assert.Equal(t, models.SessionCompleted, f.repo.GetByID(ctx, s.ID).State)
}

func TestSessionService_CancelAnalysis(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newOrchestrator(t, 0)
	ctx := context.Background()
	f.analyzer.AnalyzeFunc = func(ctx context.Context, s models.Session) (*models.Session, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	f.svc.CreateNewSession(ctx)
	addScreens(t, f, 2)
	screens := f.svc.State().CurrentSession.Screens

	assert.False(t, f.svc.CancelAnalysis())

	done := make(chan error, 1)
	go func() { done <- f.svc.StartAnalysis(ctx) }()
	require.Eventually(t, func() bool { return f.svc.State().Loading }, 2*time.Second, 5*time.Millisecond)

	assert.True(t, f.svc.CancelAnalysis())
	err := <-done

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCancelled))
	state := f.svc.State()
	assert.Equal(t, models.SessionDraft, state.CurrentSession.State)
	assert.Equal(t, "Analysis was cancelled.", state.Error)
	assert.Equal(t, screens, state.CurrentSession.Screens)
	assert.False(t, f.svc.CancelAnalysis())

	evt, ok := f.events.last(events.AnalysisProgress)
	require.True(t, ok)
	assert.Equal(t, events.EventWarn, evt.Type)
}

func TestSessionService_AnalysisTimeout(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := newOrchestrator(t, 20*time.Millisecond)
	ctx := context.Background()
	f.analyzer.AnalyzeFunc = func(ctx context.Context, s models.Session) (*models.Session, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	f.svc.CreateNewSession(ctx)
	addScreens(t, f, 1)
	err := f.svc.StartAnalysis(ctx)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, models.SessionDraft, f.svc.State().CurrentSession.State)
}

func TestSessionService_SelectSession(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()

	first := f.svc.CreateNewSession(ctx)
	addScreens(t, f, 1)
	require.NoError(t, f.svc.StartAnalysis(ctx))
	f.svc.CreateNewSession(ctx)

	require.NoError(t, f.svc.SelectSession(ctx, first.ID))
	assert.Equal(t, first.ID, f.svc.State().CurrentSession.ID)

	err := f.svc.SelectSession(ctx, "missing")
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.Equal(t, first.ID, f.svc.State().CurrentSession.ID)

	f.svc.ClearError(ctx)
	assert.Empty(t, f.svc.State().Error)
}

func TestSessionService_SelectInterruptedRunRevertsToDraft(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()
	stale := models.NewSession("stale", time.Now().UTC(), models.DefaultAnalysisOptions())
	stale.State = models.SessionRunning
	require.NoError(t, f.repo.Save(ctx, stale))
	f.svc.Startup(ctx)

	require.NoError(t, f.svc.SelectSession(ctx, "stale"))
	assert.Equal(t, models.SessionDraft, f.svc.State().CurrentSession.State)
}

func TestSessionService_RecheckIssueDelegates(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()
	f.analyzer.AnalyzeFunc = completeWith(issue("issue-1", models.SeverityAttention))
	f.analyzer.RecheckIssueFunc = func(ctx context.Context, issueID string, s models.Session) (models.IssueStatus, error) {
		assert.Equal(t, "issue-1", issueID)
		assert.Len(t, s.Issues, 1)
		return models.StatusFixed, nil
	}

	f.svc.CreateNewSession(ctx)
	addScreens(t, f, 1)
	require.NoError(t, f.svc.StartAnalysis(ctx))

	status, err := f.svc.RecheckIssue(ctx, "issue-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFixed, status)
	assert.Equal(t, models.StatusOpen, f.svc.State().CurrentSession.Issues[0].Status)
}

func TestSessionService_EmitsStateSnapshots(t *testing.T) {
	f := newOrchestrator(t, 0)
	ctx := context.Background()

	s := f.svc.CreateNewSession(ctx)

	evt, ok := f.events.last(events.SessionState)
	require.True(t, ok)
	assert.Equal(t, events.EventState, evt.Type)
	assert.Equal(t, s.ID, evt.SessionID)
	snap, ok := evt.Payload.(services.Snapshot)
	require.True(t, ok)
	require.NotNil(t, snap.CurrentSession)
	assert.Equal(t, s.ID, snap.CurrentSession.ID)
}

func TestSessionService_DefaultOptionsFromSettings(t *testing.T) {
	repo := &mocks.AppSettingsRepositoryMock{
		GetFunc: func(ctx context.Context) (*models.AppSettings, error) {
			return &models.AppSettings{ID: 1, DefaultSequential: true, DefaultStrictness: models.StrictnessStrict}, nil
		},
	}
	svc := services.NewSessionService(services.SessionServiceConfig{
		Repo:     &mocks.SessionRepositoryMock{},
		Analyzer: &mocks.AnalyzerMock{},
		Settings: services.NewAppSettingsService(repo, nil),
	})

	s := svc.CreateNewSession(context.Background())

	assert.Equal(t, models.AnalysisOptions{Sequential: true, Strictness: models.StrictnessStrict}, s.Options)
	assert.Equal(t, models.SessionDraft, s.State)
	assert.Equal(t, models.HealthOK, s.OverallHealth)
}
