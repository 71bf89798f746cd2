package repositories

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
	"uxreview/internal/apperrors"
	"uxreview/internal/database"
	"uxreview/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Init(database.Config{
		Path:   filepath.Join(t.TempDir(), "test.db"),
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func newTestSession(id string) models.Session {
	s := models.NewSession(id, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), models.DefaultAnalysisOptions())
	s.Screens = []models.Screen{{ID: id + "-screen", Name: "Home", Type: models.ScreenURL, PreviewURL: "https://example.com", Order: 0}}
	s.SetIssues([]models.Issue{{
		ID: "issue-1", ScreenID: id + "-screen", Title: "Weak CTA", Severity: models.SeverityCritical,
		Confidence: models.ConfidenceMedium, Evidence: "Grey button", Description: "Grey button",
		Impact: "Missed clicks", Recommendation: "Use the brand colour", Status: models.StatusOpen,
		Anchors: models.Anchors{models.RectAnchor{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.05}},
	}})
	s.State = models.SessionCompleted
	return s
}

type failingKV struct {
	getErr error
	putErr error
	value  string
}

func (f *failingKV) Get(ctx context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	return f.value, f.value != "", nil
}

func (f *failingKV) Put(ctx context.Context, key, value string) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.value = value
	return nil
}

func (f *failingKV) Delete(ctx context.Context, key string) error { return nil }

func TestSessionRepository_SaveAndGetByID(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(NewKVRepository(openTestDB(t)), zaptest.NewLogger(t))

	s := newTestSession("a")
	require.NoError(t, repo.Save(ctx, s))

	got := repo.GetByID(ctx, "a")
	require.NotNil(t, got)
	assert.Equal(t, s, *got)
	assert.Nil(t, repo.GetByID(ctx, "missing"))
}

func TestSessionRepository_SaveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(NewKVRepository(openTestDB(t)), nil)

	s := newTestSession("a")
	require.NoError(t, repo.Save(ctx, s))
	require.NoError(t, repo.Save(ctx, s))

	all := repo.GetAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, s, all[0])
}

func TestSessionRepository_NewestFirstAndReplaceInPlace(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(NewKVRepository(openTestDB(t)), nil)

	require.NoError(t, repo.Save(ctx, newTestSession("a")))
	require.NoError(t, repo.Save(ctx, newTestSession("b")))
	require.NoError(t, repo.Save(ctx, newTestSession("c")))

	updated := newTestSession("a")
	updated.State = models.SessionDraft
	require.NoError(t, repo.Save(ctx, updated))

	all := repo.GetAll(ctx)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ID, all[1].ID, all[2].ID})
	assert.Equal(t, models.SessionDraft, all[2].State)
}

func TestSessionRepository_DeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(NewKVRepository(openTestDB(t)), nil)

	require.NoError(t, repo.Save(ctx, newTestSession("a")))
	require.NoError(t, repo.Save(ctx, newTestSession("b")))

	require.NoError(t, repo.Delete(ctx, "a"))
	require.NoError(t, repo.Delete(ctx, "a"))
	require.NoError(t, repo.Delete(ctx, "never-existed"))

	all := repo.GetAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].ID)
}

func TestSessionRepository_EmptyAndCorruptBlob(t *testing.T) {
	ctx := context.Background()
	kv := NewKVRepository(openTestDB(t))
	repo := NewSessionRepository(kv, zaptest.NewLogger(t))

	assert.Empty(t, repo.GetAll(ctx))

	require.NoError(t, kv.Put(ctx, SessionsKey, "{not json"))
	assert.Empty(t, repo.GetAll(ctx))
	assert.Nil(t, repo.GetByID(ctx, "a"))

	require.NoError(t, repo.Save(ctx, newTestSession("a")))
	all := repo.GetAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, "a", all[0].ID)
}

func TestSessionRepository_ReadFailureAbortsSave(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{getErr: errors.New("disk I/O error")}
	repo := NewSessionRepository(kv, nil)

	err := repo.Save(ctx, newTestSession("a"))

	require.Error(t, err)
	assert.ErrorIs(t, err, kv.getErr)
	assert.Empty(t, kv.value)
	assert.Empty(t, repo.GetAll(ctx))
}

func TestSessionRepository_WriteFailure(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(&failingKV{putErr: errors.New("readonly")}, nil)

	err := repo.Save(ctx, newTestSession("a"))
	assert.True(t, apperrors.Is(err, apperrors.ErrPersistenceWrite))

	err = repo.Delete(ctx, "a")
	assert.True(t, apperrors.Is(err, apperrors.ErrPersistenceWrite))
}

func TestSessionRepository_SaveRequiresID(t *testing.T) {
	repo := NewSessionRepository(&failingKV{}, nil)
	err := repo.Save(context.Background(), models.Session{})
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
}
