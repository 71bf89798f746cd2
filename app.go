package main

import (
	"context"
	"uxreview/internal/models"
	"uxreview/internal/services"

	"github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"
)

// App exposes the review intents to the frontend.
type App struct {
	ctx          context.Context
	Sessions     *services.SessionService
	AppSettings  services.AppSettingsService
	ModelConfigs services.ModelConfigService
	Keys         *services.KeyringService
	logger       *zap.Logger
	dbClose      func() error
}

// NewApp creates a new App application struct
func NewApp(db *services.DbServices, keys *services.KeyringService, logger *zap.Logger) *App {
	return &App{
		ctx:          context.Background(),
		Sessions:     db.Sessions,
		AppSettings:  db.AppSettings,
		ModelConfigs: db.ModelConfigs,
		Keys:         keys,
		logger:       logger,
	}
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// shutdown is called when the app is closing.
func (a *App) shutdown(ctx context.Context) {
	a.Sessions.CancelAnalysis()

	if a.dbClose != nil {
		if err := a.dbClose(); err != nil {
			a.logger.Error("failed to close database", zap.Error(err))
		} else {
			a.logger.Info("database closed")
		}
		a.dbClose = nil
	}
}

func (a *App) GetState() services.Snapshot {
	return a.Sessions.State()
}

func (a *App) ClearError() {
	a.Sessions.ClearError(a.ctx)
}

func (a *App) CreateNewSession() models.Session {
	return a.Sessions.CreateNewSession(a.ctx)
}

func (a *App) UpdateSession(update services.SessionUpdate) error {
	return a.Sessions.UpdateSession(a.ctx, update)
}

func (a *App) AddScreen(name, screenType, previewURL string) (models.Screen, error) {
	return a.Sessions.AddScreen(a.ctx, name, models.ScreenType(screenType), previewURL)
}

func (a *App) RemoveScreen(screenID string) error {
	return a.Sessions.RemoveScreen(a.ctx, screenID)
}

func (a *App) RenameScreen(screenID, name string) error {
	return a.Sessions.RenameScreen(a.ctx, screenID, name)
}

func (a *App) ReorderScreens(screenIDs []string) error {
	return a.Sessions.ReorderScreens(a.ctx, screenIDs)
}

// StartAnalysis blocks until the run finishes. Progress and state changes
// reach the frontend as events while it runs.
func (a *App) StartAnalysis() error {
	return a.Sessions.StartAnalysis(a.ctx)
}

func (a *App) CancelAnalysis() bool {
	return a.Sessions.CancelAnalysis()
}

func (a *App) SelectSession(id string) error {
	return a.Sessions.SelectSession(a.ctx, id)
}

func (a *App) DeleteSession(id string) bool {
	return a.Sessions.DeleteSession(a.ctx, id)
}

func (a *App) UpdateIssueStatus(issueID, status string) error {
	return a.Sessions.UpdateIssueStatus(a.ctx, issueID, models.IssueStatus(status))
}

func (a *App) RecheckIssue(issueID string) (string, error) {
	status, err := a.Sessions.RecheckIssue(a.ctx, issueID)
	return string(status), err
}

// SelectScreenshots opens a native picker for screenshot files
func (a *App) SelectScreenshots() ([]string, error) {
	return runtime.OpenMultipleFilesDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Select Screenshots",
		Filters: []runtime.FileFilter{
			{DisplayName: "Images", Pattern: "*.png;*.jpg;*.jpeg;*.webp;*.gif"},
		},
	})
}

func (a *App) GetAppSettings() (*models.AppSettings, error) {
	return a.AppSettings.Get(a.ctx)
}

func (a *App) UpdateAppSettings(theme, locale string) (*models.AppSettings, error) {
	return a.AppSettings.Update(a.ctx, theme, locale)
}

func (a *App) SetDefaultModel(modelKey string) (*models.AppSettings, error) {
	return a.AppSettings.SetDefaultModel(a.ctx, modelKey)
}

func (a *App) SetDefaultOptions(options models.AnalysisOptions) (*models.AppSettings, error) {
	return a.AppSettings.SetDefaultOptions(a.ctx, options)
}

func (a *App) ListModelGroups() ([]models.LLMModelGroup, error) {
	return a.ModelConfigs.ListModelGroups()
}

func (a *App) SetModelEnabled(modelKey string, enabled bool) (*models.LLMModel, error) {
	return a.ModelConfigs.SetModelEnabled(a.ctx, modelKey, enabled)
}

func (a *App) StoreApiKey(provider, apiKey string) error {
	if err := a.Keys.StoreApiKey(provider, []byte(apiKey)); err != nil {
		a.logger.Error("failed to store api key", zap.String("provider", provider), zap.Error(err))
		return err
	}
	return nil
}

func (a *App) DeleteApiKey(provider string) error {
	return a.Keys.DeleteApiKey(provider)
}

func (a *App) ListApiKeys() ([]map[string]string, error) {
	return a.Keys.ListApiKeys()
}
