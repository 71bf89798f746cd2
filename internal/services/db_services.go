package services

import (
	"context"
	"fmt"
	"net/http"
	"uxreview/internal/config"
	"uxreview/internal/events"
	"uxreview/internal/logging"
	"uxreview/internal/repositories"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DbServices aggregates the review services backed by the database.
type DbServices struct {
	Sessions     *SessionService
	Analysis     *AnalysisService
	AppSettings  AppSettingsService
	ModelConfigs ModelConfigService
	SessionRepo  repositories.SessionRepository
}

type Dependencies struct {
	Config     config.Config
	Keys       KeyResolver
	HTTPClient *http.Client
	NewModel   VisionModelFactory
	Emit       func(ctx context.Context, name string, evt events.Event)
	Logger     *zap.Logger
}

// NewDbServices constructs the service container using repositories backed by db.
func NewDbServices(db *gorm.DB, deps Dependencies) *DbServices {
	logger := logging.OrNop(deps.Logger)

	kvRepo := repositories.NewKVRepository(db)
	sessionRepo := repositories.NewSessionRepository(kvRepo, logger.Named("sessions"))
	settingsRepo := repositories.NewAppSettingsRepository(db)
	modelSettingRepo := repositories.NewModelSettingRepository(db)

	modelConfigs := NewModelConfigService(modelSettingRepo)
	appSettings := NewAppSettingsService(settingsRepo, modelConfigs)

	images := NewImageResolver(ImageResolverConfig{
		HTTPClient:   deps.HTTPClient,
		FetchTimeout: deps.Config.FetchTimeout,
		MaxFetches:   deps.Config.MaxFetches,
		Logger:       logger.Named("images"),
	})
	analysis := NewAnalysisService(AnalysisServiceConfig{
		Models: modelConfigs,
		Keys:   deps.Keys,
		Images: images,
		PreferredModel: func(ctx context.Context) string {
			if deps.Config.ModelKey != "" {
				return deps.Config.ModelKey
			}
			settings, err := appSettings.Get(ctx)
			if err != nil {
				logger.Warn("read default model", zap.Error(err))
				return ""
			}
			return settings.DefaultModelKey
		},
		NewModel: deps.NewModel,
		Logger:   logger.Named("analysis"),
	})
	sessions := NewSessionService(SessionServiceConfig{
		Repo:            sessionRepo,
		Analyzer:        analysis,
		Settings:        appSettings,
		AnalysisTimeout: deps.Config.AnalysisTimeout,
		Emit:            deps.Emit,
		Logger:          logger.Named("orchestrator"),
	})

	return &DbServices{
		Sessions:     sessions,
		Analysis:     analysis,
		AppSettings:  appSettings,
		ModelConfigs: modelConfigs,
		SessionRepo:  sessionRepo,
	}
}

// StartDbServices loads the model catalog and the session history.
func (s *DbServices) StartDbServices(ctx context.Context) error {
	if err := s.ModelConfigs.Startup(ctx); err != nil {
		return fmt.Errorf("start model catalog: %w", err)
	}
	s.Sessions.Startup(ctx)
	return nil
}
