package services

import (
	"context"
	"errors"
	"time"

	"uxreview/internal/models"
	"uxreview/internal/repositories"
)

type AppSettingsService interface {
	Get(ctx context.Context) (*models.AppSettings, error)
	Update(ctx context.Context, theme, locale string) (*models.AppSettings, error)
	SetDefaultModel(ctx context.Context, modelKey string) (*models.AppSettings, error)
	SetDefaultOptions(ctx context.Context, options models.AnalysisOptions) (*models.AppSettings, error)
}

type appSettingsService struct {
	appSettings repositories.AppSettingsRepository
	models      ModelConfigService
}

func NewAppSettingsService(appSettings repositories.AppSettingsRepository, models ModelConfigService) AppSettingsService {
	return &appSettingsService{appSettings: appSettings, models: models}
}

func (s *appSettingsService) Get(ctx context.Context) (*models.AppSettings, error) {
	return s.appSettings.Get(ctx)
}

func (s *appSettingsService) Update(ctx context.Context, theme, locale string) (*models.AppSettings, error) {
	if theme == "" {
		return nil, errors.New("theme is required")
	}
	if locale == "" {
		return nil, errors.New("locale is required")
	}

	// Validate theme values
	if theme != "light" && theme != "dark" && theme != "system" {
		return nil, errors.New("theme must be 'light', 'dark', or 'system'")
	}

	return s.mutate(ctx, func(current *models.AppSettings) {
		current.Theme = theme
		current.Locale = locale
	})
}

// SetDefaultModel records the model used for new analyses; "" restores the
// catalog default.
func (s *appSettingsService) SetDefaultModel(ctx context.Context, modelKey string) (*models.AppSettings, error) {
	if modelKey != "" && s.models != nil {
		if _, err := s.models.GetModel(modelKey); err != nil {
			return nil, err
		}
	}
	return s.mutate(ctx, func(current *models.AppSettings) {
		current.DefaultModelKey = modelKey
	})
}

func (s *appSettingsService) SetDefaultOptions(ctx context.Context, options models.AnalysisOptions) (*models.AppSettings, error) {
	if !options.Strictness.Valid() {
		return nil, errors.New("strictness must be 'light', 'normal', or 'strict'")
	}
	return s.mutate(ctx, func(current *models.AppSettings) {
		current.DefaultSequential = options.Sequential
		current.DefaultStrictness = options.Strictness
		current.DefaultAccessibilityFocus = options.AccessibilityFocus
	})
}

func (s *appSettingsService) mutate(ctx context.Context, apply func(*models.AppSettings)) (*models.AppSettings, error) {
	current, err := s.appSettings.Get(ctx)
	if err != nil {
		return nil, err
	}
	apply(current)
	current.UpdatedAt = time.Now()

	if err := s.appSettings.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}
