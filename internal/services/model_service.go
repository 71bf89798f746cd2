package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"uxreview/internal/assets"
	"uxreview/internal/models"
	"uxreview/internal/repositories"
)

type ModelConfigService interface {
	Startup(ctx context.Context) error
	ListModelGroups() ([]models.LLMModelGroup, error)
	SetModelEnabled(ctx context.Context, modelKey string, enabled bool) (*models.LLMModel, error)
	GetModel(modelKey string) (*models.LLMModel, error)
	// ResolveModel returns the model to analyse with: preferredKey when set
	// and enabled, otherwise the first enabled model in catalog order.
	ResolveModel(preferredKey string) (*models.LLMModel, error)
}

// visionCatalog is the embedded models.json.
type visionCatalog struct {
	Providers []struct {
		ID           string `json:"id"`
		DisplayName  string `json:"displayName"`
		NativeSchema bool   `json:"nativeSchema"`
		Models       []struct {
			DisplayName string `json:"displayName"`
			APIName     string `json:"apiName"`
		} `json:"models"`
	} `json:"providers"`
}

type modelConfigService struct {
	repo repositories.ModelSettingRepository
	raw  []byte

	mu      sync.RWMutex
	entries []models.LLMModel // catalog order; Enabled is kept in enabled
	index   map[string]int
	enabled map[string]bool
}

func NewModelConfigService(repo repositories.ModelSettingRepository) ModelConfigService {
	return newModelConfigService(repo, assets.ModelsData)
}

func newModelConfigService(repo repositories.ModelSettingRepository, raw []byte) *modelConfigService {
	return &modelConfigService{
		repo:    repo,
		raw:     raw,
		index:   make(map[string]int),
		enabled: make(map[string]bool),
	}
}

func parseVisionCatalog(raw []byte) ([]models.LLMModel, error) {
	var catalog visionCatalog
	if err := json.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("parse models asset: %w", err)
	}

	var entries []models.LLMModel
	seen := make(map[string]bool)
	for _, p := range catalog.Providers {
		providerID := strings.TrimSpace(p.ID)
		if providerID == "" {
			continue
		}
		providerName := strings.TrimSpace(p.DisplayName)
		if providerName == "" {
			providerName = providerID
		}
		for _, m := range p.Models {
			apiName := strings.TrimSpace(m.APIName)
			if apiName == "" {
				continue
			}
			key := ModelKey(providerID, apiName)
			if seen[key] {
				return nil, fmt.Errorf("models asset lists %s twice", key)
			}
			seen[key] = true
			displayName := strings.TrimSpace(m.DisplayName)
			if displayName == "" {
				displayName = apiName
			}
			entries = append(entries, models.LLMModel{
				Key:          key,
				DisplayName:  displayName,
				APIName:      apiName,
				ProviderID:   providerID,
				ProviderName: providerName,
				NativeSchema: p.NativeSchema,
			})
		}
	}
	return entries, nil
}

// Startup loads the catalog and the stored toggles. Models without a stored
// toggle are seeded as enabled.
func (s *modelConfigService) Startup(ctx context.Context) error {
	entries, err := parseVisionCatalog(s.raw)
	if err != nil {
		return err
	}

	enabled := make(map[string]bool, len(entries))
	if s.repo != nil {
		stored, err := s.repo.List(ctx)
		if err != nil {
			return fmt.Errorf("load model settings: %w", err)
		}
		for _, setting := range stored {
			enabled[setting.ModelKey] = setting.Enabled
		}
	}
	for _, entry := range entries {
		if _, ok := enabled[entry.Key]; ok {
			continue
		}
		if s.repo != nil {
			if _, err := s.repo.Upsert(ctx, entry.Key, entry.ProviderID, true); err != nil {
				return fmt.Errorf("seed model setting for %s: %w", entry.Key, err)
			}
		}
		enabled[entry.Key] = true
	}

	index := make(map[string]int, len(entries))
	for i, entry := range entries {
		index[entry.Key] = i
	}

	s.mu.Lock()
	s.entries = entries
	s.index = index
	s.enabled = enabled
	s.mu.Unlock()
	return nil
}

// ListModelGroups groups models by provider in catalog order, sorting the
// models of each provider by display name.
func (s *modelConfigService) ListModelGroups() ([]models.LLMModelGroup, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var groups []models.LLMModelGroup
	byProvider := make(map[string]int)
	for i := range s.entries {
		model := s.modelLocked(i)
		at, ok := byProvider[model.ProviderID]
		if !ok {
			at = len(groups)
			byProvider[model.ProviderID] = at
			groups = append(groups, models.LLMModelGroup{
				ProviderID:   model.ProviderID,
				ProviderName: model.ProviderName,
			})
		}
		groups[at].Models = append(groups[at].Models, model)
	}
	for _, group := range groups {
		list := group.Models
		sort.SliceStable(list, func(i, j int) bool {
			return strings.ToLower(list[i].DisplayName) < strings.ToLower(list[j].DisplayName)
		})
	}
	if groups == nil {
		groups = []models.LLMModelGroup{}
	}
	return groups, nil
}

func (s *modelConfigService) SetModelEnabled(ctx context.Context, modelKey string, enabled bool) (*models.LLMModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, err := s.lookupLocked(modelKey)
	if err != nil {
		return nil, err
	}
	if s.repo != nil {
		if _, err := s.repo.Upsert(ctx, s.entries[i].Key, s.entries[i].ProviderID, enabled); err != nil {
			return nil, fmt.Errorf("save model setting: %w", err)
		}
	}
	s.enabled[s.entries[i].Key] = enabled
	model := s.modelLocked(i)
	return &model, nil
}

func (s *modelConfigService) GetModel(modelKey string) (*models.LLMModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, err := s.lookupLocked(modelKey)
	if err != nil {
		return nil, err
	}
	model := s.modelLocked(i)
	return &model, nil
}

func (s *modelConfigService) ResolveModel(preferredKey string) (*models.LLMModel, error) {
	if strings.TrimSpace(preferredKey) != "" {
		model, err := s.GetModel(preferredKey)
		if err != nil {
			return nil, err
		}
		if !model.Enabled {
			return nil, fmt.Errorf("model %s is disabled", model.DisplayName)
		}
		return model, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, entry := range s.entries {
		if s.enabled[entry.Key] {
			model := s.modelLocked(i)
			return &model, nil
		}
	}
	return nil, fmt.Errorf("no vision model is enabled")
}

func (s *modelConfigService) lookupLocked(modelKey string) (int, error) {
	modelKey = strings.TrimSpace(modelKey)
	if modelKey == "" {
		return 0, fmt.Errorf("model key is required")
	}
	i, ok := s.index[modelKey]
	if !ok {
		return 0, fmt.Errorf("model %s not found", modelKey)
	}
	return i, nil
}

func (s *modelConfigService) modelLocked(i int) models.LLMModel {
	model := s.entries[i]
	model.Enabled = s.enabled[model.Key]
	return model
}

// ModelKey identifies a catalog model as provider|apiName.
func ModelKey(providerID, apiName string) string {
	return strings.TrimSpace(providerID) + "|" + strings.TrimSpace(apiName)
}
