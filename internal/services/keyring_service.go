package services

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"uxreview/internal/config"

	"github.com/99designs/keyring"
)

const serviceName = "uxreview"

// OpenKeyring opens the OS credential store for the application.
func OpenKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:              serviceName,
		KeychainTrustApplication: true,
		LibSecretCollectionName:  serviceName,
	})
	if err != nil {
		return nil, fmt.Errorf("open keyring: %w", err)
	}
	return ring, nil
}

// KeyringService stores provider API keys and resolves them for the
// analysis pipeline, preferring the environment.
type KeyringService struct {
	ring   keyring.Keyring
	getenv func(string) string
}

func NewKeyringService(ring keyring.Keyring) *KeyringService {
	return &KeyringService{ring: ring, getenv: os.Getenv}
}

// WithEnv replaces the environment lookup, mainly for tests.
func (s *KeyringService) WithEnv(getenv func(string) string) *KeyringService {
	s.getenv = getenv
	return s
}

func (s *KeyringService) StoreApiKey(provider string, apiKey []byte) error {
	if len(apiKey) == 0 {
		return errors.New("API key is empty")
	}
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return errors.New("provider is required")
	}
	if s.ring == nil {
		return errors.New("keyring not available")
	}
	return s.ring.Set(keyring.Item{
		Key:         provider,
		Data:        apiKey,
		Label:       provider + " API key",
		Description: "API key for " + provider + " used by UX Review",
	})
}

// GetApiKey returns the stored key, or "" when none is stored.
func (s *KeyringService) GetApiKey(provider string) (string, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return "", errors.New("provider is required")
	}
	if s.ring == nil {
		return "", nil
	}
	item, err := s.ring.Get(provider)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", nil
		}
		return "", err
	}
	return string(item.Data), nil
}

func (s *KeyringService) DeleteApiKey(provider string) error {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return errors.New("provider is required")
	}
	if s.ring == nil {
		return errors.New("keyring not available")
	}
	if err := s.ring.Remove(provider); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

func (s *KeyringService) ListApiKeys() ([]map[string]string, error) {
	if s.ring == nil {
		return nil, nil
	}
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	results := make([]map[string]string, 0, len(keys))
	for _, provider := range keys {
		results = append(results, map[string]string{
			"provider":    provider,
			"label":       provider + " API key",
			"description": "API key for " + provider + " used by UX Review",
		})
	}
	return results, nil
}

// ResolveApiKey returns the key for provider from its environment variable,
// falling back to the keyring.
func (s *KeyringService) ResolveApiKey(provider string) (string, error) {
	if envName, ok := config.APIKeyEnv[provider]; ok && s.getenv != nil {
		if v := strings.TrimSpace(s.getenv(envName)); v != "" {
			return v, nil
		}
	}
	return s.GetApiKey(provider)
}
