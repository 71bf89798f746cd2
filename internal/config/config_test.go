package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv(envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 20*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 4, cfg.MaxFetches)
	assert.Zero(t, cfg.AnalysisTimeout)
}

func TestFromEnvOverrides(t *testing.T) {
	cfg, err := FromEnv(envOf(map[string]string{
		EnvDBPath:          " /tmp/ux.db ",
		EnvModel:           "openai|gpt-4.1",
		EnvAnalysisTimeout: "90s",
		EnvFetchTimeout:    "5s",
		EnvMaxFetches:      "8",
		EnvDebug:           "true",
	}))
	require.NoError(t, err)
	assert.Equal(t, Config{
		DBPath:          "/tmp/ux.db",
		ModelKey:        "openai|gpt-4.1",
		AnalysisTimeout: 90 * time.Second,
		FetchTimeout:    5 * time.Second,
		MaxFetches:      8,
		Debug:           true,
	}, cfg)
}

func TestFromEnvRejectsBadValues(t *testing.T) {
	for key, value := range map[string]string{
		EnvAnalysisTimeout: "soon",
		EnvFetchTimeout:    "-1s",
		EnvMaxFetches:      "0",
		EnvDebug:           "maybe",
	} {
		_, err := FromEnv(envOf(map[string]string{key: value}))
		assert.Error(t, err, key)
	}
}
