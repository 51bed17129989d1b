package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.Classification.Provider)
	assert.Equal(t, "gemini-2.0-pro-exp-02-05", cfg.Classification.Model)
	assert.Equal(t, 5, cfg.Classification.RoundBudget)
	assert.Equal(t, 500, cfg.Classification.ChunkSize)
	assert.Equal(t, 15000, cfg.Classification.MaxAuthors)
	assert.Equal(t, 100, cfg.YouTube.PageSize)
	assert.Equal(t, 8000, cfg.Server.Port)
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
classification:
  provider: openai
  chunk_size: 200
server:
  port: 9000
`)
	cfg, err := parse(data)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Classification.Provider)
	assert.Equal(t, 200, cfg.Classification.ChunkSize)
	assert.Equal(t, 9000, cfg.Server.Port)
	// Defaults should still be set for unspecified fields
	assert.Equal(t, 5, cfg.Classification.RoundBudget)
	assert.Equal(t, "YOUTUBE_API_KEY", cfg.YouTube.APIKeyEnv)
	assert.Equal(t, "http://localhost:11434", cfg.Classification.OllamaURL)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero rounds", "classification:\n  round_budget: 0\n"},
		{"zero chunk", "classification:\n  chunk_size: 0\n"},
		{"negative authors", "classification:\n  max_authors: -1\n"},
		{"page size too large", "youtube:\n  page_size: 101\n"},
		{"malformed yaml", "classification: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  dir: /tmp/exports\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/exports", cfg.Output.Dir)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Classification.Provider)
}

func TestResolveConfigPathExplicitMissing(t *testing.T) {
	_, err := ResolveConfigPath(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestYouTubeAPIKeyFromEnv(t *testing.T) {
	t.Setenv("TEST_YT_KEY", "secret")
	cfg := &Config{YouTube: YouTube{APIKeyEnv: "TEST_YT_KEY"}}
	assert.Equal(t, "secret", cfg.YouTubeAPIKey())
}
