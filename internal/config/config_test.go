package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mdmerge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
source_dirs:
  - src/notes
  - archive
output_dir: build/out
title: Project digest
compression:
  enabled: true
  model: haiku
  max_chars: 800
  request_interval_seconds: 1.5
  max_requests_per_run: 10
  principles:
    - keep it short
  content_guard:
    enabled: true
    blocked_topics:
      - "  geopolitics  "
      - ""
      - finance
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/notes", "archive"}, cfg.SourceDirs)
	assert.Equal(t, "build/out", cfg.OutputDir)
	assert.Equal(t, "Project digest", cfg.Title)
	assert.True(t, cfg.Compression.Enabled)
	assert.Equal(t, "haiku", cfg.Compression.Model)
	assert.Equal(t, 800, cfg.Compression.MaxChars)
	assert.Equal(t, 1.5, cfg.Compression.RequestIntervalSeconds)
	assert.Equal(t, 10, cfg.Compression.MaxRequestsPerRun)
	assert.Equal(t, []string{"keep it short"}, cfg.Compression.Principles)
	// Topics are trimmed and empties dropped.
	assert.Equal(t, []string{"geopolitics", "finance"}, cfg.Compression.ContentGuard.BlockedTopics)
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `source_dirs: [notes]`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultOutputDir, cfg.OutputDir)
	assert.Equal(t, DefaultModelAlias, cfg.Compression.Model)
	assert.Equal(t, DefaultMaxChars, cfg.Compression.MaxChars)
	assert.False(t, cfg.Compression.Enabled)
	assert.Equal(t, DefaultPrinciples(), cfg.Compression.Principles)
	assert.Equal(t, DefaultBlockedTopics(), cfg.Compression.ContentGuard.BlockedTopics)
}

func TestLoadModelEnvOverride(t *testing.T) {
	path := writeConfig(t, `
compression:
  model: haiku
`)
	t.Setenv(ModelEnvVar, "sonnet")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sonnet", cfg.Compression.Model)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := writeConfig(t, "source_dirs: [unclosed")
	_, err = Load(path)
	assert.Error(t, err)
}

func TestGuardTopics(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		topics  []string
		want    []string
	}{
		{"disabled", false, []string{"a"}, nil},
		{"enabled with topics", true, []string{"a", "b"}, []string{"a", "b"}},
		{"enabled without topics", true, []string{}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Compression.ContentGuard.Enabled = tt.enabled
			cfg.Compression.ContentGuard.BlockedTopics = tt.topics
			assert.Equal(t, tt.want, cfg.GuardTopics())
		})
	}
}
