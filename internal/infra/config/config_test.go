package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load()
	require.ErrorContains(t, err, "read config file")

	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTP.Address)
	require.Equal(t, 4, cfg.Articles.Workers)
	require.Equal(t, 2, cfg.Summary.Workers)
	require.Equal(t, 2, cfg.Ranking.Workers)
	require.Equal(t, 5, cfg.Vision.Workers)
	require.Equal(t, 0.75, cfg.Ranking.Threshold)
	require.True(t, cfg.Services.IsEnabled(ServiceOCR))
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
services:
  enabled: [reranker, classifier]
summary:
  maxLength: 100
  modelMaxLength: 512
ranking:
  threshold: 0.6
`), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("AUTH_TOKEN", "s3cret")
	t.Setenv("CLASSIFIER_THRESHOLD", "0.9")
	t.Setenv("OCR_LANGUAGES", "eng, deu")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, []string{"reranker", "classifier"}, cfg.Services.Enabled)
	require.False(t, cfg.Services.IsEnabled(ServiceSummarizer))
	require.Equal(t, 100, cfg.Summary.MaxLength)
	require.Equal(t, 512, cfg.Summary.ModelMaxLength)
	require.Equal(t, 0.9, cfg.Ranking.Threshold)
	require.Equal(t, "s3cret", cfg.Auth.Token)
	require.Equal(t, []string{"eng", "deu"}, cfg.Vision.OCRLanguages)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "window not above target", mutate: func(c *Config) { c.Summary.ModelMaxLength = c.Summary.MaxLength }, wantErr: "modelMaxLength"},
		{name: "unknown service", mutate: func(c *Config) { c.Services.Enabled = []string{"translate"} }, wantErr: "unknown service"},
		{name: "no services", mutate: func(c *Config) { c.Services.Enabled = nil }, wantErr: "services.enabled"},
		{name: "zero workers", mutate: func(c *Config) { c.Vision.Workers = 0 }, wantErr: "worker counts"},
		{name: "openai without key", mutate: func(c *Config) { c.Summary.Backend = BackendOpenAI }, wantErr: "llm.apiKey"},
		{name: "unknown backend", mutate: func(c *Config) { c.Summary.Backend = "t5" }, wantErr: "summary.backend"},
		{name: "threshold out of range", mutate: func(c *Config) { c.Ranking.Threshold = 1.5 }, wantErr: "ranking.threshold"},
		{name: "negative tolerance", mutate: func(c *Config) { c.Vision.LineTolerance = -1 }, wantErr: "lineTolerance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
