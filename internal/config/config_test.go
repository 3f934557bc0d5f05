package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"idverify/internal/extract"
	"idverify/internal/ocr"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, int64(10<<20), cfg.Server.BodyLimit)
	assert.Equal(t, ocr.ProviderTesseract, cfg.OCR.Provider)
	assert.Equal(t, []string{"eng", "hin"}, cfg.OCR.Languages)
	assert.Equal(t, time.Minute, cfg.OCR.Timeout)
	assert.Equal(t, extract.NameOrderOverride, cfg.Extract.NameOrder)
	assert.Equal(t, extract.DefaultConfig().DOBLabels, cfg.Extract.DOBLabels)
	assert.Equal(t, 15*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("IDVERIFY_SERVER_ADDRESS", ":9090")
	t.Setenv("IDVERIFY_OCR_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("IDVERIFY_EXTRACT_NAME_ORDER", "labeled-first")
	t.Setenv("IDVERIFY_SESSION_TTL", "2m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, ocr.ProviderGemini, cfg.OCR.Provider)
	assert.Equal(t, "test-key", cfg.OCR.GeminiAPIKey)
	assert.Equal(t, extract.NameOrderLabeledFirst, cfg.Extract.NameOrder)
	assert.Equal(t, 2*time.Minute, cfg.Session.TTL)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idverify.yaml")
	yaml := `
server:
  address: ":7000"
ocr:
  provider: vision
  language_hints: [hi]
extract:
  name_labels: [Name, Naam]
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", cfg.Server.Address)
	assert.Equal(t, ocr.ProviderVision, cfg.OCR.Provider)
	assert.Equal(t, []string{"hi"}, cfg.OCR.LanguageHints)
	assert.Equal(t, []string{"Name", "Naam"}, cfg.Extract.NameLabels)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Server: ServerConfig{
				Address:      ":8080",
				ReadTimeout:  time.Second,
				WriteTimeout: time.Second,
				BodyLimit:    1024,
			},
			OCR:     ocr.Config{Provider: ocr.ProviderTesseract, Timeout: time.Second},
			Extract: extract.Config{NameOrder: extract.NameOrderOverride},
			Log:     LogConfig{Format: "console"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "empty address", mutate: func(c *Config) { c.Server.Address = "" }, wantErr: "server address cannot be empty"},
		{name: "zero read timeout", mutate: func(c *Config) { c.Server.ReadTimeout = 0 }, wantErr: "read_timeout must be positive"},
		{name: "zero body limit", mutate: func(c *Config) { c.Server.BodyLimit = 0 }, wantErr: "body_limit must be positive"},
		{name: "unknown provider", mutate: func(c *Config) { c.OCR.Provider = "abbyy" }, wantErr: "ocr provider"},
		{name: "zero ocr timeout", mutate: func(c *Config) { c.OCR.Timeout = 0 }, wantErr: "ocr timeout"},
		{name: "bad name order", mutate: func(c *Config) { c.Extract.NameOrder = "random" }, wantErr: "name_order"},
		{name: "negative ttl", mutate: func(c *Config) { c.Session.TTL = -time.Second }, wantErr: "ttl"},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
