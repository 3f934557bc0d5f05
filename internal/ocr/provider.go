package ocr

import (
	"fmt"
	"time"
)

// ProviderType selects the recognition backend.
type ProviderType string

const (
	ProviderVision    ProviderType = "vision"
	ProviderTesseract ProviderType = "tesseract"
	ProviderGemini    ProviderType = "gemini"
)

// Config describes the recognition backend and engine limits.
type Config struct {
	Provider ProviderType `mapstructure:"provider"`
	// Languages are Tesseract traineddata names, e.g. "eng", "hin".
	Languages []string `mapstructure:"languages"`
	// LanguageHints are BCP-47 hints for Cloud Vision, e.g. "en", "hi".
	LanguageHints   []string      `mapstructure:"language_hints"`
	CredentialsFile string        `mapstructure:"credentials_file"`
	GeminiAPIKey    string        `mapstructure:"gemini_api_key"`
	GeminiModel     string        `mapstructure:"gemini_model"`
	Timeout         time.Duration `mapstructure:"timeout"`
	TempDir         string        `mapstructure:"temp_dir"`
}

// NewRecognizer builds the backend named by cfg.Provider.
func NewRecognizer(cfg Config) (Recognizer, error) {
	switch cfg.Provider {
	case ProviderVision:
		return NewVisionRecognizer(cfg.CredentialsFile, cfg.LanguageHints), nil
	case ProviderTesseract, "":
		return NewTesseractRecognizer(cfg.Languages), nil
	case ProviderGemini:
		return NewGeminiRecognizer(cfg.GeminiAPIKey, cfg.GeminiModel), nil
	default:
		return nil, fmt.Errorf("unknown OCR provider %q", cfg.Provider)
	}
}

// NewEngineFromConfig builds a backend from cfg and wraps it in an Engine.
// The engine still needs Init.
func NewEngineFromConfig(cfg Config) (*Engine, error) {
	r, err := NewRecognizer(cfg)
	if err != nil {
		return nil, err
	}
	return NewEngine(r, WithTimeout(cfg.Timeout), WithTempDir(cfg.TempDir)), nil
}
