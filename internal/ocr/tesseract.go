//go:build cgo && ocr

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog/log"
)

// TesseractRecognizer keeps one Tesseract client for the lifetime of the
// engine.
type TesseractRecognizer struct {
	languages []string
	client    *gosseract.Client
}

// NewTesseractRecognizer returns a Tesseract backend for the given
// traineddata languages, e.g. "eng", "hin".
func NewTesseractRecognizer(languages []string) *TesseractRecognizer {
	if len(languages) == 0 {
		languages = []string{"eng", "hin"}
	}
	return &TesseractRecognizer{languages: languages}
}

func (t *TesseractRecognizer) Name() string {
	return "tesseract"
}

func (t *TesseractRecognizer) Start(_ context.Context) error {
	client := gosseract.NewClient()
	if err := client.SetLanguage(t.languages...); err != nil {
		client.Close()
		return fmt.Errorf("failed to set language: %w", err)
	}
	t.client = client
	log.Debug().
		Str("version", gosseract.Version()).
		Strs("languages", t.languages).
		Msg("Tesseract client started")
	return nil
}

func (t *TesseractRecognizer) RecognizeFile(ctx context.Context, path string) (string, error) {
	if t.client == nil {
		return "", ErrEngineNotReady
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := t.client.SetImage(path); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract OCR failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

func (t *TesseractRecognizer) Close() error {
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
