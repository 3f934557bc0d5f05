//go:build !cgo || !ocr

package ocr

import (
	"context"
	"errors"
)

var errNoTesseract = errors.New("OCR not available: built without Tesseract support")

// TesseractRecognizer is a stub for builds without cgo or the ocr tag. It
// always fails to start.
type TesseractRecognizer struct {
	languages []string
}

func NewTesseractRecognizer(languages []string) *TesseractRecognizer {
	return &TesseractRecognizer{languages: languages}
}

func (t *TesseractRecognizer) Name() string {
	return "tesseract (unavailable)"
}

func (t *TesseractRecognizer) Start(context.Context) error {
	return errNoTesseract
}

func (t *TesseractRecognizer) RecognizeFile(context.Context, string) (string, error) {
	return "", errNoTesseract
}

func (t *TesseractRecognizer) Close() error {
	return nil
}
