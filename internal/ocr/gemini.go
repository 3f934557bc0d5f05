package ocr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const transcribePrompt = `You are an OCR engine. Transcribe every piece of text printed on this identity document image.

Rules:
1. Output ONLY the transcribed text. No explanations, no JSON, no Markdown.
2. Keep the original line order and put each printed line on its own line.
3. Keep text in every script exactly as printed (for example Latin and Devanagari). Do not translate.
4. Leave a blank line between visually separate blocks of text.`

// GeminiRecognizer transcribes documents with a Gemini multimodal model.
type GeminiRecognizer struct {
	apiKey string
	model  string

	client *genai.Client
}

// NewGeminiRecognizer returns a Gemini backend.
func NewGeminiRecognizer(apiKey, model string) *GeminiRecognizer {
	if model == "" {
		model = "gemini-2.0-flash-lite"
	}
	return &GeminiRecognizer{apiKey: apiKey, model: model}
}

func (g *GeminiRecognizer) Name() string {
	return "gemini"
}

func (g *GeminiRecognizer) Start(ctx context.Context) error {
	if strings.TrimSpace(g.apiKey) == "" {
		return errors.New("missing GEMINI_API_KEY")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return fmt.Errorf("failed to init Gemini client: %w", err)
	}
	g.client = client
	return nil
}

func (g *GeminiRecognizer) RecognizeFile(ctx context.Context, path string) (string, error) {
	if g.client == nil {
		return "", ErrEngineNotReady
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	format, ok := imageFormat(data)
	if !ok {
		return "", fmt.Errorf("unsupported image type %q", http.DetectContentType(data))
	}

	model := g.client.GenerativeModel(g.model)
	resp, err := model.GenerateContent(ctx, genai.ImageData(format, data), genai.Text(transcribePrompt))
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return stripCodeFences(sb.String()), nil
}

func (g *GeminiRecognizer) Close() error {
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

// imageFormat maps sniffed content to the format name genai.ImageData
// expects.
func imageFormat(data []byte) (string, bool) {
	ct := http.DetectContentType(data)
	switch ct {
	case "image/jpeg", "image/png", "image/webp", "image/gif":
		return strings.TrimPrefix(ct, "image/"), true
	}
	return "", false
}

// stripCodeFences removes surrounding Markdown code fences like ```text ... ```.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// drop a language tag on the opening fence line
		if i := strings.IndexByte(s, '\n'); i != -1 {
			first := strings.TrimSpace(s[:i])
			if len(first) < 20 && !strings.ContainsAny(first, " :/") {
				s = s[i+1:]
			}
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
