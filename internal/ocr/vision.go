package ocr

import (
	"context"
	"fmt"
	"os"

	vision "cloud.google.com/go/vision/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog/log"
	"google.golang.org/api/option"
)

// VisionRecognizer reads documents with Google Cloud Vision text detection.
type VisionRecognizer struct {
	credentialsFile string
	languageHints   []string

	client *vision.ImageAnnotatorClient
}

// NewVisionRecognizer returns a Cloud Vision backend. An empty
// credentialsFile falls back to application default credentials.
func NewVisionRecognizer(credentialsFile string, languageHints []string) *VisionRecognizer {
	return &VisionRecognizer{credentialsFile: credentialsFile, languageHints: languageHints}
}

func (v *VisionRecognizer) Name() string {
	return "google-vision"
}

func (v *VisionRecognizer) Start(ctx context.Context) error {
	var (
		client *vision.ImageAnnotatorClient
		err    error
	)
	if v.credentialsFile != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(v.credentialsFile))
	} else {
		client, err = vision.NewImageAnnotatorClient(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to init Vision API client: %w", err)
	}
	v.client = client
	return nil
}

func (v *VisionRecognizer) RecognizeFile(ctx context.Context, path string) (string, error) {
	if v.client == nil {
		return "", ErrEngineNotReady
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	image, err := vision.NewImageFromReader(f)
	if err != nil {
		return "", fmt.Errorf("failed to create image object: %w", err)
	}

	var ictx *visionpb.ImageContext
	if len(v.languageHints) > 0 {
		ictx = &visionpb.ImageContext{LanguageHints: v.languageHints}
	}
	anns, err := v.client.DetectTexts(ctx, image, ictx, 1)
	if err != nil {
		return "", fmt.Errorf("Vision API failed to detect text: %w", err)
	}
	if len(anns) == 0 {
		log.Debug().Msg("no text was found in the image")
		return "", nil
	}
	return anns[0].Description, nil
}

func (v *VisionRecognizer) Close() error {
	if v.client == nil {
		return nil
	}
	err := v.client.Close()
	v.client = nil
	return err
}
