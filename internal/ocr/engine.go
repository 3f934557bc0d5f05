// Package ocr owns the document recognition worker of a verification
// session.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

var (
	// ErrEngineInitFailed means the backend could not start. Recognition is
	// unavailable until the engine is initialized again.
	ErrEngineInitFailed = errors.New("ocr engine failed to initialize")
	// ErrEngineNotReady means Recognize was called before Init completed
	// or after Close. Retry once the engine is ready.
	ErrEngineNotReady = errors.New("ocr engine is not ready")
	// ErrRecognitionFailed means the image could not be read. Re-capture
	// and retry.
	ErrRecognitionFailed = errors.New("text recognition failed")
)

// IsRetryable reports whether the caller can recover by waiting or by
// supplying another image.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrEngineNotReady) || errors.Is(err, ErrRecognitionFailed)
}

// Recognizer is a recognition backend. Implementations need not be safe
// for concurrent use; the Engine never overlaps calls.
type Recognizer interface {
	Name() string
	// Start acquires the backend's long-lived resources.
	Start(ctx context.Context) error
	// RecognizeFile returns the raw text of the image stored at path.
	RecognizeFile(ctx context.Context, path string) (string, error)
	// Close releases what Start acquired.
	Close() error
}

type engineState int

const (
	stateNew engineState = iota
	stateReady
	stateFailed
	stateClosed
)

// Engine wraps one Recognizer with a session lifecycle and lets a single
// recognition run at a time.
type Engine struct {
	backend Recognizer
	timeout time.Duration
	tmpDir  string

	mu      sync.RWMutex
	state   engineState
	initErr error

	inflight *semaphore.Weighted
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTimeout bounds each recognition.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithTempDir sets where temporary image handles are written.
func WithTempDir(dir string) EngineOption {
	return func(e *Engine) {
		e.tmpDir = dir
	}
}

// NewEngine returns an engine over backend. Init must be called before
// Recognize.
func NewEngine(backend Recognizer, opts ...EngineOption) *Engine {
	e := &Engine{
		backend:  backend,
		timeout:  time.Minute,
		inflight: semaphore.NewWeighted(1),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Name returns the backend name.
func (e *Engine) Name() string {
	return e.backend.Name()
}

// Init starts the backend. Calling it on a ready engine does nothing; on a
// failed or closed engine it starts the backend again.
func (e *Engine) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == stateReady {
		return nil
	}
	if err := e.backend.Start(ctx); err != nil {
		// release whatever Start acquired before failing
		_ = e.backend.Close()
		e.state = stateFailed
		e.initErr = fmt.Errorf("%w: %s: %w", ErrEngineInitFailed, e.backend.Name(), err)
		log.Error().Err(err).Str("backend", e.backend.Name()).Msg("OCR engine failed to start")
		return e.initErr
	}
	e.state = stateReady
	e.initErr = nil
	log.Info().Str("backend", e.backend.Name()).Msg("OCR engine ready")
	return nil
}

// Ready reports whether Recognize can be called.
func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state == stateReady
}

func (e *Engine) readiness() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch e.state {
	case stateReady:
		return nil
	case stateFailed:
		return e.initErr
	default:
		return ErrEngineNotReady
	}
}

// Recognize converts image to raw text. Concurrent callers queue behind
// the one in flight until it finishes or their ctx is done. The image is
// handed to the backend through a temporary file that is removed on every
// exit path.
func (e *Engine) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := e.readiness(); err != nil {
		return "", err
	}
	if len(image) == 0 {
		return "", fmt.Errorf("%w: empty image", ErrRecognitionFailed)
	}

	if err := e.inflight.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer e.inflight.Release(1)

	// Close may have run while we waited.
	if err := e.readiness(); err != nil {
		return "", err
	}

	path, release, err := e.handle(image)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
	}
	defer release()

	rctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	text, err := e.backend.RecognizeFile(rctx, path)
	if err != nil {
		log.Warn().Err(err).Str("backend", e.backend.Name()).Msg("recognition failed")
		return "", fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
	}

	log.Debug().
		Str("backend", e.backend.Name()).
		Int("image_bytes", len(image)).
		Int("text_length", len(text)).
		Dur("duration", time.Since(start)).
		Msg("recognition completed")
	return text, nil
}

// handle writes image to a temporary file and returns its path and the
// function that removes it.
func (e *Engine) handle(image []byte) (string, func(), error) {
	f, err := os.CreateTemp(e.tmpDir, "idverify-doc-*")
	if err != nil {
		return "", nil, fmt.Errorf("create image handle: %w", err)
	}
	release := func() {
		if err := os.Remove(f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", f.Name()).Msg("failed to remove image handle")
		}
	}
	if _, err := f.Write(image); err != nil {
		f.Close()
		release()
		return "", nil, fmt.Errorf("write image handle: %w", err)
	}
	if err := f.Close(); err != nil {
		release()
		return "", nil, fmt.Errorf("close image handle: %w", err)
	}
	return f.Name(), release, nil
}

// Close waits for any recognition in flight and releases the backend.
// Closing twice is harmless.
func (e *Engine) Close() error {
	_ = e.inflight.Acquire(context.Background(), 1)
	defer e.inflight.Release(1)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == stateClosed {
		return nil
	}
	wasStarted := e.state == stateReady
	e.state = stateClosed
	if !wasStarted {
		return nil
	}
	if err := e.backend.Close(); err != nil {
		return fmt.Errorf("close %s backend: %w", e.backend.Name(), err)
	}
	log.Debug().Str("backend", e.backend.Name()).Msg("OCR engine released")
	return nil
}
