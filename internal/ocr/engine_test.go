package ocr

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRecognizer struct {
	startErr error
	text     string
	err      error
	block    chan struct{}

	starts   atomic.Int32
	closes   atomic.Int32
	active   atomic.Int32
	maxSeen  atomic.Int32
	mu       sync.Mutex
	paths    []string
	contents [][]byte
}

func (f *fakeRecognizer) Name() string { return "fake" }

func (f *fakeRecognizer) Start(context.Context) error {
	f.starts.Add(1)
	return f.startErr
}

func (f *fakeRecognizer) RecognizeFile(ctx context.Context, path string) (string, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.contents = append(f.contents, data)
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.text, f.err
}

func (f *fakeRecognizer) Close() error {
	f.closes.Add(1)
	return nil
}

func TestEngine_NotReadyBeforeInit(t *testing.T) {
	e := NewEngine(&fakeRecognizer{})

	_, err := e.Recognize(context.Background(), []byte("img"))
	require.ErrorIs(t, err, ErrEngineNotReady)
	assert.True(t, IsRetryable(err))
	assert.False(t, e.Ready())
}

func TestEngine_InitIdempotent(t *testing.T) {
	f := &fakeRecognizer{}
	e := NewEngine(f)

	require.NoError(t, e.Init(context.Background()))
	require.NoError(t, e.Init(context.Background()))
	assert.Equal(t, int32(1), f.starts.Load())
	assert.True(t, e.Ready())
}

func TestEngine_InitFailed(t *testing.T) {
	f := &fakeRecognizer{startErr: errors.New("no traineddata")}
	e := NewEngine(f)

	err := e.Init(context.Background())
	require.ErrorIs(t, err, ErrEngineInitFailed)
	assert.False(t, IsRetryable(err))
	assert.Equal(t, int32(1), f.closes.Load(), "partial start must be released")

	_, err = e.Recognize(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, ErrEngineInitFailed)

	// a later Init may succeed
	f.startErr = nil
	require.NoError(t, e.Init(context.Background()))
	assert.True(t, e.Ready())
}

func TestEngine_Recognize(t *testing.T) {
	f := &fakeRecognizer{text: "GOVERNMENT OF INDIA"}
	e := NewEngine(f, WithTempDir(t.TempDir()))
	require.NoError(t, e.Init(context.Background()))

	text, err := e.Recognize(context.Background(), []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "GOVERNMENT OF INDIA", text)

	require.Len(t, f.paths, 1)
	assert.Equal(t, []byte("png-bytes"), f.contents[0])
	assert.NoFileExists(t, f.paths[0])
}

func TestEngine_RecognitionFailedReleasesHandle(t *testing.T) {
	f := &fakeRecognizer{err: errors.New("blurry")}
	e := NewEngine(f, WithTempDir(t.TempDir()))
	require.NoError(t, e.Init(context.Background()))

	_, err := e.Recognize(context.Background(), []byte("img"))
	require.ErrorIs(t, err, ErrRecognitionFailed)
	assert.True(t, IsRetryable(err))
	require.Len(t, f.paths, 1)
	assert.NoFileExists(t, f.paths[0])
}

func TestEngine_EmptyImage(t *testing.T) {
	e := NewEngine(&fakeRecognizer{})
	require.NoError(t, e.Init(context.Background()))

	_, err := e.Recognize(context.Background(), nil)
	assert.ErrorIs(t, err, ErrRecognitionFailed)
}

func TestEngine_SingleFlight(t *testing.T) {
	f := &fakeRecognizer{text: "x", block: make(chan struct{})}
	e := NewEngine(f, WithTempDir(t.TempDir()))
	require.NoError(t, e.Init(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := e.Recognize(context.Background(), []byte("img"))
			assert.NoError(t, err)
		}()
	}

	for i := 0; i < 3; i++ {
		require.Eventually(t, func() bool { return f.active.Load() == 1 }, time.Second, time.Millisecond)
		f.block <- struct{}{}
	}
	wg.Wait()
	assert.Equal(t, int32(1), f.maxSeen.Load())
}

func TestEngine_WaitingCallerCanGiveUp(t *testing.T) {
	f := &fakeRecognizer{text: "x", block: make(chan struct{})}
	e := NewEngine(f, WithTempDir(t.TempDir()))
	require.NoError(t, e.Init(context.Background()))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = e.Recognize(context.Background(), []byte("first"))
	}()
	require.Eventually(t, func() bool { return f.active.Load() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := e.Recognize(ctx, []byte("second"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(f.block)
	<-done
}

func TestEngine_Timeout(t *testing.T) {
	f := &fakeRecognizer{block: make(chan struct{})}
	e := NewEngine(f, WithTimeout(10*time.Millisecond), WithTempDir(t.TempDir()))
	require.NoError(t, e.Init(context.Background()))

	_, err := e.Recognize(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, ErrRecognitionFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEngine_Close(t *testing.T) {
	f := &fakeRecognizer{}
	e := NewEngine(f)
	require.NoError(t, e.Init(context.Background()))

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.Equal(t, int32(1), f.closes.Load())

	_, err := e.Recognize(context.Background(), []byte("img"))
	assert.ErrorIs(t, err, ErrEngineNotReady)
}

func TestEngine_CloseNeverStarted(t *testing.T) {
	f := &fakeRecognizer{}
	require.NoError(t, NewEngine(f).Close())
	assert.Zero(t, f.closes.Load())
}

func TestNewRecognizer(t *testing.T) {
	r, err := NewRecognizer(Config{Provider: ProviderVision})
	require.NoError(t, err)
	assert.Equal(t, "google-vision", r.Name())

	r, err = NewRecognizer(Config{Provider: ProviderGemini})
	require.NoError(t, err)
	assert.Equal(t, "gemini", r.Name())

	_, err = NewRecognizer(Config{Provider: "abacus"})
	assert.Error(t, err)
}

func TestGeminiRecognizer_MissingKey(t *testing.T) {
	e := NewEngine(NewGeminiRecognizer("", ""))
	assert.ErrorIs(t, e.Init(context.Background()), ErrEngineInitFailed)
}

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain text", "plain text"},
		{"```\nRAVI KUMAR\n```", "RAVI KUMAR"},
		{"```text\nDOB: 01/01/1990\nMALE\n```", "DOB: 01/01/1990\nMALE"},
		{"  ```plaintext\nline\n```  ", "line"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFences(tt.in))
	}
}

func TestImageFormat(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	f, ok := imageFormat(png)
	require.True(t, ok)
	assert.Equal(t, "png", f)

	_, ok = imageFormat([]byte("hello"))
	assert.False(t, ok)
}
