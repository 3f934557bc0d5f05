package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"idverify/internal/extract"
	"idverify/internal/metrics"
	"idverify/internal/models"
	"idverify/internal/ocr"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrManagerClosed   = errors.New("session manager is closed")
)

// EngineFactory builds a fresh, uninitialized engine for a new session.
type EngineFactory func() (*ocr.Engine, error)

// Manager keeps the open sessions in memory and expires idle ones.
type Manager struct {
	newEngine EngineFactory
	extractor *extract.Extractor
	metrics   *metrics.Metrics
	ttl       time.Duration
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	stop      chan struct{}
	stopOnce  sync.Once
	janitorWG sync.WaitGroup
}

// NewManager returns a manager. A positive ttl starts a background sweep
// that closes sessions idle for longer than ttl; stop it with Close.
func NewManager(factory EngineFactory, ext *extract.Extractor, m *metrics.Metrics, ttl time.Duration) *Manager {
	mgr := &Manager{
		newEngine: factory,
		extractor: ext,
		metrics:   m,
		ttl:       ttl,
		now:       time.Now,
		sessions:  make(map[string]*Session),
		stop:      make(chan struct{}),
	}
	if ttl > 0 {
		mgr.janitorWG.Add(1)
		go mgr.janitor(sweepInterval(ttl))
	}
	return mgr
}

func sweepInterval(ttl time.Duration) time.Duration {
	iv := ttl / 4
	if iv < time.Second {
		iv = time.Second
	}
	return iv
}

// Create opens a session for record and initializes its engine. An engine
// that fails to start does not prevent the session from being created: the
// failure is reported in the snapshot and the record can still be edited.
//
// The engine outlives ctx: only ctx's values are passed on to its
// initialization, not its cancellation.
func (m *Manager) Create(ctx context.Context, record models.ReferenceRecord) (*Session, error) {
	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()
	if closed {
		return nil, ErrManagerClosed
	}

	engine, err := m.newEngine()
	if err != nil {
		return nil, fmt.Errorf("build ocr engine: %w", err)
	}

	s := newSession(uuid.NewString(), engine, m.extractor, m.metrics, record, m.now())
	if err := s.InitEngine(context.WithoutCancel(ctx)); err != nil {
		log.Warn().Err(err).Str("session_id", s.ID).Msg("ocr engine unavailable for session")
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		// Close ran while the engine was starting.
		if err := s.close(); err != nil {
			log.Warn().Err(err).Str("session_id", s.ID).Msg("closing session created during shutdown")
		}
		return nil, ErrManagerClosed
	}
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.metrics.SessionOpened()

	log.Info().Str("session_id", s.ID).Str("engine", engine.Name()).Msg("session opened")
	return s, nil
}

// Get returns the session and marks it used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(m.now())
	return s, nil
}

// End closes the session and releases its engine.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	return m.release(s, "ended")
}

// Len reports the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops the sweep and ends every open session. Create fails with
// ErrManagerClosed afterwards.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	m.janitorWG.Wait()

	m.mu.Lock()
	m.closed = true
	open := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	var errs []error
	for _, s := range open {
		if err := m.release(s, "shutdown"); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) janitor(every time.Duration) {
	defer m.janitorWG.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			m.expire(m.now())
		}
	}
}

// expire ends sessions idle since before now-ttl and returns how many.
func (m *Manager) expire(now time.Time) int {
	cutoff := now.Add(-m.ttl)

	m.mu.Lock()
	var stale []*Session
	for id, s := range m.sessions {
		if s.idleSince().Before(cutoff) {
			stale = append(stale, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range stale {
		if err := m.release(s, "expired"); err != nil {
			log.Warn().Err(err).Str("session_id", s.ID).Msg("closing expired session")
		}
	}
	return len(stale)
}

func (m *Manager) release(s *Session, reason string) error {
	m.metrics.SessionClosed()
	log.Info().Str("session_id", s.ID).Str("reason", reason).Msg("session closed")
	if err := s.close(); err != nil {
		return fmt.Errorf("close session %s: %w", s.ID, err)
	}
	return nil
}
