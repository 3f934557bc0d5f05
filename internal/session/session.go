// Package session runs the extraction pipeline for one identity
// verification: it owns the OCR engine, the user's reference record and
// the correction workflow.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"idverify/internal/correction"
	"idverify/internal/discrepancy"
	"idverify/internal/extract"
	"idverify/internal/metrics"
	"idverify/internal/models"
	"idverify/internal/ocr"
	"idverify/internal/textnorm"
)

// ErrStaleResult is returned by Process when a newer Process call on the
// same session started before this one finished. Its result was dropped.
var ErrStaleResult = errors.New("extraction superseded by a newer request")

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID            string                   `json:"session_id"`
	Engine        string                   `json:"engine"`
	EngineReady   bool                     `json:"engine_ready"`
	EngineError   string                   `json:"engine_error,omitempty"`
	Record        models.ReferenceRecord   `json:"record"`
	Result        *models.ExtractionResult `json:"result,omitempty"`
	Discrepancies []models.Discrepancy     `json:"discrepancies"`
	State         correction.State         `json:"state"`
	Prompt        *correction.Prompt       `json:"prompt,omitempty"`
}

// Session is safe for concurrent use. Only one recognition runs at a time;
// the engine queues the rest.
type Session struct {
	ID string

	engine    *ocr.Engine
	extractor *extract.Extractor
	metrics   *metrics.Metrics

	seq atomic.Uint64

	mu            sync.Mutex
	record        models.ReferenceRecord
	result        *models.ExtractionResult
	discrepancies []models.Discrepancy
	workflow      *correction.Workflow
	resolved      map[models.Field]bool
	dismissed     map[models.Field]bool
	initErr       error
	lastUsed      time.Time
}

func newSession(id string, engine *ocr.Engine, ext *extract.Extractor, m *metrics.Metrics, record models.ReferenceRecord, now time.Time) *Session {
	return &Session{
		ID:        id,
		engine:    engine,
		extractor: ext,
		metrics:   m,
		record:    record,
		resolved:  make(map[models.Field]bool),
		dismissed: make(map[models.Field]bool),
		lastUsed:  now,
	}
}

// InitEngine starts the session's OCR engine. A failure is remembered and
// reported in snapshots; the record stays editable either way.
func (s *Session) InitEngine(ctx context.Context) error {
	err := s.engine.Init(ctx)
	s.mu.Lock()
	s.initErr = err
	s.mu.Unlock()
	return err
}

// Process recognizes image and reconciles the extracted fields with the
// reference record. Any workflow still pending from an earlier image is
// discarded as soon as Process starts.
func (s *Session) Process(ctx context.Context, image []byte) (Snapshot, error) {
	id := s.seq.Add(1)

	s.mu.Lock()
	if s.workflow != nil {
		s.workflow.Discard()
	}
	s.mu.Unlock()

	start := time.Now()
	raw, err := s.engine.Recognize(ctx, image)
	s.metrics.ObserveRecognition(s.engine.Name(), time.Since(start), err)
	if err != nil {
		return s.Snapshot(), fmt.Errorf("recognize document: %w", err)
	}

	text := textnorm.Normalize(raw)
	result := s.extractor.Extract(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq.Load() != id {
		s.metrics.StaleResult()
		log.Debug().Str("session_id", s.ID).Uint64("request", id).Msg("dropping stale extraction result")
		return s.snapshotLocked(), ErrStaleResult
	}

	for _, f := range result.Found() {
		s.metrics.FieldExtracted(string(f))
	}

	s.result = &result
	s.discrepancies = discrepancy.Without(discrepancy.Detect(result, &s.record), s.settledLocked())
	for _, d := range s.discrepancies {
		s.metrics.Discrepancy(string(d.Field))
	}
	s.workflow = correction.New(&s.record, s.discrepancies)
	s.workflow.Start()

	log.Info().
		Str("session_id", s.ID).
		Int("fields_found", len(result.Found())).
		Int("discrepancies", len(s.discrepancies)).
		Str("state", string(s.workflow.State())).
		Msg("document processed")
	return s.snapshotLocked(), nil
}

// Confirm applies value for the active prompt.
func (s *Session) Confirm(value string) (Snapshot, error) {
	return s.answer("confirm", func(w *correction.Workflow) error { return w.Confirm(value) })
}

// Accept applies the active prompt's suggestion unchanged.
func (s *Session) Accept() (Snapshot, error) {
	return s.answer("accept", (*correction.Workflow).Accept)
}

// Cancel dismisses the active prompt.
func (s *Session) Cancel() (Snapshot, error) {
	return s.answer("cancel", (*correction.Workflow).Cancel)
}

func (s *Session) answer(action string, fn func(*correction.Workflow) error) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.workflow == nil {
		return s.snapshotLocked(), correction.ErrNoActivePrompt
	}
	p, _ := s.workflow.Current()
	if err := fn(s.workflow); err != nil {
		return s.snapshotLocked(), err
	}
	s.metrics.Correction(string(p.Field), action)

	for f := range s.workflow.Resolved() {
		s.resolved[f] = true
	}
	for f := range s.workflow.Dismissed() {
		s.dismissed[f] = true
	}
	s.refreshLocked()
	return s.snapshotLocked(), nil
}

// UpdateRecord replaces the reference record with manual edits.
func (s *Session) UpdateRecord(rec models.ReferenceRecord) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record = rec
	s.refreshLocked()
	return s.snapshotLocked()
}

// refreshLocked recomputes the reported discrepancies against the current
// record, leaving out fields the user already corrected or dismissed.
func (s *Session) refreshLocked() {
	if s.result == nil {
		return
	}
	s.discrepancies = discrepancy.Without(discrepancy.Detect(*s.result, &s.record), s.settledLocked())
}

// settledLocked is the set of fields answered in this session, accepted or
// dismissed. They are neither reported nor prompted again.
func (s *Session) settledLocked() map[models.Field]bool {
	out := make(map[models.Field]bool, len(s.resolved)+len(s.dismissed))
	for f := range s.resolved {
		out[f] = true
	}
	for f := range s.dismissed {
		out[f] = true
	}
	return out
}

// Record returns a copy of the reference record.
func (s *Session) Record() models.ReferenceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:            s.ID,
		Engine:        s.engine.Name(),
		EngineReady:   s.engine.Ready(),
		Record:        s.record,
		Discrepancies: append([]models.Discrepancy{}, s.discrepancies...),
		State:         correction.StateIdle,
	}
	if s.initErr != nil {
		snap.EngineError = s.initErr.Error()
	}
	if s.result != nil {
		r := *s.result
		snap.Result = &r
	}
	if s.workflow != nil {
		snap.State = s.workflow.State()
		if p, ok := s.workflow.Current(); ok {
			snap.Prompt = &p
		}
	}
	return snap
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

func (s *Session) close() error {
	s.mu.Lock()
	if s.workflow != nil {
		s.workflow.Discard()
	}
	s.mu.Unlock()
	return s.engine.Close()
}
