// Package correction sequences user confirmations for detected
// discrepancies, one field at a time.
package correction

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"idverify/internal/models"
)

// State is the workflow position.
type State string

const (
	StateIdle                         State = "Idle"
	StateAwaitingIDNumberConfirmation State = "AwaitingIdNumberConfirmation"
	StateAwaitingNameConfirmation     State = "AwaitingNameConfirmation"
	StateAwaitingDOBConfirmation      State = "AwaitingDobConfirmation"
	StateDone                         State = "Done"
)

var (
	ErrNoActivePrompt = errors.New("no correction prompt is active")
	ErrEmptyValue     = errors.New("correction value is empty")
)

// steps is the fixed prompt order.
var steps = []struct {
	field models.Field
	state State
}{
	{models.FieldIDNumber, StateAwaitingIDNumberConfirmation},
	{models.FieldFullName, StateAwaitingNameConfirmation},
	{models.FieldDateOfBirth, StateAwaitingDOBConfirmation},
}

// Prompt is what the UI shows while a field awaits confirmation.
type Prompt struct {
	State          State        `json:"state"`
	Field          models.Field `json:"field"`
	Suggestion     string       `json:"suggestion"`
	ReferenceValue string       `json:"reference_value"`
}

// Workflow is a single-item queue over the prompted discrepancies. It is
// not safe for concurrent use; callers serialize access.
type Workflow struct {
	record    *models.ReferenceRecord
	queue     []Prompt
	state     State
	visited   []State
	resolved  map[models.Field]bool
	dismissed map[models.Field]bool
}

// New prepares a workflow over ds. Only ID number, name and date of birth
// are prompted; they are queued in that order whatever the order of ds.
func New(record *models.ReferenceRecord, ds []models.Discrepancy) *Workflow {
	byField := make(map[models.Field]models.Discrepancy, len(ds))
	for _, d := range ds {
		if _, seen := byField[d.Field]; !seen {
			byField[d.Field] = d
		}
	}

	w := &Workflow{
		record:    record,
		state:     StateIdle,
		resolved:  make(map[models.Field]bool),
		dismissed: make(map[models.Field]bool),
	}
	for _, s := range steps {
		d, ok := byField[s.field]
		if !ok {
			continue
		}
		w.queue = append(w.queue, Prompt{
			State:          s.state,
			Field:          s.field,
			Suggestion:     d.ExtractedValue,
			ReferenceValue: d.ReferenceValue,
		})
	}
	return w
}

// Start leaves Idle for the first pending prompt, or Done when there is
// none. It is a no-op once started.
func (w *Workflow) Start() State {
	if w.state == StateIdle {
		w.advance()
	}
	return w.state
}

// State returns the current position.
func (w *Workflow) State() State {
	return w.state
}

// Current returns the active prompt.
func (w *Workflow) Current() (Prompt, bool) {
	if !w.awaiting() {
		return Prompt{}, false
	}
	return w.queue[0], true
}

// Pending returns the prompts not yet answered, the active one first.
func (w *Workflow) Pending() []Prompt {
	out := make([]Prompt, len(w.queue))
	copy(out, w.queue)
	return out
}

// Visited lists the states entered so far, in order.
func (w *Workflow) Visited() []State {
	out := make([]State, len(w.visited))
	copy(out, w.visited)
	return out
}

// Resolved reports the fields whose corrections were accepted.
func (w *Workflow) Resolved() map[models.Field]bool {
	return copySet(w.resolved)
}

// Dismissed reports the fields whose prompts were cancelled.
func (w *Workflow) Dismissed() map[models.Field]bool {
	return copySet(w.dismissed)
}

func copySet(in map[models.Field]bool) map[models.Field]bool {
	out := make(map[models.Field]bool, len(in))
	for f := range in {
		out[f] = true
	}
	return out
}

// Accept confirms the suggestion unchanged.
func (w *Workflow) Accept() error {
	p, ok := w.Current()
	if !ok {
		return ErrNoActivePrompt
	}
	return w.Confirm(p.Suggestion)
}

// Confirm writes value, possibly edited by the user, into the reference
// record and moves to the next prompt.
func (w *Workflow) Confirm(value string) error {
	p, ok := w.Current()
	if !ok {
		return ErrNoActivePrompt
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return ErrEmptyValue
	}
	if err := w.record.Set(p.Field, value); err != nil {
		return fmt.Errorf("apply correction: %w", err)
	}
	w.resolved[p.Field] = true
	log.Debug().Str("field", string(p.Field)).Msg("correction accepted")
	w.queue = w.queue[1:]
	w.advance()
	return nil
}

// Cancel dismisses the active prompt without touching the record. The
// discrepancy is not offered again by this workflow.
func (w *Workflow) Cancel() error {
	p, ok := w.Current()
	if !ok {
		return ErrNoActivePrompt
	}
	log.Debug().Str("field", string(p.Field)).Msg("correction dismissed")
	w.dismissed[p.Field] = true
	w.queue = w.queue[1:]
	w.advance()
	return nil
}

// Discard abandons every pending prompt. Used when a newer extraction
// supersedes this one.
func (w *Workflow) Discard() {
	if w.state == StateDone {
		return
	}
	w.queue = nil
	w.enter(StateDone)
}

func (w *Workflow) awaiting() bool {
	return w.state != StateIdle && w.state != StateDone && len(w.queue) > 0
}

func (w *Workflow) advance() {
	if len(w.queue) == 0 {
		w.enter(StateDone)
		return
	}
	w.enter(w.queue[0].State)
}

func (w *Workflow) enter(s State) {
	w.state = s
	w.visited = append(w.visited, s)
}
