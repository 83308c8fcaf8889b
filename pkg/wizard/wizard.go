package wizard

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	wlog "github.com/Sriram-PR/source-wizard/pkg/log"
	"github.com/Sriram-PR/source-wizard/pkg/models"
	"github.com/Sriram-PR/source-wizard/pkg/storage"
	"github.com/Sriram-PR/source-wizard/pkg/utils"
)

// ValidationError carries the blocking issues that stopped a transition.
type ValidationError struct {
	Step   StepID
	Issues []Issue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		msgs[i] = is.String()
	}
	return fmt.Sprintf("%s: %s", e.Step, strings.Join(msgs, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrStepInvalid }

// Options configure a Wizard. Every field is optional.
type Options struct {
	Store     storage.DraftStore // nil disables persistence
	DraftKey  string
	Navigator Navigator
	Defaults  func() models.SourceConfig // Fresh config when no draft exists
	Logger    *logrus.Entry
}

// Wizard holds the draft config and the step position.
type Wizard struct {
	mu        sync.Mutex
	cfg       models.SourceConfig
	current   int
	completed []bool
	finished  bool

	store    storage.DraftStore
	draftKey string
	nav      Navigator
	defaults func() models.SourceConfig
	log      *logrus.Entry
}

// New mounts a wizard: the draft is restored from the store and the step from the navigator.
func New(opts Options) *Wizard {
	w := &Wizard{
		completed: make([]bool, len(steps)),
		store:     opts.Store,
		draftKey:  opts.DraftKey,
		nav:       opts.Navigator,
		defaults:  opts.Defaults,
		log:       opts.Logger,
	}
	if w.defaults == nil {
		w.defaults = models.NewSourceConfig
	}
	if w.draftKey == "" {
		w.draftKey = "source-wizard-draft"
	}
	if w.log == nil {
		w.log = wlog.Discard()
	}
	w.log = w.log.WithField("draft_key", w.draftKey)

	w.cfg = w.restore()
	if w.nav != nil {
		raw := w.nav.Step()
		if idx, ok := StepIndex(StepID(raw)); ok {
			w.current = idx
		} else if raw != "" {
			w.log.Debugf("Unknown step %q in location, starting at %s", raw, steps[0])
		}
	}
	return w
}

func (w *Wizard) restore() models.SourceConfig {
	if w.store == nil {
		return w.defaults()
	}
	data, err := w.store.Load(w.draftKey)
	if err != nil {
		if !errors.Is(err, utils.ErrNotFound) {
			w.log.WithError(err).WithField("error_type", utils.CategorizeError(err)).Warn("Failed to load draft, starting from defaults")
		}
		return w.defaults()
	}
	cfg, err := models.Decode(data)
	if err != nil {
		w.log.WithError(err).WithField("error_type", utils.CategorizeError(err)).Warn("Stored draft is malformed, starting from defaults")
		return w.defaults()
	}
	w.log.Info("Restored draft")
	return cfg
}

// persist writes the draft. Failures are logged; the in-memory config stays authoritative.
func (w *Wizard) persist() {
	if w.store == nil {
		return
	}
	data, err := json.Marshal(w.cfg)
	if err == nil {
		err = w.store.Save(w.draftKey, data)
	}
	if err != nil {
		w.log.WithError(err).WithField("error_type", utils.CategorizeError(err)).Warn("Failed to persist draft")
	}
}

func (w *Wizard) moveTo(idx int) {
	w.current = idx
	if w.nav != nil {
		w.nav.SetStep(steps[idx])
	}
}

// Dispatch applies a to the draft and persists it. It returns the current step's issues.
func (w *Wizard) Dispatch(a Action) ([]Issue, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return nil, ErrFinished
	}
	next, err := Reduce(w.cfg, a)
	if err != nil {
		return nil, err
	}
	w.cfg = next
	w.persist()
	return Validate(steps[w.current], w.cfg), nil
}

// Next marks the current step complete and advances. A step with blocking
// issues is not completed and the error is a *ValidationError.
func (w *Wizard) Next() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return ErrFinished
	}
	step := steps[w.current]
	if blocking := Blocking(Validate(step, w.cfg)); len(blocking) > 0 {
		return &ValidationError{Step: step, Issues: blocking}
	}
	w.completed[w.current] = true
	if w.current < len(steps)-1 {
		w.moveTo(w.current + 1)
	}
	w.log.WithField("step", steps[w.current]).Debug("Advanced")
	return nil
}

// Previous moves back one step. It does nothing on the first step.
func (w *Wizard) Previous() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return ErrFinished
	}
	if w.current > 0 {
		w.moveTo(w.current - 1)
	}
	return nil
}

// JumpTo moves to step idx if it is not ahead of the current step, or if the
// step before it is complete.
func (w *Wizard) JumpTo(idx int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return ErrFinished
	}
	if idx < 0 || idx >= len(steps) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrStepIndex, idx, len(steps)-1)
	}
	if !w.reachable(idx) {
		return fmt.Errorf("%w: %s needs %s", ErrStepLocked, steps[idx], steps[idx-1])
	}
	w.moveTo(idx)
	return nil
}

func (w *Wizard) reachable(idx int) bool {
	return idx <= w.current || w.completed[idx-1]
}

// Finish ends editing from the review step and discards the draft. The finished
// config is returned; nothing is submitted anywhere.
func (w *Wizard) Finish() (models.SourceConfig, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.finished {
		return models.SourceConfig{}, ErrFinished
	}
	if steps[w.current] != StepReview {
		return models.SourceConfig{}, fmt.Errorf("%w: current step is %s", ErrNotAtReview, steps[w.current])
	}
	if blocking := Blocking(Validate(StepReview, w.cfg)); len(blocking) > 0 {
		return models.SourceConfig{}, &ValidationError{Step: StepReview, Issues: blocking}
	}
	out, err := w.cfg.Clone()
	if err != nil {
		return models.SourceConfig{}, err
	}
	w.completed[w.current] = true
	w.finished = true
	if w.store != nil {
		if err := w.store.Delete(w.draftKey); err != nil {
			w.log.WithError(err).Warn("Failed to discard draft")
		}
	}
	w.log.WithField("source", w.cfg.Name).Info("Wizard finished")
	return out, nil
}

// Reset discards the draft and starts over from defaults on the first step.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.cfg = w.defaults()
	w.completed = make([]bool, len(steps))
	w.finished = false
	if w.store != nil {
		if err := w.store.Delete(w.draftKey); err != nil {
			w.log.WithError(err).Warn("Failed to discard draft")
		}
	}
	w.moveTo(0)
}

func (w *Wizard) Current() StepID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return steps[w.current]
}

// Config returns a copy of the draft.
func (w *Wizard) Config() (models.SourceConfig, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cfg.Clone()
}

// Completed reports whether step idx has been marked complete.
func (w *Wizard) Completed(idx int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if idx < 0 || idx >= len(steps) {
		return false
	}
	return w.completed[idx]
}

// Issues validates the current step.
func (w *Wizard) Issues() []Issue {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Validate(steps[w.current], w.cfg)
}

func (w *Wizard) Finished() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.finished
}

// Status is a snapshot for display.
type Status struct {
	Current  StepID      `json:"current"`
	Index    int         `json:"index"`
	Steps    []StepState `json:"steps"`
	Finished bool        `json:"finished"`
	Issues   []Issue     `json:"issues,omitempty"`
}

func (w *Wizard) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := Status{
		Current:  steps[w.current],
		Index:    w.current,
		Steps:    make([]StepState, len(steps)),
		Finished: w.finished,
		Issues:   Validate(steps[w.current], w.cfg),
	}
	for i, id := range steps {
		var s models.StepStatus
		switch {
		case i == w.current:
			s = models.StepStatusCurrent
		case w.completed[i]:
			s = models.StepStatusComplete
		case w.reachable(i):
			s = models.StepStatusOpen
		default:
			s = models.StepStatusLocked
		}
		st.Steps[i] = StepState{ID: id, Title: id.Title(), Status: s}
	}
	return st
}
