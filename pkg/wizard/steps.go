// Package wizard is the step-by-step editor that assembles a SourceConfig.
//
// Every edit goes through Reduce, a pure transition over the whole config. The
// Wizard wraps it with step navigation, validation gating and draft persistence.
package wizard

import (
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/Sriram-PR/source-wizard/pkg/models"
)

// StepID identifies a wizard step; it is also the navigator query value.
type StepID string

const (
	StepBasics          StepID = "basics"
	StepDiscoverySetup  StepID = "discovery_setup"
	StepExtractionSetup StepID = "extraction_setup"
	StepLLM             StepID = "llm"
	StepSchedule        StepID = "schedule"
	StepReview          StepID = "review"
)

var steps = []StepID{StepBasics, StepDiscoverySetup, StepExtractionSetup, StepLLM, StepSchedule, StepReview}

var stepTitles = map[StepID]string{
	StepBasics:          "Basics",
	StepDiscoverySetup:  "Discovery",
	StepExtractionSetup: "Extraction",
	StepLLM:             "LLM Parsing",
	StepSchedule:        "Schedule",
	StepReview:          "Review",
}

// Steps returns the fixed step order.
func Steps() []StepID {
	out := make([]StepID, len(steps))
	copy(out, steps)
	return out
}

// StepIndex returns the position of id, or false for an unknown id.
func StepIndex(id StepID) (int, bool) {
	for i, s := range steps {
		if s == id {
			return i, true
		}
	}
	return 0, false
}

// Title is the display name of the step.
func (s StepID) Title() string {
	if t, ok := stepTitles[s]; ok {
		return t
	}
	return string(s)
}

var (
	ErrStepLocked   = errors.New("step is locked until the previous step is complete")
	ErrStepIndex    = errors.New("step index out of range")
	ErrStepInvalid  = errors.New("step has validation issues")
	ErrFinished     = errors.New("wizard is finished")
	ErrNotAtReview  = errors.New("finish is only available from the review step")
	ErrNotScrape    = errors.New("discovery technique is not html or js")
	ErrNotAPI       = errors.New("technique is not api")
	ErrUnparsedCurl = errors.New("could not find a URL in the cURL command")
)

// StepState is one row of the step list.
type StepState struct {
	ID     StepID            `json:"id"`
	Title  string            `json:"title"`
	Status models.StepStatus `json:"status"`
}

// Navigator mirrors the current step into a location, such as a page URL, so
// reloads and deep links land on the same step.
type Navigator interface {
	// Step returns the raw step value from the location, empty if absent.
	Step() string
	// SetStep records step as the current location.
	SetStep(step StepID)
}

// URLNavigator keeps the step in a query parameter of a URL.
type URLNavigator struct {
	mu      sync.Mutex
	u       *url.URL
	param   string
	history []string
}

// NewURLNavigator parses rawURL; param names the step query parameter.
func NewURLNavigator(rawURL, param string) (*URLNavigator, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("navigator url: %w", err)
	}
	if param == "" {
		param = "step"
	}
	return &URLNavigator{u: u, param: param, history: []string{u.String()}}, nil
}

func (n *URLNavigator) Step() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.u.Query().Get(n.param)
}

func (n *URLNavigator) SetStep(step StepID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	q := n.u.Query()
	q.Set(n.param, string(step))
	n.u.RawQuery = q.Encode()
	n.history = append(n.history, n.u.String())
}

// URL returns the current location.
func (n *URLNavigator) URL() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.u.String()
}

// History lists every location visited, oldest first.
func (n *URLNavigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.history...)
}
