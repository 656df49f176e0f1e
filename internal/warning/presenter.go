// Package warning holds the single-slot warning presenter. At most one
// warning is active per page context; a new qualifying event replaces the
// current warning entirely, never stacks on it.
package warning

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"pagesentry/internal/aggregator"
	"pagesentry/internal/common"
	"pagesentry/internal/metrics"
)

// State is the full render input. Rendering is a pure function of State:
// the presenter hands the renderer a fresh copy after every transition and
// keeps no presentation concerns of its own.
type State struct {
	Active          bool            `json:"active"`
	Level           common.Level    `json:"level,omitempty"`
	Title           string          `json:"title,omitempty"`
	Message         string          `json:"message,omitempty"`
	Recommendations []string        `json:"recommendations,omitempty"`
	URL             string          `json:"url,omitempty"`
	Severity        common.Severity `json:"severity,omitempty"`
}

// Renderer receives the state after every transition. An inactive state
// means remove the overlay.
type Renderer interface {
	Render(State)
}

// Navigator performs the "go back" history navigation.
type Navigator interface {
	GoBack()
}

// Event is one input to the state machine.
type Event interface{ isEvent() }

// AssessmentEvent carries a finished aggregation pass. Authoritative: it
// replaces whatever warning is showing, regardless of level.
type AssessmentEvent struct {
	Assessment aggregator.Assessment
}

// LinkEvent reports a suspicious link whose navigation was intercepted.
// Proceed re-performs that navigation if the user chooses to continue.
type LinkEvent struct {
	URL     string
	Proceed func()
}

// ContentMatchEvent reports suspicious keywords found in page text.
type ContentMatchEvent struct {
	Keywords []string
}

// DismissEvent is the user closing the warning.
type DismissEvent struct{}

// GoBackEvent is the user leaving the page via the warning.
type GoBackEvent struct{}

// ProceedEvent is the user accepting the risk. For link-triggered warnings
// it also releases the intercepted navigation.
type ProceedEvent struct{}

// DeactivateEvent tears the warning down when protection is switched off.
type DeactivateEvent struct{}

func (AssessmentEvent) isEvent()   {}
func (LinkEvent) isEvent()         {}
func (ContentMatchEvent) isEvent() {}
func (DismissEvent) isEvent()      {}
func (GoBackEvent) isEvent()       {}
func (ProceedEvent) isEvent()      {}
func (DeactivateEvent) isEvent()   {}

// Presenter is the per-page warning state machine. Safe for concurrent use.
type Presenter struct {
	mu       sync.Mutex
	state    State
	proceed  func()
	renderer Renderer
	nav      Navigator
	logger   *slog.Logger
}

// NewPresenter creates a hidden presenter. Pass nil for logger to disable
// logging; renderer and nav may be nil in contexts with no UI attached.
func NewPresenter(renderer Renderer, nav Navigator, logger *slog.Logger) *Presenter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Presenter{renderer: renderer, nav: nav, logger: logger}
}

// Showing reports whether a warning is currently displayed. Detection
// routines consult this before running lower-priority scans.
func (p *Presenter) Showing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Active
}

// State returns a copy of the current state.
func (p *Presenter) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Transition is the single entry point for all events.
func (p *Presenter) Transition(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev := ev.(type) {
	case AssessmentEvent:
		a := ev.Assessment
		if a.Severity == common.SeverityNone {
			return // non-qualifying assessments never hide an active warning
		}
		p.show(stateForAssessment(a), nil)

	case LinkEvent:
		if p.state.Active {
			// A lower-priority detection must never evict an active warning.
			p.logger.Debug("link warning suppressed, already showing", "url", ev.URL)
			return
		}
		p.show(stateForLink(ev.URL), ev.Proceed)

	case ContentMatchEvent:
		if p.state.Active {
			p.logger.Debug("content warning suppressed, already showing")
			return
		}
		p.show(stateForContent(ev.Keywords), nil)

	case DismissEvent:
		p.hide()

	case GoBackEvent:
		if p.state.Active && p.nav != nil {
			p.nav.GoBack()
		}
		p.hide()

	case ProceedEvent:
		proceed := p.proceed
		p.hide()
		if proceed != nil {
			proceed()
		}

	case DeactivateEvent:
		p.hide()
	}
}

// show replaces the current warning. Caller holds the lock.
func (p *Presenter) show(s State, proceed func()) {
	p.state = s
	p.proceed = proceed
	metrics.WarningsShown.WithLabelValues(string(s.Level)).Inc()
	p.logger.Info("warning shown", "level", s.Level, "url", s.URL)
	p.render()
}

// hide returns to the hidden state. Caller holds the lock.
func (p *Presenter) hide() {
	if !p.state.Active {
		return
	}
	p.state = State{}
	p.proceed = nil
	p.render()
}

func (p *Presenter) render() {
	if p.renderer != nil {
		p.renderer.Render(p.state)
	}
}

func stateForAssessment(a aggregator.Assessment) State {
	level := common.LevelForSeverity(a.Severity)
	s := State{
		Active:          true,
		Level:           level,
		URL:             a.URL,
		Severity:        a.Severity,
		Recommendations: recommendationsFor(level),
	}
	switch level {
	case common.LevelRed:
		s.Title = "Dangerous Site Detected"
		s.Message = "This page is flagged as a phishing or scam site. Do not enter passwords, payment details, or personal information."
	case common.LevelOrange:
		s.Title = "Suspicious Site"
		s.Message = "Several threat signals match this page. Treat any request for credentials or payment with suspicion."
	default:
		s.Title = "Caution Advised"
		s.Message = "Some characteristics of this page resemble known scam patterns."
	}
	return s
}

func stateForLink(linkURL string) State {
	return State{
		Active:          true,
		Level:           common.LevelYellow,
		URL:             linkURL,
		Title:           "Suspicious Link Blocked",
		Message:         "The link you clicked looks suspicious and was not opened: " + linkURL,
		Recommendations: recommendationsFor(common.LevelYellow),
	}
}

func stateForContent(keywords []string) State {
	return State{
		Active:          true,
		Level:           common.LevelYellow,
		Title:           "Suspicious Content Detected",
		Message:         "This page contains wording often used in scams: " + strings.Join(keywords, ", "),
		Recommendations: recommendationsFor(common.LevelYellow),
	}
}

func recommendationsFor(level common.Level) []string {
	base := []string{
		"Do not enter passwords or payment details on this page.",
		"Check that the address bar shows the site you expect.",
	}
	if level == common.LevelRed {
		return append([]string{"Leave this page now."}, base...)
	}
	return base
}
