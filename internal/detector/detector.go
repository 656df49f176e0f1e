// Package detector drives the per-page detection lifecycle: it runs the
// page-load scan sequence, intercepts suspicious link clicks, and keeps the
// visible icon state in step with what was found.
package detector

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"pagesentry/internal/aggregator"
	"pagesentry/internal/blocklist"
	"pagesentry/internal/common"
	"pagesentry/internal/heuristic"
	"pagesentry/internal/storage"
	"pagesentry/internal/warning"
)

// IconState is the visible protection indicator for a page context.
type IconState string

const (
	IconClean  IconState = "clean"
	IconThreat IconState = "threat"
)

// IconSink receives icon state updates. May be nil when no UI is attached.
type IconSink interface {
	SetIcon(state IconState)
}

// Link clicks are intercepted when the target URL's lexical risk reaches
// this score. Deliberately at the LOW severity boundary: a click is a
// point-in-time decision, so the bar is lower than for a full page warning.
const linkRiskThreshold = 0.3

// Controller owns detection for one page context. Safe for concurrent use.
type Controller struct {
	agg       *aggregator.Aggregator
	presenter *warning.Presenter
	lists     *blocklist.Manager
	store     storage.Store
	icons     IconSink
	logger    *slog.Logger

	mu      sync.Mutex
	started bool
	active  bool
	last    *pageVisit
}

type pageVisit struct {
	url  string
	text string
}

// NewController wires a detection controller. Pass nil for logger to
// disable logging.
func NewController(agg *aggregator.Aggregator, presenter *warning.Presenter, lists *blocklist.Manager, store storage.Store, icons IconSink, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		agg:       agg,
		presenter: presenter,
		lists:     lists,
		store:     store,
		icons:     icons,
		logger:    logger,
	}
}

// Start loads the persisted active flag and attaches the controller.
// Idempotent: a started controller stays started.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true
	c.active = c.loadActiveFlag(ctx)
	c.logger.Info("detector started", "active", c.active)
}

// Stop detaches the controller and tears down any visible warning.
// Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	c.last = nil
	c.mu.Unlock()

	c.presenter.Transition(warning.DeactivateEvent{})
	c.setIcon(IconClean)
	c.logger.Info("detector stopped")
}

// Active reports whether protection is currently on.
func (c *Controller) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.started && c.active
}

// SetActive flips protection on or off. Switching off tears down the
// visible warning; switching back on re-runs the full page-load sequence
// for the page the controller last saw.
func (c *Controller) SetActive(ctx context.Context, active bool) error {
	c.mu.Lock()
	was := c.active
	c.active = active
	last := c.last
	c.mu.Unlock()

	if err := storage.SetBool(ctx, c.store, storage.KeyActive, active); err != nil {
		c.logger.Warn("persisting active flag failed", "error", err)
	}
	if was == active {
		return nil
	}

	if !active {
		c.presenter.Transition(warning.DeactivateEvent{})
		c.setIcon(IconClean)
		c.logger.Info("protection deactivated")
		return nil
	}

	c.logger.Info("protection reactivated")
	if last != nil {
		c.HandlePageLoad(ctx, last.url, last.text)
	}
	return nil
}

// HandlePageLoad runs the full detection sequence for a loaded page, in
// precedence order: the aggregator pass (blacklist and elevated risk) first,
// then the single in-page keyword scan as the lowest-priority fallback.
func (c *Controller) HandlePageLoad(ctx context.Context, pageURL, pageText string) {
	c.mu.Lock()
	if !c.started || !c.active {
		c.mu.Unlock()
		return
	}
	c.last = &pageVisit{url: pageURL, text: pageText}
	c.mu.Unlock()

	assessment := c.agg.Assess(ctx, aggregator.Query{URL: pageURL, PageText: pageText})
	if assessment.Severity != common.SeverityNone {
		c.presenter.Transition(warning.AssessmentEvent{Assessment: assessment})
		c.setIcon(IconThreat)
		return
	}

	// Lower-priority scans must not run against an active warning.
	if c.presenter.Showing() {
		return
	}
	if matched := c.matchKeywords(ctx, pageText); len(matched) > 0 {
		c.presenter.Transition(warning.ContentMatchEvent{Keywords: matched})
		c.setIcon(IconThreat)
		return
	}
	c.setIcon(IconClean)
}

// HandleLinkClick evaluates a clicked link before navigation. It reports
// whether the navigation was intercepted; proceed re-performs it if the
// user later chooses to continue.
func (c *Controller) HandleLinkClick(ctx context.Context, linkURL string, proceed func()) bool {
	c.mu.Lock()
	ok := c.started && c.active
	c.mu.Unlock()
	if !ok {
		return false
	}
	// Link scans are the lowest-precedence check and never preempt an
	// active warning.
	if c.presenter.Showing() {
		return false
	}

	report := heuristic.AnalyzeURL(linkURL)
	suspicious := report.ErrorKind == common.ErrNone && report.Score >= linkRiskThreshold
	if !suspicious {
		if host := blocklist.NormalizeHost(hostOf(linkURL)); host != "" {
			suspicious = c.lists.MatchHost(ctx, host)
		}
	}
	if !suspicious {
		return false
	}

	c.presenter.Transition(warning.LinkEvent{URL: linkURL, Proceed: proceed})
	c.setIcon(IconThreat)
	c.logger.Info("suspicious link intercepted", "url", linkURL, "score", report.Score)
	return true
}

// matchKeywords scans page text against the merged keyword lists. Lists are
// read fresh on every scan so edits apply without any invalidation step.
func (c *Controller) matchKeywords(ctx context.Context, pageText string) []string {
	if pageText == "" {
		return nil
	}
	lower := strings.ToLower(pageText)
	var matched []string
	for _, word := range c.lists.Keywords(ctx) {
		if strings.Contains(lower, strings.ToLower(word)) {
			matched = append(matched, word)
		}
	}
	return matched
}

func (c *Controller) loadActiveFlag(ctx context.Context) bool {
	// Protection defaults to on when the flag was never written.
	return storage.GetBool(ctx, c.store, storage.KeyActive, true)
}

func (c *Controller) setIcon(state IconState) {
	if c.icons != nil {
		c.icons.SetIcon(state)
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
