package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/yanqian/ask-console/pkg/util"
)

// Config tunes a single controller instance.
type Config struct {
	// SessionID tags history records produced by this controller.
	SessionID string
	// PreferredResponseType is selected after loading when present in the list.
	PreferredResponseType string
	// AskTimeout bounds one ask round trip. Zero leaves it to the caller's context.
	AskTimeout time.Duration
	// RequestTimeout bounds option loading and reload calls.
	RequestTimeout time.Duration
}

// Controller owns the response container and the response type selection for one page.
//
// Every ask submission takes a request token. Only the latest token may commit a
// panel, so a slow response from a superseded submission never overwrites newer output.
type Controller struct {
	cfg     Config
	backend Backend
	view    View
	tracker Tracker
	history HistoryRecorder
	logger  *slog.Logger

	mu        sync.Mutex
	closed    bool
	options   []ResponseTypeOption
	selected  string
	preferred string
	panel     Panel
	seq       uint64
	loadSeq   uint64
}

// NewController wires a controller. history may be nil.
func NewController(cfg Config, backend Backend, view View, tracker Tracker, history HistoryRecorder, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:       cfg,
		backend:   backend,
		view:      view,
		tracker:   tracker,
		history:   history,
		logger:    logger.With("component", "page.controller"),
		preferred: strings.TrimSpace(cfg.PreferredResponseType),
		panel:     Panel{State: StateIdle},
	}
}

// Init binds the controller and loads the response type list.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return c.LoadResponseTypes(ctx)
}

// Close unbinds the controller. In-flight results are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Selected returns the current response type name, empty until options load.
func (c *Controller) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// Options returns a copy of the loaded option list.
func (c *Controller) Options() []ResponseTypeOption {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.optionsLocked()
}

// Panel returns the last committed response container state.
func (c *Controller) Panel() Panel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.panel
}

// LoadResponseTypes fetches the option list and repopulates the selection.
func (c *Controller) LoadResponseTypes(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.loadSeq++
	token := c.loadSeq
	c.mu.Unlock()

	reqCtx, cancel := withTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	options, err := c.backend.ResponseTypes(reqCtx)
	if err == nil && len(options) == 0 {
		err = ErrNoResponseTypes
	}
	if err != nil {
		c.logger.Error("load response types failed", "error", err)
		c.surfaceLoadError(token, fmt.Sprintf("Could not load response types: %s", err.Error()))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if token != c.loadSeq {
		return ErrSuperseded
	}
	c.options = append([]ResponseTypeOption(nil), options...)
	keep := c.selected
	if keep == "" {
		keep = c.preferred
	}
	if containsOption(c.options, keep) {
		c.selected = keep
	} else {
		c.selected = c.options[0].Name
	}
	c.view.RenderOptions(c.optionsLocked(), c.selected)
	c.logger.Debug("response types loaded", "count", len(c.options), "selected", c.selected)
	return nil
}

// SelectResponseType changes the selected option. Unknown names leave the selection untouched.
func (c *Controller) SelectResponseType(ctx context.Context, name string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if !containsOption(c.options, name) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownResponseType, name)
	}
	c.selected = name
	c.view.RenderOptions(c.optionsLocked(), c.selected)
	c.mu.Unlock()

	c.track(ctx, ResponseTypeChangedEvent(name))
	return nil
}

// KeyPress submits on Enter without Shift and reports whether it did.
func (c *Controller) KeyPress(ctx context.Context, key KeyEvent, question, csrfToken string) (bool, error) {
	if !key.Submits() {
		return false, nil
	}
	return true, c.Submit(ctx, question, csrfToken)
}

// Submit runs the ask flow: loading, one POST, then success or error.
// Overlapping submissions race on the network; the newest one owns the container.
func (c *Controller) Submit(ctx context.Context, question, csrfToken string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	responseType := c.selected
	if !containsOption(c.options, responseType) {
		c.mu.Unlock()
		return ErrNoResponseType
	}
	c.seq++
	token := c.seq
	c.commitLocked(Panel{Token: token, State: StateLoading})
	c.mu.Unlock()

	c.track(ctx, SubmitEvent(responseType))

	req := AskRequest{Question: question, ResponseType: responseType}
	c.logger.Debug("sending ask request", "response_type", responseType, "token", token)

	reqCtx, cancel := withTimeout(ctx, c.cfg.AskTimeout)
	defer cancel()

	start := util.NowUTC()
	resp, askErr := c.backend.Ask(reqCtx, req, csrfToken)

	panel := Panel{Token: token}
	if askErr != nil {
		c.logger.Warn("ask request failed", "error", askErr, "status", StatusCodeOf(askErr))
		panel.State = StateError
		panel.Error = askErr.Error()
	} else {
		panel.State = StateSuccess
		panel.Warning = resp.Warning
		panel.Answer = resp.Answer
		panel.Links = append([]Link(nil), resp.Links...)
	}

	c.record(ctx, req, resp, askErr, util.SinceMillis(start))

	if !c.commit(panel) {
		c.logger.Debug("dropping superseded ask result", "token", token)
		return ErrSuperseded
	}
	return askErr
}

// ReloadConfig asks the backend to refresh its configuration.
func (c *Controller) ReloadConfig(ctx context.Context) error {
	return c.reload(ctx, ReloadConfig)
}

// ReloadData asks the backend to refresh its source data.
func (c *Controller) ReloadData(ctx context.Context) error {
	return c.reload(ctx, ReloadData)
}

func (c *Controller) reload(ctx context.Context, target ReloadTarget) error {
	if c.isClosed() {
		return ErrClosed
	}
	c.track(ctx, ReloadClickEvent(target))

	reqCtx, cancel := withTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	resp, err := c.backend.Reload(reqCtx, target)
	if c.isClosed() {
		return ErrClosed
	}
	if err != nil {
		c.logger.Error("reload failed", "target", target, "error", err)
		c.view.Alert("Reload failed: " + err.Error())
		return err
	}
	c.logger.Info("reload completed", "target", target, "message", resp.Message)
	c.view.Alert(resp.Message)
	return nil
}

// surfaceLoadError takes a fresh render token so the error replaces whatever is
// displayed. A failure of a superseded load is not shown.
func (c *Controller) surfaceLoadError(loadToken uint64, message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || loadToken != c.loadSeq {
		return
	}
	c.seq++
	c.commitLocked(Panel{Token: c.seq, State: StateError, Error: message})
}

func (c *Controller) commit(panel Panel) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || panel.Token != c.seq {
		return false
	}
	c.commitLocked(panel)
	return true
}

func (c *Controller) commitLocked(panel Panel) {
	c.panel = panel
	c.view.RenderPanel(panel)
}

func (c *Controller) optionsLocked() []ResponseTypeOption {
	return append([]ResponseTypeOption(nil), c.options...)
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) track(ctx context.Context, event Event) {
	if c.tracker == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("analytics tracker panicked", "action", event.Action, "panic", r)
		}
	}()
	c.tracker.Track(context.WithoutCancel(ctx), event)
}

func (c *Controller) record(ctx context.Context, req AskRequest, resp AskResponse, askErr error, durationMs int64) {
	if c.history == nil {
		return
	}
	rec := QueryRecord{
		SessionID:    c.cfg.SessionID,
		ClientIP:     RequestMetaFrom(ctx).ClientIP,
		Question:     req.Question,
		ResponseType: req.ResponseType,
		DurationMs:   durationMs,
		CreatedAt:    util.NowUTC(),
	}
	if askErr != nil {
		rec.StatusCode = StatusCodeOf(askErr)
		rec.Error = askErr.Error()
	} else {
		rec.StatusCode = 200
		rec.Answer = resp.Answer
		rec.Warning = resp.Warning
	}
	if err := c.history.Record(context.WithoutCancel(ctx), rec); err != nil {
		c.logger.Warn("record query history failed", "error", err)
	}
}

func containsOption(options []ResponseTypeOption, name string) bool {
	if name == "" {
		return false
	}
	for _, opt := range options {
		if opt.Name == name {
			return true
		}
	}
	return false
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// IsCallerError reports errors caused by the caller rather than the backend.
func IsCallerError(err error) bool {
	return errors.Is(err, ErrNoResponseType) || errors.Is(err, ErrUnknownResponseType) || errors.Is(err, ErrClosed)
}
