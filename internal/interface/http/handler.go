package http

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/ask-console/internal/domain/history"
	"github.com/yanqian/ask-console/internal/domain/page"
	"github.com/yanqian/ask-console/internal/domain/session"
	"github.com/yanqian/ask-console/internal/render"
)

const htmlContentType = "text/html; charset=utf-8"

// PageHandler serves the question page and its interaction fragments.
type PageHandler struct {
	manager *session.Manager
	csrf    *CSRFTokens
	history history.Repository
	title   string
	logger  *slog.Logger
}

// NewPageHandler constructs the page handler. history may be nil.
func NewPageHandler(manager *session.Manager, csrf *CSRFTokens, history history.Repository, title string, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		manager: manager,
		csrf:    csrf,
		history: history,
		title:   title,
		logger:  logger.With("component", "http.page"),
	}
}

// Index renders the full page with the last committed state of the session.
func (h *PageHandler) Index(c *gin.Context) {
	handle, ok := h.session(c)
	if !ok {
		return
	}
	if !sessionCreated(c) {
		// Each page load refreshes the option list, keeping the current choice.
		if err := handle.Controller.LoadResponseTypes(c.Request.Context()); err != nil && !errors.Is(err, page.ErrSuperseded) {
			h.logger.Warn("refresh response types failed", "session_id", handle.ID, "error", err)
		}
	}

	token, err := h.csrf.Issue(handle.ID)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "csrf_error", "could not start session", err))
		return
	}

	snap := handle.View.Snapshot()
	options, err := render.Options(snap.Options, snap.SelectedResponseType)
	if err != nil {
		h.renderFailed(c, err)
		return
	}
	panel, err := render.Panel(snap.Panel)
	if err != nil {
		h.renderFailed(c, err)
		return
	}
	notice, err := render.Notice(handle.View.TakeNotice())
	if err != nil {
		h.renderFailed(c, err)
		return
	}
	body, err := render.Index(render.IndexData{
		Title:     h.title,
		CSRFToken: token,
		Options:   options,
		Panel:     panel,
		Notice:    notice,
		HasPanel:  snap.Panel.State != page.StateIdle,
	})
	if err != nil {
		h.renderFailed(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, htmlContentType, body)
}

// Ask submits the question and returns the response container fragment.
func (h *PageHandler) Ask(c *gin.Context) {
	handle, ok := h.session(c)
	if !ok {
		return
	}
	ctx := h.requestContext(c, handle)
	if err := h.syncSelection(ctx, handle, c); err != nil {
		h.respondPanel(c, handle, err)
		return
	}
	err := handle.Controller.Submit(ctx, c.PostForm("question"), csrfToken(c))
	h.respondPanel(c, handle, err)
}

// KeyPress submits on Enter without Shift and answers 204 for any other key.
func (h *PageHandler) KeyPress(c *gin.Context) {
	handle, ok := h.session(c)
	if !ok {
		return
	}
	key := page.KeyEvent{Key: c.PostForm("key"), Shift: formBool(c.PostForm("shift"))}
	if !key.Submits() {
		c.Status(http.StatusNoContent)
		return
	}
	ctx := h.requestContext(c, handle)
	if err := h.syncSelection(ctx, handle, c); err != nil {
		h.respondPanel(c, handle, err)
		return
	}
	_, err := handle.Controller.KeyPress(ctx, key, c.PostForm("question"), csrfToken(c))
	h.respondPanel(c, handle, err)
}

// SelectResponseType changes the selection and returns the options fragment.
func (h *PageHandler) SelectResponseType(c *gin.Context) {
	handle, ok := h.session(c)
	if !ok {
		return
	}
	name := firstNonEmpty(c.PostForm("responseType"), c.PostForm("name"))
	status := http.StatusOK
	if err := handle.Controller.SelectResponseType(h.requestContext(c, handle), name); err != nil {
		h.logger.Warn("select response type rejected", "session_id", handle.ID, "name", name, "error", err)
		status = http.StatusUnprocessableEntity
	}
	snap := handle.View.Snapshot()
	fragment, err := render.Options(snap.Options, snap.SelectedResponseType)
	if err != nil {
		h.renderFailed(c, err)
		return
	}
	h.writeFragment(c, status, fragment)
}

// ReloadConfig triggers a backend configuration reload and returns the notice fragment.
func (h *PageHandler) ReloadConfig(c *gin.Context) {
	h.reload(c, page.ReloadConfig)
}

// ReloadData triggers a backend data reload and returns the notice fragment.
func (h *PageHandler) ReloadData(c *gin.Context) {
	h.reload(c, page.ReloadData)
}

func (h *PageHandler) reload(c *gin.Context, target page.ReloadTarget) {
	handle, ok := h.session(c)
	if !ok {
		return
	}
	ctx := h.requestContext(c, handle)
	var err error
	switch target {
	case page.ReloadConfig:
		err = handle.Controller.ReloadConfig(ctx)
	default:
		err = handle.Controller.ReloadData(ctx)
	}

	status := http.StatusOK
	message := handle.View.TakeNotice()
	if err != nil && page.IsCallerError(err) {
		status = http.StatusUnprocessableEntity
		message = err.Error()
	}
	fragment, renderErr := render.Notice(message)
	if renderErr != nil {
		h.renderFailed(c, renderErr)
		return
	}
	h.writeFragment(c, status, fragment)
}

// Response returns the current response container fragment.
func (h *PageHandler) Response(c *gin.Context) {
	handle, ok := h.session(c)
	if !ok {
		return
	}
	h.respondPanel(c, handle, nil)
}

// History lists the latest submissions of the session.
func (h *PageHandler) History(c *gin.Context) {
	handle, ok := h.session(c)
	if !ok {
		return
	}
	if h.history == nil {
		c.JSON(http.StatusOK, gin.H{"items": []page.QueryRecord{}})
		return
	}
	limit := history.DefaultRecentLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", "limit must be a positive integer", err))
			return
		}
		limit = parsed
	}
	items, err := h.history.Recent(c.Request.Context(), handle.ID, limit)
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "history_failed", "could not load history", err))
		return
	}
	if items == nil {
		items = []page.QueryRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Health reports liveness and the number of bound sessions.
func (h *PageHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.manager.Len()})
}

// respondPanel renders the committed panel. Caller errors are shown in an error
// panel that is not committed, so the stored page state is unchanged.
func (h *PageHandler) respondPanel(c *gin.Context, handle *session.Handle, err error) {
	status := http.StatusOK
	panel := handle.View.Snapshot().Panel
	switch {
	case err == nil, errors.Is(err, page.ErrSuperseded):
	case page.IsCallerError(err):
		status = http.StatusUnprocessableEntity
		panel = page.Panel{State: page.StateError, Error: callerMessage(err)}
	default:
		h.logger.Info("ask completed with error", "request_id", requestID(c), "session_id", handle.ID, "error", err)
	}
	fragment, renderErr := render.Panel(panel)
	if renderErr != nil {
		h.renderFailed(c, renderErr)
		return
	}
	h.writeFragment(c, status, fragment)
}

// syncSelection applies a response type carried by the ask form.
func (h *PageHandler) syncSelection(ctx context.Context, handle *session.Handle, c *gin.Context) error {
	name := firstNonEmpty(c.PostForm("response_type"), c.PostForm("responseType"))
	if name == "" || name == handle.Controller.Selected() {
		return nil
	}
	return handle.Controller.SelectResponseType(ctx, name)
}

func (h *PageHandler) session(c *gin.Context) (*session.Handle, bool) {
	handle, ok := getSession(c)
	if !ok {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "session_missing", "session not initialized", nil))
		return nil, false
	}
	return handle, true
}

func (h *PageHandler) requestContext(c *gin.Context, handle *session.Handle) context.Context {
	return page.WithRequestMeta(c.Request.Context(), page.RequestMeta{
		ClientIP: c.ClientIP(),
		ClientID: handle.ID,
	})
}

func (h *PageHandler) writeFragment(c *gin.Context, status int, fragment template.HTML) {
	c.Data(status, htmlContentType, []byte(fragment))
}

func (h *PageHandler) renderFailed(c *gin.Context, err error) {
	abortWithError(c, NewHTTPError(http.StatusInternalServerError, "render_failed", "could not render page", err))
}

func callerMessage(err error) string {
	switch {
	case errors.Is(err, page.ErrNoResponseType):
		return "Please select a response type."
	case errors.Is(err, page.ErrUnknownResponseType):
		return "Unknown response type."
	case errors.Is(err, page.ErrClosed):
		return "Your session has expired. Reload the page."
	default:
		return err.Error()
	}
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

