package page

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestController_InitPreselectsFirstOption(t *testing.T) {
	backend := &stubBackend{options: []ResponseTypeOption{
		{Name: "Detailed", About: "An in-depth answer."},
		{Name: "Concise", About: "The most direct answer possible."},
	}}
	view := &recordingView{}
	ctrl := newControllerUnderTest(backend, view, &recordingTracker{}, nil, Config{})

	require.NoError(t, ctrl.Init(context.Background()))
	require.Equal(t, "Detailed", ctrl.Selected())
	require.Len(t, view.lastOptions(), 2)
	require.Equal(t, "Detailed", view.lastSelected())
}

func TestController_ReloadKeepsPreferredSelection(t *testing.T) {
	backend := &stubBackend{options: []ResponseTypeOption{{Name: "Detailed"}, {Name: "Concise"}}}
	ctrl := newControllerUnderTest(backend, &recordingView{}, &recordingTracker{}, nil, Config{PreferredResponseType: "Concise"})

	require.NoError(t, ctrl.Init(context.Background()))
	require.Equal(t, "Concise", ctrl.Selected())

	backend.setOptions([]ResponseTypeOption{{Name: "30 Seconds"}, {Name: "Detailed"}})
	require.NoError(t, ctrl.LoadResponseTypes(context.Background()))
	require.Equal(t, "30 Seconds", ctrl.Selected())
}

func TestController_LoadFailureIsSurfaced(t *testing.T) {
	backend := &stubBackend{optionsErr: errors.New("decode response types: unexpected EOF")}
	view := &recordingView{}
	ctrl := newControllerUnderTest(backend, view, &recordingTracker{}, nil, Config{})

	err := ctrl.Init(context.Background())
	require.Error(t, err)

	panel := view.lastPanel()
	require.Equal(t, StateError, panel.State)
	require.Contains(t, panel.Error, "Could not load response types")
	require.Contains(t, panel.Error, "unexpected EOF")
}

func TestController_EmptyOptionListIsAnError(t *testing.T) {
	ctrl := newControllerUnderTest(&stubBackend{}, &recordingView{}, &recordingTracker{}, nil, Config{})

	require.ErrorIs(t, ctrl.Init(context.Background()), ErrNoResponseTypes)
	require.Empty(t, ctrl.Selected())
}

func TestController_SubmitSendsSelectedTypeAndToken(t *testing.T) {
	backend := &stubBackend{
		options: []ResponseTypeOption{{Name: "concise"}},
		askFn: func(ctx context.Context, req AskRequest, csrf string) (AskResponse, error) {
			return AskResponse{Answer: "X is a letter.", Warning: "Inferred.", Links: []Link{{URL: "https://a.example", Text: "A"}}}, nil
		},
	}
	view := &recordingView{}
	tracker := &recordingTracker{}
	ctrl := newControllerUnderTest(backend, view, tracker, nil, Config{})
	require.NoError(t, ctrl.Init(context.Background()))

	require.NoError(t, ctrl.Submit(context.Background(), "What is X?", "csrf-123"))

	calls := backend.askCalls()
	require.Len(t, calls, 1)
	require.Equal(t, AskRequest{Question: "What is X?", ResponseType: "concise"}, calls[0].req)
	require.Equal(t, "csrf-123", calls[0].csrf)

	panels := view.panels()
	require.Len(t, panels, 2)
	require.Equal(t, StateLoading, panels[0].State)
	require.Equal(t, StateSuccess, panels[1].State)
	require.Equal(t, "Inferred.", panels[1].Warning)
	require.Equal(t, "X is a letter.", panels[1].Answer)
	require.Len(t, panels[1].Links, 1)

	require.Equal(t, []Event{SubmitEvent("concise")}, tracker.all())
}

func TestController_SubmitNon2xxRendersStatusAndBody(t *testing.T) {
	backend := &stubBackend{
		options: []ResponseTypeOption{{Name: "concise"}},
		askFn: func(ctx context.Context, req AskRequest, csrf string) (AskResponse, error) {
			return AskResponse{}, &StatusError{StatusCode: 502, Body: "upstream exploded"}
		},
	}
	view := &recordingView{}
	ctrl := newControllerUnderTest(backend, view, &recordingTracker{}, nil, Config{})
	require.NoError(t, ctrl.Init(context.Background()))

	err := ctrl.Submit(context.Background(), "q", "t")
	require.Error(t, err)
	require.Equal(t, 502, StatusCodeOf(err))

	panel := ctrl.Panel()
	require.Equal(t, StateError, panel.State)
	require.Contains(t, panel.Error, "502")
	require.Contains(t, panel.Error, "upstream exploded")
}

func TestController_SubmitWithoutOptions(t *testing.T) {
	backend := &stubBackend{}
	ctrl := newControllerUnderTest(backend, &recordingView{}, &recordingTracker{}, nil, Config{})

	require.ErrorIs(t, ctrl.Submit(context.Background(), "q", "t"), ErrNoResponseType)
	require.Empty(t, backend.askCalls())
}

func TestController_PreferenceIsNotSentWhenLoadFails(t *testing.T) {
	backend := &stubBackend{optionsErr: errors.New("backend down")}
	ctrl := newControllerUnderTest(backend, &recordingView{}, &recordingTracker{}, nil, Config{PreferredResponseType: "Removed Type"})

	require.Error(t, ctrl.Init(context.Background()))
	require.Empty(t, ctrl.Selected())
	require.Empty(t, ctrl.Options())

	require.ErrorIs(t, ctrl.Submit(context.Background(), "q", "t"), ErrNoResponseType)
	require.Empty(t, backend.askCalls())
}

func TestController_PreferenceMissingFromListFallsBackToFirst(t *testing.T) {
	backend := &stubBackend{options: []ResponseTypeOption{{Name: "Concise"}, {Name: "Detailed"}}}
	ctrl := newControllerUnderTest(backend, &recordingView{}, &recordingTracker{}, nil, Config{PreferredResponseType: "Removed Type"})

	require.NoError(t, ctrl.Init(context.Background()))
	require.Equal(t, "Concise", ctrl.Selected())
	require.NoError(t, ctrl.Submit(context.Background(), "q", "t"))
	require.Equal(t, "Concise", backend.askCalls()[0].req.ResponseType)
}

func TestController_StaleLoadFailureIsNotShown(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls int
	backend := &stubBackend{}
	backend.optionsFn = func(context.Context) ([]ResponseTypeOption, error) {
		backend.mu.Lock()
		calls++
		first := calls == 1
		backend.mu.Unlock()
		if first {
			close(entered)
			<-release
			return nil, errors.New("slow failure")
		}
		return []ResponseTypeOption{{Name: "Concise"}}, nil
	}
	view := &recordingView{}
	ctrl := newControllerUnderTest(backend, view, &recordingTracker{}, nil, Config{})

	done := make(chan error, 1)
	go func() { done <- ctrl.LoadResponseTypes(context.Background()) }()
	<-entered

	require.NoError(t, ctrl.LoadResponseTypes(context.Background()))
	require.NoError(t, ctrl.Submit(context.Background(), "q", "t"))
	close(release)
	require.Error(t, <-done)

	panel := ctrl.Panel()
	require.Equal(t, StateSuccess, panel.State)
	for _, p := range view.panels() {
		require.NotEqual(t, StateError, p.State)
	}
}

func TestController_KeyPress(t *testing.T) {
	backend := &stubBackend{options: []ResponseTypeOption{{Name: "concise"}}}
	ctrl := newControllerUnderTest(backend, &recordingView{}, &recordingTracker{}, nil, Config{})
	require.NoError(t, ctrl.Init(context.Background()))

	submitted, err := ctrl.KeyPress(context.Background(), KeyEvent{Key: "Enter", Shift: true}, "q", "t")
	require.NoError(t, err)
	require.False(t, submitted)
	require.Empty(t, backend.askCalls())

	submitted, err = ctrl.KeyPress(context.Background(), KeyEvent{Key: "a"}, "q", "t")
	require.NoError(t, err)
	require.False(t, submitted)

	submitted, err = ctrl.KeyPress(context.Background(), KeyEvent{Key: "Enter"}, "q", "t")
	require.NoError(t, err)
	require.True(t, submitted)
	require.Len(t, backend.askCalls(), 1)
}

// Overlapping submissions are allowed to race; only the newest result is displayed.
func TestController_SupersededResultIsDropped(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	backend := &stubBackend{
		options: []ResponseTypeOption{{Name: "concise"}},
		askFn: func(ctx context.Context, req AskRequest, csrf string) (AskResponse, error) {
			if req.Question == "slow" {
				close(entered)
				<-release
				return AskResponse{Answer: "stale"}, nil
			}
			return AskResponse{Answer: "fresh"}, nil
		},
	}
	view := &recordingView{}
	ctrl := newControllerUnderTest(backend, view, &recordingTracker{}, nil, Config{})
	require.NoError(t, ctrl.Init(context.Background()))

	slowErr := make(chan error, 1)
	go func() { slowErr <- ctrl.Submit(context.Background(), "slow", "t") }()
	<-entered

	require.NoError(t, ctrl.Submit(context.Background(), "fast", "t"))
	close(release)

	require.ErrorIs(t, <-slowErr, ErrSuperseded)
	require.Equal(t, "fresh", ctrl.Panel().Answer)
	for _, panel := range view.panels() {
		require.NotEqual(t, "stale", panel.Answer)
	}
}

func TestController_SelectResponseType(t *testing.T) {
	backend := &stubBackend{options: []ResponseTypeOption{{Name: "Detailed"}, {Name: "Concise"}}}
	view := &recordingView{}
	tracker := &recordingTracker{}
	ctrl := newControllerUnderTest(backend, view, tracker, nil, Config{})
	require.NoError(t, ctrl.Init(context.Background()))

	err := ctrl.SelectResponseType(context.Background(), "Missing")
	require.ErrorIs(t, err, ErrUnknownResponseType)
	require.Equal(t, "Detailed", ctrl.Selected())
	require.Empty(t, tracker.all())

	require.NoError(t, ctrl.SelectResponseType(context.Background(), "Concise"))
	require.Equal(t, "Concise", ctrl.Selected())
	require.Equal(t, "Concise", view.lastSelected())
	require.Equal(t, []Event{ResponseTypeChangedEvent("Concise")}, tracker.all())

	require.NoError(t, ctrl.Submit(context.Background(), "q", "t"))
	require.Equal(t, "Concise", backend.askCalls()[0].req.ResponseType)
}

func TestController_Reload(t *testing.T) {
	backend := &stubBackend{
		reloadFn: func(ctx context.Context, target ReloadTarget) (ReloadResponse, error) {
			if target == ReloadData {
				return ReloadResponse{}, errors.New("connection refused")
			}
			return ReloadResponse{Message: "Configuration reloaded successfully."}, nil
		},
	}
	view := &recordingView{}
	tracker := &recordingTracker{}
	ctrl := newControllerUnderTest(backend, view, tracker, nil, Config{})

	require.NoError(t, ctrl.ReloadConfig(context.Background()))
	require.Error(t, ctrl.ReloadData(context.Background()))

	require.Equal(t, []string{"Configuration reloaded successfully.", "Reload failed: connection refused"}, view.alerts())
	require.Equal(t, []Event{ReloadClickEvent(ReloadConfig), ReloadClickEvent(ReloadData)}, tracker.all())
	require.Equal(t, "Reload Config", tracker.all()[0].Label)
}

func TestController_TrackerPanicDoesNotFailSubmit(t *testing.T) {
	backend := &stubBackend{options: []ResponseTypeOption{{Name: "concise"}}}
	ctrl := newControllerUnderTest(backend, &recordingView{}, panicTracker{}, nil, Config{})
	require.NoError(t, ctrl.Init(context.Background()))

	require.NoError(t, ctrl.Submit(context.Background(), "q", "t"))
	require.Equal(t, StateSuccess, ctrl.Panel().State)
}

func TestController_CloseDropsInFlightAndRejectsCalls(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	backend := &stubBackend{
		options: []ResponseTypeOption{{Name: "concise"}},
		askFn: func(ctx context.Context, req AskRequest, csrf string) (AskResponse, error) {
			close(entered)
			<-release
			return AskResponse{Answer: "late"}, nil
		},
	}
	ctrl := newControllerUnderTest(backend, &recordingView{}, &recordingTracker{}, nil, Config{})
	require.NoError(t, ctrl.Init(context.Background()))

	done := make(chan error, 1)
	go func() { done <- ctrl.Submit(context.Background(), "q", "t") }()
	<-entered
	ctrl.Close()
	close(release)

	require.ErrorIs(t, <-done, ErrSuperseded)
	require.Equal(t, StateLoading, ctrl.Panel().State)
	require.ErrorIs(t, ctrl.Submit(context.Background(), "q", "t"), ErrClosed)
	require.ErrorIs(t, ctrl.ReloadConfig(context.Background()), ErrClosed)
	require.ErrorIs(t, ctrl.Init(context.Background()), ErrClosed)
}

func TestController_RecordsHistory(t *testing.T) {
	backend := &stubBackend{options: []ResponseTypeOption{{Name: "concise"}}}
	history := &recordingHistory{}
	ctrl := newControllerUnderTest(backend, &recordingView{}, &recordingTracker{}, history, Config{SessionID: "sess-1"})
	require.NoError(t, ctrl.Init(context.Background()))

	ctx := WithRequestMeta(context.Background(), RequestMeta{ClientIP: "10.0.0.7"})
	require.NoError(t, ctrl.Submit(ctx, "What is X?", "t"))

	require.Len(t, history.records, 1)
	rec := history.records[0]
	require.Equal(t, "sess-1", rec.SessionID)
	require.Equal(t, "10.0.0.7", rec.ClientIP)
	require.Equal(t, "What is X?", rec.Question)
	require.Equal(t, 200, rec.StatusCode)
	require.WithinDuration(t, time.Now(), rec.CreatedAt, time.Minute)
}

func TestResponseTypeOption_DecodesObjectsAndStrings(t *testing.T) {
	var payload ResponseTypesResponse
	raw := `{"response_types":[{"name":"Detailed","about":"In depth."},"Concise"]}`
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	require.Equal(t, []ResponseTypeOption{
		{Name: "Detailed", About: "In depth."},
		{Name: "Concise"},
	}, payload.ResponseTypes)

	require.Error(t, json.Unmarshal([]byte(`{"response_types":[42]}`), &payload))
}

func newControllerUnderTest(backend Backend, view View, tracker Tracker, history HistoryRecorder, cfg Config) *Controller {
	return NewController(cfg, backend, view, tracker, history, newTestLogger())
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

type askCall struct {
	req  AskRequest
	csrf string
}

type stubBackend struct {
	mu         sync.Mutex
	options    []ResponseTypeOption
	optionsErr error
	optionsFn  func(ctx context.Context) ([]ResponseTypeOption, error)
	asks       []askCall
	askFn      func(ctx context.Context, req AskRequest, csrf string) (AskResponse, error)
	reloadFn   func(ctx context.Context, target ReloadTarget) (ReloadResponse, error)
}

func (s *stubBackend) setOptions(options []ResponseTypeOption) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options = options
}

func (s *stubBackend) askCalls() []askCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]askCall(nil), s.asks...)
}

func (s *stubBackend) ResponseTypes(ctx context.Context) ([]ResponseTypeOption, error) {
	s.mu.Lock()
	fn := s.optionsFn
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.optionsErr != nil {
		return nil, s.optionsErr
	}
	return append([]ResponseTypeOption(nil), s.options...), nil
}

func (s *stubBackend) Ask(ctx context.Context, req AskRequest, csrf string) (AskResponse, error) {
	s.mu.Lock()
	s.asks = append(s.asks, askCall{req: req, csrf: csrf})
	fn := s.askFn
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, req, csrf)
	}
	return AskResponse{Answer: "ok"}, nil
}

func (s *stubBackend) Reload(ctx context.Context, target ReloadTarget) (ReloadResponse, error) {
	if s.reloadFn != nil {
		return s.reloadFn(ctx, target)
	}
	return ReloadResponse{Message: "reloaded"}, nil
}

type recordingView struct {
	mu         sync.Mutex
	optionSets [][]ResponseTypeOption
	selections []string
	panelLog   []Panel
	alertLog   []string
}

func (v *recordingView) RenderOptions(options []ResponseTypeOption, selected string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.optionSets = append(v.optionSets, options)
	v.selections = append(v.selections, selected)
}

func (v *recordingView) RenderPanel(panel Panel) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.panelLog = append(v.panelLog, panel)
}

func (v *recordingView) Alert(message string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.alertLog = append(v.alertLog, message)
}

func (v *recordingView) lastOptions() []ResponseTypeOption {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.optionSets) == 0 {
		return nil
	}
	return v.optionSets[len(v.optionSets)-1]
}

func (v *recordingView) lastSelected() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.selections) == 0 {
		return ""
	}
	return v.selections[len(v.selections)-1]
}

func (v *recordingView) lastPanel() Panel {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.panelLog) == 0 {
		return Panel{}
	}
	return v.panelLog[len(v.panelLog)-1]
}

func (v *recordingView) panels() []Panel {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Panel(nil), v.panelLog...)
}

func (v *recordingView) alerts() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string(nil), v.alertLog...)
}

type recordingTracker struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingTracker) Track(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingTracker) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

type panicTracker struct{}

func (panicTracker) Track(context.Context, Event) { panic("gtag is not defined") }

type recordingHistory struct {
	records []QueryRecord
}

func (r *recordingHistory) Record(_ context.Context, record QueryRecord) error {
	r.records = append(r.records, record)
	return nil
}
