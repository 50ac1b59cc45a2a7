package page

import "context"

// Backend is the answer backend consumed by the controller.
type Backend interface {
	ResponseTypes(ctx context.Context) ([]ResponseTypeOption, error)
	Ask(ctx context.Context, req AskRequest, csrfToken string) (AskResponse, error)
	Reload(ctx context.Context, target ReloadTarget) (ReloadResponse, error)
}

// View receives committed render state. Implementations must not call back into
// the controller; they run while the controller holds its render lock.
type View interface {
	RenderOptions(options []ResponseTypeOption, selected string)
	RenderPanel(panel Panel)
	Alert(message string)
}

// Tracker emits analytics events. Track must return promptly.
type Tracker interface {
	Track(ctx context.Context, event Event)
}

// HistoryRecorder persists completed ask submissions.
type HistoryRecorder interface {
	Record(ctx context.Context, record QueryRecord) error
}

// Event is a single analytics event in gtag shape.
type Event struct {
	Action   string `json:"action"`
	Category string `json:"category"`
	Label    string `json:"label"`
	Value    string `json:"value,omitempty"`
}

// SubmitEvent is emitted for every question submission.
func SubmitEvent(responseType string) Event {
	return Event{Action: "submit", Category: "Queries", Label: "Query Submitted", Value: responseType}
}

// ResponseTypeChangedEvent is emitted when the selection changes.
func ResponseTypeChangedEvent(name string) Event {
	return Event{Action: "change", Category: "Settings", Label: "Response Type Changed", Value: name}
}

// ReloadClickEvent is emitted for reload button clicks.
func ReloadClickEvent(target ReloadTarget) Event {
	return Event{Action: "click", Category: "Button", Label: target.Label()}
}

type requestMetaKey struct{}

// RequestMeta carries caller details that end up in the query history.
type RequestMeta struct {
	ClientIP string
	// ClientID is a stable pseudonymous id for analytics, usually the session id.
	ClientID string
}

// WithRequestMeta attaches caller details to ctx.
func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFrom returns the caller details attached to ctx, if any.
func RequestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}
