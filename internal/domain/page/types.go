package page

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// ResponseTypeOption is a named answer mode offered by the backend.
type ResponseTypeOption struct {
	Name  string `json:"name"`
	About string `json:"about"`
}

// UnmarshalJSON accepts both {"name","about"} objects and bare name strings.
func (o *ResponseTypeOption) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var name string
		if err := json.Unmarshal(data, &name); err != nil {
			return err
		}
		*o = ResponseTypeOption{Name: name}
		return nil
	}
	type plain ResponseTypeOption
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return fmt.Errorf("response type option: %w", err)
	}
	*o = ResponseTypeOption(decoded)
	return nil
}

// ResponseTypesResponse is the payload of the response-types endpoint.
type ResponseTypesResponse struct {
	ResponseTypes []ResponseTypeOption `json:"response_types"`
}

// AskRequest is posted to the ask endpoint.
type AskRequest struct {
	Question     string `json:"question"`
	ResponseType string `json:"response_type"`
}

// Link is an external resource attached to an answer.
type Link struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// AskResponse is the successful ask payload.
type AskResponse struct {
	Answer  string `json:"answer"`
	Warning string `json:"warning,omitempty"`
	Links   []Link `json:"links,omitempty"`
}

// ReloadResponse is returned by both reload endpoints.
type ReloadResponse struct {
	Message string `json:"message"`
}

// ReloadTarget names which backend resource a reload refreshes.
type ReloadTarget string

const (
	// ReloadConfig refreshes the backend configuration.
	ReloadConfig ReloadTarget = "config"
	// ReloadData refreshes the backend source data.
	ReloadData ReloadTarget = "data"
)

// Valid reports whether the target is known.
func (t ReloadTarget) Valid() bool {
	return t == ReloadConfig || t == ReloadData
}

// Label is the human readable button name.
func (t ReloadTarget) Label() string {
	switch t {
	case ReloadConfig:
		return "Reload Config"
	case ReloadData:
		return "Reload Data"
	default:
		return string(t)
	}
}

// State is the ask-flow state of the response container.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Panel is the single rendered state of the response container.
type Panel struct {
	Token   uint64 `json:"token"`
	State   State  `json:"state"`
	Warning string `json:"warning,omitempty"`
	Answer  string `json:"answer,omitempty"`
	Links   []Link `json:"links,omitempty"`
	Error   string `json:"error,omitempty"`
}

// KeyEnter is the key name that submits the question.
const KeyEnter = "Enter"

// KeyEvent is a key press in the question input.
type KeyEvent struct {
	Key   string
	Shift bool
}

// Submits reports whether the key press should submit the question.
func (k KeyEvent) Submits() bool {
	return k.Key == KeyEnter && !k.Shift
}

// QueryRecord captures one completed ask submission.
type QueryRecord struct {
	SessionID    string    `json:"sessionId"`
	ClientIP     string    `json:"clientIp,omitempty"`
	Question     string    `json:"question"`
	ResponseType string    `json:"responseType"`
	Answer       string    `json:"answer,omitempty"`
	Warning      string    `json:"warning,omitempty"`
	StatusCode   int       `json:"statusCode"`
	Error        string    `json:"error,omitempty"`
	DurationMs   int64     `json:"durationMs"`
	CreatedAt    time.Time `json:"createdAt"`
}
