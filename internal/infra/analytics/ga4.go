package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/ask-console/internal/domain/page"
)

const defaultGA4Endpoint = "https://www.google-analytics.com/mp/collect"

// GA4Tracker sends events through the Google Analytics 4 Measurement Protocol.
type GA4Tracker struct {
	endpoint      string
	measurementID string
	apiSecret     string
	httpClient    *http.Client
	logger        *slog.Logger
}

// NewGA4Tracker constructs the tracker. An empty endpoint uses the public collector.
func NewGA4Tracker(endpoint, measurementID, apiSecret string, timeout time.Duration, logger *slog.Logger) *GA4Tracker {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = defaultGA4Endpoint
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &GA4Tracker{
		endpoint:      endpoint,
		measurementID: measurementID,
		apiSecret:     apiSecret,
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logger.With("component", "analytics.ga4"),
	}
}

type ga4Payload struct {
	ClientID string     `json:"client_id"`
	Events   []ga4Event `json:"events"`
}

type ga4Event struct {
	Name   string            `json:"name"`
	Params map[string]string `json:"params"`
}

// Track delivers the event synchronously and logs failures. Wrap it in an AsyncTracker.
func (t *GA4Tracker) Track(ctx context.Context, event page.Event) {
	if err := t.send(ctx, event); err != nil {
		t.logger.Warn("ga4 delivery failed", "action", event.Action, "label", event.Label, "error", err)
	}
}

func (t *GA4Tracker) send(ctx context.Context, event page.Event) error {
	clientID := page.RequestMetaFrom(ctx).ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	params := map[string]string{
		"event_category": event.Category,
		"event_label":    event.Label,
	}
	if event.Value != "" {
		params["value"] = event.Value
	}
	body, err := json.Marshal(ga4Payload{
		ClientID: clientID,
		Events:   []ga4Event{{Name: event.Action, Params: params}},
	})
	if err != nil {
		return fmt.Errorf("encode ga4 payload: %w", err)
	}

	query := url.Values{}
	query.Set("measurement_id", t.measurementID)
	query.Set("api_secret", t.apiSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build ga4 request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ga4 request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("ga4 request error: status=%d body=%s", resp.StatusCode, string(payload))
	}
	return nil
}

var _ page.Tracker = (*GA4Tracker)(nil)
