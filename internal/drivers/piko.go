package drivers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// PikoClient drives the Piko video platform's server API: generic
// event injection and bookmark creation on recorded footage. It
// implements the Driver contract.
//
// Connector config fields:
//
//   - api_url (required): base URL of the Piko server
//   - username, password (required): basic-auth credentials
//   - camera_id (optional): default camera for bookmarks when the
//     action supplies no target
type PikoClient struct {
	httpDoer Doer
	logger   Logger
}

// NewPikoClient creates a Piko driver client.
func NewPikoClient(httpDoer Doer) *PikoClient {
	return &PikoClient{httpDoer: httpDoer, logger: noopLogger{}}
}

// SetLogger sets the logger for the client.
func (c *PikoClient) SetLogger(logger Logger) {
	c.logger = logger
}

// CreateEvent injects a generic event into the Piko event log.
func (c *PikoClient) CreateEvent(ctx context.Context, connectorConfig map[string]any, source, caption, description string) error {
	baseURL, err := pikoBaseURL(connectorConfig)
	if err != nil {
		return err
	}

	payload := map[string]any{
		"source":      source,
		"caption":     caption,
		"description": description,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}

	return c.post(ctx, connectorConfig, baseURL+"/api/createEvent", payload)
}

// CreateBookmark creates a bookmark spanning durationMs on the
// connector's configured camera.
func (c *PikoClient) CreateBookmark(ctx context.Context, connectorConfig map[string]any, name, description string, durationMs int64, tags []string) error {
	baseURL, err := pikoBaseURL(connectorConfig)
	if err != nil {
		return err
	}

	payload := map[string]any{
		"name":        name,
		"description": description,
		"startTimeMs": time.Now().UTC().Add(-time.Duration(durationMs) * time.Millisecond).UnixMilli(),
		"durationMs":  durationMs,
	}
	if len(tags) > 0 {
		payload["tags"] = tags
	}
	if cameraID := configString(connectorConfig, "camera_id", ""); cameraID != "" {
		payload["deviceId"] = cameraID
	}

	return c.post(ctx, connectorConfig, baseURL+"/rest/v3/devices/*/bookmarks", payload)
}

func (c *PikoClient) post(ctx context.Context, connectorConfig map[string]any, url string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	username := configString(connectorConfig, "username", "")
	password := configString(connectorConfig, "password", "")
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password required", ErrMissingConfig)
	}
	req.SetBasicAuth(username, password)

	resp, err := c.httpDoer.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrVendorRejected, resp.StatusCode)
	}

	c.logger.Debug("piko request accepted", "url", url)
	return nil
}

func pikoBaseURL(connectorConfig map[string]any) (string, error) {
	baseURL := configString(connectorConfig, "api_url", "")
	if baseURL == "" {
		return "", fmt.Errorf("%w: api_url required", ErrMissingConfig)
	}
	return strings.TrimRight(baseURL, "/"), nil
}
