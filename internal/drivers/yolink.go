package drivers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// defaultYoLinkAPIURL is the hosted API endpoint used when the
// connector config does not override it.
const defaultYoLinkAPIURL = "https://api.yosmart.com/open/yolink/v2/api"

// Doer performs outbound HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// YoLinkClient sends device commands through the YoLink HTTP API. It
// implements the device action handler's commander contract.
//
// Commands authenticate per device: the token travels in the request
// body, not a header, matching the vendor's BDDP envelope.
type YoLinkClient struct {
	httpDoer Doer
	logger   Logger
}

// NewYoLinkClient creates a YoLink command client.
func NewYoLinkClient(httpDoer Doer) *YoLinkClient {
	return &YoLinkClient{httpDoer: httpDoer, logger: noopLogger{}}
}

// SetLogger sets the logger for the client.
func (c *YoLinkClient) SetLogger(logger Logger) {
	c.logger = logger
}

// SendCommand issues one vendor command against a device.
func (c *YoLinkClient) SendCommand(ctx context.Context, connectorConfig map[string]any, method, vendorDeviceID, token string, params map[string]any) error {
	apiURL := configString(connectorConfig, "api_url", defaultYoLinkAPIURL)

	envelope := map[string]any{
		"method":       method,
		"targetDevice": vendorDeviceID,
		"token":        token,
	}
	if len(params) > 0 {
		envelope["params"] = params
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("encoding command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building command request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpDoer.Do(req)
	if err != nil {
		return fmt.Errorf("sending command: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrVendorRejected, resp.StatusCode)
	}

	// The vendor wraps errors in a 200 response; the code field is the
	// real outcome.
	var result struct {
		Code string `json:"code"`
		Desc string `json:"desc"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decoding command response: %w", err)
	}
	if result.Code != "" && result.Code != "000000" {
		return fmt.Errorf("%w: code %s (%s)", ErrVendorRejected, result.Code, result.Desc)
	}

	c.logger.Debug("command sent", "method", method, "device", vendorDeviceID)
	return nil
}

// configString reads a string field from connector config with a
// fallback.
func configString(cfg map[string]any, key, fallback string) string {
	if v, ok := cfg[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
