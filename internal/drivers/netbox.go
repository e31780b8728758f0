package drivers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// NetBoxClient sends portal commands to a NetBox access control panel.
// It implements the device action handler's commander contract.
//
// Connector config fields:
//
//   - api_url (required): base URL of the panel's command API
//   - api_key (required): shared key sent with every command
type NetBoxClient struct {
	httpDoer Doer
	logger   Logger
}

// NewNetBoxClient creates a NetBox command client.
func NewNetBoxClient(httpDoer Doer) *NetBoxClient {
	return &NetBoxClient{httpDoer: httpDoer, logger: noopLogger{}}
}

// SetLogger sets the logger for the client.
func (c *NetBoxClient) SetLogger(logger Logger) {
	c.logger = logger
}

// SetPortalState issues a lock or unlock command against one portal.
// The panel's command API is form-encoded.
func (c *NetBoxClient) SetPortalState(ctx context.Context, connectorConfig map[string]any, portalKey, command string) error {
	baseURL := configString(connectorConfig, "api_url", "")
	if baseURL == "" {
		return fmt.Errorf("%w: api_url required", ErrMissingConfig)
	}
	apiKey := configString(connectorConfig, "api_key", "")
	if apiKey == "" {
		return fmt.Errorf("%w: api_key required", ErrMissingConfig)
	}

	form := url.Values{}
	form.Set("APIKey", apiKey)
	form.Set("PortalKey", portalKey)
	form.Set("Command", command)

	endpoint := strings.TrimRight(baseURL, "/") + "/api/portal"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building portal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpDoer.Do(req)
	if err != nil {
		return fmt.Errorf("sending portal command: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrVendorRejected, resp.StatusCode)
	}

	c.logger.Debug("portal command sent", "portal", portalKey, "command", command)
	return nil
}
