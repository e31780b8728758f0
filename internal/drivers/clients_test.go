package drivers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ─────────────────────────────────────────────────────────────────────
// YoLink Client
// ─────────────────────────────────────────────────────────────────────

func TestYoLinkSendCommand(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"code": "000000"})
	}))
	defer server.Close()

	client := NewYoLinkClient(server.Client())
	cfg := map[string]any{"api_url": server.URL}

	err := client.SendCommand(context.Background(), cfg, "Switch.setState", "vendor-abc", "tok-1", map[string]any{"state": "open"})
	if err != nil {
		t.Fatalf("SendCommand failed: %v", err)
	}

	if received["method"] != "Switch.setState" {
		t.Errorf("expected method Switch.setState, got %v", received["method"])
	}
	if received["targetDevice"] != "vendor-abc" {
		t.Errorf("expected targetDevice vendor-abc, got %v", received["targetDevice"])
	}
	if received["token"] != "tok-1" {
		t.Errorf("expected token in body, got %v", received["token"])
	}
	params, ok := received["params"].(map[string]any)
	if !ok || params["state"] != "open" {
		t.Errorf("expected params.state open, got %v", received["params"])
	}
}

func TestYoLinkVendorErrorCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"code": "020104", "desc": "device offline"})
	}))
	defer server.Close()

	client := NewYoLinkClient(server.Client())
	err := client.SendCommand(context.Background(), map[string]any{"api_url": server.URL}, "Switch.setState", "vendor-abc", "tok-1", nil)
	if !errors.Is(err, ErrVendorRejected) {
		t.Errorf("expected ErrVendorRejected for vendor error code, got %v", err)
	}
}

func TestYoLinkHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewYoLinkClient(server.Client())
	err := client.SendCommand(context.Background(), map[string]any{"api_url": server.URL}, "Lock.setState", "vendor-abc", "tok-1", nil)
	if !errors.Is(err, ErrVendorRejected) {
		t.Errorf("expected ErrVendorRejected for HTTP 503, got %v", err)
	}
}

// ─────────────────────────────────────────────────────────────────────
// Piko Client
// ─────────────────────────────────────────────────────────────────────

func TestPikoCreateEvent(t *testing.T) {
	var path string
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		username, password, ok := r.BasicAuth()
		if !ok || username != "admin" || password != "secret" {
			t.Errorf("expected basic auth admin/secret, got %s/%s", username, password)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewPikoClient(server.Client())
	cfg := map[string]any{"api_url": server.URL, "username": "admin", "password": "secret"}

	err := client.CreateEvent(context.Background(), cfg, "automation", "Leak detected", "Basement sensor tripped")
	if err != nil {
		t.Fatalf("CreateEvent failed: %v", err)
	}

	if path != "/api/createEvent" {
		t.Errorf("expected /api/createEvent, got %s", path)
	}
	if received["caption"] != "Leak detected" {
		t.Errorf("expected caption in payload, got %v", received["caption"])
	}
}

func TestPikoCreateBookmark(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewPikoClient(server.Client())
	cfg := map[string]any{
		"api_url":   server.URL,
		"username":  "admin",
		"password":  "secret",
		"camera_id": "cam-7",
	}

	err := client.CreateBookmark(context.Background(), cfg, "Motion review", "Triggered by automation", 30000, []string{"automation", "motion"})
	if err != nil {
		t.Fatalf("CreateBookmark failed: %v", err)
	}

	if received["durationMs"] != float64(30000) {
		t.Errorf("expected durationMs 30000, got %v", received["durationMs"])
	}
	if received["deviceId"] != "cam-7" {
		t.Errorf("expected deviceId cam-7, got %v", received["deviceId"])
	}
	tags, ok := received["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Errorf("expected two tags, got %v", received["tags"])
	}
}

func TestPikoMissingConfig(t *testing.T) {
	client := NewPikoClient(http.DefaultClient)

	err := client.CreateEvent(context.Background(), map[string]any{}, "automation", "caption", "")
	if !errors.Is(err, ErrMissingConfig) {
		t.Errorf("expected ErrMissingConfig without api_url, got %v", err)
	}

	err = client.CreateEvent(context.Background(), map[string]any{"api_url": "http://piko.local"}, "automation", "caption", "")
	if !errors.Is(err, ErrMissingConfig) {
		t.Errorf("expected ErrMissingConfig without credentials, got %v", err)
	}
}

// ─────────────────────────────────────────────────────────────────────
// NetBox Client
// ─────────────────────────────────────────────────────────────────────

func TestNetBoxSetPortalState(t *testing.T) {
	var form map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/portal" {
			t.Errorf("expected /api/portal, got %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parsing form: %v", err)
		}
		form = map[string]string{
			"APIKey":    r.PostFormValue("APIKey"),
			"PortalKey": r.PostFormValue("PortalKey"),
			"Command":   r.PostFormValue("Command"),
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewNetBoxClient(server.Client())
	cfg := map[string]any{"api_url": server.URL, "api_key": "key-1"}

	err := client.SetPortalState(context.Background(), cfg, "portal-front", "unlock")
	if err != nil {
		t.Fatalf("SetPortalState failed: %v", err)
	}

	if form["APIKey"] != "key-1" || form["PortalKey"] != "portal-front" || form["Command"] != "unlock" {
		t.Errorf("unexpected form values: %v", form)
	}
}

func TestNetBoxMissingAPIKey(t *testing.T) {
	client := NewNetBoxClient(http.DefaultClient)

	err := client.SetPortalState(context.Background(), map[string]any{"api_url": "http://panel.local"}, "portal-front", "lock")
	if !errors.Is(err, ErrMissingConfig) {
		t.Errorf("expected ErrMissingConfig without api_key, got %v", err)
	}
}

func TestNetBoxPanelRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewNetBoxClient(server.Client())
	cfg := map[string]any{"api_url": server.URL, "api_key": "bad-key"}

	err := client.SetPortalState(context.Background(), cfg, "portal-front", "lock")
	if !errors.Is(err, ErrVendorRejected) {
		t.Errorf("expected ErrVendorRejected for HTTP 403, got %v", err)
	}
}
