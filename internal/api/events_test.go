package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/austin-smith/fusion-bridge-sub003/internal/event"
)

// seedEvent appends a standardized event with an optional spatial snapshot.
func (f *testFixture) seedEvent(t *testing.T, id string, ts time.Time, category event.Category, typ event.Type, areaID *string) {
	t.Helper()
	ev := &event.StandardizedEvent{
		EventID:     id,
		Timestamp:   ts,
		ConnectorID: "conn-1",
		DeviceID:    "vendor-dev-1",
		Category:    category,
		Type:        typ,
	}
	if err := f.events.Append(context.Background(), ev, areaID, nil); err != nil {
		t.Fatalf("seed event %s: %v", id, err)
	}
}

func TestQueryEvents_DefaultWindow(t *testing.T) {
	f := newTestFixture(t)
	now := time.Now().UTC()
	f.seedEvent(t, "evt-1", now.Add(-time.Hour), event.CategoryAnalytics, event.TypeMotionDetected, nil)
	f.seedEvent(t, "evt-2", now.Add(-48*time.Hour), event.CategoryAnalytics, event.TypeMotionDetected, nil)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeBody(t, w)
	// Only the event inside the last 24 hours is returned.
	if int(resp["count"].(float64)) != 1 {
		t.Errorf("count = %v, want 1", resp["count"])
	}
}

func TestQueryEvents_ExplicitWindowAndCategory(t *testing.T) {
	f := newTestFixture(t)
	base := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	f.seedEvent(t, "evt-1", base, event.CategoryAnalytics, event.TypeMotionDetected, nil)
	f.seedEvent(t, "evt-2", base.Add(time.Minute), event.CategoryAccessControl, event.TypeAccessDenied, nil)

	url := "/api/v1/events?from=2026-03-10T11:00:00Z&to=2026-03-10T13:00:00Z&category=ACCESS_CONTROL"
	w := f.do(httptest.NewRequest(http.MethodGet, url, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", w.Code, http.StatusOK, w.Body.String())
	}
	resp := decodeBody(t, w)
	if int(resp["count"].(float64)) != 1 {
		t.Fatalf("count = %v, want 1", resp["count"])
	}

	events := resp["events"].([]any)
	first := events[0].(map[string]any)
	if first["event_id"] != "evt-2" {
		t.Errorf("event_id = %v, want evt-2", first["event_id"])
	}
}

func TestQueryEvents_AreaSnapshotFilter(t *testing.T) {
	f := newTestFixture(t)
	now := time.Now().UTC()
	area := "area-lobby"
	f.seedEvent(t, "evt-1", now.Add(-time.Minute), event.CategoryAnalytics, event.TypeMotionDetected, &area)
	f.seedEvent(t, "evt-2", now.Add(-time.Minute), event.CategoryAnalytics, event.TypeMotionDetected, nil)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/events?area_id=area-lobby", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	resp := decodeBody(t, w)
	if int(resp["count"].(float64)) != 1 {
		t.Errorf("count = %v, want 1", resp["count"])
	}
}

func TestQueryEvents_BadTimestamp(t *testing.T) {
	f := newTestFixture(t)

	w := f.do(httptest.NewRequest(http.MethodGet, "/api/v1/events?from=yesterday", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestQueryEvents_InvertedWindow(t *testing.T) {
	f := newTestFixture(t)

	url := "/api/v1/events?from=2026-03-10T13:00:00Z&to=2026-03-10T11:00:00Z"
	w := f.do(httptest.NewRequest(http.MethodGet, url, nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d; body: %s", w.Code, http.StatusBadRequest, w.Body.String())
	}
}
