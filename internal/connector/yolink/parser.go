package yolink

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
	"github.com/austin-smith/fusion-bridge-sub003/internal/device"
	"github.com/austin-smith/fusion-bridge-sub003/internal/event"
	"github.com/austin-smith/fusion-bridge-sub003/internal/state"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DeviceResolver is the interface the parser needs from the device package.
type DeviceResolver interface {
	GetByVendorID(ctx context.Context, connectorID, vendorDeviceID string) (*device.Device, error)
}

// StatusSink receives per-device updates for persistence. The parser
// notifies it with the translated display state on every successful
// state-change transformation and with the full vendor report on every
// valid payload; persistence itself is outside the parser's concern.
//
// The raw report matters because YoLink commands authenticate with the
// token carried in each report: the stored document must track the
// latest payload or outbound commands fail with a stale token.
type StatusSink interface {
	RecordDisplayState(ctx context.Context, deviceID string, displayState string, at time.Time) error
	RecordRawDeviceData(ctx context.Context, deviceID string, raw map[string]any) error
}

// lowBatteryThreshold is YoLink's 0-4 battery scale; level <= 1 is the
// vendor's "replace soon" signal.
const lowBatteryThreshold = 1

// Parser normalises raw YoLink payloads into StandardizedEvents.
//
// Each invocation yields zero or one event: zero only when basic
// validation fails (missing discriminator, timestamp, or device id).
// Once validation passes the payload is never silently dropped — an
// unrecognised discriminator produces UNKNOWN_EXTERNAL_EVENT.
type Parser struct {
	connectorID string
	classifier  *Classifier
	idx         *event.Index
	types       *device.TypeRegistry
	translator  *state.Translator
	devices     DeviceResolver
	sink        StatusSink
	logger      Logger
	now         func() time.Time
}

// NewParser creates a YoLink parser for one connector instance.
// devices and sink may be nil in tests; device resolution and status
// notification are then skipped.
func NewParser(connectorID string, classifier *Classifier, idx *event.Index, types *device.TypeRegistry, translator *state.Translator, devices DeviceResolver, sink StatusSink, logger Logger) *Parser {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Parser{
		connectorID: connectorID,
		classifier:  classifier,
		idx:         idx,
		types:       types,
		translator:  translator,
		devices:     devices,
		sink:        sink,
		logger:      logger,
		now:         time.Now,
	}
}

// rawEvent is the inbound YoLink message shape. YoLink timestamps are
// millisecond epoch values.
type rawEvent struct {
	Event    string          `json:"event"`
	Time     json.RawMessage `json:"time"`
	DeviceID string          `json:"deviceId"`
	Data     map[string]any  `json:"data"`
}

// Parse normalises one raw YoLink payload.
//
// Returns (nil, error wrapping connector.ErrInvalidPayload) when basic
// validation fails; otherwise exactly one StandardizedEvent.
func (p *Parser) Parse(ctx context.Context, raw []byte) (*event.StandardizedEvent, error) {
	var msg rawEvent
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", connector.ErrInvalidPayload, err)
	}

	// Basic validation: discriminator, timestamp, device identifier.
	if msg.Event == "" {
		return nil, fmt.Errorf("%w: missing event discriminator", connector.ErrInvalidPayload)
	}
	if len(msg.Time) == 0 {
		return nil, fmt.Errorf("%w: missing timestamp", connector.ErrInvalidPayload)
	}
	if msg.DeviceID == "" {
		return nil, fmt.Errorf("%w: missing deviceId", connector.ErrInvalidPayload)
	}

	timestamp := p.parseTimestamp(msg.Time)

	// Resolve device classification from the event class
	// ("DoorSensor.Alert" -> "DoorSensor").
	rawClass := msg.Event
	if i := strings.Index(msg.Event, "."); i > 0 {
		rawClass = msg.Event[:i]
	}
	info := p.types.Resolve(connector.CategoryYoLink, rawClass)

	var original map[string]any
	if err := json.Unmarshal(raw, &original); err != nil {
		original = map[string]any{"event": msg.Event}
	}
	p.notifyRawData(ctx, msg.DeviceID, original)

	payload := map[string]any{}

	// Extract and translate the state token, when present.
	hasState := false
	if token, ok := stringField(msg.Data, "state"); ok {
		payload[event.PayloadKeyRawState] = token
		if st, ok := p.translator.Translate(connector.CategoryYoLink, info, token); ok {
			hasState = true
			if display, ok := p.translator.ToDisplay(st, info); ok {
				payload[event.PayloadKeyDisplayState] = string(display)
				p.notifyStatus(ctx, msg.DeviceID, string(display), timestamp)
			} else {
				p.logger.Debug("state has no display mapping",
					"event", msg.Event, "state", string(st))
			}
		} else {
			p.logger.Debug("unrecognised state token",
				"event", msg.Event, "token", token)
		}
	}

	// Fixed transformation precedence: exact discriminators (check-in and
	// vendor alarm events) and state changes via the classifier, then the
	// low-battery specialisation, then the UNKNOWN fallback.
	if cls, ok := p.classifier.Classify(msg.Event, hasState); ok {
		return p.build(cls, msg, info, timestamp, payload, original), nil
	}

	if level, ok := numberField(msg.Data, "battery"); ok && level <= lowBatteryThreshold {
		cls, err := p.idx.NewClassification(event.TypeBatteryLow, nil)
		if err == nil {
			payload["batteryLevel"] = level
			return p.build(cls, msg, info, timestamp, payload, original), nil
		}
	}

	// Classification miss: tag, never drop.
	cls, err := p.idx.NewClassification(event.TypeUnknownExternalEvent, nil)
	if err != nil {
		return nil, fmt.Errorf("building unknown classification: %w", err)
	}
	payload[event.PayloadKeyOriginalEventType] = msg.Event
	p.logger.Debug("unrecognised yolink event", "event", msg.Event, "device_id", msg.DeviceID)
	return p.build(cls, msg, info, timestamp, payload, original), nil
}

// build assembles the StandardizedEvent.
func (p *Parser) build(cls event.Classification, msg rawEvent, info device.TypedDeviceInfo, ts time.Time, payload, original map[string]any) *event.StandardizedEvent {
	return &event.StandardizedEvent{
		EventID:       uuid.NewString(),
		Timestamp:     ts,
		ConnectorID:   p.connectorID,
		DeviceID:      msg.DeviceID,
		DeviceInfo:    &info,
		Category:      cls.Category,
		Type:          cls.Type,
		Subtype:       cls.Subtype,
		Payload:       payload,
		OriginalEvent: original,
	}
}

// parseTimestamp converts YoLink's millisecond epoch to UTC time,
// falling back to "now" with a logged error on parse failure.
func (p *Parser) parseTimestamp(raw json.RawMessage) time.Time {
	s := strings.Trim(string(raw), `"`)
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil || ms <= 0 {
		p.logger.Error("unparseable yolink timestamp", "raw", s)
		return p.now().UTC()
	}
	return time.UnixMilli(ms).UTC()
}

// notifyStatus resolves the device record and forwards the new display
// state to the status sink. Resolution misses are non-fatal.
func (p *Parser) notifyStatus(ctx context.Context, vendorDeviceID, displayState string, at time.Time) {
	if p.devices == nil || p.sink == nil {
		return
	}

	d, err := p.devices.GetByVendorID(ctx, p.connectorID, vendorDeviceID)
	if err != nil {
		p.logger.Debug("state change for unknown device",
			"vendor_device_id", vendorDeviceID)
		return
	}
	if err := p.sink.RecordDisplayState(ctx, d.ID, displayState, at); err != nil {
		p.logger.Warn("recording display state failed",
			"device_id", d.ID, "error", err)
	}
}

// notifyRawData forwards the full vendor report document for the
// device. Command preconditions (the per-device auth token) read from
// this document, so it refreshes on every report, not just state
// changes. Resolution misses are non-fatal.
func (p *Parser) notifyRawData(ctx context.Context, vendorDeviceID string, raw map[string]any) {
	if p.devices == nil || p.sink == nil {
		return
	}

	d, err := p.devices.GetByVendorID(ctx, p.connectorID, vendorDeviceID)
	if err != nil {
		return
	}
	if err := p.sink.RecordRawDeviceData(ctx, d.ID, raw); err != nil {
		p.logger.Warn("recording raw device data failed",
			"device_id", d.ID, "error", err)
	}
}

// stringField extracts a string value from a payload map.
func stringField(m map[string]any, key string) (string, bool) {
	if m == nil {
		return "", false
	}
	s, ok := m[key].(string)
	return s, ok && s != ""
}

// numberField extracts a numeric value from a payload map, accepting the
// JSON number forms encoding/json produces.
func numberField(m map[string]any, key string) (float64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
