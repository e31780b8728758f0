package netbox

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

// StatusSink receives translated display states for persistence.
type StatusSink interface {
	RecordDisplayState(ctx context.Context, deviceID string, displayState string, at time.Time) error
}

// Parser normalises raw NetBox access-control records into
// StandardizedEvents.
//
// Each invocation yields zero or one event: zero only when basic
// validation fails. Once validation passes the record is never silently
// dropped — an unrecognised activity produces UNKNOWN_EXTERNAL_EVENT.
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

// NewParser creates a NetBox parser for one connector instance.
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

// rawEvent is the inbound NetBox activity record. The "cdt" timestamp
// arrives either as RFC 3339 or as the panel's space-separated local
// form; second-resolution epoch values appear on some firmware.
type rawEvent struct {
	Descname   string       `json:"descname"`
	Timestamp  string       `json:"cdt"`
	PortalKey  string       `json:"portalkey"`
	PortalName string       `json:"portalname"`
	NodeType   string       `json:"nodetype"`
	PersonName string       `json:"personname"`
	Reason     string       `json:"reason"`
	LockState  string       `json:"lockstate"`
	Prior      *PortalState `json:"priorState"`
	Current    *PortalState `json:"currentState"`
}

// Parse normalises one raw NetBox record.
//
// Returns (nil, error wrapping connector.ErrInvalidPayload) when basic
// validation fails; otherwise exactly one StandardizedEvent.
func (p *Parser) Parse(ctx context.Context, raw []byte) (*event.StandardizedEvent, error) {
	var msg rawEvent
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", connector.ErrInvalidPayload, err)
	}

	// Basic validation: discriminator, timestamp, portal identifier.
	if msg.Descname == "" {
		return nil, fmt.Errorf("%w: missing descname", connector.ErrInvalidPayload)
	}
	if msg.Timestamp == "" {
		return nil, fmt.Errorf("%w: missing cdt timestamp", connector.ErrInvalidPayload)
	}
	if msg.PortalKey == "" {
		return nil, fmt.Errorf("%w: missing portalkey", connector.ErrInvalidPayload)
	}

	timestamp := p.parseTimestamp(msg.Timestamp)

	rawType := msg.NodeType
	if rawType == "" {
		rawType = "Portal"
	}
	info := p.types.Resolve(connector.CategoryNetBox, rawType)

	var original map[string]any
	if err := json.Unmarshal(raw, &original); err != nil {
		original = map[string]any{"descname": msg.Descname}
	}

	payload := map[string]any{}
	if msg.PersonName != "" {
		payload["personName"] = msg.PersonName
	}
	if msg.Reason != "" {
		payload["reason"] = msg.Reason
	}
	if msg.PortalName != "" {
		payload["portalName"] = msg.PortalName
	}

	// Extract and translate the lock state, when present.
	hasState := false
	if msg.LockState != "" {
		payload[event.PayloadKeyRawState] = msg.LockState
		if st, ok := p.translator.Translate(connector.CategoryNetBox, info, msg.LockState); ok {
			hasState = true
			if display, ok := p.translator.ToDisplay(st, info); ok {
				payload[event.PayloadKeyDisplayState] = string(display)
				p.notifyStatus(ctx, msg.PortalKey, string(display), timestamp)
			} else {
				p.logger.Debug("state has no display mapping",
					"descname", msg.Descname, "state", string(st))
			}
		} else {
			p.logger.Debug("unrecognised lock state token",
				"descname", msg.Descname, "token", msg.LockState)
		}
	}

	// Fixed transformation precedence: structured portal transitions,
	// then the flat activity map, then plain lock state changes, then
	// the UNKNOWN fallback.
	if msg.Prior != nil && msg.Current != nil {
		if cls, ok := p.classifier.ClassifyTransition(*msg.Prior, *msg.Current); ok {
			return p.build(cls, msg, info, timestamp, payload, original), nil
		}
	}

	if cls, ok := p.classifier.ClassifyActivity(msg.Descname, msg.Reason); ok {
		return p.build(cls, msg, info, timestamp, payload, original), nil
	}

	if hasState {
		cls, err := p.idx.NewClassification(event.TypeStateChanged, nil)
		if err != nil {
			return nil, fmt.Errorf("building state change classification: %w", err)
		}
		return p.build(cls, msg, info, timestamp, payload, original), nil
	}

	// Classification miss: tag, never drop.
	cls, err := p.idx.NewClassification(event.TypeUnknownExternalEvent, nil)
	if err != nil {
		return nil, fmt.Errorf("building unknown classification: %w", err)
	}
	payload[event.PayloadKeyOriginalEventType] = msg.Descname
	p.logger.Debug("unrecognised netbox activity",
		"descname", msg.Descname, "portal_key", msg.PortalKey)
	return p.build(cls, msg, info, timestamp, payload, original), nil
}

// build assembles the StandardizedEvent.
func (p *Parser) build(cls event.Classification, msg rawEvent, info device.TypedDeviceInfo, ts time.Time, payload, original map[string]any) *event.StandardizedEvent {
	return &event.StandardizedEvent{
		EventID:       uuid.NewString(),
		Timestamp:     ts,
		ConnectorID:   p.connectorID,
		DeviceID:      msg.PortalKey,
		DeviceInfo:    &info,
		Category:      cls.Category,
		Type:          cls.Type,
		Subtype:       cls.Subtype,
		Payload:       payload,
		OriginalEvent: original,
	}
}

// timestampLayouts are tried in order; NetBox panels are inconsistent
// about the cdt format across firmware revisions.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// parseTimestamp converts the panel's cdt field to UTC time, falling
// back to "now" with a logged error when no known form matches.
func (p *Parser) parseTimestamp(raw string) time.Time {
	s := strings.TrimSpace(raw)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0).UTC()
	}
	p.logger.Error("unparseable netbox timestamp", "raw", s)
	return p.now().UTC()
}

// notifyStatus resolves the device record and forwards the new display
// state to the status sink. Resolution misses are non-fatal.
func (p *Parser) notifyStatus(ctx context.Context, portalKey, displayState string, at time.Time) {
	if p.devices == nil || p.sink == nil {
		return
	}

	d, err := p.devices.GetByVendorID(ctx, p.connectorID, portalKey)
	if err != nil {
		p.logger.Debug("state change for unknown portal",
			"portal_key", portalKey)
		return
	}
	if err := p.sink.RecordDisplayState(ctx, d.ID, displayState, at); err != nil {
		p.logger.Warn("recording display state failed",
			"device_id", d.ID, "error", err)
	}
}
