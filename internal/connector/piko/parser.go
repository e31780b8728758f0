package piko

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
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Parser normalises raw Piko VMS payloads into StandardizedEvents.
//
// Piko events reference devices by server resource id only — the payload
// carries no type string — so the parser requires a pre-fetched
// resource-id -> TypedDeviceInfo map captured when the connector synced
// its resource tree. Timestamps are microsecond epoch strings.
type Parser struct {
	connectorID string
	classifier  *Classifier
	idx         *event.Index
	resources   map[string]device.TypedDeviceInfo
	logger      Logger
	now         func() time.Time
}

// NewParser creates a Piko parser for one connector instance.
// resources maps Piko resource ids to resolved device classifications.
func NewParser(connectorID string, classifier *Classifier, idx *event.Index, resources map[string]device.TypedDeviceInfo, logger Logger) *Parser {
	if logger == nil {
		logger = noopLogger{}
	}
	if resources == nil {
		resources = map[string]device.TypedDeviceInfo{}
	}
	return &Parser{
		connectorID: connectorID,
		classifier:  classifier,
		idx:         idx,
		resources:   resources,
		logger:      logger,
		now:         time.Now,
	}
}

// rawEvent is the inbound Piko message shape.
type rawEvent struct {
	EventType   string `json:"eventType"`
	EngineID    string `json:"analyticsEngineId"`
	TimestampUs string `json:"eventTimestampUsec"`
	ResourceID  string `json:"eventResourceId"`
	Caption     string `json:"caption"`
	Description string `json:"description"`
}

// Parse normalises one raw Piko payload.
func (p *Parser) Parse(_ context.Context, raw []byte) (*event.StandardizedEvent, error) {
	var msg rawEvent
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", connector.ErrInvalidPayload, err)
	}

	if msg.EventType == "" {
		return nil, fmt.Errorf("%w: missing eventType", connector.ErrInvalidPayload)
	}
	if msg.TimestampUs == "" {
		return nil, fmt.Errorf("%w: missing eventTimestampUsec", connector.ErrInvalidPayload)
	}
	if msg.ResourceID == "" {
		return nil, fmt.Errorf("%w: missing eventResourceId", connector.ErrInvalidPayload)
	}

	timestamp := p.parseTimestamp(msg.TimestampUs)

	// Device classification comes from the pre-fetched resource map; the
	// payload itself has no type string.
	var info *device.TypedDeviceInfo
	if resolved, ok := p.resources[msg.ResourceID]; ok {
		info = &resolved
	} else {
		p.logger.Debug("event for unsynced piko resource", "resource_id", msg.ResourceID)
	}

	var original map[string]any
	if err := json.Unmarshal(raw, &original); err != nil {
		original = map[string]any{"eventType": msg.EventType}
	}

	payload := map[string]any{}
	if msg.Caption != "" {
		payload["caption"] = msg.Caption
	}
	if msg.Description != "" {
		payload["description"] = msg.Description
	}

	if cls, ok := p.classifier.Classify(msg.EngineID, msg.EventType); ok {
		return p.build(cls, msg, info, timestamp, payload, original), nil
	}

	cls, err := p.idx.NewClassification(event.TypeUnknownExternalEvent, nil)
	if err != nil {
		return nil, fmt.Errorf("building unknown classification: %w", err)
	}
	discriminator := msg.EventType
	if msg.EngineID != "" {
		discriminator = msg.EngineID
	}
	payload[event.PayloadKeyOriginalEventType] = discriminator
	p.logger.Debug("unrecognised piko event",
		"event_type", msg.EventType, "engine_id", msg.EngineID)
	return p.build(cls, msg, info, timestamp, payload, original), nil
}

func (p *Parser) build(cls event.Classification, msg rawEvent, info *device.TypedDeviceInfo, ts time.Time, payload, original map[string]any) *event.StandardizedEvent {
	return &event.StandardizedEvent{
		EventID:       uuid.NewString(),
		Timestamp:     ts,
		ConnectorID:   p.connectorID,
		DeviceID:      msg.ResourceID,
		DeviceInfo:    info,
		Category:      cls.Category,
		Type:          cls.Type,
		Subtype:       cls.Subtype,
		Payload:       payload,
		OriginalEvent: original,
	}
}

// parseTimestamp converts Piko's microsecond epoch string to UTC time,
// falling back to "now" with a logged error on parse failure.
func (p *Parser) parseTimestamp(raw string) time.Time {
	us, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || us <= 0 {
		p.logger.Error("unparseable piko timestamp", "raw", raw)
		return p.now().UTC()
	}
	return time.UnixMicro(us).UTC()
}
