package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/austin-smith/fusion-bridge-sub003/internal/automation"
	"github.com/austin-smith/fusion-bridge-sub003/internal/connector"
	"github.com/austin-smith/fusion-bridge-sub003/internal/device"
	"github.com/austin-smith/fusion-bridge-sub003/internal/event"
	"github.com/austin-smith/fusion-bridge-sub003/internal/location"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Parser normalises one raw vendor payload into zero or one
// StandardizedEvent. Every connector package provides one.
type Parser interface {
	Parse(ctx context.Context, raw []byte) (*event.StandardizedEvent, error)
}

// EventSink appends standardized events with their spatial snapshot.
type EventSink interface {
	Append(ctx context.Context, ev *event.StandardizedEvent, areaID, locationID *string) error
}

// DeviceResolver resolves device records for fact-context building.
type DeviceResolver interface {
	GetByVendorID(ctx context.Context, connectorID, vendorDeviceID string) (*device.Device, error)
}

// ConnectorResolver resolves connector records.
type ConnectorResolver interface {
	GetByID(ctx context.Context, id string) (*connector.Connector, error)
}

// SpaceResolver resolves areas and locations for fact-context
// building and spatial scoping.
type SpaceResolver interface {
	GetArea(ctx context.Context, id string) (*location.Area, error)
	GetLocation(ctx context.Context, id string) (*location.Location, error)
}

// AutomationSource lists the enabled automations evaluated per event.
type AutomationSource interface {
	ListEnabled(ctx context.Context) []automation.Automation
}

// Telemetry receives throughput, state-change, and rule-match
// measurements. Writes are non-blocking; a disconnected backend drops
// points.
type Telemetry interface {
	RecordEvent(ev *event.StandardizedEvent)
	RecordDeviceState(internalDeviceID, displayState string)
	RecordAutomationFired(automationID string, actionCount, failedCount int)
}

// Broadcaster pushes standardized events to websocket subscribers.
type Broadcaster interface {
	BroadcastEvent(ev *event.StandardizedEvent)
}

// Pipeline wires raw vendor payloads through parsing, persistence,
// telemetry, broadcast, and rule evaluation. One Pipeline serves all
// connectors; per-connector parsers are registered at startup.
//
// Events for different devices may be processed concurrently. The
// transport owns per-device ordering; the pipeline does not reorder.
type Pipeline struct {
	parsers     map[string]Parser // by connector id
	devices     DeviceResolver
	connectors  ConnectorResolver
	spaces      SpaceResolver
	store       EventSink
	engine      *automation.Engine
	automations AutomationSource
	dispatcher  *automation.Dispatcher
	telemetry   Telemetry
	broadcaster Broadcaster
	logger      Logger

	evalTimeout time.Duration
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithTelemetry attaches a telemetry writer.
func WithTelemetry(t Telemetry) Option {
	return func(p *Pipeline) { p.telemetry = t }
}

// WithBroadcaster attaches a websocket broadcaster.
func WithBroadcaster(b Broadcaster) Option {
	return func(p *Pipeline) { p.broadcaster = b }
}

// WithLogger attaches a logger.
func WithLogger(l Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithEvaluationTimeout bounds one automation's evaluation and
// dispatch. Default 30s.
func WithEvaluationTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.evalTimeout = d }
}

// New creates the event pipeline.
func New(devices DeviceResolver, connectors ConnectorResolver, spaces SpaceResolver, store EventSink, engine *automation.Engine, automations AutomationSource, dispatcher *automation.Dispatcher, opts ...Option) *Pipeline {
	p := &Pipeline{
		parsers:     make(map[string]Parser),
		devices:     devices,
		connectors:  connectors,
		spaces:      spaces,
		store:       store,
		engine:      engine,
		automations: automations,
		dispatcher:  dispatcher,
		logger:      noopLogger{},
		evalTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RegisterParser binds a connector id to its parser. Not safe to call
// after the pipeline starts receiving payloads.
func (p *Pipeline) RegisterParser(connectorID string, parser Parser) {
	p.parsers[connectorID] = parser
}

// HandleRaw processes one raw vendor payload for a connector: parse,
// persist, emit telemetry and broadcast, then evaluate automations.
//
// A validation failure discards the payload with a logged warning and
// returns nil; the transport must not retry malformed input.
func (p *Pipeline) HandleRaw(ctx context.Context, connectorID string, payload []byte) error {
	parser, ok := p.parsers[connectorID]
	if !ok {
		p.logger.Warn("payload for unknown connector", "connector_id", connectorID)
		return nil
	}

	ev, err := parser.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, connector.ErrInvalidPayload) {
			p.logger.Warn("discarding malformed payload",
				"connector_id", connectorID, "error", err)
			return nil
		}
		return err
	}

	facts, areaID, locationID := p.buildContext(ctx, ev)

	if err := p.store.Append(ctx, ev, areaID, locationID); err != nil {
		// Persistence failure still lets live consumers see the event,
		// but temporal conditions will not count it.
		p.logger.Error("appending event failed",
			"event_id", ev.EventID, "error", err)
	}

	if p.telemetry != nil {
		p.telemetry.RecordEvent(ev)
		if display, ok := ev.Payload[event.PayloadKeyDisplayState].(string); ok {
			if internalID, ok := facts["device.id"].(string); ok {
				p.telemetry.RecordDeviceState(internalID, display)
			}
		}
	}
	if p.broadcaster != nil {
		p.broadcaster.BroadcastEvent(ev)
	}

	p.evaluateAutomations(ctx, ev, facts, areaID, locationID)
	return nil
}

// evaluateAutomations runs every enabled automation concurrently. One
// automation's failure, or panic, never affects another's evaluation
// or dispatch.
func (p *Pipeline) evaluateAutomations(ctx context.Context, ev *event.StandardizedEvent, facts map[string]any, areaID, locationID *string) {
	enabled := p.automations.ListEnabled(ctx)
	if len(enabled) == 0 {
		return
	}

	trig := automation.Trigger{
		EventID:    ev.EventID,
		Timestamp:  ev.Timestamp,
		Facts:      facts,
		AreaID:     areaID,
		LocationID: locationID,
	}

	var wg sync.WaitGroup
	for i := range enabled {
		auto := enabled[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("automation evaluation panicked",
						"automation_id", auto.ID, "panic", r)
				}
			}()

			evalCtx, cancel := context.WithTimeout(ctx, p.evalTimeout)
			defer cancel()

			matched, err := p.engine.Evaluate(evalCtx, &auto.Config, trig)
			if err != nil {
				p.logger.Warn("automation evaluation failed",
					"automation_id", auto.ID, "event_id", ev.EventID, "error", err)
				return
			}
			if !matched {
				return
			}

			p.logger.Info("automation matched",
				"automation_id", auto.ID, "name", auto.Name, "event_id", ev.EventID)
			results := p.dispatcher.Dispatch(evalCtx, auto.ID, auto.Config.Actions, facts)
			failed := 0
			for _, res := range results {
				if !res.Success {
					failed++
					p.logger.Warn("automation action failed",
						"automation_id", auto.ID, "action_index", res.Index,
						"action_type", string(res.Type), "error", res.Error)
				}
			}
			if p.telemetry != nil {
				p.telemetry.RecordAutomationFired(auto.ID, len(results), failed)
			}
		}()
	}
	wg.Wait()
}

// buildContext flattens the event and its related device, connector,
// area, and location records into the dotted fact context. Resolution
// misses leave the corresponding facts absent rather than failing the
// event.
func (p *Pipeline) buildContext(ctx context.Context, ev *event.StandardizedEvent) (map[string]any, *string, *string) {
	facts := map[string]any{
		"event.category":    string(ev.Category),
		"event.type":        string(ev.Type),
		"event.deviceId":    ev.DeviceID,
		"event.timestampMs": float64(ev.Timestamp.UnixMilli()),
		"connector.id":      ev.ConnectorID,
	}
	if ev.Subtype != nil {
		facts["event.subtype"] = string(*ev.Subtype)
	}
	if ev.DeviceInfo != nil {
		facts["device.type"] = string(ev.DeviceInfo.Type)
		if ev.DeviceInfo.Subtype != nil {
			facts["device.subtype"] = string(*ev.DeviceInfo.Subtype)
		}
	}
	for k, v := range ev.Payload {
		facts["event."+k] = v
	}
	// Battery readings arrive in the event payload but are a device
	// property for rule-building purposes.
	if level, ok := ev.Payload["batteryLevel"]; ok {
		facts["device.batteryLevel"] = level
	}

	if conn, err := p.connectors.GetByID(ctx, ev.ConnectorID); err == nil {
		facts["connector.category"] = string(conn.Category)
		facts["connector.name"] = conn.Name
	}

	var areaID, locationID *string
	dev, err := p.devices.GetByVendorID(ctx, ev.ConnectorID, ev.DeviceID)
	if err != nil {
		p.logger.Debug("event from unregistered device",
			"connector_id", ev.ConnectorID, "vendor_device_id", ev.DeviceID)
		return facts, nil, nil
	}

	facts["device.id"] = dev.ID
	facts["device.name"] = dev.Name
	areaID = dev.AreaID
	locationID = dev.LocationID

	if dev.AreaID != nil {
		facts["area.id"] = *dev.AreaID
		if area, err := p.spaces.GetArea(ctx, *dev.AreaID); err == nil {
			facts["area.name"] = area.Name
		}
	}
	if dev.LocationID != nil {
		facts["location.id"] = *dev.LocationID
		if loc, err := p.spaces.GetLocation(ctx, *dev.LocationID); err == nil {
			facts["location.name"] = loc.Name
		}
	}
	return facts, areaID, locationID
}
