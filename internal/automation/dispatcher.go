package automation

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// DriverClient routes createEvent and createBookmark actions to a
// target connector's vendor driver.
type DriverClient interface {
	CreateEvent(ctx context.Context, connectorID, source, caption, description string) error
	CreateBookmark(ctx context.Context, connectorID, name, description string, durationMs int64, tags []string) error
}

// StateChanger is the device action entry point setDeviceState
// delegates to.
type StateChanger interface {
	RequestDeviceStateChange(ctx context.Context, internalDeviceID, targetState string) error
}

// Doer performs outbound HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ActionResult records one action's outcome. Failures carry the error
// text; siblings are unaffected.
type ActionResult struct {
	Index   int        `json:"index"`
	Type    ActionType `json:"type"`
	Success bool       `json:"success"`
	Error   string     `json:"error,omitempty"`
}

// Dispatcher executes a matched automation's actions in declaration
// order. Each action fails independently: an expansion or execution
// failure is recorded in its result and the next action still runs.
type Dispatcher struct {
	expander Expander
	drivers  DriverClient
	devices  StateChanger
	httpDoer Doer
	logger   Logger
}

// NewDispatcher creates an action dispatcher. Any collaborator may be
// nil; actions needing a missing collaborator fail with a recorded
// error rather than panicking.
func NewDispatcher(expander Expander, drivers DriverClient, devices StateChanger, httpDoer Doer) *Dispatcher {
	if expander == nil {
		expander = FactExpander{}
	}
	return &Dispatcher{
		expander: expander,
		drivers:  drivers,
		devices:  devices,
		httpDoer: httpDoer,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// Dispatch runs every action against the trigger's fact context and
// returns one result per action, in order.
func (d *Dispatcher) Dispatch(ctx context.Context, automationID string, actions []Action, factCtx map[string]any) []ActionResult {
	results := make([]ActionResult, len(actions))
	for i, action := range actions {
		results[i] = ActionResult{Index: i, Type: action.Type, Success: true}
		if err := d.execute(ctx, action, factCtx); err != nil {
			results[i].Success = false
			results[i].Error = err.Error()
			d.logger.Warn("action failed",
				"automation_id", automationID, "action_index", i,
				"action_type", string(action.Type), "error", err)
		}
	}
	return results
}

// execute runs one action. The switch is exhaustive over ActionType.
func (d *Dispatcher) execute(ctx context.Context, a Action, factCtx map[string]any) error {
	switch a.Type {
	case ActionCreateEvent:
		return d.executeCreateEvent(ctx, a.CreateEvent, factCtx)
	case ActionCreateBookmark:
		return d.executeCreateBookmark(ctx, a.CreateBookmark, factCtx)
	case ActionSendHTTPRequest:
		return d.executeHTTPRequest(ctx, a.SendHTTPRequest, factCtx)
	case ActionSetDeviceState:
		return d.executeSetDeviceState(ctx, a.SetDeviceState)
	default:
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, a.Type)
	}
}

func (d *Dispatcher) executeCreateEvent(ctx context.Context, p *CreateEventParams, factCtx map[string]any) error {
	if p == nil {
		return fmt.Errorf("%w: createEvent params missing", ErrInvalidAction)
	}
	if d.drivers == nil {
		return fmt.Errorf("no driver client configured")
	}

	source, err := d.expander.Expand(p.SourceTemplate, factCtx)
	if err != nil {
		return err
	}
	caption, err := d.expander.Expand(p.CaptionTemplate, factCtx)
	if err != nil {
		return err
	}
	description, err := d.expander.Expand(p.DescriptionTemplate, factCtx)
	if err != nil {
		return err
	}
	return d.drivers.CreateEvent(ctx, p.TargetConnectorID, source, caption, description)
}

func (d *Dispatcher) executeCreateBookmark(ctx context.Context, p *CreateBookmarkParams, factCtx map[string]any) error {
	if p == nil {
		return fmt.Errorf("%w: createBookmark params missing", ErrInvalidAction)
	}
	if d.drivers == nil {
		return fmt.Errorf("no driver client configured")
	}

	name, err := d.expander.Expand(p.NameTemplate, factCtx)
	if err != nil {
		return err
	}
	description, err := d.expander.Expand(p.DescriptionTemplate, factCtx)
	if err != nil {
		return err
	}
	durationRaw, err := d.expander.Expand(p.DurationMsTemplate, factCtx)
	if err != nil {
		return err
	}
	durationMs, err := strconv.ParseInt(strings.TrimSpace(durationRaw), 10, 64)
	if err != nil {
		return fmt.Errorf("duration_ms expanded to %q, not an integer", durationRaw)
	}

	var tags []string
	if p.TagsTemplate != "" {
		tagsRaw, err := d.expander.Expand(p.TagsTemplate, factCtx)
		if err != nil {
			return err
		}
		for _, tag := range strings.Split(tagsRaw, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return d.drivers.CreateBookmark(ctx, p.TargetConnectorID, name, description, durationMs, tags)
}

func (d *Dispatcher) executeHTTPRequest(ctx context.Context, p *SendHTTPRequestParams, factCtx map[string]any) error {
	if p == nil {
		return fmt.Errorf("%w: sendHttpRequest params missing", ErrInvalidAction)
	}
	if d.httpDoer == nil {
		return fmt.Errorf("no http transport configured")
	}

	url, err := d.expander.Expand(p.URLTemplate, factCtx)
	if err != nil {
		return err
	}
	var body string
	if p.BodyTemplate != "" {
		if body, err = d.expander.Expand(p.BodyTemplate, factCtx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(p.Method), url, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if p.ContentType != "" {
		req.Header.Set("Content-Type", p.ContentType)
	}
	for k, v := range p.Headers {
		expanded, err := d.expander.Expand(v, factCtx)
		if err != nil {
			return err
		}
		req.Header.Set(k, expanded)
	}

	resp, err := d.httpDoer.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("request to %s returned %d", url, resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) executeSetDeviceState(ctx context.Context, p *SetDeviceStateParams) error {
	if p == nil {
		return fmt.Errorf("%w: setDeviceState params missing", ErrInvalidAction)
	}
	if d.devices == nil {
		return fmt.Errorf("no device action handler configured")
	}
	return d.devices.RequestDeviceStateChange(ctx, p.TargetDeviceInternalID, p.TargetState)
}
