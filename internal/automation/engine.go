package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/austin-smith/fusion-bridge-sub003/internal/eventstore"
)

// Logger defines the logging interface used by the Engine and Registry.
// This allows different logging implementations to be used.
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

// EventQuerier is the slice of the event store the engine needs for
// temporal lookups.
type EventQuerier interface {
	Query(ctx context.Context, params eventstore.QueryParams) ([]eventstore.StoredEvent, error)
}

// Trigger is one standardized event prepared for evaluation: the
// flattened fact context built by the pipeline, the event's identity
// and timestamp for temporal anchoring, and the device's current
// area/location for spatial scoping.
type Trigger struct {
	EventID    string
	Timestamp  time.Time
	Facts      map[string]any
	AreaID     *string
	LocationID *string
}

// Engine evaluates automation configs against triggering events.
//
// Evaluation never mutates the trigger or any shared table, so one
// Engine serves concurrent evaluations. Temporal lookups fail closed:
// a store error means the automation does not fire and the error is
// surfaced to the caller.
type Engine struct {
	store  EventQuerier
	logger Logger
}

// NewEngine creates a rule engine over the given event store.
func NewEngine(store EventQuerier) *Engine {
	return &Engine{store: store, logger: noopLogger{}}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// Evaluate reports whether the config matches the trigger. The base
// condition tree is checked first; temporal conditions run only after
// it matches, and all of them must pass.
func (e *Engine) Evaluate(ctx context.Context, cfg *AutomationConfig, trig Trigger) (bool, error) {
	if !e.evaluateGroup(&cfg.Conditions, trig.Facts) {
		return false, nil
	}

	for i := range cfg.TemporalConditions {
		ok, err := e.evaluateTemporal(ctx, &cfg.TemporalConditions[i], trig)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// evaluateGroup applies the group's combinators with short-circuiting:
// all stops at the first non-match, any at the first match. An empty
// all list is vacuously true; an empty any list is false. Both lists
// present means both must hold.
func (e *Engine) evaluateGroup(g *ConditionGroup, facts map[string]any) bool {
	if !g.HasAll() && !g.HasAny() {
		// Save-time validation rejects this shape; refuse to match if
		// one slips through.
		e.logger.Warn("condition group defines neither all nor any")
		return false
	}

	if g.HasAll() {
		for i := range g.All {
			if !e.evaluateRule(&g.All[i], facts) {
				return false
			}
		}
	}

	if g.HasAny() {
		matched := false
		for i := range g.Any {
			if e.evaluateRule(&g.Any[i], facts) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func (e *Engine) evaluateRule(r *Rule, facts map[string]any) bool {
	switch {
	case r.Condition != nil:
		return evaluateCondition(r.Condition, facts)
	case r.Group != nil:
		return e.evaluateGroup(r.Group, facts)
	default:
		return false
	}
}

// evaluateCondition applies one operator. Every coercion failure makes
// the condition false; evaluation never panics on author-supplied
// values.
func evaluateCondition(c *Condition, facts map[string]any) bool {
	path := c.Fact
	if c.Path != "" {
		path = c.Path
	}
	actual, present := facts[path]

	switch c.Operator {
	case OpEqual:
		return present && valuesEqual(actual, c.Value)
	case OpNotEqual:
		return !present || !valuesEqual(actual, c.Value)
	case OpIn:
		return present && valueInList(actual, c.Value)
	case OpNotIn:
		return !present || !valueInList(actual, c.Value)
	case OpContains:
		return present && strings.Contains(coerceString(actual), coerceString(c.Value))
	case OpDoesNotContain:
		return !present || !strings.Contains(coerceString(actual), coerceString(c.Value))
	case OpLessThan, OpLessThanInclusive, OpGreaterThan, OpGreaterThanInclusive:
		if !present {
			return false
		}
		a, aok := coerceNumber(actual)
		b, bok := coerceNumber(c.Value)
		if !aok || !bok {
			return false
		}
		switch c.Operator {
		case OpLessThan:
			return a < b
		case OpLessThanInclusive:
			return a <= b
		case OpGreaterThan:
			return a > b
		default:
			return a >= b
		}
	default:
		return false
	}
}

// evaluateTemporal correlates the trigger against the historical event
// store. The window is [trigger − before, trigger + after], inclusive;
// an unset bound collapses to the trigger timestamp.
func (e *Engine) evaluateTemporal(ctx context.Context, tc *TemporalCondition, trig Trigger) (bool, error) {
	from := trig.Timestamp
	if tc.TimeWindowSecondsBefore != nil {
		from = trig.Timestamp.Add(-time.Duration(*tc.TimeWindowSecondsBefore) * time.Second)
	}
	to := trig.Timestamp
	if tc.TimeWindowSecondsAfter != nil {
		to = trig.Timestamp.Add(time.Duration(*tc.TimeWindowSecondsAfter) * time.Second)
	}

	params := eventstore.QueryParams{
		From:           from,
		To:             to,
		ExcludeEventID: trig.EventID,
	}

	switch tc.Scoping {
	case ScopeSameArea:
		if trig.AreaID == nil {
			// A trigger with no area assignment cannot correlate
			// same-area events.
			e.logger.Debug("same-area temporal condition on unassigned device",
				"temporal_id", tc.ID)
			return temporalOutcome(tc, 0), nil
		}
		params.AreaID = trig.AreaID
	case ScopeSameLocation:
		if trig.LocationID == nil {
			e.logger.Debug("same-location temporal condition on unassigned device",
				"temporal_id", tc.ID)
			return temporalOutcome(tc, 0), nil
		}
		params.LocationID = trig.LocationID
	}

	candidates, err := e.store.Query(ctx, params)
	if err != nil {
		// Fail closed: an unanswerable lookup must not fire actions.
		return false, fmt.Errorf("%w: %v", ErrTemporalQuery, err)
	}

	count := 0
	for i := range candidates {
		if e.evaluateGroup(&tc.EventFilter, CandidateFacts(&candidates[i])) {
			count++
		}
	}
	return temporalOutcome(tc, count), nil
}

// temporalOutcome maps the correlated event count through the
// condition's predicate.
func temporalOutcome(tc *TemporalCondition, count int) bool {
	if tc.Type.RequiresCount() && tc.ExpectedEventCount == nil {
		// Save-time validation rejects this shape.
		return false
	}
	switch tc.Type {
	case TemporalEventOccurred:
		return count >= 1
	case TemporalNoEventOccurred:
		return count == 0
	case TemporalCountEquals:
		return count == *tc.ExpectedEventCount
	case TemporalCountLessThan:
		return count < *tc.ExpectedEventCount
	case TemporalCountGreater:
		return count > *tc.ExpectedEventCount
	case TemporalCountLessOrEq:
		return count <= *tc.ExpectedEventCount
	case TemporalCountGreaterEq:
		return count >= *tc.ExpectedEventCount
	default:
		return false
	}
}

// CandidateFacts flattens a stored event into the fact context shape
// used by temporal event filters. Only facts derivable from the stored
// record are present; a filter referencing anything else simply does
// not match that candidate.
func CandidateFacts(ev *eventstore.StoredEvent) map[string]any {
	facts := map[string]any{
		"event.category":    string(ev.Category),
		"event.type":        string(ev.Type),
		"event.deviceId":    ev.DeviceID,
		"connector.id":      ev.ConnectorID,
		"event.timestampMs": float64(ev.Timestamp.UnixMilli()),
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
	if ev.AreaID != nil {
		facts["area.id"] = *ev.AreaID
	}
	if ev.LocationID != nil {
		facts["location.id"] = *ev.LocationID
	}
	if ds, ok := ev.Payload["displayState"].(string); ok {
		facts["event.displayState"] = ds
	}
	return facts
}

// valuesEqual compares loosely: numeric operands compare as numbers,
// everything else by string form. Rule values arrive from JSON, so
// ints and float64s must compare equal.
func valuesEqual(a, b any) bool {
	if na, aok := coerceNumber(a); aok {
		if nb, bok := coerceNumber(b); bok {
			return na == nb
		}
		return false
	}
	return coerceString(a) == coerceString(b)
}

// valueInList tests membership of the fact value in the condition's
// array value. A non-array or empty value is false for every fact.
func valueInList(actual, value any) bool {
	switch list := value.(type) {
	case []any:
		for _, item := range list {
			if valuesEqual(actual, item) {
				return true
			}
		}
	case []string:
		for _, item := range list {
			if valuesEqual(actual, item) {
				return true
			}
		}
	}
	return false
}

// coerceNumber converts the numeric forms JSON decoding and Go code
// produce. Numeric strings coerce too.
func coerceNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// coerceString renders a value for string comparison.
func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}
