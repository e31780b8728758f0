package automation

import (
	"encoding/json"
	"fmt"
	"time"
)

// Automation is a user-authored rule: a condition tree, optional
// temporal conditions, and the actions to dispatch on a match. The
// engine treats persisted automations as read-only; editing happens
// through the HTTP surface.
type Automation struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Description (optional)
	Description *string `json:"description,omitempty"`

	// Configuration
	Enabled bool             `json:"enabled"`
	Config  AutomationConfig `json:"config"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AutomationConfig is the evaluatable body of an automation.
type AutomationConfig struct {
	Conditions         ConditionGroup      `json:"conditions"`
	TemporalConditions []TemporalCondition `json:"temporal_conditions,omitempty"`
	Actions            []Action            `json:"actions"`
}

// Condition is a single fact test. Path, when set, overrides the
// fact's dotted path for context resolution.
type Condition struct {
	Fact     string   `json:"fact"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
	Path     string   `json:"path,omitempty"`
}

// ConditionGroup combines nested rules. all = conjunction (empty all
// is true), any = disjunction (empty any is false). A group defining
// neither is a configuration error caught at save time.
type ConditionGroup struct {
	All []Rule `json:"all,omitempty"`
	Any []Rule `json:"any,omitempty"`

	// hasAll/hasAny track JSON key presence, since an explicitly empty
	// list and an absent key evaluate differently.
	hasAll bool
	hasAny bool
}

// NewAllGroup builds a conjunction group. An empty rule list is valid
// and evaluates true.
func NewAllGroup(rules ...Rule) ConditionGroup {
	if rules == nil {
		rules = []Rule{}
	}
	return ConditionGroup{All: rules, hasAll: true}
}

// NewAnyGroup builds a disjunction group. An empty rule list is valid
// and evaluates false.
func NewAnyGroup(rules ...Rule) ConditionGroup {
	if rules == nil {
		rules = []Rule{}
	}
	return ConditionGroup{Any: rules, hasAny: true}
}

// HasAll reports whether the group defines a conjunction list.
func (g *ConditionGroup) HasAll() bool { return g.hasAll || g.All != nil }

// HasAny reports whether the group defines a disjunction list.
func (g *ConditionGroup) HasAny() bool { return g.hasAny || g.Any != nil }

// UnmarshalJSON records which of all/any were actually present, so an
// explicitly empty list keeps its defined semantics.
func (g *ConditionGroup) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if rawAll, ok := raw["all"]; ok {
		g.hasAll = true
		if err := json.Unmarshal(rawAll, &g.All); err != nil {
			return err
		}
		if g.All == nil {
			g.All = []Rule{}
		}
	}
	if rawAny, ok := raw["any"]; ok {
		g.hasAny = true
		if err := json.Unmarshal(rawAny, &g.Any); err != nil {
			return err
		}
		if g.Any == nil {
			g.Any = []Rule{}
		}
	}
	return nil
}

// MarshalJSON keeps explicitly empty all/any lists on the wire.
func (g ConditionGroup) MarshalJSON() ([]byte, error) {
	out := make(map[string][]Rule, 2)
	if g.HasAll() {
		rules := g.All
		if rules == nil {
			rules = []Rule{}
		}
		out["all"] = rules
	}
	if g.HasAny() {
		rules := g.Any
		if rules == nil {
			rules = []Rule{}
		}
		out["any"] = rules
	}
	return json.Marshal(out)
}

// Rule is one node of a condition tree: either a leaf Condition or a
// nested ConditionGroup, never both. Trees are plain recursive values;
// cycles cannot be expressed.
type Rule struct {
	Condition *Condition      `json:"-"`
	Group     *ConditionGroup `json:"-"`
}

// CondRule wraps a Condition as a Rule.
func CondRule(c Condition) Rule { return Rule{Condition: &c} }

// GroupRule wraps a ConditionGroup as a Rule.
func GroupRule(g ConditionGroup) Rule { return Rule{Group: &g} }

// UnmarshalJSON detects the node kind by key shape: a "fact" key means
// a leaf condition, an "all" or "any" key means a nested group.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if _, ok := probe["fact"]; ok {
		var c Condition
		if err := json.Unmarshal(data, &c); err != nil {
			return err
		}
		r.Condition = &c
		return nil
	}
	_, hasAll := probe["all"]
	_, hasAny := probe["any"]
	if hasAll || hasAny {
		var g ConditionGroup
		if err := json.Unmarshal(data, &g); err != nil {
			return err
		}
		r.Group = &g
		return nil
	}
	return fmt.Errorf("rule node is neither a condition nor a group")
}

// MarshalJSON emits the wrapped node directly.
func (r Rule) MarshalJSON() ([]byte, error) {
	switch {
	case r.Condition != nil:
		return json.Marshal(r.Condition)
	case r.Group != nil:
		return json.Marshal(r.Group)
	default:
		return nil, fmt.Errorf("rule node is neither a condition nor a group")
	}
}

// TemporalType names the historical-window predicate applied to the
// correlated event count.
type TemporalType string

const (
	TemporalEventOccurred   TemporalType = "eventOccurred"
	TemporalNoEventOccurred TemporalType = "noEventOccurred"
	TemporalCountEquals     TemporalType = "eventCountEquals"
	TemporalCountLessThan   TemporalType = "eventCountLessThan"
	TemporalCountGreater    TemporalType = "eventCountGreaterThan"
	TemporalCountLessOrEq   TemporalType = "eventCountLessThanOrEqual"
	TemporalCountGreaterEq  TemporalType = "eventCountGreaterThanOrEqual"
)

// AllTemporalTypes returns all valid temporal condition types.
func AllTemporalTypes() []TemporalType {
	return []TemporalType{
		TemporalEventOccurred,
		TemporalNoEventOccurred,
		TemporalCountEquals,
		TemporalCountLessThan,
		TemporalCountGreater,
		TemporalCountLessOrEq,
		TemporalCountGreaterEq,
	}
}

// RequiresCount reports whether the type compares against an expected
// event count.
func (t TemporalType) RequiresCount() bool {
	switch t {
	case TemporalCountEquals, TemporalCountLessThan, TemporalCountGreater,
		TemporalCountLessOrEq, TemporalCountGreaterEq:
		return true
	}
	return false
}

// Scoping spatially restricts which historical events correlate.
type Scoping string

const (
	ScopeAnywhere     Scoping = "anywhere"
	ScopeSameArea     Scoping = "sameArea"
	ScopeSameLocation Scoping = "sameLocation"
)

// AllScopings returns all valid scoping values.
func AllScopings() []Scoping {
	return []Scoping{ScopeAnywhere, ScopeSameArea, ScopeSameLocation}
}

// TemporalCondition correlates the trigger event against the event
// store over a window relative to the trigger timestamp. At least one
// window bound must be configured.
type TemporalCondition struct {
	ID                 string         `json:"id"`
	Type               TemporalType   `json:"type"`
	ExpectedEventCount *int           `json:"expected_event_count,omitempty"`
	Scoping            Scoping        `json:"scoping"`
	EventFilter        ConditionGroup `json:"event_filter"`

	TimeWindowSecondsBefore *int `json:"time_window_seconds_before,omitempty"`
	TimeWindowSecondsAfter  *int `json:"time_window_seconds_after,omitempty"`
}

// ActionType discriminates the Action variants.
type ActionType string

const (
	ActionCreateEvent     ActionType = "createEvent"
	ActionCreateBookmark  ActionType = "createBookmark"
	ActionSendHTTPRequest ActionType = "sendHttpRequest"
	ActionSetDeviceState  ActionType = "setDeviceState"
)

// AllActionTypes returns all valid action types.
func AllActionTypes() []ActionType {
	return []ActionType{
		ActionCreateEvent,
		ActionCreateBookmark,
		ActionSendHTTPRequest,
		ActionSetDeviceState,
	}
}

// Action is a tagged variant; exactly the params struct matching Type
// is populated. Dispatch sites switch exhaustively on Type.
type Action struct {
	Type ActionType `json:"type"`

	CreateEvent     *CreateEventParams     `json:"create_event,omitempty"`
	CreateBookmark  *CreateBookmarkParams  `json:"create_bookmark,omitempty"`
	SendHTTPRequest *SendHTTPRequestParams `json:"send_http_request,omitempty"`
	SetDeviceState  *SetDeviceStateParams  `json:"set_device_state,omitempty"`
}

// CreateEventParams injects a synthetic event into a target connector.
// All *Template fields expand against the trigger's fact context.
type CreateEventParams struct {
	SourceTemplate      string `json:"source_template"`
	CaptionTemplate     string `json:"caption_template"`
	DescriptionTemplate string `json:"description_template"`
	TargetConnectorID   string `json:"target_connector_id"`
}

// CreateBookmarkParams creates a video bookmark on a target connector.
type CreateBookmarkParams struct {
	NameTemplate        string `json:"name_template"`
	DescriptionTemplate string `json:"description_template,omitempty"`
	DurationMsTemplate  string `json:"duration_ms_template"`
	TagsTemplate        string `json:"tags_template,omitempty"`
	TargetConnectorID   string `json:"target_connector_id"`
}

// SendHTTPRequestParams performs an outbound HTTP call.
type SendHTTPRequestParams struct {
	URLTemplate  string            `json:"url_template"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers,omitempty"`
	ContentType  string            `json:"content_type,omitempty"`
	BodyTemplate string            `json:"body_template,omitempty"`
}

// SetDeviceStateParams drives a device through the action handler
// registry. TargetState is the abstract vocabulary (locked, unlocked,
// on, off); handlers map it to vendor commands.
type SetDeviceStateParams struct {
	TargetDeviceInternalID string `json:"target_device_internal_id"`
	TargetState            string `json:"target_state"`
}

// DeepCopy creates a complete independent copy of the Automation.
// The condition tree, temporal conditions, and actions are all cloned
// so modifications to the copy do not affect the original. This is
// essential for cache isolation.
func (a *Automation) DeepCopy() *Automation {
	if a == nil {
		return nil
	}

	cpy := *a // Shallow copy of value fields
	cpy.Description = cloneStringPtr(a.Description)
	cpy.Config = a.Config.deepCopy()
	return &cpy
}

func (c AutomationConfig) deepCopy() AutomationConfig {
	cpy := c
	cpy.Conditions = c.Conditions.deepCopy()

	if c.TemporalConditions != nil {
		cpy.TemporalConditions = make([]TemporalCondition, len(c.TemporalConditions))
		for i, tc := range c.TemporalConditions {
			cpy.TemporalConditions[i] = tc
			cpy.TemporalConditions[i].ExpectedEventCount = cloneIntPtr(tc.ExpectedEventCount)
			cpy.TemporalConditions[i].TimeWindowSecondsBefore = cloneIntPtr(tc.TimeWindowSecondsBefore)
			cpy.TemporalConditions[i].TimeWindowSecondsAfter = cloneIntPtr(tc.TimeWindowSecondsAfter)
			cpy.TemporalConditions[i].EventFilter = tc.EventFilter.deepCopy()
		}
	}

	if c.Actions != nil {
		cpy.Actions = make([]Action, len(c.Actions))
		for i, act := range c.Actions {
			cpy.Actions[i] = act.deepCopy()
		}
	}
	return cpy
}

func (g ConditionGroup) deepCopy() ConditionGroup {
	cpy := g
	cpy.All = deepCopyRules(g.All)
	cpy.Any = deepCopyRules(g.Any)
	return cpy
}

func deepCopyRules(rules []Rule) []Rule {
	if rules == nil {
		return nil
	}
	cpy := make([]Rule, len(rules))
	for i, r := range rules {
		if r.Condition != nil {
			c := *r.Condition
			c.Value = deepCopyValue(r.Condition.Value)
			cpy[i].Condition = &c
		}
		if r.Group != nil {
			gc := r.Group.deepCopy()
			cpy[i].Group = &gc
		}
	}
	return cpy
}

func (a Action) deepCopy() Action {
	cpy := a
	if a.CreateEvent != nil {
		v := *a.CreateEvent
		cpy.CreateEvent = &v
	}
	if a.CreateBookmark != nil {
		v := *a.CreateBookmark
		cpy.CreateBookmark = &v
	}
	if a.SendHTTPRequest != nil {
		v := *a.SendHTTPRequest
		if a.SendHTTPRequest.Headers != nil {
			v.Headers = make(map[string]string, len(a.SendHTTPRequest.Headers))
			for k, hv := range a.SendHTTPRequest.Headers {
				v.Headers[k] = hv
			}
		}
		cpy.SendHTTPRequest = &v
	}
	if a.SetDeviceState != nil {
		v := *a.SetDeviceState
		cpy.SetDeviceState = &v
	}
	return cpy
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		cpy := make(map[string]any, len(val))
		for k, elem := range val {
			cpy[k] = deepCopyValue(elem)
		}
		return cpy
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		return v // Primitives are immutable
	}
}

// cloneStringPtr creates an independent copy of a *string.
func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// cloneIntPtr creates an independent copy of an *int.
func cloneIntPtr(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
