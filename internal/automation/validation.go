package automation

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength     = 100
	maxDescriptionLen = 500
	maxActions        = 50
	maxTreeDepth      = 16
	maxWindowSeconds  = 86400 // 24 hours
)

// Pre-computed validation sets for O(1) lookups.
var (
	validTemporalTypes map[TemporalType]struct{}
	validScopings      map[Scoping]struct{}
	validHTTPMethods   = map[string]struct{}{
		"GET": {}, "POST": {}, "PUT": {}, "PATCH": {}, "DELETE": {}, "HEAD": {},
	}
)

func init() {
	validTemporalTypes = make(map[TemporalType]struct{}, len(AllTemporalTypes()))
	for _, t := range AllTemporalTypes() {
		validTemporalTypes[t] = struct{}{}
	}
	validScopings = make(map[Scoping]struct{}, len(AllScopings()))
	for _, s := range AllScopings() {
		validScopings[s] = struct{}{}
	}
}

// ValidateAutomation performs comprehensive save-time validation.
// Configuration defects surface here, to the rule author, never at
// evaluation time. Returns the first failure found.
func ValidateAutomation(a *Automation, catalog *Catalog) error {
	if a == nil {
		return ErrInvalidAutomation
	}

	if err := ValidateName(a.Name); err != nil {
		return err
	}
	if a.Description != nil && len(*a.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description exceeds %d characters", ErrInvalidAutomation, maxDescriptionLen)
	}
	return ValidateConfig(&a.Config, catalog)
}

// ValidateConfig validates an automation body against the fact catalog.
func ValidateConfig(c *AutomationConfig, catalog *Catalog) error {
	if err := validateGroup(&c.Conditions, catalog, 0); err != nil {
		return fmt.Errorf("conditions: %w", err)
	}

	for i, tc := range c.TemporalConditions {
		if err := validateTemporal(tc, catalog); err != nil {
			return fmt.Errorf("temporal_conditions[%d]: %w", i, err)
		}
	}

	if len(c.Actions) == 0 {
		return fmt.Errorf("%w: at least one action is required", ErrInvalidAction)
	}
	if len(c.Actions) > maxActions {
		return fmt.Errorf("%w: exceeds maximum of %d actions", ErrInvalidAction, maxActions)
	}
	for i, action := range c.Actions {
		if err := ValidateAction(action); err != nil {
			return fmt.Errorf("actions[%d]: %w", i, err)
		}
	}
	return nil
}

// ValidateName checks if an automation name is valid.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// validateGroup walks the condition tree. Every group must define at
// least one of all/any; every leaf must reference a catalog fact with
// a legal operator.
func validateGroup(g *ConditionGroup, catalog *Catalog, depth int) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("%w: tree exceeds depth %d", ErrInvalidGroup, maxTreeDepth)
	}
	if !g.HasAll() && !g.HasAny() {
		return ErrInvalidGroup
	}

	for _, rules := range [][]Rule{g.All, g.Any} {
		for i, r := range rules {
			switch {
			case r.Condition != nil:
				if err := validateCondition(*r.Condition, catalog); err != nil {
					return fmt.Errorf("rule[%d]: %w", i, err)
				}
			case r.Group != nil:
				if err := validateGroup(r.Group, catalog, depth+1); err != nil {
					return fmt.Errorf("rule[%d]: %w", i, err)
				}
			default:
				return fmt.Errorf("rule[%d]: %w: empty rule node", i, ErrInvalidGroup)
			}
		}
	}
	return nil
}

func validateCondition(c Condition, catalog *Catalog) error {
	if c.Fact == "" {
		return fmt.Errorf("%w: condition fact is empty", ErrUnknownFact)
	}
	fact, ok := catalog.Lookup(c.Fact)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFact, c.Fact)
	}
	if !fact.AllowsOperator(c.Operator) {
		return fmt.Errorf("%w: %q on %s fact %q", ErrOperatorNotAllowed, c.Operator, fact.DataType, c.Fact)
	}
	return nil
}

func validateTemporal(tc TemporalCondition, catalog *Catalog) error {
	if tc.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidTemporal)
	}
	if _, ok := validTemporalTypes[tc.Type]; !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTemporal, tc.Type)
	}
	if _, ok := validScopings[tc.Scoping]; !ok {
		return fmt.Errorf("%w: unknown scoping %q", ErrInvalidTemporal, tc.Scoping)
	}

	if tc.Type.RequiresCount() {
		if tc.ExpectedEventCount == nil {
			return fmt.Errorf("%w: %s requires expected_event_count", ErrInvalidTemporal, tc.Type)
		}
		if *tc.ExpectedEventCount < 0 {
			return fmt.Errorf("%w: expected_event_count cannot be negative", ErrInvalidTemporal)
		}
	}

	if tc.TimeWindowSecondsBefore == nil && tc.TimeWindowSecondsAfter == nil {
		return fmt.Errorf("%w: at least one window bound is required", ErrInvalidTemporal)
	}
	for _, bound := range []*int{tc.TimeWindowSecondsBefore, tc.TimeWindowSecondsAfter} {
		if bound == nil {
			continue
		}
		if *bound < 0 || *bound > maxWindowSeconds {
			return fmt.Errorf("%w: window bound must be 0-%d seconds", ErrInvalidTemporal, maxWindowSeconds)
		}
	}

	if err := validateGroup(&tc.EventFilter, catalog, 0); err != nil {
		return fmt.Errorf("event_filter: %w", err)
	}
	return nil
}

// ValidateAction performs static validation on one action. Syntactic
// constraints on expanded values apply only to literal templates; a
// template carrying placeholders defers to expansion time.
func ValidateAction(a Action) error {
	switch a.Type {
	case ActionCreateEvent:
		if a.CreateEvent == nil {
			return fmt.Errorf("%w: createEvent params missing", ErrInvalidAction)
		}
		if a.CreateEvent.TargetConnectorID == "" {
			return fmt.Errorf("%w: target_connector_id is required", ErrInvalidAction)
		}
		if a.CreateEvent.SourceTemplate == "" || a.CreateEvent.CaptionTemplate == "" {
			return fmt.Errorf("%w: source and caption templates are required", ErrInvalidAction)
		}
		return nil

	case ActionCreateBookmark:
		if a.CreateBookmark == nil {
			return fmt.Errorf("%w: createBookmark params missing", ErrInvalidAction)
		}
		if a.CreateBookmark.TargetConnectorID == "" {
			return fmt.Errorf("%w: target_connector_id is required", ErrInvalidAction)
		}
		if a.CreateBookmark.NameTemplate == "" {
			return fmt.Errorf("%w: name template is required", ErrInvalidAction)
		}
		dur := a.CreateBookmark.DurationMsTemplate
		if dur == "" {
			return fmt.Errorf("%w: duration_ms template is required", ErrInvalidAction)
		}
		if !ContainsPlaceholders(dur) {
			if _, err := strconv.ParseInt(strings.TrimSpace(dur), 10, 64); err != nil {
				return fmt.Errorf("%w: duration_ms %q is not an integer", ErrInvalidAction, dur)
			}
		}
		return nil

	case ActionSendHTTPRequest:
		if a.SendHTTPRequest == nil {
			return fmt.Errorf("%w: sendHttpRequest params missing", ErrInvalidAction)
		}
		p := a.SendHTTPRequest
		if _, ok := validHTTPMethods[strings.ToUpper(p.Method)]; !ok {
			return fmt.Errorf("%w: unsupported method %q", ErrInvalidAction, p.Method)
		}
		if p.URLTemplate == "" {
			return fmt.Errorf("%w: url template is required", ErrInvalidAction)
		}
		if !ContainsPlaceholders(p.URLTemplate) {
			u, err := url.Parse(p.URLTemplate)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("%w: url %q is not absolute", ErrInvalidAction, p.URLTemplate)
			}
		}
		if isJSONContentType(p.ContentType) && p.BodyTemplate != "" && !ContainsPlaceholders(p.BodyTemplate) {
			if !json.Valid([]byte(p.BodyTemplate)) {
				return fmt.Errorf("%w: body is not valid JSON for content type %q", ErrInvalidAction, p.ContentType)
			}
		}
		return nil

	case ActionSetDeviceState:
		if a.SetDeviceState == nil {
			return fmt.Errorf("%w: setDeviceState params missing", ErrInvalidAction)
		}
		if a.SetDeviceState.TargetDeviceInternalID == "" {
			return fmt.Errorf("%w: target device is required", ErrInvalidAction)
		}
		if a.SetDeviceState.TargetState == "" {
			return fmt.Errorf("%w: target state is required", ErrInvalidAction)
		}
		return nil

	default:
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, a.Type)
	}
}

func isJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return ct == "application/json" || strings.HasSuffix(ct, "+json")
}

// GenerateID creates a new UUID for an automation.
func GenerateID() string {
	return uuid.New().String()
}
