package automation

import (
	"errors"
	"testing"
)

func validConfig() AutomationConfig {
	return AutomationConfig{
		Conditions: NewAllGroup(condEq("event.type", "ACCESS_DENIED")),
		Actions: []Action{{
			Type: ActionSetDeviceState,
			SetDeviceState: &SetDeviceStateParams{
				TargetDeviceInternalID: "dev-1",
				TargetState:            "locked",
			},
		}},
	}
}

func validAutomation() *Automation {
	return &Automation{
		ID:     GenerateID(),
		Name:   "Lockdown on repeated denials",
		Config: validConfig(),
	}
}

func TestValidateAutomationAcceptsWellFormed(t *testing.T) {
	if err := ValidateAutomation(validAutomation(), DefaultCatalog()); err != nil {
		t.Fatalf("ValidateAutomation: %v", err)
	}
}

func TestValidateName(t *testing.T) {
	catalog := DefaultCatalog()

	a := validAutomation()
	a.Name = "   "
	if err := ValidateAutomation(a, catalog); !errors.Is(err, ErrInvalidName) {
		t.Errorf("blank name: err = %v, want ErrInvalidName", err)
	}

	a = validAutomation()
	for len(a.Name) <= maxNameLength {
		a.Name += "x"
	}
	if err := ValidateAutomation(a, catalog); !errors.Is(err, ErrInvalidName) {
		t.Errorf("long name: err = %v, want ErrInvalidName", err)
	}
}

func TestValidateGroupShapes(t *testing.T) {
	catalog := DefaultCatalog()

	// Neither all nor any.
	cfg := validConfig()
	cfg.Conditions = ConditionGroup{}
	if err := ValidateConfig(&cfg, catalog); !errors.Is(err, ErrInvalidGroup) {
		t.Errorf("empty group: err = %v, want ErrInvalidGroup", err)
	}

	// Same defect nested inside a valid outer group.
	cfg = validConfig()
	cfg.Conditions = NewAllGroup(GroupRule(ConditionGroup{}))
	if err := ValidateConfig(&cfg, catalog); !errors.Is(err, ErrInvalidGroup) {
		t.Errorf("nested empty group: err = %v, want ErrInvalidGroup", err)
	}

	// Explicitly empty all/any lists are legal shapes.
	cfg = validConfig()
	cfg.Conditions = NewAllGroup()
	if err := ValidateConfig(&cfg, catalog); err != nil {
		t.Errorf("empty all list should validate: %v", err)
	}
}

func TestValidateConditionFactAndOperator(t *testing.T) {
	catalog := DefaultCatalog()

	cfg := validConfig()
	cfg.Conditions = NewAllGroup(CondRule(Condition{
		Fact: "event.nonsense", Operator: OpEqual, Value: "x",
	}))
	if err := ValidateConfig(&cfg, catalog); !errors.Is(err, ErrUnknownFact) {
		t.Errorf("unknown fact: err = %v, want ErrUnknownFact", err)
	}

	// contains is a string operator; event.category is an enum fact.
	cfg = validConfig()
	cfg.Conditions = NewAllGroup(CondRule(Condition{
		Fact: "event.category", Operator: OpContains, Value: "SEC",
	}))
	if err := ValidateConfig(&cfg, catalog); !errors.Is(err, ErrOperatorNotAllowed) {
		t.Errorf("enum contains: err = %v, want ErrOperatorNotAllowed", err)
	}

	// lessThan on a number fact is fine.
	cfg = validConfig()
	cfg.Conditions = NewAllGroup(CondRule(Condition{
		Fact: "device.batteryLevel", Operator: OpLessThan, Value: 2,
	}))
	if err := ValidateConfig(&cfg, catalog); err != nil {
		t.Errorf("number lessThan should validate: %v", err)
	}
}

func TestValidateTemporalConditions(t *testing.T) {
	catalog := DefaultCatalog()
	filter := NewAllGroup(condEq("event.type", "ACCESS_GRANTED"))

	tests := []struct {
		name string
		tc   TemporalCondition
		ok   bool
	}{
		{
			"well formed",
			TemporalCondition{
				ID: "t1", Type: TemporalNoEventOccurred, Scoping: ScopeSameArea,
				EventFilter: filter, TimeWindowSecondsBefore: intPtr(60),
			},
			true,
		},
		{
			"count type missing expected count",
			TemporalCondition{
				ID: "t2", Type: TemporalCountEquals, Scoping: ScopeAnywhere,
				EventFilter: filter, TimeWindowSecondsBefore: intPtr(60),
			},
			false,
		},
		{
			"no window bound",
			TemporalCondition{
				ID: "t3", Type: TemporalEventOccurred, Scoping: ScopeAnywhere,
				EventFilter: filter,
			},
			false,
		},
		{
			"negative window bound",
			TemporalCondition{
				ID: "t4", Type: TemporalEventOccurred, Scoping: ScopeAnywhere,
				EventFilter: filter, TimeWindowSecondsBefore: intPtr(-5),
			},
			false,
		},
		{
			"unknown scoping",
			TemporalCondition{
				ID: "t5", Type: TemporalEventOccurred, Scoping: Scoping("nearby"),
				EventFilter: filter, TimeWindowSecondsBefore: intPtr(60),
			},
			false,
		},
		{
			"filter group without all or any",
			TemporalCondition{
				ID: "t6", Type: TemporalEventOccurred, Scoping: ScopeAnywhere,
				EventFilter: ConditionGroup{}, TimeWindowSecondsBefore: intPtr(60),
			},
			false,
		},
		{
			"missing id",
			TemporalCondition{
				Type: TemporalEventOccurred, Scoping: ScopeAnywhere,
				EventFilter: filter, TimeWindowSecondsBefore: intPtr(60),
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.TemporalConditions = []TemporalCondition{tt.tc}
			err := ValidateConfig(&cfg, catalog)
			if tt.ok && err != nil {
				t.Errorf("ValidateConfig: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation failure")
			}
		})
	}
}

func TestValidateActions(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		ok     bool
	}{
		{
			"setDeviceState well formed",
			Action{Type: ActionSetDeviceState, SetDeviceState: &SetDeviceStateParams{
				TargetDeviceInternalID: "dev-1", TargetState: "locked",
			}},
			true,
		},
		{
			"setDeviceState missing state",
			Action{Type: ActionSetDeviceState, SetDeviceState: &SetDeviceStateParams{
				TargetDeviceInternalID: "dev-1",
			}},
			false,
		},
		{
			"createBookmark literal duration parses",
			Action{Type: ActionCreateBookmark, CreateBookmark: &CreateBookmarkParams{
				NameTemplate: "n", DurationMsTemplate: "5000", TargetConnectorID: "c",
			}},
			true,
		},
		{
			"createBookmark literal duration non-integer",
			Action{Type: ActionCreateBookmark, CreateBookmark: &CreateBookmarkParams{
				NameTemplate: "n", DurationMsTemplate: "five seconds", TargetConnectorID: "c",
			}},
			false,
		},
		{
			"createBookmark templated duration deferred",
			Action{Type: ActionCreateBookmark, CreateBookmark: &CreateBookmarkParams{
				NameTemplate: "n", DurationMsTemplate: "{{event.durationMs}}", TargetConnectorID: "c",
			}},
			true,
		},
		{
			"http json body must be valid json",
			Action{Type: ActionSendHTTPRequest, SendHTTPRequest: &SendHTTPRequestParams{
				URLTemplate: "https://example.com/x", Method: "POST",
				ContentType: "application/json", BodyTemplate: `{"broken":`,
			}},
			false,
		},
		{
			"http templated body deferred",
			Action{Type: ActionSendHTTPRequest, SendHTTPRequest: &SendHTTPRequestParams{
				URLTemplate: "https://example.com/x", Method: "POST",
				ContentType: "application/json", BodyTemplate: `{"state": "{{event.displayState}}"}`,
			}},
			true,
		},
		{
			"http bad method",
			Action{Type: ActionSendHTTPRequest, SendHTTPRequest: &SendHTTPRequestParams{
				URLTemplate: "https://example.com/x", Method: "FETCH",
			}},
			false,
		},
		{
			"http relative literal url",
			Action{Type: ActionSendHTTPRequest, SendHTTPRequest: &SendHTTPRequestParams{
				URLTemplate: "/hooks/alert", Method: "GET",
			}},
			false,
		},
		{
			"createEvent missing connector",
			Action{Type: ActionCreateEvent, CreateEvent: &CreateEventParams{
				SourceTemplate: "s", CaptionTemplate: "c", DescriptionTemplate: "d",
			}},
			false,
		},
		{
			"unknown type",
			Action{Type: ActionType("ringBell")},
			false,
		},
		{
			"params mismatch",
			Action{Type: ActionCreateEvent},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAction(tt.action)
			if tt.ok && err != nil {
				t.Errorf("ValidateAction: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidAction) {
				t.Errorf("err = %v, want ErrInvalidAction", err)
			}
		})
	}
}

func TestOperatorsForDataTypes(t *testing.T) {
	for _, op := range []Operator{OpEqual, OpNotEqual, OpIn, OpNotIn} {
		if !containsOp(OperatorsFor(DataTypeEnum), op) {
			t.Errorf("enum set missing %s", op)
		}
	}
	if containsOp(OperatorsFor(DataTypeEnum), OpContains) {
		t.Error("enum set must not include contains")
	}
	if !containsOp(OperatorsFor(DataTypeString), OpContains) {
		t.Error("string set must include contains")
	}
	num := OperatorsFor(DataTypeNumber)
	if len(num) != 6 || !containsOp(num, OpGreaterThanInclusive) {
		t.Errorf("number set = %v", num)
	}
}

func containsOp(ops []Operator, op Operator) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}
