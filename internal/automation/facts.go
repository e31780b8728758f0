package automation

// Operator names a comparison the rule engine can evaluate.
type Operator string

const (
	OpEqual                Operator = "equal"
	OpNotEqual             Operator = "notEqual"
	OpIn                   Operator = "in"
	OpNotIn                Operator = "notIn"
	OpContains             Operator = "contains"
	OpDoesNotContain       Operator = "doesNotContain"
	OpLessThan             Operator = "lessThan"
	OpLessThanInclusive    Operator = "lessThanInclusive"
	OpGreaterThan          Operator = "greaterThan"
	OpGreaterThanInclusive Operator = "greaterThanInclusive"
)

// DataType governs which operators a fact admits.
type DataType string

const (
	DataTypeEnum       DataType = "enum"
	DataTypeIdentifier DataType = "identifier"
	DataTypeString     DataType = "string"
	DataTypeNumber     DataType = "number"
)

// ValueInput tells the rule editor how to collect the comparison value.
type ValueInput string

const (
	InputSelect ValueInput = "select"
	InputText   ValueInput = "text"
	InputNumber ValueInput = "number"
	InputEntity ValueInput = "entity"
)

// EntityType marks facts whose value universe is dynamic; populating
// the concrete option list is the HTTP surface's job.
type EntityType string

const (
	EntityDevice    EntityType = "device"
	EntityArea      EntityType = "area"
	EntityLocation  EntityType = "location"
	EntityConnector EntityType = "connector"
)

// AutomationFact declares one queryable field: which dotted context
// path it reads and which operators rule authors may apply to it.
type AutomationFact struct {
	ID         string
	Label      string
	Group      string
	DataType   DataType
	Operators  []Operator
	ValueInput ValueInput

	// ValueOptions fixes the value universe for closed enums.
	ValueOptions []string

	// EntityType is set instead of ValueOptions for dynamic universes.
	EntityType EntityType
}

// OperatorsFor returns the legal operator set for a data type.
// Enum and identifier facts admit equality and membership tests;
// string facts add substring tests; number facts admit the six
// relational comparisons.
func OperatorsFor(dt DataType) []Operator {
	switch dt {
	case DataTypeEnum, DataTypeIdentifier:
		return []Operator{OpEqual, OpNotEqual, OpIn, OpNotIn}
	case DataTypeString:
		return []Operator{OpEqual, OpNotEqual, OpIn, OpNotIn, OpContains, OpDoesNotContain}
	case DataTypeNumber:
		return []Operator{OpEqual, OpNotEqual, OpLessThan, OpLessThanInclusive, OpGreaterThan, OpGreaterThanInclusive}
	default:
		return nil
	}
}

// Catalog is the static ordered fact list. Lookup is linear; the
// catalog is small and immutable after startup.
type Catalog struct {
	facts []AutomationFact
}

// NewCatalog creates a catalog over the given fact list.
func NewCatalog(facts []AutomationFact) *Catalog {
	return &Catalog{facts: facts}
}

// Facts returns the ordered fact list.
func (c *Catalog) Facts() []AutomationFact {
	out := make([]AutomationFact, len(c.facts))
	copy(out, c.facts)
	return out
}

// Lookup finds a fact by id.
func (c *Catalog) Lookup(id string) (AutomationFact, bool) {
	for _, f := range c.facts {
		if f.ID == id {
			return f, true
		}
	}
	return AutomationFact{}, false
}

// AllowsOperator reports whether the fact admits the operator.
func (f AutomationFact) AllowsOperator(op Operator) bool {
	for _, allowed := range f.Operators {
		if allowed == op {
			return true
		}
	}
	return false
}

// DefaultCatalog returns the built-in fact catalog. Fact ids double as
// the dotted paths resolved against the flattened fact context.
func DefaultCatalog() *Catalog {
	return NewCatalog([]AutomationFact{
		{
			ID: "event.category", Label: "Event Category", Group: "Event",
			DataType: DataTypeEnum, Operators: OperatorsFor(DataTypeEnum),
			ValueInput: InputSelect,
			ValueOptions: []string{
				"DEVICE_STATE", "ACCESS_CONTROL", "ANALYTICS",
				"DIAGNOSTICS", "SECURITY", "UNKNOWN",
			},
		},
		{
			ID: "event.type", Label: "Event Type", Group: "Event",
			DataType: DataTypeEnum, Operators: OperatorsFor(DataTypeEnum),
			ValueInput: InputSelect,
		},
		{
			ID: "event.subtype", Label: "Event Subtype", Group: "Event",
			DataType: DataTypeEnum, Operators: OperatorsFor(DataTypeEnum),
			ValueInput: InputSelect,
		},
		{
			ID: "event.displayState", Label: "Display State", Group: "Event",
			DataType: DataTypeString, Operators: OperatorsFor(DataTypeString),
			ValueInput: InputText,
		},
		{
			ID: "event.timestampMs", Label: "Event Timestamp", Group: "Event",
			DataType: DataTypeNumber, Operators: OperatorsFor(DataTypeNumber),
			ValueInput: InputNumber,
		},
		{
			ID: "device.id", Label: "Device", Group: "Device",
			DataType: DataTypeIdentifier, Operators: OperatorsFor(DataTypeIdentifier),
			ValueInput: InputEntity, EntityType: EntityDevice,
		},
		{
			ID: "device.type", Label: "Device Type", Group: "Device",
			DataType: DataTypeEnum, Operators: OperatorsFor(DataTypeEnum),
			ValueInput: InputSelect,
			ValueOptions: []string{
				"sensor", "lock", "camera", "hub", "switch",
				"outlet", "siren", "door", "unmapped",
			},
		},
		{
			ID: "device.subtype", Label: "Device Subtype", Group: "Device",
			DataType: DataTypeEnum, Operators: OperatorsFor(DataTypeEnum),
			ValueInput: InputSelect,
		},
		{
			ID: "device.name", Label: "Device Name", Group: "Device",
			DataType: DataTypeString, Operators: OperatorsFor(DataTypeString),
			ValueInput: InputText,
		},
		{
			ID: "device.batteryLevel", Label: "Battery Level", Group: "Device",
			DataType: DataTypeNumber, Operators: OperatorsFor(DataTypeNumber),
			ValueInput: InputNumber,
		},
		{
			ID: "connector.id", Label: "Connector", Group: "Connector",
			DataType: DataTypeIdentifier, Operators: OperatorsFor(DataTypeIdentifier),
			ValueInput: InputEntity, EntityType: EntityConnector,
		},
		{
			ID: "connector.category", Label: "Connector Category", Group: "Connector",
			DataType: DataTypeEnum, Operators: OperatorsFor(DataTypeEnum),
			ValueInput: InputSelect, ValueOptions: []string{"yolink", "piko", "netbox"},
		},
		{
			ID: "area.id", Label: "Area", Group: "Space",
			DataType: DataTypeIdentifier, Operators: OperatorsFor(DataTypeIdentifier),
			ValueInput: InputEntity, EntityType: EntityArea,
		},
		{
			ID: "area.name", Label: "Area Name", Group: "Space",
			DataType: DataTypeString, Operators: OperatorsFor(DataTypeString),
			ValueInput: InputText,
		},
		{
			ID: "location.id", Label: "Location", Group: "Space",
			DataType: DataTypeIdentifier, Operators: OperatorsFor(DataTypeIdentifier),
			ValueInput: InputEntity, EntityType: EntityLocation,
		},
		{
			ID: "location.name", Label: "Location Name", Group: "Space",
			DataType: DataTypeString, Operators: OperatorsFor(DataTypeString),
			ValueInput: InputText,
		},
	})
}
