package toolcatalog

import "github.com/evalgo/flowengine/pin"

// ResultSchema describes the shape a tool call's result takes, expressed
// in the same kind/shape vocabulary as a pin so a sub-context can bind the
// result straight onto one.
type ResultSchema struct {
	Kind       pin.Kind       `json:"kind"`
	ValueShape pin.ValueShape `json:"valueShape"`
	Fields     map[string]ResultSchema `json:"fields,omitempty"`
}

// ActionCapability describes one action a tool service can perform and
// what it returns, enabling schema-driven binding without runtime type
// guessing.
type ActionCapability struct {
	ActionType   string              `json:"actionType"`
	ResultSchema *ResultSchema       `json:"resultSchema,omitempty"`
	Examples     []CapabilityExample `json:"examples,omitempty"`
	Description  string              `json:"description,omitempty"`
}

// CapabilityExample documents one example input/output pair for an action.
type CapabilityExample struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Input       map[string]interface{} `json:"input"`
	Output      map[string]interface{} `json:"output"`
}

// ServiceCapabilities wraps every action capability one tool service
// advertises.
type ServiceCapabilities struct {
	Actions []ActionCapability `json:"actions"`
}
