package models

import "strings"

// Message is one turn of chat history handed to the LLM collaborator.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ExecutionContext is the shared, serialisable key/value store for one
// workflow execution. Node executors write their final value under
// StepOutputs[nodeID] and mirror it at Variables["<nodeID>.output"], so
// downstream templates can reference "{{<nodeID>.output}}".
type ExecutionContext struct {
	Variables           map[string]any `json:"variables"`
	StepOutputs         map[string]any `json:"step_outputs"`
	ConversationHistory []Message      `json:"conversation_history"`
	UserID              string         `json:"user_id,omitempty"`
	Model               string         `json:"model,omitempty"`
}

// NewExecutionContext builds a context seeded with the initial input under
// the "input" variable.
func NewExecutionContext(initialInput, userID, model string) *ExecutionContext {
	return &ExecutionContext{
		Variables:   map[string]any{"input": initialInput},
		StepOutputs: make(map[string]any),
		UserID:      userID,
		Model:       model,
	}
}

// SetOutput records a node's final value in both namespaces.
func (ec *ExecutionContext) SetOutput(nodeID string, value any) {
	ec.StepOutputs[nodeID] = value
	ec.Variables[nodeID+".output"] = value
}

// SetVariable writes an arbitrary scratch variable.
func (ec *ExecutionContext) SetVariable(name string, value any) {
	ec.Variables[name] = value
}

// GetVariable resolves a dotted path. The flat form is tried first so that a
// key stored literally as "abc-def.output" reads back verbatim; node ids may
// contain dots or hyphens and are not valid path components. On a flat miss
// the path is split on "." and walked through nested maps.
func (ec *ExecutionContext) GetVariable(path string) (any, bool) {
	if value, ok := ec.Variables[path]; ok {
		return value, true
	}

	parts := strings.Split(path, ".")
	if len(parts) < 2 {
		return nil, false
	}

	current, ok := ec.Variables[parts[0]]
	if !ok {
		return nil, false
	}

	for _, part := range parts[1:] {
		nested, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = nested[part]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// ContextCheckpoint is the JSON-safe snapshot of an execution context.
type ContextCheckpoint struct {
	Variables           map[string]any `json:"variables"`
	StepOutputs         map[string]any `json:"step_outputs"`
	ConversationHistory []Message      `json:"conversation_history"`
}

// Checkpoint snapshots the context for durable storage. Maps are copied so a
// later mutation of the live context cannot leak into a saved checkpoint.
func (ec *ExecutionContext) Checkpoint() ContextCheckpoint {
	variables := make(map[string]any, len(ec.Variables))
	for k, v := range ec.Variables {
		variables[k] = v
	}

	stepOutputs := make(map[string]any, len(ec.StepOutputs))
	for k, v := range ec.StepOutputs {
		stepOutputs[k] = v
	}

	history := make([]Message, len(ec.ConversationHistory))
	copy(history, ec.ConversationHistory)

	return ContextCheckpoint{
		Variables:           variables,
		StepOutputs:         stepOutputs,
		ConversationHistory: history,
	}
}

// ContextFromCheckpoint rebuilds a context from a stored snapshot. The initial
// input binding is restored even when the snapshot predates any node output.
func ContextFromCheckpoint(cp ContextCheckpoint, initialInput, userID, model string) *ExecutionContext {
	ec := NewExecutionContext(initialInput, userID, model)

	for k, v := range cp.Variables {
		ec.Variables[k] = v
	}

	for k, v := range cp.StepOutputs {
		ec.StepOutputs[k] = v
	}

	if len(cp.ConversationHistory) > 0 {
		ec.ConversationHistory = append(ec.ConversationHistory, cp.ConversationHistory...)
	}

	return ec
}
