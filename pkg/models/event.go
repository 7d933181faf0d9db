package models

// EventType tags a progress event on its way to the caller.
type EventType string

const (
	EventWorkflowStart    EventType = "workflow_start"
	EventWorkflowComplete EventType = "workflow_complete"
	EventWorkflowError    EventType = "workflow_error"
	EventNodeStart        EventType = "node_start"
	EventNodeComplete     EventType = "node_complete"
	EventNodeError        EventType = "node_error"
	EventToken            EventType = "token"
	EventThought          EventType = "thought"
	EventCitation         EventType = "citation"

	// EventDone terminates a skill sub-stream; it never reaches the caller
	// directly, the consuming node translates it.
	EventDone EventType = "done"
)

// Event is one transient progress record. Data carries the type-specific
// payload exactly as it is serialised onto the wire; the engine forwards
// executor events verbatim.
type Event struct {
	Type EventType
	Data map[string]any
}

func NewWorkflowStart(workflowID, workflowName, executionID string, resumed bool) Event {
	data := map[string]any{
		"workflow_id":   workflowID,
		"workflow_name": workflowName,
		"execution_id":  executionID,
	}
	if resumed {
		data["resumed"] = true
	}

	return Event{Type: EventWorkflowStart, Data: data}
}

func NewWorkflowComplete(finalOutput any) Event {
	return Event{Type: EventWorkflowComplete, Data: map[string]any{"final_output": finalOutput}}
}

func NewWorkflowError(message string) Event {
	return Event{Type: EventWorkflowError, Data: map[string]any{"error": message}}
}

func NewNodeStart(nodeID string, nodeType NodeType) Event {
	return Event{Type: EventNodeStart, Data: map[string]any{
		"node_id":   nodeID,
		"node_type": string(nodeType),
	}}
}

func NewNodeComplete(nodeID string, output any, extra map[string]any) Event {
	data := map[string]any{
		"node_id": nodeID,
		"output":  output,
	}
	for k, v := range extra {
		data[k] = v
	}

	return Event{Type: EventNodeComplete, Data: data}
}

func NewNodeError(nodeID, message string) Event {
	return Event{Type: EventNodeError, Data: map[string]any{
		"node_id": nodeID,
		"error":   message,
	}}
}

func NewToken(nodeID, content string) Event {
	return Event{Type: EventToken, Data: map[string]any{
		"node_id": nodeID,
		"content": content,
	}}
}

// NewThought reports structured progress (retrieval phases, loaded skills,
// chosen condition branches) that is not token output.
func NewThought(nodeID, typeDetail string, extra map[string]any) Event {
	data := map[string]any{
		"node_id":     nodeID,
		"type_detail": typeDetail,
	}
	for k, v := range extra {
		data[k] = v
	}

	return Event{Type: EventThought, Data: data}
}

func NewCitation(nodeID string, sources any) Event {
	return Event{Type: EventCitation, Data: map[string]any{
		"node_id": nodeID,
		"sources": sources,
	}}
}
