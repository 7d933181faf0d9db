package models

import "time"

// ExecutionStatus is the lifecycle state of a durable execution record.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// Execution is the durable recovery record for one workflow run. The four
// JSON columns are rewritten after every completed node; Queue always holds
// exactly the not-yet-visited BFS frontier and ExecutedNodes only grows.
type Execution struct {
	ID            string            `json:"id"`
	WorkflowID    string            `json:"workflow_id"`
	UserID        string            `json:"user_id,omitempty"`
	Status        ExecutionStatus   `json:"status"`
	InitialInput  string            `json:"initial_input"`
	Model         string            `json:"model,omitempty"`
	StepOutputs   map[string]any    `json:"step_outputs"`
	Variables     map[string]any    `json:"variables"`
	ExecutedNodes []string          `json:"executed_nodes"`
	Queue         []string          `json:"queue"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}
