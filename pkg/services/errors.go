// Package services holds the business operations between the HTTP surface
// and the engine/persistence layers.
package services

import (
	"errors"
	"fmt"
)

// Validation errors map to HTTP 400.
var (
	ErrWorkflowNameRequired = errors.New("workflow name is required")
	ErrNodesRequired        = errors.New("workflow must have at least one node")
	ErrInvalidNodeData      = errors.New("invalid node data")
	ErrStartNodeRequired    = errors.New("workflow must have a start node")
	ErrCyclicGraph          = errors.New("workflow graph contains a cycle")
	ErrWorkflowNil          = errors.New("workflow cannot be nil")
	ErrSkillNameRequired    = errors.New("skill name is required")
	ErrSkillPromptRequired  = errors.New("skill prompt is required")
	ErrUnknownFlag          = errors.New("unknown feature flag")
)

// ServiceError wraps service-level errors with the failing operation.
type ServiceError struct {
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError reports whether an error should surface as HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrWorkflowNameRequired) ||
		errors.Is(err, ErrNodesRequired) ||
		errors.Is(err, ErrInvalidNodeData) ||
		errors.Is(err, ErrStartNodeRequired) ||
		errors.Is(err, ErrCyclicGraph) ||
		errors.Is(err, ErrWorkflowNil) ||
		errors.Is(err, ErrSkillNameRequired) ||
		errors.Is(err, ErrSkillPromptRequired) ||
		errors.Is(err, ErrUnknownFlag)
}

func NewValidationError(op, message string, err error) *ServiceError {
	return &ServiceError{Op: op, Message: message, Err: err}
}
