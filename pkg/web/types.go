// Package web provides the HTTP surface: workflow and skill CRUD, the
// SSE-streaming execute/resume endpoints, and feature-flag administration.
package web

import "github.com/Joe-rq/agent-flow-lite/pkg/models"

// CreateWorkflowRequest is the body for creating or upserting a workflow.
type CreateWorkflowRequest struct {
	ID          string           `json:"id,omitempty"`
	Name        string           `json:"name"        validate:"required,min=1"`
	Description string           `json:"description"`
	UserID      string           `json:"user_id,omitempty"`
	GraphData   models.GraphData `json:"graph_data"`
}

// ExecuteWorkflowRequest is the body for starting an execution.
type ExecuteWorkflowRequest struct {
	Input       string           `json:"input"`
	UserID      string           `json:"user_id,omitempty"`
	Model       string           `json:"model,omitempty"`
	History     []models.Message `json:"history,omitempty"`
	ExecutionID string           `json:"execution_id,omitempty"`
}

// CreateSkillRequest is the body for creating or upserting a skill.
type CreateSkillRequest struct {
	Name          string              `json:"name"   validate:"required,min=1"`
	Description   string              `json:"description,omitempty"`
	Prompt        string              `json:"prompt" validate:"required"`
	Inputs        []models.SkillInput `json:"inputs,omitempty"`
	KnowledgeBase string              `json:"knowledge_base,omitempty"`
	Model         *models.SkillModel  `json:"model,omitempty"`
}

// SetFlagRequest is the body for writing a feature-flag override.
type SetFlagRequest struct {
	Enabled bool `json:"enabled"`
}

// FlagResponse reports a flag's effective value.
type FlagResponse struct {
	Key     string `json:"key"`
	Enabled bool   `json:"enabled"`
}
