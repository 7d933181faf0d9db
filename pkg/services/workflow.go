package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/persistence"
	"github.com/Joe-rq/agent-flow-lite/pkg/registry"
	"github.com/Joe-rq/agent-flow-lite/pkg/workflow"
)

// ErrWorkflowNotFound is returned when a workflow is not found.
var ErrWorkflowNotFound = persistence.ErrWorkflowNotFound

// Workflow validates and stores workflow definitions.
type Workflow struct {
	persistence persistence.Persistence
	registry    *registry.Registry
}

func NewWorkflow(p persistence.Persistence, r *registry.Registry) *Workflow {
	return &Workflow{
		persistence: p,
		registry:    r,
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "persistence layer not initialized", false
	}

	if err := w.persistence.HealthCheck(ctx); err != nil {
		return "persistence layer is unhealthy: " + err.Error(), false
	}

	return "persistence layer is healthy", true
}

func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.Workflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

func (w *Workflow) Get(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowByID(ctx, id)
}

// Save validates a definition and upserts it. A blank id gets a generated
// one; the saved workflow is returned.
func (w *Workflow) Save(ctx context.Context, wf *models.Workflow) (*models.Workflow, error) {
	if wf == nil {
		return nil, ErrWorkflowNil
	}

	if err := w.validate(wf); err != nil {
		return nil, err
	}

	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	if wf.CreatedAt.IsZero() {
		wf.CreatedAt = now
	}
	wf.UpdatedAt = now

	if err := w.persistence.SaveWorkflow(ctx, wf); err != nil {
		return nil, fmt.Errorf("failed to save workflow %s: %w", wf.ID, err)
	}

	return wf, nil
}

func (w *Workflow) Delete(ctx context.Context, id string) error {
	return w.persistence.DeleteWorkflow(ctx, id)
}

func (w *Workflow) validate(wf *models.Workflow) error {
	if wf.Name == "" {
		return ErrWorkflowNameRequired
	}

	if len(wf.GraphData.Nodes) == 0 {
		return ErrNodesRequired
	}

	if len(wf.StartNodes()) == 0 {
		return ErrStartNodeRequired
	}

	for i := range wf.GraphData.Nodes {
		if err := w.registry.ValidateNodeData(&wf.GraphData.Nodes[i]); err != nil {
			return NewValidationError("workflow.validate", err.Error(), ErrInvalidNodeData)
		}
	}

	if workflow.HasCycle(wf) {
		return ErrCyclicGraph
	}

	return nil
}
