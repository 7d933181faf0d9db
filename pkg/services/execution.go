package services

import (
	"context"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/persistence"
	"github.com/Joe-rq/agent-flow-lite/pkg/workflow"
)

// ErrExecutionNotFound is returned when an execution is not found.
var ErrExecutionNotFound = persistence.ErrExecutionNotFound

// Execution drives the engine and exposes the durable records.
type Execution struct {
	persistence persistence.Persistence
	engine      *workflow.Engine
}

func NewExecution(p persistence.Persistence, engine *workflow.Engine) *Execution {
	return &Execution{
		persistence: p,
		engine:      engine,
	}
}

// Start looks the workflow up and begins streaming its execution. The
// workflow must exist; everything after that is reported on the stream.
func (s *Execution) Start(ctx context.Context, workflowID string, req workflow.ExecuteRequest) (<-chan models.Event, error) {
	wf, err := s.persistence.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	return s.engine.Execute(ctx, wf, req), nil
}

// Resume re-attaches to a suspended execution. Missing or completed
// executions are reported on the stream itself.
func (s *Execution) Resume(ctx context.Context, executionID string) <-chan models.Event {
	return s.engine.Resume(ctx, executionID)
}

func (s *Execution) Get(ctx context.Context, id string) (*models.Execution, error) {
	return s.persistence.ExecutionByID(ctx, id)
}
