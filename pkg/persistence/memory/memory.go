// Package memory provides a map-backed Persistence for tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/persistence"
)

// Persistence keeps everything in process memory. Callers receive shallow
// copies of the stored structs.
type Persistence struct {
	mu         sync.RWMutex
	workflows  map[string]*models.Workflow
	executions map[string]*models.Execution
	skills     map[string]*models.Skill
	flags      map[string]bool
}

func NewPersistence() *Persistence {
	return &Persistence{
		workflows:  make(map[string]*models.Workflow),
		executions: make(map[string]*models.Execution),
		skills:     make(map[string]*models.Skill),
		flags:      make(map[string]bool),
	}
}

func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	workflows := make([]*models.Workflow, 0, len(p.workflows))
	for _, workflow := range p.workflows {
		copied := *workflow
		workflows = append(workflows, &copied)
	}

	return workflows, nil
}

func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	workflow, ok := p.workflows[id]
	if !ok {
		return nil, persistence.ErrWorkflowNotFound
	}

	copied := *workflow

	return &copied, nil
}

func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if workflow.ID == "" {
		workflow.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}
	workflow.UpdatedAt = now

	copied := *workflow
	p.workflows[workflow.ID] = &copied

	return nil
}

func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.workflows[id]; !ok {
		return persistence.ErrWorkflowNotFound
	}

	delete(p.workflows, id)

	return nil
}

func (p *Persistence) ExecutionByID(ctx context.Context, id string) (*models.Execution, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	execution, ok := p.executions[id]
	if !ok {
		return nil, persistence.ErrExecutionNotFound
	}

	copied := *execution

	return &copied, nil
}

func (p *Persistence) SaveExecution(ctx context.Context, execution *models.Execution) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = now
	}
	execution.UpdatedAt = now

	copied := *execution
	p.executions[execution.ID] = &copied

	return nil
}

func (p *Persistence) Skills(ctx context.Context) ([]*models.Skill, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	skills := make([]*models.Skill, 0, len(p.skills))
	for _, sk := range p.skills {
		copied := *sk
		skills = append(skills, &copied)
	}

	return skills, nil
}

func (p *Persistence) SkillByName(ctx context.Context, name string) (*models.Skill, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	sk, ok := p.skills[name]
	if !ok {
		return nil, persistence.ErrSkillNotFound
	}

	copied := *sk

	return &copied, nil
}

func (p *Persistence) SaveSkill(ctx context.Context, sk *models.Skill) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().UTC()
	if sk.CreatedAt.IsZero() {
		sk.CreatedAt = now
	}
	sk.UpdatedAt = now

	copied := *sk
	p.skills[sk.Name] = &copied

	return nil
}

func (p *Persistence) FlagOverride(ctx context.Context, key string) (bool, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	value, found := p.flags[key]

	return value, found, nil
}

func (p *Persistence) SetFlagOverride(ctx context.Context, key string, value bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.flags[key] = value

	return nil
}

func (p *Persistence) HealthCheck(ctx context.Context) error { return nil }

func (p *Persistence) Close(ctx context.Context) error { return nil }
