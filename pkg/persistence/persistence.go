// Package persistence abstracts durable storage for workflow definitions,
// execution records, skills and feature-flag overrides.
package persistence

import (
	"context"
	"errors"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/skill"
)

type Persistence interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error

	ExecutionByID(ctx context.Context, id string) (*models.Execution, error)
	SaveExecution(ctx context.Context, execution *models.Execution) error

	Skills(ctx context.Context) ([]*models.Skill, error)
	SkillByName(ctx context.Context, name string) (*models.Skill, error)
	SaveSkill(ctx context.Context, sk *models.Skill) error

	FlagOverride(ctx context.Context, key string) (value, found bool, err error)
	SetFlagOverride(ctx context.Context, key string, value bool) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// SkillLoader adapts a Persistence into the loader interface skill nodes
// consume, translating the store's not-found sentinel.
type SkillLoader struct {
	Store Persistence
}

func (l SkillLoader) Load(ctx context.Context, name string) (*models.Skill, error) {
	sk, err := l.Store.SkillByName(ctx, name)
	if err != nil {
		if errors.Is(err, ErrSkillNotFound) {
			return nil, skill.ErrSkillNotFound
		}

		return nil, err
	}

	return sk, nil
}
