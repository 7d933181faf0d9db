// Package skill loads named prompt-template skills and runs them as
// self-contained streaming executions. A skill run produces the same
// line-oriented event records as the outer workflow stream, so a consuming
// node can parse and re-emit them.
package skill

import (
	"context"
	"errors"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
)

// ErrSkillNotFound marks a load of an unknown skill name.
var ErrSkillNotFound = errors.New("skill not found")

// Loader resolves a skill by name.
type Loader interface {
	Load(ctx context.Context, name string) (*models.Skill, error)
}

// Runner executes a loaded skill against resolved inputs and streams
// encoded event records. The channel closes after the terminal "done"
// record.
type Runner interface {
	Execute(ctx context.Context, sk *models.Skill, inputs map[string]string, userID string) (<-chan string, error)
}

// StaticLoader serves skills from an in-process map, for tests and
// single-binary setups without a database.
type StaticLoader struct {
	skills map[string]*models.Skill
}

func NewStaticLoader(skills ...*models.Skill) *StaticLoader {
	byName := make(map[string]*models.Skill, len(skills))
	for _, sk := range skills {
		byName[sk.Name] = sk
	}

	return &StaticLoader{skills: byName}
}

func (l *StaticLoader) Load(ctx context.Context, name string) (*models.Skill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sk, ok := l.skills[name]
	if !ok {
		return nil, ErrSkillNotFound
	}

	return sk, nil
}
