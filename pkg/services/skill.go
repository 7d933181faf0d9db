package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/persistence"
)

// ErrSkillNotFound is returned when a skill is not found.
var ErrSkillNotFound = persistence.ErrSkillNotFound

// Skill stores reusable prompt definitions addressed by name.
type Skill struct {
	persistence persistence.Persistence
}

func NewSkill(p persistence.Persistence) *Skill {
	return &Skill{persistence: p}
}

func (s *Skill) List(ctx context.Context) ([]*models.Skill, error) {
	skills, err := s.persistence.Skills(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}

	return skills, nil
}

func (s *Skill) Get(ctx context.Context, name string) (*models.Skill, error) {
	return s.persistence.SkillByName(ctx, name)
}

func (s *Skill) Save(ctx context.Context, sk *models.Skill) (*models.Skill, error) {
	if sk.Name == "" {
		return nil, ErrSkillNameRequired
	}

	if sk.Prompt == "" {
		return nil, ErrSkillPromptRequired
	}

	now := time.Now().UTC()
	if sk.CreatedAt.IsZero() {
		sk.CreatedAt = now
	}
	sk.UpdatedAt = now

	if err := s.persistence.SaveSkill(ctx, sk); err != nil {
		return nil, fmt.Errorf("failed to save skill %s: %w", sk.Name, err)
	}

	return sk, nil
}
