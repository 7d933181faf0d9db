package models

import "time"

// SkillInput declares one named input of a skill.
type SkillInput struct {
	Name        string `json:"name"     validate:"required"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
	Default     string `json:"default,omitempty"`
}

// SkillModel is a skill's optional model binding.
type SkillModel struct {
	Name        string   `json:"name,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Skill is a named prompt template with declared inputs and optional
// model/knowledge-base bindings, invokable from a workflow via a skill node.
type Skill struct {
	Name          string       `json:"name" validate:"required,min=1"`
	Description   string       `json:"description,omitempty"`
	Prompt        string       `json:"prompt" validate:"required"`
	Inputs        []SkillInput `json:"inputs,omitempty"`
	KnowledgeBase string       `json:"knowledge_base,omitempty"`
	Model         *SkillModel  `json:"model,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// FirstInput picks the input a caller should populate when no explicit
// mapping is given: the first required input, else the first declared one.
func (s *Skill) FirstInput() (SkillInput, bool) {
	if len(s.Inputs) == 0 {
		return SkillInput{}, false
	}

	for _, in := range s.Inputs {
		if in.Required {
			return in, true
		}
	}

	return s.Inputs[0], true
}
