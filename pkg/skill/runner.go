package skill

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Joe-rq/agent-flow-lite/pkg/knowledge"
	"github.com/Joe-rq/agent-flow-lite/pkg/llm"
	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/sse"
	"github.com/Joe-rq/agent-flow-lite/pkg/template"
)

const defaultTemperature = 0.7

// Executor runs skills: prompt interpolation, optional retrieval from the
// skill's bound knowledge base, then a streamed completion. Every produced
// record is already SSE-encoded.
type Executor struct {
	logger *slog.Logger
	llm    llm.Streamer
	search knowledge.Searcher
}

func NewExecutor(logger *slog.Logger, streamer llm.Streamer, searcher knowledge.Searcher) *Executor {
	return &Executor{
		logger: logger.With("module", "skill"),
		llm:    streamer,
		search: searcher,
	}
}

// Execute implements Runner.
func (e *Executor) Execute(ctx context.Context, sk *models.Skill, inputs map[string]string, userID string) (<-chan string, error) {
	if sk == nil {
		return nil, fmt.Errorf("skill is nil")
	}

	out := make(chan string)

	go func() {
		defer close(out)
		e.run(ctx, sk, inputs, userID, out)
	}()

	return out, nil
}

func (e *Executor) run(ctx context.Context, sk *models.Skill, inputs map[string]string, userID string, out chan<- string) {
	prompt := resolvePrompt(sk.Prompt, inputs)
	userContent := primaryInput(sk, inputs)

	if sk.KnowledgeBase != "" && e.search != nil {
		query := userContent
		if query == "" {
			query = prompt
		}

		prompt = e.retrieve(ctx, sk.KnowledgeBase, query, prompt, out)
	}

	var messages []models.Message
	if userContent != "" {
		messages = []models.Message{
			{Role: "system", Content: prompt},
			{Role: "user", Content: userContent},
		}
	} else {
		// No declared inputs: the interpolated prompt is the whole request.
		messages = []models.Message{{Role: "user", Content: prompt}}
	}

	opts := llm.Options{Temperature: defaultTemperature, UserID: userID}
	if sk.Model != nil {
		opts.Model = sk.Model.Name
		if sk.Model.Temperature != nil {
			opts.Temperature = *sk.Model.Temperature
		}
	}

	stream, err := e.llm.ChatCompletionStream(ctx, messages, opts)
	if err != nil {
		e.emit(ctx, out, doneEvent("error", err.Error()))
		return
	}

	for fragment := range stream {
		if fragment.Err != nil {
			e.emit(ctx, out, doneEvent("error", fragment.Err.Error()))
			return
		}

		e.emit(ctx, out, models.Event{
			Type: models.EventToken,
			Data: map[string]any{"content": fragment.Content},
		})
	}

	e.emit(ctx, out, doneEvent("ok", ""))
}

// retrieve searches the bound base and folds the top hits into the system
// prompt. Retrieval trouble degrades to an uncontexted run rather than
// failing the skill.
func (e *Executor) retrieve(ctx context.Context, kbID, query, prompt string, out chan<- string) string {
	e.emit(ctx, out, models.Event{
		Type: models.EventThought,
		Data: map[string]any{"type_detail": "retrieval", "status": "start"},
	})

	chunks, err := e.search.Search(ctx, kbID, query, 5)
	if err != nil {
		e.logger.Warn("skill retrieval failed", "knowledge_base", kbID, "error", err)
		return prompt
	}

	e.emit(ctx, out, models.Event{
		Type: models.EventThought,
		Data: map[string]any{"type_detail": "retrieval", "status": "complete", "results_count": len(chunks)},
	})

	if len(chunks) == 0 {
		return prompt
	}

	sources := make([]map[string]any, 0, len(chunks))
	blocks := make([]string, 0, len(chunks))

	for i, chunk := range chunks {
		if i < 3 {
			blocks = append(blocks, fmt.Sprintf("[%d] %s", i+1, chunk.Text))
		}

		sources = append(sources, map[string]any{
			"id":     chunk.ID,
			"source": chunk.Source,
			"score":  chunk.Score,
		})
	}

	e.emit(ctx, out, models.Event{
		Type: models.EventCitation,
		Data: map[string]any{"sources": sources},
	})

	return prompt + "\n\nContext:\n" + strings.Join(blocks, "\n\n")
}

func (e *Executor) emit(ctx context.Context, out chan<- string, event models.Event) {
	record, err := sse.Encode(event)
	if err != nil {
		e.logger.Warn("failed to encode skill event", "type", event.Type, "error", err)
		return
	}

	select {
	case out <- string(record):
	case <-ctx.Done():
	}
}

func doneEvent(status, message string) models.Event {
	data := map[string]any{"status": status}
	if message != "" {
		data["message"] = message
	}

	return models.Event{Type: models.EventDone, Data: data}
}

// resolvePrompt interpolates "{{inputName}}" placeholders with the resolved
// input values.
func resolvePrompt(prompt string, inputs map[string]string) string {
	variables := make(map[string]any, len(inputs))
	for name, value := range inputs {
		variables[name] = value
	}

	ec := &models.ExecutionContext{
		Variables:   variables,
		StepOutputs: map[string]any{},
	}

	return template.Resolve(prompt, ec)
}

// primaryInput picks the user-turn content: the first required input's
// value, else the first declared input's value.
func primaryInput(sk *models.Skill, inputs map[string]string) string {
	if in, ok := sk.FirstInput(); ok {
		if value, set := inputs[in.Name]; set && value != "" {
			return value
		}

		if in.Default != "" {
			return in.Default
		}
	}

	return ""
}
