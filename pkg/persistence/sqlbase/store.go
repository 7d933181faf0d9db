package sqlbase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Joe-rq/agent-flow-lite/pkg/models"
	"github.com/Joe-rq/agent-flow-lite/pkg/persistence"
)

// Dialect carries the backend-specific pieces: placeholder rebinding and
// the migration set.
type Dialect struct {
	Name       string
	Rebind     func(string) string
	Migrations map[int]string
}

// Passthrough keeps "?" placeholders as-is (sqlite).
func Passthrough(query string) string { return query }

// BindDollar rewrites "?" placeholders to "$1".."$n" (postgresql).
func BindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query))

	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}

	return b.String()
}

// Store implements persistence.Persistence over database/sql. Queries are
// written with "?" placeholders and rebound per dialect.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	rebind func(string) string
}

// NewStore runs the dialect's migrations and returns the ready store.
func NewStore(ctx context.Context, logger *slog.Logger, db *sql.DB, dialect Dialect) (*Store, error) {
	manager := NewMigrationManager(logger, db, dialect.Rebind, dialect.Migrations)
	if err := manager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{
		db:     db,
		logger: logger,
		rebind: dialect.Rebind,
	}, nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (s *Store) Close(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

// --- workflows ---

const workflowColumns = "id, user_id, name, description, graph_data, template_name, created_at, updated_at"

func (s *Store) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	query := s.rebind("SELECT " + workflowColumns + " FROM workflows ORDER BY created_at DESC")

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &persistence.StoreError{Op: "list workflows", Err: err}
	}
	defer s.closeRows(ctx, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, &persistence.StoreError{Op: "scan workflow", Err: err}
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, &persistence.StoreError{Op: "list workflows", Err: err}
	}

	return workflows, nil
}

func (s *Store) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := s.rebind("SELECT " + workflowColumns + " FROM workflows WHERE id = ?")

	workflow, err := scanWorkflow(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.StoreError{Op: "get workflow", ID: id, Err: persistence.ErrWorkflowNotFound}
		}

		return nil, &persistence.StoreError{Op: "get workflow", ID: id, Err: err}
	}

	return workflow, nil
}

func (s *Store) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		workflow.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}
	workflow.UpdatedAt = now

	graph, err := json.Marshal(workflow.GraphData)
	if err != nil {
		return &persistence.StoreError{Op: "marshal workflow graph", ID: workflow.ID, Err: err}
	}

	query := s.rebind(`
		INSERT INTO workflows (` + workflowColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			user_id = excluded.user_id,
			name = excluded.name,
			description = excluded.description,
			graph_data = excluded.graph_data,
			template_name = excluded.template_name,
			updated_at = excluded.updated_at
	`)

	_, err = s.db.ExecContext(ctx, query,
		workflow.ID, nullable(workflow.UserID), workflow.Name, workflow.Description,
		graph, nullable(workflow.TemplateName), workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return &persistence.StoreError{Op: "save workflow", ID: workflow.ID, Err: err}
	}

	return nil
}

func (s *Store) DeleteWorkflow(ctx context.Context, id string) error {
	query := s.rebind("DELETE FROM workflows WHERE id = ?")

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return &persistence.StoreError{Op: "delete workflow", ID: id, Err: err}
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return &persistence.StoreError{Op: "delete workflow", ID: id, Err: persistence.ErrWorkflowNotFound}
	}

	return nil
}

func scanWorkflow(row interface{ Scan(...any) error }) (*models.Workflow, error) {
	var (
		workflow     models.Workflow
		userID       sql.NullString
		templateName sql.NullString
		graph        []byte
	)

	err := row.Scan(&workflow.ID, &userID, &workflow.Name, &workflow.Description,
		&graph, &templateName, &workflow.CreatedAt, &workflow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	workflow.UserID = userID.String
	workflow.TemplateName = templateName.String

	if len(graph) > 0 {
		if err := json.Unmarshal(graph, &workflow.GraphData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal graph data: %w", err)
		}
	}

	return &workflow, nil
}

// --- executions ---

const executionColumns = "id, workflow_id, user_id, status, initial_input, model, step_outputs, variables, executed_nodes, queue, created_at, updated_at"

func (s *Store) ExecutionByID(ctx context.Context, id string) (*models.Execution, error) {
	query := s.rebind("SELECT " + executionColumns + " FROM workflow_executions WHERE id = ?")

	execution, err := scanExecution(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.StoreError{Op: "get execution", ID: id, Err: persistence.ErrExecutionNotFound}
		}

		return nil, &persistence.StoreError{Op: "get execution", ID: id, Err: err}
	}

	return execution, nil
}

func (s *Store) SaveExecution(ctx context.Context, execution *models.Execution) error {
	now := time.Now().UTC()
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = now
	}
	execution.UpdatedAt = now

	stepOutputs, err := marshalJSON(execution.StepOutputs)
	if err != nil {
		return &persistence.StoreError{Op: "marshal execution", ID: execution.ID, Err: err}
	}

	variables, err := marshalJSON(execution.Variables)
	if err != nil {
		return &persistence.StoreError{Op: "marshal execution", ID: execution.ID, Err: err}
	}

	executedNodes, err := marshalJSON(execution.ExecutedNodes)
	if err != nil {
		return &persistence.StoreError{Op: "marshal execution", ID: execution.ID, Err: err}
	}

	queue, err := marshalJSON(execution.Queue)
	if err != nil {
		return &persistence.StoreError{Op: "marshal execution", ID: execution.ID, Err: err}
	}

	statement := s.rebind(`
		INSERT INTO workflow_executions (` + executionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			step_outputs = excluded.step_outputs,
			variables = excluded.variables,
			executed_nodes = excluded.executed_nodes,
			queue = excluded.queue,
			updated_at = excluded.updated_at
	`)

	_, err = s.db.ExecContext(ctx, statement,
		execution.ID, execution.WorkflowID, nullable(execution.UserID), string(execution.Status),
		execution.InitialInput, nullable(execution.Model), stepOutputs, variables,
		executedNodes, queue, execution.CreatedAt, execution.UpdatedAt)
	if err != nil {
		return &persistence.StoreError{Op: "save execution", ID: execution.ID, Err: err}
	}

	return nil
}

func scanExecution(row interface{ Scan(...any) error }) (*models.Execution, error) {
	var (
		execution     models.Execution
		userID        sql.NullString
		model         sql.NullString
		status        string
		stepOutputs   []byte
		variables     []byte
		executedNodes []byte
		queue         []byte
	)

	err := row.Scan(&execution.ID, &execution.WorkflowID, &userID, &status,
		&execution.InitialInput, &model, &stepOutputs, &variables,
		&executedNodes, &queue, &execution.CreatedAt, &execution.UpdatedAt)
	if err != nil {
		return nil, err
	}

	execution.UserID = userID.String
	execution.Model = model.String
	execution.Status = models.ExecutionStatus(status)

	for _, column := range []struct {
		raw  []byte
		into any
	}{
		{stepOutputs, &execution.StepOutputs},
		{variables, &execution.Variables},
		{executedNodes, &execution.ExecutedNodes},
		{queue, &execution.Queue},
	} {
		if len(column.raw) == 0 {
			continue
		}

		if err := json.Unmarshal(column.raw, column.into); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution column: %w", err)
		}
	}

	return &execution, nil
}

// --- skills ---

const skillColumns = "name, description, prompt, inputs, knowledge_base, model, created_at, updated_at"

func (s *Store) Skills(ctx context.Context) ([]*models.Skill, error) {
	query := s.rebind("SELECT " + skillColumns + " FROM skills ORDER BY name")

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &persistence.StoreError{Op: "list skills", Err: err}
	}
	defer s.closeRows(ctx, rows)

	skills := make([]*models.Skill, 0)

	for rows.Next() {
		sk, err := scanSkill(rows)
		if err != nil {
			return nil, &persistence.StoreError{Op: "scan skill", Err: err}
		}

		skills = append(skills, sk)
	}

	if err := rows.Err(); err != nil {
		return nil, &persistence.StoreError{Op: "list skills", Err: err}
	}

	return skills, nil
}

func (s *Store) SkillByName(ctx context.Context, name string) (*models.Skill, error) {
	query := s.rebind("SELECT " + skillColumns + " FROM skills WHERE name = ?")

	sk, err := scanSkill(s.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.StoreError{Op: "get skill", ID: name, Err: persistence.ErrSkillNotFound}
		}

		return nil, &persistence.StoreError{Op: "get skill", ID: name, Err: err}
	}

	return sk, nil
}

func (s *Store) SaveSkill(ctx context.Context, sk *models.Skill) error {
	now := time.Now().UTC()
	if sk.CreatedAt.IsZero() {
		sk.CreatedAt = now
	}
	sk.UpdatedAt = now

	inputs, err := marshalJSON(sk.Inputs)
	if err != nil {
		return &persistence.StoreError{Op: "marshal skill", ID: sk.Name, Err: err}
	}

	var model []byte
	if sk.Model != nil {
		model, err = json.Marshal(sk.Model)
		if err != nil {
			return &persistence.StoreError{Op: "marshal skill", ID: sk.Name, Err: err}
		}
	}

	query := s.rebind(`
		INSERT INTO skills (` + skillColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			description = excluded.description,
			prompt = excluded.prompt,
			inputs = excluded.inputs,
			knowledge_base = excluded.knowledge_base,
			model = excluded.model,
			updated_at = excluded.updated_at
	`)

	_, err = s.db.ExecContext(ctx, query,
		sk.Name, sk.Description, sk.Prompt, inputs,
		nullable(sk.KnowledgeBase), model, sk.CreatedAt, sk.UpdatedAt)
	if err != nil {
		return &persistence.StoreError{Op: "save skill", ID: sk.Name, Err: err}
	}

	return nil
}

func scanSkill(row interface{ Scan(...any) error }) (*models.Skill, error) {
	var (
		sk            models.Skill
		inputs        []byte
		knowledgeBase sql.NullString
		model         []byte
	)

	err := row.Scan(&sk.Name, &sk.Description, &sk.Prompt, &inputs,
		&knowledgeBase, &model, &sk.CreatedAt, &sk.UpdatedAt)
	if err != nil {
		return nil, err
	}

	sk.KnowledgeBase = knowledgeBase.String

	if len(inputs) > 0 {
		if err := json.Unmarshal(inputs, &sk.Inputs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal skill inputs: %w", err)
		}
	}

	if len(model) > 0 {
		sk.Model = &models.SkillModel{}
		if err := json.Unmarshal(model, sk.Model); err != nil {
			return nil, fmt.Errorf("failed to unmarshal skill model: %w", err)
		}
	}

	return &sk, nil
}

// --- feature flags ---

func (s *Store) FlagOverride(ctx context.Context, key string) (bool, bool, error) {
	query := s.rebind("SELECT value FROM feature_flags WHERE flag_key = ?")

	var value bool

	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, false, nil
		}

		return false, false, &persistence.StoreError{Op: "get flag", ID: key, Err: err}
	}

	return value, true, nil
}

func (s *Store) SetFlagOverride(ctx context.Context, key string, value bool) error {
	query := s.rebind(`
		INSERT INTO feature_flags (flag_key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (flag_key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`)

	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return &persistence.StoreError{Op: "set flag", ID: key, Err: err}
	}

	return nil
}

// --- helpers ---

func (s *Store) closeRows(ctx context.Context, rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		s.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

func marshalJSON(value any) ([]byte, error) {
	if value == nil {
		return nil, nil
	}

	return json.Marshal(value)
}

func nullable(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
