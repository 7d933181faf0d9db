package sqlite

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id TEXT PRIMARY KEY,
				user_id TEXT,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				graph_data TEXT NOT NULL,
				template_name TEXT,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			);

			CREATE INDEX idx_workflows_user_id ON workflows(user_id);

			CREATE TABLE workflow_executions (
				id TEXT PRIMARY KEY,
				workflow_id TEXT NOT NULL,
				user_id TEXT,
				status TEXT NOT NULL CHECK (status IN ('running', 'completed', 'failed')),
				initial_input TEXT NOT NULL DEFAULT '',
				model TEXT,
				step_outputs TEXT,
				variables TEXT,
				executed_nodes TEXT,
				queue TEXT,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			);

			CREATE INDEX idx_workflow_executions_workflow_id ON workflow_executions(workflow_id);

			CREATE TABLE skills (
				name TEXT PRIMARY KEY,
				description TEXT NOT NULL DEFAULT '',
				prompt TEXT NOT NULL,
				inputs TEXT,
				knowledge_base TEXT,
				model TEXT,
				created_at TIMESTAMP NOT NULL,
				updated_at TIMESTAMP NOT NULL
			);

			CREATE TABLE feature_flags (
				flag_key TEXT PRIMARY KEY,
				value BOOLEAN NOT NULL,
				updated_at TIMESTAMP NOT NULL
			);
		`,
	}
}
