package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflows (
				id VARCHAR(255) PRIMARY KEY,
				user_id VARCHAR(255),
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				graph_data JSONB NOT NULL,
				template_name VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflows_user_id ON workflows(user_id);
			CREATE INDEX idx_workflows_created_at ON workflows(created_at);

			CREATE TABLE workflow_executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				user_id VARCHAR(255),
				status VARCHAR(50) NOT NULL CHECK (status IN ('running', 'completed', 'failed')),
				initial_input TEXT NOT NULL DEFAULT '',
				model VARCHAR(255),
				step_outputs JSONB,
				variables JSONB,
				executed_nodes JSONB,
				queue JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_executions_workflow_id ON workflow_executions(workflow_id);
			CREATE INDEX idx_workflow_executions_status ON workflow_executions(status);

			CREATE TABLE skills (
				name VARCHAR(255) PRIMARY KEY,
				description TEXT NOT NULL DEFAULT '',
				prompt TEXT NOT NULL,
				inputs JSONB,
				knowledge_base VARCHAR(255),
				model JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE TABLE feature_flags (
				flag_key VARCHAR(255) PRIMARY KEY,
				value BOOLEAN NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);
		`,
	}
}
