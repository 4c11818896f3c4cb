package migration

// getAllMigrations retorna todas as migrações disponíveis
func getAllMigrations() []Migration {
	return []Migration{
		{
			Version: 1,
			Name:    "create_estimate_runs",
			Up: `
				-- Cada atualização do portfolio gera uma execução
				CREATE TABLE estimate_runs (
					id UUID PRIMARY KEY,
					portfolio_gid VARCHAR(50) NOT NULL,
					generated_at TIMESTAMPTZ NOT NULL,
					project_count INTEGER NOT NULL DEFAULT 0,
					task_count INTEGER NOT NULL DEFAULT 0,
					created_at TIMESTAMPTZ DEFAULT NOW()
				);

				CREATE INDEX idx_estimate_runs_generated_at ON estimate_runs(generated_at DESC);
			`,
			Down: `
				DROP TABLE IF EXISTS estimate_runs;
			`,
		},
		{
			Version: 2,
			Name:    "create_project_estimates",
			Up: `
				CREATE TABLE project_estimates (
					run_id UUID NOT NULL REFERENCES estimate_runs(id) ON DELETE CASCADE,
					project VARCHAR(255) NOT NULL,
					total_tasks INTEGER NOT NULL,
					completed_tasks INTEGER NOT NULL,
					remaining_tasks INTEGER NOT NULL,
					completion_percentage DOUBLE PRECISION NOT NULL,
					velocity DOUBLE PRECISION,
					raw_velocity DOUBLE PRECISION,
					avg_task_completion_days DOUBLE PRECISION,
					days_to_completion DOUBLE PRECISION,
					estimated_completion_days DOUBLE PRECISION NOT NULL,
					estimated_completion_date TIMESTAMPTZ,
					project_due_date TIMESTAMPTZ,
					days_difference INTEGER,
					status VARCHAR(20) NOT NULL,
					degraded BOOLEAN NOT NULL DEFAULT FALSE,
					PRIMARY KEY (run_id, project)
				);

				CREATE INDEX idx_project_estimates_project ON project_estimates(project);
			`,
			Down: `
				DROP TABLE IF EXISTS project_estimates;
			`,
		},
	}
}
