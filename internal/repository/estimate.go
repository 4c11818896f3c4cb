package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/logger"
	"github.com/cleberrangel/asana-portfolio-api/internal/model"
)

// DefaultHistoryLimit limita o número de linhas retornadas pelo histórico
const DefaultHistoryLimit = 50

// EstimateRepository persiste o histórico de estimativas
type EstimateRepository struct {
	db *sql.DB
}

// NewEstimateRepository cria um novo repositório de estimativas
func NewEstimateRepository(db *sql.DB) *EstimateRepository {
	return &EstimateRepository{db: db}
}

// SaveRun grava a execução e suas estimativas em uma única transação
func (r *EstimateRepository) SaveRun(ctx context.Context, run model.EstimateRun, estimates []model.ProjectEstimate) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("erro ao iniciar transação: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO estimate_runs (id, portfolio_gid, generated_at, project_count, task_count)
		VALUES ($1, $2, $3, $4, $5)
	`, run.ID, run.PortfolioGID, run.GeneratedAt, run.ProjectCount, run.TaskCount)
	if err != nil {
		return fmt.Errorf("erro ao inserir execução: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO project_estimates (
			run_id, project, total_tasks, completed_tasks, remaining_tasks, completion_percentage,
			velocity, raw_velocity, avg_task_completion_days, days_to_completion,
			estimated_completion_days, estimated_completion_date, project_due_date,
			days_difference, status, degraded
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (run_id, project) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("erro ao preparar inserção de estimativas: %w", err)
	}
	defer stmt.Close()

	for _, e := range estimates {
		_, err := stmt.ExecContext(ctx,
			run.ID, e.Project, e.TotalTasks, e.CompletedTasks, e.RemainingTasks, e.CompletionPercentage,
			nullFloat(e.Velocity), nullFloat(e.RawVelocity), nullFloat(e.AvgTaskCompletionDays), nullFloat(e.DaysToCompletion),
			e.EstimatedCompletionDays, nullTime(e.EstimatedCompletionDate), nullTime(e.ProjectDueDate),
			nullInt(e.DaysDifference), string(e.Status), e.Degraded,
		)
		if err != nil {
			return fmt.Errorf("erro ao inserir estimativa do projeto %s: %w", e.Project, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("erro ao confirmar transação: %w", err)
	}

	logger.Get(ctx).Info().
		Str("run_id", run.ID).
		Int("projects", len(estimates)).
		Msg("Execução de estimativas persistida")
	return nil
}

// ListRuns retorna as execuções mais recentes primeiro
func (r *EstimateRepository) ListRuns(ctx context.Context, limit int) ([]model.EstimateRun, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, portfolio_gid, generated_at, project_count, task_count
		FROM estimate_runs
		ORDER BY generated_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("erro ao listar execuções: %w", err)
	}
	defer rows.Close()

	runs := []model.EstimateRun{}
	for rows.Next() {
		var run model.EstimateRun
		if err := rows.Scan(&run.ID, &run.PortfolioGID, &run.GeneratedAt, &run.ProjectCount, &run.TaskCount); err != nil {
			return nil, fmt.Errorf("erro ao ler execução: %w", err)
		}
		run.GeneratedAt = run.GeneratedAt.UTC()
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun retorna uma execução e suas estimativas ordenadas por projeto
func (r *EstimateRepository) GetRun(ctx context.Context, id string) (*model.RunDetails, error) {
	var details model.RunDetails
	err := r.db.QueryRowContext(ctx, `
		SELECT id, portfolio_gid, generated_at, project_count, task_count
		FROM estimate_runs
		WHERE id = $1
	`, id).Scan(&details.ID, &details.PortfolioGID, &details.GeneratedAt, &details.ProjectCount, &details.TaskCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrRunNotFound
		}
		return nil, fmt.Errorf("erro ao buscar execução: %w", err)
	}
	details.GeneratedAt = details.GeneratedAt.UTC()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+estimateColumns+`
		FROM project_estimates pe
		WHERE pe.run_id = $1
		ORDER BY pe.project
	`, id)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar estimativas da execução: %w", err)
	}
	defer rows.Close()

	details.Estimates = []model.ProjectEstimate{}
	for rows.Next() {
		e, err := scanEstimate(rows)
		if err != nil {
			return nil, err
		}
		details.Estimates = append(details.Estimates, e)
	}
	return &details, rows.Err()
}

// ProjectHistory retorna as estimativas de um projeto nas execuções mais recentes
func (r *EstimateRepository) ProjectHistory(ctx context.Context, project string, limit int) ([]model.ProjectHistoryEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT er.id, er.generated_at, `+estimateColumns+`
		FROM project_estimates pe
		JOIN estimate_runs er ON er.id = pe.run_id
		WHERE pe.project = $1
		ORDER BY er.generated_at DESC
		LIMIT $2
	`, project, limit)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar histórico do projeto: %w", err)
	}
	defer rows.Close()

	history := []model.ProjectHistoryEntry{}
	for rows.Next() {
		var entry model.ProjectHistoryEntry
		e, err := scanEstimate(rows, &entry.RunID, &entry.GeneratedAt)
		if err != nil {
			return nil, err
		}
		entry.GeneratedAt = entry.GeneratedAt.UTC()
		entry.ProjectEstimate = e
		history = append(history, entry)
	}
	return history, rows.Err()
}

const estimateColumns = `pe.project, pe.total_tasks, pe.completed_tasks, pe.remaining_tasks, pe.completion_percentage,
	pe.velocity, pe.raw_velocity, pe.avg_task_completion_days, pe.days_to_completion,
	pe.estimated_completion_days, pe.estimated_completion_date, pe.project_due_date,
	pe.days_difference, pe.status, pe.degraded`

// scanEstimate lê uma linha de project_estimates; prefix recebe colunas anteriores
func scanEstimate(rows *sql.Rows, prefix ...interface{}) (model.ProjectEstimate, error) {
	var (
		e                            model.ProjectEstimate
		velocity, raw, avg, daysLeft sql.NullFloat64
		date, due                    sql.NullTime
		diff                         sql.NullInt64
		status                       string
	)

	dest := append(prefix,
		&e.Project, &e.TotalTasks, &e.CompletedTasks, &e.RemainingTasks, &e.CompletionPercentage,
		&velocity, &raw, &avg, &daysLeft,
		&e.EstimatedCompletionDays, &date, &due,
		&diff, &status, &e.Degraded,
	)
	if err := rows.Scan(dest...); err != nil {
		return e, fmt.Errorf("erro ao ler estimativa: %w", err)
	}

	e.Velocity = floatPtr(velocity)
	e.RawVelocity = floatPtr(raw)
	e.AvgTaskCompletionDays = floatPtr(avg)
	e.DaysToCompletion = floatPtr(daysLeft)
	e.EstimatedCompletionDate = timePtr(date)
	e.ProjectDueDate = timePtr(due)
	if diff.Valid {
		d := int(diff.Int64)
		e.DaysDifference = &d
	}
	e.Status = model.ProjectStatus(status)
	return e, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}
