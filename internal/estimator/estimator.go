package estimator

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/logger"
	"github.com/cleberrangel/asana-portfolio-api/internal/model"
)

// Estimator calcula estimativas de conclusão por projeto.
// Não guarda estado entre chamadas; "agora" é sempre recebido do chamador.
type Estimator struct {
	params   Params
	estimate func(project string, tasks []model.Task, now time.Time) model.ProjectEstimate
}

// New cria um estimador com os parâmetros informados
func New(params Params) *Estimator {
	if params.Workers < 1 {
		params.Workers = 1
	}
	e := &Estimator{params: params}
	e.estimate = e.Estimate
	return e
}

// NewDefault cria um estimador com DefaultParams
func NewDefault() *Estimator {
	return New(DefaultParams())
}

// EstimateAll agrupa as tarefas e retorna uma estimativa por projeto, ordenada por nome.
// A ordem não depende do número de workers. Entrada vazia retorna slice vazio.
func (e *Estimator) EstimateAll(ctx context.Context, tasks []model.Task, now time.Time) []model.ProjectEstimate {
	groups := Aggregate(tasks)
	results := make([]model.ProjectEstimate, len(groups))
	now = now.UTC()

	if e.params.Workers <= 1 || len(groups) <= 1 {
		for i, g := range groups {
			results[i] = e.safeEstimate(ctx, g, now)
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup

		workers := e.params.Workers
		if workers > len(groups) {
			workers = len(groups)
		}
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					results[i] = e.safeEstimate(ctx, groups[i], now)
				}
			}()
		}
		for i := range groups {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Project < results[j].Project
	})

	logger.Get(ctx).Debug().
		Int("tasks", len(tasks)).
		Int("projects", len(results)).
		Time("now", now).
		Msg("Estimativas calculadas")

	return results
}

// safeEstimate isola falhas de um projeto para não bloquear os demais
func (e *Estimator) safeEstimate(ctx context.Context, g ProjectGroup, now time.Time) (est model.ProjectEstimate) {
	defer func() {
		if r := recover(); r != nil {
			logger.Get(ctx).Error().
				Str("project", g.Project).
				Interface("panic", r).
				Msg("Falha ao estimar projeto, usando estimativa degradada")
			est = degradedEstimate(g)
		}
	}()

	est = e.estimate(g.Project, g.Tasks, now)

	switch {
	case est.TotalTasks == 0:
		logger.Get(ctx).Debug().Str("project", g.Project).Err(model.ErrDegenerateInput).Msg("Projeto sem tarefas")
	case est.Velocity == nil:
		logger.Get(ctx).Debug().
			Str("project", g.Project).
			Int("total_tasks", est.TotalTasks).
			Err(model.ErrMissingData).
			Msg("Sem histórico de conclusão, usando taxa padrão por tamanho")
	}
	return est
}

// degradedEstimate mantém apenas as contagens do projeto
func degradedEstimate(g ProjectGroup) model.ProjectEstimate {
	est := model.ProjectEstimate{
		Project:    g.Project,
		TotalTasks: len(g.Tasks),
		Status:     model.StatusOnTrack,
		Degraded:   true,
	}
	for _, t := range g.Tasks {
		if t.IsCompleted() {
			est.CompletedTasks++
		}
	}
	est.RemainingTasks = est.TotalTasks - est.CompletedTasks
	est.CompletionPercentage = percentage(est.CompletedTasks, est.TotalTasks)
	return est
}

// Estimate calcula a estimativa de um único projeto
func (e *Estimator) Estimate(project string, tasks []model.Task, now time.Time) model.ProjectEstimate {
	p := e.params
	now = now.UTC()

	est := model.ProjectEstimate{
		Project:    project,
		TotalTasks: len(tasks),
	}

	// Janela histórica: menor created_at e maior completed_at entre as concluídas.
	// Tarefas sem a data correspondente ficam de fora do min/max.
	var earliestCreated, latestCompleted, dueDate *time.Time
	for i := range tasks {
		t := &tasks[i]
		if dueDate == nil && t.ProjectDueDate != nil {
			d := t.ProjectDueDate.UTC()
			dueDate = &d
		}
		if !t.IsCompleted() {
			continue
		}
		est.CompletedTasks++
		if t.CreatedAt != nil && (earliestCreated == nil || t.CreatedAt.Before(*earliestCreated)) {
			c := t.CreatedAt.UTC()
			earliestCreated = &c
		}
		if t.CompletedAt != nil && (latestCompleted == nil || t.CompletedAt.After(*latestCompleted)) {
			c := t.CompletedAt.UTC()
			latestCompleted = &c
		}
	}

	est.RemainingTasks = est.TotalTasks - est.CompletedTasks
	est.CompletionPercentage = percentage(est.CompletedTasks, est.TotalTasks)

	if est.CompletedTasks > 0 && earliestCreated != nil && latestCompleted != nil {
		raw := p.rawVelocity(est.CompletedTasks, *earliestCreated, *latestCompleted)
		adjusted := maxFloat(raw*p.stageFactor(est.CompletionPercentage), p.MinVelocity)

		days := float64(est.RemainingTasks) / adjusted
		days = p.clampDays(days, est.RemainingTasks, est.CompletionPercentage)

		est.RawVelocity = &raw
		est.Velocity = &adjusted
		if raw > 0 {
			avg := 1 / raw
			est.AvgTaskCompletionDays = &avg
		}
		est.DaysToCompletion = &days
		est.EstimatedCompletionDays = days
	} else {
		est.EstimatedCompletionDays = p.fallbackDays(est.TotalTasks)
	}

	completionDate := addDays(now, est.EstimatedCompletionDays)
	if est.RemainingTasks == 0 && est.CompletedTasks > 0 && latestCompleted != nil {
		// Projeto já finalizado: vale a data real, não a projeção
		completionDate = *latestCompleted
	}
	est.EstimatedCompletionDate = &completionDate
	est.ProjectDueDate = dueDate

	if dueDate != nil {
		diff := DaysBetween(completionDate, *dueDate)
		est.DaysDifference = &diff
	}
	est.Status = p.Classify(est.DaysDifference)

	return est
}

// rawVelocity retorna tarefas concluídas por dia na janela [earliest, latest]
func (p Params) rawVelocity(completed int, earliest, latest time.Time) float64 {
	durationDays := latest.Sub(earliest).Hours() / 24
	if durationDays > 0 {
		return float64(completed) / durationDays
	}
	return p.FallbackVelocity
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
