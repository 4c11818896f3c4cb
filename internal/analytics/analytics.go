// Package analytics calcula as métricas de portfolio exibidas junto às estimativas.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/model"
)

const (
	// TasksPerResource é a capacidade assumida por responsável
	TasksPerResource = 10

	// TopResources é o número de responsáveis listados na utilização
	TopResources = 5

	// DefaultActivityDays é a janela padrão de atividade recente
	DefaultActivityDays = 7

	// DefaultTrendMonths é o número padrão de meses na tendência
	DefaultTrendMonths = 4
)

// OverdueTasks conta, por projeto, as tarefas abertas com prazo anterior a now
func OverdueTasks(tasks []model.Task, now time.Time) map[string]int {
	overdue := make(map[string]int)
	for _, t := range tasks {
		if t.IsCompleted() || t.DueDate == nil {
			continue
		}
		if t.DueDate.Before(now) {
			overdue[t.Project]++
		}
	}
	return overdue
}

// ResourceUtilization calcula a utilização a partir das tarefas ativas por responsável
func ResourceUtilization(tasks []model.Task) model.Utilization {
	resources := make(map[string]struct{})
	active := make(map[string]int)
	activeTotal := 0

	for _, t := range tasks {
		assignee := t.Assignee
		if assignee == "" {
			assignee = model.DefaultAssignee
		}
		resources[assignee] = struct{}{}
		if !t.IsCompleted() {
			active[assignee]++
			activeTotal++
		}
	}

	result := model.Utilization{TopResources: []model.ResourceLoad{}}
	if len(resources) == 0 {
		return result
	}

	pct := float64(activeTotal) / float64(len(resources)*TasksPerResource) * 100
	result.Percentage = math.Min(pct, 100)

	for name, count := range active {
		result.TopResources = append(result.TopResources, model.ResourceLoad{Assignee: name, ActiveTasks: count})
	}
	sort.Slice(result.TopResources, func(i, j int) bool {
		a, b := result.TopResources[i], result.TopResources[j]
		if a.ActiveTasks != b.ActiveTasks {
			return a.ActiveTasks > b.ActiveTasks
		}
		return a.Assignee < b.Assignee
	})
	if len(result.TopResources) > TopResources {
		result.TopResources = result.TopResources[:TopResources]
	}
	return result
}

// RecentActivity conta tarefas concluídas e criadas nos últimos days dias e compara
// com a janela anterior de mesmo tamanho
func RecentActivity(tasks []model.Task, now time.Time, days int) model.Activity {
	if days <= 0 {
		days = DefaultActivityDays
	}
	recentStart := now.AddDate(0, 0, -days)
	previousStart := recentStart.AddDate(0, 0, -days)

	var recentCompleted, recentCreated, previousCompleted, previousCreated int
	for _, t := range tasks {
		if t.IsCompleted() && t.CompletedAt != nil {
			switch {
			case !t.CompletedAt.Before(recentStart):
				recentCompleted++
			case !t.CompletedAt.Before(previousStart):
				previousCompleted++
			}
		}
		if t.CreatedAt != nil {
			switch {
			case !t.CreatedAt.Before(recentStart):
				recentCreated++
			case !t.CreatedAt.Before(previousStart):
				previousCreated++
			}
		}
	}

	return model.Activity{
		Days:                days,
		CompletedTasks:      recentCompleted,
		CreatedTasks:        recentCreated,
		CompletedTasksTrend: PercentageChange(recentCompleted, previousCompleted),
		CreatedTasksTrend:   PercentageChange(recentCreated, previousCreated),
	}
}

// PercentageChange retorna a variação percentual arredondada para uma casa decimal.
// Sem valor anterior, retorna 100 se houve atividade e 0 caso contrário.
func PercentageChange(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	change := float64(current-previous) / float64(previous) * 100
	return math.Round(change*10) / 10
}

// CompletionTimeTrend calcula o tempo médio de conclusão (em dias) para os últimos
// months meses de calendário, incluindo o atual, mais uma projeção para o mês seguinte
func CompletionTimeTrend(tasks []model.Task, now time.Time, months int) []model.TrendPoint {
	if months <= 0 {
		months = DefaultTrendMonths
	}
	now = now.UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	points := make([]model.TrendPoint, 0, months+1)
	for i := months - 1; i >= 0; i-- {
		start := current.AddDate(0, -i, 0)
		end := start.AddDate(0, 1, 0)

		var sum float64
		var count int
		for _, t := range tasks {
			if !t.IsCompleted() || t.CompletedAt == nil || t.CreatedAt == nil {
				continue
			}
			if t.CompletedAt.Before(start) || !t.CompletedAt.Before(end) {
				continue
			}
			sum += t.CompletedAt.Sub(*t.CreatedAt).Hours() / 24
			count++
		}

		avg := 0.0
		if count > 0 {
			avg = sum / float64(count)
		}
		points = append(points, model.TrendPoint{Month: start, DaysToComplete: avg})
	}

	last := points[len(points)-1]
	points = append(points, model.TrendPoint{
		Month:          current.AddDate(0, 1, 0),
		DaysToComplete: last.DaysToComplete,
		Projected:      true,
	})
	return points
}

// Summary consolida os totais do portfolio e a contagem de projetos por status
func Summary(tasks []model.Task, estimates []model.ProjectEstimate, now time.Time) model.Summary {
	s := model.Summary{
		TotalProjects: len(estimates),
		TotalTasks:    len(tasks),
	}

	for _, t := range tasks {
		if t.IsCompleted() {
			s.CompletedTasks++
		}
	}
	s.ActiveTasks = s.TotalTasks - s.CompletedTasks
	if s.TotalTasks > 0 {
		s.CompletionRate = float64(s.CompletedTasks) / float64(s.TotalTasks) * 100
	}

	for _, n := range OverdueTasks(tasks, now) {
		s.OverdueTasks += n
	}

	for _, e := range estimates {
		switch e.Status {
		case model.StatusBehind:
			s.Behind++
		case model.StatusAtRisk:
			s.AtRisk++
		default:
			s.OnTrack++
		}
	}
	return s
}
