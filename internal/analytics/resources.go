package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/model"
)

const (
	// MaxAllocationStdDev é o desvio padrão de tarefas por responsável que zera a nota de alocação
	MaxAllocationStdDev = 10.0

	// MinPerformanceTasks é o mínimo de tarefas concluídas para medir a aceleração
	MinPerformanceTasks = 5

	// MaxAcceleration limita a aceleração em +/- 100%
	MaxAcceleration = 100.0
)

// Resources calcula todas as análises de alocação da equipe
func Resources(tasks []model.Task) model.Resources {
	return model.Resources{
		Team:        TeamMembers(tasks),
		Projects:    ProjectHealth(tasks),
		Performance: PerformanceTrends(tasks),
	}
}

func assigneeOf(t model.Task) string {
	if t.Assignee == "" {
		return model.DefaultAssignee
	}
	return t.Assignee
}

func rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// TeamMembers resume tarefas, conclusão e projetos por responsável.
// Os membros saem ordenados por total de tarefas, depois por nome.
func TeamMembers(tasks []model.Task) model.TeamSummary {
	type acc struct {
		total, completed int
		projects         map[string]struct{}
	}
	members := make(map[string]*acc)
	summary := model.TeamSummary{TotalTasks: len(tasks), Members: []model.MemberStats{}}

	for _, t := range tasks {
		name := assigneeOf(t)
		m, ok := members[name]
		if !ok {
			m = &acc{projects: make(map[string]struct{})}
			members[name] = m
		}
		m.total++
		m.projects[t.Project] = struct{}{}
		if t.IsCompleted() {
			m.completed++
			summary.CompletedTasks++
		}
	}

	summary.TeamMembers = len(members)
	summary.CompletionRate = rate(summary.CompletedTasks, summary.TotalTasks)
	if len(members) > 0 {
		summary.AvgTasksPerMember = float64(summary.TotalTasks) / float64(len(members))
	}

	for name, m := range members {
		memberRate := rate(m.completed, m.total)
		summary.Members = append(summary.Members, model.MemberStats{
			Assignee:        name,
			TotalTasks:      m.total,
			CompletedTasks:  m.completed,
			CompletionRate:  memberRate,
			CompletionDelta: memberRate - summary.CompletionRate,
			Projects:        len(m.projects),
		})
	}
	sort.Slice(summary.Members, func(i, j int) bool {
		a, b := summary.Members[i], summary.Members[j]
		if a.TotalTasks != b.TotalTasks {
			return a.TotalTasks > b.TotalTasks
		}
		return a.Assignee < b.Assignee
	})
	return summary
}

// ProjectHealth calcula a saúde de cada projeto: média entre a taxa de conclusão
// e a nota de alocação, que cai com o desvio padrão de tarefas por responsável
func ProjectHealth(tasks []model.Task) []model.ProjectHealth {
	counts := make(map[string]map[string]int)
	completed := make(map[string]int)
	var order []string

	for _, t := range tasks {
		perAssignee, ok := counts[t.Project]
		if !ok {
			perAssignee = make(map[string]int)
			counts[t.Project] = perAssignee
			order = append(order, t.Project)
		}
		perAssignee[assigneeOf(t)]++
		if t.IsCompleted() {
			completed[t.Project]++
		}
	}
	sort.Strings(order)

	health := make([]model.ProjectHealth, 0, len(order))
	for _, project := range order {
		perAssignee := counts[project]
		total := 0
		sizes := make([]float64, 0, len(perAssignee))
		for _, n := range perAssignee {
			total += n
			sizes = append(sizes, float64(n))
		}

		completionRate := rate(completed[project], total)
		allocation := math.Max(0, 100-sampleStdDev(sizes)/MaxAllocationStdDev*100)

		health = append(health, model.ProjectHealth{
			Project:            project,
			TotalTasks:         total,
			CompletionRate:     completionRate,
			ResourceAllocation: allocation,
			HealthScore:        (completionRate + allocation) / 2,
			TeamMembers:        len(perAssignee),
			TasksPerMember:     float64(total) / float64(len(perAssignee)),
		})
	}
	return health
}

// sampleStdDev é o desvio padrão amostral; com menos de dois valores retorna 0
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)-1))
}

// PerformanceTrends compara, para cada responsável com ao menos MinPerformanceTasks
// tarefas concluídas, a velocidade semanal recente com a histórica.
// O corte é o ponto médio entre a primeira e a última conclusão.
func PerformanceTrends(tasks []model.Task) []model.MemberPerformance {
	completions := make(map[string][]time.Time)
	for _, t := range tasks {
		if !t.IsCompleted() || t.CompletedAt == nil {
			continue
		}
		name := assigneeOf(t)
		completions[name] = append(completions[name], *t.CompletedAt)
	}

	result := []model.MemberPerformance{}
	for name, times := range completions {
		if len(times) < MinPerformanceTasks {
			continue
		}
		recent, historical := SplitVelocity(times)
		result = append(result, model.MemberPerformance{
			Assignee:           name,
			RecentVelocity:     recent,
			HistoricalVelocity: historical,
			Acceleration:       Acceleration(recent, historical),
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Assignee < result[j].Assignee })
	return result
}

// SplitVelocity divide as conclusões no ponto médio do intervalo e retorna
// as velocidades semanais (recente, histórica)
func SplitVelocity(times []time.Time) (float64, float64) {
	if len(times) == 0 {
		return 0, 0
	}
	sorted := append([]time.Time(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	first, last := sorted[0], sorted[len(sorted)-1]
	midpoint := first.Add(last.Sub(first) / 2)

	cut := sort.Search(len(sorted), func(i int) bool { return !sorted[i].Before(midpoint) })
	return WeeklyVelocity(sorted[cut:]), WeeklyVelocity(sorted[:cut])
}

// WeeklyVelocity é o número de conclusões por semana no intervalo coberto,
// considerando no mínimo uma semana
func WeeklyVelocity(times []time.Time) float64 {
	if len(times) == 0 {
		return 0
	}
	first, last := times[0], times[0]
	for _, t := range times[1:] {
		if t.Before(first) {
			first = t
		}
		if t.After(last) {
			last = t
		}
	}
	weeks := math.Max(last.Sub(first).Hours()/24/7, 1)
	return float64(len(times)) / weeks
}

// Acceleration é a variação percentual da velocidade recente sobre a histórica,
// limitada a +/- MaxAcceleration. Sem histórico, 100 se houve conclusões recentes.
func Acceleration(recent, historical float64) float64 {
	var acc float64
	switch {
	case historical > 0:
		acc = (recent - historical) / historical * 100
	case recent > 0:
		acc = MaxAcceleration
	}
	return math.Max(math.Min(acc, MaxAcceleration), -MaxAcceleration)
}
