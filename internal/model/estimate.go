package model

import (
	"time"
)

// ProjectStatus é a classificação de saúde de um projeto
type ProjectStatus string

const (
	StatusOnTrack ProjectStatus = "On Track"
	StatusAtRisk  ProjectStatus = "At Risk"
	StatusBehind  ProjectStatus = "Behind"
)

// DateLayout é o formato usado para apresentar datas (YYYY-MM-DD)
const DateLayout = "2006-01-02"

// NotAvailable é o texto exibido para campos nulos
const NotAvailable = "N/A"

// ProjectEstimate contém a estimativa de conclusão de um projeto
type ProjectEstimate struct {
	Project              string  `json:"project"`
	TotalTasks           int     `json:"total_tasks"`
	CompletedTasks       int     `json:"completed_tasks"`
	RemainingTasks       int     `json:"remaining_tasks"`
	CompletionPercentage float64 `json:"completion_percentage"`

	// Velocity é a velocidade ajustada (tarefas/dia); nil quando não há histórico
	Velocity              *float64 `json:"velocity"`
	RawVelocity           *float64 `json:"raw_velocity"`
	AvgTaskCompletionDays *float64 `json:"avg_task_completion_days"`
	DaysToCompletion      *float64 `json:"days_to_completion"`

	EstimatedCompletionDays float64       `json:"estimated_completion_days"`
	EstimatedCompletionDate *time.Time    `json:"estimated_completion_date"`
	ProjectDueDate          *time.Time    `json:"project_due_date"`
	DaysDifference          *int          `json:"days_difference"`
	Status                  ProjectStatus `json:"status"`

	// Degraded indica que a estimativa foi reduzida a contagens após falha interna
	Degraded bool `json:"degraded,omitempty"`
}

// FormatDate formata uma data opcional como YYYY-MM-DD ou N/A
func FormatDate(t *time.Time) string {
	if t == nil {
		return NotAvailable
	}
	return t.UTC().Format(DateLayout)
}
