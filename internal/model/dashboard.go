package model

import "time"

// Dashboard é o resultado completo de uma atualização do portfolio
type Dashboard struct {
	RunID        string            `json:"run_id"`
	PortfolioGID string            `json:"portfolio_gid"`
	GeneratedAt  time.Time         `json:"generated_at"`
	Summary      Summary           `json:"summary"`
	Estimates    []ProjectEstimate `json:"estimates"`
	Activity     Activity          `json:"activity"`
	Utilization  Utilization       `json:"utilization"`
	Trend        []TrendPoint      `json:"trend"`
	Resources    Resources         `json:"resources"`

	// Tasks é o snapshot usado no cálculo; não é serializado
	Tasks []Task `json:"-"`
}

// Summary contém os totais do portfolio
type Summary struct {
	TotalProjects  int     `json:"total_projects"`
	TotalTasks     int     `json:"total_tasks"`
	CompletedTasks int     `json:"completed_tasks"`
	ActiveTasks    int     `json:"active_tasks"`
	OverdueTasks   int     `json:"overdue_tasks"`
	CompletionRate float64 `json:"completion_rate"`
	OnTrack        int     `json:"on_track"`
	AtRisk         int     `json:"at_risk"`
	Behind         int     `json:"behind"`
}

// Activity contém métricas de atividade recente
type Activity struct {
	Days                int     `json:"days"`
	CompletedTasks      int     `json:"completed_tasks"`
	CreatedTasks        int     `json:"created_tasks"`
	CompletedTasksTrend float64 `json:"completed_tasks_trend"`
	CreatedTasksTrend   float64 `json:"created_tasks_trend"`
}

// ResourceLoad representa a carga de tarefas ativas de um responsável
type ResourceLoad struct {
	Assignee    string `json:"assignee"`
	ActiveTasks int    `json:"active_tasks"`
}

// Utilization contém a utilização de recursos do portfolio
type Utilization struct {
	Percentage   float64        `json:"utilization_percentage"`
	TopResources []ResourceLoad `json:"top_utilized_resources"`
}

// TrendPoint é o tempo médio de conclusão de um mês
type TrendPoint struct {
	Month          time.Time `json:"month"`
	DaysToComplete float64   `json:"days_to_complete"`
	Projected      bool      `json:"projected,omitempty"`
}

// Resources agrupa as análises de alocação da equipe
type Resources struct {
	Team        TeamSummary         `json:"team"`
	Projects    []ProjectHealth     `json:"project_health"`
	Performance []MemberPerformance `json:"performance"`
}

// TeamSummary resume a distribuição de tarefas entre os responsáveis
type TeamSummary struct {
	TeamMembers       int           `json:"team_members"`
	TotalTasks        int           `json:"total_tasks"`
	CompletedTasks    int           `json:"completed_tasks"`
	CompletionRate    float64       `json:"completion_rate"`
	AvgTasksPerMember float64       `json:"avg_tasks_per_member"`
	Members           []MemberStats `json:"members"`
}

// MemberStats são as contagens de um responsável.
// CompletionDelta é a diferença para a taxa de conclusão da equipe.
type MemberStats struct {
	Assignee        string  `json:"assignee"`
	TotalTasks      int     `json:"total_tasks"`
	CompletedTasks  int     `json:"completed_tasks"`
	CompletionRate  float64 `json:"completion_rate"`
	CompletionDelta float64 `json:"completion_delta"`
	Projects        int     `json:"projects"`
}

// ProjectHealth combina taxa de conclusão e equilíbrio da alocação (0-100)
type ProjectHealth struct {
	Project            string  `json:"project"`
	TotalTasks         int     `json:"total_tasks"`
	CompletionRate     float64 `json:"completion_rate"`
	ResourceAllocation float64 `json:"resource_allocation"`
	HealthScore        float64 `json:"health_score"`
	TeamMembers        int     `json:"team_members"`
	TasksPerMember     float64 `json:"tasks_per_member"`
}

// MemberPerformance compara a velocidade recente de um responsável com o próprio histórico
type MemberPerformance struct {
	Assignee           string  `json:"assignee"`
	RecentVelocity     float64 `json:"recent_velocity"`
	HistoricalVelocity float64 `json:"historical_velocity"`
	Acceleration       float64 `json:"acceleration"`
}

// ProjectDetails combina a estimativa com informações do projeto
type ProjectDetails struct {
	ProjectEstimate
	GID          string `json:"gid"`
	Owner        string `json:"owner"`
	MembersCount int    `json:"members_count"`
	OverdueTasks int    `json:"overdue_tasks"`
}

// EstimateRun é o registro persistido de uma atualização
type EstimateRun struct {
	ID           string    `json:"id"`
	PortfolioGID string    `json:"portfolio_gid"`
	GeneratedAt  time.Time `json:"generated_at"`
	ProjectCount int       `json:"project_count"`
	TaskCount    int       `json:"task_count"`
}

// RunDetails é uma execução com as estimativas persistidas
type RunDetails struct {
	EstimateRun
	Estimates []ProjectEstimate `json:"estimates"`
}

// ProjectHistoryEntry é a estimativa de um projeto em uma execução passada
type ProjectHistoryEntry struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	ProjectEstimate
}
