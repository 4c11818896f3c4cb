package model

// Response representa a resposta padrão da API
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

// Meta contém metadados da resposta
type Meta struct {
	TotalProjects int    `json:"total_projects,omitempty"`
	TotalTasks    int    `json:"total_tasks,omitempty"`
	RunID         string `json:"run_id,omitempty"`
	GeneratedAt   string `json:"generated_at,omitempty"`
}

// ErrorResponse representa uma resposta de erro
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// RefreshEvent é enviado aos clientes WebSocket após cada atualização
type RefreshEvent struct {
	RunID         string `json:"run_id"`
	GeneratedAt   string `json:"generated_at"`
	TotalProjects int    `json:"total_projects"`
	OnTrack       int    `json:"on_track"`
	AtRisk        int    `json:"at_risk"`
	Behind        int    `json:"behind"`
}
