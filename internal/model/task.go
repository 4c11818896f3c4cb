package model

import "time"

// TaskStatus representa o estado de uma tarefa no dashboard
type TaskStatus string

const (
	// StatusCompleted é o único valor tratado como concluído
	StatusCompleted TaskStatus = "Completed"
	// StatusInProgress agrupa qualquer tarefa não concluída
	StatusInProgress TaskStatus = "In Progress"
)

const (
	// DefaultAssignee é usado quando a tarefa não tem responsável
	DefaultAssignee = "Unassigned"
	// DefaultSection é usado quando a tarefa não pertence a nenhuma seção
	DefaultSection = "No section"
)

// Task é o registro normalizado de uma tarefa consumido pelo estimador.
// Datas ausentes são nil; todas as datas presentes estão em UTC.
type Task struct {
	ID             string            `json:"id,omitempty"`
	Name           string            `json:"name,omitempty"`
	Project        string            `json:"project"`
	ProjectGID     string            `json:"project_gid,omitempty"`
	Status         TaskStatus        `json:"status"`
	CreatedAt      *time.Time        `json:"created_at"`
	CompletedAt    *time.Time        `json:"completed_at"`
	DueDate        *time.Time        `json:"due_date"`
	ProjectDueDate *time.Time        `json:"project_due_date"`
	Assignee       string            `json:"assignee,omitempty"`
	Section        string            `json:"section,omitempty"`
	Tags           []string          `json:"tags,omitempty"`
	NumSubtasks    int               `json:"num_subtasks,omitempty"`
	CustomFields   map[string]string `json:"custom_fields,omitempty"`
}

// IsCompleted indica se a tarefa conta como concluída
func (t Task) IsCompleted() bool {
	return t.Status == StatusCompleted
}
