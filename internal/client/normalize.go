package client

import (
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/model"
)

// NormalizeTasks converte as tarefas do Asana para o formato usado pelo estimador.
// Datas inválidas viram nil em vez de falhar a coleta.
func NormalizeTasks(raw []model.AsanaTask, item model.PortfolioItem) []model.Task {
	projectDue := parseDate(item.DueOn)
	if projectDue == nil {
		projectDue = parseDate(item.DueDate)
	}

	tasks := make([]model.Task, 0, len(raw))
	for _, t := range raw {
		task := model.Task{
			ID:             t.GID,
			Name:           t.Name,
			Project:        item.Name,
			ProjectGID:     item.GID,
			Status:         model.StatusInProgress,
			CreatedAt:      parseTimestamp(t.CreatedAt),
			CompletedAt:    parseTimestamp(t.CompletedAt),
			DueDate:        parseDate(t.DueOn),
			ProjectDueDate: projectDue,
			Assignee:       model.DefaultAssignee,
			Section:        model.DefaultSection,
			NumSubtasks:    t.NumSubtasks,
		}
		if t.Completed {
			task.Status = model.StatusCompleted
		}
		if t.Assignee != nil && t.Assignee.Name != "" {
			task.Assignee = t.Assignee.Name
		}
		if len(t.Memberships) > 0 && t.Memberships[0].Section != nil && t.Memberships[0].Section.Name != "" {
			task.Section = t.Memberships[0].Section.Name
		}
		for _, tag := range t.Tags {
			task.Tags = append(task.Tags, tag.Name)
		}
		for _, f := range t.CustomFields {
			if f.Name == "" {
				continue
			}
			if task.CustomFields == nil {
				task.CustomFields = make(map[string]string)
			}
			task.CustomFields[f.Name] = f.DisplayValue
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// parseTimestamp interpreta timestamps RFC3339 do Asana em UTC
func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

// parseDate interpreta datas YYYY-MM-DD como meia-noite UTC
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return parseTimestamp(s)
	}
	return &t
}
