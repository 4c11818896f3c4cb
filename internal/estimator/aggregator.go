package estimator

import "github.com/cleberrangel/asana-portfolio-api/internal/model"

// ProjectGroup contém as tarefas de um projeto na ordem de entrada
type ProjectGroup struct {
	Project string
	Tasks   []model.Task
}

// Aggregate agrupa as tarefas por projeto, preservando a ordem da primeira aparição
func Aggregate(tasks []model.Task) []ProjectGroup {
	groups := make([]ProjectGroup, 0)
	index := make(map[string]int)

	for _, t := range tasks {
		i, ok := index[t.Project]
		if !ok {
			i = len(groups)
			index[t.Project] = i
			groups = append(groups, ProjectGroup{Project: t.Project})
		}
		groups[i].Tasks = append(groups[i].Tasks, t)
	}

	return groups
}
