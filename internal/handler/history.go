package handler

import (
	"net/http"

	"github.com/cleberrangel/asana-portfolio-api/internal/middleware"
	"github.com/cleberrangel/asana-portfolio-api/internal/model"
	"github.com/cleberrangel/asana-portfolio-api/internal/repository"
	"github.com/cleberrangel/asana-portfolio-api/internal/service"
	"github.com/gin-gonic/gin"
)

// MaxHistoryLimit limita o parâmetro ?limit do histórico
const MaxHistoryLimit = 500

// HistoryHandler expõe o histórico de execuções persistidas
type HistoryHandler struct {
	service *service.DashboardService
}

// NewHistoryHandler cria um novo handler de histórico
func NewHistoryHandler(svc *service.DashboardService) *HistoryHandler {
	return &HistoryHandler{service: svc}
}

func historyLimit(c *gin.Context) (int, bool) {
	limit, ok := intQuery(c, "limit", 0, MaxHistoryLimit)
	if ok && limit == 0 {
		limit = repository.DefaultHistoryLimit
	}
	return limit, ok
}

// ListRuns lista as últimas execuções
func (h *HistoryHandler) ListRuns(c *gin.Context) {
	limit, ok := historyLimit(c)
	if !ok {
		return
	}

	runs, err := h.service.Runs(c.Request.Context(), limit)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    runs,
	})
}

// GetRun retorna uma execução com suas estimativas
func (h *HistoryHandler) GetRun(c *gin.Context) {
	id := middleware.SanitizeParam(c.Param("id"))

	run, err := h.service.Run(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    run,
		Meta: &model.Meta{
			TotalProjects: run.ProjectCount,
			TotalTasks:    run.TaskCount,
			RunID:         run.ID,
		},
	})
}

// ProjectHistory retorna a evolução das estimativas de um projeto
func (h *HistoryHandler) ProjectHistory(c *gin.Context) {
	name := middleware.SanitizeParam(c.Param("name"))
	if name == "" {
		badRequest(c, "nome do projeto é obrigatório", "")
		return
	}
	limit, ok := historyLimit(c)
	if !ok {
		return
	}

	entries, err := h.service.ProjectHistory(c.Request.Context(), name, limit)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    entries,
	})
}
