package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/logger"
	"github.com/cleberrangel/asana-portfolio-api/internal/metrics"
	"github.com/cleberrangel/asana-portfolio-api/internal/middleware"
	"github.com/cleberrangel/asana-portfolio-api/internal/model"
	"github.com/cleberrangel/asana-portfolio-api/internal/service"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Limites dos parâmetros de janela
const (
	MaxActivityDays = 365
	MaxTrendMonths  = 24
)

// DashboardHandler expõe estimativas e análises do portfolio
type DashboardHandler struct {
	service  *service.DashboardService
	exporter *service.ExcelExporter
}

// NewDashboardHandler cria um novo handler do dashboard
func NewDashboardHandler(svc *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		service:  svc,
		exporter: service.NewExcelExporter(),
	}
}

// dashboardMeta monta o meta da resposta e marca a execução usada no log da requisição
func dashboardMeta(c *gin.Context, d *model.Dashboard) *model.Meta {
	middleware.SetRunID(c, d.RunID)
	return &model.Meta{
		TotalProjects: d.Summary.TotalProjects,
		TotalTasks:    d.Summary.TotalTasks,
		RunID:         d.RunID,
		GeneratedAt:   d.GeneratedAt.Format(time.RFC3339),
	}
}

// GetDashboard retorna o dashboard completo
func (h *DashboardHandler) GetDashboard(c *gin.Context) {
	d, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    d,
		Meta:    dashboardMeta(c, d),
	})
}

// GetEstimates retorna apenas as estimativas por projeto
func (h *DashboardHandler) GetEstimates(c *gin.Context) {
	d, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    d.Estimates,
		Meta:    dashboardMeta(c, d),
	})
}

// GetProject retorna os detalhes de um projeto
func (h *DashboardHandler) GetProject(c *gin.Context) {
	name := middleware.SanitizeParam(c.Param("name"))
	if name == "" {
		badRequest(c, "nome do projeto é obrigatório", "")
		return
	}

	details, err := h.service.Project(c.Request.Context(), name)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    details,
	})
}

// GetActivity retorna a atividade recente (?days=7)
func (h *DashboardHandler) GetActivity(c *gin.Context) {
	days, ok := intQuery(c, "days", 0, MaxActivityDays)
	if !ok {
		return
	}

	activity, err := h.service.Activity(c.Request.Context(), days)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    activity,
	})
}

// GetUtilization retorna a utilização de recursos
func (h *DashboardHandler) GetUtilization(c *gin.Context) {
	utilization, err := h.service.Utilization(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    utilization,
	})
}

// GetResources retorna a alocação da equipe: resumo por responsável,
// saúde dos projetos e aceleração
func (h *DashboardHandler) GetResources(c *gin.Context) {
	resources, err := h.service.Resources(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    resources,
	})
}

// GetTrend retorna a tendência de tempo de conclusão (?months=4)
func (h *DashboardHandler) GetTrend(c *gin.Context) {
	months, ok := intQuery(c, "months", 0, MaxTrendMonths)
	if !ok {
		return
	}

	trend, err := h.service.Trend(c.Request.Context(), months)
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    trend,
	})
}

// ExportEstimates gera a planilha Excel das estimativas
func (h *DashboardHandler) ExportEstimates(c *gin.Context) {
	ctx := c.Request.Context()
	start := time.Now()

	d, err := h.service.Dashboard(ctx)
	if err != nil {
		handleError(c, err)
		return
	}

	buf, err := h.exporter.Export(d)
	metrics.Get().IncrementExport(err == nil)
	logger.Audit(ctx, logger.AuditEvent{
		Action:     logger.AuditActionExport,
		Resource:   "estimates",
		ResourceID: d.RunID,
		ClientIP:   c.ClientIP(),
		Success:    err == nil,
		Duration:   time.Since(start).Milliseconds(),
		Details:    map[string]interface{}{"projects": len(d.Estimates)},
	})
	if err != nil {
		handleError(c, fmt.Errorf("gerar excel: %w", err))
		return
	}

	filename := middleware.SanitizeFilename(
		fmt.Sprintf("estimativas_%s.xlsx", d.GeneratedAt.Format("2006-01-02_15-04-05")))

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Header("Content-Length", strconv.Itoa(buf.Len()))
	c.Header("X-Total-Projects", strconv.Itoa(len(d.Estimates)))
	middleware.SetRunID(c, d.RunID)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// RefreshEstimates força uma nova coleta e recálculo
func (h *DashboardHandler) RefreshEstimates(c *gin.Context) {
	d, err := h.service.Refresh(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.Response{
		Success: true,
		Data:    d.Summary,
		Meta:    dashboardMeta(c, d),
	})
}

// intQuery lê um parâmetro inteiro opcional em [min, max]; 0 significa padrão
func intQuery(c *gin.Context, name string, min, max int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		badRequest(c, fmt.Sprintf("parâmetro %s inválido", name),
			fmt.Sprintf("esperado inteiro entre %d e %d", min, max))
		return 0, false
	}
	return v, true
}
