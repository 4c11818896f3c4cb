package handler

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/database"
	"github.com/cleberrangel/asana-portfolio-api/internal/metrics"
	"github.com/cleberrangel/asana-portfolio-api/internal/websocket"
	"github.com/gin-gonic/gin"
)

// MaxHeapMB é o limite de memória usado na verificação de saúde
const MaxHeapMB = 512

// ScheduleInfo describes the periodic refresh job
type ScheduleInfo interface {
	Schedule() string
	NextRun() time.Time
}

// HealthHandler handles health check and metrics endpoints
type HealthHandler struct {
	db            *sql.DB
	wsHub         *websocket.Hub
	scheduler     ScheduleInfo
	version       string
	refreshMaxAge time.Duration
	startTime     time.Time
}

// NewHealthHandler creates a new health handler.
// db and wsHub may be nil; refreshMaxAge 0 disables the staleness check.
func NewHealthHandler(db *sql.DB, wsHub *websocket.Hub, version string, refreshMaxAge time.Duration) *HealthHandler {
	return &HealthHandler{
		db:            db,
		wsHub:         wsHub,
		version:       version,
		refreshMaxAge: refreshMaxAge,
		startTime:     time.Now(),
	}
}

// SetScheduler reports the refresh schedule in the detailed health check
func (h *HealthHandler) SetScheduler(s ScheduleInfo) {
	h.scheduler = s
}

// LivenessCheck returns basic liveness status
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// ReadinessCheck returns readiness status including dependencies
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	h.respond(c, h.baseComponents())
}

// DetailedHealthCheck returns comprehensive health information
func (h *HealthHandler) DetailedHealthCheck(c *gin.Context) {
	components := h.baseComponents()

	if h.wsHub != nil {
		components["websocket"] = h.checkWebSocketHealth()
	}
	components["asana"] = h.checkFetchHealth()
	if h.scheduler != nil {
		components["scheduler"] = h.checkSchedulerHealth()
	}

	h.respond(c, components)
}

func (h *HealthHandler) baseComponents() map[string]metrics.HealthStatus {
	components := make(map[string]metrics.HealthStatus)

	// Banco é opcional: sem DB_HOST a persistência fica desabilitada
	if h.db != nil {
		components["database"] = metrics.CheckDatabaseHealth(h.db)
	}
	components["memory"] = metrics.CheckMemoryHealth(MaxHeapMB)
	components["estimates"] = metrics.CheckRefreshHealth(metrics.Get().LastRefresh(), h.refreshMaxAge, time.Now())

	return components
}

func (h *HealthHandler) respond(c *gin.Context, components map[string]metrics.HealthStatus) {
	overallStatus := metrics.DetermineOverallStatus(components)

	healthCheck := metrics.HealthCheck{
		Status:     overallStatus,
		Version:    h.version,
		Uptime:     time.Since(h.startTime).String(),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: components,
	}

	statusCode := http.StatusOK
	if overallStatus == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, healthCheck)
}

// checkWebSocketHealth checks WebSocket hub health
func (h *HealthHandler) checkWebSocketHealth() metrics.HealthStatus {
	if h.wsHub.GetConnectionCount() > websocket.MaxConnections {
		return metrics.HealthStatus{
			Status:  "degraded",
			Message: "WebSocket connections above limit",
		}
	}
	return metrics.HealthStatus{
		Status: "healthy",
	}
}

// checkSchedulerHealth degrades when the cron job has no upcoming run
func (h *HealthHandler) checkSchedulerHealth() metrics.HealthStatus {
	next := h.scheduler.NextRun()
	if next.IsZero() {
		return metrics.HealthStatus{
			Status:  "degraded",
			Message: "Refresh schedule " + h.scheduler.Schedule() + " has no next run",
		}
	}
	return metrics.HealthStatus{
		Status:  "healthy",
		Message: "Next refresh (" + h.scheduler.Schedule() + ") at " + next.UTC().Format(time.RFC3339),
	}
}

// checkFetchHealth degrades when most Asana fetches are failing
func (h *HealthHandler) checkFetchHealth() metrics.HealthStatus {
	snapshot := metrics.Get().Snapshot()

	if snapshot.Fetches.Total > 0 {
		failureRate := float64(snapshot.Fetches.Failed) / float64(snapshot.Fetches.Total) * 100
		if failureRate > 50 {
			return metrics.HealthStatus{
				Status:  "degraded",
				Message: "High Asana fetch failure rate",
			}
		}
	}

	return metrics.HealthStatus{
		Status: "healthy",
	}
}

// GetMetrics returns application metrics
func (h *HealthHandler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, metrics.Get().Snapshot())
}

// GetMetricsSummary returns a summary of key metrics
func (h *HealthHandler) GetMetricsSummary(c *gin.Context) {
	snapshot := metrics.Get().Snapshot()

	requestSuccessRate := float64(0)
	if snapshot.Requests.Total > 0 {
		requestSuccessRate = float64(snapshot.Requests.Successful) / float64(snapshot.Requests.Total) * 100
	}

	refreshSuccessRate := float64(0)
	if snapshot.Refreshes.Total > 0 {
		refreshSuccessRate = float64(snapshot.Refreshes.Total-snapshot.Refreshes.Failed) / float64(snapshot.Refreshes.Total) * 100
	}

	cacheHitRate := float64(0)
	if lookups := snapshot.Fetches.CacheHits + snapshot.Fetches.CacheMisses; lookups > 0 {
		cacheHitRate = float64(snapshot.Fetches.CacheHits) / float64(lookups) * 100
	}

	summary := gin.H{
		"uptime_seconds": snapshot.UptimeSeconds,
		"version":        h.version,
		"requests": gin.H{
			"total":        snapshot.Requests.Total,
			"success_rate": requestSuccessRate,
			"avg_latency":  snapshot.Requests.AvgLatencyMs,
		},
		"refreshes": gin.H{
			"total":        snapshot.Refreshes.Total,
			"success_rate": refreshSuccessRate,
			"last_refresh": snapshot.Refreshes.LastRefresh,
		},
		"cache": gin.H{
			"hit_rate": cacheHitRate,
		},
		"websocket": gin.H{
			"connections": snapshot.WebSocket.Connections,
		},
		"system": gin.H{
			"goroutines":  snapshot.System.Goroutines,
			"heap_mb":     snapshot.System.HeapAllocMB,
			"heap_use_mb": snapshot.System.HeapInUseMB,
		},
	}

	if h.db != nil {
		summary["database_pool"] = database.GetPoolStats(h.db)
	}

	c.JSON(http.StatusOK, summary)
}

// GetEndpointMetrics returns metrics for specific endpoints
func (h *HealthHandler) GetEndpointMetrics(c *gin.Context) {
	snapshot := metrics.Get().Snapshot()

	c.JSON(http.StatusOK, gin.H{
		"endpoints": snapshot.Endpoints,
	})
}
