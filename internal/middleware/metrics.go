package middleware

import (
	"net/http"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/logger"
	"github.com/cleberrangel/asana-portfolio-api/internal/metrics"
	"github.com/gin-gonic/gin"
)

// MetricsMiddleware tracks request metrics
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start).Milliseconds()
		statusCode := c.Writer.Status()

		metrics.Get().IncrementRequests(statusCode < 400, latency)

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metrics.Get().TrackEndpoint(path, c.Request.Method, statusCode, latency)
	}
}

// AuditMiddleware registra eventos de auditoria para as rotas informadas.
// Requisições que alteram estado são sempre auditadas.
func AuditMiddleware(auditedRoutes ...string) gin.HandlerFunc {
	audited := make(map[string]bool, len(auditedRoutes))
	for _, r := range auditedRoutes {
		audited[r] = true
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if !audited[route] && c.Request.Method == http.MethodGet {
			return
		}

		logger.AuditRequest(
			c.Request.Context(),
			c.Request.Method,
			c.Request.URL.Path,
			c.Writer.Status(),
			time.Since(start).Milliseconds(),
			c.ClientIP(),
		)
	}
}
