package middleware

import (
	"strings"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// HeaderRequestID é o header HTTP para request ID
	HeaderRequestID = "X-Request-ID"
	// HeaderTraceID é o header HTTP para trace ID (distributed tracing)
	HeaderTraceID = "X-Trace-ID"
	// HeaderRunID identifica a execução de estimativa que gerou a resposta
	HeaderRunID = "X-Run-ID"

	// ContextRunID é a chave do run_id no contexto Gin
	ContextRunID = "run_id"
)

// SetRunID associa a resposta à execução de estimativa usada para montá-la
func SetRunID(c *gin.Context, runID string) {
	if runID == "" {
		return
	}
	c.Set(ContextRunID, runID)
	c.Header(HeaderRunID, runID)
}

// RequestID adiciona request_id e trace_id a cada requisição e registra início e fim.
// Requisições em quietPaths (health checks, por exemplo) são registradas em debug.
func RequestID(quietPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.New().String()[:8]
		}
		traceID := c.GetHeader(HeaderTraceID)
		if traceID == "" {
			traceID = uuid.New().String()
		}

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		ctx = logger.WithTraceID(ctx, traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderTraceID, traceID)

		log := logger.Get(ctx)
		quiet := isQuiet(c.Request.URL.Path, quietPaths)

		startEvent := log.Info()
		if quiet {
			startEvent = log.Debug()
		}
		startEvent.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("query", c.Request.URL.RawQuery).
			Str("client_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Msg("Requisição iniciada")

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		case quiet:
			event = log.Debug()
		default:
			event = log.Info()
		}
		if runID := c.GetString(ContextRunID); runID != "" {
			event = event.Str("run_id", runID)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}

		event.
			Int("status", status).
			Int("size", c.Writer.Size()).
			Dur("latency", duration).
			Float64("latency_ms", float64(duration.Microseconds())/1000).
			Msg("Requisição concluída")
	}
}

func isQuiet(path string, quietPaths []string) bool {
	for _, p := range quietPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
