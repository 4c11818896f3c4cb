package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// AuditAction identifica a ação auditada
type AuditAction string

const (
	AuditActionRefresh       AuditAction = "ESTIMATES_REFRESH"
	AuditActionRefreshFailed AuditAction = "ESTIMATES_REFRESH_FAILED"
	AuditActionExport        AuditAction = "ESTIMATES_EXPORT"
	AuditActionWSConnect     AuditAction = "WS_CONNECT"
	AuditActionWSDisconnect  AuditAction = "WS_DISCONNECT"
	AuditActionAPIRequest    AuditAction = "API_REQUEST"
	AuditActionAPIError      AuditAction = "API_ERROR"
)

// AuditEvent representa uma entrada de auditoria
type AuditEvent struct {
	Action     AuditAction
	Resource   string
	ResourceID string
	Details    map[string]interface{}
	ClientIP   string
	RequestID  string
	RunID      string
	Success    bool
	Error      string
	Duration   int64 // ms
	Method     string
	Path       string
	StatusCode int
}

var auditLogger zerolog.Logger

// InitAudit inicializa o logger de auditoria
func InitAudit() {
	auditLogger = globalLogger.With().Str("log_type", "audit").Logger()
}

// Audit registra um evento de auditoria
func Audit(ctx context.Context, event AuditEvent) {
	if event.RequestID == "" {
		event.RequestID = GetRequestID(ctx)
	}
	if event.RunID == "" {
		event.RunID = GetRunID(ctx)
	}

	logEvent := auditLogger.Info()
	if !event.Success {
		logEvent = auditLogger.Warn()
	}

	logEvent.
		Str("action", string(event.Action)).
		Str("resource", event.Resource).
		Str("resource_id", event.ResourceID).
		Str("request_id", event.RequestID).
		Bool("success", event.Success).
		Time("timestamp", time.Now().UTC())

	if event.RunID != "" {
		logEvent.Str("run_id", event.RunID)
	}
	if traceID := GetTraceID(ctx); traceID != "" {
		logEvent.Str("trace_id", traceID)
	}
	if event.ClientIP != "" {
		logEvent.Str("client_ip", event.ClientIP)
	}
	if event.Error != "" {
		logEvent.Str("error", event.Error)
	}
	if event.Duration > 0 {
		logEvent.Int64("duration_ms", event.Duration)
	}
	if event.Method != "" {
		logEvent.Str("method", event.Method)
	}
	if event.Path != "" {
		logEvent.Str("path", event.Path)
	}
	if event.StatusCode > 0 {
		logEvent.Int("status_code", event.StatusCode)
	}
	if len(event.Details) > 0 {
		logEvent.Interface("details", event.Details)
	}

	logEvent.Msg("Audit event")
}

// AuditRefresh registra o resultado de uma atualização das estimativas
func AuditRefresh(ctx context.Context, portfolioGID string, projects, tasks int, duration time.Duration, err error) {
	event := AuditEvent{
		Action:     AuditActionRefresh,
		Resource:   "portfolio",
		ResourceID: portfolioGID,
		Success:    err == nil,
		Duration:   duration.Milliseconds(),
		Details: map[string]interface{}{
			"projects": projects,
			"tasks":    tasks,
		},
	}
	if err != nil {
		event.Action = AuditActionRefreshFailed
		event.Error = err.Error()
	}
	Audit(ctx, event)
}

// AuditRequest registra uma requisição à API
func AuditRequest(ctx context.Context, method, path string, statusCode int, duration int64, clientIP string) {
	success := statusCode < 400
	action := AuditActionAPIRequest
	if !success {
		action = AuditActionAPIError
	}

	Audit(ctx, AuditEvent{
		Action:     action,
		Resource:   "api",
		ResourceID: path,
		Method:     method,
		Path:       path,
		StatusCode: statusCode,
		Duration:   duration,
		ClientIP:   clientIP,
		Success:    success,
	})
}

// AuditWebSocket registra eventos de conexão WebSocket
func AuditWebSocket(ctx context.Context, action AuditAction, clientIP string, details map[string]interface{}) {
	Audit(ctx, AuditEvent{
		Action:   action,
		Resource: "websocket",
		ClientIP: clientIP,
		Success:  true,
		Details:  details,
	})
}
