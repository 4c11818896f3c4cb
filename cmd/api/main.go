package main

import (
	"context"
	"database/sql"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/cache"
	"github.com/cleberrangel/asana-portfolio-api/internal/client"
	"github.com/cleberrangel/asana-portfolio-api/internal/config"
	"github.com/cleberrangel/asana-portfolio-api/internal/database"
	"github.com/cleberrangel/asana-portfolio-api/internal/estimator"
	"github.com/cleberrangel/asana-portfolio-api/internal/handler"
	"github.com/cleberrangel/asana-portfolio-api/internal/logger"
	"github.com/cleberrangel/asana-portfolio-api/internal/metrics"
	"github.com/cleberrangel/asana-portfolio-api/internal/middleware"
	"github.com/cleberrangel/asana-portfolio-api/internal/migration"
	"github.com/cleberrangel/asana-portfolio-api/internal/repository"
	"github.com/cleberrangel/asana-portfolio-api/internal/scheduler"
	"github.com/cleberrangel/asana-portfolio-api/internal/service"
	"github.com/cleberrangel/asana-portfolio-api/internal/source"
	"github.com/cleberrangel/asana-portfolio-api/internal/websocket"
	"github.com/gin-gonic/gin"
)

const Version = "2.0.0"

const shutdownTimeout = 15 * time.Second

func main() {
	// Carrega configurações
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Erro ao carregar configurações: %v", err)
	}

	// Inicializa logger estruturado
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	log := logger.Global()
	log.Info().
		Str("version", Version).
		Str("port", cfg.Port).
		Str("portfolio", cfg.PortfolioGID).
		Str("log_level", cfg.LogLevel).
		Bool("log_json", cfg.LogJSON).
		Msg("Asana Portfolio API iniciando")

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistência opcional
	var db *sql.DB
	var store service.RunStore
	if cfg.Database.Enabled() {
		db, err = database.Connect(cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Erro ao conectar ao banco de dados")
		}
		defer database.Close(db)

		if err := migration.NewMigrator(db).Run(); err != nil {
			log.Fatal().Err(err).Msg("Erro ao executar migrations")
		}
		store = repository.NewEstimateRepository(db)
	} else {
		log.Warn().Msg("DB_HOST não configurado, histórico de estimativas desabilitado")
	}

	// Inicializa dependências
	asanaClient := client.NewClientWithConfig(client.Config{
		Token:             cfg.TokenAsana,
		RequestsPerMinute: cfg.AsanaRatePerMinute,
	})

	// Token inválido não impede a subida; as buscas falharão com 401 até ser corrigido
	validateCtx, cancelValidate := context.WithTimeout(ctx, 10*time.Second)
	if err := asanaClient.ValidateToken(validateCtx); err != nil {
		log.Warn().Err(err).Msg("Não foi possível validar o token do Asana")
	}
	cancelValidate()

	taskCache := cache.NewCache(cfg.CacheTTL)
	tasks := source.WithCache(
		source.WithMetrics(
			source.WithErrorHandling(source.Portfolio(asanaClient, cfg.PortfolioGID)),
			metrics.Get(),
		),
		taskCache,
		"tasks:"+cfg.PortfolioGID,
	)

	params := estimator.DefaultParams()
	params.Workers = cfg.EstimatorWorkers

	hub := websocket.NewHub()
	go hub.Run(ctx)

	dashboardService := service.NewDashboardService(service.Options{
		PortfolioGID: cfg.PortfolioGID,
		Source:       tasks,
		Estimator:    estimator.New(params),
		Cache:        cache.NewCache(cfg.DashboardTTL),
		Store:        store,
		Hub:          hub,
		Projects:     asanaClient,
	})

	// Atualização agendada
	var refreshScheduler *scheduler.RefreshScheduler
	if cfg.RefreshSchedule != "" {
		refreshScheduler = scheduler.New(dashboardService, cfg.RefreshSchedule, cfg.RefreshOnStart)
		if err := refreshScheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("Erro ao iniciar agendador")
		}
	}

	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	historyHandler := handler.NewHistoryHandler(dashboardService)
	healthHandler := handler.NewHealthHandler(db, hub, Version, cfg.RefreshMaxAge)
	if refreshScheduler != nil {
		healthHandler.SetScheduler(refreshScheduler)
	}
	wsHandler := handler.NewWebSocketHandler(hub)

	// Configura modo do Gin
	gin.SetMode(cfg.GinMode)

	// Inicializa router
	r := gin.New()
	r.Use(middleware.RequestID("/health", "/metrics")) // Request ID + logging estruturado
	r.Use(gin.Recovery())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.AuditMiddleware("/api/v1/estimates/export"))

	// Health e métricas (públicos)
	r.GET("/health", healthHandler.DetailedHealthCheck)
	r.GET("/health/live", healthHandler.LivenessCheck)
	r.GET("/health/ready", healthHandler.ReadinessCheck)
	r.GET("/metrics", healthHandler.GetMetrics)
	r.GET("/metrics/summary", healthHandler.GetMetricsSummary)
	r.GET("/metrics/endpoints", healthHandler.GetEndpointMetrics)

	authCfg := middleware.AuthConfig{
		TokenAPI:     cfg.TokenAPI,
		TokenAPIHash: cfg.TokenAPIHash,
	}

	// WebSocket: navegadores não enviam headers, o token pode vir na query
	wsAuth := authCfg
	wsAuth.AllowQuery = true
	r.GET("/ws", middleware.BearerAuth(wsAuth), wsHandler.HandleConnection)

	// Grupo de rotas protegidas
	api := r.Group("/api/v1")
	api.Use(middleware.BearerAuth(authCfg))
	{
		api.GET("/dashboard", dashboardHandler.GetDashboard)
		api.GET("/estimates", dashboardHandler.GetEstimates)
		api.GET("/estimates/export", dashboardHandler.ExportEstimates)
		api.GET("/projects/:name", dashboardHandler.GetProject)
		api.GET("/activity", dashboardHandler.GetActivity)
		api.GET("/utilization", dashboardHandler.GetUtilization)
		api.GET("/trend", dashboardHandler.GetTrend)
		api.GET("/resources", dashboardHandler.GetResources)
		api.POST("/refresh", middleware.RateLimit(cfg.RefreshMinInterval, 1), dashboardHandler.RefreshEstimates)

		api.GET("/history/runs", historyHandler.ListRuns)
		api.GET("/history/runs/:id", historyHandler.GetRun)
		api.GET("/history/projects/:name", historyHandler.ProjectHistory)

		api.GET("/ws/stats", wsHandler.GetConnectionStats)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Servidor iniciando")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Erro ao iniciar servidor")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Sinal de encerramento recebido")

	if refreshScheduler != nil {
		refreshScheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Erro ao encerrar servidor")
	}

	log.Info().Msg("Servidor encerrado")
}
