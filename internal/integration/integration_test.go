// Package integration exercita o fluxo completo: API do Asana simulada, coleta,
// estimativa, rotas HTTP autenticadas, WebSocket e histórico em PostgreSQL.
package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/cache"
	"github.com/cleberrangel/asana-portfolio-api/internal/client"
	"github.com/cleberrangel/asana-portfolio-api/internal/database"
	"github.com/cleberrangel/asana-portfolio-api/internal/handler"
	"github.com/cleberrangel/asana-portfolio-api/internal/metrics"
	"github.com/cleberrangel/asana-portfolio-api/internal/middleware"
	"github.com/cleberrangel/asana-portfolio-api/internal/migration"
	"github.com/cleberrangel/asana-portfolio-api/internal/model"
	"github.com/cleberrangel/asana-portfolio-api/internal/repository"
	"github.com/cleberrangel/asana-portfolio-api/internal/service"
	"github.com/cleberrangel/asana-portfolio-api/internal/source"
	"github.com/cleberrangel/asana-portfolio-api/internal/websocket"
	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"
)

const (
	testPortfolio = "P1"
	testAPIToken  = "integration-token"
)

// TestContext reúne as dependências do ambiente de teste
type TestContext struct {
	Asana     *httptest.Server
	Server    *httptest.Server
	Hub       *websocket.Hub
	Service   *service.DashboardService
	DB        *sql.DB
	TaskCalls *int32
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// newFakeAsana simula os endpoints usados pelo cliente
func newFakeAsana(t *testing.T, taskCalls *int32) *httptest.Server {
	now := time.Now().UTC()
	ts := func(days int) string {
		return now.AddDate(0, 0, days).Format(time.RFC3339)
	}
	due := now.AddDate(0, 0, 10).Format(model.DateLayout)

	tasks := map[string][]model.AsanaTask{
		"100": {
			{GID: "1", Name: "Setup", Completed: true, CreatedAt: ts(-20), CompletedAt: ts(-15), Assignee: &model.NamedRef{Name: "Ana"}},
			{GID: "2", Name: "Build", Completed: true, CreatedAt: ts(-18), CompletedAt: ts(-5), Assignee: &model.NamedRef{Name: "Ana"}},
			{GID: "3", Name: "Deploy", CreatedAt: ts(-3), DueOn: now.AddDate(0, 0, -1).Format(model.DateLayout)},
		},
		"200": {
			{GID: "4", Name: "Research", CreatedAt: ts(-2), Assignee: &model.NamedRef{Name: "Bruno"}},
		},
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer asana-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		path := r.URL.Path
		switch {
		case path == "/portfolios/"+testPortfolio+"/items":
			writeJSON(w, model.PortfolioItemsResponse{Data: []model.PortfolioItem{
				{GID: "100", Name: "Alpha", DueOn: due},
				{GID: "200", Name: "Beta"},
			}})
		case strings.HasSuffix(path, "/tasks"):
			atomic.AddInt32(taskCalls, 1)
			gid := strings.TrimSuffix(strings.TrimPrefix(path, "/projects/"), "/tasks")
			writeJSON(w, model.TaskListResponse{Data: tasks[gid]})
		case path == "/projects/100":
			writeJSON(w, model.ProjectResponse{Data: model.ProjectInfo{
				GID:     "100",
				Name:    "Alpha",
				Owner:   &model.NamedRef{Name: "Carla"},
				Members: []model.NamedRef{{Name: "Ana"}, {Name: "Carla"}},
			}})
		default:
			t.Logf("unexpected Asana request: %s", r.URL.String())
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

// connectTestDB cria um banco temporário; retorna nil quando o PostgreSQL não está disponível
func connectTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbConfig := database.Config{
		Host:     getEnvOrDefault("TEST_DB_HOST", "127.0.0.1"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "5432"),
		User:     getEnvOrDefault("TEST_DB_USER", "postgres"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "postgres"),
		DBName:   fmt.Sprintf("test_integration_%d", time.Now().UnixNano()),
		SSLMode:  "disable",
	}

	adminConfig := dbConfig
	adminConfig.DBName = "postgres"

	adminDB, err := database.Connect(adminConfig)
	if err != nil {
		t.Logf("PostgreSQL indisponível, histórico desabilitado: %v", err)
		return nil
	}
	_, err = adminDB.Exec(fmt.Sprintf("CREATE DATABASE %s", dbConfig.DBName))
	adminDB.Close()
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	testDB, err := database.Connect(dbConfig)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := migration.NewMigrator(testDB).Run(); err != nil {
		testDB.Close()
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		testDB.Close()
		adminDB, _ := database.Connect(adminConfig)
		if adminDB != nil {
			adminDB.Exec(fmt.Sprintf("DROP DATABASE IF EXISTS %s", dbConfig.DBName))
			adminDB.Close()
		}
	})
	return testDB
}

func setupTestContext(t *testing.T) *TestContext {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics.Init()

	var taskCalls int32
	asana := newFakeAsana(t, &taskCalls)
	t.Cleanup(asana.Close)

	asanaClient := client.NewClientWithConfig(client.Config{
		Token:             "asana-token",
		BaseURL:           asana.URL,
		RequestsPerMinute: 60000,
		RetryBackoff:      time.Millisecond,
	})

	tasks := source.WithCache(
		source.WithMetrics(source.WithErrorHandling(source.Portfolio(asanaClient, testPortfolio)), metrics.Get()),
		cache.NewCache(time.Hour), "tasks:"+testPortfolio,
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := websocket.NewHub()
	go hub.Run(ctx)

	db := connectTestDB(t)
	opts := service.Options{
		PortfolioGID: testPortfolio,
		Source:       tasks,
		Cache:        cache.NewCache(time.Minute),
		Hub:          hub,
		Projects:     asanaClient,
	}
	if db != nil {
		opts.Store = repository.NewEstimateRepository(db)
	}
	svc := service.NewDashboardService(opts)

	dashboardHandler := handler.NewDashboardHandler(svc)
	historyHandler := handler.NewHistoryHandler(svc)
	healthHandler := handler.NewHealthHandler(db, hub, "test", time.Hour)
	wsHandler := handler.NewWebSocketHandler(hub)

	authCfg := middleware.AuthConfig{TokenAPI: testAPIToken}
	wsAuth := authCfg
	wsAuth.AllowQuery = true

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(gin.Recovery())
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health/ready", healthHandler.ReadinessCheck)
	router.GET("/ws", middleware.BearerAuth(wsAuth), wsHandler.HandleConnection)

	api := router.Group("/api/v1")
	api.Use(middleware.BearerAuth(authCfg))
	{
		api.GET("/estimates", dashboardHandler.GetEstimates)
		api.GET("/estimates/export", dashboardHandler.ExportEstimates)
		api.GET("/projects/:name", dashboardHandler.GetProject)
		api.GET("/resources", dashboardHandler.GetResources)
		api.POST("/refresh", dashboardHandler.RefreshEstimates)
		api.GET("/history/runs", historyHandler.ListRuns)
		api.GET("/history/runs/:id", historyHandler.GetRun)
		api.GET("/history/projects/:name", historyHandler.ProjectHistory)
	}

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &TestContext{
		Asana:     asana,
		Server:    server,
		Hub:       hub,
		Service:   svc,
		DB:        db,
		TaskCalls: &taskCalls,
	}
}

func (tc *TestContext) get(t *testing.T, method, path string, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, tc.Server.URL+path, nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
}

func TestEstimatesWorkflow(t *testing.T) {
	tc := setupTestContext(t)

	t.Run("RequiresToken", func(t *testing.T) {
		if resp := tc.get(t, http.MethodGet, "/api/v1/estimates", ""); resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", resp.StatusCode)
		}
	})

	t.Run("Estimates", func(t *testing.T) {
		resp := tc.get(t, http.MethodGet, "/api/v1/estimates", testAPIToken)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}

		var body struct {
			Data []model.ProjectEstimate `json:"data"`
		}
		decodeBody(t, resp, &body)

		if len(body.Data) != 2 {
			t.Fatalf("estimates = %d, want 2", len(body.Data))
		}
		alpha := body.Data[0]
		if alpha.Project != "Alpha" || alpha.TotalTasks != 3 || alpha.CompletedTasks != 2 {
			t.Errorf("unexpected Alpha estimate: %+v", alpha)
		}
		if alpha.Velocity == nil || alpha.ProjectDueDate == nil || alpha.DaysDifference == nil {
			t.Errorf("Alpha should have velocity and schedule delta: %+v", alpha)
		}
		beta := body.Data[1]
		if beta.Velocity != nil || beta.EstimatedCompletionDays != 5 {
			t.Errorf("Beta should use the per-task fallback: %+v", beta)
		}
	})

	t.Run("ProjectDetails", func(t *testing.T) {
		resp := tc.get(t, http.MethodGet, "/api/v1/projects/Alpha", testAPIToken)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var body struct {
			Data model.ProjectDetails `json:"data"`
		}
		decodeBody(t, resp, &body)
		if body.Data.Owner != "Carla" || body.Data.MembersCount != 2 || body.Data.OverdueTasks != 1 {
			t.Errorf("unexpected project details: %+v", body.Data)
		}
	})

	t.Run("ExportIsXLSX", func(t *testing.T) {
		resp := tc.get(t, http.MethodGet, "/api/v1/estimates/export", testAPIToken)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if !strings.Contains(resp.Header.Get("Content-Type"), "spreadsheetml") {
			t.Errorf("Content-Type = %s", resp.Header.Get("Content-Type"))
		}
	})

	t.Run("CachedBetweenRequests", func(t *testing.T) {
		before := atomic.LoadInt32(tc.TaskCalls)
		tc.get(t, http.MethodGet, "/api/v1/estimates", testAPIToken)
		if after := atomic.LoadInt32(tc.TaskCalls); after != before {
			t.Errorf("cached dashboard should not hit Asana (calls %d -> %d)", before, after)
		}
	})

	t.Run("Resources", func(t *testing.T) {
		resp := tc.get(t, http.MethodGet, "/api/v1/resources", testAPIToken)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var body struct {
			Data model.Resources `json:"data"`
		}
		decodeBody(t, resp, &body)
		if body.Data.Team.TotalTasks == 0 || len(body.Data.Projects) != 2 {
			t.Errorf("unexpected resources: %+v", body.Data)
		}
	})

	t.Run("RecalculateReusesFetch", func(t *testing.T) {
		before := atomic.LoadInt32(tc.TaskCalls)
		if _, err := tc.Service.Recalculate(context.Background()); err != nil {
			t.Fatalf("Recalculate() error = %v", err)
		}
		if after := atomic.LoadInt32(tc.TaskCalls); after != before {
			t.Errorf("recalculation should reuse the cached fetch (calls %d -> %d)", before, after)
		}
	})

	t.Run("ForcedRefreshRefetches", func(t *testing.T) {
		before := atomic.LoadInt32(tc.TaskCalls)
		if resp := tc.get(t, http.MethodPost, "/api/v1/refresh", testAPIToken); resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		if after := atomic.LoadInt32(tc.TaskCalls); after <= before {
			t.Errorf("forced refresh should hit Asana again (calls %d -> %d)", before, after)
		}
	})
}

func TestRefreshBroadcastsOverWebSocket(t *testing.T) {
	tc := setupTestContext(t)

	wsURL := "ws" + strings.TrimPrefix(tc.Server.URL, "http") + "/ws?" + middleware.QueryTokenParam + "=" + testAPIToken
	conn, _, err := gorilla.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	readMessage := func() websocket.Message {
		t.Helper()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var msg websocket.Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read websocket: %v", err)
		}
		return msg
	}

	if msg := readMessage(); msg.Type != websocket.TypeConnection {
		t.Fatalf("first message = %s, want %s", msg.Type, websocket.TypeConnection)
	}

	resp := tc.get(t, http.MethodPost, "/api/v1/refresh", testAPIToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status = %d", resp.StatusCode)
	}

	msg := readMessage()
	if msg.Type != websocket.TypeEstimatesRefreshed {
		t.Fatalf("message type = %s, want %s", msg.Type, websocket.TypeEstimatesRefreshed)
	}
	data, _ := msg.Data.(map[string]interface{})
	if data["total_projects"] != float64(2) {
		t.Errorf("unexpected refresh event: %v", msg.Data)
	}
}

func TestWebSocketRequiresToken(t *testing.T) {
	tc := setupTestContext(t)

	wsURL := "ws" + strings.TrimPrefix(tc.Server.URL, "http") + "/ws"
	_, resp, err := gorilla.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("dial without token should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 response, got %v", resp)
	}
}

func TestHistoryPersistence(t *testing.T) {
	tc := setupTestContext(t)
	if tc.DB == nil {
		t.Skip("Skipping test: PostgreSQL not available")
	}

	for i := 0; i < 2; i++ {
		if resp := tc.get(t, http.MethodPost, "/api/v1/refresh", testAPIToken); resp.StatusCode != http.StatusOK {
			t.Fatalf("refresh %d status = %d", i, resp.StatusCode)
		}
	}

	resp := tc.get(t, http.MethodGet, "/api/v1/history/runs", testAPIToken)
	var runs struct {
		Data []model.EstimateRun `json:"data"`
	}
	decodeBody(t, resp, &runs)
	if len(runs.Data) != 2 {
		t.Fatalf("runs = %d, want 2", len(runs.Data))
	}

	resp = tc.get(t, http.MethodGet, "/api/v1/history/runs/"+runs.Data[0].ID, testAPIToken)
	var run struct {
		Data model.RunDetails `json:"data"`
	}
	decodeBody(t, resp, &run)
	if len(run.Data.Estimates) != 2 {
		t.Errorf("run estimates = %d, want 2", len(run.Data.Estimates))
	}

	resp = tc.get(t, http.MethodGet, "/api/v1/history/projects/Alpha", testAPIToken)
	var history struct {
		Data []model.ProjectHistoryEntry `json:"data"`
	}
	decodeBody(t, resp, &history)
	if len(history.Data) != 2 {
		t.Errorf("project history = %d, want 2", len(history.Data))
	}

	if resp := tc.get(t, http.MethodGet, "/api/v1/history/runs/8c2f3b8e-1d7a-4b8e-9b1e-2a3c4d5e6f70", testAPIToken); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown run status = %d, want 404", resp.StatusCode)
	}
}

func TestUpstreamFailure(t *testing.T) {
	tc := setupTestContext(t)
	tc.Asana.Close()

	resp := tc.get(t, http.MethodPost, "/api/v1/refresh", testAPIToken)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502 when Asana is unreachable", resp.StatusCode)
	}
}
