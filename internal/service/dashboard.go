package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/analytics"
	"github.com/cleberrangel/asana-portfolio-api/internal/cache"
	"github.com/cleberrangel/asana-portfolio-api/internal/estimator"
	"github.com/cleberrangel/asana-portfolio-api/internal/logger"
	"github.com/cleberrangel/asana-portfolio-api/internal/metrics"
	"github.com/cleberrangel/asana-portfolio-api/internal/model"
	"github.com/cleberrangel/asana-portfolio-api/internal/source"
	"github.com/cleberrangel/asana-portfolio-api/internal/websocket"
	"github.com/google/uuid"
)

// DashboardCacheKey é a chave do último dashboard no cache
const DashboardCacheKey = "dashboard:latest"

// projectInfoPrefix agrupa dono e membros dos projetos no cache
const projectInfoPrefix = "project:"

// RunStore persiste o histórico de execuções
type RunStore interface {
	SaveRun(ctx context.Context, run model.EstimateRun, estimates []model.ProjectEstimate) error
	ListRuns(ctx context.Context, limit int) ([]model.EstimateRun, error)
	GetRun(ctx context.Context, id string) (*model.RunDetails, error)
	ProjectHistory(ctx context.Context, project string, limit int) ([]model.ProjectHistoryEntry, error)
}

// Broadcaster notifica os clientes conectados
type Broadcaster interface {
	Broadcast(msgType string, data interface{})
}

// ProjectInfoProvider busca dono e membros de um projeto
type ProjectInfoProvider interface {
	GetProject(ctx context.Context, projectGID string) (model.ProjectInfo, error)
}

// RunScope identifica uma execução de atualização.
// Trafega explicitamente entre as etapas do refresh.
type RunScope struct {
	RunID        string
	PortfolioGID string
	Now          time.Time
}

// Options agrupa as dependências do DashboardService.
// Store, Hub e Projects são opcionais.
type Options struct {
	PortfolioGID string
	Source       source.TaskSource
	Estimator    *estimator.Estimator
	Cache        *cache.Cache
	Store        RunStore
	Hub          Broadcaster
	Projects     ProjectInfoProvider
	Clock        func() time.Time
}

// DashboardService orquestra coleta, estimativa e análises do portfolio
type DashboardService struct {
	portfolioGID string
	source       source.TaskSource
	estimator    *estimator.Estimator
	cache        *cache.Cache
	store        RunStore
	hub          Broadcaster
	projects     ProjectInfoProvider
	clock        func() time.Time

	refreshMu sync.Mutex
}

// NewDashboardService cria o serviço aplicando valores padrão
func NewDashboardService(opts Options) *DashboardService {
	if opts.Estimator == nil {
		opts.Estimator = estimator.NewDefault()
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewCache(time.Hour)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &DashboardService{
		portfolioGID: opts.PortfolioGID,
		source:       opts.Source,
		estimator:    opts.Estimator,
		cache:        opts.Cache,
		store:        opts.Store,
		hub:          opts.Hub,
		projects:     opts.Projects,
		clock:        opts.Clock,
	}
}

// Refresh força uma atualização completa: descarta a busca memorizada e os
// dados de projeto em cache antes de consultar o Asana
func (s *DashboardService) Refresh(ctx context.Context) (*model.Dashboard, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if inv, ok := s.source.(interface{ Invalidate() }); ok {
		inv.Invalidate()
	}
	s.cache.InvalidatePrefix(projectInfoPrefix)

	return s.refreshLocked(ctx)
}

// Recalculate refaz estimativas e análises com um novo "agora", reaproveitando
// a busca memorizada enquanto o TTL da origem não expirar
func (s *DashboardService) Recalculate(ctx context.Context) (*model.Dashboard, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	return s.refreshLocked(ctx)
}

// refreshLocked exige refreshMu
func (s *DashboardService) refreshLocked(ctx context.Context) (*model.Dashboard, error) {
	scope := RunScope{
		RunID:        uuid.New().String(),
		PortfolioGID: s.portfolioGID,
		Now:          s.clock().UTC(),
	}
	ctx = logger.WithRunID(ctx, scope.RunID)
	log := logger.Get(ctx)
	start := time.Now()

	log.Info().Str("portfolio", scope.PortfolioGID).Msg("Iniciando atualização das estimativas")

	dashboard, err := s.build(ctx, scope)
	elapsed := time.Since(start)
	if err != nil {
		metrics.Get().IncrementRefresh(false, 0, 0, elapsed.Milliseconds())
		logger.AuditRefresh(ctx, scope.PortfolioGID, 0, 0, elapsed, err)
		s.broadcast(websocket.TypeRefreshFailed, map[string]string{
			"run_id": scope.RunID,
			"error":  err.Error(),
		})
		return nil, err
	}

	s.cache.Set(DashboardCacheKey, dashboard)

	if s.store != nil {
		run := model.EstimateRun{
			ID:           scope.RunID,
			PortfolioGID: scope.PortfolioGID,
			GeneratedAt:  scope.Now,
			ProjectCount: len(dashboard.Estimates),
			TaskCount:    len(dashboard.Tasks),
		}
		// Falha ao persistir não invalida o dashboard já calculado
		if err := s.store.SaveRun(ctx, run, dashboard.Estimates); err != nil {
			log.Error().Err(err).Msg("Erro ao salvar execução no histórico")
		}
	}

	degraded := 0
	for _, e := range dashboard.Estimates {
		if e.Degraded {
			degraded++
		}
	}
	metrics.Get().IncrementRefresh(true, len(dashboard.Estimates), degraded, elapsed.Milliseconds())
	logger.AuditRefresh(ctx, scope.PortfolioGID, len(dashboard.Estimates), len(dashboard.Tasks), elapsed, nil)

	s.broadcast(websocket.TypeEstimatesRefreshed, model.RefreshEvent{
		RunID:         scope.RunID,
		GeneratedAt:   scope.Now.Format(time.RFC3339),
		TotalProjects: dashboard.Summary.TotalProjects,
		OnTrack:       dashboard.Summary.OnTrack,
		AtRisk:        dashboard.Summary.AtRisk,
		Behind:        dashboard.Summary.Behind,
	})

	log.Info().
		Int("projects", len(dashboard.Estimates)).
		Int("tasks", len(dashboard.Tasks)).
		Int("degraded", degraded).
		Dur("duration", elapsed).
		Msg("Estimativas atualizadas")

	return dashboard, nil
}

func (s *DashboardService) build(ctx context.Context, scope RunScope) (*model.Dashboard, error) {
	if s.source == nil {
		return nil, fmt.Errorf("%w: origem de tarefas não configurada", model.ErrUpstreamFetch)
	}

	tasks, err := s.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	estimates := s.estimator.EstimateAll(ctx, tasks, scope.Now)

	return &model.Dashboard{
		RunID:        scope.RunID,
		PortfolioGID: scope.PortfolioGID,
		GeneratedAt:  scope.Now,
		Summary:      analytics.Summary(tasks, estimates, scope.Now),
		Estimates:    estimates,
		Activity:     analytics.RecentActivity(tasks, scope.Now, analytics.DefaultActivityDays),
		Utilization:  analytics.ResourceUtilization(tasks),
		Trend:        analytics.CompletionTimeTrend(tasks, scope.Now, analytics.DefaultTrendMonths),
		Resources:    analytics.Resources(tasks),
		Tasks:        tasks,
	}, nil
}

func (s *DashboardService) broadcast(msgType string, data interface{}) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(msgType, data)
}

// Dashboard retorna o último dashboard em cache ou o recalcula.
// Chamadas concorrentes com o cache vazio aguardam um único cálculo.
func (s *DashboardService) Dashboard(ctx context.Context) (*model.Dashboard, error) {
	if d, ok := s.cached(); ok {
		return d, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	if d, ok := s.cached(); ok {
		return d, nil
	}
	return s.refreshLocked(ctx)
}

func (s *DashboardService) cached() (*model.Dashboard, bool) {
	v, ok := s.cache.Get(DashboardCacheKey)
	if !ok {
		return nil, false
	}
	d, ok := v.(*model.Dashboard)
	return d, ok
}

// Estimates retorna as estimativas do dashboard atual
func (s *DashboardService) Estimates(ctx context.Context) ([]model.ProjectEstimate, error) {
	d, err := s.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	return d.Estimates, nil
}

// Project retorna a estimativa de um projeto com contagens e dados do Asana.
// Dono e membros são buscados sem bloquear a resposta em caso de falha.
func (s *DashboardService) Project(ctx context.Context, name string) (*model.ProjectDetails, error) {
	d, err := s.Dashboard(ctx)
	if err != nil {
		return nil, err
	}

	var found *model.ProjectEstimate
	for i := range d.Estimates {
		if d.Estimates[i].Project == name {
			found = &d.Estimates[i]
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrProjectNotFound, name)
	}

	details := &model.ProjectDetails{
		ProjectEstimate: *found,
		Owner:           model.NotAvailable,
		OverdueTasks:    analytics.OverdueTasks(d.Tasks, d.GeneratedAt)[name],
	}
	for _, t := range d.Tasks {
		if t.Project == name && t.ProjectGID != "" {
			details.GID = t.ProjectGID
			break
		}
	}

	if info, ok := s.projectInfo(ctx, details.GID); ok {
		if info.Owner != nil && info.Owner.Name != "" {
			details.Owner = info.Owner.Name
		}
		details.MembersCount = len(info.Members)
	}

	return details, nil
}

// projectInfo busca dono e membros no Asana, memorizando até o próximo Refresh
func (s *DashboardService) projectInfo(ctx context.Context, gid string) (model.ProjectInfo, bool) {
	if s.projects == nil || gid == "" {
		return model.ProjectInfo{}, false
	}

	key := projectInfoPrefix + gid
	if v, ok := s.cache.Get(key); ok {
		if info, ok := v.(model.ProjectInfo); ok {
			return info, true
		}
	}

	info, err := s.projects.GetProject(ctx, gid)
	if err != nil {
		logger.Get(ctx).Warn().Err(err).Str("project_gid", gid).Msg("Não foi possível buscar detalhes do projeto")
		return model.ProjectInfo{}, false
	}
	s.cache.Set(key, info)
	return info, true
}

// Activity calcula a atividade dos últimos days dias
func (s *DashboardService) Activity(ctx context.Context, days int) (model.Activity, error) {
	d, err := s.Dashboard(ctx)
	if err != nil {
		return model.Activity{}, err
	}
	if days <= 0 {
		days = analytics.DefaultActivityDays
	}
	if days == d.Activity.Days {
		return d.Activity, nil
	}
	return analytics.RecentActivity(d.Tasks, d.GeneratedAt, days), nil
}

// Utilization retorna a utilização de recursos do dashboard atual
func (s *DashboardService) Utilization(ctx context.Context) (model.Utilization, error) {
	d, err := s.Dashboard(ctx)
	if err != nil {
		return model.Utilization{}, err
	}
	return d.Utilization, nil
}

// Resources retorna as análises de alocação da equipe
func (s *DashboardService) Resources(ctx context.Context) (model.Resources, error) {
	d, err := s.Dashboard(ctx)
	if err != nil {
		return model.Resources{}, err
	}
	return d.Resources, nil
}

// Trend calcula a tendência de tempo de conclusão dos últimos months meses
func (s *DashboardService) Trend(ctx context.Context, months int) ([]model.TrendPoint, error) {
	d, err := s.Dashboard(ctx)
	if err != nil {
		return nil, err
	}
	if months <= 0 {
		months = analytics.DefaultTrendMonths
	}
	if months == analytics.DefaultTrendMonths {
		return d.Trend, nil
	}
	return analytics.CompletionTimeTrend(d.Tasks, d.GeneratedAt, months), nil
}

// Runs lista as últimas execuções persistidas
func (s *DashboardService) Runs(ctx context.Context, limit int) ([]model.EstimateRun, error) {
	if s.store == nil {
		return nil, model.ErrPersistenceDisabled
	}
	return s.store.ListRuns(ctx, limit)
}

// Run retorna uma execução persistida com suas estimativas
func (s *DashboardService) Run(ctx context.Context, id string) (*model.RunDetails, error) {
	if s.store == nil {
		return nil, model.ErrPersistenceDisabled
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %s", model.ErrRunNotFound, id)
	}
	return s.store.GetRun(ctx, id)
}

// ProjectHistory retorna as estimativas passadas de um projeto
func (s *DashboardService) ProjectHistory(ctx context.Context, project string, limit int) ([]model.ProjectHistoryEntry, error) {
	if s.store == nil {
		return nil, model.ErrPersistenceDisabled
	}
	return s.store.ProjectHistory(ctx, project, limit)
}
