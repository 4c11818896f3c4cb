package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/logger"
	"github.com/cleberrangel/asana-portfolio-api/internal/model"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL é a URL da API REST do Asana
	DefaultBaseURL = "https://app.asana.com/api/1.0"

	// MaxConcurrentRequests limita projetos buscados em paralelo
	MaxConcurrentRequests = 5

	// RequestsPerMinute limite conservador (Asana permite 1500/min em planos pagos)
	RequestsPerMinute = 1500

	// DefaultTimeout timeout padrão para requisições
	DefaultTimeout = 60 * time.Second

	// PageSize tamanho máximo de página aceito pelo Asana
	PageSize = 100

	// RetryMaxAttempts número máximo de tentativas por página
	RetryMaxAttempts = 3

	// RetryBackoff tempo de espera entre retries
	RetryBackoff = 30 * time.Second
)

const (
	portfolioItemFields = "name,gid,due_on,due_date"
	taskFields          = "name,completed,due_on,created_at,completed_at,assignee.name,memberships.section.name,custom_fields,tags.name,num_subtasks"
	projectFields       = "name,owner.name,members,due_on"
)

// Config configura o cliente do Asana
type Config struct {
	Token             string
	BaseURL           string
	RequestsPerMinute int
	RetryBackoff      time.Duration
	Timeout           time.Duration
}

// Client é o cliente HTTP para a API do Asana
type Client struct {
	token        string
	baseURL      string
	retryBackoff time.Duration
	httpClient   *http.Client
	limiter      *rate.Limiter
}

// NewClientWithConfig cria um cliente Asana aplicando padrões aos campos vazios
func NewClientWithConfig(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = RequestsPerMinute
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = RetryBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		token:        cfg.Token,
		baseURL:      cfg.BaseURL,
		retryBackoff: cfg.RetryBackoff,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 50),
	}
}

// buildURL monta a URL com opt_fields, limite e cursor de paginação
func (c *Client) buildURL(path, fields, offset string, paged bool) string {
	q := url.Values{}
	q.Set("opt_fields", fields)
	if paged {
		q.Set("limit", strconv.Itoa(PageSize))
	}
	if offset != "" {
		q.Set("offset", offset)
	}
	return c.baseURL + path + "?" + q.Encode()
}

// GetPortfolioProjects busca todos os projetos de um portfolio com paginação automática
func (c *Client) GetPortfolioProjects(ctx context.Context, portfolioGID string) ([]model.PortfolioItem, error) {
	var items []model.PortfolioItem
	offset := ""
	page := 0

	for {
		var resp model.PortfolioItemsResponse
		u := c.buildURL("/portfolios/"+portfolioGID+"/items", portfolioItemFields, offset, true)
		if err := c.doRequestWithRetry(ctx, u, portfolioGID, page, &resp); err != nil {
			return nil, fmt.Errorf("buscar projetos do portfolio %s: %w", portfolioGID, err)
		}

		items = append(items, resp.Data...)
		if resp.NextPage == nil || resp.NextPage.Offset == "" {
			break
		}
		offset = resp.NextPage.Offset
		page++
	}

	logger.Get(ctx).Info().
		Str("portfolio_gid", portfolioGID).
		Int("projects", len(items)).
		Int("pages", page+1).
		Msg("Projetos do portfolio coletados")
	return items, nil
}

// GetProjectTasks busca todas as tarefas de um projeto com paginação automática e retry
func (c *Client) GetProjectTasks(ctx context.Context, projectGID string) ([]model.AsanaTask, error) {
	var tasks []model.AsanaTask
	offset := ""
	page := 0

	for {
		var resp model.TaskListResponse
		u := c.buildURL("/projects/"+projectGID+"/tasks", taskFields, offset, true)
		if err := c.doRequestWithRetry(ctx, u, projectGID, page, &resp); err != nil {
			logger.Get(ctx).Error().
				Str("project_gid", projectGID).
				Int("page", page).
				Int("collected", len(tasks)).
				Err(err).
				Msg("Falha definitiva na coleta")
			return nil, fmt.Errorf("projeto %s página %d: %w", projectGID, page, err)
		}

		tasks = append(tasks, resp.Data...)

		logger.Get(ctx).Debug().
			Str("project_gid", projectGID).
			Int("page", page).
			Int("tasks", len(resp.Data)).
			Int("total", len(tasks)).
			Msg("Tasks coletadas")

		if resp.NextPage == nil || resp.NextPage.Offset == "" {
			break
		}
		offset = resp.NextPage.Offset
		page++
	}

	return tasks, nil
}

// GetProject busca dono e membros de um projeto
func (c *Client) GetProject(ctx context.Context, projectGID string) (model.ProjectInfo, error) {
	var resp model.ProjectResponse
	u := c.buildURL("/projects/"+projectGID, projectFields, "", false)
	if err := c.doRequestWithRetry(ctx, u, projectGID, 0, &resp); err != nil {
		return model.ProjectInfo{}, fmt.Errorf("buscar projeto %s: %w", projectGID, err)
	}
	return resp.Data, nil
}

// ValidateToken valida se o token é válido fazendo uma requisição simples
func (c *Client) ValidateToken(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	var resp model.UserResponse
	if err := c.doGenericRequest(ctx, c.buildURL("/users/me", "name", "", false), &resp); err != nil {
		return fmt.Errorf("validar token: %w", err)
	}
	return nil
}

// FetchPortfolioTasks busca e normaliza as tarefas de todos os projetos do portfolio.
// Projetos que falham são registrados e ignorados; a ordem dos projetos do portfolio é mantida.
func (c *Client) FetchPortfolioTasks(ctx context.Context, portfolioGID string) ([]model.Task, error) {
	items, err := c.GetPortfolioProjects(ctx, portfolioGID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, model.ErrEmptyPortfolio
	}

	results := make([][]model.Task, len(items))
	errs := make([]error, len(items))
	sem := make(chan struct{}, MaxConcurrentRequests)
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Add(1)
		go func(i int, item model.PortfolioItem) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}
			defer func() { <-sem }()

			raw, err := c.GetProjectTasks(ctx, item.GID)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = NormalizeTasks(raw, item)
		}(i, item)
	}
	wg.Wait()

	var tasks []model.Task
	failed := 0
	var lastErr error
	for i, item := range items {
		if errs[i] != nil {
			failed++
			lastErr = errs[i]
			logger.Get(ctx).Warn().
				Str("project", item.Name).
				Str("project_gid", item.GID).
				Err(errs[i]).
				Msg("Falha no projeto, continuando")
			continue
		}
		tasks = append(tasks, results[i]...)
	}

	if failed == len(items) {
		return nil, fmt.Errorf("todos os %d projetos falharam: %w", failed, lastErr)
	}

	logger.Get(ctx).Info().
		Str("portfolio_gid", portfolioGID).
		Int("projects", len(items)-failed).
		Int("failed_projects", failed).
		Int("tasks", len(tasks)).
		Msg("Todos os projetos processados")
	return tasks, nil
}

// doRequestWithRetry executa request com retry e backoff
func (c *Client) doRequestWithRetry(ctx context.Context, u, gid string, page int, result interface{}) error {
	var lastErr error

	for attempt := 1; attempt <= RetryMaxAttempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		err := c.doGenericRequest(ctx, u, result)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return err
		}

		// Rate limit, token inválido e recurso inexistente não são retentados
		if errors.Is(err, model.ErrRateLimited) || errors.Is(err, model.ErrUnauthorized) || errors.Is(err, model.ErrNotFound) {
			return err
		}

		if attempt < RetryMaxAttempts {
			logger.Get(ctx).Warn().
				Str("gid", gid).
				Int("page", page).
				Int("attempt", attempt).
				Int("max_attempts", RetryMaxAttempts).
				Err(err).
				Dur("backoff", c.retryBackoff).
				Msg("Tentativa falhou, aguardando retry")

			select {
			case <-time.After(c.retryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return lastErr
}

// doGenericRequest executa uma requisição GET para a API do Asana
func (c *Client) doGenericRequest(ctx context.Context, u string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("criar request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return model.ErrTimeout
		}
		return fmt.Errorf("executar request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusTooManyRequests:
		return model.ErrRateLimited
	case http.StatusUnauthorized, http.StatusForbidden:
		return model.ErrUnauthorized
	case http.StatusNotFound:
		return model.ErrNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidResponse, err)
	}
	return nil
}
