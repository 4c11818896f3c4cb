// Package source define a origem das tarefas do portfolio e os wrappers
// aplicados a ela (tratamento de erro, cache e métricas).
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/cache"
	"github.com/cleberrangel/asana-portfolio-api/internal/logger"
	"github.com/cleberrangel/asana-portfolio-api/internal/metrics"
	"github.com/cleberrangel/asana-portfolio-api/internal/model"
)

// TaskSource fornece as tarefas normalizadas do portfolio
type TaskSource interface {
	Fetch(ctx context.Context) ([]model.Task, error)
}

// Func adapta uma função para TaskSource
type Func func(ctx context.Context) ([]model.Task, error)

// Fetch implementa TaskSource
func (f Func) Fetch(ctx context.Context) ([]model.Task, error) {
	return f(ctx)
}

// PortfolioFetcher é implementado pelo cliente do Asana
type PortfolioFetcher interface {
	FetchPortfolioTasks(ctx context.Context, portfolioGID string) ([]model.Task, error)
}

// Portfolio cria a origem que busca todas as tarefas de um portfolio
func Portfolio(f PortfolioFetcher, portfolioGID string) TaskSource {
	return Func(func(ctx context.Context) ([]model.Task, error) {
		return f.FetchPortfolioTasks(ctx, portfolioGID)
	})
}

// WithErrorHandling registra falhas e as envolve em model.ErrUpstreamFetch
func WithErrorHandling(src TaskSource) TaskSource {
	return Func(func(ctx context.Context) ([]model.Task, error) {
		tasks, err := src.Fetch(ctx)
		if err == nil {
			return tasks, nil
		}

		logger.Get(ctx).Error().Err(err).Msg("Erro ao buscar tarefas do Asana")
		if errors.Is(err, model.ErrUpstreamFetch) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", model.ErrUpstreamFetch, err)
	})
}

// WithMetrics contabiliza buscas e falhas
func WithMetrics(src TaskSource, m *metrics.Metrics) TaskSource {
	return Func(func(ctx context.Context) ([]model.Task, error) {
		start := time.Now()
		tasks, err := src.Fetch(ctx)
		m.IncrementFetch(err == nil)

		logger.Get(ctx).Debug().
			Int("tasks", len(tasks)).
			Dur("duration", time.Since(start)).
			Bool("success", err == nil).
			Msg("Busca de tarefas finalizada")
		return tasks, err
	})
}

// CachedSource memoriza a última busca bem sucedida até o TTL do cache expirar
type CachedSource struct {
	src   TaskSource
	cache *cache.Cache
	key   string
}

// WithCache envolve a origem com o cache informado sob a chave key
func WithCache(src TaskSource, c *cache.Cache, key string) *CachedSource {
	return &CachedSource{src: src, cache: c, key: key}
}

// Fetch retorna as tarefas do cache ou busca na origem.
// Falhas não são armazenadas.
func (s *CachedSource) Fetch(ctx context.Context) ([]model.Task, error) {
	if v, ok := s.cache.Get(s.key); ok {
		if tasks, ok := v.([]model.Task); ok {
			metrics.Get().IncrementCache(true)
			logger.Get(ctx).Debug().Str("key", s.key).Int("tasks", len(tasks)).Msg("Tarefas servidas do cache")
			return tasks, nil
		}
	}
	metrics.Get().IncrementCache(false)

	tasks, err := s.src.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(s.key, tasks)
	return tasks, nil
}

// Invalidate descarta a busca memorizada
func (s *CachedSource) Invalidate() {
	s.cache.Delete(s.key)
}
