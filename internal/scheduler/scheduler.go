// Package scheduler agenda a atualização periódica das estimativas.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/logger"
	"github.com/cleberrangel/asana-portfolio-api/internal/model"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultRefreshTimeout limita a duração de uma atualização agendada
const DefaultRefreshTimeout = 10 * time.Minute

// Recalculator refaz o dashboard; a busca no Asana é reaproveitada enquanto
// o cache da origem for válido
type Recalculator interface {
	Recalculate(ctx context.Context) (*model.Dashboard, error)
}

// RefreshScheduler executa Recalculate conforme uma expressão cron
// (com segundos) ou um descritor como "@every 30m"
type RefreshScheduler struct {
	cron           *cron.Cron
	refresher      Recalculator
	schedule       string
	runImmediately bool
	timeout        time.Duration

	mu    sync.Mutex
	jobID cron.EntryID
}

// New cria o agendador; jobs sobrepostos são ignorados enquanto o anterior roda
func New(refresher Recalculator, schedule string, runImmediately bool) *RefreshScheduler {
	cl := cronLogger{log: logger.Global()}
	return &RefreshScheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		refresher:      refresher,
		schedule:       schedule,
		runImmediately: runImmediately,
		timeout:        DefaultRefreshTimeout,
	}
}

// Start registra o job e inicia o cron
func (s *RefreshScheduler) Start() error {
	s.mu.Lock()
	id, err := s.cron.AddFunc(s.schedule, s.run)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("erro ao agendar atualização %q: %w", s.schedule, err)
	}
	s.jobID = id
	s.mu.Unlock()

	s.cron.Start()
	logger.Global().Info().
		Str("schedule", s.schedule).
		Time("next_run", s.NextRun()).
		Msg("Agendador de atualização iniciado")

	if s.runImmediately {
		go s.run()
	}
	return nil
}

// Stop interrompe o cron e aguarda o job em andamento
func (s *RefreshScheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Global().Info().Msg("Agendador de atualização parado")
}

// Schedule retorna o agendamento atual
func (s *RefreshScheduler) Schedule() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule
}

// NextRun retorna o horário da próxima execução (zero se o cron não iniciou)
func (s *RefreshScheduler) NextRun() time.Time {
	s.mu.Lock()
	id := s.jobID
	s.mu.Unlock()
	return s.cron.Entry(id).Next
}

func (s *RefreshScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	ctx = logger.WithRequestID(ctx, "cron-"+uuid.New().String()[:8])

	start := time.Now()
	dashboard, err := s.refresher.Recalculate(ctx)
	if err != nil {
		logger.Get(ctx).Error().Err(err).Dur("duration", time.Since(start)).Msg("Atualização agendada falhou")
		return
	}

	logger.Get(ctx).Info().
		Str("run_id", dashboard.RunID).
		Int("projects", len(dashboard.Estimates)).
		Dur("duration", time.Since(start)).
		Msg("Atualização agendada concluída")
}

// cronLogger adapta o zerolog para a interface de log do cron
type cronLogger struct {
	log *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
