package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/database"
	"github.com/joho/godotenv"
)

// Config armazena as configurações da aplicação
type Config struct {
	TokenAsana   string
	PortfolioGID string
	TokenAPI     string
	TokenAPIHash string
	Port         string
	GinMode      string
	LogLevel     string
	LogJSON      bool

	CacheTTL           time.Duration // busca de tarefas no Asana
	DashboardTTL       time.Duration // dashboard calculado
	RefreshSchedule    string
	RefreshOnStart     bool
	RefreshMaxAge      time.Duration
	RefreshMinInterval time.Duration
	EstimatorWorkers   int
	AsanaRatePerMinute int

	Database database.Config
}

// ErrMissingToken indica que um token obrigatório não foi configurado
var ErrMissingToken = errors.New("token obrigatório não configurado")

// ErrInvalidValue indica uma variável de ambiente com formato inválido
var ErrInvalidValue = errors.New("valor de configuração inválido")

// Load carrega as configurações do ambiente
func Load() (*Config, error) {
	// Tenta carregar .env de múltiplos locais
	_ = godotenv.Load()          // ./.env
	_ = godotenv.Load("../.env") // raiz do projeto

	return Parse(os.Getenv)
}

// Parse monta a configuração a partir de uma função de leitura de variáveis
func Parse(getenv func(string) string) (*Config, error) {
	p := parser{getenv: getenv}

	cfg := &Config{
		TokenAsana:   getenv("TOKEN_ASANA"),
		PortfolioGID: getenv("PORTFOLIO_GID"),
		TokenAPI:     getenv("TOKEN_API"),
		TokenAPIHash: getenv("TOKEN_API_HASH"),
		Port:         p.str("PORT", "8080"),
		GinMode:      p.str("GIN_MODE", "debug"),
		LogLevel:     p.str("LOG_LEVEL", "info"),
		LogJSON:      p.boolean("LOG_JSON", false),

		CacheTTL:           p.duration("CACHE_TTL", time.Hour),
		DashboardTTL:       p.duration("DASHBOARD_TTL", 15*time.Minute),
		RefreshOnStart:     p.boolean("REFRESH_ON_START", true),
		RefreshMaxAge:      p.duration("REFRESH_MAX_AGE", 2*time.Hour),
		RefreshMinInterval: p.duration("REFRESH_MIN_INTERVAL", 30*time.Second),
		EstimatorWorkers:   p.integer("ESTIMATOR_WORKERS", 4),
		AsanaRatePerMinute: p.integer("ASANA_RATE_PER_MINUTE", 1500),

		Database: database.Config{
			Host:     getenv("DB_HOST"),
			Port:     p.str("DB_PORT", "5432"),
			User:     getenv("DB_USER"),
			Password: getenv("DB_PASSWORD"),
			DBName:   getenv("DB_NAME"),
			SSLMode:  p.str("DB_SSLMODE", "disable"),
		},
	}

	// REFRESH_SCHEDULE_DISABLED=true desabilita o agendamento
	cfg.RefreshSchedule = p.str("REFRESH_SCHEDULE", "@every 30m")
	if p.boolean("REFRESH_SCHEDULE_DISABLED", false) {
		cfg.RefreshSchedule = ""
	}

	if p.err != nil {
		return nil, p.err
	}

	// Validações obrigatórias
	if cfg.TokenAsana == "" {
		return nil, fmt.Errorf("%w: TOKEN_ASANA", ErrMissingToken)
	}
	if cfg.PortfolioGID == "" {
		return nil, errors.New("PORTFOLIO_GID não configurado")
	}
	if cfg.TokenAPI == "" && cfg.TokenAPIHash == "" {
		return nil, fmt.Errorf("%w: TOKEN_API ou TOKEN_API_HASH", ErrMissingToken)
	}
	if cfg.EstimatorWorkers < 1 {
		return nil, fmt.Errorf("%w: ESTIMATOR_WORKERS deve ser >= 1", ErrInvalidValue)
	}
	if cfg.AsanaRatePerMinute < 1 {
		return nil, fmt.Errorf("%w: ASANA_RATE_PER_MINUTE deve ser >= 1", ErrInvalidValue)
	}

	return cfg, nil
}

// parser acumula o primeiro erro de conversão
type parser struct {
	getenv func(string) string
	err    error
}

func (p *parser) str(key, def string) string {
	if v := p.getenv(key); v != "" {
		return v
	}
	return def
}

func (p *parser) boolean(key string, def bool) bool {
	raw := p.getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		p.fail(key, raw)
		return def
	}
	return v
}

func (p *parser) integer(key string, def int) int {
	raw := p.getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(key, raw)
		return def
	}
	return v
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := p.getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v < 0 {
		p.fail(key, raw)
		return def
	}
	return v
}

func (p *parser) fail(key, raw string) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, raw)
	}
}
