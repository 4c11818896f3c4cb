package model

import "errors"

var (
	// ErrRateLimited indica que a API do Asana retornou 429
	ErrRateLimited = errors.New("rate limit excedido na API do Asana")

	// ErrUnauthorized indica token inválido
	ErrUnauthorized = errors.New("token do Asana inválido ou expirado")

	// ErrNotFound indica recurso não encontrado
	ErrNotFound = errors.New("recurso não encontrado no Asana")

	// ErrTimeout indica timeout na requisição
	ErrTimeout = errors.New("timeout na requisição para o Asana")

	// ErrInvalidResponse indica resposta inválida da API
	ErrInvalidResponse = errors.New("resposta inválida da API do Asana")

	// ErrEmptyPortfolio indica que o portfolio não possui projetos
	ErrEmptyPortfolio = errors.New("nenhum projeto encontrado no portfolio")

	// ErrUpstreamFetch envolve qualquer falha na coleta de tarefas
	ErrUpstreamFetch = errors.New("falha ao coletar tarefas do Asana")

	// ErrProjectNotFound indica projeto ausente na última estimativa
	ErrProjectNotFound = errors.New("projeto não encontrado")

	// ErrRunNotFound indica execução de estimativa inexistente no histórico
	ErrRunNotFound = errors.New("execução de estimativa não encontrada")

	// ErrPersistenceDisabled indica que o banco de dados não foi configurado
	ErrPersistenceDisabled = errors.New("persistência desabilitada")

	// ErrMissingData é registrado quando um projeto cai nos valores padrão por falta de dados
	ErrMissingData = errors.New("dados insuficientes para estimativa")

	// ErrDegenerateInput é registrado quando um projeto não possui tarefas
	ErrDegenerateInput = errors.New("projeto sem tarefas")
)
