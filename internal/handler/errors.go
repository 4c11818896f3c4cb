package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/cleberrangel/asana-portfolio-api/internal/logger"
	"github.com/cleberrangel/asana-portfolio-api/internal/model"
	"github.com/gin-gonic/gin"
)

// handleError converte erros do serviço em respostas HTTP
func handleError(c *gin.Context, err error) {
	status, resp := errorResponse(err)

	log := logger.FromGin(c)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Int("status", status).Msg("Erro ao processar requisição")
	} else {
		log.Warn().Err(err).Int("status", status).Msg("Requisição rejeitada")
	}

	c.JSON(status, resp)
}

func errorResponse(err error) (int, model.ErrorResponse) {
	switch {
	case errors.Is(err, model.ErrRateLimited):
		return http.StatusTooManyRequests, model.ErrorResponse{
			Error:   "rate limit excedido na API do Asana",
			Details: "aguarde alguns segundos e tente novamente",
		}
	case errors.Is(err, model.ErrUnauthorized):
		return http.StatusUnauthorized, model.ErrorResponse{
			Error:   "token do Asana inválido",
			Details: "verifique a variável TOKEN_ASANA",
		}
	case errors.Is(err, model.ErrProjectNotFound):
		return http.StatusNotFound, model.ErrorResponse{
			Error:   "projeto não encontrado",
			Details: err.Error(),
		}
	case errors.Is(err, model.ErrRunNotFound):
		return http.StatusNotFound, model.ErrorResponse{
			Error:   "execução não encontrada",
			Details: err.Error(),
		}
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrEmptyPortfolio):
		return http.StatusNotFound, model.ErrorResponse{
			Error:   "portfolio não encontrado ou vazio",
			Details: "verifique a variável PORTFOLIO_GID",
		}
	case errors.Is(err, model.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, model.ErrorResponse{
			Error:   "timeout na requisição",
			Details: "a API do Asana demorou muito para responder",
		}
	case errors.Is(err, model.ErrPersistenceDisabled):
		return http.StatusServiceUnavailable, model.ErrorResponse{
			Error:   "histórico indisponível",
			Details: "configure DB_HOST para habilitar a persistência",
		}
	case errors.Is(err, model.ErrUpstreamFetch):
		return http.StatusBadGateway, model.ErrorResponse{
			Error:   "falha ao coletar tarefas do Asana",
			Details: err.Error(),
		}
	default:
		return http.StatusInternalServerError, model.ErrorResponse{
			Error:   "erro interno",
			Details: err.Error(),
		}
	}
}

func badRequest(c *gin.Context, msg, details string) {
	c.JSON(http.StatusBadRequest, model.ErrorResponse{
		Success: false,
		Error:   msg,
		Details: details,
	})
}
