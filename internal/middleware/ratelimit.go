package middleware

import (
	"net/http"
	"time"

	"github.com/cleberrangel/asana-portfolio-api/internal/logger"
	"github.com/cleberrangel/asana-portfolio-api/internal/model"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimit limita a frequência de uma rota cara (ex.: atualização manual).
// Acima do limite responde 429 sem chamar o handler.
func RateLimit(every time.Duration, burst int) gin.HandlerFunc {
	limiter := rate.NewLimiter(rate.Every(every), burst)

	return func(c *gin.Context) {
		if !limiter.Allow() {
			logger.FromGin(c).Warn().
				Str("path", c.FullPath()).
				Str("client_ip", c.ClientIP()).
				Msg("Limite de requisições excedido")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, model.ErrorResponse{
				Success: false,
				Error:   "muitas requisições, tente novamente mais tarde",
			})
			return
		}
		c.Next()
	}
}
