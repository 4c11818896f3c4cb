package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/cleberrangel/asana-portfolio-api/internal/model"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// QueryTokenParam é usado por clientes WebSocket, que não conseguem enviar headers
const QueryTokenParam = "access_token"

// AuthConfig contém a configuração do middleware de autenticação.
// Quando TokenAPIHash está definido, o token é comparado com o hash bcrypt.
type AuthConfig struct {
	TokenAPI     string
	TokenAPIHash string
	AllowQuery   bool
}

// HashToken gera o hash bcrypt de um token de API
func HashToken(token string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	return string(bytes), err
}

// ValidToken verifica o token recebido contra a configuração
func (cfg AuthConfig) ValidToken(token string) bool {
	if token == "" {
		return false
	}
	if cfg.TokenAPIHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(cfg.TokenAPIHash), []byte(token)) == nil
	}
	if cfg.TokenAPI == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(cfg.TokenAPI)) == 1
}

// BearerAuth retorna um middleware que valida o token Bearer
func BearerAuth(cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")

		var token string
		switch {
		case authHeader != "":
			// Extrai o token do formato "Bearer {token}"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				abortUnauthorized(c, "formato inválido, esperado: Bearer {token}")
				return
			}
			token = strings.TrimSpace(parts[1])
		case cfg.AllowQuery && c.Query(QueryTokenParam) != "":
			token = c.Query(QueryTokenParam)
		default:
			abortUnauthorized(c, "header Authorization ausente")
			return
		}

		if !cfg.ValidToken(token) {
			abortUnauthorized(c, "token inválido")
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
		Success: false,
		Error:   msg,
	})
}
