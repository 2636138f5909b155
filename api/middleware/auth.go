package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/cku-autoscaler/internal/auth"
)

const (
	AuthorizationHeader = "Authorization"
	BearerPrefix        = "Bearer "
	OperatorKey         = "operator"
)

var (
	errMissingAuth = errors.New("missing authorization header")
	errAuthScheme  = errors.New("authorization header must use the Bearer scheme")
)

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader(AuthorizationHeader)
	if header == "" {
		return "", errMissingAuth
	}
	token, ok := strings.CutPrefix(header, BearerPrefix)
	if !ok || strings.TrimSpace(token) == "" {
		return "", errAuthScheme
	}
	return strings.TrimSpace(token), nil
}

func unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", `Bearer realm="cku-autoscaler"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}

// JWTAuth admits requests carrying an operator token minted by /auth/token
// and stores the operator name on the context.
func JWTAuth(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			unauthorized(c, err.Error())
			return
		}

		claims, err := authService.ValidateToken(token)
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			unauthorized(c, "token expired")
			return
		case err != nil:
			unauthorized(c, "invalid token")
			return
		}

		c.Set(OperatorKey, claims.Operator)
		c.Next()
	}
}

// GetOperator returns the authenticated operator, or "" on public routes.
func GetOperator(c *gin.Context) string {
	return c.GetString(OperatorKey)
}
