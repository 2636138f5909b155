package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/OldStager01/cku-autoscaler/internal/auth"
	"github.com/OldStager01/cku-autoscaler/internal/logger"
	"github.com/OldStager01/cku-autoscaler/pkg/validation"
)

type AuthHandler struct {
	authService *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type TokenRequest struct {
	Operator string `json:"operator" binding:"required,max=64"`
	Key      string `json:"key" binding:"required"`
}

type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	Operator  string `json:"operator"`
}

// Token godoc
// @Summary Issue operator token
// @Description Exchange the operator key for a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body TokenRequest true "Operator credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Invalid credentials"
// @Router /auth/token [post]
func (h *AuthHandler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	operator := validation.SanitizeString(req.Operator)
	if err := h.authService.CheckKey(req.Key); err != nil {
		logger.WithFields(map[string]interface{}{
			"operator": operator,
			"ip":       c.ClientIP(),
		}).Warn("Rejected operator token request")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := h.authService.GenerateToken(operator)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresIn: int(h.authService.Duration().Seconds()),
		Operator:  operator,
	})
}
