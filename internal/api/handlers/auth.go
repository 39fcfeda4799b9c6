package handlers

import (
	"net/http"

	"opsboard/internal/auth"
	"opsboard/internal/models"
	"opsboard/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *auth.Service
}

func NewAuthHandler(authService *auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Register godoc
// @Summary Register a dashboard account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "registration payload"
// @Success 201 {object} models.UserResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParams, err.Error())
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, http.StatusConflict, response.CodeInvalidParams, "could not create account")
		return
	}

	response.Created(c, models.UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		Admin:     user.Admin,
		CreatedAt: user.CreatedAt,
	})
}

// Login godoc
// @Summary Exchange credentials for a JWT
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "login payload"
// @Success 200 {object} models.LoginResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeInvalidParams, err.Error())
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid credentials")
		return
	}

	response.OK(c, result)
}
