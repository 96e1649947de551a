// Package handler provides HTTP handlers for API endpoints.
package handler

import (
	"net/http"

	"rancho-chat/internal/domain/account"
	"rancho-chat/internal/services"
	"rancho-chat/internal/transport/httpdto"
	"rancho-chat/pkg/logger"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	service *services.AuthService
	log     *logger.Logger
}

func NewAuthHandler(service *services.AuthService, l *logger.Logger) *AuthHandler {
	return &AuthHandler{service: service, log: orNop(l)}
}

// Signup registers the account and logs it straight in.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req httpdto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
		return
	}

	ctx := c.Request.Context()
	ok, err := h.service.Register(ctx, account.Registration{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if !ok {
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse("the received email is already in use", "EMAIL_IN_USE"))
		return
	}

	res, err := h.service.Auth(ctx, account.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if res == nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(toAuthResponse(res)))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req httpdto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
		return
	}

	res, err := h.service.Auth(c.Request.Context(), account.Credentials{Email: req.Email, Password: req.Password})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if res == nil {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(toAuthResponse(res)))
}

func toAuthResponse(res *services.AuthenticationResult) httpdto.AuthResponse {
	return httpdto.AuthResponse{AccessToken: res.AccessToken, Name: res.Name, Email: res.Email}
}
