package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	accountapp "github.com/oksasatya/go-account-service/internal/application"
	"github.com/oksasatya/go-account-service/pkg/response"
	"github.com/oksasatya/go-account-service/pkg/validation"
)

type AuthHandler struct {
	Svc    *accountapp.Service
	Logger *logrus.Logger
}

func NewAuthHandler(svc *accountapp.Service, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger}
}

type loginRequest struct {
	EmailAddress string `json:"emailAddress" binding:"required,email"`
	Password     string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,pwd"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	a, token, exp, err := h.Svc.Login(c.Request.Context(), req.EmailAddress, req.Password)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"account":      accountapp.NewAccountView(a),
		"access_token": token,
		"token_type":   "Bearer",
	}, "login successful", map[string]any{"access_expires_at": exp})
}

// ChangePassword lets the bearer change their own password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	a, err := h.Svc.ChangePasswordBySelf(c.Request.Context(), c.GetHeader("Authorization"), req.OldPassword, req.NewPassword)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, http.StatusOK, accountapp.NewAccountView(a), "password changed", nil)
}
