package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"PINJAM-backend/internal/platform/apierr"
)

type AuthHandler struct{ svc AuthService }

func RegisterRoutes(r gin.IRoutes, svc AuthService) {
	h := &AuthHandler{svc: svc}
	r.POST("/login", h.Login)
}

type LoginRequest struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token   string `json:"token"`
	Message string `json:"message"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, apierr.Body(apierr.CodeValidation, "invalid request"))
		return
	}

	token, err := h.svc.Login(c.Request.Context(), req.ID, req.Password)
	switch {
	case errors.Is(err, ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, apierr.Body(apierr.CodeUnauthorized, err.Error()))
		return
	case errors.Is(err, ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, apierr.Body(apierr.CodeUnauthorized, "invalid id or password"))
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, apierr.FromErr(err))
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token, Message: "Login successful"})
}
