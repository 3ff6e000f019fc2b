package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/soundcraft/server/internal/module/user"
	"github.com/soundcraft/server/internal/shared/response"
)

// Handler handles authentication HTTP requests.
type Handler struct {
	service *Service
}

// NewHandler creates a new auth handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers auth routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/verify-email", h.VerifyEmail)
		authGroup.POST("/resend-verification", h.ResendVerification)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/refresh", h.Refresh)
		authGroup.POST("/logout", h.Logout)
		authGroup.POST("/forgot-password", h.ForgotPassword)
		authGroup.POST("/reset-password", h.ResetPassword)
	}
}

// Register creates a new account and sends a verification code.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Register(c.Request.Context(), &req)
	if err != nil {
		handleAuthError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"user":    resp,
		"message": "verification code sent",
	})
}

// VerifyEmail confirms an account with the emailed code.
func (h *Handler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.VerifyEmail(c.Request.Context(), &req); err != nil {
		handleAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "verified"})
}

// ResendVerification sends a fresh verification code.
func (h *Handler) ResendVerification(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.ResendVerification(c.Request.Context(), req.Email); err != nil {
		response.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// Login authenticates a user and returns a token pair.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Login(c.Request.Context(), &req, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		handleAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh rotates a refresh token.
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Refresh(c.Request.Context(), req.RefreshToken, c.Request.UserAgent(), c.ClientIP())
	if err != nil {
		handleAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Logout revokes a refresh token.
func (h *Handler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		handleAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged_out"})
}

// ForgotPassword sends a password reset code.
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		response.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "sent"})
}

// ResetPassword completes a password reset with the emailed code.
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), &req); err != nil {
		handleAuthError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "password_reset"})
}

func handleAuthError(c *gin.Context, err error) {
	response.HandleErrorWithDefault(c, err, []response.ErrorMapping{
		{Err: user.ErrEmailAlreadyExists, Status: http.StatusConflict},
		{Err: ErrInvalidCredentials, Status: http.StatusUnauthorized},
		{Err: ErrEmailNotVerified, Status: http.StatusForbidden},
		{Err: ErrInvalidOTP, Status: http.StatusBadRequest},
		{Err: ErrTooManyAttempts, Status: http.StatusTooManyRequests},
		{Err: ErrRefreshTokenNotFound, Status: http.StatusUnauthorized},
		{Err: ErrRefreshTokenExpired, Status: http.StatusUnauthorized},
		{Err: ErrRefreshTokenRevoked, Status: http.StatusUnauthorized},
	})
}
