package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jakaria-jihad/certchain/internal/admins"
	"github.com/jakaria-jihad/certchain/internal/identity"
	"go.uber.org/zap"
)

// AuthHandler handles admin session authentication.
type AuthHandler struct {
	admins *admins.Service
	tokens *identity.SessionIssuer
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(adminSvc *admins.Service, tokens *identity.SessionIssuer, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{admins: adminSvc, tokens: tokens, logger: logger}
}

// Register mounts the auth routes on the given router group.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/auth/login", h.Login)
}

type loginRequest struct {
	AdminID  string `json:"admin_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login — exchanges admin credentials for a session
// token. Logout is client-side: drop the token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "admin_id and password are required"})
		return
	}

	admin, err := h.admins.Authenticate(c.Request.Context(), req.AdminID, req.Password)
	if err != nil {
		if errors.Is(err, admins.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.Error("login failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	token, err := h.tokens.Issue(admin.AdminID, admin.Role)
	if err != nil {
		h.logger.Error("issue session token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.logger.Info("admin logged in",
		zap.String("admin_id", admin.AdminID),
		zap.String("role", string(admin.Role)),
	)
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"admin": admin.Public(),
	})
}
