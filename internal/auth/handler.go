package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/security"
)

type Handler struct {
	credentials  security.Validator
	sessions     *SessionManager
	secureCookie bool
	logger       *zap.Logger
}

func NewHandler(credentials security.Validator, sessions *SessionManager, secureCookie bool, logger *zap.Logger) *Handler {
	return &Handler{
		credentials:  credentials,
		sessions:     sessions,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks the admin credentials and sets the session cookie.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ok, err := h.credentials.Validate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, security.ErrCredentialsNotConfigured) {
			h.logger.Error("Admin credentials not set in configuration")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server configuration error"})
			return
		}
		h.logger.Error("Failed to validate credentials", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !ok {
		h.logger.Warn("Rejected admin login", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := h.sessions.Issue(req.Email)
	if err != nil {
		h.logger.Error("Failed to sign session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, token, int(h.sessions.TTL().Seconds()), "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Logout clears the session cookie.
func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
