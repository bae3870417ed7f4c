package templates

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers template routes on an already authenticated group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	template := router.Group("/template")
	{
		template.GET("", h.describeTemplate)
		template.PUT("/path", h.setTemplatePath)
	}
}

type setPathRequest struct {
	Path string `json:"path" binding:"required"`
}

func (h *Handler) describeTemplate(c *gin.Context) {
	desc, err := h.service.Describe(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to describe template", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.JSON(http.StatusOK, desc)
}

func (h *Handler) setTemplatePath(c *gin.Context) {
	var req setPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "path is required"})
		return
	}

	desc, err := h.service.SetPath(c.Request.Context(), req.Path)
	if err != nil {
		if errors.Is(err, ErrInvalidPath) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to set template path", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.JSON(http.StatusOK, desc)
}
