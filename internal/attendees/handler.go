package attendees

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves the admin attendee endpoints.
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

// RegisterRoutes registers attendee routes on an already authenticated group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	attendees := router.Group("/attendees")
	{
		attendees.GET("", h.listAttendees)
		attendees.GET("/lookup", h.lookupByEmail)
		attendees.GET("/export", h.exportAttendees)
		attendees.DELETE("/:id", h.deleteAttendee)
	}
	router.GET("/imports", h.listImports)
}

func (h *Handler) listAttendees(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))

	resp, err := h.service.List(c.Request.Context(), ListFilter{
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		h.logger.Error("Failed to list attendees", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) lookupByEmail(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	attendee, err := h.service.GetByEmail(c.Request.Context(), email)
	if err != nil {
		h.logger.Error("Failed to look up attendee", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	if attendee == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Attendee not found"})
		return
	}
	c.JSON(http.StatusOK, attendee)
}

func (h *Handler) exportAttendees(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.service.Export(c.Request.Context(), &buf); err != nil {
		h.logger.Error("Failed to export attendees", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="attendees.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *Handler) deleteAttendee(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid attendee ID"})
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Attendee not found"})
			return
		}
		h.logger.Error("Failed to delete attendee", zap.String("id", id.String()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) listImports(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	batches, err := h.service.ListImports(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list imports", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}
	if batches == nil {
		batches = []ImportBatch{}
	}
	c.JSON(http.StatusOK, gin.H{"imports": batches})
}
