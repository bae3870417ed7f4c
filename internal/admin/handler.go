package admin

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"devfest-certs/certificate-portal/certificate-portal-backend/internal/attendees"
	"devfest-certs/certificate-portal/certificate-portal-backend/internal/templates"
)

// MaxUploadSize bounds the combined multipart body.
const MaxUploadSize = 32 << 20

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	Message  string                  `json:"message"`
	Success  bool                    `json:"success"`
	Import   *attendees.ImportResult `json:"import,omitempty"`
	Template *templates.Description  `json:"template,omitempty"`
}

// Handler serves the combined roster and template upload form.
type Handler struct {
	attendees *attendees.Service
	templates *templates.Service
	logger    *zap.Logger
}

func NewHandler(attendeeService *attendees.Service, templateService *templates.Service, logger *zap.Logger) *Handler {
	return &Handler{
		attendees: attendeeService,
		templates: templateService,
		logger:    logger,
	}
}

// RegisterRoutes registers the upload route on an already authenticated group.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/upload", h.upload)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize)

	roster, _ := c.FormFile("file")
	template, _ := c.FormFile("template")
	if roster == nil && template == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files received."})
		return
	}

	ctx := c.Request.Context()
	resp := UploadResponse{Success: true}
	var message []string

	if roster != nil {
		result, err := h.importRoster(c, roster)
		if err != nil {
			h.respondError(c, "roster", err)
			return
		}
		resp.Import = result
		message = append(message, fmt.Sprintf("Processed %d attendees.", result.Processed))
		if result.Skipped > 0 {
			message = append(message, fmt.Sprintf("Skipped %d rows.", result.Skipped))
		}
	}

	if template != nil {
		data, err := readFormFile(template)
		if err != nil {
			h.respondError(c, "template", err)
			return
		}
		desc, err := h.templates.Upload(ctx, template.Filename, data)
		if err != nil {
			h.respondError(c, "template", err)
			return
		}
		resp.Template = desc
		message = append(message, "Template uploaded successfully.")
	}

	resp.Message = strings.Join(message, " ")
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) importRoster(c *gin.Context, header *multipart.FileHeader) (*attendees.ImportResult, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open roster upload: %w", err)
	}
	defer f.Close()

	return h.attendees.ImportFile(c.Request.Context(), header.Filename, f)
}

func readFormFile(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (h *Handler) respondError(c *gin.Context, part string, err error) {
	switch {
	case errors.Is(err, attendees.ErrUnsupportedFormat),
		errors.Is(err, attendees.ErrMissingColumns),
		errors.Is(err, attendees.ErrUnreadable),
		errors.Is(err, templates.ErrInvalidTemplate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Upload failed", zap.String("part", part), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}
