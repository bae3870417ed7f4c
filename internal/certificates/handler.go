package certificates

import (
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/gin-gonic/gin/render"
	"go.uber.org/zap"

	"devfest-certs/certificate-portal/certificate-portal-backend/internal/templates"
	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/pdf"
)

//go:embed web/verify.html
var webFS embed.FS

var verifyPage = template.Must(template.ParseFS(webFS, "web/verify.html"))

const misconfigured = "certificate system misconfigured"

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

// RegisterRoutes registers the public certificate and verification routes.
func (h *Handler) RegisterRoutes(router gin.IRoutes) {
	router.GET("/certificate", h.downloadCertificate)
	router.GET("/api/certificate", h.downloadCertificate)
	router.GET("/verify/:ticketId", h.verifyPage)
	router.GET("/api/verify/:ticketId", h.verifyJSON)
}

func (h *Handler) downloadCertificate(c *gin.Context) {
	ticketID := c.Query("ticketId")

	cert, err := h.service.Issue(c.Request.Context(), ticketID)
	if err != nil {
		h.writeIssueError(c, ticketID, err)
		return
	}

	c.Header("Content-Disposition", ContentDisposition(cert.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", cert.Data)
}

func (h *Handler) writeIssueError(c *gin.Context, ticketID string, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ticket ID is required"})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNotFound.Error()})
	case errors.Is(err, templates.ErrTemplateUnavailable),
		errors.Is(err, pdf.ErrTemplateCorrupt),
		errors.Is(err, pdf.ErrFontLoad):
		h.logger.Error("Certificate system misconfigured", zap.String("ticket_id", ticketID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": misconfigured})
	default:
		h.logger.Error("Failed to issue certificate", zap.String("ticket_id", ticketID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}

func (h *Handler) verifyPage(c *gin.Context) {
	if c.NegotiateFormat(binding.MIMEHTML, binding.MIMEJSON) == binding.MIMEJSON {
		h.verifyJSON(c)
		return
	}

	result, err := h.service.Verify(c.Request.Context(), c.Param("ticketId"))
	if err != nil {
		h.logger.Error("Verification lookup failed", zap.String("ticket_id", c.Param("ticketId")), zap.Error(err))
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	status := http.StatusOK
	if !result.Verified {
		status = http.StatusNotFound
	}
	c.Render(status, render.HTML{Template: verifyPage, Name: "verify.html", Data: result})
}

func (h *Handler) verifyJSON(c *gin.Context) {
	result, err := h.service.Verify(c.Request.Context(), c.Param("ticketId"))
	if err != nil {
		h.logger.Error("Verification lookup failed", zap.String("ticket_id", c.Param("ticketId")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		return
	}

	status := http.StatusOK
	if !result.Verified {
		status = http.StatusNotFound
	}
	c.JSON(status, result)
}

// ContentDisposition builds an attachment header. Non-ASCII names get an
// ASCII fallback plus an RFC 5987 filename* parameter.
func ContentDisposition(filename string) string {
	fallback := asciiFilename(filename)
	if fallback == filename {
		return `attachment; filename="` + filename + `"`
	}
	return `attachment; filename="` + fallback + `"; filename*=UTF-8''` + url.PathEscape(filename)
}

func asciiFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '"' || r == '\\' || r < 0x20 || r > 0x7e:
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
