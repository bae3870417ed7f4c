package v1

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"devfest-certs/certificate-portal/certificate-portal-backend/internal/admin"
	"devfest-certs/certificate-portal/certificate-portal-backend/internal/attendees"
	"devfest-certs/certificate-portal/certificate-portal-backend/internal/auth"
	"devfest-certs/certificate-portal/certificate-portal-backend/internal/certificates"
	"devfest-certs/certificate-portal/certificate-portal-backend/internal/config"
	"devfest-certs/certificate-portal/certificate-portal-backend/internal/database"
	"devfest-certs/certificate-portal/certificate-portal-backend/internal/monitoring"
	"devfest-certs/certificate-portal/certificate-portal-backend/internal/templates"
	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/pdf"
	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/security"
	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/storage"
)

// API holds the wired services and the HTTP router.
type API struct {
	Attendees    *attendees.Service
	Templates    *templates.Service
	Resolver     *templates.Resolver
	Certificates *certificates.Service
	Sessions     *auth.SessionManager
	Router       *gin.Engine
}

// CompositorOptions maps the certificate section onto compositor options.
func CompositorOptions(cfg *config.Config) pdf.Options {
	c := cfg.Certificate
	return pdf.Options{
		FontSize:            c.FontSize,
		VerticalOffset:      c.VerticalOffset,
		Color:               pdf.Color{R: c.ColorR, G: c.ColorG, B: c.ColorB},
		FontPath:            c.FontPath,
		QREnabled:           !c.DisableQR,
		QRSize:              c.QRSize,
		QRBottomOffset:      c.QRBottomOffset,
		VerificationBaseURL: cfg.Server.PublicURL,
	}
}

// NewServices wires the domain services. objects and metrics may be nil.
func NewServices(cfg *config.Config, db *gorm.DB, objects storage.S3Client, logger *zap.Logger, metrics *monitoring.Metrics) (*API, error) {
	compositor, err := pdf.NewCompositor(CompositorOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create compositor: %w", err)
	}

	sessions, err := auth.NewSessionManager(cfg.Admin.SessionSecret, cfg.Admin.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}
	if cfg.Admin.SessionSecret == "" {
		logger.Warn("No session secret configured, admin sessions will not survive a restart")
	}

	templateRepo := templates.NewRepository(db)
	attendeeService := attendees.NewService(attendees.NewRepository(db), logger, metrics)
	templateService := templates.NewService(templateRepo, objects, templates.ServiceConfig{
		Bucket:     cfg.Storage.Bucket,
		Prefix:     cfg.Storage.Prefix,
		PresignTTL: cfg.Storage.PresignTTL,
	}, logger)
	resolver := templates.NewResolver(templateRepo, objects, templates.ResolverConfig{
		Dir:          cfg.Storage.TemplateDir,
		FallbackPath: cfg.Storage.TemplatePath,
		Bucket:       cfg.Storage.Bucket,
		Timeout:      cfg.Storage.LookupTimeout,
	}, logger, metrics)
	certificateService := certificates.NewService(attendeeService, resolver, compositor, certificates.Config{
		EventLabel:    cfg.Certificate.EventLabel,
		LookupTimeout: cfg.Storage.LookupTimeout,
	}, logger, metrics)

	return &API{
		Attendees:    attendeeService,
		Templates:    templateService,
		Resolver:     resolver,
		Certificates: certificateService,
		Sessions:     sessions,
	}, nil
}

// Setup wires the services and registers every route.
func Setup(cfg *config.Config, db *gorm.DB, objects storage.S3Client, logger *zap.Logger, metrics *monitoring.Metrics) (*API, error) {
	api, err := NewServices(cfg, db, objects, logger, metrics)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger), metrics.Middleware(), cors(cfg.Server.AllowedOrigins))

	// Public certificate and verification routes
	certificates.NewHandler(api.Certificates, logger).RegisterRoutes(router)

	credentials := security.NewValidator(security.Credentials{
		Email:        cfg.Admin.Email,
		Password:     cfg.Admin.Password,
		PasswordHash: cfg.Admin.PasswordHash,
	})
	auth.RegisterRoutes(router, auth.NewHandler(credentials, api.Sessions, cfg.Admin.SecureCookie, logger))

	adminGroup := router.Group("/api/v1/admin", auth.RequireAdmin(api.Sessions))
	{
		admin.NewHandler(api.Attendees, api.Templates, logger).RegisterRoutes(adminGroup)
		attendees.NewHandler(api.Attendees, logger).RegisterRoutes(adminGroup)
		templates.NewHandler(api.Templates, logger).RegisterRoutes(adminGroup)
	}

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		if err := database.Ping(db, 2*time.Second); err != nil {
			logger.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"timestamp": time.Now(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})
	if metrics != nil {
		router.GET("/metrics", metrics.Handler())
	}

	api.Router = router
	return api, nil
}

// cors allows the configured origins. A "*" entry or an empty list allows any
// origin; credentials are only allowed for explicitly listed origins.
func cors(allowed []string) gin.HandlerFunc {
	wildcard := len(allowed) == 0 || slices.Contains(allowed, "*")

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case origin != "" && slices.Contains(allowed, origin):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		case wildcard:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("Request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
