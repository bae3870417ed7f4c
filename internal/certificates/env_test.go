package certificates

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"devfest-certs/certificate-portal/certificate-portal-backend/internal/attendees"
	"devfest-certs/certificate-portal/certificate-portal-backend/internal/templates"
	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/pdf"
)

const fallbackPath = "uploads/certificate_template.pdf"

type testEnv struct {
	dir          string
	certificates *Service
	router       *gin.Engine
}

// newTestEnv wires real repositories on in-memory SQLite, a fallback template
// on disk and one attendee, GOOGE25273ABCD / "john doe".
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&attendees.Attendee{}, &attendees.ImportBatch{}, &templates.Setting{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	dir := t.TempDir()
	template, err := pdf.SampleTemplate(pdf.DefaultSampleOptions())
	require.NoError(t, err)
	full := filepath.Join(dir, filepath.FromSlash(fallbackPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, template, 0o600))

	attendeeService := attendees.NewService(attendees.NewRepository(db), logger, nil)
	_, err = attendeeService.Import(context.Background(), "roster.csv", []attendees.Row{
		{Line: 1, TicketID: "GOOGE25273ABCD", Name: "john doe"},
	})
	require.NoError(t, err)

	resolver := templates.NewResolver(templates.NewRepository(db), nil, templates.ResolverConfig{
		Dir:          dir,
		FallbackPath: fallbackPath,
		Timeout:      time.Second,
	}, logger, nil)

	options := pdf.DefaultOptions()
	options.VerificationBaseURL = "https://certs.example.org"
	compositor, err := pdf.NewCompositor(options)
	require.NoError(t, err)

	service := NewService(attendeeService, resolver, compositor, Config{
		EventLabel:    "DevFest Test 2025",
		LookupTimeout: time.Second,
	}, logger, nil)

	router := gin.New()
	NewHandler(service, logger).RegisterRoutes(router)

	return &testEnv{dir: dir, certificates: service, router: router}
}

func (e *testEnv) removeFallback(t *testing.T) {
	t.Helper()
	require.NoError(t, os.Remove(filepath.Join(e.dir, filepath.FromSlash(fallbackPath))))
}
