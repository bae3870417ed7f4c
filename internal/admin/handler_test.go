package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"devfest-certs/certificate-portal/certificate-portal-backend/internal/attendees"
	"devfest-certs/certificate-portal/certificate-portal-backend/internal/config"
	"devfest-certs/certificate-portal/certificate-portal-backend/internal/database"
	"devfest-certs/certificate-portal/certificate-portal-backend/internal/templates"
	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/pdf"
)

type fixture struct {
	router    *gin.Engine
	attendees *attendees.Service
	templates *templates.Service
}

func setup(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	db, err := database.Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, logger)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	attendeeService := attendees.NewService(attendees.NewRepository(db), logger, nil)
	templateService := templates.NewService(templates.NewRepository(db), nil, templates.ServiceConfig{}, logger)

	router := gin.New()
	NewHandler(attendeeService, templateService, logger).RegisterRoutes(router.Group("/api/v1/admin"))

	return &fixture{router: router, attendees: attendeeService, templates: templateService}
}

type part struct {
	field, filename string
	data            []byte
}

func (f *fixture) upload(t *testing.T, parts ...part) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		w, err := mw.CreateFormFile(p.field, p.filename)
		require.NoError(t, err)
		_, err = w.Write(p.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestUploadRequiresAFile(t *testing.T) {
	f := setup(t)

	w := f.upload(t)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No files received."}`, w.Body.String())
}

func TestUploadRosterAndTemplate(t *testing.T) {
	f := setup(t)
	template, err := pdf.SampleTemplate(pdf.DefaultSampleOptions())
	require.NoError(t, err)
	roster := "Ticket ID,Name,Email\nGOOGE25273ABCD,john doe,John@Example.org\n,missing ticket,\n"

	w := f.upload(t,
		part{"file", "roster.csv", []byte(roster)},
		part{"template", "certificate.pdf", template},
	)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp UploadResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Processed 1 attendees. Skipped 1 rows. Template uploaded successfully.", resp.Message)
	require.NotNil(t, resp.Import)
	assert.Equal(t, 1, resp.Import.Processed)
	require.NotNil(t, resp.Template)
	assert.Equal(t, templates.KindInline, resp.Template.Kind)

	attendee, err := f.attendees.GetByTicketID(context.Background(), "GOOGE25273ABCD")
	require.NoError(t, err)
	require.NotNil(t, attendee)
	assert.Equal(t, "John Doe", attendee.Name)
}

func TestUploadTemplateOnly(t *testing.T) {
	f := setup(t)
	template, err := pdf.SampleTemplate(pdf.DefaultSampleOptions())
	require.NoError(t, err)

	w := f.upload(t, part{"template", "certificate.pdf", template})

	require.Equal(t, http.StatusOK, w.Code)
	desc, err := f.templates.Describe(context.Background())
	require.NoError(t, err)
	assert.True(t, desc.Configured)
	assert.Equal(t, len(template), desc.Size)
}

func TestUploadRejectsBadFiles(t *testing.T) {
	f := setup(t)

	for name, p := range map[string]part{
		"unsupported roster": {"file", "roster.txt", []byte("a,b")},
		"corrupt workbook":   {"file", "roster.xlsx", []byte("not a zip")},
		"non-pdf template":   {"template", "certificate.pdf", []byte("PK\x03\x04")},
	} {
		t.Run(name, func(t *testing.T) {
			w := f.upload(t, p)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}

	desc, err := f.templates.Describe(context.Background())
	require.NoError(t, err)
	assert.False(t, desc.Configured)
}
