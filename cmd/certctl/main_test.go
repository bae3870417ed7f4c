package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devfest-certs/certificate-portal/certificate-portal-backend/internal/certificates"
	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/pdf"
	"devfest-certs/certificate-portal/certificate-portal-backend/pkg/security"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "certificates.db"))
	t.Setenv("TEMPLATE_DIR", dir)
	t.Setenv("PUBLIC_URL", "https://certs.example.org")
	t.Setenv("LOG_LEVEL", "error")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "missing.json")))
	err := cmd.Execute()
	return out.String(), err
}

func TestTemplateSample(t *testing.T) {
	out := filepath.Join(t.TempDir(), "sample.pdf")

	stdout, err := run(t, "template", "sample", out, "--title", "Certificate of Completion")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Wrote "+out)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NoError(t, pdf.Validate(data))
}

func TestImportIssueVerify(t *testing.T) {
	dir := setupEnv(t)

	// The fallback template location is used until one is uploaded.
	_, err := run(t, "template", "sample", filepath.Join(dir, "uploads", "certificate_template.pdf"))
	require.NoError(t, err)

	roster := filepath.Join(dir, "roster.csv")
	require.NoError(t, os.WriteFile(roster, []byte("Ticket,Name\nGOOGE25273ABCD,jane roe\nBAD-ROW,\n"), 0o600))
	stdout, err := run(t, "import", roster)
	require.NoError(t, err)
	var result struct {
		Processed int `json:"processed"`
		Skipped   int `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Skipped)

	out := filepath.Join(dir, "out", "certificate.pdf")
	stdout, err = run(t, "issue", "GOOGE25273ABCD", "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Jane Roe")
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	stdout, err = run(t, "verify", "GOOGE25273ABCD")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"verified": true`)

	_, err = run(t, "verify", "NOPE")
	assert.ErrorIs(t, err, certificates.ErrNotFound)

	_, err = run(t, "issue", "NOPE")
	assert.ErrorIs(t, err, certificates.ErrNotFound)
}

func TestTemplateUploadAndShow(t *testing.T) {
	dir := setupEnv(t)
	template := filepath.Join(dir, "template.pdf")
	_, err := run(t, "template", "sample", template)
	require.NoError(t, err)

	_, err = run(t, "template", "upload", template)
	require.NoError(t, err)

	stdout, err := run(t, "template", "show")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"kind": "inline"`)
}

func TestHashPassword(t *testing.T) {
	stdout, err := run(t, "hash-password", "s3cret")
	require.NoError(t, err)

	hash := strings.TrimSpace(stdout)
	ok, err := security.NewValidator(security.Credentials{Email: "a@example.org", PasswordHash: hash}).Validate("a@example.org", "s3cret")
	require.NoError(t, err)
	assert.True(t, ok)
}
