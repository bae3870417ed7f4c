package certificates

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(env *testEnv, path, accept string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func TestDownloadCertificate(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/certificate?ticketId=GOOGE25273ABCD", "/api/certificate?ticketId=GOOGE25273ABCD"} {
		w := get(env, path, "")

		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="Certificate_John_Doe.pdf"`, w.Header().Get("Content-Disposition"))
		assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
	}
}

func TestDownloadCertificateErrors(t *testing.T) {
	env := newTestEnv(t)

	w := get(env, "/certificate", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(env, "/certificate?ticketId=UNKNOWN-999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"ticket ID not recognized, confirm you checked in"}`, w.Body.String())

	env.removeFallback(t)
	w = get(env, "/certificate?ticketId=GOOGE25273ABCD", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"certificate system misconfigured"}`, w.Body.String())
}

func TestVerifyPage(t *testing.T) {
	env := newTestEnv(t)

	w := get(env, "/verify/GOOGE25273ABCD", "text/html")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Verified Certificate")
	assert.Contains(t, w.Body.String(), "John Doe")
	assert.Contains(t, w.Body.String(), "DevFest Test 2025")

	w = get(env, "/verify/UNKNOWN-999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid Certificate")
	assert.Contains(t, w.Body.String(), "UNKNOWN-999")

	w = get(env, "/verify/%3Cscript%3E", "")
	assert.NotContains(t, w.Body.String(), "<script>")
}

func TestVerifyJSON(t *testing.T) {
	env := newTestEnv(t)

	w := get(env, "/verify/GOOGE25273ABCD", "application/json")
	require.Equal(t, http.StatusOK, w.Code)
	var v Verification
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	assert.Equal(t, Verification{Verified: true, Name: "John Doe", TicketID: "GOOGE25273ABCD", EventLabel: "DevFest Test 2025"}, v)

	w = get(env, "/api/verify/UNKNOWN-999", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"verified":false,"ticket_id":"UNKNOWN-999"}`, w.Body.String())
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename="Certificate_John_Doe.pdf"`, ContentDisposition("Certificate_John_Doe.pdf"))
	assert.Equal(t,
		`attachment; filename="Certificate_Jos_____ez.pdf"; filename*=UTF-8''Certificate_Jos%C3%A9_%C3%91%C3%BA%C3%B1ez.pdf`,
		ContentDisposition("Certificate_José_Ñúñez.pdf"))
	assert.Equal(t, `attachment; filename="Certificate_A_B_.pdf"; filename*=UTF-8''Certificate_A_B%22.pdf`,
		ContentDisposition(`Certificate_A_B".pdf`))
}
