package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusCreated, map[string]string{"name": "caribbeat"})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok","data":{"name":"caribbeat"}}`, rr.Body.String())
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, http.StatusForbidden, "ticket_required", "buy a ticket to watch")

	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.JSONEq(t,
		`{"status":"error","error":{"code":"ticket_required","message":"buy a ticket to watch"}}`,
		rr.Body.String())
}

func TestReadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":"Soca Mix"}`))
	var body struct {
		Title string `json:"title"`
	}
	require.NoError(t, ReadJSON(req, &body))
	assert.Equal(t, "Soca Mix", body.Title)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
	assert.Error(t, ReadJSON(req, &body))
}
