package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mfreeman451/compdata/pkg/composite"
	"github.com/mfreeman451/compdata/pkg/metrics"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	m := metrics.NewManager()
	m.Record("interfaces", 5*time.Millisecond, true)
	m.Record("interfaces", 9*time.Millisecond, false)

	composites := map[string]*composite.Composite{
		"interfaces": {ID: "interfaces", Description: "per-interface counters"},
	}

	return NewServer(m, composites)
}

func TestGetHealth(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", w.Body.String())
}

func TestGetStatus(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	w := httptest.NewRecorder()

	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp StatusResponse

	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 1, resp.Composites)
	assert.Equal(t, int64(2), resp.Requests.Total)
	assert.Equal(t, int64(1), resp.Requests.Failed)
}

func TestGetComposites(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/composites", nil)
	w := httptest.NewRecorder()

	s.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var infos []CompositeInfo

	require.NoError(t, json.NewDecoder(w.Body).Decode(&infos))
	require.Len(t, infos, 1)
	assert.Equal(t, "interfaces", infos[0].ID)
}
