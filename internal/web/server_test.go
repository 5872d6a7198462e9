package web

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yieldsplit/ysa/internal/config"
	"github.com/yieldsplit/ysa/internal/flow"
)

func testServer() *WebServer {
	// Collaborator clients stay nil: these tests only exercise request
	// validation paths that return before any client is touched.
	return NewWebServer("0", nil, nil, nil, flow.NewRegistry(), config.DefaultScoringParameters)
}

func doRequest(ws *WebServer, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	ws.router.ServeHTTP(rec, req)
	return rec
}

func TestRecommendationsRequireValidWallet(t *testing.T) {
	ws := testServer()

	rec := doRequest(ws, http.MethodGet, "/api/recommendations", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(ws, http.MethodGet, "/api/recommendations?wallet=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecommendationsRejectUnknownProfile(t *testing.T) {
	ws := testServer()
	rec := doRequest(ws, http.MethodGet, "/api/recommendations?wallet=0x00000000000000000000000000000000000000aa&profile=yolo", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetFlowNotFound(t *testing.T) {
	ws := testServer()
	rec := doRequest(ws, http.MethodGet, "/api/flows/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExecuteValidation(t *testing.T) {
	ws := testServer()

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{{{`},
		{"bad wallet", `{"wallet": "nope", "pool": "0x0000000000000000000000000000000000001001", "action": "invest", "amount": "100"}`},
		{"bad pool", `{"wallet": "0x00000000000000000000000000000000000000aa", "pool": "nope", "action": "invest", "amount": "100"}`},
		{"zero amount", `{"wallet": "0x00000000000000000000000000000000000000aa", "pool": "0x0000000000000000000000000000000000001001", "action": "invest", "amount": "0"}`},
		{"negative amount", `{"wallet": "0x00000000000000000000000000000000000000aa", "pool": "0x0000000000000000000000000000000000001001", "action": "invest", "amount": "-5"}`},
		{"unknown action", `{"wallet": "0x00000000000000000000000000000000000000aa", "pool": "0x0000000000000000000000000000000000001001", "action": "teleport", "amount": "100"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(ws, http.MethodPost, "/api/execute", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSettingsValidation(t *testing.T) {
	ws := testServer()

	rec := doRequest(ws, http.MethodGet, "/api/settings/not-an-address?wallet=0x00000000000000000000000000000000000000aa", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(ws, http.MethodGet, "/api/settings/0x0000000000000000000000000000000000001001", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doRequest(ws, http.MethodPut, "/api/settings/0x0000000000000000000000000000000000001001",
		`{"wallet": "0x00000000000000000000000000000000000000aa", "profit_take_pct": -1, "loss_cut_pct": 10}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorResponsesAreJSON(t *testing.T) {
	ws := testServer()
	rec := doRequest(ws, http.MethodGet, "/api/flows/missing", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `"error"`)
}
