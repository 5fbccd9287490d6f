package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twinvision/backend/internal/api"
	"github.com/twinvision/backend/internal/services"
	"github.com/twinvision/backend/internal/testutil"
)

func newTestRouter(t *testing.T, ts *testutil.TestSetup) *services.ServiceProvider {
	t.Helper()

	// No predictor is injected: the hosted model client is used without a key
	provider := services.NewServiceProvider(ts.Logger, ts.Config, ts.DB)
	require.NoError(t, provider.Initialize(context.Background()))
	t.Cleanup(func() { _ = provider.Shutdown() })

	router := api.NewRouter(ts.Config, ts.Logger, provider)
	router.SetupRoutes()
	ts.Router = router.GetEngine()
	return provider
}

func TestRouter_Health(t *testing.T) {
	ts := testutil.NewTestSetup(t)
	newTestRouter(t, ts)

	resp := ts.ExecuteRequest("GET", "/health", nil)
	assert.Equal(t, http.StatusOK, resp.Code)

	var response map[string]interface{}
	ts.ParseResponse(resp, &response)
	assert.Equal(t, "healthy", response["status"])
}

func TestRouter_PredictWithoutAPIKey(t *testing.T) {
	ts := testutil.NewTestSetup(t)
	ts.Config.Prediction.APIKey = ""
	newTestRouter(t, ts)

	resp := ts.ExecuteRequest("POST", "/api/predict", map[string]interface{}{
		"temperature": 110,
		"load":        490,
		"speed":       3600,
		"timestamp":   "2024-01-01T00:00:00Z",
	})
	assert.Equal(t, http.StatusInternalServerError, resp.Code)

	var response map[string]string
	ts.ParseResponse(resp, &response)
	assert.Equal(t, "Prediction failed", response["message"])
	assert.Contains(t, response["error"], "API key")
}

func TestRouter_ArchiveRoutesRequireDatabase(t *testing.T) {
	t.Run("Should not register archive routes without a database", func(t *testing.T) {
		ts := testutil.NewTestSetup(t)
		newTestRouter(t, ts)

		resp := ts.ExecuteRequest("GET", "/api/v1/archive/alerts", nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})

	t.Run("Should serve archive routes with a database", func(t *testing.T) {
		ts := testutil.NewTestSetup(t)
		ts.SetupTestDatabase(t)
		newTestRouter(t, ts)

		resp := ts.ExecuteRequest("GET", "/api/v1/archive/alerts", nil)
		assert.Equal(t, http.StatusOK, resp.Code)
	})
}

func TestRouter_Stream(t *testing.T) {
	ts := testutil.NewTestSetup(t)
	provider := newTestRouter(t, ts)

	server := httptest.NewServer(ts.Router)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/simulation/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return provider.GetStreamService().ClientCount() == 1
	}, time.Second, 5*time.Millisecond)

	resp, err := http.Post(server.URL+"/api/v1/simulation/step", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var msg struct {
		Type    string `json:"type"`
		Payload struct {
			State struct {
				Time int `json:"time"`
			} `json:"state"`
		} `json:"payload"`
	}
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &msg))

	assert.Equal(t, string(services.StreamTypeSnapshot), msg.Type)
	assert.Equal(t, 1, msg.Payload.State.Time)
}
