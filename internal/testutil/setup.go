// Package testutil holds shared fixtures for package tests
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/twinvision/backend/internal/config"
	"github.com/twinvision/backend/internal/db"
	"github.com/twinvision/backend/internal/utils"
	"go.uber.org/zap/zaptest"
)

// TestSetup contains utilities for testing
type TestSetup struct {
	Router   *gin.Engine
	DB       *db.Database
	Logger   *utils.Logger
	Config   *config.Config
	Requires *require.Assertions
}

// NewTestSetup creates a test router, logger and config. The database is only
// opened by SetupTestDatabase.
func NewTestSetup(t testing.TB) *TestSetup {
	t.Helper()

	// Set Gin to test mode
	gin.SetMode(gin.TestMode)

	logger := &utils.Logger{Logger: zaptest.NewLogger(t)}

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:        8080,
			Environment: "test",
		},
		Simulation: config.SimulationConfig{
			TickIntervalMs:   60 * 60 * 1000,
			HistorySize:      300,
			AlertListSize:    50,
			AlertProbability: 0.2,
			Seed:             1,
		},
		Prediction: config.PredictionConfig{
			Model:       "gemini-1.5-flash",
			TimeoutSec:  5,
			Temperature: 0.2,
		},
		Database: config.DatabaseConfig{
			Enabled: true,
			Driver:  "sqlite",
			Path:    ":memory:",
		},
		Log: config.LogConfig{
			Level:  "debug",
			Format: "console",
		},
	}

	router := gin.New()
	router.Use(gin.Recovery())

	return &TestSetup{
		Router:   router,
		Logger:   logger,
		Config:   cfg,
		Requires: require.New(t),
	}
}

// SetupTestDatabase opens an in-memory SQLite archive and migrates it
func (ts *TestSetup) SetupTestDatabase(t testing.TB) *db.Database {
	t.Helper()

	database, err := db.NewDatabase(&ts.Config.Database, ts.Logger)
	ts.Requires.NoError(err, "Failed to open in-memory database")
	ts.Requires.NoError(database.AutoMigrate(), "Failed to migrate database")

	t.Cleanup(func() {
		_ = database.Close()
	})

	ts.DB = database
	return database
}

// ExecuteRequest executes a test request and returns the response
func (ts *TestSetup) ExecuteRequest(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody []byte
	var err error

	if body != nil {
		switch b := body.(type) {
		case string:
			reqBody = []byte(b)
		default:
			reqBody, err = json.Marshal(body)
			ts.Requires.NoError(err, "Failed to marshal request body")
		}
	}

	req, err := http.NewRequest(method, path, bytes.NewBuffer(reqBody))
	ts.Requires.NoError(err, "Failed to create request")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp := httptest.NewRecorder()
	ts.Router.ServeHTTP(resp, req)

	return resp
}

// ParseResponse parses the JSON response into the provided struct
func (ts *TestSetup) ParseResponse(response *httptest.ResponseRecorder, target interface{}) {
	err := json.Unmarshal(response.Body.Bytes(), target)
	ts.Requires.NoError(err, "Failed to parse response body: %s", response.Body.String())
}
