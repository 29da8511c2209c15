package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sells-group/localpages-cli/internal/batch"
	"github.com/sells-group/localpages-cli/internal/config"
)

func TestNewGenerateEnv_BuildsComponents(t *testing.T) {
	c := testConfig()
	st, err := initStore(context.Background(), config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "g.db")})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	env, err := newGenerateEnv(c, st, true, zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, env.orchestrator)
	assert.NotNil(t, env.metrics)
	assert.NotNil(t, env.alerter)
}

func TestNewGenerateEnv_BadProvider(t *testing.T) {
	c := testConfig()
	c.Search.Provider = "bing"

	env, err := newGenerateEnv(c, nil, false, zap.NewNop())
	assert.Nil(t, env)
	assert.Error(t, err)
}

func TestGenerateEnv_Report(t *testing.T) {
	var pushed, alerted atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/hook":
			alerted.Add(1)
			var body map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		default:
			pushed.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testConfig()
	c.Metrics.PushgatewayURL = srv.URL
	c.Metrics.Job = "localpages_test"
	c.Alerts.WebhookURL = srv.URL + "/hook"
	c.Alerts.FailureRateThreshold = 0.25

	core, logs := observer.New(zap.InfoLevel)
	st, err := initStore(context.Background(), config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "r.db")})
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	env, err := newGenerateEnv(c, st, false, zap.New(core))
	require.NoError(t, err)

	env.report(context.Background(), &batch.Summary{
		Processed:      10,
		Completed:      4,
		Failed:         6,
		FailuresByKind: map[string]int{"inference": 6},
	})

	assert.Equal(t, int32(1), pushed.Load())
	assert.Equal(t, int32(1), alerted.Load())
	assert.Zero(t, logs.FilterMessage("metrics push failed").Len())
}
