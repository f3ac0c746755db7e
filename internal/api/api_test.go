package api

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0needt0/goodies/results-relay/internal/config"
	"github.com/n0needt0/goodies/results-relay/internal/services"
)

func newTestAPI(t *testing.T, mutate func(*config.Config)) (*API, *httptest.Server) {
	t.Helper()

	source := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(source.Close)
	host, port, err := net.SplitHostPort(strings.TrimPrefix(source.URL, "http://"))
	require.NoError(t, err)
	sourcePort, err := strconv.Atoi(port)
	require.NoError(t, err)

	cfg := &config.Config{
		App:    config.App{Name: "results-relay", Version: "test"},
		Server: config.Server{ApiPort: 8090},
		Source: config.Source{Host: host, Port: sourcePort, Path: config.DefaultSourcePath},
		Sink:   config.Sink{URL: "https://sink.example.com/upload", EventID: "ev1", Password: "s3cret"},
		Relay:  config.Relay{IntervalSeconds: 30, StartupDelayMs: 60000, LogCapacity: 25},
		HTTP:   config.HTTP{ConnectTimeoutSecs: -1, ReadTimeoutSecs: -1, WriteTimeoutSecs: -1, CallTimeoutSecs: -1},
	}
	if mutate != nil {
		mutate(cfg)
	}

	svc, err := services.NewServices(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { <-svc.Relay.StopRelay() })

	a := NewAPI(svc, cfg)
	srv := httptest.NewServer(a.NewRouter())
	t.Cleanup(srv.Close)
	return a, srv
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestHealthCheck(t *testing.T) {
	_, srv := newTestAPI(t, nil)

	var health HealthResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/health", &health))

	assert.Equal(t, HEALTHY, health.Status)
	assert.Equal(t, "results-relay", health.ServiceName)
	assert.Equal(t, "test", health.Version)
	assert.True(t, health.Source.Reachable)
	assert.False(t, health.Relay.Running)
}

func TestRelayLifecycle(t *testing.T) {
	_, srv := newTestAPI(t, nil)

	var started RelayResponse
	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/api/v1/relay/start", &started))
	assert.True(t, started.Running)

	var st StatusResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/status", &st))
	assert.True(t, st.Running)
	assert.Empty(t, st.Latest, "no cycle has run yet")

	assert.Equal(t, http.StatusConflict, postJSON(t, srv.URL+"/api/v1/relay/start", nil))

	var stopped RelayResponse
	require.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/api/v1/relay/stop", &stopped))
	assert.False(t, stopped.Running)
	assert.Equal(t, "relay stopped", stopped.Message)
}

func TestStartRelay_MissingCredentials(t *testing.T) {
	_, srv := newTestAPI(t, func(c *config.Config) { c.Sink.EventID = "" })

	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/api/v1/relay/start", nil))
}

func TestLogs_EmptyBeforeFirstCycle(t *testing.T) {
	_, srv := newTestAPI(t, nil)

	var app, wire LogResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/log", &app))
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/wirelog", &wire))
	assert.NotNil(t, app.Lines)
	assert.Empty(t, app.Lines)
	assert.Empty(t, wire.Lines)
}

func TestGetConfig_MasksSecrets(t *testing.T) {
	_, srv := newTestAPI(t, nil)

	var cfg ConfigResponse
	require.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/v1/config", &cfg))

	assert.Equal(t, "ev1", cfg.Sink.EventID)
	assert.NotEqual(t, "s3cret", cfg.Sink.Password)
	assert.NotEmpty(t, cfg.Sink.Password)
	assert.True(t, strings.HasSuffix(cfg.Source.URL, config.DefaultSourcePath))
	assert.Equal(t, 30, cfg.Relay.IntervalSeconds)
}

func TestUseMetric_Cached(t *testing.T) {
	a, _ := newTestAPI(t, nil)

	first := a.UseMetric("api_test_total", "test")
	second := a.UseMetric("api_test_total", "test")
	require.NotNil(t, first)
	assert.Equal(t, first, second)
	assert.Len(t, a.ApiMetrics, 1)
}

func TestRootRedirectsToDocs(t *testing.T) {
	_, srv := newTestAPI(t, nil)

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(srv.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/docs", resp.Header.Get("Location"))
}
