package alerts

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type alertSink struct {
	*httptest.Server
	mu       sync.Mutex
	payloads []AlertPayload
	agents   []string
}

func newAlertSink(t *testing.T, status int) *alertSink {
	t.Helper()
	s := &alertSink{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var p AlertPayload
		assert.NoError(t, sonic.Unmarshal(body, &p))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		s.mu.Lock()
		s.payloads = append(s.payloads, p)
		s.agents = append(s.agents, r.Header.Get("User-Agent"))
		s.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *alertSink) received() []AlertPayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AlertPayload(nil), s.payloads...)
}

func newSyncClient(endpoint string) *Client {
	c := NewClient(ClientConfig{
		Enabled:  true,
		Endpoint: endpoint,
		App:      AppConfig{Name: "results-relay", Version: "1.0.0"},
		EventID:  "ev1",
	})
	c.dispatch = func(f func()) { f() }
	return c
}

func TestClient_AlertsOnTransitionsOnly(t *testing.T) {
	sink := newAlertSink(t, http.StatusOK)
	c := newSyncClient(sink.URL)

	c.OnSuccess("10:00:00 Results uploaded.")
	c.OnFailure("10:00:30 500 (Internal Server Error).")
	c.OnFailure("10:01:00 500 (Internal Server Error).")
	c.OnSuccess("10:01:30 Results uploaded.")
	c.OnSuccess("10:02:00 Results uploaded.")

	got := sink.received()
	require.Len(t, got, 2)

	assert.Equal(t, SeverityWarning, got[0].Severity)
	assert.Equal(t, "Relay Failure", got[0].Title)
	assert.Equal(t, "10:00:30 500 (Internal Server Error).", got[0].Details["details"])
	assert.Equal(t, "ev1", got[0].Details["event_id"])
	assert.Equal(t, "results-relay", got[0].Service)

	assert.Equal(t, SeverityInfo, got[1].Severity)
	assert.Equal(t, "Relay Recovered", got[1].Title)
}

func TestClient_FirstFailureAlerts(t *testing.T) {
	sink := newAlertSink(t, http.StatusOK)
	c := newSyncClient(sink.URL)

	c.OnFailure("10:00:00 Connection refused")
	require.Len(t, sink.received(), 1)
	assert.Equal(t, "results-relay/1.0.0", sink.agents[0])
}

func TestClient_SendAlertErrors(t *testing.T) {
	sink := newAlertSink(t, http.StatusBadGateway)
	c := newSyncClient(sink.URL)

	err := c.SendWarningAlert("t", "m", "d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")

	c = newSyncClient("")
	assert.Error(t, c.SendInfoAlert("t", "m", "d"))
}

func TestClient_Disabled(t *testing.T) {
	sink := newAlertSink(t, http.StatusOK)
	c := NewClient(ClientConfig{Enabled: false, Endpoint: sink.URL, Dev: true})
	c.dispatch = func(f func()) { f() }

	c.OnFailure("x")
	assert.NoError(t, c.SendWarningAlert("t", "m", "d"))
	assert.Empty(t, sink.received())
}
