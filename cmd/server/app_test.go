package main

import (
	"bytes"
	"codonledger/internal/blobstore"
	"codonledger/internal/config"
	"codonledger/internal/middleware"
	"codonledger/internal/models"
	"codonledger/internal/services"
	"codonledger/pkg/auth"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app   *fiber.App
	deps  *application
	token string
	addr  string // set once the app serves a real listener
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	reg := prometheus.NewRegistry()
	metrics := services.NewMetrics(reg)
	cache := services.NewQueryCache(services.NewMemoryCacheBackend(), time.Second)

	jwtAuth, err := auth.NewLocalJWTAuth("test-secret", time.Hour)
	require.NoError(t, err)
	token, err := jwtAuth.GenerateAccessToken("user-1", "user@example.com", "developer")
	require.NoError(t, err)

	blobs, err := blobstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	deps := newApplication(cache, metrics, jwtAuth, blobs)
	deps.rateLimits = middleware.DefaultRateLimitConfig()

	cfg := &config.Config{AllowedOrigins: "*", ObserverBuffer: 16}
	return &testServer{app: newServer(cfg, deps, reg), deps: deps, token: token}
}

func (s *testServer) request(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	var (
		req *http.Request
		err error
	)
	if s.addr != "" {
		req, err = http.NewRequest(method, "http://"+s.addr+path, reader)
		require.NoError(t, err)
	} else {
		req = httptest.NewRequest(method, path, reader)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	var resp *http.Response
	if s.addr != "" {
		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
	} else {
		resp, err = s.app.Test(req, -1)
		require.NoError(t, err)
	}

	var out map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp, out
}

// listen serves the app on a loopback port and returns its address
func (s *testServer) listen(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go s.app.Listener(ln)
	t.Cleanup(func() { s.app.ShutdownWithTimeout(2 * time.Second) })

	s.addr = ln.Addr().String()
	return s.addr
}

func (s *testServer) dial(t *testing.T, addr, sessionID string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/sessions/"+sessionID+"?token="+s.token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var hello models.ServerMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, models.MessageConnected, hello.Type)
	require.Equal(t, sessionID, hello.SessionID)
	require.NotEmpty(t, hello.ConnectionID)

	return conn
}

func TestServer_LedgerScenario(t *testing.T) {
	srv := newTestServer(t)

	resp, created := srv.request(t, http.MethodPost, "/api/codons", map[string]any{
		"sessionId": "s1", "content": "risk:high avoid", "promptId": "p1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	codonID := created["codonId"].(string)
	assert.Equal(t, resp.Header.Get(middleware.CorrelationHeader), created["correlationId"])

	_, query := srv.request(t, http.MethodGet, "/api/codons?strategy=avoid", nil)
	require.Len(t, query["codons"], 1)

	resp, _ = srv.request(t, http.MethodPost, "/api/sessions/s1/codons/"+codonID+"/outcome", map[string]any{
		"outcome": map[string]any{"result": "mitigated"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, timeline := srv.request(t, http.MethodGet, "/api/codons/"+codonID+"/timeline", nil)
	require.Len(t, timeline["timeline"], 2)

	resp, missing := srv.request(t, http.MethodPost, "/api/sessions/nonexistent-session/codons/any-id/outcome", map[string]any{
		"outcome": map[string]any{"result": "x"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", missing["code"])

	stats := srv.deps.store.Stats()
	assert.Equal(t, models.LedgerStats{Sessions: 1, Codons: 1, Outcomes: 1}, stats)
}

func TestServer_RejectsMissingToken(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/api/codons", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.CorrelationHeader))
}

func TestServer_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)
	srv.request(t, http.MethodPost, "/api/codons", map[string]any{
		"sessionId": "s1", "content": "x", "promptId": "p1",
	})

	resp, health := srv.request(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, "memory", health["cache"])

	resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(middleware.CorrelationHeader))
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "codonledger_codons_appended_total 1")
	assert.Contains(t, string(body), "codonledger_http_requests_total")
}

func TestServer_WebSocketRequiresUpgrade(t *testing.T) {
	srv := newTestServer(t)

	resp, err := srv.app.Test(httptest.NewRequest(http.MethodGet, "/ws/sessions/s1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestServer_WebSocketRejectsMissingToken(t *testing.T) {
	srv := newTestServer(t)
	addr := srv.listen(t)

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+addr+"/ws/sessions/s1", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestServer_WebSocketDeliversSessionUpdates(t *testing.T) {
	srv := newTestServer(t)
	addr := srv.listen(t)

	watcher := srv.dial(t, addr, "s1")
	bystander := srv.dial(t, addr, "s2")

	require.Eventually(t, func() bool {
		return srv.deps.hub.ObserverCount("s1") == 1 && srv.deps.hub.ObserverCount("s2") == 1
	}, 2*time.Second, 10*time.Millisecond)

	resp, created := srv.request(t, http.MethodPost, "/api/codons", map[string]any{
		"sessionId": "s1", "content": "risk:high avoid", "promptId": "p1", "riskLevel": "high",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	codonID := created["codonId"].(string)

	var created1 models.UpdateEvent
	watcher.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, watcher.ReadJSON(&created1))
	assert.Equal(t, models.UpdateEventType, created1.Type)
	assert.Equal(t, models.ChangeCreated, created1.Action)
	assert.Equal(t, codonID, created1.CodonID)
	assert.Equal(t, "s1", created1.SessionID)
	assert.Equal(t, "high", created1.Changes["riskLevel"])

	srv.request(t, http.MethodPost, "/api/sessions/s1/codons/"+codonID+"/outcome", map[string]any{
		"outcome": map[string]any{"result": "mitigated"},
	})

	var attached models.UpdateEvent
	watcher.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, watcher.ReadJSON(&attached))
	assert.Equal(t, models.ChangeOutcomeAttached, attached.Action)
	assert.NotEqual(t, created1.EventID, attached.EventID)

	// Nothing was written to s2
	bystander.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := bystander.ReadMessage()
	require.Error(t, err)
	var netErr net.Error
	if assert.ErrorAs(t, err, &netErr) {
		assert.True(t, netErr.Timeout())
	}
}

func TestServer_ObserverDisconnectUnregisters(t *testing.T) {
	srv := newTestServer(t)
	addr := srv.listen(t)

	conn := srv.dial(t, addr, "s1")
	require.Eventually(t, func() bool { return srv.deps.hub.ObserverCount("s1") == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	assert.Eventually(t, func() bool { return srv.deps.hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"*"}, splitOrigins(""))
	assert.Equal(t, []string{"*"}, splitOrigins(" , "))
	assert.Equal(t, []string{"http://a", "http://b"}, splitOrigins("http://a, http://b"))
	assert.True(t, strings.HasPrefix(splitOrigins("http://a")[0], "http://"))
}
