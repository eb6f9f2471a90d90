package gateway

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swiftride/dispatch/pkg/config"
)

func echoUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Upstream-Path", r.URL.Path)
		w.Header().Set("X-Upstream-Query", r.URL.RawQuery)
		w.Header().Set("X-Upstream-Auth", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// closeNotifyRecorder adds http.CloseNotifier, which gin's response writer
// requires when serving through httputil.ReverseProxy.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyRecorder() *closeNotifyRecorder {
	return &closeNotifyRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (c *closeNotifyRecorder) CloseNotify() <-chan bool {
	return c.closed
}

func setupProxy(t *testing.T, cfg config.GatewayConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	proxy, err := NewProxy(cfg)
	require.NoError(t, err)
	router := gin.New()
	proxy.RegisterRoutes(router)
	return router
}

func TestProxyStripsPrefixAndForwards(t *testing.T) {
	auth := echoUpstream(t)
	rides := echoUpstream(t)
	dispatch := echoUpstream(t)
	router := setupProxy(t, config.GatewayConfig{
		AuthServiceURL:     auth.URL,
		RidesServiceURL:    rides.URL,
		DispatchServiceURL: dispatch.URL,
	})

	tests := []struct {
		path     string
		upstream string
	}{
		{"/user/auth/login", "/auth/login"},
		{"/ride/rides", "/rides"},
		{"/captain/poll", "/poll"},
	}

	for _, tt := range tests {
		w := newCloseNotifyRecorder()
		req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(`{"k":"v"}`))
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, tt.path)
		assert.Equal(t, tt.upstream, w.Header().Get("X-Upstream-Path"), tt.path)
		assert.Equal(t, `{"k":"v"}`, w.Body.String(), tt.path)
	}
}

func TestProxyForwardsHeadersAndQuery(t *testing.T) {
	upstream := echoUpstream(t)
	router := setupProxy(t, config.GatewayConfig{
		AuthServiceURL:     upstream.URL,
		RidesServiceURL:    upstream.URL,
		DispatchServiceURL: upstream.URL,
	})

	w := newCloseNotifyRecorder()
	req := httptest.NewRequest(http.MethodPost, "/captain/poll?timeout_seconds=45", nil)
	req.Header.Set("Authorization", "Bearer token-123")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "timeout_seconds=45", w.Header().Get("X-Upstream-Query"))
	assert.Equal(t, "Bearer token-123", w.Header().Get("X-Upstream-Auth"))
}

func TestProxyUpstreamDown(t *testing.T) {
	router := setupProxy(t, config.GatewayConfig{
		AuthServiceURL:     "http://127.0.0.1:1",
		RidesServiceURL:    "http://127.0.0.1:1",
		DispatchServiceURL: "http://127.0.0.1:1",
	})

	w := newCloseNotifyRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ride/rides", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "upstream service unavailable")
}

func TestProxyRejectsBadUpstreamURL(t *testing.T) {
	_, err := NewProxy(config.GatewayConfig{
		AuthServiceURL:     "://bad",
		RidesServiceURL:    "http://localhost:8082",
		DispatchServiceURL: "http://localhost:8083",
	})
	assert.Error(t, err)
}

func TestProxyUnknownPrefixIs404(t *testing.T) {
	upstream := echoUpstream(t)
	router := setupProxy(t, config.GatewayConfig{
		AuthServiceURL:     upstream.URL,
		RidesServiceURL:    upstream.URL,
		DispatchServiceURL: upstream.URL,
	})

	w := newCloseNotifyRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
