package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/swiftride/dispatch/pkg/config"
	"github.com/swiftride/dispatch/pkg/logger"
	"go.uber.org/zap"
)

// Route binds a path prefix to one upstream service. The prefix is stripped
// before forwarding; everything else (method, headers, body, query) passes
// through verbatim.
type Route struct {
	Prefix   string
	Upstream *url.URL
}

// Proxy is the edge reverse proxy in front of the auth, rides, and dispatch
// services. It terminates nothing; authentication and validation happen in
// the upstream services.
type Proxy struct {
	routes []Route
}

// NewProxy builds a proxy from the configured upstream addresses
func NewProxy(cfg config.GatewayConfig) (*Proxy, error) {
	bindings := []struct {
		prefix string
		target string
	}{
		{"/user", cfg.AuthServiceURL},
		{"/ride", cfg.RidesServiceURL},
		{"/captain", cfg.DispatchServiceURL},
	}

	routes := make([]Route, 0, len(bindings))
	for _, b := range bindings {
		upstream, err := url.Parse(b.target)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream %q for %s: %w", b.target, b.prefix, err)
		}
		routes = append(routes, Route{Prefix: b.prefix, Upstream: upstream})
	}
	return &Proxy{routes: routes}, nil
}

// RegisterRoutes mounts one wildcard handler per prefix
func (p *Proxy) RegisterRoutes(router *gin.Engine) {
	for _, route := range p.routes {
		handler := p.forward(route)
		router.Any(route.Prefix+"/*path", handler)
	}
}

func (p *Proxy) forward(route Route) gin.HandlerFunc {
	proxy := httputil.NewSingleHostReverseProxy(route.Upstream)

	director := proxy.Director
	proxy.Director = func(req *http.Request) {
		director(req)
		req.URL.Path = strings.TrimPrefix(req.URL.Path, route.Prefix)
		if req.URL.Path == "" {
			req.URL.Path = "/"
		}
		req.Host = route.Upstream.Host
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Error("upstream unreachable",
			zap.String("prefix", route.Prefix),
			zap.String("upstream", route.Upstream.String()),
			zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprintf(w, `{"success":false,"error":{"code":%d,"message":"upstream service unavailable"}}`,
			http.StatusBadGateway)
	}

	return func(c *gin.Context) {
		proxy.ServeHTTP(c.Writer, c.Request)
	}
}
