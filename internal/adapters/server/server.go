// Package server composes the REST, MCP, probe and metrics surfaces into one process handler.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/evanschultz/pdwatch/internal/adapters/server/common"
	"github.com/evanschultz/pdwatch/internal/adapters/server/httpapi"
	"github.com/evanschultz/pdwatch/internal/adapters/server/mcpapi"
)

// Serve-mode defaults.
const (
	defaultBindAddress     = "127.0.0.1:8080"
	defaultAPIEndpoint     = "/api/v1"
	defaultMCPEndpoint     = "/mcp"
	defaultServerName      = "pdwatch"
	defaultServerVersion   = "dev"
	defaultShutdownTimeout = 5 * time.Second
	readHeaderTimeout      = 10 * time.Second
)

// ErrInvalidConfig reports an unusable serve configuration.
var ErrInvalidConfig = errors.New("invalid serve config")

// reservedPaths are mounted by the server itself.
var reservedPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/metrics": true,
}

// Config defines serve-mode endpoint configuration.
type Config struct {
	HTTPBind      string
	APIEndpoint   string
	MCPEndpoint   string
	ServerName    string
	ServerVersion string
}

// Dependencies defines app-facing adapters required by server transports.
type Dependencies struct {
	Service common.Service
	// Ready is probed by `/readyz`; nil means always ready.
	Ready func(context.Context) error
}

// NewHandler builds the root mux and returns the normalized config it was built from.
func NewHandler(cfg Config, deps Dependencies) (http.Handler, Config, error) {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, Config{}, err
	}
	if deps.Service == nil {
		return nil, Config{}, fmt.Errorf("%w: service dependency is required", ErrInvalidConfig)
	}

	mcpHandler, err := mcpapi.NewHandler(mcpapi.Config{
		ServerName:    cfg.ServerName,
		ServerVersion: cfg.ServerVersion,
		EndpointPath:  cfg.MCPEndpoint,
	}, deps.Service)
	if err != nil {
		return nil, Config{}, fmt.Errorf("configure mcp handler: %w", err)
	}

	metrics := newServerMetrics()
	api := metrics.instrument("api", http.StripPrefix(cfg.APIEndpoint, httpapi.NewHandler(deps.Service)))
	routes := []struct {
		pattern string
		handler http.Handler
	}{
		{"/healthz", probeHandler(nil)},
		{"/readyz", probeHandler(deps.Ready)},
		{"/metrics", metrics.Handler()},
		{cfg.MCPEndpoint, metrics.instrument("mcp", mcpHandler)},
		{cfg.APIEndpoint, api},
		{cfg.APIEndpoint + "/", api},
	}

	mux := http.NewServeMux()
	for _, r := range routes {
		mux.Handle(r.pattern, r.handler)
	}
	return mux, cfg, nil
}

// Run listens on the configured bind address and serves until ctx is canceled.
func Run(ctx context.Context, cfg Config, deps Dependencies) error {
	if ctx == nil {
		ctx = context.Background()
	}
	handler, cfg, err := NewHandler(cfg, deps)
	if err != nil {
		return fmt.Errorf("build server handler: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.HTTPBind)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.HTTPBind, err)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: readHeaderTimeout}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		return shutdown(srv, served)
	}
}

// shutdown drains srv within the shutdown timeout and collects the serve result.
func shutdown(srv *http.Server, served <-chan error) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutdown server: %w", err)
	}
	if err := <-served; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve after shutdown: %w", err)
	}
	return nil
}

// normalizeConfig fills defaults and rejects colliding or reserved mounts.
func normalizeConfig(cfg Config) (Config, error) {
	cfg.HTTPBind = orDefault(cfg.HTTPBind, defaultBindAddress)
	cfg.ServerName = orDefault(cfg.ServerName, defaultServerName)
	cfg.ServerVersion = orDefault(cfg.ServerVersion, defaultServerVersion)
	cfg.APIEndpoint = normalizeEndpoint(cfg.APIEndpoint, defaultAPIEndpoint)
	cfg.MCPEndpoint = normalizeEndpoint(cfg.MCPEndpoint, defaultMCPEndpoint)

	if cfg.APIEndpoint == cfg.MCPEndpoint {
		return Config{}, fmt.Errorf("%w: api and mcp endpoints must differ (%s)", ErrInvalidConfig, cfg.APIEndpoint)
	}
	for _, endpoint := range []string{cfg.APIEndpoint, cfg.MCPEndpoint} {
		if reservedPaths[endpoint] {
			return Config{}, fmt.Errorf("%w: endpoint %s is reserved", ErrInvalidConfig, endpoint)
		}
	}
	return cfg, nil
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value == "" {
		return fallback
	}
	return value
}

// normalizeEndpoint returns path as a single-slash-rooted mount, or fallback when empty.
func normalizeEndpoint(path string, fallback string) string {
	path = "/" + strings.Trim(strings.TrimSpace(path), "/")
	if path == "/" {
		return fallback
	}
	return path
}

// probeStatus is the `/healthz` and `/readyz` body.
type probeStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// probeHandler answers ok unless probe fails; a nil probe always passes.
func probeHandler(probe func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body := http.StatusOK, probeStatus{Status: "ok"}
		if probe != nil {
			if err := probe(r.Context()); err != nil {
				status, body = http.StatusServiceUnavailable, probeStatus{Status: "unavailable", Error: err.Error()}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
