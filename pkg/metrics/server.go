// HTTP server for the Prometheus metrics endpoint
//
// Serves /metrics, /health and /ready. The same handlers can be mounted on
// the control panel mux through Handler, so a standalone listener is only
// needed when metrics should live on their own port.
//
//	server := metrics.NewMetricsServer(sm, ":9100")
//	errCh := server.StartAsync()
//	defer server.Shutdown(context.Background())
//
// Copyright (C) 2026  Go Migration Team
//
// This file may be distributed under the terms of the GNU GPLv3 license.

package metrics

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// MetricsServer serves Prometheus metrics over HTTP
type MetricsServer struct {
	sm     *ScopeMetrics
	addr   string
	server *http.Server
	mux    *http.ServeMux

	// Optional basic auth
	username string
	password string

	mu        sync.RWMutex
	running   bool
	listener  net.Listener
	startTime time.Time
}

// MetricsServerConfig holds server configuration
type MetricsServerConfig struct {
	// Address to listen on (e.g., ":9100" or "127.0.0.1:9100")
	Address string

	// Optional basic auth credentials
	Username string
	Password string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultMetricsServerConfig returns default server configuration
func DefaultMetricsServerConfig() MetricsServerConfig {
	return MetricsServerConfig{
		Address:      ":9100",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// NewMetricsServer creates a new metrics server with default config
func NewMetricsServer(sm *ScopeMetrics, addr string) *MetricsServer {
	config := DefaultMetricsServerConfig()
	config.Address = addr
	return NewMetricsServerWithConfig(sm, config)
}

// NewMetricsServerWithConfig creates a new metrics server with custom config
func NewMetricsServerWithConfig(sm *ScopeMetrics, config MetricsServerConfig) *MetricsServer {
	ms := &MetricsServer{
		sm:       sm,
		addr:     config.Address,
		mux:      http.NewServeMux(),
		username: config.Username,
		password: config.Password,
	}

	ms.mux.HandleFunc("/metrics", ms.handleMetrics)
	ms.mux.HandleFunc("/health", ms.handleHealth)
	ms.mux.HandleFunc("/ready", ms.handleReady)
	ms.mux.HandleFunc("/", ms.handleRoot)

	ms.server = &http.Server{
		Addr:         config.Address,
		Handler:      ms.mux,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
	return ms
}

// Handler returns the /metrics handler alone, for mounting elsewhere.
func (ms *MetricsServer) Handler() http.Handler {
	return http.HandlerFunc(ms.handleMetrics)
}

// Start listens and serves until Shutdown (blocks).
func (ms *MetricsServer) Start() error {
	ln, err := net.Listen("tcp", ms.addr)
	if err != nil {
		return fmt.Errorf("metrics server listen: %w", err)
	}
	return ms.Serve(ln)
}

// Serve serves on an existing listener (blocks).
func (ms *MetricsServer) Serve(ln net.Listener) error {
	ms.mu.Lock()
	ms.running = true
	ms.listener = ln
	ms.startTime = time.Now()
	ms.mu.Unlock()

	err := ms.server.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server error: %w", err)
	}
	return nil
}

// StartAsync starts the metrics server in a goroutine
func (ms *MetricsServer) StartAsync() chan error {
	errCh := make(chan error, 1)
	go func() {
		if err := ms.Start(); err != nil {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

// Shutdown gracefully shuts down the server
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	ms.mu.Lock()
	ms.running = false
	ms.mu.Unlock()

	return ms.server.Shutdown(ctx)
}

// IsRunning returns whether the server is running
func (ms *MetricsServer) IsRunning() bool {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.running
}

// GetAddress returns the bound address once serving, else the configured one.
func (ms *MetricsServer) GetAddress() string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if ms.listener != nil {
		return ms.listener.Addr().String()
	}
	return ms.addr
}

func (ms *MetricsServer) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if !ms.checkAuth(w, r) {
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	output := ms.sm.Gather()
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Length", strconv.Itoa(len(output)))
		return
	}
	_, _ = w.Write([]byte(output))
}

func (ms *MetricsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK\n"))
}

func (ms *MetricsServer) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	if ms.IsRunning() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("Ready\n"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("Not Ready\n"))
	}
}

func (ms *MetricsServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Oscilloscope Metrics</title></head>
<body style="font-family: sans-serif; margin: 40px">
<h1>Oscilloscope Client Metrics</h1>
<div><a href="/metrics">/metrics</a> - Prometheus metrics endpoint</div>
<div><a href="/health">/health</a> - Health check</div>
<div><a href="/ready">/ready</a> - Readiness check</div>
</body>
</html>`))
}

// checkAuth verifies basic auth if configured
func (ms *MetricsServer) checkAuth(w http.ResponseWriter, r *http.Request) bool {
	if ms.username == "" && ms.password == "" {
		return true
	}

	username, password, ok := r.BasicAuth()
	if ok {
		userOK := subtle.ConstantTimeCompare([]byte(username), []byte(ms.username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(password), []byte(ms.password)) == 1
		if userOK && passOK {
			return true
		}
	}
	w.Header().Set("WWW-Authenticate", `Basic realm="Oscilloscope Metrics"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
	return false
}

// GetStatus returns server status for diagnostics
func (ms *MetricsServer) GetStatus() map[string]any {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	status := map[string]any{
		"address": ms.addr,
		"running": ms.running,
	}
	if ms.running {
		status["uptime"] = time.Since(ms.startTime).Seconds()
	}
	return status
}
