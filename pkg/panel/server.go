// Package panel serves the HTTP control panel for a running scope: a PNG
// snapshot of the display, a JSON status and control API, a status feed
// over WebSocket and the metrics endpoint.
package panel

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"oscope-go/pkg/log"
	"oscope-go/pkg/metrics"
	"oscope-go/pkg/scope"
)

// Scope is the set of actions the panel can take. *scope.Remote
// implements it.
type Scope interface {
	Status() (scope.Status, error)
	SetRun(on bool) error
	Single() (bool, error)
	SetHScaleIndex(i int) error
	StepHScale(delta int) error
	SetChannelEnabled(ch int, on bool) error
	SetVScaleIndex(ch, i int) error
	SetOffset(ch int, pct float64) error
}

// Snapshotter renders the current display.
type Snapshotter interface {
	WritePNG(w io.Writer) error
}

// Config holds server configuration.
type Config struct {
	// HTTP address to listen on (e.g., ":8080")
	Addr string

	Scope   Scope
	Display Snapshotter
	Metrics *metrics.ScopeMetrics
	Logger  *log.Logger

	// StatusInterval is the status feed period; 250ms when zero.
	StatusInterval time.Duration
}

// Server is the control panel.
type Server struct {
	scope   Scope
	display Snapshotter
	log     *log.Logger
	mux     *http.ServeMux

	httpServer *http.Server
	addr       string

	wsUpgrader websocket.Upgrader
	feed       *statusFeed

	mu       sync.Mutex
	listener net.Listener
	running  atomic.Bool
}

// New creates a panel server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetLogger("panel")
	}
	interval := cfg.StatusInterval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	s := &Server{
		scope:   cfg.Scope,
		display: cfg.Display,
		log:     logger,
		mux:     http.NewServeMux(),
		addr:    cfg.Addr,
	}
	s.wsUpgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // the panel is meant for the local network
		},
	}
	s.feed = newStatusFeed(s, interval)

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/scope.png", s.handleSnapshot)
	s.mux.HandleFunc("/api/status", s.handleStatus)
	s.mux.HandleFunc("/api/run", s.handleRun)
	s.mux.HandleFunc("/api/single", s.handleSingle)
	s.mux.HandleFunc("/api/hscale", s.handleHScale)
	s.mux.HandleFunc("/api/channel", s.handleChannel)
	s.mux.HandleFunc("/websocket", s.handleWebSocket)
	if cfg.Metrics != nil {
		s.mux.Handle("/metrics", metrics.NewMetricsServer(cfg.Metrics, "").Handler())
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.corsMiddleware(s.mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the panel's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start listens on the configured address and serves until Stop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("panel listen %s: %w", s.addr, err)
	}
	return s.Serve(ln)
}

// Serve serves the panel on ln until Stop.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.running.Store(true)
	s.log.WithField("addr", ln.Addr().String()).Info("control panel listening")
	go s.feed.run()

	err := s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the listening address once serving.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop closes the feed clients and shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.Swap(false) {
		return nil
	}
	s.feed.close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, indexHTML)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := s.display.WritePNG(w); err != nil {
		s.log.WithError(err).Warn("snapshot failed")
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.scope.Status()
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.writeJSON(w, st)
}

type runRequest struct {
	Run bool `json:"run"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	s.apply(w, s.scope.SetRun(req.Run))
}

func (s *Server) handleSingle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	armed, err := s.scope.Single()
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if !armed {
		s.writeError(w, http.StatusConflict,
			errors.New("single capture needs a stopped scope with a channel enabled"))
		return
	}
	s.apply(w, nil)
}

type hscaleRequest struct {
	Index *int `json:"index,omitempty"`
	Step  int  `json:"step,omitempty"`
}

func (s *Server) handleHScale(w http.ResponseWriter, r *http.Request) {
	var req hscaleRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	var err error
	switch {
	case req.Index != nil:
		err = s.scope.SetHScaleIndex(*req.Index)
	case req.Step != 0:
		err = s.scope.StepHScale(req.Step)
	default:
		s.writeError(w, http.StatusBadRequest, errors.New("index or step required"))
		return
	}
	s.apply(w, err)
}

type channelRequest struct {
	Channel int      `json:"channel"`
	Enable  *bool    `json:"enable,omitempty"`
	VScale  *int     `json:"vscale,omitempty"`
	Offset  *float64 `json:"offset,omitempty"`
}

func (s *Server) handleChannel(w http.ResponseWriter, r *http.Request) {
	var req channelRequest
	if !s.decodePost(w, r, &req) {
		return
	}
	if req.Channel < 0 || req.Channel >= scope.NumChannels {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("channel %d out of range", req.Channel))
		return
	}
	if req.Enable != nil {
		if err := s.scope.SetChannelEnabled(req.Channel, *req.Enable); err != nil {
			s.apply(w, err)
			return
		}
	}
	if req.VScale != nil {
		if err := s.scope.SetVScaleIndex(req.Channel, *req.VScale); err != nil {
			s.apply(w, err)
			return
		}
	}
	if req.Offset != nil {
		if err := s.scope.SetOffset(req.Channel, *req.Offset); err != nil {
			s.apply(w, err)
			return
		}
	}
	s.apply(w, nil)
}

func (s *Server) decodePost(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 64*1024)).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("bad request body: %w", err))
		return false
	}
	return true
}

// apply answers a control request with the resulting status.
func (s *Server) apply(w http.ResponseWriter, err error) {
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	s.feed.kick()
	s.handleStatus(w, nil)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// JSON response helpers

func (s *Server) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": err.Error(),
		},
	})
}
