// Package mockdevice simulates the scope board for development and tests.
//
// It serves the binary sample stream on /websocket and the parameter
// calls on /erpc. Every stream connection starts from a blank state with
// both channels off: the client is expected to push its parameters on
// open. For each sweep the device sends, per enabled channel, a one-byte
// channel selector followed by one block of little-endian 12-bit samples.
package mockdevice

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"oscope-go/pkg/log"
	"oscope-go/pkg/pool"
	"oscope-go/pkg/protocol"
	"oscope-go/pkg/render"
)

// Config holds device settings.
type Config struct {
	// Addr to listen on (e.g., ":8081").
	Addr string

	// SweepInterval is the wall time between sweeps. The simulated signal
	// advances by the sweep's own time span, so slow timebases are not
	// slowed further.
	SweepInterval time.Duration

	// Samples per block; one per horizontal pixel of the client's scope.
	Samples int

	Generator GeneratorSettings
	Seed      int64
	Logger    *log.Logger
}

// DefaultConfig returns the device defaults.
func DefaultConfig() Config {
	return Config{
		Addr:          ":8081",
		SweepInterval: 50 * time.Millisecond,
		Samples:       640,
		Generator:     DefaultGeneratorSettings(),
		Seed:          1,
	}
}

// Stats counts device activity.
type Stats struct {
	Connections uint64
	Sweeps      uint64
	Blocks      uint64
	Calls       uint64
}

// Device is a simulated scope board.
type Device struct {
	cfg      Config
	log      *log.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
	server   *http.Server

	mu       sync.Mutex
	hscale   int
	channels [2]bool
	gen      *Generator
	t        float64
	listener net.Listener

	connections atomic.Uint64
	sweeps      atomic.Uint64
	blocks      atomic.Uint64
	calls       atomic.Uint64

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// New creates a device.
func New(cfg Config) *Device {
	def := DefaultConfig()
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = def.SweepInterval
	}
	if cfg.Samples <= 0 {
		cfg.Samples = def.Samples
	}
	if cfg.Generator == (GeneratorSettings{}) {
		cfg.Generator = def.Generator
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetLogger("mockdevice")
	}
	d := &Device{
		cfg:    cfg,
		log:    logger,
		mux:    http.NewServeMux(),
		hscale: 1000,
		gen:    NewGenerator(cfg.Generator, cfg.Seed),
		done:   make(chan struct{}),
	}
	d.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	d.mux.HandleFunc("/websocket", d.handleStream)
	d.mux.HandleFunc("/erpc", d.handleRPC)
	d.server = &http.Server{Addr: cfg.Addr, Handler: d.mux, ReadHeaderTimeout: 10 * time.Second}
	return d
}

// Handler returns the device's HTTP handler.
func (d *Device) Handler() http.Handler {
	return d.mux
}

// ListenAndServe serves the device on the configured address.
func (d *Device) ListenAndServe() error {
	ln, err := net.Listen("tcp", d.cfg.Addr)
	if err != nil {
		return err
	}
	return d.Serve(ln)
}

// Serve serves the device on ln until Close.
func (d *Device) Serve(ln net.Listener) error {
	d.mu.Lock()
	d.listener = ln
	d.mu.Unlock()
	d.log.WithField("addr", ln.Addr().String()).Info("mock scope listening")
	err := d.server.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Addr returns the listening address once serving.
func (d *Device) Addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listener != nil {
		return d.listener.Addr().String()
	}
	return d.cfg.Addr
}

// Close stops every stream and the HTTP server. Streams accepted before
// Close are waited for; later ones are refused.
func (d *Device) Close() error {
	d.mu.Lock()
	d.once.Do(func() { close(d.done) })
	d.mu.Unlock()
	err := d.server.Close()
	d.wg.Wait()
	return err
}

// Stats returns activity counters.
func (d *Device) Stats() Stats {
	return Stats{
		Connections: d.connections.Load(),
		Sweeps:      d.sweeps.Load(),
		Blocks:      d.blocks.Load(),
		Calls:       d.calls.Load(),
	}
}

// Channels returns the current enable flags.
func (d *Device) Channels() [2]bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.channels
}

// Hscale returns the current horizontal scale in microseconds.
func (d *Device) Hscale() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hscale
}

// GeneratorSettings returns the active generator settings.
func (d *Device) GeneratorSettings() GeneratorSettings {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen.Settings()
}

func (d *Device) handleStream(w http.ResponseWriter, r *http.Request) {
	// A new session starts blank. Reset before the handshake completes so
	// the client's first push cannot be overwritten. The stream is counted
	// under the same lock Close takes, so Wait never races Add.
	d.mu.Lock()
	select {
	case <-d.done:
		d.mu.Unlock()
		http.Error(w, "device stopping", http.StatusServiceUnavailable)
		return
	default:
	}
	d.channels = [2]bool{}
	d.wg.Add(1)
	d.mu.Unlock()
	defer d.wg.Done()

	conn, err := d.upgrader.Upgrade(w, r, nil)
	if err != nil {
		d.log.WithError(err).Warn("upgrade failed")
		return
	}
	n := d.connections.Add(1)

	d.log.WithFields(log.Fields{"conn": n, "remote": r.RemoteAddr}).Info("client connected")
	d.stream(conn)
	d.log.WithField("conn", n).Info("client disconnected")
}

func (d *Device) stream(conn *websocket.Conn) {
	defer conn.Close()

	// Reader notices the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(d.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := d.writeSweep(conn); err != nil {
				return
			}
		case <-gone:
			return
		case <-d.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "device stopping"),
				time.Now().Add(time.Second))
			return
		}
	}
}

// sweepMessages builds one sweep: selector then block, per enabled
// channel. Channel 1 sees the same signal a quarter period later.
func (d *Device) sweepMessages() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	span := float64(d.hscale) * 1e-6 * render.XDivs
	dt := span / float64(d.cfg.Samples)
	t0 := d.t
	d.t += span

	var msgs [][]byte
	for ch, on := range d.channels {
		if !on {
			continue
		}
		block := d.gen.Block(t0, dt, d.cfg.Samples, 0.25*float64(ch))
		data := protocol.AppendEncoded(pool.GetBytes(len(block)*protocol.SampleSize), block)
		pool.PutSamples(block)
		msgs = append(msgs, protocol.EncodeSelector(uint8(ch)), data)
	}
	return msgs
}

// writeSweep sends one sweep. Data messages go back to the byte pool once
// written.
func (d *Device) writeSweep(conn *websocket.Conn) error {
	msgs := d.sweepMessages()
	if len(msgs) == 0 {
		return nil
	}
	defer func() {
		for i := 1; i < len(msgs); i += 2 {
			pool.PutBytes(msgs[i])
		}
	}()
	for _, m := range msgs {
		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.BinaryMessage, m); err != nil {
			return err
		}
	}
	d.sweeps.Add(1)
	d.blocks.Add(uint64(len(msgs) / 2))
	return nil
}

type rpcRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
	ID     any             `json:"id,omitempty"`
}

type rpcResponse struct {
	Result any       `json:"result,omitempty"`
	Error  *rpcError `json:"error,omitempty"`
	ID     any       `json:"id,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (d *Device) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	d.calls.Add(1)

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		d.writeRPC(w, rpcResponse{Error: &rpcError{Code: -32700, Message: "Parse error"}})
		return
	}
	result, err := d.dispatch(req.Method, req.Params)
	if err != nil {
		d.log.WithError(err).WithField("method", req.Method).Debug("call rejected")
		d.writeRPC(w, rpcResponse{Error: &rpcError{Code: -32602, Message: err.Error()}, ID: req.ID})
		return
	}
	d.writeRPC(w, rpcResponse{Result: result, ID: req.ID})
}

func (d *Device) dispatch(method string, params json.RawMessage) (any, error) {
	switch method {
	case "setHscale":
		var us int
		if err := json.Unmarshal(params, &us); err != nil {
			return nil, fmt.Errorf("setHscale: %w", err)
		}
		if us <= 0 {
			return nil, fmt.Errorf("setHscale: %d is not a positive time", us)
		}
		d.mu.Lock()
		d.hscale = us
		d.mu.Unlock()
		d.log.WithField("hscale_us", us).Debug("hscale set")
		return us, nil

	case "setChannels":
		var mask []bool
		if err := json.Unmarshal(params, &mask); err != nil {
			return nil, fmt.Errorf("setChannels: %w", err)
		}
		if len(mask) != 2 {
			return nil, fmt.Errorf("setChannels: want 2 flags, got %d", len(mask))
		}
		d.mu.Lock()
		d.channels = [2]bool{mask[0], mask[1]}
		d.mu.Unlock()
		d.log.WithField("channels", mask).Debug("channels set")
		return mask, nil

	case "set":
		d.mu.Lock()
		s := d.gen.Settings()
		d.mu.Unlock()
		if err := json.Unmarshal(params, &s); err != nil {
			return nil, fmt.Errorf("set: %w", err)
		}
		if _, err := ParseWaveform(s.Waveform); err != nil {
			return nil, fmt.Errorf("set: %w", err)
		}
		d.mu.Lock()
		d.gen.Set(s)
		s = d.gen.Settings()
		d.mu.Unlock()
		d.log.WithFields(log.Fields{
			"waveform":  s.Waveform,
			"frequency": s.Frequency,
			"amplitude": s.Amplitude,
			"offset":    s.Offset,
			"duty":      s.Duty,
		}).Info("generator set")
		return s, nil

	default:
		return nil, fmt.Errorf("method not found: %s", method)
	}
}

func (d *Device) writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
