package transport

import (
	"encoding/binary"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"oscope-go/pkg/log"
	"oscope-go/pkg/metrics"
	"oscope-go/pkg/reactor"
)

type recorder struct {
	mu     sync.Mutex
	opens  int
	closes int
	msgs   [][]byte
	opened chan struct{}
	got    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{
		opened: make(chan struct{}, 16),
		got:    make(chan struct{}, 1024),
	}
}

func (r *recorder) OnOpen() {
	r.mu.Lock()
	r.opens++
	r.mu.Unlock()
	r.opened <- struct{}{}
}

func (r *recorder) OnMessage(msg []byte) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
	r.got <- struct{}{}
}

func (r *recorder) OnClose(err error) {
	r.mu.Lock()
	r.closes++
	r.mu.Unlock()
}

func (r *recorder) counts() (opens, closes, msgs int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opens, r.closes, len(r.msgs)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/websocket"
}

func startReactor(t *testing.T) *reactor.Reactor {
	t.Helper()
	r := reactor.NewWithQueue(4)
	r.Run()
	t.Cleanup(func() {
		r.End()
		r.Wait()
	})
	return r
}

func waitFor(t *testing.T, ch <-chan struct{}, n int, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-deadline:
			t.Fatalf("timed out after %d of %d events", i, n)
		}
	}
}

func TestClientDeliversInOrder(t *testing.T) {
	const count = 200
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		for i := 0; i < count; i++ {
			msg := make([]byte, 2)
			binary.LittleEndian.PutUint16(msg, uint16(i))
			if err := conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}
		}
		// hold the socket open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	r := startReactor(t)
	rec := newRecorder()
	cfg := DefaultConfig(wsURL(srv))
	cfg.Logger = log.Discard()
	c := New(r, rec, cfg)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	waitFor(t, rec.opened, 1, 5*time.Second)
	waitFor(t, rec.got, count, 5*time.Second)

	if c.State() != StateOpen {
		t.Errorf("State() = %v, want open", c.State())
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.msgs) != count {
		t.Fatalf("got %d messages, want %d", len(rec.msgs), count)
	}
	for i, m := range rec.msgs {
		if len(m) != 2 {
			t.Fatalf("message %d has %d bytes, want 2 (text frame leaked?)", i, len(m))
		}
		if got := binary.LittleEndian.Uint16(m); got != uint16(i) {
			t.Fatalf("message %d carries %d: out of order", i, got)
		}
	}
}

func TestClientReconnectsAfterFixedDelay(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var (
		mu       sync.Mutex
		accepts  []time.Time
		closedAt time.Time
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		mu.Lock()
		accepts = append(accepts, time.Now())
		first := len(accepts) == 1
		mu.Unlock()
		if first {
			mu.Lock()
			closedAt = time.Now()
			mu.Unlock()
			conn.Close()
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	r := startReactor(t)
	rec := newRecorder()
	sm := metrics.NewScopeMetrics()
	cfg := DefaultConfig(wsURL(srv))
	cfg.Logger = log.Discard()
	cfg.Metrics = sm
	c := New(r, rec, cfg)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	waitFor(t, rec.opened, 2, 5*time.Second)

	mu.Lock()
	gap := accepts[1].Sub(closedAt)
	mu.Unlock()
	if gap < DefaultReconnectDelay {
		t.Errorf("reconnected after %v, want at least %v", gap, DefaultReconnectDelay)
	}
	if gap > DefaultReconnectDelay+2*time.Second {
		t.Errorf("reconnected after %v, far beyond the fixed delay", gap)
	}

	opens, closes, _ := rec.counts()
	if opens != 2 || closes != 1 {
		t.Errorf("opens=%d closes=%d, want 2 and 1", opens, closes)
	}
	if got := sm.ReconnectTotal.Get(nil); got != 1 {
		t.Errorf("reconnects = %d, want 1", got)
	}
	if c.Attempts() != 2 {
		t.Errorf("Attempts() = %d, want 2", c.Attempts())
	}
}

func TestClientRetriesFailedDials(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	r := startReactor(t)
	rec := newRecorder()
	sm := metrics.NewScopeMetrics()
	cfg := DefaultConfig("ws://" + addr + "/websocket")
	cfg.ReconnectDelay = 20 * time.Millisecond
	cfg.Logger = log.Discard()
	cfg.Metrics = sm
	c := New(r, rec, cfg)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for c.Attempts() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("only %d attempts", c.Attempts())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := sm.DialErrors.Get(nil); got < 2 {
		t.Errorf("dial errors = %d, want >= 2", got)
	}
	if opens, _, _ := rec.counts(); opens != 0 {
		t.Errorf("OnOpen called %d times without a server", opens)
	}
}

func TestClientStopSilencesHandler(t *testing.T) {
	upgrader := websocket.Upgrader{}
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		<-release
		_ = conn.WriteMessage(websocket.BinaryMessage, []byte{0, 0})
	}))
	defer srv.Close()
	defer close(release)

	r := startReactor(t)
	rec := newRecorder()
	cfg := DefaultConfig(wsURL(srv))
	cfg.Logger = log.Discard()
	c := New(r, rec, cfg)
	if err := c.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitFor(t, rec.opened, 1, 5*time.Second)

	c.Stop()
	if c.State() != StateStopped {
		t.Errorf("State() = %v, want stopped", c.State())
	}
	// Flush the reactor so any in-flight callback has run.
	if _, err := r.Call(func(float64) interface{} { return nil }, time.Second); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if _, closes, msgs := rec.counts(); closes != 0 || msgs != 0 {
		t.Errorf("after Stop: closes=%d msgs=%d, want 0", closes, msgs)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{StateIdle, "idle"},
		{StateConnecting, "connecting"},
		{StateOpen, "open"},
		{StateWaiting, "waiting"},
		{StateStopped, "stopped"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}
