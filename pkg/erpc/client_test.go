package erpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	scopeerrors "oscope-go/pkg/errors"
	"oscope-go/pkg/log"
	"oscope-go/pkg/metrics"
)

type recordedCall struct {
	Method string
	Params json.RawMessage
}

type fakeDevice struct {
	mu    sync.Mutex
	calls []recordedCall
	reply func(req Request) (int, any)
}

func (d *fakeDevice) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var raw struct {
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
		ID     uint64          `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	d.mu.Lock()
	d.calls = append(d.calls, recordedCall{Method: raw.Method, Params: raw.Params})
	d.mu.Unlock()

	status, body := http.StatusOK, any(Response{ID: raw.ID, Result: json.RawMessage("null")})
	if d.reply != nil {
		status, body = d.reply(Request{Method: raw.Method, ID: raw.ID})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (d *fakeDevice) recorded() []recordedCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]recordedCall(nil), d.calls...)
}

func newTestClient(t *testing.T, dev *fakeDevice, sm *metrics.ScopeMetrics) *Client {
	t.Helper()
	srv := httptest.NewServer(dev)
	t.Cleanup(srv.Close)
	c := New(Config{
		URL:        srv.URL + "/erpc",
		HTTPClient: srv.Client(),
		Logger:     log.Discard(),
		Metrics:    sm,
	})
	t.Cleanup(c.Close)
	return c
}

func TestPushesKeepOrder(t *testing.T) {
	dev := &fakeDevice{}
	c := newTestClient(t, dev, nil)

	c.SetHscale(1000)
	c.SetChannels([2]bool{true, false})
	c.SetChannels([2]bool{false, false})
	c.SetHscale(200)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	want := []recordedCall{
		{MethodSetHscale, json.RawMessage(`1000`)},
		{MethodSetChannels, json.RawMessage(`[true,false]`)},
		{MethodSetChannels, json.RawMessage(`[false,false]`)},
		{MethodSetHscale, json.RawMessage(`200`)},
	}
	got := dev.recorded()
	if len(got) != len(want) {
		t.Fatalf("device saw %d calls, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Method != want[i].Method || string(got[i].Params) != string(want[i].Params) {
			t.Errorf("call %d = %s %s, want %s %s", i,
				got[i].Method, got[i].Params, want[i].Method, want[i].Params)
		}
	}
}

func TestCallDecodesResult(t *testing.T) {
	dev := &fakeDevice{reply: func(req Request) (int, any) {
		return http.StatusOK, map[string]any{"result": map[string]any{"hscale": 500}, "id": req.ID}
	}}
	c := newTestClient(t, dev, nil)

	var out struct {
		HScale int `json:"hscale"`
	}
	if err := c.Call(context.Background(), "getHscale", nil, &out); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out.HScale != 500 {
		t.Errorf("hscale = %d, want 500", out.HScale)
	}
}

func TestCallErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply func(Request) (int, any)
		code  scopeerrors.ErrorCode
	}{
		{
			name: "remote error",
			reply: func(req Request) (int, any) {
				return http.StatusOK, Response{ID: req.ID, Error: &Error{Code: -32601, Message: "no such method"}}
			},
			code: scopeerrors.ErrRPCRemote,
		},
		{
			name: "http status",
			reply: func(Request) (int, any) {
				return http.StatusInternalServerError, "boom"
			},
			code: scopeerrors.ErrRPC,
		},
		{
			name: "garbage body",
			reply: func(Request) (int, any) {
				return http.StatusOK, "not an object"
			},
			code: scopeerrors.ErrRPC,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := metrics.NewScopeMetrics()
			c := newTestClient(t, &fakeDevice{reply: tt.reply}, sm)
			err := c.Call(context.Background(), MethodSetHscale, 100, nil)
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := scopeerrors.CodeOf(err); got != tt.code {
				t.Errorf("CodeOf = %q, want %q (%v)", got, tt.code, err)
			}
			if n := sm.RPCTotal.Get(metrics.Labels{"method": MethodSetHscale, "result": "error"}); n != 1 {
				t.Errorf("error count = %d, want 1", n)
			}
		})
	}
}

func TestCallUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{URL: url, Timeout: time.Second, Logger: log.Discard()})
	defer c.Close()
	err := c.Call(context.Background(), MethodSetChannels, []bool{true, true}, nil)
	if !scopeerrors.IsRPC(err) {
		t.Errorf("expected RPC error, got %v", err)
	}
}

func TestPushRecordsMetrics(t *testing.T) {
	sm := metrics.NewScopeMetrics()
	c := newTestClient(t, &fakeDevice{}, sm)

	c.SetHscale(100)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if n := sm.RPCTotal.Get(metrics.Labels{"method": MethodSetHscale, "result": "ok"}); n != 1 {
		t.Errorf("ok count = %d, want 1", n)
	}
	snap := sm.RPCLatency.GetSnapshot(metrics.Labels{"method": MethodSetHscale})
	if snap.Count != 1 {
		t.Errorf("latency observations = %d, want 1", snap.Count)
	}
}

func TestGoAfterCloseIsIgnored(t *testing.T) {
	dev := &fakeDevice{}
	c := newTestClient(t, dev, nil)
	c.Close()
	c.SetHscale(100)
	c.Close()
	if got := dev.recorded(); len(got) != 0 {
		t.Errorf("device saw %d calls after Close", len(got))
	}
}

func TestFullQueueDrops(t *testing.T) {
	block := make(chan struct{})
	dev := &fakeDevice{reply: func(req Request) (int, any) {
		<-block
		return http.StatusOK, Response{ID: req.ID}
	}}
	sm := metrics.NewScopeMetrics()
	srv := httptest.NewServer(dev)
	defer srv.Close()
	c := New(Config{URL: srv.URL, HTTPClient: srv.Client(), QueueSize: 1, Logger: log.Discard(), Metrics: sm})

	c.SetHscale(100) // taken by the worker, blocks in the handler
	deadline := time.Now().Add(5 * time.Second)
	for len(dev.recorded()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	c.SetHscale(200) // fills the queue
	c.SetHscale(500) // dropped

	if n := sm.PushesDropped.Get(metrics.Labels{"method": MethodSetHscale}); n != 1 {
		t.Errorf("dropped = %d, want 1", n)
	}
	close(block)
	c.Close()

	var params []int
	for _, call := range dev.recorded() {
		var v int
		_ = json.Unmarshal(call.Params, &v)
		params = append(params, v)
	}
	if !reflect.DeepEqual(params, []int{100, 200}) {
		t.Errorf("device saw %v, want [100 200]", params)
	}
}
