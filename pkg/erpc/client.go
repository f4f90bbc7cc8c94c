// Package erpc sends parameter calls to the scope device.
//
// A call is one JSON object POSTed to the device's RPC endpoint:
//
//	{"method": "setHscale", "params": 1000, "id": 7}
//
// and the device answers {"result": ..., "id": 7} or
// {"error": {"code": ..., "message": ...}, "id": 7}.
//
// Pushes from the capture loop are fire-and-forget. They are queued and
// sent by one worker in submission order, so a later setChannels can never
// overtake an earlier one on the wire.
package erpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	scopeerrors "oscope-go/pkg/errors"
	"oscope-go/pkg/log"
	"oscope-go/pkg/metrics"
)

// Method names understood by the device.
const (
	MethodSetHscale   = "setHscale"
	MethodSetChannels = "setChannels"
	MethodSet         = "set"
)

// DefaultQueueSize bounds the number of pushes waiting for the worker.
const DefaultQueueSize = 64

// Request is one call on the wire.
type Request struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
	ID     uint64 `json:"id,omitempty"`
}

// Response is the device's answer.
type Response struct {
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
	ID     uint64          `json:"id,omitempty"`
}

// Error is a device-side failure.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Config configures a Client.
type Config struct {
	URL       string
	Timeout   time.Duration
	QueueSize int

	// HTTPClient overrides the default client; tests use the httptest one.
	HTTPClient *http.Client

	Logger  *log.Logger
	Metrics *metrics.ScopeMetrics
}

type push struct {
	method string
	params any
}

// Client is an ordered RPC client.
type Client struct {
	url     string
	http    *http.Client
	log     *log.Logger
	metrics *metrics.ScopeMetrics

	queue   chan push
	pending atomic.Int64
	done    chan struct{}
	abort   sync.Once
	wg      sync.WaitGroup

	mu     sync.Mutex
	nextID uint64
	closed bool
}

// New creates a client and starts its worker.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.GetLogger("erpc")
	}
	c := &Client{
		url:     cfg.URL,
		http:    hc,
		log:     logger,
		metrics: cfg.Metrics,
		queue:   make(chan push, cfg.QueueSize),
		done:    make(chan struct{}),
	}
	c.wg.Add(1)
	go c.worker()
	return c
}

// SetHscale pushes the horizontal scale in microseconds per division.
func (c *Client) SetHscale(us int) {
	c.Go(MethodSetHscale, us)
}

// SetChannels pushes the channel enable mask.
func (c *Client) SetChannels(mask [2]bool) {
	c.Go(MethodSetChannels, mask[:])
}

// Go queues a call without waiting for it. It never blocks: when the
// queue is full the push is dropped and counted.
func (c *Client) Go(method string, params any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.pending.Add(1)
	select {
	case c.queue <- push{method: method, params: params}:
	default:
		c.pending.Add(-1)
		c.metrics.RecordPushDropped(method)
		c.log.WithField("method", method).Warn("rpc queue full, push dropped")
	}
}

// Call sends one call and waits for the answer. When result is non-nil
// the response result is decoded into it.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	start := time.Now()
	err := c.call(ctx, method, params, result)
	c.metrics.RecordRPC(method, err, time.Since(start))
	return err
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()

	body, err := json.Marshal(Request{Method: method, Params: params, ID: id})
	if err != nil {
		return scopeerrors.RPCError(method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return scopeerrors.RPCError(method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return scopeerrors.RPCError(method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return scopeerrors.RPCError(method, err)
	}
	if resp.StatusCode != http.StatusOK {
		return scopeerrors.RPCError(method, fmt.Errorf("http %d: %s", resp.StatusCode, bytes.TrimSpace(raw)))
	}
	// Some firmware answers a bare 200 with no body.
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	var r Response
	if err := json.Unmarshal(raw, &r); err != nil {
		return scopeerrors.RPCError(method, err)
	}
	if r.Error != nil {
		return scopeerrors.RemoteError(method, r.Error.Code, r.Error.Message)
	}
	if result != nil && len(r.Result) > 0 {
		if err := json.Unmarshal(r.Result, result); err != nil {
			return scopeerrors.RPCError(method, err)
		}
	}
	return nil
}

func (c *Client) worker() {
	defer c.wg.Done()
	for {
		select {
		case p, ok := <-c.queue:
			if !ok {
				return
			}
			c.send(p)
			c.pending.Add(-1)
		case <-c.done:
			return
		}
	}
}

func (c *Client) send(p push) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := c.Call(ctx, p.method, p.params, nil); err != nil {
		c.log.WithError(err).WithField("method", p.method).Warn("rpc failed")
		return
	}
	c.log.WithFields(log.Fields{"method": p.method, "params": p.params}).Debug("rpc sent")
}

// Flush waits until every push queued so far has been sent, or ctx ends.
func (c *Client) Flush(ctx context.Context) error {
	tick := time.NewTicker(5 * time.Millisecond)
	defer tick.Stop()
	for c.pending.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick.C:
		}
	}
	return nil
}

// Close drains queued pushes and stops the worker.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.queue)
	c.mu.Unlock()
	c.wg.Wait()
}

// Abort stops the worker, abandoning queued pushes and any call in flight.
func (c *Client) Abort() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
	c.mu.Unlock()
	c.abort.Do(func() { close(c.done) })
	c.wg.Wait()
}
