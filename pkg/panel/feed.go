package panel

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"oscope-go/pkg/scope"
)

// statusFeed pushes the scope status to every connected /websocket
// client at a fixed rate, and immediately after a control action.
type statusFeed struct {
	server   *Server
	interval time.Duration

	mu      sync.RWMutex
	clients map[int64]*feedClient
	nextID  int64

	wake chan struct{}
	done chan struct{}
	once sync.Once
}

type feedClient struct {
	id     int64
	conn   *websocket.Conn
	sendCh chan scope.Status
	done   chan struct{}
	once   sync.Once
}

func newStatusFeed(s *Server, interval time.Duration) *statusFeed {
	return &statusFeed{
		server:   s,
		interval: interval,
		clients:  make(map[int64]*feedClient),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

func (f *statusFeed) kick() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *statusFeed) run() {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
		case <-f.wake:
		case <-f.done:
			return
		}
		f.broadcast()
	}
}

func (f *statusFeed) broadcast() {
	f.mu.RLock()
	n := len(f.clients)
	f.mu.RUnlock()
	if n == 0 {
		return
	}
	st, err := f.server.scope.Status()
	if err != nil {
		return
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, c := range f.clients {
		c.send(st)
	}
}

func (f *statusFeed) add(conn *websocket.Conn) *feedClient {
	id := atomic.AddInt64(&f.nextID, 1)
	c := &feedClient{
		id:     id,
		conn:   conn,
		sendCh: make(chan scope.Status, 4),
		done:   make(chan struct{}),
	}
	f.mu.Lock()
	f.clients[id] = c
	f.mu.Unlock()
	return c
}

func (f *statusFeed) remove(c *feedClient) {
	f.mu.Lock()
	delete(f.clients, c.id)
	f.mu.Unlock()
	c.close()
}

func (f *statusFeed) close() {
	f.once.Do(func() { close(f.done) })
	f.mu.Lock()
	for id, c := range f.clients {
		c.close()
		delete(f.clients, id)
	}
	f.mu.Unlock()
}

// send drops the update when the client is behind; the next tick carries
// fresher state anyway.
func (c *feedClient) send(st scope.Status) {
	select {
	case c.sendCh <- st:
	case <-c.done:
	default:
	}
}

func (c *feedClient) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

func (c *feedClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case st := <-c.sendCh:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteJSON(st); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump discards client messages and notices when the peer leaves.
func (c *feedClient) readPump() {
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("websocket upgrade failed")
		return
	}
	c := s.feed.add(conn)
	s.log.WithField("client", c.id).Debug("status client connected")

	if st, err := s.scope.Status(); err == nil {
		c.send(st)
	}
	go c.writePump()
	c.readPump()

	s.feed.remove(c)
	s.log.WithField("client", c.id).Debug("status client disconnected")
}
