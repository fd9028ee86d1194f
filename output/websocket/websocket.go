// Package websocket broadcasts classification results and alerts to
// connected WebSocket clients for live dashboards. Each message is a JSON
// envelope with a type tag ("result" or "alert") and the payload.
//
// Slow clients are disconnected rather than buffered indefinitely: a
// client whose send queue is full when a broadcast arrives is dropped,
// because a live view that lags the stream is worse than a reconnect.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/c360/neurostream/errors"
	"github.com/c360/neurostream/neural"
)

// Timing constants for the client write path.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendQueueDepth = 32
)

// Config configures the broadcaster.
type Config struct {
	// Addr to listen on, e.g. ":8090". Required.
	Addr string

	// Path of the WebSocket endpoint (default: "/ws").
	Path string

	// Logger (optional, defaults to slog.Default()).
	Logger *slog.Logger
}

// envelope is the wire format sent to clients.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// client is one connected WebSocket peer with a bounded send queue.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Broadcaster serves the WebSocket endpoint and fans messages out to all
// connected clients.
type Broadcaster struct {
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*client]struct{}

	server   *http.Server
	listener net.Listener

	lifecycleMu sync.Mutex
	running     atomic.Bool

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// New creates a broadcaster. Call Start to begin serving.
func New(cfg Config) (*Broadcaster, error) {
	if cfg.Addr == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "websocket", "New",
			"listen address is required")
	}
	if cfg.Path == "" {
		cfg.Path = "/ws"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Broadcaster{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "websocket-sink"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Dashboards connect cross-origin in development setups.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}, nil
}

// Start binds the listener and serves the endpoint. Idempotent.
func (b *Broadcaster) Start(_ context.Context) error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	if b.running.Load() {
		return nil
	}

	ln, err := net.Listen("tcp", b.cfg.Addr)
	if err != nil {
		return errors.WrapTransient(err, "websocket", "Start",
			"bind "+b.cfg.Addr)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(b.cfg.Path, b.handleUpgrade)
	b.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	b.listener = ln
	b.running.Store(true)

	go func() {
		if err := b.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			b.logger.Error("websocket server failed", "error", err)
		}
	}()

	b.logger.Info("websocket sink listening", "addr", ln.Addr().String(), "path", b.cfg.Path)
	return nil
}

// Addr returns the bound listen address, useful when Addr was ":0".
func (b *Broadcaster) Addr() string {
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// handleUpgrade upgrades an HTTP request and runs the client pumps.
func (b *Broadcaster) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendQueueDepth)}
	b.clientsMu.Lock()
	b.clients[c] = struct{}{}
	n := len(b.clients)
	b.clientsMu.Unlock()
	b.logger.Info("client connected", "remote", r.RemoteAddr, "clients", n)

	go b.writePump(c)
	go b.readPump(c)
}

// readPump consumes client frames to service pongs and detect closure.
func (b *Broadcaster) readPump(c *client) {
	defer b.removeClient(c)
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump drains the client's send queue and keeps the connection alive
// with pings.
func (b *Broadcaster) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		b.removeClient(c)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
			b.sent.Add(1)
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// removeClient unregisters and closes a client. Safe to call twice.
// c.send is closed under clientsMu: broadcast only sends while holding the
// lock and only to registered clients, so a send can never hit a closed
// channel.
func (b *Broadcaster) removeClient(c *client) {
	b.clientsMu.Lock()
	_, present := b.clients[c]
	delete(b.clients, c)
	if present {
		close(c.send)
	}
	b.clientsMu.Unlock()
	c.conn.Close()
}

// broadcast queues a message to every client, dropping clients whose
// queue is full.
func (b *Broadcaster) broadcast(msg []byte) {
	var slow []*client

	b.clientsMu.Lock()
	for c := range b.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	b.clientsMu.Unlock()

	for _, c := range slow {
		b.dropped.Add(1)
		b.logger.Warn("dropping slow websocket client")
		b.removeClient(c)
	}
}

// Deliver broadcasts one result.
func (b *Broadcaster) Deliver(r neural.Result) error {
	return b.send("result", r)
}

// DeliverAlert broadcasts one alert.
func (b *Broadcaster) DeliverAlert(a neural.Alert) error {
	return b.send("alert", a)
}

func (b *Broadcaster) send(kind string, payload any) error {
	if !b.running.Load() {
		return errors.WrapInvalid(errors.ErrNotStarted, "websocket", "send",
			"broadcaster is not running")
	}
	data, err := json.Marshal(envelope{Type: kind, Payload: payload})
	if err != nil {
		return errors.WrapInvalid(err, "websocket", "send", "marshal "+kind)
	}
	b.broadcast(data)
	return nil
}

// Name identifies the sink.
func (b *Broadcaster) Name() string { return "websocket" }

// ClientCount returns the number of connected clients.
func (b *Broadcaster) ClientCount() int {
	b.clientsMu.RLock()
	defer b.clientsMu.RUnlock()
	return len(b.clients)
}

// Stop disconnects all clients and shuts the server down.
func (b *Broadcaster) Stop(timeout time.Duration) error {
	b.lifecycleMu.Lock()
	defer b.lifecycleMu.Unlock()

	if !b.running.Load() {
		return nil
	}
	b.running.Store(false)

	b.clientsMu.Lock()
	clients := make([]*client, 0, len(b.clients))
	for c := range b.clients {
		clients = append(clients, c)
	}
	b.clientsMu.Unlock()
	for _, c := range clients {
		b.removeClient(c)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := b.server.Shutdown(ctx); err != nil {
		return errors.WrapTransient(err, "websocket", "Stop",
			fmt.Sprintf("shutdown within %v", timeout))
	}
	return nil
}
