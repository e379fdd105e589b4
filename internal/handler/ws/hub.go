package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"FinScope/internal/domain/models"
	domrepo "FinScope/internal/domain/repository"
	applogger "FinScope/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// Message is the envelope for both directions. Clients send subscribe and unsubscribe;
// the hub sends subscribed, report and error.
type Message struct {
	Type    string                 `json:"type"`
	Symbols []string               `json:"symbols,omitempty"`
	Report  *models.AnalysisReport `json:"report,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

type client struct {
	conn    *websocket.Conn
	send    chan []byte
	mu      sync.RWMutex
	symbols map[string]bool
}

// wants reports true for every symbol until the client subscribes to specific ones.
func (c *client) wants(symbol string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.symbols) == 0 || c.symbols[symbol]
}

func (c *client) subscribed() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.symbols))
	for s := range c.symbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Hub streams finished analysis reports to websocket subscribers.
type Hub struct {
	logger       *applogger.Logger
	metrics      domrepo.Metrics
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	bufSize      int

	mu      sync.RWMutex
	clients map[*client]struct{}
}

type Option func(*Hub)

func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.pingInterval = d
		}
	}
}

// WithSendBuffer sets how many reports may queue per client before new ones are dropped.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.bufSize = n
		}
	}
}

func NewHub(lgr *applogger.Logger, metrics domrepo.Metrics, opts ...Option) *Hub {
	if lgr == nil {
		lgr = applogger.Nop()
	}
	h := &Hub{
		logger:  lgr,
		metrics: metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pingInterval: 30 * time.Second,
		bufSize:      32,
		clients:      make(map[*client]struct{}),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/reports", h.Serve)
}

// Serve upgrades the request and blocks until the client goes away.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", applogger.Error(err))
		return nil
	}
	cl := &client{conn: conn, send: make(chan []byte, h.bufSize), symbols: map[string]bool{}}

	h.mu.Lock()
	h.clients[cl] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Info("ws client connected", applogger.String("remote", c.RealIP()), applogger.Int("clients", n))

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(cl)
	}()
	h.readPump(cl)
	h.remove(cl)
	<-done
	return nil
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
	h.mu.Unlock()
}

func (h *Hub) readPump(cl *client) {
	pongWait := h.pingInterval * 2
	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := cl.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("ws read failed", applogger.Error(err))
			}
			return
		}
		switch msg.Type {
		case "subscribe", "unsubscribe":
			cl.mu.Lock()
			for _, s := range msg.Symbols {
				s = strings.ToUpper(strings.TrimSpace(s))
				if s == "" {
					continue
				}
				if msg.Type == "subscribe" {
					cl.symbols[s] = true
				} else {
					delete(cl.symbols, s)
				}
			}
			cl.mu.Unlock()
			h.enqueue(cl, Message{Type: "subscribed", Symbols: cl.subscribed()})
		default:
			h.enqueue(cl, Message{Type: "error", Error: "unknown message type " + msg.Type})
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()
	for {
		select {
		case b, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) enqueue(cl *client, msg Message) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[cl]; !ok {
		return
	}
	select {
	case cl.send <- b:
	default:
	}
}

// Record implements AnalysisSink. Slow clients miss reports rather than block the pipeline.
func (h *Hub) Record(_ context.Context, r *models.AnalysisReport) error {
	b, err := json.Marshal(Message{Type: "report", Report: r})
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients {
		if !cl.wants(r.Symbol) {
			continue
		}
		select {
		case cl.send <- b:
		default:
			h.metrics.RecordError("ws_drop")
		}
	}
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
}

var _ domrepo.AnalysisSink = (*Hub)(nil)
