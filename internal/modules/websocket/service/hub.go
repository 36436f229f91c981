package service

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"signal_bot/internal/models"
)

const (
	maxClients   = 200
	writeTimeout = 10 * time.Second
	sendBuffer   = 64
)

// ClientGauge - число подключённых клиентов в метриках.
type ClientGauge interface {
	SetWSClients(n int)
}

// Message - всё, что уходит клиенту.
type Message struct {
	Type        string         `json:"type"`
	Data        *models.Signal `json:"data,omitempty"`
	Timestamp   *time.Time     `json:"timestamp,omitempty"`
	Connections *int           `json:"connections,omitempty"`
	Filters     *Filter        `json:"filters,omitempty"`
	Message     string         `json:"message,omitempty"`
}

// Hub держит websocket-клиентов и рассылает им принятые сигналы.
// Медленный клиент с заполненным буфером отключается.
type Hub struct {
	heartbeat time.Duration
	upgrader  websocket.Upgrader
	gauge     ClientGauge
	log       *zap.SugaredLogger

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	// /ws принимает subscribe, /ws/signals - только фильтры из query
	interactive bool

	mu     sync.RWMutex
	filter Filter

	closeOnce sync.Once
}

func NewHub(heartbeat time.Duration, gauge ClientGauge, log *zap.SugaredLogger) *Hub {
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Hub{
		heartbeat: heartbeat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		gauge:   gauge,
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

func (h *Hub) Name() string { return "websocket" }

// Count - число подключённых клиентов.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish рассылает {"type":"signal","data":...} клиентам, чей фильтр пропускает сигнал.
func (h *Hub) Publish(_ context.Context, sig models.Signal) error {
	payload, err := sonic.Marshal(Message{Type: "signal", Data: &sig})
	if err != nil {
		return err
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		if !c.accepts(sig) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warnf("[WS] dropping slow client %s", c.conn.RemoteAddr())
		h.remove(c)
	}
	return nil
}

// ServeWS - /ws: все сигналы, фильтр можно задать сообщением subscribe.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, Filter{}, true)
}

// ServeSignals - /ws/signals?symbols=BTCUSDT,ETHUSDT&timeframes=1h&strategies=GCM,RSI
func (h *Hub) ServeSignals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.serve(w, r, NewFilter(splitParam(q.Get("symbols")), splitParam(q.Get("timeframes")), splitParam(q.Get("strategies"))), false)
}

func (h *Hub) serve(w http.ResponseWriter, r *http.Request, f Filter, interactive bool) {
	h.mu.RLock()
	full := h.closed || len(h.clients) >= maxClients
	h.mu.RUnlock()
	if full {
		http.Error(w, "websocket at capacity", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("[WS] upgrade: %v", err)
		return
	}

	c := &client{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		interactive: interactive,
		filter:      f,
	}
	if !h.add(c) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server at capacity"))
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) add(c *client) bool {
	h.mu.Lock()
	if h.closed || len(h.clients) >= maxClients {
		h.mu.Unlock()
		return false
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.setGauge(n)
	h.log.Infof("[WS] client connected %s, total %d", c.conn.RemoteAddr(), n)
	return true
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.close()
	if ok {
		h.setGauge(n)
		h.log.Infof("[WS] client disconnected, total %d", n)
	}
}

func (h *Hub) setGauge(n int) {
	if h.gauge != nil {
		h.gauge.SetWSClients(n)
	}
}

// Close отключает всех клиентов; новые подключения отклоняются.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	h.setGauge(0)
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func (c *client) accepts(sig models.Signal) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter.Match(sig)
}

func (c *client) setFilter(f Filter) {
	c.mu.Lock()
	c.filter = f
	c.mu.Unlock()
}

func (c *client) writePump() {
	ticker := time.NewTicker(c.hub.heartbeat)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.hub.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.hub.remove(c)
				return
			}
			now := time.Now().UTC()
			n := c.hub.Count()
			hb, _ := sonic.Marshal(Message{Type: "heartbeat", Timestamp: &now, Connections: &n})
			if err := c.conn.WriteMessage(websocket.TextMessage, hb); err != nil {
				c.hub.remove(c)
				return
			}
		}
	}
}

type inbound struct {
	Type       string   `json:"type"`
	Symbols    []string `json:"symbols"`
	Timeframes []string `json:"timeframes"`
	Strategies []string `json:"strategies"`
}

func (c *client) readPump() {
	defer c.hub.remove(c)

	pongWait := 2 * c.hub.heartbeat
	c.conn.SetReadLimit(64 * 1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warnf("[WS] read: %v", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		var in inbound
		if err = sonic.Unmarshal(data, &in); err != nil {
			if c.interactive {
				c.reply(Message{Type: "error", Message: "Invalid JSON"})
			}
			continue
		}

		switch in.Type {
		case "ping":
			c.reply(Message{Type: "pong"})
		case "subscribe":
			if !c.interactive {
				continue
			}
			f := NewFilter(in.Symbols, in.Timeframes, in.Strategies)
			c.setFilter(f)
			c.reply(Message{Type: "subscribed", Filters: &f})
		case "unsubscribe":
			if c.interactive {
				c.setFilter(Filter{})
				c.reply(Message{Type: "unsubscribed"})
			}
		}
	}
}

// reply кладёт ответ в очередь отправки; писать в conn может только writePump.
func (c *client) reply(m Message) {
	b, err := sonic.Marshal(m)
	if err != nil {
		return
	}
	defer func() { _ = recover() }() // send мог закрыться параллельно
	select {
	case c.send <- b:
	default:
	}
}

func splitParam(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
