package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"bikeshare-dashboard/internal/aggregation"
	"bikeshare-dashboard/internal/services"
	"bikeshare-dashboard/pkg/logging"
	"bikeshare-dashboard/pkg/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Range requests are tiny
	maxMessageSize = 4096

	sendBuffer = 16
)

// Live message types
const (
	LiveTypeDashboard = "dashboard"
	LiveTypeError     = "error"
)

// LiveRequest is a range selection sent by the browser
type LiveRequest struct {
	RangeRequest
	RequestID string `json:"request_id,omitempty"`
}

// LiveMessage is one server frame
type LiveMessage struct {
	Type      string                 `json:"type"`
	RequestID string                 `json:"request_id,omitempty"`
	Data      *aggregation.Dashboard `json:"data,omitempty"`
	Error     *ErrorResponse         `json:"error,omitempty"`
}

// LiveHandler serves the live dashboard over websocket.
// Every range message is answered with a full recomputation, in arrival order.
type LiveHandler struct {
	dashboard *services.DashboardService
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
	validate  *validator.Validate
	upgrader  websocket.Upgrader

	mu      sync.Mutex
	clients map[*liveClient]struct{}
}

// NewLiveHandler creates a new live dashboard handler
func NewLiveHandler(dashboard *services.DashboardService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *LiveHandler {
	return &LiveHandler{
		dashboard: dashboard,
		logger:    logger,
		metrics:   metricsCollector,
		validate:  newValidator(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		clients: make(map[*liveClient]struct{}),
	}
}

type liveClient struct {
	id        string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	logger    *logging.ContextLogger
}

// ServeWS handles GET /ws/dashboard
func (h *LiveHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		h.logger.Warn(r.Context(), "[LIVE_UPGRADE_ERROR] Websocket upgrade failed", logging.Fields{
			"error":       err.Error(),
			"remote_addr": r.RemoteAddr,
		})
		return
	}

	// the connection outlives the HTTP request
	ctx := context.WithoutCancel(r.Context())

	id := uuid.New().String()
	c := &liveClient{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
		logger: h.logger.WithFields(logging.Fields{
			"client_id":   id,
			"remote_addr": r.RemoteAddr,
		}),
	}
	h.register(ctx, c)

	go h.writePump(ctx, c)

	// initial frame covers the whole dataset
	h.enqueue(c, h.respond(ctx, LiveRequest{}))
	h.readPump(ctx, c)
}

// ClientCount returns the number of open connections
func (h *LiveHandler) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// CloseAll disconnects every client; hijacked connections are not closed by http.Server.Shutdown
func (h *LiveHandler) CloseAll() {
	h.mu.Lock()
	clients := make([]*liveClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		h.close(context.Background(), c)
	}
}

func (h *LiveHandler) register(ctx context.Context, c *liveClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	h.metrics.LiveConnections.Inc()
	c.logger.Info(ctx, "[LIVE_CONNECT] Live dashboard client connected", nil)
}

func (h *LiveHandler) close(ctx context.Context, c *liveClient) {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close()

		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()

		h.metrics.LiveConnections.Dec()
		c.logger.Info(ctx, "[LIVE_DISCONNECT] Live dashboard client disconnected", nil)
	})
}

func (h *LiveHandler) readPump(ctx context.Context, c *liveClient) {
	defer h.close(ctx, c)

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Warn(ctx, "[LIVE_READ_ERROR] Unexpected close", logging.Fields{
					"error": err.Error(),
				})
			}
			return
		}

		var req LiveRequest
		if err := json.Unmarshal(message, &req); err != nil {
			h.metrics.RecordLiveMessage("in", "invalid")
			h.enqueue(c, h.errorFrame("", http.StatusBadRequest, "invalid message, expected JSON with start_date and end_date"))
			continue
		}
		h.metrics.RecordLiveMessage("in", "range")

		if !h.enqueue(c, h.respond(ctx, req)) {
			return
		}
	}
}

func (h *LiveHandler) writePump(ctx context.Context, c *liveClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.close(ctx, c)
	}()

	for {
		select {
		case <-c.done:
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn(ctx, "[LIVE_WRITE_ERROR] Failed to write frame", logging.Fields{
					"error": err.Error(),
				})
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue hands a frame to the write pump; false once the client is gone
func (h *LiveHandler) enqueue(c *liveClient, frame []byte) bool {
	if frame == nil {
		return true
	}
	select {
	case c.send <- frame:
		return true
	case <-c.done:
		return false
	}
}

// respond renders the requested range into a dashboard or error frame
func (h *LiveHandler) respond(ctx context.Context, req LiveRequest) []byte {
	if err := validateStruct(h.validate, req.RangeRequest); err != nil {
		return h.errorFrame(req.RequestID, StatusFor(err), err.Error())
	}
	dr, err := req.DateRange(h.dashboard.Bounds())
	if err != nil {
		return h.errorFrame(req.RequestID, StatusFor(err), err.Error())
	}

	d, err := h.dashboard.Render(ctx, dr)
	if err != nil {
		status := StatusFor(err)
		message := err.Error()
		if status == http.StatusInternalServerError {
			message = "internal error"
		}
		return h.errorFrame(req.RequestID, status, message)
	}

	return h.frame(ctx, LiveMessage{Type: LiveTypeDashboard, RequestID: req.RequestID, Data: d})
}

func (h *LiveHandler) errorFrame(requestID string, status int, message string) []byte {
	return h.frame(context.Background(), LiveMessage{
		Type:      LiveTypeError,
		RequestID: requestID,
		Error: &ErrorResponse{
			Error:   http.StatusText(status),
			Message: message,
			Code:    status,
		},
	})
}

func (h *LiveHandler) frame(ctx context.Context, msg LiveMessage) []byte {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(ctx, "[LIVE_ENCODE_ERROR] Failed to encode frame", logging.Fields{
			"type": msg.Type,
		}, err)
		return nil
	}
	h.metrics.RecordLiveMessage("out", msg.Type)
	return data
}

// RegisterRoutes registers the live dashboard route
func (h *LiveHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws/dashboard", h.ServeWS).Methods(http.MethodGet)
}
