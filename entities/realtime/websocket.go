package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"crm/controllers"
	"crm/metrics"
	"crm/middlewares"
	"crm/schemas"
	"crm/utils"

	"github.com/gorilla/websocket"
)

const (
	WS_WRITE_WAIT     = 10 * time.Second
	WS_MAX_FRAME_SIZE = 1 << 20
)

// Notification is pushed to every socket of a company after a mutation.
type Notification struct {
	Event     string `json:"event"`
	CompanyID string `json:"companyId"`
	Source    string `json:"source"`
}

type client struct {
	conn    *websocket.Conn
	session middlewares.Session
	writeMu sync.Mutex
}

func (c *client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(WS_WRITE_WAIT))
	return c.conn.WriteJSON(v)
}

// Hub owns the open sockets grouped by company and feeds their frames to the
// dispatcher.
type Hub struct {
	dispatcher *controllers.Dispatcher
	upgrader   websocket.Upgrader
	logger     *slog.Logger

	mu      sync.Mutex
	clients map[string]map[*client]bool
}

func NewHub(dispatcher *controllers.Dispatcher, allowedOrigins []string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		dispatcher: dispatcher,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, origin)
			},
		},
		logger:  logger.With("component", "realtime"),
		clients: make(map[string]map[*client]bool),
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	companyClients, ok := h.clients[c.session.CompanyID]
	if !ok {
		companyClients = make(map[*client]bool)
		h.clients[c.session.CompanyID] = companyClients
	}
	companyClients[c] = true
	metrics.SocketOpened()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	companyClients, ok := h.clients[c.session.CompanyID]
	if !ok || !companyClients[c] {
		return
	}
	delete(companyClients, c)
	if len(companyClients) == 0 {
		delete(h.clients, c.session.CompanyID)
	}
	metrics.SocketClosed()
}

// Notify implements controllers.Notifier for mutations made over REST.
func (h *Hub) Notify(companyID, topic, sourceEvent string) {
	h.broadcast(companyID, Notification{Event: topic, CompanyID: companyID, Source: sourceEvent}, nil)
}

func (h *Hub) broadcast(companyID string, msg Notification, except *client) {
	h.mu.Lock()
	targets := make([]*client, 0, len(h.clients[companyID]))
	for c := range h.clients[companyID] {
		if c != except {
			targets = append(targets, c)
		}
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.writeJSON(msg); err != nil {
			c.conn.Close()
			h.unregister(c)
		}
	}
}

// ServeHTTP upgrades the request. It must run behind JWTAuth.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session, ok := middlewares.SessionFromContext(r.Context())
	if !ok {
		utils.SendResponse(w, http.StatusUnauthorized, schemas.Envelope{Error: utils.ErrMissingSession.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(WS_MAX_FRAME_SIZE)

	c := &client{conn: conn, session: session}
	h.register(c)
	defer h.unregister(c)

	h.logger.Debug("socket connected", slog.String("company_id", session.CompanyID), slog.String("user_id", session.UserID))

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("socket closed unexpectedly", slog.String("error", err.Error()))
			}
			return
		}

		req := controllers.Request{}
		if err := json.Unmarshal(frame, &req); err != nil {
			reply := controllers.Response{Event: "error", Data: schemas.Envelope{Error: utils.InvalidRequest(err).Error()}}
			if err := c.writeJSON(reply); err != nil {
				return
			}
			continue
		}

		res := h.dispatcher.Dispatch(r.Context(), &c.session, req)
		if err := c.writeJSON(res); err != nil {
			return
		}

		if res.Done && res.Topic != "" {
			h.broadcast(res.CompanyID, Notification{Event: res.Topic, CompanyID: res.CompanyID, Source: req.Event}, c)
		}
	}
}
