// Package realtime is the websocket gateway. Connections are authenticated
// during the HTTP handshake and grouped by user id; the location
// broadcaster writes to every connection and the notification dispatcher
// writes to one user's group at a time.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"bus_tracker/internal/metrics"
	"bus_tracker/internal/middleware"
)

// Event names
const (
	EventBusLocationUpdate = "bus-location-update"
	EventNewNotification   = "new_notification"
)

// Envelope is the frame format of every server push.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// AuthFunc resolves a bearer token to a user id.
type AuthFunc func(token string) (uint, error)

// upgrader configures the WebSocket connection.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // mobile clients send no Origin; auth is the token
	},
}

// Hub tracks live connections grouped by user id.
type Hub struct {
	mu     sync.RWMutex
	groups map[uint]map[*Client]struct{}
	count  int
	closed bool

	auth       AuthFunc
	sendBuffer int
}

func NewHub(auth AuthFunc, sendBuffer int) *Hub {
	if sendBuffer < 1 {
		sendBuffer = 16
	}
	return &Hub{
		groups:     make(map[uint]map[*Client]struct{}),
		auth:       auth,
		sendBuffer: sendBuffer,
	}
}

// ServeWS authenticates the handshake and only then upgrades. A missing or
// invalid token gets a 401 and the connection is never upgraded.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth(middleware.HandshakeToken(r))
	if err != nil {
		metrics.WSRejected.Inc()
		logrus.WithError(err).WithField("remote", r.RemoteAddr).Warn("websocket handshake rejected")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(gin.H{"error": "Authentication error"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Error("websocket upgrade failed")
		return
	}

	client := newClient(h, conn, userID)
	if !h.register(client) {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return
	}

	logrus.WithFields(logrus.Fields{
		"client_id": client.ID,
		"user_id":   userID,
	}).Info("websocket client connected")

	go client.writePump()
	go client.readPump()
}

// Handler adapts ServeWS for gin.
func (h *Hub) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.ServeWS(c.Writer, c.Request)
	}
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	group, ok := h.groups[c.UserID]
	if !ok {
		group = make(map[*Client]struct{})
		h.groups[c.UserID] = group
	}
	group[c] = struct{}{}
	h.count++
	metrics.WSConnections.Set(float64(h.count))
	return true
}

// unregister removes c and closes its send queue. Safe to call repeatedly.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	group, ok := h.groups[c.UserID]
	if !ok {
		return
	}
	if _, ok := group[c]; !ok {
		return
	}
	delete(group, c)
	if len(group) == 0 {
		delete(h.groups, c.UserID)
	}
	close(c.send)
	h.count--
	metrics.WSConnections.Set(float64(h.count))
	logrus.WithFields(logrus.Fields{
		"client_id": c.ID,
		"user_id":   c.UserID,
	}).Info("websocket client disconnected")
}

// Broadcast sends one event to every connection and returns how many
// connections accepted it.
func (h *Hub) Broadcast(event string, data any) (int, error) {
	msg, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for _, group := range h.groups {
		for c := range group {
			if c.enqueue(event, msg) {
				sent++
			}
		}
	}
	return sent, nil
}

// SendToUser sends one event to every connection of userID.
func (h *Hub) SendToUser(userID uint, event string, data any) (int, error) {
	msg, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return 0, err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	sent := 0
	for c := range h.groups[userID] {
		if c.enqueue(event, msg) {
			sent++
		}
	}
	return sent, nil
}

// ConnectedUsers lists user ids with at least one open connection.
func (h *Hub) ConnectedUsers() []uint {
	h.mu.RLock()
	defer h.mu.RUnlock()
	users := make([]uint, 0, len(h.groups))
	for id := range h.groups {
		users = append(users, id)
	}
	return users
}

// ConnectionCount is the number of open connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, group := range h.groups {
		for c := range group {
			h.removeLocked(c)
		}
	}
}
