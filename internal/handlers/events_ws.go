package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/birokt/smittevern/internal/api"
	"github.com/birokt/smittevern/internal/events"
	"github.com/birokt/smittevern/internal/identity"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// EventsWSHandler streams incident events to regulators over WebSocket
type EventsWSHandler struct {
	hub      *events.Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewEventsWSHandler creates a new live feed handler
func NewEventsWSHandler(hub *events.Hub, logger *zap.Logger) *EventsWSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventsWSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Origins are enforced by the CORS middleware and the token
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

// SetupRoutes configures WebSocket routes
func (h *EventsWSHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/incidents", h.HandleWebSocket)
}

// HandleWebSocket upgrades a regulator's connection and forwards hub events
// until either side goes away
func (h *EventsWSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	actor := identity.FromContext(r.Context())
	if err := identity.RequireRegulator(actor); err != nil {
		api.RespondAuthError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade WebSocket", zap.Error(err))
		return
	}

	feed, cancel := h.hub.Subscribe()
	h.logger.Info("live feed subscriber connected",
		zap.String("actor", actor.ID),
		zap.String("remote_addr", r.RemoteAddr),
	)

	done := make(chan struct{})
	go h.readLoop(conn, done)

	defer func() {
		cancel()
		conn.Close()
		h.logger.Info("live feed subscriber disconnected", zap.String("actor", actor.ID))
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case data, ok := <-feed:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("live feed write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards client messages and closes done when the peer goes away
func (h *EventsWSHandler) readLoop(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("live feed read error", zap.Error(err))
			}
			return
		}
	}
}
