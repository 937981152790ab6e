package realtime

import (
	"net/http"
	"time"

	"gearrent/internal/logger"
	"gearrent/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the feed is token-authenticated; browsers on any origin may subscribe
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterRoutes expects rg to be behind JWTAuth.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ws/rentals", h.ServeRentals)
}

// ServeRentals upgrades the request and streams RentalEvent JSON frames
// until the client goes away. Client frames are read and discarded.
func (h *Handler) ServeRentals(c *gin.Context) {
	userID := c.GetInt64(middleware.CtxUserID)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	id := h.hub.Register(userID, conn)
	logger.Info("rental feed subscriber connected", "conn_id", id, "user_id", userID)

	done := make(chan struct{})
	defer func() {
		close(done)
		h.hub.Unregister(id)
		logger.Info("rental feed subscriber disconnected", "conn_id", id, "user_id", userID)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	go h.pingLoop(id, done)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read error", "conn_id", id, "error", err)
			}
			return
		}
	}
}

func (h *Handler) pingLoop(id string, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			cl := h.hub.get(id)
			if cl == nil {
				return
			}
			if err := cl.writePing(); err != nil {
				return
			}
		}
	}
}
