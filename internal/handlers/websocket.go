package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/BT0mob40-bot/gameplay/internal/crash"
	"github.com/BT0mob40-bot/gameplay/internal/ledger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler streams the shared crash round to every connected client.
// Its hub satisfies the round engine's broadcaster, so round events flow
// straight from the engine to the sockets.
type WebSocketHandler struct {
	round  *crash.Round
	wallet ledger.Gateway
	hub    *WebSocketHub
}

type WebSocketHub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan crash.Event
}

type Client struct {
	UserID int64
	Conn   *websocket.Conn
}

type inboundMessage struct {
	Type string `json:"type"`
}

func NewWebSocketHandler(round *crash.Round, wallet ledger.Gateway) *WebSocketHandler {
	hub := &WebSocketHub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan crash.Event, 256),
	}

	go hub.run()

	return &WebSocketHandler{
		round:  round,
		wallet: wallet,
		hub:    hub,
	}
}

// Hub exposes the broadcaster for wiring into the round engine.
func (h *WebSocketHandler) Hub() *WebSocketHub { return h.hub }

func (hub *WebSocketHub) Broadcast(event crash.Event) {
	select {
	case hub.broadcast <- event:
	default:
		// A full buffer means a slow consumer; round ticks must not block.
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	userID := c.GetInt64("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("Failed to upgrade to WebSocket")
		return
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
	}

	h.hub.register <- client

	defer func() {
		h.hub.unregister <- client
		conn.Close()
	}()

	h.sendRoundState(client)
	h.sendBalance(client)

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.WithError(err).Debug("WebSocket read error")
			}
			break
		}

		switch msg.Type {
		case "PING":
			client.Conn.WriteJSON(crash.Event{Type: "PONG", Data: gin.H{"timestamp": time.Now().Unix()}})
		case "BALANCE":
			h.sendBalance(client)
		}
	}
}

func (h *WebSocketHandler) sendRoundState(client *Client) {
	ctx, cancel := contextWithTimeout()
	defer cancel()

	snap, err := h.round.Snapshot(ctx)
	if err != nil {
		return
	}
	client.Conn.WriteJSON(crash.Event{Type: "round_state", Data: snap})
}

func (h *WebSocketHandler) sendBalance(client *Client) {
	ctx, cancel := contextWithTimeout()
	defer cancel()

	wallet, err := h.wallet.Wallet(ctx, client.UserID)
	if err != nil {
		log.WithError(err).WithField("user_id", client.UserID).Warn("Failed to get wallet for WS")
		return
	}

	client.Conn.WriteJSON(crash.Event{
		Type: "balance_update",
		Data: gin.H{
			"balance":       wallet.Balance(),
			"total_wagered": wallet.TotalWagered(),
			"total_won":     wallet.TotalWon(),
		},
	})
}

func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 3*time.Second)
}

func (hub *WebSocketHub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.clients[client] = true
			log.WithField("user_id", client.UserID).Debug("WebSocket client registered")

		case client := <-hub.unregister:
			if _, ok := hub.clients[client]; ok {
				delete(hub.clients, client)
				log.WithField("user_id", client.UserID).Debug("WebSocket client unregistered")
			}

		case event := <-hub.broadcast:
			for client := range hub.clients {
				if err := client.Conn.WriteJSON(event); err != nil {
					client.Conn.Close()
					delete(hub.clients, client)
				}
			}
		}
	}
}
