package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dice-offline/internal/logger"
	"dice-offline/internal/middleware"
	"dice-offline/internal/models"
	"dice-offline/internal/services"
)

const (
	ViewDetail = "detail"
	ViewHUD    = "hud"

	MessageCombatState = "COMBAT_STATE"
	MessagePing        = "PING"
	MessagePong        = "PONG"

	writeWait = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler pushes combat changes to every open view of a table.
type WebSocketHandler struct {
	combat *services.CombatStore
	hub    *WebSocketHub
}

type WebSocketHub struct {
	clients    map[string]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message
	done       chan struct{}
	stopOnce   sync.Once
}

type Client struct {
	TableID string
	View    string
	Conn    *websocket.Conn
	send    chan *Message
}

type Message struct {
	Type    string `json:"type"`
	TableID string `json:"table_id,omitempty"`
	View    string `json:"view,omitempty"`
	Data    any    `json:"data"`
}

func NewWebSocketHub() *WebSocketHub {
	return &WebSocketHub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Message, 100),
		done:       make(chan struct{}),
	}
}

func NewWebSocketHandler(combat *services.CombatStore, hub *WebSocketHub) *WebSocketHandler {
	return &WebSocketHandler{
		combat: combat,
		hub:    hub,
	}
}

func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	tableID := c.GetString(middleware.TableIDKey)
	view := c.DefaultQuery("view", ViewDetail)
	if view != ViewDetail && view != ViewHUD {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid view", "details": view})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithCtx(c.Request.Context()).Warn("failed to upgrade to websocket", zap.Error(err))
		return
	}

	client := &Client{
		TableID: tableID,
		View:    view,
		Conn:    conn,
		send:    make(chan *Message, 16),
	}

	if !h.hub.join(client) {
		conn.Close()
		return
	}
	go client.writePump(h.hub.done)

	defer func() {
		h.hub.leave(client)
		conn.Close()
	}()

	if state, err := h.combat.Load(c.Request.Context(), tableID); err == nil {
		client.send <- combatMessage(tableID, view, state)
	} else {
		logger.WithCtx(c.Request.Context()).Warn("failed to load combat state for websocket", zap.Error(err))
	}

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.WithCtx(c.Request.Context()).Warn("websocket error", zap.Error(err))
			}
			break
		}
		h.handleMessage(client, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(client *Client, msg *Message) {
	switch msg.Type {
	case MessagePing:
		client.trySend(&Message{
			Type: MessagePong,
			Data: gin.H{"timestamp": time.Now().Unix()},
		})
	}
}

// BroadcastCombatState implements services.Broadcaster.
func (h *WebSocketHandler) BroadcastCombatState(change models.CombatChange) {
	h.hub.Broadcast(&Message{
		Type:    MessageCombatState,
		TableID: change.TableID,
		Data:    change.State,
	})
}

func combatMessage(tableID, view string, state models.CombatState) *Message {
	msg := &Message{Type: MessageCombatState, TableID: tableID, View: view}
	if view == ViewHUD {
		msg.Data = models.NewHUDView(state)
	} else {
		msg.Data = state
	}
	return msg
}

// writePump stops when the client leaves or the hub stops.
func (c *Client) writePump(done <-chan struct{}) {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteJSON(msg); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (c *Client) trySend(msg *Message) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// join registers client. It reports false once the hub has stopped.
func (hub *WebSocketHub) join(client *Client) bool {
	select {
	case hub.register <- client:
		return true
	case <-hub.done:
		return false
	}
}

func (hub *WebSocketHub) leave(client *Client) {
	select {
	case hub.unregister <- client:
	case <-hub.done:
	}
}

func (hub *WebSocketHub) Broadcast(msg *Message) {
	select {
	case hub.broadcast <- msg:
	case <-hub.done:
	}
}

func (hub *WebSocketHub) Run() {
	for {
		select {
		case client := <-hub.register:
			if hub.clients[client.TableID] == nil {
				hub.clients[client.TableID] = make(map[*Client]bool)
			}
			hub.clients[client.TableID][client] = true
			logger.With(zap.String("table_id", client.TableID), zap.String("view", client.View)).Debug("client registered")

		case client := <-hub.unregister:
			if clients, ok := hub.clients[client.TableID]; ok && clients[client] {
				delete(clients, client)
				close(client.send)
				if len(clients) == 0 {
					delete(hub.clients, client.TableID)
				}
				logger.With(zap.String("table_id", client.TableID), zap.String("view", client.View)).Debug("client unregistered")
			}

		case message := <-hub.broadcast:
			hub.broadcastMessage(message)

		case <-hub.done:
			hub.closeAll()
			return
		}
	}
}

// closeAll drops every connection once the hub stops. Send channels are
// only closed on unregister.
func (hub *WebSocketHub) closeAll() {
	for tableID, clients := range hub.clients {
		for client := range clients {
			client.Conn.Close()
		}
		delete(hub.clients, tableID)
	}
}

func (hub *WebSocketHub) Stop() {
	hub.stopOnce.Do(func() { close(hub.done) })
}

func (hub *WebSocketHub) broadcastMessage(message *Message) {
	state, isCombat := message.Data.(models.CombatState)
	for client := range hub.clients[message.TableID] {
		msg := message
		if isCombat {
			msg = combatMessage(message.TableID, client.View, state)
		}
		if !client.trySend(msg) {
			logger.With(zap.String("table_id", client.TableID)).Warn("dropping message for slow client")
		}
	}
}
