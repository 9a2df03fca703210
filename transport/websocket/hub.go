package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/engine"
	"github.com/Felipe-G-Schmitt/v0-dev-ops-memory-game/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Pending broadcasts before new ones are dropped
	broadcastBuffer = 256

	// Time allowed to execute one client command
	commandTimeout = 5 * time.Second
)

// Event names pushed to clients
const (
	EventStateUpdate   = "state_update"
	EventSelectResult  = "select_result"
	EventError         = "error"
	EventSessionClosed = "session_closed"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins in development
		return true
	},
}

// Message represents a WebSocket message sent to clients
type Message struct {
	SessionID string            `json:"session_id"`
	GameState *engine.GameState `json:"game_state,omitempty"`
	Event     string            `json:"event,omitempty"`
	Data      interface{}       `json:"data,omitempty"`
}

// ClientMessage is a command sent by a client
type ClientMessage struct {
	Action string `json:"action"`
	CardID *int   `json:"card_id,omitempty"`
}

// CommandHandler executes the commands clients send over the socket
type CommandHandler interface {
	SelectCard(ctx context.Context, sessionID string, cardID int) (*service.SelectResponse, error)
	Restart(ctx context.Context, sessionID string) (*engine.GameState, error)
	GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error)
}

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

// directMessage is addressed to a single client
type directMessage struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and broadcasts messages.
// Only the Run goroutine touches the client registry.
type Hub struct {
	handler CommandHandler

	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	// Outbound messages for every client of a session
	broadcast chan *Message

	// Outbound messages for one client
	direct chan directMessage

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}
}

// NewHub creates a new WebSocket hub. handler may be nil, in which case
// client commands are answered with an error event.
func NewHub(handler CommandHandler) *Hub {
	return &Hub{
		handler:    handler,
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		direct:     make(chan directMessage, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop and blocks until ctx is cancelled, then
// disconnects every client
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.sessions {
				for client := range clients {
					h.unregisterClient(client)
				}
			}
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case msg := <-h.direct:
			h.sendDirect(msg)
		}
	}
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}

	// Initial snapshot so the client can render before the first change
	if h.handler != nil {
		if state, err := h.handler.GetGameState(r.Context(), sessionID); err == nil {
			if data, err := json.Marshal(stateMessage(sessionID, state)); err == nil {
				client.send <- data
			}
		}
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// NotifyStateChange pushes the public view of state to the clients of the
// session. It never blocks; updates are dropped while the queue is full.
func (h *Hub) NotifyStateChange(sessionID string, state *engine.GameState) {
	h.BroadcastToSession(sessionID, state.PublicView())
}

// NotifySessionClosed tells the clients of a session that it is gone
func (h *Hub) NotifySessionClosed(sessionID string) {
	h.BroadcastEvent(sessionID, EventSessionClosed, nil)
}

// BroadcastToSession sends a game state update to all clients in a session
func (h *Hub) BroadcastToSession(sessionID string, state *engine.GameState) {
	h.enqueue(stateMessage(sessionID, state))
}

// BroadcastEvent sends a custom event to all clients in a session
func (h *Hub) BroadcastEvent(sessionID string, event string, data interface{}) {
	h.enqueue(&Message{
		SessionID: sessionID,
		Event:     event,
		Data:      data,
	})
}

func (h *Hub) enqueue(message *Message) {
	select {
	case h.broadcast <- message:
	default:
		log.Warn().Str("session", message.SessionID).Str("event", message.Event).Msg("broadcast queue full, dropping message")
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	log.Debug().
		Str("session", client.sessionID).
		Int("clients", len(h.sessions[client.sessionID])).
		Msg("client registered")
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.sessions[client.sessionID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			// Clean up empty sessions
			if len(clients) == 0 {
				delete(h.sessions, client.sessionID)
			}

			log.Debug().
				Str("session", client.sessionID).
				Int("clients", len(clients)).
				Msg("client unregistered")
		}
	}
}

// broadcastMessage sends a message to all clients in a session
func (h *Hub) broadcastMessage(message *Message) {
	clients, ok := h.sessions[message.SessionID]
	if !ok {
		return
	}

	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Str("session", message.SessionID).Msg("failed to marshal broadcast message")
		return
	}

	for client := range clients {
		select {
		case client.send <- data:
		default:
			// Client's send channel is full, close it
			h.unregisterClient(client)
		}
	}
}

// sendDirect delivers a message to one client if it is still connected
func (h *Hub) sendDirect(msg directMessage) {
	if !h.sessions[msg.client.sessionID][msg.client] {
		return
	}
	select {
	case msg.client.send <- msg.data:
	default:
		h.unregisterClient(msg.client)
	}
}

// clientCount returns the clients watching sessionID. Only safe from the
// Run goroutine or when Run is not running.
func (h *Hub) clientCount(sessionID string) int {
	return len(h.sessions[sessionID])
}

func stateMessage(sessionID string, state *engine.GameState) *Message {
	return &Message{
		SessionID: sessionID,
		GameState: state,
		Event:     EventStateUpdate,
	}
}

// handleCommand executes one client command and returns the reply for the
// sender. State changes reach every client through the notifier.
func (c *Client) handleCommand(raw []byte) *Message {
	reply := func(event string, data interface{}) *Message {
		return &Message{SessionID: c.sessionID, Event: event, Data: data}
	}
	fail := func(format string, args ...interface{}) *Message {
		return reply(EventError, map[string]string{"message": fmt.Sprintf(format, args...)})
	}

	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fail("invalid message: %v", err)
	}
	if c.hub.handler == nil {
		return fail("commands are not supported")
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch msg.Action {
	case "select":
		if msg.CardID == nil {
			return fail("card_id is required")
		}
		resp, err := c.hub.handler.SelectCard(ctx, c.sessionID, *msg.CardID)
		if err != nil {
			return fail("%v", err)
		}
		return reply(EventSelectResult, resp)

	case "restart":
		if _, err := c.hub.handler.Restart(ctx, c.sessionID); err != nil {
			return fail("%v", err)
		}
		return nil

	default:
		return fail("unknown action %q", msg.Action)
	}
}

// readPump pumps commands from the WebSocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("session", c.sessionID).Msg("websocket read error")
			}
			break
		}

		reply := c.handleCommand(raw)
		if reply == nil {
			continue
		}
		data, err := json.Marshal(reply)
		if err != nil {
			log.Error().Err(err).Str("session", c.sessionID).Msg("failed to marshal reply")
			continue
		}
		select {
		case c.hub.direct <- directMessage{client: c, data: data}:
		case <-c.hub.done:
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
