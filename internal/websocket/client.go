package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/dom/outsider-party/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
)

// Client is one subscriber socket, bound to a room and a nickname.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	roomCode string
	nickname string
	limiter  *rate.Limiter

	closeOnce sync.Once
}

func NewClient(hub *Hub, conn *websocket.Conn, roomCode, nickname string) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 64),
		roomCode: roomCode,
		nickname: nickname,
		limiter:  rate.NewLimiter(1, 5),
	}
}

func (c *Client) RoomCode() string { return c.roomCode }
func (c *Client) Nickname() string { return c.nickname }

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Debug().Err(err).Str("room", c.roomCode).Str("nickname", c.nickname).Msg("websocket closed")
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError("INVALID_MESSAGE", "message is not valid JSON")
			continue
		}
		c.handleMessage(&msg)
	}
}

func (c *Client) WritePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
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

func (c *Client) handleMessage(msg *Message) {
	switch msg.Type {
	case MessageTypeSyncState:
		if !c.limiter.Allow() {
			c.sendError("RATE_LIMITED", "too many sync requests")
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()
		if err := c.hub.PushTo(ctx, c); err != nil {
			c.sendError("SYNC_FAILED", "could not load room state")
		}

	case MessageTypePing:
		c.sendMessage(MessageTypePong, nil)

	default:
		c.sendError("UNKNOWN_MESSAGE", "unknown message type: "+string(msg.Type))
	}
}

func (c *Client) sendState(snap *domain.RoomSnapshot) {
	c.sendMessage(MessageTypeStateSync, snap.ViewFor(c.nickname))
}

func (c *Client) sendMessage(msgType MessageType, payload interface{}) {
	msg, err := NewMessage(msgType, payload)
	if err != nil {
		log.Error().Err(err).Str("type", string(msgType)).Msg("encode websocket message")
		return
	}
	data, _ := json.Marshal(msg)
	c.trySend(data)
}

func (c *Client) sendError(code, message string) {
	c.sendMessage(MessageTypeError, ErrorPayload{Code: code, Message: message})
}

// trySend drops the frame when the buffer is full or the client is gone.
func (c *Client) trySend(data []byte) {
	defer func() {
		if recover() != nil {
			// channel closed while disconnecting
		}
	}()

	select {
	case c.send <- data:
	default:
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}
