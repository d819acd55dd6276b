package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/arko-chat/paybridge/internal/events"
	"github.com/gorilla/websocket"
)

const (
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 4096

	sendBuffer = 256
)

var ErrSlowConsumer = errors.New("ws: client send buffer full")

type BaseClient struct {
	Conn *websocket.Conn
	Send chan []byte
}

func NewBaseClient(conn *websocket.Conn) *BaseClient {
	return &BaseClient{
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
	}
}

func (c *BaseClient) GetSend() chan []byte {
	return c.Send
}

func (c *BaseClient) WritePump() {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var (
	_ WSClient    = (*EventClient)(nil)
	_ events.Sink = (*EventClient)(nil)
)

// EventClient streams plugin events to one WebSocket connection.
type EventClient struct {
	base *BaseClient
	ID   string

	mu     sync.Mutex
	closed bool
}

func NewEventClient(conn *websocket.Conn, id string) *EventClient {
	return &EventClient{base: NewBaseClient(conn), ID: id}
}

func (c *EventClient) GetSend() chan []byte { return c.base.GetSend() }

func (c *EventClient) WritePump() { c.base.WritePump() }

// Send queues ev without blocking. A full buffer drops the event.
func (c *EventClient) Send(ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	select {
	case c.base.Send <- data:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Close ends the write pump, which sends a close frame. Safe to call twice.
func (c *EventClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.base.Send)
}

// ReadPump drains the connection until it fails. Hosts have nothing to say
// on the event stream, so frames are discarded; control frames keep the
// read deadline fresh.
func (c *EventClient) ReadPump() {
	conn := c.base.Conn
	conn.SetReadLimit(MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
