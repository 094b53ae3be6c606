package websocket

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	ws "github.com/coder/websocket"
)

const (
	sendBufferSize = 16
	pingInterval   = 30 * time.Second
)

// Client is one connected device. A client following a child only receives
// messages about that child plus family-wide messages that carry no child.
type Client struct {
	hub   *Hub
	conn  *ws.Conn
	send  chan []byte
	child atomic.Int64
}

// NewClient creates a Client on hub. childID 0 follows every child.
func NewClient(hub *Hub, conn *ws.Conn, childID int64) *Client {
	c := &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	c.child.Store(childID)
	return c
}

// command is what a client may send. {"type":"follow","child_id":3} narrows
// the feed to child 3; child_id 0 widens it back to the whole family.
type command struct {
	Type    string `json:"type"`
	ChildID int64  `json:"child_id"`
}

// Following returns the child the client is scoped to, 0 for all.
func (c *Client) Following() int64 {
	return c.child.Load()
}

func (c *Client) wants(m Message) bool {
	following := c.child.Load()
	if following == 0 {
		return true
	}
	if m.Entity == EntityChild {
		return m.ID == following
	}
	id, ok := m.ChildID()
	return !ok || id == following
}

func (c *Client) handle(data []byte) {
	var cmd command
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.hub.logger.Debug("ignore websocket message", "error", err)
		return
	}
	switch cmd.Type {
	case "follow":
		if cmd.ChildID < 0 {
			return
		}
		c.child.Store(cmd.ChildID)
	default:
		c.hub.logger.Debug("unknown websocket command", "type", cmd.Type)
	}
}

// Run registers the client and serves it until the connection drops.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go c.writePump(ctx)
	c.readPump(ctx)
}

func (c *Client) readPump(ctx context.Context) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		if typ == ws.MessageText {
			c.handle(data)
		}
	}
}

// writePump forwards queued messages and pings so dead devices are noticed.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
