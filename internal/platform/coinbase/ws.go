package coinbase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// handshakeTimeout bounds the websocket dial.
	handshakeTimeout = 15 * time.Second

	// writeWait is the time allowed to write a message to the peer.
	writeWait = 10 * time.Second
)

// WSConn is a single websocket connection to the exchange feed. It has no
// reconnect logic of its own; the feed connection owns the lifecycle and
// dials a fresh WSConn per attempt.
type WSConn struct {
	conn *websocket.Conn
}

// Dial opens a websocket connection to the given feed URL.
func Dial(ctx context.Context, wsURL string) (*WSConn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("coinbase: dial %s: %w", wsURL, err)
	}
	return &WSConn{conn: conn}, nil
}

// Subscribe sends the subscribe handshake for one product/channel pair.
// It must be called before any inbound traffic is treated as meaningful.
func (c *WSConn) Subscribe(productID, channel string) error {
	req := SubscribeRequest{
		Type:       "subscribe",
		ProductIDs: []string{productID},
		Channels:   []string{channel},
	}

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("coinbase: marshal subscribe: %w", err)
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("coinbase: send subscribe: %w", err)
	}
	return nil
}

// ReadMessage blocks until the next raw frame arrives or the connection
// fails.
func (c *WSConn) ReadMessage() ([]byte, error) {
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("coinbase: read: %w", err)
	}
	return raw, nil
}

// Close sends a close frame and tears down the connection.
func (c *WSConn) Close() error {
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeWait),
	)
	return c.conn.Close()
}
