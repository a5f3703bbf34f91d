package stream

import (
	"time"

	"github.com/gorilla/websocket"
)

// wsDialer is the production Dialer backed by gorilla/websocket.
type wsDialer struct{}

func (d *wsDialer) Dial(url string) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return &wsConn{conn: conn}, nil
}

// wsConn adapts *websocket.Conn to the Conn interface. Only text
// frames carry data; gorilla handles ping/pong control frames itself.
type wsConn struct {
	conn *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}
