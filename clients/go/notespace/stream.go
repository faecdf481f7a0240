package notespace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/glaseagle/3DAuth-FireStore/internal/models"
)

// Feed is a live snapshot subscription. Each frame carries the full state
// of one stream.
type Feed struct {
	conn *websocket.Conn
}

// feedURL turns the HTTP base URL into the websocket feed address.
func (c *Client) feedURL(clientID string) (string, error) {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	if clientID != "" {
		q := u.Query()
		q.Set("client", clientID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Subscribe opens the snapshot feed. The server sends the current state of
// every stream right away, then a new snapshot whenever a stream changes.
// clientID names the session. When the client is signed in the handshake is
// signed, and the server removes the session's cursor once the feed closes.
func (c *Client) Subscribe(ctx context.Context, clientID string) (*Feed, error) {
	addr, err := c.feedURL(clientID)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	if c.SignedIn() {
		c.sign(header, nil)
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, addr, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", addr, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Feed{conn: conn}, nil
}

// Next blocks until the next snapshot arrives.
func (f *Feed) Next() (*models.Snapshot, error) {
	for {
		_, data, err := f.conn.ReadMessage()
		if err != nil {
			return nil, err
		}

		var snap models.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		if snap.Type != "snapshot" {
			continue
		}
		return &snap, nil
	}
}

// Close closes the feed.
func (f *Feed) Close() error {
	f.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return f.conn.Close()
}
