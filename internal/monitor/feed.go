package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/willi-kappler/iridium-weatherstation/internal/api"
)

// Feed is a client of the server's live record feed
type Feed struct {
	conn   *websocket.Conn
	events chan api.Event
	errc   chan error
}

// Dial connects to a feed URL such as ws://host:8080/api/feed
func Dial(ctx context.Context, url string) (*Feed, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	f := &Feed{
		conn:   conn,
		events: make(chan api.Event, 16),
		errc:   make(chan error, 1),
	}
	go f.read()
	return f, nil
}

func (f *Feed) read() {
	defer close(f.events)
	for {
		var event api.Event
		if err := f.conn.ReadJSON(&event); err != nil {
			f.errc <- err
			return
		}
		f.events <- event
	}
}

// Events delivers events until the connection ends. Err then returns why.
func (f *Feed) Events() <-chan api.Event {
	return f.events
}

// Err returns the error that ended the feed, or nil if it is still running
func (f *Feed) Err() error {
	select {
	case err := <-f.errc:
		f.errc <- err
		return err
	default:
		return nil
	}
}

// Close closes the connection
func (f *Feed) Close() error {
	_ = f.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return f.conn.Close()
}
