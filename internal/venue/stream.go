package venue

import (
	"context"
	"time"

	"atlas/logger"

	"github.com/gorilla/websocket"
)

const defaultKeepAlive = 20 * time.Second

// StreamSpec describes one public websocket subscription.
type StreamSpec[T any] struct {
	URL string
	// Subscribe, when non-nil, is written as JSON right after the dial.
	Subscribe any
	// Decode turns a raw frame into an update. ok=false skips the frame
	// (acks, heartbeats, other topics).
	Decode    func(raw []byte) (update T, ok bool, err error)
	KeepAlive time.Duration
	// Heartbeat, when non-nil, is sent as JSON every KeepAlive instead of a
	// websocket ping frame.
	Heartbeat any
	LocalIP   string
}

// OpenStream dials spec.URL and returns a Feed fed by a read loop. The dial
// honours ctx; the returned stream lives until Close.
func OpenStream[T any](ctx context.Context, spec StreamSpec[T], log *logger.Entry) (*Feed[T], error) {
	dialer := *websocket.DefaultDialer
	if d := localDialer(spec.LocalIP); d != nil {
		dialer.NetDialContext = d.DialContext
	}

	conn, _, err := dialer.DialContext(ctx, spec.URL, nil)
	if err != nil {
		return nil, err
	}

	if spec.Subscribe != nil {
		if err := conn.WriteJSON(spec.Subscribe); err != nil {
			conn.Close()
			return nil, err
		}
	}

	stop := make(chan struct{})
	feed := NewFeed[T](func() error {
		close(stop)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		return conn.Close()
	})

	go pingLoop(conn, spec.KeepAlive, spec.Heartbeat, stop, log)
	go readLoop(conn, spec.Decode, feed, log)

	return feed, nil
}

func readLoop[T any](conn *websocket.Conn, decode func([]byte) (T, bool, error), feed *Feed[T], log *logger.Entry) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-feed.Done():
			default:
				feed.Fail(err)
			}
			return
		}
		update, ok, err := decode(msg)
		if err != nil {
			log.WithError(err).Debug("failed to decode stream frame")
			continue
		}
		if !ok {
			continue
		}
		if !feed.Publish(update) {
			return
		}
	}
}

func pingLoop(conn *websocket.Conn, interval time.Duration, heartbeat any, stop <-chan struct{}, log *logger.Entry) {
	if interval <= 0 {
		interval = defaultKeepAlive
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			var err error
			if heartbeat != nil {
				err = conn.WriteJSON(heartbeat)
			} else {
				err = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second))
			}
			if err != nil {
				log.WithError(err).Debug("failed to send websocket ping")
				return
			}
		}
	}
}
