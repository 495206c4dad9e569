package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketSource reads JSON Messages from a WebSocket connection. The
// connection ending for any reason is reported as ErrSourceClosed, since
// a live transcriber has no natural end of input.
type WebSocketSource struct {
	conn *websocket.Conn
	once sync.Once
}

// NewWebSocketSource reads from conn. Run closes conn when it returns.
func NewWebSocketSource(conn *websocket.Conn) *WebSocketSource {
	return &WebSocketSource{conn: conn}
}

func (s *WebSocketSource) Run(ctx context.Context, h Handler) error {
	defer s.close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.close()
		case <-stop:
		}
	}()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrSourceClosed
			}
			return fmt.Errorf("%w: %v", ErrSourceClosed, err)
		}
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			h.OnTranscriptionError(ErrAborted, fmt.Errorf("decode message: %w", err))
			continue
		}
		dispatch(m, h)
	}
}

func (s *WebSocketSource) close() {
	s.once.Do(func() { _ = s.conn.Close() })
}
