package broadcast

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	sendBufferSize = 64
	readTimeout    = 60 * time.Second
	writeTimeout   = 10 * time.Second
)

// session is one connected subscriber. Writes are serialised behind
// the session's own send channel so a slow client never blocks the
// hub or another session.
type session struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

func newSession(id string, conn *websocket.Conn) *session {
	return &session{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

// enqueue offers a frame without blocking; a full buffer drops the
// frame for this session only.
func (s *session) enqueue(frame []byte) {
	select {
	case s.send <- frame:
	default:
	}
}

// writePump drains the send channel onto the wire until the channel
// closes or a write fails.
func (s *session) writePump() {
	defer s.conn.Close()

	for frame := range s.send {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			log.Debug().Err(err).Str("session", s.id).Msg("websocket write failed")
			return
		}
	}

	_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// readPump discards inbound frames; subscribers are read-only. Its
// exit is what signals a dead client, so the broadcaster unregisters
// from here.
func (s *session) readPump(b *Broadcaster) {
	defer b.removeSession(s)

	_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("session", s.id).Msg("websocket read failed")
			}
			return
		}
	}
}
