package broadcast

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const serverName = "Solstice-LOB-Broadcaster"

const frameQueueSize = 1024

// Broadcaster accepts WebSocket subscribers and fans serialized trade
// and top-of-book frames out to all of them. Frames are queued and
// shipped by a single broadcast worker, so producing a frame never
// waits on the network.
type Broadcaster struct {
	port     int
	interval int

	upgrader websocket.Upgrader
	server   *http.Server
	listener net.Listener

	mu       sync.Mutex
	sessions map[*session]struct{}

	frames chan []byte
	done   chan struct{}

	// samples book frames one-in-interval
	orderCounter atomic.Int64
}

func New(port, interval int) *Broadcaster {
	return &Broadcaster{
		port:     port,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessions: make(map[*session]struct{}),
		frames:   make(chan []byte, frameQueueSize),
		done:     make(chan struct{}),
	}
}

// Start binds 0.0.0.0:<port> and begins accepting subscribers and
// shipping frames in the background.
func (b *Broadcaster) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", b.handleSubscriber)

	b.server = &http.Server{Handler: mux}

	listener, err := net.Listen("tcp", fmt.Sprintf("0.0.0.0:%d", b.port))
	if err != nil {
		return fmt.Errorf("unable to start broadcaster listener: %w", err)
	}
	b.listener = listener

	go func() {
		if err := b.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("broadcaster server stopped")
		}
	}()
	go b.fanout()

	log.Info().Int("port", b.port).Msg("broadcaster running")
	return nil
}

// Addr is the bound listen address, useful when the configured port
// was 0.
func (b *Broadcaster) Addr() string {
	if b.listener == nil {
		return ""
	}
	return b.listener.Addr().String()
}

// Close stops accepting subscribers, stops the broadcast worker and
// closes every open session. Frames still queued are not shipped.
func (b *Broadcaster) Close() {
	close(b.done)
	if b.server != nil {
		_ = b.server.Close()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.sessions {
		close(s.send)
		delete(b.sessions, s)
	}
}

func (b *Broadcaster) handleSubscriber(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, http.Header{"Server": {serverName}})
	if err != nil {
		log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	s := newSession(uuid.NewString(), conn)

	b.mu.Lock()
	b.sessions[s] = struct{}{}
	total := len(b.sessions)
	b.mu.Unlock()

	log.Info().Str("session", s.id).Int("total", total).Msg("client connected")

	go s.writePump()
	go s.readPump(b)
}

func (b *Broadcaster) removeSession(s *session) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.sessions[s]; ok {
		delete(b.sessions, s)
		close(s.send)
		log.Info().Str("session", s.id).Int("total", len(b.sessions)).Msg("client disconnected")
	}
}

// fanout ships queued frames to every open session.
func (b *Broadcaster) fanout() {
	for {
		select {
		case <-b.done:
			return
		case frame := <-b.frames:
			b.mu.Lock()
			for s := range b.sessions {
				s.enqueue(frame)
			}
			b.mu.Unlock()
		}
	}
}

// publish offers a frame to the queue without blocking the matching
// path; under backpressure the frame is dropped.
func (b *Broadcaster) publish(message any) {
	frame, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Msg("broadcast marshal failed")
		return
	}

	select {
	case b.frames <- frame:
	default:
	}
}

// BroadcastTrade fans one fill to all subscribers.
func (b *Broadcaster) BroadcastTrade(transactionID, symbol string, price float64, qnty int, executed time.Time) {
	b.publish(tradeMessage{
		Type:          "trade",
		TransactionID: transactionID,
		Symbol:        symbol,
		Price:         price,
		Quantity:      qnty,
		Timestamp:     executed.UnixNano(),
	})
}

// BroadcastBook fans a top-of-book update, sampled one-in-interval by
// the order counter.
func (b *Broadcaster) BroadcastBook(symbol string, bestBid, bestAsk *float64) {
	count := b.orderCounter.Add(1) - 1
	if count%int64(b.interval) != 0 {
		return
	}

	b.publish(bookMessage{
		Type:      "book",
		Symbol:    symbol,
		BestBid:   bestBid,
		BestAsk:   bestAsk,
		Timestamp: time.Now().UnixNano(),
	})
}
