package broadcast

import (
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nextFrame(t *testing.T, b *Broadcaster) map[string]any {
	t.Helper()

	select {
	case frame := <-b.frames:
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(frame, &decoded))
		return decoded
	default:
		t.Fatal("no frame queued")
		return nil
	}
}

func TestBroadcastTrade_WireShape(t *testing.T) {
	b := New(8080, 1)

	executed := time.Now()
	b.BroadcastTrade("12345678901234567890", "AAPL", 101.5, 7, executed)

	frame := nextFrame(t, b)
	assert.Equal(t, "trade", frame["type"])
	assert.Equal(t, "12345678901234567890", frame["transaction_id"])
	assert.Equal(t, "AAPL", frame["symbol"])
	assert.Equal(t, 101.5, frame["price"])
	assert.Equal(t, float64(7), frame["quantity"])
	assert.Equal(t, float64(executed.UnixNano()), frame["timestamp"])
}

func TestBroadcastBook_WireShape(t *testing.T) {
	b := New(8080, 1)

	bid := 100.0
	b.BroadcastBook("AAPL", &bid, nil)

	frame := nextFrame(t, b)
	assert.Equal(t, "book", frame["type"])
	assert.Equal(t, "AAPL", frame["symbol"])
	assert.Equal(t, 100.0, frame["best_bid"])

	// empty side serialises as null
	ask, present := frame["best_ask"]
	assert.True(t, present)
	assert.Nil(t, ask)
}

func TestBroadcastBook_SamplesOneInInterval(t *testing.T) {
	b := New(8080, 5)

	bid, ask := 100.0, 101.0
	for i := 0; i < 20; i++ {
		b.BroadcastBook("AAPL", &bid, &ask)
	}

	assert.Len(t, b.frames, 4)
}

func TestBroadcaster_FansFramesToSubscribers(t *testing.T) {
	b := New(0, 1)
	require.NoError(t, b.Start())
	defer b.Close()

	_, port, err := net.SplitHostPort(b.Addr())
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://127.0.0.1:%s/", port), nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, serverName, resp.Header.Get("Server"))

	// wait for the hub to register the session before broadcasting
	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.sessions) == 1
	}, time.Second, 10*time.Millisecond)

	b.BroadcastTrade("12345678901234567890", "AAPL", 100, 1, time.Now())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(frame, &decoded))
	assert.Equal(t, "trade", decoded["type"])
}

func TestBroadcastTrade_NotSampled(t *testing.T) {
	b := New(8080, 5)

	for i := 0; i < 6; i++ {
		b.BroadcastTrade("12345678901234567890", "AAPL", 100, 1, time.Now())
	}

	assert.Len(t, b.frames, 6)
}
