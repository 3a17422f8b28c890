// solstice-feed is a small subscriber for the broadcaster: it dials
// the WebSocket endpoint and prints every trade and book frame it
// receives.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	addr := flag.String("addr", "localhost:8080", "broadcaster address")
	flag.Parse()

	url := fmt.Sprintf("ws://%s/", *addr)

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("unable to connect to broadcaster")
		os.Exit(1)
	}
	defer conn.Close()

	log.Info().Str("url", url).Msg("connected")

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	frames := make(chan []byte)
	go func() {
		defer close(frames)
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				log.Error().Err(err).Msg("read failed")
				return
			}
			frames <- frame
		}
	}()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return
			}
			fmt.Println(string(frame))
		case <-interrupt:
			_ = conn.WriteMessage(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			)
			return
		}
	}
}
