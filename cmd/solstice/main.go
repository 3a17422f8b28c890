package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/JamieWells1/solstice/internal/broadcast"
	"github.com/JamieWells1/solstice/internal/config"
	"github.com/JamieWells1/solstice/internal/orchestrator"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("fatal: invalid configuration")
		os.Exit(1)
	}

	zerolog.SetGlobalLevel(cfg.LogLevel)

	var sink orchestrator.Broadcaster
	if cfg.EnableBroadcaster {
		b := broadcast.New(cfg.BroadcastPort, cfg.BroadcastInterval)
		if err := b.Start(); err != nil {
			log.Error().Err(err).Msg("fatal: broadcaster failed to start")
			os.Exit(1)
		}
		defer b.Close()
		sink = b
	}

	fmt.Println("Enter any key to start order flow.")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		os.Exit(1)
	}

	orch := orchestrator.New(cfg, sink)
	if _, err := orch.Run(); err != nil {
		log.Error().Err(err).Msg("fatal: orchestration failed")
		os.Exit(1)
	}
}
