// Command arenad runs the arena match-cycle engine behind its HTTP server.
// All tuning comes from the environment; see the Config type for the knobs.
package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	arena "pkg.world.dev/arena-engine"
	"pkg.world.dev/arena-engine/server"
)

func main() {
	engine, err := arena.NewEngine()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build the engine")
	}
	if err := engine.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start the match cycle")
	}

	srv := server.New(engine, server.WithPort(engine.Config().ArenaPort))

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info().Msg("shutdown signal received")
		if err := srv.Shutdown(); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
		engine.Shutdown()
	}()

	if err := srv.Serve(); err != nil {
		log.Fatal().Err(err).Msg("server stopped unexpectedly")
	}
}
