package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/guessboard/internal/clock"
	"github.com/robalobadob/guessboard/internal/config"
	"github.com/robalobadob/guessboard/internal/events"
	"github.com/robalobadob/guessboard/internal/httpserver"
	"github.com/robalobadob/guessboard/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
	if cfg.LogConsole {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kvs, err := config.OpenKV(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", string(cfg.Backend)).Msg("failed to open storage")
	}
	defer kvs.Close()

	clk := clock.Real{}
	st := store.New(ctx, store.Options{
		KV:       kvs,
		Key:      cfg.StorageKey,
		Clock:    clk,
		Bus:      events.NewBus(clk.Now),
		Rules:    cfg.Rules,
		Alphabet: cfg.Alphabet,
		Debounce: cfg.PersistDelay,
	})

	srv := httpserver.New(st, cfg.ClientOrigin)
	log.Info().Str("addr", cfg.Addr()).Str("backend", string(cfg.Backend)).Msg("starting guessboard")
	if err := srv.Run(ctx, cfg.Addr()); err != nil {
		log.Error().Err(err).Msg("server exited")
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.Close(flushCtx); err != nil {
		log.Error().Err(err).Msg("final snapshot")
	}
	log.Info().Msg("bye")
}
