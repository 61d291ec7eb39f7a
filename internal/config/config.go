// internal/config/config.go
//
// Process configuration read from the environment (.env is loaded by main).
// Responsibilities:
//   - Read every setting with a default, rejecting malformed values.
//   - Open the configured key-value backend.

package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/guessboard/internal/game"
	"github.com/robalobadob/guessboard/internal/kv"
)

// Backend selects the key-value store.
type Backend string

const (
	BackendSQLite Backend = "sqlite"
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
)

type Config struct {
	Port        string
	BindAddress string
	LogLevel    zerolog.Level
	LogConsole  bool

	Backend       Backend
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StorageKey   string
	PersistDelay time.Duration

	Rules    game.Rules
	Alphabet game.Alphabet

	ClientOrigin string
}

// Addr is the listen address for the HTTP bridge.
func (c *Config) Addr() string {
	return c.BindAddress + ":" + c.Port
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:          getEnv("PORT", "5175"),
		BindAddress:   getEnv("BIND_ADDRESS", "127.0.0.1"),
		LogConsole:    strings.EqualFold(getEnv("LOG_FORMAT", "json"), "console"),
		DBPath:        getEnv("DB_PATH", "./data/guessboard.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		StorageKey:    getEnv("STORAGE_KEY", "mebi-games"),
		ClientOrigin:  getEnv("CLIENT_ORIGIN", ""),
	}

	var err error
	if cfg.LogLevel, err = zerolog.ParseLevel(getEnv("LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	switch b := Backend(strings.ToLower(getEnv("KV_BACKEND", string(BackendSQLite)))); b {
	case BackendSQLite, BackendRedis, BackendMemory:
		cfg.Backend = b
	default:
		return nil, fmt.Errorf("KV_BACKEND: unknown backend %q", b)
	}
	if cfg.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.PersistDelay, err = envDuration("PERSIST_DELAY", 100*time.Millisecond); err != nil {
		return nil, err
	}
	if cfg.Rules.MaxGuesses, err = envInt("GAME_MAX_GUESSES", game.DefaultMaxGuesses); err != nil {
		return nil, err
	}
	if cfg.Rules.TimerDuration, err = envInt("GAME_TIMER_SECONDS", game.DefaultTimerDuration); err != nil {
		return nil, err
	}
	if cfg.Rules.LowTime, err = envInt("GAME_LOW_TIME_SECONDS", game.DefaultLowTime); err != nil {
		return nil, err
	}
	if cfg.Rules.MaxGuesses < 1 || cfg.Rules.TimerDuration < 1 || cfg.Rules.LowTime < 0 {
		return nil, fmt.Errorf("game rules out of range: %+v", cfg.Rules)
	}
	if cfg.Alphabet, err = game.ParseAlphabet(getEnv("GAME_ALPHABET", "letters")); err != nil {
		return nil, fmt.Errorf("GAME_ALPHABET: %w", err)
	}
	return cfg, nil
}

// OpenKV opens the configured key-value store.
func OpenKV(ctx context.Context, cfg *Config) (kv.Store, error) {
	switch cfg.Backend {
	case BackendRedis:
		r, err := kv.NewRedis(ctx, kv.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	case BackendMemory:
		return kv.NewMemory(), nil
	default:
		db, err := kv.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive", key)
	}
	return d, nil
}
