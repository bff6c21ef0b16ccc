package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/subcommands"

	"wealthtrack/internal/config"
	"wealthtrack/internal/log"
	"wealthtrack/internal/storage"
	"wealthtrack/internal/store"
)

// env carries what every subcommand needs. open is swapped in tests.
type env struct {
	out  io.Writer
	errw io.Writer
	now  func() time.Time
	open func(ctx context.Context) (*store.Store, func(), error)
}

func newEnv(out, errw io.Writer) *env {
	e := &env{out: out, errw: errw, now: time.Now}
	e.open = func(ctx context.Context) (*store.Store, func(), error) {
		cfg := config.Load()
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
		// stdout carries command output, so logs go to stderr
		logCfg, err := log.ParseConfig(getenv("LOG_LEVEL", "warn"), cfg.LogFormat, errw)
		if err != nil {
			return nil, nil, err
		}
		logCfg.Component = log.ComponentCLI
		logger := log.New(logCfg)
		kv, err := storage.Open(cfg.DataBackend, cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, err
		}
		// never seed from the CLI; an empty database stays empty
		s, err := store.Open(ctx, kv, store.Options{Logger: logger})
		if err != nil {
			kv.Close()
			return nil, nil, err
		}
		return s, func() { kv.Close() }, nil
	}
	return e
}

func commands(e *env) []subcommands.Command {
	return []subcommands.Command{
		&exportCmd{env: e},
		&importCmd{env: e},
		&trendCmd{env: e},
		&showCmd{env: e},
		&clearCmd{env: e},
	}
}

// withStore opens the store for the duration of fn and maps errors to exit codes.
func (e *env) withStore(ctx context.Context, fn func(*store.Store) error) subcommands.ExitStatus {
	s, closeFn, err := e.open(ctx)
	if err != nil {
		e.fail(err)
		return subcommands.ExitFailure
	}
	defer closeFn()
	if err := fn(s); err != nil {
		e.fail(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (e *env) fail(err error) {
	fmt.Fprintf(e.errw, "Error: %v\n", err)
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
