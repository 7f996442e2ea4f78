package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/levenlabs/go-lflag"
	"github.com/levenlabs/go-llog"

	"github.com/solarfleet/solarfleet/pkg/log"
	"github.com/solarfleet/solarfleet/pkg/scheduler"
	"github.com/solarfleet/solarfleet/pkg/server"
	"github.com/solarfleet/solarfleet/pkg/storage"
	"github.com/solarfleet/solarfleet/pkg/telemetry"
	"github.com/solarfleet/solarfleet/pkg/vendor"
)

func main() {
	// a local .env may carry emulator hosts and credentials
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Errorf("failed to load .env: %w", err))
	}

	// init packages
	v := vendor.Configured()
	s := storage.Configured()
	t := telemetry.Configured()
	sched := scheduler.Configured(v, s, t)

	// init server
	srv := server.Configured(v, s, sched)

	once := lflag.Bool("once", false, "Run a single fleet refresh and exit")

	// parse flags
	lflag.Configure()

	var level slog.Level
	// lflag automatically sets llog's level, but we need to set the slog level
	switch llog.GetLevel() {
	case llog.DebugLevel:
		level = slog.LevelDebug
	case llog.InfoLevel:
		level = slog.LevelInfo
	case llog.WarnLevel:
		level = slog.LevelWarn
	case llog.ErrorLevel:
		level = slog.LevelError
	default:
		panic(fmt.Errorf("unknown log level: %s", llog.GetLevel().String()))
	}
	log.SetDefaultLogLevel(level)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	slog.Debug("logger configured", slog.String("level", level.String()), slog.Any("vendors", v.Tags()))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// If initialization inside lflag.Do failed, we wouldn't be here (panic).
	defer func() {
		if err := s.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close storage", slog.Any("error", err))
		}
		if err := t.Close(); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to close telemetry", slog.Any("error", err))
		}
	}()

	if *once {
		res, err := sched.Run(ctx)
		if err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "fleet refresh failed", slog.Any("error", err))
			os.Exit(1)
		}
		log.Ctx(ctx).InfoContext(ctx, "fleet refresh done",
			slog.Bool("skipped", res.Skipped),
			slog.Int("completed", res.Completed),
			slog.Int("failed", res.Failed),
		)
		return
	}

	// a zero interval leaves refreshes to POST /api/refresh
	if interval := sched.Interval(); interval > 0 {
		go func() {
			if err := sched.Loop(ctx, interval); err != nil {
				log.Ctx(ctx).ErrorContext(ctx, "scheduler loop stopped", slog.Any("error", err))
			}
		}()
	}

	// Run will block until context is canceled or error happens
	if err := srv.Run(ctx); err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "server failed", slog.Any("error", err))
		os.Exit(1)
	}
	log.Ctx(ctx).InfoContext(ctx, "server exited cleanly")
}
