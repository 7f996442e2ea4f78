package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/levenlabs/go-lflag"

	"github.com/solarfleet/solarfleet/pkg/log"
	"github.com/solarfleet/solarfleet/pkg/storage"
)

// seed copies a YAML fleet file into the configured storage provider.
func main() {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", "127.0.0.1:8087")
	}
	file := lflag.RequiredString("seed-file", "YAML fleet file to write to storage")
	s := storage.Configured()
	lflag.Configure()

	ctx := context.Background()
	defer s.Close()

	buf, err := os.ReadFile(*file)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to read seed file", slog.Any("error", err))
		os.Exit(1)
	}
	plants, err := storage.ParseFleet(buf)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "invalid seed file", slog.Any("error", err))
		os.Exit(1)
	}

	log.Ctx(ctx).InfoContext(ctx, "seeding fleet", slog.Int("plants", len(plants)))
	for _, p := range plants {
		if err := s.PutPlant(ctx, p); err != nil {
			log.Ctx(ctx).ErrorContext(ctx, "failed to write plant", slog.String("plantID", p.ID), slog.Any("error", err))
			os.Exit(1)
		}
	}
	log.Ctx(ctx).InfoContext(ctx, "seeding complete")
}
