// Package main is the entry point for the secondChance backend.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal — its job is to:
// 1. Read configuration
// 2. Create dependencies (logger, store, image store)
// 3. Start the application
//
// All actual logic lives in imported packages (internal/server, internal/handler, etc.).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/sakif/secondchance/internal/config"
	"github.com/sakif/secondchance/internal/logger"
	"github.com/sakif/secondchance/internal/repository"
	"github.com/sakif/secondchance/internal/repository/mongodb"
	sqliteRepo "github.com/sakif/secondchance/internal/repository/sqlite"
	"github.com/sakif/secondchance/internal/server"
	"github.com/sakif/secondchance/internal/storage"
)

// startupTimeout bounds connecting to the store and the object storage.
const startupTimeout = 15 * time.Second

func main() {
	// === 1. READ CONFIGURATION ===
	// A bad config is fatal: there is no sensible default for JWT_SECRET.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	// === 3. OPEN THE STORE ===
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	// === 4. OPEN THE IMAGE STORE ===
	images, err := openImageStore(ctx, cfg)
	if err != nil {
		store.Close()
		return err
	}

	// === 5. CREATE AND START THE SERVER ===
	srv, err := server.New(cfg, log, store, images)
	if err != nil {
		store.Close()
		return fmt.Errorf("creating server: %w", err)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	// and closes the store on its way out.
	return srv.Start(context.Background())
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		store, err := mongodb.New(ctx, cfg.MongoURL, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("opening mongo store: %w", err)
		}
		return store, nil
	default:
		// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
		if cfg.DBPath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		store, err := sqliteRepo.New(ctx, cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		return store, nil
	}
}

func openImageStore(ctx context.Context, cfg *config.Config) (storage.ImageStore, error) {
	switch cfg.ImageStore {
	case config.ImageStoreMinio:
		images, err := storage.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("opening minio image store: %w", err)
		}
		return images, nil
	default:
		images, err := storage.NewDiskStore(cfg.ImageDir)
		if err != nil {
			return nil, fmt.Errorf("opening image directory: %w", err)
		}
		return images, nil
	}
}
