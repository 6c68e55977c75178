// Package backend selects and opens the storage.Backend named by the
// environment. Nothing above this package knows which store is in use.
package backend

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage/memory"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage/rest"
	"github.com/ovaphlow/pitchfork/service-inventory-go/internal/storage/sqlstore"
	"github.com/ovaphlow/pitchfork/service-inventory-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-inventory-go/pkg/utilities"
)

type Kind string

const (
	Embedded Kind = "embedded"
	Postgres Kind = "postgres"
	Remote   Kind = "remote"
	Memory   Kind = "memory"
)

// DefaultLocalPath is the embedded store file when STORE_LOCAL_PATH is unset.
const DefaultLocalPath = "inventory.db"

type Config struct {
	Kind      Kind
	LocalPath string
	Database  database.Config
	Remote    rest.Config
	NodeID    int64
	// Timeout bounds every call on the SQL backends.
	Timeout   time.Duration
}

// ConfigFromEnv reads STORE_BACKEND, STORE_LOCAL_PATH, DATABASE_URL,
// STORE_ENDPOINT, STORE_ACCESS_KEY and STORE_TIMEOUT.
func ConfigFromEnv() Config {
	return configFromEnv("STORE_BACKEND")
}

func configFromEnv(kindVar string) Config {
	kind := Kind(strings.ToLower(strings.TrimSpace(os.Getenv(kindVar))))
	if kind == "" {
		kind = Embedded
	}
	path := os.Getenv("STORE_LOCAL_PATH")
	if path == "" {
		path = DefaultLocalPath
	}
	timeout, err := time.ParseDuration(os.Getenv("STORE_TIMEOUT"))
	if err != nil || timeout <= 0 {
		timeout = rest.DefaultTimeout
	}
	return Config{
		Kind:      kind,
		LocalPath: path,
		Database:  database.ConfigFromEnv(),
		Remote: rest.Config{
			Endpoint:  os.Getenv("STORE_ENDPOINT"),
			AccessKey: os.Getenv("STORE_ACCESS_KEY"),
			Timeout:   timeout,
		},
		NodeID:  utilities.SnowflakeNodeFromEnv(),
		Timeout: timeout,
	}
}

// ServerConfigFromEnv is ConfigFromEnv for the store server, which reads its
// kind from API_BACKEND and defaults to postgres.
func ServerConfigFromEnv() Config {
	cfg := configFromEnv("API_BACKEND")
	if os.Getenv("API_BACKEND") == "" {
		cfg.Kind = Postgres
	}
	return cfg
}

// Open returns the configured backend and the closer that releases it.
// SQL backends are migrated before they are returned.
func Open(ctx context.Context, cfg Config, logger *zap.SugaredLogger) (storage.Backend, io.Closer, error) {
	switch cfg.Kind {
	case Embedded:
		s, err := sqlstore.OpenEmbedded(ctx, cfg.LocalPath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open embedded store %q: %w", cfg.LocalPath, err)
		}
		s.SetTimeout(cfg.Timeout)
		logger.Infow("storage backend ready", "backend", cfg.Kind, "path", cfg.LocalPath)
		return s, s, nil

	case Postgres:
		db, err := database.Connect(cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		s := sqlstore.New(db, sqlstore.Postgres, logger)
		s.SetTimeout(cfg.Timeout)
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, nil, err
		}
		logger.Infow("storage backend ready", "backend", cfg.Kind)
		return s, s, nil

	case Remote:
		if cfg.Remote.AccessKey == "" {
			logger.Warnw("STORE_ACCESS_KEY is empty, requests will be unauthenticated")
		}
		c, err := rest.New(cfg.Remote, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Infow("storage backend ready", "backend", cfg.Kind, "endpoint", cfg.Remote.Endpoint)
		return c, c, nil

	case Memory:
		s, err := memory.New(cfg.NodeID)
		if err != nil {
			return nil, nil, err
		}
		logger.Infow("storage backend ready", "backend", cfg.Kind)
		return s, s, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Kind)
	}
}
