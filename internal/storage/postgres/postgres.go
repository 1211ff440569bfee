// Package postgres stores combat sessions in PostgreSQL through the GORM backend.
package postgres

import (
	"fmt"

	"github.com/dmhelper/extension/internal/config"
	"github.com/dmhelper/extension/internal/database"
	gormstorage "github.com/dmhelper/extension/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend is the GORM backend bound to a connection opened on Init. When
// postgres is unreachable the connection falls back to an in-memory SQLite DB.
type Backend struct {
	*gormstorage.Backend
	cfg config.DBConfig
	log zerolog.Logger
	db  *database.Manager
}

// New creates a postgres backend. No connection is made until Init.
func New(cfg config.DBConfig, log zerolog.Logger) *Backend {
	return &Backend{cfg: cfg, log: log}
}

// Init connects, migrates and starts the writer.
func (b *Backend) Init() error {
	b.db = database.NewManager(b.log)
	if err := b.db.Connect(b.cfg); err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if b.db.ShouldSaveLocal {
		b.log.Warn().Msg("Postgres unreachable, recording to in-memory SQLite")
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{DB: b.db.DB, Logger: b.log})
	return b.Backend.Init()
}

// Local reports whether Init fell back to the in-memory SQLite database.
func (b *Backend) Local() bool {
	return b.db != nil && b.db.ShouldSaveLocal
}

// Close stops the writer and releases the pool.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return b.db.Close()
}
