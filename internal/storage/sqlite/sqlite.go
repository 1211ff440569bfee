// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the SQLite-specific concerns are creating the
// in-memory DB and dumping it to disk on a timer and at session end.
package sqlitestorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/dmhelper/extension/internal/database"
	gormstorage "github.com/dmhelper/extension/internal/storage/gorm"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      zerolog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new SQLite storage backend.
func New(cfg Config, log zerolog.Logger) (*Backend, error) {
	db, err := database.OpenSQLite("", log)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	return &Backend{
		Backend:  gormstorage.New(gormstorage.Dependencies{DB: db, Logger: log}),
		db:       db,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// EndSession flushes the session and dumps the database to disk.
func (b *Backend) EndSession() error {
	if err := b.Backend.EndSession(); err != nil {
		return err
	}
	return b.Dump()
}

// Dump writes the in-memory database to DumpPath. It is a no-op without a path.
func (b *Backend) Dump() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	start := time.Now()
	if err := database.DumpToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Debug().Dur("duration", time.Since(start)).Str("path", b.cfg.DumpPath).Msg("Dumped memory DB to disk")
	return nil
}

// Close stops the dump goroutine, closes the embedded GORM backend and
// writes a final dump.
func (b *Backend) Close() error {
	close(b.stopChan)
	b.wg.Wait()
	if err := b.Backend.Close(); err != nil {
		return err
	}
	return b.Dump()
}

// dumpLoop periodically dumps the in-memory SQLite database to disk.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Backend.Flush(); err != nil {
				b.log.Error().Err(err).Msg("flush before dump failed")
			}
			if err := b.Dump(); err != nil {
				b.log.Error().Err(err).Msg("Error dumping to disk")
			}
		}
	}
}
