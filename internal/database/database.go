package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmhelper/extension/internal/config"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Manager handles database connections and operations.
type Manager struct {
	DB              *gorm.DB
	SqlDB           *sql.DB
	IsValid         bool
	ShouldSaveLocal bool
	Logger          zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		Logger: log,
	}
}

// Connect opens postgres, falling back to an in-memory SQLite database when
// postgres is unreachable.
func (m *Manager) Connect(cfg config.DBConfig) error {
	db, err := OpenPostgres(cfg, m.Logger)
	if err == nil {
		m.SqlDB, err = db.DB()
		if err == nil {
			err = m.SqlDB.Ping()
		}
	}

	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
		m.ShouldSaveLocal = true
		db, err = OpenSQLite("", m.Logger)
		if err != nil {
			m.IsValid = false
			return fmt.Errorf("failed to get local SQLite DB: %w", err)
		}
		if m.SqlDB, err = db.DB(); err != nil {
			m.IsValid = false
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
	} else {
		m.SqlDB.SetMaxOpenConns(10)
		m.Logger.Info().Str("host", cfg.Host).Msg("Connected to database")
	}

	m.DB = db
	m.IsValid = true
	return nil
}

// Close releases the underlying connection pool.
func (m *Manager) Close() error {
	if m.SqlDB == nil {
		return nil
	}
	return m.SqlDB.Close()
}

// OpenPostgres opens a GORM connection to postgres.
func OpenPostgres(cfg config.DBConfig, log zerolog.Logger) (*gorm.DB, error) {
	log.Debug().Str("host", cfg.Host).Str("port", cfg.Port).Str("database", cfg.Database).Msg("Connecting to Postgres DB")

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 NewGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, nil
}

// OpenSQLite opens a SQLite database at path. An empty path opens a private
// in-memory database meant to be dumped with DumpToDisk.
func OpenSQLite(path string, log zerolog.Logger) (*gorm.DB, error) {
	dsn := path
	inMemory := path == ""
	if inMemory {
		dsn = fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 NewGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if inMemory {
		// the database lives only as long as a connection holds it
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql interface: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
		log.Info().Msg("Using local SQLite DB in memory with periodic disk dump")
	} else {
		log.Info().Str("path", path).Msg("Using local SQLite DB")
	}

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
		"PRAGMA foreign_keys = ON;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	return db, nil
}

// Migrate creates or updates the combat tables.
func Migrate(db *gorm.DB, log zerolog.Logger) error {
	log.Info().Str("dialect", db.Dialector.Name()).Msg("Migrating schema")
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	log.Info().Msg("Database setup complete")
	return nil
}

// DumpToDisk vacuums db into a file at path, replacing any previous dump.
func DumpToDisk(db *gorm.DB, path string) error {
	if path == "" {
		return fmt.Errorf("sqlite file path not set")
	}
	if strings.ContainsRune(path, '\'') {
		return fmt.Errorf("sqlite file path %q contains a quote", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating dump directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	start := time.Now()
	if err := db.Exec("VACUUM INTO '" + path + "';").Error; err != nil {
		return fmt.Errorf("error dumping memory DB to disk after %s: %w", time.Since(start), err)
	}
	return nil
}

// DumpPaths returns every .db file in dir, oldest name first.
func DumpPaths(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".db") {
			paths = append(paths, filepath.Join(dir, file.Name()))
		}
	}
	return paths, nil
}
