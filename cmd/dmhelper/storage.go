package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dmhelper/extension/internal/config"
	"github.com/dmhelper/extension/internal/influx"
	"github.com/dmhelper/extension/internal/storage"
	"github.com/dmhelper/extension/internal/storage/memory"
	pgstorage "github.com/dmhelper/extension/internal/storage/postgres"
	sqlitestorage "github.com/dmhelper/extension/internal/storage/sqlite"
	wsstorage "github.com/dmhelper/extension/internal/storage/websocket"
)

func createStorageBackend(storageCfg config.StorageConfig, start time.Time, zlog zerolog.Logger, logger *slog.Logger) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		logger.Info("Postgres storage backend selected")
		return pgstorage.New(config.GetDBConfig(), zlog), nil

	case "sqlite":
		dumpPath := storageCfg.SQLite.Path
		if dumpPath == "" {
			dumpPath = sqliteDumpPath(config.GetString("logsDir"), start)
		}
		backend, err := sqlitestorage.New(sqlitestorage.Config{
			DumpInterval: storageCfg.SQLite.DumpInterval,
			DumpPath:     dumpPath,
		}, zlog)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend selected", "dump", dumpPath)
		return backend, nil

	case "websocket":
		wsURL := storageCfg.WebSocket.URL
		if wsURL == "" {
			wsURL = httpToWS(config.GetAPIConfig().ServerURL) + "/v1/stream"
		}
		secret := storageCfg.WebSocket.Secret
		if secret == "" {
			secret = config.GetAPIConfig().APIKey
		}
		logger.Info("WebSocket storage backend selected", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: secret,
			Logger: logger,
		}), nil

	default:
		logger.Info("Memory storage backend selected")
		return memory.New(storageCfg.Memory), nil
	}
}

func newInfluxBackend(cfg config.InfluxConfig, logsDir string, start time.Time, zlog zerolog.Logger) *influx.Backend {
	return influx.New(influx.Config{
		URL:        cfg.URL,
		Token:      cfg.Token,
		Org:        cfg.Org,
		Bucket:     cfg.Bucket,
		BackupPath: filepath.Join(logsDir, fmt.Sprintf("%s_influx_%s.lp.gz", ExtensionName, start.Format("20060102_150405"))),
	}, zlog)
}

func sqliteDumpPath(dir string, start time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.db", ExtensionName, start.Format("20060102_150405")))
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
