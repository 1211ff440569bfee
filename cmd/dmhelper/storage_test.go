package main

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmhelper/extension/internal/config"
	"github.com/dmhelper/extension/internal/storage/memory"
	pgstorage "github.com/dmhelper/extension/internal/storage/postgres"
	sqlitestorage "github.com/dmhelper/extension/internal/storage/sqlite"
	wsstorage "github.com/dmhelper/extension/internal/storage/websocket"
)

func TestHttpToWS(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"http://localhost:5000", "ws://localhost:5000"},
		{"https://dm.example.com/api/", "wss://dm.example.com/api"},
		{"ws://already", "ws://already"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, httpToWS(tt.input))
		})
	}
}

func TestCreateStorageBackend(t *testing.T) {
	start := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	logger := slog.New(slog.DiscardHandler)

	tests := []struct {
		name   string
		cfg    config.StorageConfig
		assert func(t *testing.T, b any)
	}{
		{
			name: "memory by default",
			cfg:  config.StorageConfig{Type: ""},
			assert: func(t *testing.T, b any) {
				assert.IsType(t, &memory.Backend{}, b)
			},
		},
		{
			name: "sqlite",
			cfg: config.StorageConfig{Type: "sqlite", SQLite: config.SQLiteConfig{
				Path: filepath.Join(t.TempDir(), "combat.db"),
			}},
			assert: func(t *testing.T, b any) {
				assert.IsType(t, &sqlitestorage.Backend{}, b)
			},
		},
		{
			name: "postgres",
			cfg:  config.StorageConfig{Type: "postgres"},
			assert: func(t *testing.T, b any) {
				assert.IsType(t, &pgstorage.Backend{}, b)
			},
		},
		{
			name: "websocket",
			cfg:  config.StorageConfig{Type: "websocket", WebSocket: config.WebSocketConfig{URL: "ws://localhost:1/stream"}},
			assert: func(t *testing.T, b any) {
				assert.IsType(t, &wsstorage.Backend{}, b)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := createStorageBackend(tt.cfg, start, zerolog.Nop(), logger)
			require.NoError(t, err)
			tt.assert(t, b)
		})
	}
}

func TestSqliteDumpPath(t *testing.T) {
	start := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, filepath.Join("logs", "dmhelper_20260314_200000.db"), sqliteDumpPath("logs", start))
}

func TestNewInfluxBackend(t *testing.T) {
	b := newInfluxBackend(config.InfluxConfig{URL: "http://localhost:8086", Bucket: "combat"}, t.TempDir(), time.Now(), zerolog.Nop())
	assert.NotNil(t, b)
}
