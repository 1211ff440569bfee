package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		logsDir       string
		extensionName string
		want          string
	}{
		{
			name:          "basic path",
			logsDir:       "dmlogs",
			extensionName: "dmhelper",
			want:          filepath.Join("dmlogs", "dmhelper.20260314_200000.log"),
		},
		{
			name:          "relative path with dot",
			logsDir:       "./dmlogs",
			extensionName: "dmhelper",
			want:          filepath.Join(".", "dmlogs", "dmhelper.20260314_200000.log"),
		},
		{
			name:          "absolute path",
			logsDir:       filepath.Join("/var", "log", "dmhelper"),
			extensionName: "dmhelper",
			want:          filepath.Join("/var", "log", "dmhelper", "dmhelper.20260314_200000.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, tt.extensionName, sessionStart)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenLogFile_KeepsPreviousRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "dmlogs")
	start := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

	f, path, err := OpenLogFile(dir, "dmhelper", start)
	require.NoError(t, err)
	_, err = f.WriteString("first run\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, again, err := OpenLogFile(dir, "dmhelper", start)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, path, again)

	old, err := os.ReadFile(path + ".old")
	require.NoError(t, err)
	assert.Equal(t, "first run\n", string(old))

	info, err := f.Stat()
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestOpenLogFile_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, path, err := OpenLogFile(filepath.Join(file, "sub"), "dmhelper", time.Now())
	assert.Error(t, err)
	assert.Empty(t, path)
}
