package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LogFilePath names the log file for one run: <name>.<start>.log in logsDir.
func LogFilePath(logsDir, extensionName string, runStart time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", extensionName, runStart.Format("20060102_150405")))
}

// OpenLogFile creates logsDir if needed and opens the run's log file for
// appending. A file already at that path is kept as <path>.old.
func OpenLogFile(logsDir, extensionName string, runStart time.Time) (*os.File, string, error) {
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, "", fmt.Errorf("failed to create logs dir: %w", err)
	}
	path := LogFilePath(logsDir, extensionName, runStart)
	if _, err := os.Stat(path); err == nil {
		_ = os.Rename(path, path+".old")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, path, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, path, nil
}
