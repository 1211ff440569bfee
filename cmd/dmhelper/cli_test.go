package main

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmhelper/extension/internal/database"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, CurrentExtensionVersion)
	assert.Contains(t, out, BuildDate)
}

func seedHistory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := database.OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zerolog.Nop()))

	start := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	s := database.Session{Name: "Crypt of Bones", DM: "Mira", Tag: "oneshot", StartTime: start, EndTime: &end}
	require.NoError(t, db.Create(&s).Error)
	require.NoError(t, db.Create(&[]database.LogEntry{
		{SessionID: s.ID, Seq: 1, Timestamp: start, Kind: "Attack", Actor: "Bram", Target: "Ghoul", Roll: 15, DC: 12, Success: true, Damage: 1, Phrase: "Bram hits Ghoul."},
		{SessionID: s.ID, Seq: 2, Timestamp: start, Kind: "MonsterDefeated", Actor: "Bram", Target: "Ghoul", Success: true, Phrase: "Ghoul is defeated."},
	}).Error)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())
	return path
}

func TestHistoryCmd(t *testing.T) {
	path := seedHistory(t)

	out, err := execute(t, "history", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Crypt of Bones")
	assert.Contains(t, out, "dm=Mira")
	assert.Contains(t, out, "1h30m0s")

	out, err = execute(t, "history", path, "1", "--breakdown")
	require.NoError(t, err)
	assert.Contains(t, out, "Bram hits Ghoul. [15 vs 12, 1 dmg]")
	assert.Contains(t, out, "Ghoul is defeated.")
}

func TestHistoryCmd_InvalidID(t *testing.T) {
	path := seedHistory(t)
	_, err := execute(t, "history", path, "abc")
	assert.Error(t, err)
}

func TestHistoryCmd_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	db, err := database.OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, zerolog.Nop()))

	out, err := execute(t, "history", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No sessions recorded.")
}

func TestHistoryCmd_Directory(t *testing.T) {
	path := seedHistory(t)

	out, err := execute(t, "history", filepath.Dir(path))
	require.NoError(t, err)
	assert.Contains(t, out, path)

	out, err = execute(t, "history", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No dumps found.")
}
