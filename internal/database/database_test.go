package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmhelper/extension/internal/config"
	"github.com/dmhelper/extension/pkg/core"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMemoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := OpenSQLite("", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, Migrate(db, zerolog.Nop()))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestOpenSQLite_InMemoryDatabasesAreIsolated(t *testing.T) {
	a := newMemoryDB(t)
	b := newMemoryDB(t)

	require.NoError(t, a.Create(&Session{Name: "only in a"}).Error)

	var countA, countB int64
	require.NoError(t, a.Model(&Session{}).Count(&countA).Error)
	require.NoError(t, b.Model(&Session{}).Count(&countB).Error)
	assert.Equal(t, int64(1), countA)
	assert.Equal(t, int64(0), countB)
}

func TestMigrate_CreatesTables(t *testing.T) {
	db := newMemoryDB(t)
	for _, m := range Models {
		assert.True(t, db.Migrator().HasTable(m))
	}
}

func TestEntryRoundTrip(t *testing.T) {
	db := newMemoryDB(t)
	ts := time.Date(2026, 3, 14, 20, 0, 0, 0, time.UTC)

	sess := SessionFromCore(core.Session{Name: "Crypt", DM: "Mira", StartTime: ts})
	require.NoError(t, db.Create(&sess).Error)
	require.NotZero(t, sess.ID)

	in := core.CombatLogEntry{
		Timestamp: ts, Actor: "Bram", Target: "Ghoul", Roll: 17, DC: 13,
		Success: true, Damage: 2, Kind: core.KindAttack, Phrase: "Bram cleaves the Ghoul.",
	}
	row := EntryFromCore(in)
	row.SessionID = sess.ID
	row.Seq = 1
	require.NoError(t, db.Create(&row).Error)

	var loaded []LogEntry
	require.NoError(t, db.Where("session_id = ?", sess.ID).Order("seq").Find(&loaded).Error)
	require.Len(t, loaded, 1)

	out := loaded[0].ToCore()
	assert.True(t, in.Timestamp.Equal(out.Timestamp))
	out.Timestamp = in.Timestamp
	assert.Equal(t, in, out)
}

func TestSnapshotRoundTrip(t *testing.T) {
	db := newMemoryDB(t)
	advID := uuid.MustParse("6f1c2a8e-6a3c-4c1e-9d1c-0c7f3b8f9a01")
	roll := 14

	snap := core.Snapshot{
		Phase: core.PhaseDefense,
		Combatants: []core.CombatantView{
			{ID: 101, Name: "Bram", Roll: &roll, Targets: []core.AdversaryID{advID}},
		},
		Adversaries: []core.AdversaryView{
			{Adversary: core.Adversary{ID: advID, Name: "Ghoul", MaxHP: 6, CurrentHP: 4, DC: 13, Engaged: true}},
		},
		LogSize: 9,
	}
	row, err := SnapshotFromCore(snap)
	require.NoError(t, err)
	assert.Equal(t, "defense", row.Phase)
	require.NoError(t, db.Create(&row).Error)

	var loaded Snapshot
	require.NoError(t, db.First(&loaded, row.ID).Error)
	out, err := loaded.ToCore()
	require.NoError(t, err)

	assert.Equal(t, core.PhaseDefense, out.Phase)
	assert.Equal(t, 9, out.LogSize)
	require.Len(t, out.Combatants, 1)
	assert.Equal(t, 14, *out.Combatants[0].Roll)
	assert.Equal(t, advID, out.Adversaries[0].ID)
	assert.Equal(t, 4, out.Adversaries[0].CurrentHP)
}

func TestDumpToDisk(t *testing.T) {
	db := newMemoryDB(t)
	require.NoError(t, db.Create(&Session{Name: "dumped"}).Error)

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "combat.db")
	require.NoError(t, DumpToDisk(db, path))
	// a second dump replaces the first
	require.NoError(t, DumpToDisk(db, path))

	disk, err := OpenSQLite(path, zerolog.Nop())
	require.NoError(t, err)
	var sessions []Session
	require.NoError(t, disk.Find(&sessions).Error)
	require.Len(t, sessions, 1)
	assert.Equal(t, "dumped", sessions[0].Name)

	paths, err := DumpPaths(filepath.Join(dir, "nested"))
	require.NoError(t, err)
	assert.Equal(t, []string{path}, paths)
}

func TestDumpToDisk_RejectsBadPaths(t *testing.T) {
	db := newMemoryDB(t)
	assert.Error(t, DumpToDisk(db, ""))
	assert.Error(t, DumpToDisk(db, filepath.Join(t.TempDir(), "it's.db")))
}

func TestDumpPaths_MissingDir(t *testing.T) {
	_, err := DumpPaths(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, os.IsNotExist(err))
}

func TestManager_FallsBackToSQLite(t *testing.T) {
	m := NewManager(zerolog.Nop())
	err := m.Connect(config.DBConfig{
		Host: "127.0.0.1", Port: "1", Username: "x", Password: "x", Database: "x",
	})
	require.NoError(t, err)
	defer m.Close()

	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	assert.Equal(t, "sqlite", m.DB.Dialector.Name())
	require.NoError(t, Migrate(m.DB, zerolog.Nop()))
}
