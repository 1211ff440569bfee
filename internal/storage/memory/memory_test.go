// internal/storage/memory/memory_test.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmhelper/extension/internal/config"
	"github.com/dmhelper/extension/internal/storage"
	"github.com/dmhelper/extension/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

// Verify Backend implements storage.Uploadable interface
var _ storage.Uploadable = (*Backend)(nil)

var sessionStart = time.Date(2026, 3, 14, 19, 30, 0, 0, time.UTC)

func newTestBackend(t *testing.T, compress bool) *Backend {
	t.Helper()
	b := New(config.MemoryConfig{OutputDir: t.TempDir(), CompressOutput: compress})
	b.now = func() time.Time { return sessionStart.Add(45 * time.Minute) }
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func sampleEntries() []core.CombatLogEntry {
	return []core.CombatLogEntry{
		{Actor: "Bram", Target: "Goblin", Roll: 15, DC: 12, Success: true, Damage: 1, Kind: core.KindAttack},
		{Actor: "Aurora", Target: "Goblin", Roll: 4, DC: 12, Success: false, Kind: core.KindAttack},
		{Actor: "Bram", Target: "Goblin", Kind: core.KindMonsterDefeated},
		{Actor: "Bram", Target: "Goblin", Roll: 12, DC: 12, Success: true, Kind: core.KindDefense},
		{Actor: "Aurora", Target: "Goblin", Roll: 3, DC: 12, Success: false, Damage: 1, Kind: core.KindDefense},
		{Actor: "Aurora", Kind: core.KindPlayerDowned},
	}
}

func TestStartSession_ResetsState(t *testing.T) {
	b := newTestBackend(t, false)

	require.NoError(t, b.StartSession(&core.Session{Name: "first", StartTime: sessionStart}))
	require.NoError(t, b.RecordLogEntry(&core.CombatLogEntry{Actor: "Bram"}))
	require.NoError(t, b.RecordSnapshot(&core.Snapshot{Phase: core.PhaseAttack}))

	require.NoError(t, b.StartSession(&core.Session{Name: "second", StartTime: sessionStart}))
	assert.Empty(t, b.Entries())
	assert.Equal(t, 0, b.SnapshotCount())
}

func TestStartSession_DefaultsStartTime(t *testing.T) {
	b := newTestBackend(t, false)
	require.NoError(t, b.StartSession(&core.Session{Name: "x"}))
	assert.False(t, b.session.StartTime.IsZero())
}

func TestEndSession_WithoutStartIsNoop(t *testing.T) {
	b := newTestBackend(t, true)
	require.NoError(t, b.EndSession())
	assert.Equal(t, "", b.GetExportedFilePath())
}

func TestRecordLogEntry_CopiesValue(t *testing.T) {
	b := newTestBackend(t, false)
	require.NoError(t, b.StartSession(&core.Session{Name: "x", StartTime: sessionStart}))

	e := core.CombatLogEntry{Actor: "Bram"}
	require.NoError(t, b.RecordLogEntry(&e))
	e.Actor = "changed"

	assert.Equal(t, "Bram", b.Entries()[0].Actor)
}

func TestEndSession_ExportsUncompressed(t *testing.T) {
	b := newTestBackend(t, false)
	require.NoError(t, b.StartSession(&core.Session{
		Name: "Goblin Ambush: Night 2", DM: "Mira", Tag: "campaign", ExtensionVersion: "1.2.0", StartTime: sessionStart,
	}))
	for _, e := range sampleEntries() {
		require.NoError(t, b.RecordLogEntry(&e))
	}
	require.NoError(t, b.RecordSnapshot(&core.Snapshot{Phase: core.PhaseAttack, LogSize: 2}))
	require.NoError(t, b.RecordSnapshot(&core.Snapshot{Phase: core.PhaseDefense, LogSize: 6}))

	require.NoError(t, b.EndSession())

	path := b.GetExportedFilePath()
	assert.Equal(t, "Goblin_Ambush__Night_2_20260314_193000.json", filepath.Base(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var export CombatExport
	require.NoError(t, json.Unmarshal(raw, &export))
	assert.Equal(t, "1.2.0", export.ExtensionVersion)
	assert.Equal(t, "Mira", export.DM)
	assert.Len(t, export.Entries, 6)
	assert.Equal(t, ExportStats{
		Attacks: 2, Hits: 1, Defenses: 2, Blocks: 1, Defeated: 1, Downed: 1, Snapshots: 2,
	}, export.Stats)
	require.NotNil(t, export.FinalState)
	assert.Equal(t, core.PhaseDefense, export.FinalState.Phase)
	assert.Equal(t, 6, export.FinalState.LogSize)
}

func TestEndSession_ExportsGzip(t *testing.T) {
	b := newTestBackend(t, true)
	require.NoError(t, b.StartSession(&core.Session{Name: "Crypt", StartTime: sessionStart}))
	for _, e := range sampleEntries() {
		require.NoError(t, b.RecordLogEntry(&e))
	}
	require.NoError(t, b.EndSession())

	path := b.GetExportedFilePath()
	require.True(t, strings.HasSuffix(path, ".json.gz"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var export CombatExport
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	assert.Equal(t, "Crypt", export.SessionName)
	assert.Len(t, export.Entries, 6)
	assert.Nil(t, export.FinalState)
}

func TestGetExportMetadata(t *testing.T) {
	b := newTestBackend(t, true)
	require.NoError(t, b.StartSession(&core.Session{Name: "Crypt", DM: "Mira", Tag: "oneshot", StartTime: sessionStart}))
	for _, e := range sampleEntries() {
		require.NoError(t, b.RecordLogEntry(&e))
	}
	require.NoError(t, b.EndSession())

	meta := b.GetExportMetadata()
	assert.Equal(t, core.UploadMetadata{
		SessionName: "Crypt",
		DM:          "Mira",
		Tag:         "oneshot",
		Entries:     6,
		Defeated:    1,
		Downed:      1,
		Duration:    45 * time.Minute,
	}, meta)
}

func TestExport_EmptyNameFallsBack(t *testing.T) {
	b := newTestBackend(t, false)
	require.NoError(t, b.StartSession(&core.Session{Name: "  ", StartTime: sessionStart}))
	require.NoError(t, b.EndSession())
	assert.Equal(t, "combat_20260314_193000.json", filepath.Base(b.GetExportedFilePath()))
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"Goblin Ambush":      "Goblin_Ambush",
		"a/b\\c":             "a_b_c",
		"Bram@Cactuar: duel": "Bram_Cactuar__duel",
		" padded ":           "padded",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
}
