// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmhelper/extension/pkg/core"
)

// CombatExport is the root JSON structure of an exported session.
type CombatExport struct {
	ExtensionVersion string                `json:"extensionVersion"`
	SessionName      string                `json:"sessionName"`
	DM               string                `json:"dm"`
	Tag              string                `json:"tag,omitempty"`
	StartTime        time.Time             `json:"startTime"`
	EndTime          time.Time             `json:"endTime"`
	Stats            ExportStats           `json:"stats"`
	Entries          []core.CombatLogEntry `json:"entries"`
	FinalState       *core.Snapshot        `json:"finalState,omitempty"`
}

// ExportStats counts entries by kind.
type ExportStats struct {
	Attacks   int `json:"attacks"`
	Hits      int `json:"hits"`
	Defenses  int `json:"defenses"`
	Blocks    int `json:"blocks"`
	Defeated  int `json:"defeated"`
	Downed    int `json:"downed"`
	Snapshots int `json:"snapshots"`
}

// exportJSON writes the session to a (optionally gzipped) JSON file.
// Called with b.mu held.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	timestamp := b.session.StartTime.Format("20060102_150405")
	name := sanitizeFilename(b.session.Name)
	if name == "" {
		name = "combat"
	}

	filename := fmt.Sprintf("%s_%s.json", name, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	b.lastExportMeta = core.UploadMetadata{
		SessionName: export.SessionName,
		DM:          export.DM,
		Tag:         export.Tag,
		Entries:     len(export.Entries),
		Defeated:    export.Stats.Defeated,
		Downed:      export.Stats.Downed,
		Duration:    export.EndTime.Sub(export.StartTime),
	}
	return nil
}

func (b *Backend) buildExport() CombatExport {
	export := CombatExport{
		ExtensionVersion: b.session.ExtensionVersion,
		SessionName:      b.session.Name,
		DM:               b.session.DM,
		Tag:              b.session.Tag,
		StartTime:        b.session.StartTime,
		EndTime:          b.endTime,
		Entries:          make([]core.CombatLogEntry, len(b.entries)),
		FinalState:       b.latest,
	}
	copy(export.Entries, b.entries)

	export.Stats.Snapshots = b.snapshots
	for _, e := range b.entries {
		switch e.Kind {
		case core.KindAttack:
			export.Stats.Attacks++
			if e.Success {
				export.Stats.Hits++
			}
		case core.KindDefense:
			export.Stats.Defenses++
			if e.Success {
				export.Stats.Blocks++
			}
		case core.KindMonsterDefeated:
			export.Stats.Defeated++
		case core.KindPlayerDowned:
			export.Stats.Downed++
		}
	}
	return export
}

// sanitizeFilename replaces characters that are awkward in file names.
func sanitizeFilename(s string) string {
	r := strings.NewReplacer(" ", "_", ":", "_", "/", "_", "\\", "_", "@", "_")
	return r.Replace(strings.TrimSpace(s))
}

func writeJSON(path string, data CombatExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data CombatExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
