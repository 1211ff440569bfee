package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmhelper/extension/internal/combat"
	"github.com/dmhelper/extension/internal/combatlog"
	"github.com/dmhelper/extension/internal/parser"
	"github.com/dmhelper/extension/internal/session"
	"github.com/dmhelper/extension/pkg/core"
)

const defaultRosterTimeout = 10 * time.Second

// Uploader sends an exported combat log to the companion web service.
type Uploader interface {
	Upload(filePath string, meta core.UploadMetadata) error
}

// Flusher pushes buffered telemetry out, e.g. the OTel provider.
type Flusher interface {
	Flush(ctx context.Context) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Session *session.Session
	Parser  *parser.Parser
	Logger  *slog.Logger
	// Uploader is optional; exports are only uploaded when set.
	Uploader Uploader
	// Telemetry is flushed when a recording ends.
	Telemetry Flusher
	// ReloadConfig re-reads the combat rules for :CONFIG:RELOAD:. Optional.
	ReloadConfig func() (combat.Config, error)
	// ShowRollBreakdown appends "[roll vs DC]" to rendered attack and defense lines.
	ShowRollBreakdown bool
	RosterTimeout     time.Duration
}

// Manager maps host commands onto the session.
type Manager struct {
	deps Dependencies
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Parser == nil {
		deps.Parser = parser.NewParser(deps.Logger)
	}
	if deps.RosterTimeout <= 0 {
		deps.RosterTimeout = defaultRosterTimeout
	}
	return &Manager{deps: deps}
}

func (m *Manager) render(entries []core.CombatLogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = combatlog.Render(e, m.deps.ShowRollBreakdown)
	}
	return out
}
