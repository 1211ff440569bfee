package combat

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/dmhelper/extension/pkg/core"
)

const instrumentationName = "github.com/dmhelper/extension/internal/combat"

const (
	outcomeHit      = "hit"
	outcomeMiss     = "miss"
	outcomeDefended = "defended"
	outcomeFailed   = "failed"
	outcomeDowned   = "downed"
	outcomeDefeated = "defeated"
)

type metrics struct {
	resolutions metric.Int64Counter
	outcomes    metric.Int64Counter
}

// newMetrics uses the global OTel meter (no-op if not configured).
func newMetrics() (*metrics, error) {
	m := otel.Meter(instrumentationName)

	resolutions, err := m.Int64Counter(
		"combat.resolutions",
		metric.WithDescription("Phases resolved"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resolutions counter: %w", err)
	}

	outcomes, err := m.Int64Counter(
		"combat.outcomes",
		metric.WithDescription("Resolution outcomes by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating outcomes counter: %w", err)
	}

	return &metrics{resolutions: resolutions, outcomes: outcomes}, nil
}

func (m *metrics) resolved(p core.Phase) {
	m.resolutions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("phase", p.String())))
}

func (m *metrics) outcome(kind string) {
	m.outcomes.Add(context.Background(), 1, metric.WithAttributes(attribute.String("outcome", kind)))
}
