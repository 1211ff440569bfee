package dispatcher

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/dmhelper/extension/internal/dispatcher"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
