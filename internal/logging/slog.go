package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// swapped by tests
var (
	osStdout io.Writer = os.Stdout
	osPipe             = os.Pipe
)

// SlogManager manages slog-based logging with optional OTel and GELF output.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// Option customizes Setup.
type Option func(*setupOptions)

type setupOptions struct {
	graylog io.Writer
	context ContextProvider
}

// WithGraylog adds a handler that ships records to a GELF writer.
func WithGraylog(w io.Writer) Option {
	return func(o *setupOptions) { o.graylog = w }
}

// WithContext injects attributes from p into every record.
func WithContext(p ContextProvider) Option {
	return func(o *setupOptions) { o.context = p }
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system. Records go to file when one is
// given, otherwise to stdout. If provider is nil, OTel logging is disabled.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, opts ...Option) {
	var o setupOptions
	for _, opt := range opts {
		opt(&o)
	}

	lvl := parseLevel(level)
	m.logProvider = provider

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	if o.graylog != nil {
		handlers = append(handlers, slog.NewJSONHandler(o.graylog, handlerOpts))
	}

	if provider != nil {
		otelHandler := otelslog.NewHandler("dmhelper", otelslog.WithLoggerProvider(provider))
		handlers = append(handlers, otelHandler)
	}

	m.logger = slog.New(withCurrent(newFanout(handlers...), o.context))
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// WriteLog writes a log entry with the specified function name, data, and level.
func (m *SlogManager) WriteLog(functionName, data, level string) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), parseLevel(level), data, "function", functionName)
}
