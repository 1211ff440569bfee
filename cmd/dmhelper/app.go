package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"github.com/dmhelper/extension/internal/api"
	"github.com/dmhelper/extension/internal/combat"
	"github.com/dmhelper/extension/internal/config"
	"github.com/dmhelper/extension/internal/dispatcher"
	"github.com/dmhelper/extension/internal/logging"
	"github.com/dmhelper/extension/internal/narrative"
	intOtel "github.com/dmhelper/extension/internal/otel"
	"github.com/dmhelper/extension/internal/roster"
	"github.com/dmhelper/extension/internal/session"
	"github.com/dmhelper/extension/internal/storage"
	"github.com/dmhelper/extension/internal/util"
	"github.com/dmhelper/extension/internal/worker"
	"github.com/dmhelper/extension/pkg/hostapi"
)

// app holds everything wired up for one run of the extension.
type app struct {
	startTime time.Time
	configDir string

	logFile     *os.File
	logFilePath string
	slogManager *logging.SlogManager
	logger      *slog.Logger
	storeLog    zerolog.Logger
	otel        *intOtel.Provider
	graylog     io.Writer

	apiClient  *api.Client
	backend    storage.Backend
	session    *session.Session
	dispatcher *dispatcher.Dispatcher
}

// bootstrap loads configuration from configDir and wires the engine, session,
// storage and host command surface.
func bootstrap(configDir string) (*app, error) {
	a := &app{startTime: time.Now(), configDir: configDir}

	// Initial console logging until the config tells us where to write
	a.slogManager = logging.NewSlogManager()
	a.slogManager.Setup(nil, "info", nil)
	a.logger = a.slogManager.Logger()

	if err := config.Load(configDir); err != nil {
		a.logger.Warn("Failed to load config, using defaults!", "error", err)
	} else {
		a.logger.Info("Loaded config")
	}

	if err := a.setupLogging(); err != nil {
		return nil, err
	}

	apiCfg := config.GetAPIConfig()
	a.apiClient = api.New(apiCfg.ServerURL, apiCfg.APIKey)

	engine, err := a.newEngine()
	if err != nil {
		return nil, err
	}

	backend, err := createStorageBackend(config.GetStorageConfig(), a.startTime, a.storeLog, a.logger)
	if err != nil {
		return nil, err
	}
	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		backend = storage.Multi{backend, newInfluxBackend(influxCfg, config.GetString("logsDir"), a.startTime, a.storeLog)}
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	a.backend = backend

	a.session, err = session.New(session.Dependencies{
		Engine:           engine,
		Backend:          backend,
		Logger:           a.logger,
		ExtensionVersion: CurrentExtensionVersion,
	})
	if err != nil {
		return nil, err
	}

	// Re-setup logging so every record carries the current phase
	a.applyLogSetup(logging.WithContext(a.session.LogContext))

	if err := a.setupHostAPI(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.session.RefreshRoster(ctx); err != nil {
		a.logger.Warn("Initial roster refresh failed", "error", err)
	}

	go a.checkServerStatus()
	return a, nil
}

func (a *app) setupLogging() error {
	f, path, err := logging.OpenLogFile(config.GetString("logsDir"), ExtensionName, a.startTime)
	a.logFilePath = path
	if err != nil {
		if path == "" {
			return err
		}
		a.logger.Error("Failed to create/open log file!", "error", err, "path", path)
	} else {
		a.logFile = f
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		var logWriter io.Writer
		if a.logFile != nil {
			logWriter = a.logFile
		}
		a.otel, err = intOtel.New(intOtel.Config{
			Enabled:      otelCfg.Enabled,
			ServiceName:  otelCfg.ServiceName,
			BatchTimeout: otelCfg.BatchTimeout,
			LogWriter:    logWriter,
			Endpoint:     otelCfg.Endpoint,
			Insecure:     otelCfg.Insecure,
		})
		if err != nil {
			a.logger.Error("Failed to initialize OTel provider", "error", err)
		} else {
			a.logger.Info("OTel provider initialized", "endpoint", otelCfg.Endpoint)
		}
	}

	a.storeLog = newStoreLogger(a.logFile, config.GetString("logLevel"))
	a.applyLogSetup()
	a.logger.Info("Logging to file", "path", a.logFilePath)
	return nil
}

// applyLogSetup rebuilds the slog handler chain from the current outputs.
func (a *app) applyLogSetup(extra ...logging.Option) {
	var opts []logging.Option

	gl := config.GetGraylogConfig()
	if gl.Enabled {
		if a.graylog == nil {
			w, err := logging.NewGraylogWriter(gl.Address)
			if err != nil {
				a.logger.Warn("Graylog unavailable", "error", err)
			} else {
				a.graylog = w
			}
		}
		if a.graylog != nil {
			opts = append(opts, logging.WithGraylog(a.graylog))
		}
	}
	opts = append(opts, extra...)

	var file io.Writer
	if a.logFile != nil {
		file = a.logFile
	}
	a.slogManager.Setup(file, config.GetString("logLevel"), a.otelLogProvider(), opts...)
	a.logger = a.slogManager.Logger()
}

func (a *app) otelLogProvider() *sdklog.LoggerProvider {
	if a.otel == nil || !a.otel.Enabled() {
		return nil
	}
	return a.otel.LoggerProvider()
}

// newStoreLogger builds the zerolog logger used by the storage backends.
func newStoreLogger(file *os.File, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	var w io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	if file != nil {
		w = zerolog.MultiLevelWriter(w, file)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Str("component", "storage").Logger()
}

func (a *app) newEngine() (*combat.Engine, error) {
	rosterCfg, err := config.GetRosterConfig()
	if err != nil {
		return nil, err
	}
	provider, err := roster.New(rosterCfg, a.apiClient)
	if err != nil {
		return nil, err
	}

	gen := narrative.New(nil)
	if path := config.GetString("narrative.poolsFile"); path != "" {
		if err := loadPools(gen, path); err != nil {
			a.logger.Warn("Failed to load narrative pools, using defaults", "path", path, "error", err)
		} else {
			a.logger.Info("Loaded narrative pools", "path", path)
		}
	}

	return combat.New(config.GetCombatConfig(), combat.Dependencies{
		Roster:    provider,
		Narrative: gen,
		Logger:    a.logger,
	})
}

func loadPools(gen *narrative.Generator, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gen.LoadPools(f)
}

func (a *app) setupHostAPI() error {
	hostapi.SetVersion(CurrentExtensionVersion)

	d, err := dispatcher.New(logging.NewDispatcherLogger(a.logger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}

	deps := worker.Dependencies{
		Session:           a.session,
		Logger:            a.logger,
		ShowRollBreakdown: config.GetBool("combat.showRollBreakdown"),
		ReloadConfig:      a.reloadCombatConfig,
	}
	if config.GetAPIConfig().APIKey != "" {
		deps.Uploader = a.apiClient
	}
	if a.otel != nil && a.otel.Enabled() {
		deps.Telemetry = a.otel
	}
	worker.NewManager(deps).RegisterHandlers(d)
	a.registerLifecycleHandlers(d)

	hostapi.SetDispatcher(d)
	a.dispatcher = d
	a.logger.Info("Dispatcher initialized with worker handlers")
	return nil
}

// reloadCombatConfig re-reads the config directory for :CONFIG:RELOAD:.
func (a *app) reloadCombatConfig() (combat.Config, error) {
	if err := config.Load(a.configDir); err != nil {
		return combat.Config{}, err
	}
	a.logger.Info("Reloaded config", "dir", a.configDir)
	return config.GetCombatConfig(), nil
}

func (a *app) registerLifecycleHandlers(d *dispatcher.Dispatcher) {
	d.Register(":GETDIR:LOG:", func(dispatcher.Event) (any, error) {
		return a.logFilePath, nil
	})
	d.Register(":BUILD:", func(dispatcher.Event) (any, error) {
		return []string{CurrentExtensionVersion, BuildDate}, nil
	})
	// host-side scripts log through the extension: function, message, [level].
	// Queued since log lines carry no combat state; blocks rather than drops when full.
	d.Register(":LOG:WRITE:", func(e dispatcher.Event) (any, error) {
		args := util.CleanArgs(e.Args)
		if len(args) < 2 {
			return nil, fmt.Errorf("expected function and message, got %d args", len(args))
		}
		level := "info"
		if len(args) > 2 {
			level = args[2]
		}
		a.slogManager.WriteLog(args[0], args[1], level)
		return nil, nil
	}, dispatcher.Buffered(500), dispatcher.Blocking())
}

func (a *app) checkServerStatus() {
	if err := a.apiClient.Healthcheck(); err != nil {
		a.logger.Info("Companion web service is offline")
		return
	}
	a.logger.Info("Companion web service is online")
}

// Close ends any active recording and releases every resource.
func (a *app) Close() error {
	var errs []error
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.otel != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.slogManager.Flush(ctx); err != nil {
			a.logger.Warn("Failed to flush logs", "error", err)
		}
		if err := a.otel.Shutdown(ctx); err != nil {
			a.logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	if c, ok := a.graylog.(io.Closer); ok {
		_ = c.Close()
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
	return errors.Join(errs...)
}
