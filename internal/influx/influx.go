// Package influx writes combat log entries and state counters to InfluxDB as
// time series points. When the server is unreachable, points are appended as
// line protocol to a gzip backup file instead.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"

	"github.com/dmhelper/extension/pkg/core"
)

const (
	// MeasurementLog holds one point per combat log entry.
	MeasurementLog = "combat_log"
	// MeasurementState holds one point per snapshot.
	MeasurementState = "combat_state"

	retentionSeconds = 60 * 60 * 24 * 90
)

// Config holds the InfluxDB connection settings.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
	// BackupPath receives gzip line protocol when the server cannot be reached.
	BackupPath string
}

// Backend implements storage.Backend on top of the InfluxDB write API.
type Backend struct {
	cfg    Config
	logger zerolog.Logger

	client influxdb2.Client
	writer influxdb2_api.WriteAPI

	mu           sync.Mutex
	backupFile   *os.File
	backupWriter *gzip.Writer
	session      string
	errDone      chan struct{}
}

// New creates an InfluxDB backend. Nothing connects until Init.
func New(cfg Config, logger zerolog.Logger) *Backend {
	return &Backend{cfg: cfg, logger: logger}
}

// Init pings the server and creates the write API, or opens the backup file
// when the server is unavailable.
func (b *Backend) Init() error {
	b.client = influxdb2.NewClientWithOptions(
		b.cfg.URL,
		b.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	running, err := b.client.Ping(ctx)
	if err != nil || !running {
		b.logger.Warn().Err(err).Str("backupPath", b.cfg.BackupPath).
			Msg("InfluxDB unreachable, writing points to backup file")
		b.client.Close()
		b.client = nil
		return b.openBackup()
	}

	if err := b.ensureBucket(ctx); err != nil {
		// A write-only token cannot manage buckets; writing may still work.
		b.logger.Warn().Err(err).Str("bucket", b.cfg.Bucket).Msg("Could not verify InfluxDB bucket")
	}

	b.writer = b.client.WriteAPI(b.cfg.Org, b.cfg.Bucket)
	b.errDone = make(chan struct{})
	go func(errorsCh <-chan error) {
		defer close(b.errDone)
		for writeErr := range errorsCh {
			b.logger.Error().Err(writeErr).Str("bucket", b.cfg.Bucket).Msg("Error sending data to InfluxDB")
		}
	}(b.writer.Errors())

	b.logger.Info().Str("url", b.cfg.URL).Str("bucket", b.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (b *Backend) openBackup() error {
	if b.cfg.BackupPath == "" {
		return errors.New("influxdb unreachable and no backup path configured")
	}
	file, err := os.OpenFile(b.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	b.backupFile = file
	b.backupWriter = gzip.NewWriter(file)
	return nil
}

// ensureBucket creates the organization and bucket when missing.
func (b *Backend) ensureBucket(ctx context.Context) error {
	orgs := b.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, b.cfg.Org)
	if err != nil {
		b.logger.Info().Str("org", b.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, b.cfg.Org)
		if err != nil {
			return fmt.Errorf("create organization %q: %w", b.cfg.Org, err)
		}
	}

	buckets := b.client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, b.cfg.Bucket); err == nil {
		return nil
	}
	b.logger.Info().Str("bucket", b.cfg.Bucket).Msg("Bucket not found, creating")
	rule := domain.RetentionRuleTypeExpire
	_, err = buckets.CreateBucketWithName(ctx, org, b.cfg.Bucket, domain.RetentionRule{
		Type:         &rule,
		EverySeconds: retentionSeconds,
	})
	if err != nil {
		return fmt.Errorf("create bucket %q: %w", b.cfg.Bucket, err)
	}
	return nil
}

// Close flushes pending points and releases the client or backup file.
func (b *Backend) Close() error {
	if b.writer != nil {
		b.writer.Flush()
	}
	if b.client != nil {
		// Close also closes the write API error channel.
		b.client.Close()
		if b.errDone != nil {
			<-b.errDone
		}
		b.client = nil
		b.writer = nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.backupWriter == nil {
		return nil
	}
	err := errors.Join(b.backupWriter.Close(), b.backupFile.Close())
	b.backupWriter = nil
	b.backupFile = nil
	return err
}

// StartSession tags subsequent points with the session name.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = s.Name
	return nil
}

// EndSession flushes the write API.
func (b *Backend) EndSession() error {
	if b.writer != nil {
		b.writer.Flush()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session = ""
	if b.backupWriter != nil {
		return b.backupWriter.Flush()
	}
	return nil
}

// RecordLogEntry writes one combat_log point.
func (b *Backend) RecordLogEntry(e *core.CombatLogEntry) error {
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()
	return b.write(EntryPoint(session, e))
}

// RecordSnapshot writes one combat_state point with aggregate counters.
func (b *Backend) RecordSnapshot(s *core.Snapshot) error {
	b.mu.Lock()
	session := b.session
	b.mu.Unlock()
	return b.write(StatePoint(session, s))
}

func (b *Backend) write(p *influxdb2_write.Point) error {
	if b.writer != nil {
		b.writer.WritePoint(p)
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.backupWriter == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	line := strings.TrimRight(influxdb2_write.PointToLineProtocol(p, time.Nanosecond), "\n")
	if _, err := b.backupWriter.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// EntryPoint converts a log entry into a combat_log point.
func EntryPoint(session string, e *core.CombatLogEntry) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement(MeasurementLog).
		AddTag("kind", string(e.Kind)).
		AddField("roll", e.Roll).
		AddField("dc", e.DC).
		AddField("success", e.Success).
		AddField("damage", e.Damage)
	if !e.Timestamp.IsZero() {
		p.SetTime(e.Timestamp)
	}
	if session != "" {
		p.AddTag("session", session)
	}
	if e.Actor != "" {
		p.AddTag("actor", e.Actor)
	}
	if e.Target != "" {
		p.AddTag("target", e.Target)
	}
	return p
}

// StatePoint converts a snapshot into a combat_state point.
func StatePoint(session string, s *core.Snapshot) *influxdb2_write.Point {
	var engaged, alive, partyHP, down int
	for _, a := range s.Adversaries {
		if a.Alive() {
			alive++
		}
		if a.Active() {
			engaged++
		}
	}
	for _, c := range s.Combatants {
		partyHP += c.State.CurrentHP
		if c.State.IsDown() {
			down++
		}
	}

	p := influxdb2_write.NewPointWithMeasurement(MeasurementState).
		AddTag("phase", s.Phase.String()).
		AddField("combatants", len(s.Combatants)).
		AddField("combatants_down", down).
		AddField("party_hp", partyHP).
		AddField("adversaries", len(s.Adversaries)).
		AddField("adversaries_alive", alive).
		AddField("adversaries_engaged", engaged).
		AddField("log_size", s.LogSize)
	if !s.Taken.IsZero() {
		p.SetTime(s.Taken)
	}
	if session != "" {
		p.AddTag("session", session)
	}
	return p
}
