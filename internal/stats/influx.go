package stats

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/airshower/varbeam/internal/config"
	"github.com/airshower/varbeam/internal/coordinator"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
)

// Influx writes one point per event to InfluxDB, or gzip-compressed line
// protocol to a backup file when the server is unreachable.
type Influx struct {
	cfg    config.InfluxConfig
	log    zerolog.Logger
	runID  string
	client influxdb2.Client
	writer influxdb2_api.WriteAPI

	mu         sync.Mutex
	backupFile *os.File
	backup     *gzip.Writer
	valid      bool
}

var _ Sink = (*Influx)(nil)

// NewInflux creates an unconnected sink; call Connect before use.
func NewInflux(cfg config.InfluxConfig, runID string, log zerolog.Logger) *Influx {
	return &Influx{cfg: cfg, runID: runID, log: log}
}

// Valid reports whether points go to the server rather than the backup file.
func (m *Influx) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

// Connect establishes a connection to InfluxDB and falls back to the backup
// file when the server does not answer.
func (m *Influx) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return errors.New("influx.enabled is false")
	}

	m.client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.client.Ping(ctx)
	if err != nil || !running {
		m.log.Info().Str("backupPath", m.cfg.Backup).
			Msg("Failed to initialize InfluxDB client, writing to backup file")
		return m.openBackup()
	}

	if err := m.setupOrganizationAndBucket(ctx); err != nil {
		return err
	}

	m.writer = m.client.WriteAPI(m.cfg.Org, m.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			m.log.Error().Err(writeErr).Str("bucket", m.cfg.Bucket).
				Msg("Error sending data to InfluxDB")
		}
	}(m.writer.Errors())

	m.mu.Lock()
	m.valid = true
	m.mu.Unlock()
	m.log.Info().Str("bucket", m.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (m *Influx) openBackup() error {
	if m.cfg.Backup == "" {
		return errors.New("influx: server unreachable and no backup file configured")
	}
	file, err := os.OpenFile(m.cfg.Backup, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.mu.Lock()
	m.backupFile = file
	m.backup = gzip.NewWriter(file)
	m.mu.Unlock()
	return nil
}

func (m *Influx) setupOrganizationAndBucket(ctx context.Context) error {
	orgs := m.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.log.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			m.log.Error().Err(err).Str("org", m.cfg.Org).Msg("Error creating organization")
			return err
		}
	}

	if _, err := m.client.BucketsAPI().FindBucketByName(ctx, m.cfg.Bucket); err != nil {
		m.log.Info().Str("bucket", m.cfg.Bucket).Msg("Bucket not found, creating")
		rule := domain.RetentionRuleTypeExpire
		_, err = m.client.BucketsAPI().CreateBucketWithName(ctx, org, m.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * 90, // 90 days
		})
		if err != nil {
			m.log.Error().Err(err).Str("bucket", m.cfg.Bucket).Msg("Error creating bucket")
			return err
		}
	}
	return nil
}

// EventPoint converts a completed event into a point.
func EventPoint(runID string, out *coordinator.Outcome) *influxdb2_write.Point {
	res := out.Correction
	p := influxdb2_write.NewPointWithMeasurement("event").
		AddTag("run", runID).
		AddTag("projectile", strconv.Itoa(out.Config.Projectile.ID)).
		AddTag("target", strconv.Itoa(out.Config.Target.ID)).
		AddTag("class", Class(out)).
		AddField("index", out.Index).
		AddField("eCM", out.Config.Energy).
		AddField("pLab", out.Config.LabMomentum).
		AddField("pre", res.PreCorrectionMomentumFraction).
		AddField("post", res.PostCorrectionMomentumFraction).
		AddField("durationMs", float64(out.Duration)/float64(time.Millisecond)).
		SetTime(time.Now())
	if res.HasRemnant {
		p.AddField("remnantA", res.RemnantAtomicNumber)
	}
	if res.Corrected() && out.Malformed == nil {
		p.AddField("hadronicMass", res.HadronicMass)
	}
	return p.SortTags().SortFields()
}

// SkippedPoint converts a rejected or failed event into a point.
func SkippedPoint(runID string, serr *coordinator.SwitchError) *influxdb2_write.Point {
	p := influxdb2_write.NewPointWithMeasurement("skipped").
		AddTag("run", runID).
		AddTag("state", serr.State.String()).
		AddTag("projectile", strconv.Itoa(serr.Request.Projectile)).
		AddTag("target", strconv.Itoa(serr.Request.Target)).
		AddField("index", serr.Index).
		AddField("energy", serr.Request.Energy).
		SetTime(time.Now())
	if serr.Err != nil {
		p.AddField("error", serr.Err.Error())
	}
	return p.SortTags().SortFields()
}

// Completed writes the event point.
func (m *Influx) Completed(out *coordinator.Outcome) error {
	return m.writePoint(EventPoint(m.runID, out))
}

// Skipped writes the skipped point.
func (m *Influx) Skipped(serr *coordinator.SwitchError) error {
	return m.writePoint(SkippedPoint(m.runID, serr))
}

func (m *Influx) writePoint(point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		m.writer.WritePoint(point)
		return nil
	}
	if m.backup == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	// PointToLineProtocol already terminates the line
	lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if _, err := m.backup.Write([]byte(lineProtocol)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Close flushes pending points and closes the client or backup file.
func (m *Influx) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.writer != nil {
		m.writer.Flush()
	}
	if m.client != nil {
		m.client.Close()
	}
	var errs []error
	if m.backup != nil {
		errs = append(errs, m.backup.Close())
		m.backup = nil
	}
	if m.backupFile != nil {
		errs = append(errs, m.backupFile.Close())
		m.backupFile = nil
	}
	m.valid = false
	return errors.Join(errs...)
}
