package services

import (
	"context"
	"sync"
	"time"

	"github.com/n0needt0/go-goodies/log"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/n0needt0/goodies/results-relay/internal/alerts"
	"github.com/n0needt0/goodies/results-relay/internal/archive"
	"github.com/n0needt0/goodies/results-relay/internal/config"
	"github.com/n0needt0/goodies/results-relay/internal/relay"
)

const (
	METER = "results-relay"
)

var ErrStopTimeout = errors.New("relay cycle still running after stop timeout")

// Services holds the relay and everything wired around it.
type Services struct {
	Config    *config.Config
	OtelMeter metric.Meter
	Relay     *relay.Manager
	Alerts    *alerts.Client

	startedAt time.Time

	mu              sync.Mutex
	sourceReachable bool
	lastProbe       time.Time
}

func NewServices(conf *config.Config) (*Services, error) {
	meter := otel.Meter(METER)
	opts := []relay.Option{relay.WithMeter(meter)}

	if conf.Archive.Enabled {
		archiver, err := archive.NewS3Archiver(conf.Archive)
		if err != nil {
			return nil, errors.Wrap(err, "failed to init archive")
		}
		opts = append(opts, relay.WithArchiver(archiver))
	}

	alertClient := alerts.NewClient(alerts.ClientConfig{
		Enabled:  conf.Alerts.Enabled,
		Endpoint: conf.Alerts.Endpoint,
		Timeout:  conf.GetAlertTimeout(),
		App: alerts.AppConfig{
			Name:    conf.App.Name,
			Version: conf.App.Version,
		},
		EventID: conf.Sink.EventID,
		Dev:     conf.Dev,
	})

	manager := relay.NewManager(opts...)
	manager.Bind(alertClient)

	return &Services{
		Config:    conf,
		OtelMeter: meter,
		Relay:     manager,
		Alerts:    alertClient,
		startedAt: time.Now(),
	}, nil
}

// StartRelay starts a session from the current config.
func (s *Services) StartRelay() error {
	rc, err := s.Config.RelayConfig()
	if err != nil {
		return errors.Wrap(err, "incomplete sink credentials")
	}
	return s.Relay.StartRelay(rc)
}

// StopRelay stops the session and waits up to timeout for the running
// cycle to finish.
func (s *Services) StopRelay(timeout time.Duration) error {
	done := s.Relay.StopRelay()
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrStopTimeout
	}
}

// ProbeSource checks the source base URL and logs reachability changes.
func (s *Services) ProbeSource(ctx context.Context) bool {
	reachable := relay.Probe(ctx, nil, s.Config.PingURL(), s.Config.UserAgent())

	s.mu.Lock()
	changed := s.lastProbe.IsZero() || reachable != s.sourceReachable
	s.sourceReachable = reachable
	s.lastProbe = time.Now()
	s.mu.Unlock()

	if changed {
		if reachable {
			log.Infof("source %s is reachable", s.Config.PingURL())
		} else {
			log.Warnf("source %s is not reachable", s.Config.PingURL())
		}
	}
	return reachable
}

// SourceReachable returns the result of the last probe and when it ran.
func (s *Services) SourceReachable() (bool, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceReachable, s.lastProbe
}

// IsHealthy is false when the last probe failed while no relay runs, or
// when the running relay's latest cycle failed.
func (s *Services) IsHealthy() bool {
	if s.Relay.Running() {
		snap, ok := s.Relay.Snapshot()
		return !ok || snap.Succeeded
	}
	reachable, at := s.SourceReachable()
	return at.IsZero() || reachable
}

func (s *Services) Uptime() time.Duration {
	return time.Since(s.startedAt)
}
