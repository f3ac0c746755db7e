// Package relay polls the local results source, rewrites the result list
// and uploads it to the sink on a fixed interval.
package relay

import (
	"strings"
	"sync"

	"github.com/n0needt0/go-goodies/log"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/metric"

	"github.com/n0needt0/goodies/results-relay/internal/domain"
	"github.com/n0needt0/goodies/results-relay/internal/iofxml"
	"github.com/n0needt0/goodies/results-relay/internal/ringlog"
	"github.com/n0needt0/goodies/results-relay/internal/status"
)

var (
	ErrAlreadyRunning = errors.New("relay is already running")
	ErrInvalidConfig  = errors.New("invalid relay config")
)

// Manager owns the relay session: its scheduler, its two logs and its
// status tracker. A new session is created on every StartRelay; the logs
// and status of the last session stay readable after StopRelay.
type Manager struct {
	mu        sync.Mutex
	scheduler *Scheduler
	appLog    *ringlog.Log
	wireLog   *ringlog.Log
	tracker   *status.Tracker
	observer  status.Observer

	archiver  Archiver
	metrics   *Metrics
	afterFunc AfterFunc
}

type Option func(*Manager)

// WithArchiver stores a copy of every transformed payload.
func WithArchiver(a Archiver) Option {
	return func(m *Manager) { m.archiver = a }
}

// WithMeter records relay metrics on meter.
func WithMeter(meter metric.Meter) Option {
	return func(m *Manager) { m.metrics = NewMetrics(meter) }
}

func withAfterFunc(f AfterFunc) Option {
	return func(m *Manager) { m.afterFunc = f }
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		appLog:    ringlog.New(ringlog.DefaultCapacity),
		wireLog:   ringlog.New(ringlog.DefaultCapacity),
		tracker:   status.NewTracker(),
		afterFunc: realAfterFunc,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = NewMetrics(nil)
	}
	return m
}

func validate(cfg domain.RelayConfig) error {
	var problems []string
	if cfg.SourceURL == "" {
		problems = append(problems, "source url required")
	}
	if cfg.SinkURL == "" {
		problems = append(problems, "sink url required")
	}
	if cfg.PollInterval <= 0 {
		problems = append(problems, "poll interval must be > 0")
	}
	if cfg.StartupDelay < 0 {
		problems = append(problems, "startup delay must be >= 0")
	}
	if len(problems) > 0 {
		return errors.Wrap(ErrInvalidConfig, strings.Join(problems, ", "))
	}
	return nil
}

// StartRelay begins a new relay session with cfg.
func (m *Manager) StartRelay(cfg domain.RelayConfig) error {
	if err := validate(cfg); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.scheduler != nil && m.scheduler.State() == StateRunning {
		return ErrAlreadyRunning
	}

	capacity := cfg.LogCapacity
	if capacity <= 0 {
		capacity = ringlog.DefaultCapacity
	}
	appLog := ringlog.New(capacity)
	wireLog := ringlog.New(capacity)
	tracker := status.NewTracker()
	tracker.Bind(m.observer)

	report := &reporter{appLog: appLog, tracker: tracker}
	client := NewHTTPClient(cfg, wireLog)

	s := &Scheduler{
		startupDelay: cfg.StartupDelay,
		interval:     cfg.PollInterval,
		eventID:      cfg.EventID,
		fetcher:      newFetcher(client, cfg, report),
		transform:    iofxml.Transform,
		uploader:     newUploader(client, cfg, report),
		archiver:     m.archiver,
		report:       report,
		metrics:      m.metrics,
		afterFunc:    m.afterFunc,
		done:         make(chan struct{}),
	}
	if err := s.Start(); err != nil {
		return err
	}

	m.scheduler = s
	m.appLog = appLog
	m.wireLog = wireLog
	m.tracker = tracker

	log.Infof("relay started: %s -> %s (event %s)", cfg.SourceURL, cfg.SinkURL, cfg.EventID)
	return nil
}

// StopRelay stops the current session. It returns a channel closed once
// the in-flight cycle, if any, has finished.
func (m *Manager) StopRelay() <-chan struct{} {
	m.mu.Lock()
	s := m.scheduler
	m.mu.Unlock()

	if s == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	s.Stop()
	return s.Done()
}

// Running reports whether a session is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scheduler != nil && m.scheduler.State() == StateRunning
}

// Bind attaches the status observer to the current and future sessions.
func (m *Manager) Bind(observer status.Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = observer
	m.tracker.Bind(observer)
}

func (m *Manager) Unbind() {
	m.Bind(nil)
}

func (m *Manager) current() (*ringlog.Log, *ringlog.Log, *status.Tracker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appLog, m.wireLog, m.tracker
}

// LatestStatus returns the last status prefixed with "S" or "F", or "".
func (m *Manager) LatestStatus() string {
	_, _, tracker := m.current()
	return tracker.Latest()
}

// Snapshot returns the last status and whether one exists.
func (m *Manager) Snapshot() (domain.StatusSnapshot, bool) {
	_, _, tracker := m.current()
	return tracker.Snapshot()
}

// ApplicationLog renders the application log newest first.
func (m *Manager) ApplicationLog() string {
	appLog, _, _ := m.current()
	return appLog.String()
}

// WireLog renders the HTTP trace newest first.
func (m *Manager) WireLog() string {
	_, wireLog, _ := m.current()
	return wireLog.String()
}

func (m *Manager) ApplicationLines() []string {
	appLog, _, _ := m.current()
	return appLog.Lines()
}

func (m *Manager) WireLines() []string {
	_, wireLog, _ := m.current()
	return wireLog.Lines()
}
