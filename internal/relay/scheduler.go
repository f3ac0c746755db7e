package relay

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/n0needt0/go-goodies/log"
	"github.com/pkg/errors"

	"github.com/n0needt0/goodies/results-relay/internal/domain"
)

// DefaultStartupDelay gives the source time to finish its own startup.
const DefaultStartupDelay = 3 * time.Second

// State of a Scheduler. Stopped is terminal.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

var ErrNotIdle = errors.New("scheduler can only be started once")

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// AfterFunc calls f on its own goroutine once d has elapsed.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

type resultFetcher interface {
	Fetch(ctx context.Context) domain.Outcome
}

type resultUploader interface {
	Upload(ctx context.Context, payload string) domain.Outcome
}

// Archiver keeps a copy of every transformed payload. Failures never
// affect the cycle outcome.
type Archiver interface {
	Archive(ctx context.Context, eventID string, payload []byte) error
}

// Scheduler runs fetch, transform and upload cycles one after another.
// The next cycle is scheduled only once the current one has finished, so
// the interval is measured from cycle completion and cycles never overlap.
type Scheduler struct {
	mu    sync.Mutex
	state State
	timer Timer

	startupDelay time.Duration
	interval     time.Duration
	eventID      string

	fetcher   resultFetcher
	transform func(string) (string, error)
	uploader  resultUploader
	archiver  Archiver
	report    *reporter
	metrics   *Metrics
	afterFunc AfterFunc

	// done is closed when a stopped scheduler has no cycle in flight
	done     chan struct{}
	inFlight bool
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start schedules the first cycle after the startup delay.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return ErrNotIdle
	}
	s.state = StateRunning
	s.timer = s.afterFunc(s.startupDelay, s.fire)

	log.Infof("relay scheduler started: first cycle in %s, then every %s", s.startupDelay, s.interval)
	return nil
}

// Stop cancels the pending cycle. A cycle already running is allowed to
// finish but will not schedule another one.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped {
		return
	}
	s.state = StateStopped
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.inFlight {
		close(s.done)
	}

	log.Info("relay scheduler stopped")
}

// Done is closed once the scheduler is stopped and no cycle is running.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.mu.Unlock()

	s.runCycle(context.Background())

	s.mu.Lock()
	defer s.mu.Unlock()

	s.inFlight = false
	if s.state != StateRunning {
		close(s.done)
		return
	}
	s.timer = s.afterFunc(s.interval, s.fire)
}

// runCycle never panics and always returns; every outcome has been
// reported by the time it does.
func (s *Scheduler) runCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Recovered from panic in relay cycle: %v", r)
			s.report.failureWithDetail(msgCycleFailed, fmt.Errorf("%v", r))
		}
	}()

	s.metrics.cycle()
	s.report.note(msgFetching)

	fetched := s.fetcher.Fetch(ctx)
	s.metrics.outcome(fetched.Kind)
	if fetched.Kind != domain.KindResults {
		return
	}

	s.report.note(msgUploading)
	payload, err := s.transform(fetched.Body)
	if err != nil {
		s.metrics.outcome(domain.KindTransformError)
		s.report.failureWithDetail(msgTransformFailed, err)
		return
	}

	if s.archiver != nil {
		if err := s.archiver.Archive(ctx, s.eventID, []byte(payload)); err != nil {
			log.Warnf("failed to archive results: %v", err)
			s.report.note(msgArchiveFailed + " " + err.Error())
		}
	}

	uploaded := s.uploader.Upload(ctx, payload)
	s.metrics.outcome(uploaded.Kind)
}
