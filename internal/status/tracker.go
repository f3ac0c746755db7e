// Package status keeps the single most recent outcome of the relay.
package status

import (
	"sync"
	"time"

	"github.com/n0needt0/goodies/results-relay/internal/domain"
)

// Prefixes returned by Latest so callers can branch on the first byte.
const (
	PrefixSuccess = "S"
	PrefixFailure = "F"
)

const timeFormat = "15:04:05"

// Observer is notified synchronously with the timestamped message of every
// recorded status. Implementations must not block for long.
type Observer interface {
	OnSuccess(status string)
	OnFailure(status string)
}

// Tracker holds one domain.StatusSnapshot and at most one observer.
type Tracker struct {
	mu       sync.Mutex
	latest   domain.StatusSnapshot
	set      bool
	observer Observer
	now      func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

// Bind attaches observer, replacing any previous one. Nil detaches.
func (t *Tracker) Bind(observer Observer) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observer = observer
}

// Unbind detaches the current observer.
func (t *Tracker) Unbind() {
	t.Bind(nil)
}

func (t *Tracker) RecordSuccess(message string) {
	t.record(true, message)
}

func (t *Tracker) RecordFailure(message string) {
	t.record(false, message)
}

func (t *Tracker) record(succeeded bool, message string) {
	now := t.now()
	stamped := now.Format(timeFormat) + " " + message

	t.mu.Lock()
	t.latest = domain.StatusSnapshot{Succeeded: succeeded, Message: stamped, Time: now}
	t.set = true
	observer := t.observer
	t.mu.Unlock()

	if observer == nil {
		return
	}
	if succeeded {
		observer.OnSuccess(stamped)
	} else {
		observer.OnFailure(stamped)
	}
}

// Latest returns the stored message prefixed with PrefixSuccess or
// PrefixFailure, or "" if nothing was recorded yet.
func (t *Tracker) Latest() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.set {
		return ""
	}
	if t.latest.Succeeded {
		return PrefixSuccess + t.latest.Message
	}
	return PrefixFailure + t.latest.Message
}

// Snapshot returns the latest snapshot and whether one was recorded.
func (t *Tracker) Snapshot() (domain.StatusSnapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.latest, t.set
}
