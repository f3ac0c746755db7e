package relay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/n0needt0/goodies/results-relay/internal/domain"
	"github.com/n0needt0/goodies/results-relay/internal/ringlog"
	"github.com/n0needt0/goodies/results-relay/internal/status"
)

const sampleResults = `<?xml version="1.0" encoding="UTF-8"?>
<ResultList iofVersion="3.0">
  <ClassResult>
    <PersonResult>
      <Person><Name><Family>Berg</Family><Given>Anna</Given></Name></Person>
    </PersonResult>
  </ClassResult>
</ResultList>`

const sampleNoResults = `<?xml version="1.0" encoding="UTF-8"?>
<ResultList iofVersion="3.0"><Event><Name>Sprint</Name></Event></ResultList>`

func newTestReporter() *reporter {
	return &reporter{appLog: ringlog.New(50), tracker: status.NewTracker()}
}

// fakeClock hands out timers that only fire when the test says so and
// records the virtual time at which each one was requested.
type fakeClock struct {
	mu        sync.Mutex
	now       time.Duration
	timers    []*fakeTimer
	requested []scheduledCall
}

type scheduledCall struct {
	at    time.Duration
	delay time.Duration
}

type fakeTimer struct {
	mu      sync.Mutex
	f       func()
	delay   time.Duration
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *fakeClock) afterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{f: f, delay: d}
	c.timers = append(c.timers, t)
	c.requested = append(c.requested, scheduledCall{at: c.now, delay: d})
	return t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
}

func (c *fakeClock) pending() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeTimer
	for _, t := range c.timers {
		t.mu.Lock()
		if !t.stopped && !t.fired {
			out = append(out, t)
		}
		t.mu.Unlock()
	}
	return out
}

// fireNext moves the clock to the due time of the single pending timer and runs it.
func (c *fakeClock) fireNext(t *testing.T) {
	t.Helper()
	p := c.pending()
	require.Len(t, p, 1, "exactly one pending timer expected")
	timer := p[0]

	timer.mu.Lock()
	timer.fired = true
	timer.mu.Unlock()

	c.advance(timer.delay)
	timer.f()
}

func (c *fakeClock) calls() []scheduledCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]scheduledCall(nil), c.requested...)
}

type fakeFetcher struct {
	mu      sync.Mutex
	outcome domain.Outcome
	calls   int
	onFetch func()
	report  *reporter
}

func (f *fakeFetcher) Fetch(_ context.Context) domain.Outcome {
	f.mu.Lock()
	f.calls++
	hook := f.onFetch
	out := f.outcome
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if f.report != nil {
		return f.report.outcome(out)
	}
	return out
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeUploader struct {
	mu       sync.Mutex
	payloads []string
	outcome  domain.Outcome
	onUpload func()
}

func (u *fakeUploader) Upload(_ context.Context, payload string) domain.Outcome {
	u.mu.Lock()
	u.payloads = append(u.payloads, payload)
	hook := u.onUpload
	out := u.outcome
	u.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out
}

func (u *fakeUploader) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.payloads)
}
