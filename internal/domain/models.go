package domain

import "time"

// Kind classifies the result of one step of a relay cycle
type Kind int

const (
	KindUnreachable Kind = iota
	KindHTTPError
	KindEmptyBody
	KindNoResultsYet
	KindResults
	KindTransformError
	KindUploaded
)

var kindNames = map[Kind]string{
	KindUnreachable:    "unreachable",
	KindHTTPError:      "http_error",
	KindEmptyBody:      "empty_body",
	KindNoResultsYet:   "no_results_yet",
	KindResults:        "results",
	KindTransformError: "transform_error",
	KindUploaded:       "uploaded",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Succeeded reports whether the kind counts as a success for status tracking.
// KindResults is an intermediate state and counts as success.
func (k Kind) Succeeded() bool {
	switch k {
	case KindNoResultsYet, KindResults, KindUploaded:
		return true
	}
	return false
}

// Outcome is what the fetcher and the uploader hand back to the scheduler
type Outcome struct {
	Kind    Kind
	Code    int    // http status, set for KindHTTPError
	Message string // human readable text, already recorded in status/log
	Body    string // payload, set for KindResults only
	Err     error
}

// StatusSnapshot is the single most recent success/failure
type StatusSnapshot struct {
	Succeeded bool
	Message   string
	Time      time.Time
}

// RelayConfig is the immutable input of one relay session.
// A negative timeout means "use the transport default", zero means no timeout.
type RelayConfig struct {
	SourceURL      string
	SinkURL        string
	EventID        string
	Authorization  string
	UserAgent      string
	PollInterval   time.Duration
	StartupDelay   time.Duration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	CallTimeout    time.Duration
	LogCapacity    int
}
