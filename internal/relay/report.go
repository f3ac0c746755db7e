package relay

import (
	"github.com/n0needt0/go-goodies/log"

	"github.com/n0needt0/goodies/results-relay/internal/domain"
	"github.com/n0needt0/goodies/results-relay/internal/ringlog"
	"github.com/n0needt0/goodies/results-relay/internal/status"
)

// Application log messages.
const (
	msgFetching        = "Requesting results from source."
	msgResultsFound    = "Results retrieved from source."
	msgNoResults       = "No results available at source yet."
	msgEmptyBody       = "Empty response."
	msgIOError         = "I/O error."
	msgUploading       = "Uploading results to sink."
	msgUploaded        = "Results uploaded."
	msgTransformFailed = "Could not insert person ids."
	msgArchiveFailed   = "Could not archive results."
	msgCycleFailed     = "Relay cycle failed."
)

// reporter fans every outcome out to the application log, the status
// tracker and the process log.
type reporter struct {
	appLog  *ringlog.Log
	tracker *status.Tracker
}

func (r *reporter) note(message string) {
	r.appLog.Add(message)
	log.Debugf("relay: %s", message)
}

func (r *reporter) success(message string) {
	r.tracker.RecordSuccess(message)
	r.note(message)
}

func (r *reporter) failure(message string) {
	r.tracker.RecordFailure(message)
	r.note(message)
}

// outcome records o.Message as a success or failure according to o.Kind
// and hands o back.
func (r *reporter) outcome(o domain.Outcome) domain.Outcome {
	if o.Kind.Succeeded() {
		r.success(o.Message)
	} else {
		r.failure(o.Message)
	}
	return o
}

// failureWithDetail records message as the status but logs detail as well.
func (r *reporter) failureWithDetail(message string, detail error) {
	r.tracker.RecordFailure(message)
	if detail != nil && detail.Error() != "" {
		message += " " + detail.Error()
	}
	r.note(message)
}

func errorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return msgIOError
	}
	return err.Error()
}
