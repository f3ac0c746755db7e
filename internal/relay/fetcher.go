package relay

import (
	"context"
	"io"
	"net/http"

	"github.com/n0needt0/goodies/results-relay/internal/domain"
	"github.com/n0needt0/goodies/results-relay/internal/httpstatus"
	"github.com/n0needt0/goodies/results-relay/internal/iofxml"
)

// Fetcher pulls the result list from the local source endpoint.
type Fetcher struct {
	client    *http.Client
	url       string
	userAgent string
	report    *reporter
}

func newFetcher(client *http.Client, cfg domain.RelayConfig, report *reporter) *Fetcher {
	return &Fetcher{
		client:    client,
		url:       cfg.SourceURL,
		userAgent: cfg.UserAgent,
		report:    report,
	}
}

// Fetch performs one GET and classifies the answer. The outcome has been
// logged and recorded by the time Fetch returns.
func (f *Fetcher) Fetch(ctx context.Context) domain.Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return f.unreachable(err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return f.unreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, resp.Body)
		message := httpstatus.Meaning(resp.StatusCode)
		return f.report.outcome(domain.Outcome{
			Kind:    domain.KindHTTPError,
			Code:    resp.StatusCode,
			Message: message,
			Err:     domain.HTTPError{Code: resp.StatusCode},
		})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return f.unreachable(err)
	}

	if len(body) == 0 {
		return f.report.outcome(domain.Outcome{Kind: domain.KindEmptyBody, Message: msgEmptyBody, Err: domain.ErrEmptyBody})
	}

	text := string(body)
	if !iofxml.HasResults(text) {
		return f.report.outcome(domain.Outcome{Kind: domain.KindNoResultsYet, Message: msgNoResults})
	}

	return f.report.outcome(domain.Outcome{Kind: domain.KindResults, Message: msgResultsFound, Body: text})
}

func (f *Fetcher) unreachable(err error) domain.Outcome {
	message := errorMessage(err)
	return f.report.outcome(domain.Outcome{Kind: domain.KindUnreachable, Message: message, Err: domain.Unreachable{Err: err}})
}
