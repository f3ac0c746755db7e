package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"github.com/n0needt0/goodies/results-relay/internal/domain"
	"github.com/n0needt0/goodies/results-relay/internal/httpstatus"
)

// Multipart layout expected by the sink.
const (
	FieldEventID   = "eventId"
	FieldFile      = "file"
	UploadFileName = "result-list-iof-3.0.xml"
	XMLContentType = "text/xml; charset=utf-8"
)

// Uploader posts transformed result lists to the sink.
type Uploader struct {
	client        *http.Client
	url           string
	eventID       string
	authorization string
	userAgent     string
	report        *reporter
}

func newUploader(client *http.Client, cfg domain.RelayConfig, report *reporter) *Uploader {
	return &Uploader{
		client:        client,
		url:           cfg.SinkURL,
		eventID:       cfg.EventID,
		authorization: cfg.Authorization,
		userAgent:     cfg.UserAgent,
		report:        report,
	}
}

// Upload sends payload as a multipart form. The outcome has been logged and
// recorded by the time Upload returns.
func (u *Uploader) Upload(ctx context.Context, payload string) domain.Outcome {
	body, contentType, err := buildForm(u.eventID, payload)
	if err != nil {
		return u.unreachable(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, body)
	if err != nil {
		return u.unreachable(err)
	}
	req.Header.Set("User-Agent", u.userAgent)
	req.Header.Set("Authorization", u.authorization)
	req.Header.Set("Content-Type", contentType)

	resp, err := u.client.Do(req)
	if err != nil {
		return u.unreachable(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		message := httpstatus.Meaning(resp.StatusCode)
		return u.report.outcome(domain.Outcome{
			Kind:    domain.KindHTTPError,
			Code:    resp.StatusCode,
			Message: message,
			Err:     domain.HTTPError{Code: resp.StatusCode},
		})
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return u.unreachable(err)
	}
	if len(respBody) == 0 {
		return u.report.outcome(domain.Outcome{Kind: domain.KindEmptyBody, Message: msgEmptyBody, Err: domain.ErrEmptyBody})
	}

	return u.report.outcome(domain.Outcome{Kind: domain.KindUploaded, Message: msgUploaded})
}

func (u *Uploader) unreachable(err error) domain.Outcome {
	message := errorMessage(err)
	return u.report.outcome(domain.Outcome{Kind: domain.KindUnreachable, Message: message, Err: domain.Unreachable{Err: err}})
}

// buildForm encodes the eventId field and the file part.
func buildForm(eventID, payload string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if err := w.WriteField(FieldEventID, eventID); err != nil {
		return nil, "", fmt.Errorf("failed to write %s field: %w", FieldEventID, err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FieldFile, UploadFileName))
	header.Set("Content-Type", XMLContentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.WriteString(part, payload); err != nil {
		return nil, "", fmt.Errorf("failed to write file part: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close multipart form: %w", err)
	}
	return body, w.FormDataContentType(), nil
}
