package relay

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0needt0/goodies/results-relay/internal/domain"
)

type capturedUpload struct {
	authorization string
	userAgent     string
	mediaType     string
	eventID       string
	fileName      string
	fileType      string
	file          string
}

type sinkServer struct {
	*httptest.Server
	mu       sync.Mutex
	uploads  []capturedUpload
	status   int
	response string
}

func newSinkServer(t *testing.T, status int, response string) *sinkServer {
	t.Helper()
	s := &sinkServer{status: status, response: response}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var c capturedUpload
		c.authorization = r.Header.Get("Authorization")
		c.userAgent = r.Header.Get("User-Agent")
		c.mediaType, _, _ = mime.ParseMediaType(r.Header.Get("Content-Type"))

		mr, err := r.MultipartReader()
		if err == nil {
			for {
				part, err := mr.NextPart()
				if err != nil {
					break
				}
				data, _ := io.ReadAll(part)
				switch part.FormName() {
				case FieldEventID:
					c.eventID = string(data)
				case FieldFile:
					c.fileName = part.FileName()
					c.fileType = part.Header.Get("Content-Type")
					c.file = string(data)
				}
			}
		}

		s.mu.Lock()
		s.uploads = append(s.uploads, c)
		s.mu.Unlock()

		w.WriteHeader(s.status)
		_, _ = w.Write([]byte(s.response))
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *sinkServer) received() []capturedUpload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]capturedUpload(nil), s.uploads...)
}

func newTestUploader(url string) (*Uploader, *reporter) {
	report := newTestReporter()
	cfg := testConfig("", url)
	return newUploader(NewHTTPClient(cfg, nil), cfg, report), report
}

func TestUploader_MultipartLayout(t *testing.T) {
	sink := newSinkServer(t, http.StatusOK, `{"status":"ok"}`)
	u, report := newTestUploader(sink.URL)

	out := u.Upload(context.Background(), "<ResultList/>")
	assert.Equal(t, domain.KindUploaded, out.Kind)

	uploads := sink.received()
	require.Len(t, uploads, 1)
	got := uploads[0]
	assert.Equal(t, "multipart/form-data", got.mediaType)
	assert.Equal(t, "Basic ZXYxOnB3ZA==", got.authorization)
	assert.Equal(t, "results-relay/test", got.userAgent)
	assert.Equal(t, "ev1", got.eventID)
	assert.Equal(t, UploadFileName, got.fileName)
	assert.Equal(t, XMLContentType, got.fileType)
	assert.Equal(t, "<ResultList/>", got.file)

	snap, ok := report.tracker.Snapshot()
	require.True(t, ok)
	assert.True(t, snap.Succeeded)
	assert.True(t, strings.HasSuffix(snap.Message, " "+msgUploaded), snap.Message)
}

func TestUploader_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		response string
		kind     domain.Kind
		contains string
	}{
		{"server error", http.StatusInternalServerError, "boom", domain.KindHTTPError, "500"},
		{"unauthorized", http.StatusUnauthorized, "", domain.KindHTTPError, "401 (Unauthorized)."},
		{"empty body", http.StatusOK, "", domain.KindEmptyBody, msgEmptyBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := newSinkServer(t, tt.status, tt.response)
			u, report := newTestUploader(sink.URL)

			out := u.Upload(context.Background(), "<ResultList/>")
			assert.Equal(t, tt.kind, out.Kind)
			assert.Contains(t, out.Message, tt.contains)

			latest := report.tracker.Latest()
			assert.True(t, strings.HasPrefix(latest, "F"), latest)
			assert.Contains(t, latest, tt.contains)
		})
	}
}

func TestUploader_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	u, report := newTestUploader(url)
	out := u.Upload(context.Background(), "<ResultList/>")

	assert.Equal(t, domain.KindUnreachable, out.Kind)
	assert.True(t, strings.HasPrefix(report.tracker.Latest(), "F"))
}

func TestBuildForm(t *testing.T) {
	body, contentType, err := buildForm("ev9", "<x/>")
	require.NoError(t, err)

	mediaType, params, err := mime.ParseMediaType(contentType)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mediaType)
	require.NotEmpty(t, params["boundary"])

	text := body.String()
	assert.Contains(t, text, `name="eventId"`)
	assert.Contains(t, text, `filename="result-list-iof-3.0.xml"`)
	assert.Contains(t, text, "Content-Type: text/xml; charset=utf-8")
	assert.Less(t, strings.Index(text, "ev9"), strings.Index(text, "<x/>"))
}
