package relay

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/n0needt0/goodies/results-relay/internal/domain"
)

// DefaultIOTimeout is used for connect, read and write when the configured
// value is negative. The call timeout has no default (unbounded).
const DefaultIOTimeout = 10 * time.Second

func resolveTimeout(configured, fallback time.Duration) time.Duration {
	if configured < 0 {
		return fallback
	}
	return configured
}

// NewHTTPClient builds the client shared by the fetcher and the uploader.
// Every request and response line is written to wire, one line per write.
func NewHTTPClient(cfg domain.RelayConfig, wire io.Writer) *http.Client {
	dialer := &net.Dialer{
		Timeout:   resolveTimeout(cfg.ConnectTimeout, DefaultIOTimeout),
		KeepAlive: 30 * time.Second,
	}
	readTimeout := resolveTimeout(cfg.ReadTimeout, DefaultIOTimeout)
	writeTimeout := resolveTimeout(cfg.WriteTimeout, DefaultIOTimeout)

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, address)
		if err != nil {
			return nil, err
		}
		return &deadlineConn{Conn: conn, readTimeout: readTimeout, writeTimeout: writeTimeout}, nil
	}

	var rt http.RoundTripper = transport
	if wire != nil {
		rt = &wireTracer{next: transport, out: wire, now: time.Now}
	}

	return &http.Client{
		Transport: rt,
		Timeout:   resolveTimeout(cfg.CallTimeout, 0),
	}
}

// deadlineConn applies a fresh deadline before every read and write,
// so the timeouts bound individual IO operations rather than the call.
type deadlineConn struct {
	net.Conn
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	if c.readTimeout > 0 {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.readTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}

func (c *deadlineConn) Write(p []byte) (int, error) {
	if c.writeTimeout > 0 {
		if err := c.Conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Write(p)
}

// wireTracer writes a basic trace of every exchange: the request line,
// then either the response line with duration and size or the failure.
type wireTracer struct {
	next http.RoundTripper
	out  io.Writer
	now  func() time.Time
}

func (t *wireTracer) RoundTrip(req *http.Request) (*http.Response, error) {
	target := req.URL.Redacted()

	line := fmt.Sprintf("--> %s %s", req.Method, target)
	if req.ContentLength > 0 {
		line += fmt.Sprintf(" (%d-byte body)", req.ContentLength)
	}
	fmt.Fprintln(t.out, line)

	start := t.now()
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		fmt.Fprintln(t.out, "<-- HTTP FAILED: "+err.Error())
		return nil, err
	}
	elapsed := t.now().Sub(start).Milliseconds()

	size := "unknown-length"
	if resp.ContentLength >= 0 {
		size = fmt.Sprintf("%d-byte", resp.ContentLength)
	}
	fmt.Fprintf(t.out, "<-- %d %s %s (%dms, %s body)\n",
		resp.StatusCode, http.StatusText(resp.StatusCode), target, elapsed, size)

	return resp, nil
}
