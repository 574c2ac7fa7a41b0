package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
)

// Version is reported in the User-Agent header.
var Version = "dev"

// ProgressFunc is called with (bytesRead, totalBytes) during upload.
type ProgressFunc func(bytesRead, totalBytes int64)

// progressReader wraps an io.Reader and reports progress.
type progressReader struct {
	reader   io.Reader
	total    int64
	read     int64
	callback ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.read += int64(n)
	if pr.callback != nil {
		pr.callback(pr.read, pr.total)
	}
	return n, err
}

// callStats is filled in by the transport for one generateContent call.
type callStats struct {
	bodyBytes int64
	status    int
	body      string // truncated reply body of a non-2xx response
	err       error  // transport failure; no response was received
}

type statsKey struct{}

func withStats(ctx context.Context, s *callStats) context.Context {
	return context.WithValue(ctx, statsKey{}, s)
}

func statsFrom(ctx context.Context) *callStats {
	s, _ := ctx.Value(statsKey{}).(*callStats)
	return s
}

// transport sits under the SDK's HTTP client. It tags requests with our
// User-Agent, reports upload progress and records what happened on the wire.
type transport struct {
	base     http.RoundTripper
	progress ProgressFunc
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	stats := statsFrom(req.Context())
	if stats == nil {
		stats = &callStats{}
	}

	out := req.Clone(req.Context())
	ua := "dualsub/" + Version
	if sdk := req.Header.Get("User-Agent"); sdk != "" {
		ua += " " + sdk
	}
	out.Header.Set("User-Agent", ua)

	stats.bodyBytes = out.ContentLength
	if out.Body != nil && t.progress != nil {
		out.Body = struct {
			io.Reader
			io.Closer
		}{
			Reader: &progressReader{reader: req.Body, total: out.ContentLength, callback: t.progress},
			Closer: req.Body,
		}
	}

	resp, err := t.base.RoundTrip(out)
	if err != nil {
		stats.err = err
		return nil, err
	}
	stats.status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		stats.body = truncate(strings.TrimSpace(string(raw)), errorBodyLimit)
		// The SDK only needs the status; the body is reported from stats.
		resp.Body = io.NopCloser(bytes.NewReader(nil))
		resp.ContentLength = 0
	}
	return resp, nil
}

// newHTTPClient copies hc and installs the recording transport.
func newHTTPClient(hc *http.Client, progress ProgressFunc) *http.Client {
	c := *hc
	base := c.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c.Transport = &transport{base: base, progress: progress}
	return &c
}
