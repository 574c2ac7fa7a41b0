package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"dualsub/internal/audio"
	"dualsub/internal/metrics"

	"golang.org/x/time/rate"
)

// DefaultChunkThreshold is the input size (2.5 MiB) at and above which the
// file is decoded and sent window by window instead of in one request.
const DefaultChunkThreshold = 5 * 1024 * 1024 / 2

// Route paths recorded in metrics.
const (
	PathSingle  = "single"
	PathChunked = "chunked"
)

// DecodeFunc turns raw file bytes into a decoded buffer.
type DecodeFunc func(ctx context.Context, data []byte) (*audio.Buffer, error)

// Router picks between the single-shot and the chunked path by file size.
type Router struct {
	transcriber   Transcriber
	threshold     int
	windowSeconds float64
	sampleRate    int
	limiter       *rate.Limiter
	metrics       *metrics.Metrics
	decode        DecodeFunc
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithThreshold sets the chunking threshold in bytes.
func WithThreshold(n int) RouterOption {
	return func(r *Router) {
		r.threshold = n
	}
}

// WithWindowSeconds sets the nominal window length.
func WithWindowSeconds(sec float64) RouterOption {
	return func(r *Router) {
		r.windowSeconds = sec
	}
}

// WithSampleRate sets the rate windows are resampled to.
func WithSampleRate(hz int) RouterOption {
	return func(r *Router) {
		r.sampleRate = hz
	}
}

// WithRateLimit spaces consecutive window requests to at most perMinute per
// minute. Zero disables pacing. Windows are still sent one at a time.
func WithRateLimit(perMinute int) RouterOption {
	return func(r *Router) {
		if perMinute <= 0 {
			r.limiter = nil
			return
		}
		r.limiter = rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1)
	}
}

// WithMetrics records routing and window counts.
func WithMetrics(m *metrics.Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithDecoder replaces the audio decoder.
func WithDecoder(fn DecodeFunc) RouterOption {
	return func(r *Router) {
		r.decode = fn
	}
}

// NewRouter returns a Router with the default threshold, 60 s windows and
// 16 kHz resampling.
func NewRouter(t Transcriber, opts ...RouterOption) *Router {
	r := &Router{
		transcriber:   t,
		threshold:     DefaultChunkThreshold,
		windowSeconds: audio.DefaultWindowSeconds,
		sampleRate:    audio.TargetSampleRate,
		decode:        audio.Decode,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route transcribes in. Files smaller than the threshold go to the service
// as-is in one request; larger ones are decoded, resampled, cut into windows
// and stitched back together. A failure on either path ends the job.
func (r *Router) Route(ctx context.Context, in Input) ([]Segment, error) {
	if len(in.Data) < r.threshold {
		r.metrics.Route(PathSingle)
		slog.Info("processing as single file",
			"bytes", len(in.Data),
			"threshold", r.threshold)

		segs, err := r.transcriber.Transcribe(ctx, audio.Blob{Data: in.Data, MIMEType: in.MIMEType})
		if err != nil {
			return nil, fmt.Errorf("transcribe: %w", err)
		}
		return segs, nil
	}

	r.metrics.Route(PathChunked)
	slog.Info("file size exceeds chunk threshold, splitting",
		"bytes", len(in.Data),
		"threshold", r.threshold,
		"window_sec", r.windowSeconds)

	windows, err := r.Plan(ctx, in.Data)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		slog.Warn("decoded audio is empty, nothing to transcribe")
		return []Segment{}, nil
	}

	return Stitch(ctx, windows, r.transcribeWindow)
}

// Plan runs decode, resample and chunk without contacting the service.
func (r *Router) Plan(ctx context.Context, data []byte) ([]audio.Window, error) {
	buf, err := r.decode(ctx, data)
	if err != nil {
		return nil, err
	}
	slog.Info("decoded audio",
		"channels", len(buf.Channels),
		"sample_rate", buf.SampleRate,
		"duration_sec", buf.Duration())

	mono, err := audio.Resample(buf, r.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("resample: %w", err)
	}

	windows := audio.Chunk(mono, r.windowSeconds)
	r.metrics.WindowsPlanned(len(windows))
	slog.Info("split into windows", "count", len(windows), "duration_sec", mono.Duration())
	return windows, nil
}

func (r *Router) transcribeWindow(ctx context.Context, w audio.Window) ([]Segment, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	blob, err := audio.EncodeWAV(w.Samples, w.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("encode window: %w", err)
	}
	slog.Debug("encoded window", "window", w.String(), "bytes", len(blob.Data))

	return r.transcriber.Transcribe(ctx, blob)
}
