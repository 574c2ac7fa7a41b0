package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"dualsub/internal/api"
	"dualsub/internal/audio"
	"dualsub/internal/config"
	"dualsub/internal/ffmpeg"
	"dualsub/internal/metrics"
	"dualsub/internal/pipeline"

	"github.com/google/uuid"
)

// Options configures the worker.
type Options struct {
	InputPath   string
	OutputPath  string // SRT path; defaults to <input>.srt
	MetricsPath string // optional Prometheus textfile
	Config      *config.Config

	// Transcriber overrides the remote client; used by tests.
	Transcriber pipeline.Transcriber
}

// Outputs lists the files a job wrote.
type Outputs struct {
	SRT  string
	Text string
	JSON string
}

// Run is the top-level orchestrator for one transcription job.
func Run(ctx context.Context, opts Options) (*Outputs, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	jobID := uuid.NewString()
	log := slog.With("job", jobID)
	inputPath := opts.InputPath

	outputSRT := opts.OutputPath
	if outputSRT == "" {
		outputSRT = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".srt"
	}

	log.Info("processing file", "input", filepath.Base(inputPath))
	ffmpeg.LogMediaInfo(ctx, inputPath)
	if ffmpeg.IsVideoExtension(filepath.Ext(inputPath)) {
		log.Info("video input, only the first audio track is transcribed")
	}

	data, err := readInput(inputPath, cfg.Pipeline.MaxInputBytes)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	transcriber := opts.Transcriber
	if transcriber == nil {
		if cfg.API.APIKey == "" {
			return nil, fmt.Errorf("no API key configured: set %s or api.api_key in the config file", config.EnvAPIKey)
		}
		client, err := newClient(ctx, cfg, m)
		if err != nil {
			return nil, err
		}
		transcriber = client
	}

	router := pipeline.NewRouter(transcriber,
		pipeline.WithThreshold(cfg.Pipeline.ChunkThresholdBytes),
		pipeline.WithWindowSeconds(cfg.Pipeline.WindowSeconds),
		pipeline.WithSampleRate(cfg.Pipeline.SampleRate),
		pipeline.WithRateLimit(cfg.Pipeline.RateLimitPerMin),
		pipeline.WithMetrics(m),
	)

	segments, err := router.Route(ctx, pipeline.Input{
		Name:     filepath.Base(inputPath),
		MIMEType: MIMETypeFromExt(filepath.Ext(inputPath)),
		Data:     data,
	})
	if opts.MetricsPath != "" {
		if werr := m.WriteTextfile(opts.MetricsPath); werr != nil {
			log.Warn("failed to write metrics", "path", opts.MetricsPath, "err", werr)
		}
	}
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		log.Warn("transcript is empty")
	}

	out, err := writeOutputs(outputSRT, segments, cfg.SubtitleSettings)
	if err != nil {
		return nil, err
	}
	log.Info("transcription complete", "segments", len(segments), "srt", out.SRT)
	return out, nil
}

func newClient(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (*api.Client, error) {
	progress := func(read, total int64) {
		pct := 0.0
		if total > 0 {
			pct = math.Min(float64(read)/float64(total)*100, 100)
		}
		slog.Debug("upload progress", "percent", fmt.Sprintf("%.1f%%", pct))
	}

	return api.NewClient(ctx, api.Config{
		Endpoint:    cfg.API.Endpoint,
		APIVersion:  cfg.API.APIVersion,
		Model:       cfg.API.Model,
		APIKey:      cfg.API.APIKey,
		Timeout:     cfg.API.Timeout,
		Temperature: cfg.API.Temperature,
	}, api.WithMetrics(m), api.WithProgress(progress))
}

// readInput loads the whole file, refusing anything over maxBytes.
func readInput(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if stat.Size() > maxBytes {
		return nil, fmt.Errorf("file is too large: %.1f MB, the maximum is %.0f MB",
			float64(stat.Size())/(1024*1024), float64(maxBytes)/(1024*1024))
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return data, nil
}

func writeOutputs(srtPath string, segments []pipeline.Segment, settings config.SubtitleSettings) (*Outputs, error) {
	out := &Outputs{SRT: srtPath}
	base := strings.TrimSuffix(srtPath, filepath.Ext(srtPath))

	srt := pipeline.FormatSRT(segments, settings.CPLForLang(config.TargetLanguage))
	if err := os.WriteFile(srtPath, []byte(srt), 0644); err != nil {
		return nil, fmt.Errorf("write SRT file: %w", err)
	}
	slog.Info("SRT file saved", "path", srtPath)

	if settings.WriteText {
		out.Text = base + ".txt"
		if err := os.WriteFile(out.Text, []byte(pipeline.FormatText(segments)), 0644); err != nil {
			return nil, fmt.Errorf("write text transcript: %w", err)
		}
		slog.Info("text transcript saved", "path", out.Text)
	}

	if settings.WriteJSON {
		out.JSON = base + ".json"
		if err := saveJSON(out.JSON, segments); err != nil {
			slog.Warn("failed to save JSON", "err", err)
			out.JSON = ""
		} else {
			slog.Info("transcript JSON saved", "path", out.JSON)
		}
	}
	return out, nil
}

func saveJSON(path string, segments []pipeline.Segment) error {
	data, err := json.MarshalIndent(segments, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Inspect decodes, resamples and chunks a file without contacting the
// transcription service and returns the window plan.
func Inspect(ctx context.Context, inputPath string, cfg *config.Config) ([]audio.Window, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	data, err := readInput(inputPath, cfg.Pipeline.MaxInputBytes)
	if err != nil {
		return nil, err
	}
	router := pipeline.NewRouter(nil,
		pipeline.WithWindowSeconds(cfg.Pipeline.WindowSeconds),
		pipeline.WithSampleRate(cfg.Pipeline.SampleRate),
	)
	return router.Plan(ctx, data)
}

// MIMETypeFromExt returns the MIME type for common audio/video extensions.
func MIMETypeFromExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".mp3":
		return "audio/mp3"
	case ".m4a":
		return "audio/m4a"
	case ".wav":
		return "audio/wav"
	case ".flac":
		return "audio/flac"
	case ".ogg":
		return "audio/ogg"
	case ".aac":
		return "audio/aac"
	case ".webm":
		return "video/webm"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/mov"
	default:
		return "application/octet-stream"
	}
}
