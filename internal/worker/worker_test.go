package worker

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dualsub/internal/api"
	"dualsub/internal/audio"
	"dualsub/internal/config"
	"dualsub/internal/pipeline"
)

type countingTranscriber struct {
	calls int
	err   error
}

func (c *countingTranscriber) Transcribe(ctx context.Context, blob audio.Blob) ([]pipeline.Segment, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []pipeline.Segment{{
		ID:             "id",
		Start:          1,
		End:            3.5,
		OriginalText:   "Hello there.",
		TranslatedText: "你好。",
	}}, nil
}

// writeWAV writes seconds of silence at 16kHz and returns the path.
func writeWAV(t *testing.T, seconds int) string {
	t.Helper()
	blob, err := audio.EncodeWAV(make([]float32, seconds*16000), 16000)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "talk.wav")
	if err := os.WriteFile(path, blob.Data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRun_SingleShotWritesOutputs(t *testing.T) {
	input := writeWAV(t, 2)
	cfg := config.Default()
	cfg.WriteJSON = true
	ct := &countingTranscriber{}
	metricsPath := filepath.Join(t.TempDir(), "job.prom")

	out, err := Run(context.Background(), Options{
		InputPath:   input,
		MetricsPath: metricsPath,
		Config:      cfg,
		Transcriber: ct,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ct.calls != 1 {
		t.Errorf("transcriber called %d times, want 1", ct.calls)
	}

	base := strings.TrimSuffix(input, ".wav")
	if out.SRT != base+".srt" || out.Text != base+".txt" || out.JSON != base+".json" {
		t.Errorf("outputs = %+v", out)
	}

	srt, err := os.ReadFile(out.SRT)
	if err != nil {
		t.Fatal(err)
	}
	if string(srt) != "1\n00:00:01,000 --> 00:00:03,500\n你好。\n" {
		t.Errorf("SRT = %q", srt)
	}

	txt, err := os.ReadFile(out.Text)
	if err != nil {
		t.Fatal(err)
	}
	if string(txt) != "[00:01 - 00:03]\nHello there.\n你好。\n" {
		t.Errorf("text = %q", txt)
	}

	raw, err := os.ReadFile(out.JSON)
	if err != nil {
		t.Fatal(err)
	}
	var segs []pipeline.Segment
	if err := json.Unmarshal(raw, &segs); err != nil || len(segs) != 1 {
		t.Errorf("JSON = %s (%v)", raw, err)
	}

	prom, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file: %v", err)
	}
	if !strings.Contains(string(prom), `dualsub_route_total{path="single"} 1`) {
		t.Errorf("metrics missing single route:\n%s", prom)
	}
}

func TestRun_ChunkedPath(t *testing.T) {
	input := writeWAV(t, 130)
	cfg := config.Default()
	cfg.Pipeline.ChunkThresholdBytes = 1024
	cfg.WriteText = false
	ct := &countingTranscriber{}

	out, err := Run(context.Background(), Options{InputPath: input, Config: cfg, Transcriber: ct})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ct.calls != 3 {
		t.Errorf("transcriber called %d times, want 3", ct.calls)
	}
	if out.Text != "" {
		t.Errorf("text output should be disabled, got %q", out.Text)
	}

	srt, _ := os.ReadFile(out.SRT)
	segs, err := pipeline.ParseSRT(string(srt))
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	wantStarts := []float64{1, 61, 121}
	if len(segs) != len(wantStarts) {
		t.Fatalf("got %d cues, want %d", len(segs), len(wantStarts))
	}
	for i, s := range segs {
		if s.Start != wantStarts[i] {
			t.Errorf("cue %d starts at %f, want %f", i+1, s.Start, wantStarts[i])
		}
	}
}

func TestRun_FailureWritesNothing(t *testing.T) {
	input := writeWAV(t, 130)
	cfg := config.Default()
	cfg.Pipeline.ChunkThresholdBytes = 1024
	ct := &countingTranscriber{err: &api.ResponseFormatError{Reason: "reply is not a JSON array"}}

	_, err := Run(context.Background(), Options{InputPath: input, Config: cfg, Transcriber: ct})
	var fmtErr *api.ResponseFormatError
	if !errors.As(err, &fmtErr) {
		t.Fatalf("expected ResponseFormatError, got %v", err)
	}
	if ct.calls != 1 {
		t.Errorf("transcriber called %d times, want 1", ct.calls)
	}
	if _, err := os.Stat(strings.TrimSuffix(input, ".wav") + ".srt"); !os.IsNotExist(err) {
		t.Error("no SRT file should be written when the job fails")
	}
}

func TestRun_RejectsOversizedInput(t *testing.T) {
	input := writeWAV(t, 1)
	cfg := config.Default()
	cfg.Pipeline.MaxInputBytes = 100
	ct := &countingTranscriber{}

	_, err := Run(context.Background(), Options{InputPath: input, Config: cfg, Transcriber: ct})
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected size error, got %v", err)
	}
	if ct.calls != 0 {
		t.Error("oversized input must not reach the transcriber")
	}
}

func TestRun_RequiresAPIKey(t *testing.T) {
	input := writeWAV(t, 1)
	_, err := Run(context.Background(), Options{InputPath: input, Config: config.Default()})
	if err == nil || !strings.Contains(err.Error(), config.EnvAPIKey) {
		t.Fatalf("expected missing API key error, got %v", err)
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Pipeline.WindowSeconds = 0
	_, err := Run(context.Background(), Options{InputPath: "unused.wav", Config: cfg, Transcriber: &countingTranscriber{}})
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestInspect(t *testing.T) {
	input := writeWAV(t, 125)
	windows, err := Inspect(context.Background(), input, nil)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if len(windows) != 3 {
		t.Fatalf("got %d windows, want 3", len(windows))
	}
	if windows[2].Start != 120 || windows[2].End != 125 {
		t.Errorf("last window = [%f, %f], want [120, 125]", windows[2].Start, windows[2].End)
	}
}

func TestMIMETypeFromExt(t *testing.T) {
	tests := map[string]string{
		".MP3":  "audio/mp3",
		".wav":  "audio/wav",
		".mp4":  "video/mp4",
		".webm": "video/webm",
		".xyz":  "application/octet-stream",
	}
	for ext, want := range tests {
		if got := MIMETypeFromExt(ext); got != want {
			t.Errorf("MIMETypeFromExt(%q) = %q, want %q", ext, got, want)
		}
	}
}
