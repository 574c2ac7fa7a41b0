package ffmpeg

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// MediaInfo holds duration and audio stream information from ffprobe.
type MediaInfo struct {
	Duration   float64
	Codec      string
	Channels   int
	SampleRate int
}

// PCM is interleaved float32 audio decoded by ffmpeg.
type PCM struct {
	Samples    []float32
	Channels   int
	SampleRate int
}

// Available returns true if ffmpeg and ffprobe are on the PATH.
func Available() bool {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return false
	}
	_, err := exec.LookPath("ffprobe")
	return err == nil
}

// probeOutput mirrors ffprobe JSON structure.
type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecName  string `json:"codec_name"`
		Channels   int    `json:"channels"`
		SampleRate string `json:"sample_rate"`
	} `json:"streams"`
}

// ProbeMedia uses ffprobe to get media duration and the first audio stream's layout.
func ProbeMedia(ctx context.Context, path string) (*MediaInfo, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return nil, fmt.Errorf("ffprobe not found: %w", err)
	}

	cmd := exec.CommandContext(ctx,
		"ffprobe",
		"-v", "error",
		"-select_streams", "a:0",
		"-show_entries", "stream=codec_name,channels,sample_rate:format=duration",
		"-of", "json",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (*MediaInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return nil, fmt.Errorf("ffprobe JSON parse error: %w", err)
	}
	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio stream found")
	}

	dur, _ := strconv.ParseFloat(probe.Format.Duration, 64)
	rate, _ := strconv.Atoi(probe.Streams[0].SampleRate)

	codec := "N/A"
	if probe.Streams[0].CodecName != "" {
		codec = probe.Streams[0].CodecName
	}

	return &MediaInfo{
		Duration:   dur,
		Codec:      codec,
		Channels:   probe.Streams[0].Channels,
		SampleRate: rate,
	}, nil
}

// DecodePCM decodes the first audio stream of an arbitrary media container to
// interleaved float32 samples at the stream's native rate and channel count.
// The bytes are staged in a temp file so ffmpeg can seek (mp4/mov keep their
// index at the end).
func DecodePCM(ctx context.Context, data []byte) (*PCM, error) {
	tmp, err := os.CreateTemp("", "dualsub-input-*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("close temp file: %w", err)
	}

	info, err := ProbeMedia(ctx, tmp.Name())
	if err != nil {
		return nil, err
	}
	if info.Channels <= 0 || info.SampleRate <= 0 {
		return nil, fmt.Errorf("ffprobe reported invalid stream layout: %d channels at %d Hz", info.Channels, info.SampleRate)
	}
	slog.Debug("decoding with ffmpeg",
		"codec", info.Codec,
		"channels", info.Channels,
		"sample_rate", info.SampleRate,
		"duration_sec", info.Duration)

	cmd := exec.CommandContext(ctx,
		"ffmpeg", "-nostdin", "-v", "error",
		"-i", tmp.Name(),
		"-vn", "-map", "0:a:0",
		"-f", "f32le", "-acodec", "pcm_f32le",
		"-ac", strconv.Itoa(info.Channels),
		"-ar", strconv.Itoa(info.SampleRate),
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	var raw, diag bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&raw, stdout)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&diag, stderr)
		return err
	})
	readErr := g.Wait()

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode failed: %w\n%s", err, strings.TrimSpace(diag.String()))
	}
	if readErr != nil {
		return nil, fmt.Errorf("read ffmpeg output: %w", readErr)
	}

	return &PCM{
		Samples:    bytesToFloat32(raw.Bytes()),
		Channels:   info.Channels,
		SampleRate: info.SampleRate,
	}, nil
}

func bytesToFloat32(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

// IsVideoExtension returns true for common video file extensions.
func IsVideoExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".mp4", ".mkv", ".mov", ".avi", ".flv", ".webm":
		return true
	}
	return false
}

// LogMediaInfo logs file size and, when ffprobe is installed, media information.
func LogMediaInfo(ctx context.Context, path string) *MediaInfo {
	stat, err := os.Stat(path)
	if err != nil {
		slog.Warn("cannot stat file", "path", path, "err", err)
		return nil
	}

	sizeMB := float64(stat.Size()) / (1024 * 1024)
	msg := fmt.Sprintf("file size: %.2f MB", sizeMB)

	if !Available() {
		slog.Info(msg)
		return nil
	}

	info, err := ProbeMedia(ctx, path)
	if err == nil && info != nil {
		minutes := int(info.Duration) / 60
		seconds := int(info.Duration) % 60
		msg += fmt.Sprintf(" | duration: %02d:%02d | codec: %s", minutes, seconds, info.Codec)
	}

	slog.Info(msg)
	return info
}
