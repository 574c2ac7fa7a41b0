package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"dualsub/internal/ffmpeg"

	"github.com/go-audio/wav"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/flac"
	"github.com/gopxl/beep/mp3"
	"github.com/jfreymuth/oggvorbis"
)

// DecodeError reports input bytes that are not a recognized or parseable
// audio container.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("decode audio: %v", e.Err)
	}
	return fmt.Sprintf("decode %s audio: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// ErrUnknownFormat is wrapped by DecodeError when no decoder recognizes the input.
var ErrUnknownFormat = errors.New("unrecognized audio container")

// Container names returned by Sniff.
const (
	FormatWAV    = "wav"
	FormatOgg    = "ogg"
	FormatFLAC   = "flac"
	FormatMP3    = "mp3"
	FormatOther  = "other"
	FormatEmpty  = "empty"
	readBlockLen = 16384
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// Sniff identifies the container from its leading magic bytes.
func Sniff(data []byte) string {
	switch {
	case len(data) == 0:
		return FormatEmpty
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case bytes.HasPrefix(data, []byte("OggS")):
		return FormatOgg
	case bytes.HasPrefix(data, []byte("fLaC")):
		return FormatFLAC
	case bytes.HasPrefix(data, []byte("ID3")):
		return FormatMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0 && data[1]&0x06 != 0:
		// Layer bits 00 is AAC ADTS, which shares the sync word.
		return FormatMP3
	}
	return FormatOther
}

// Decode turns raw file bytes into a multi-channel float buffer. WAV, Ogg
// Vorbis, FLAC and MP3 are decoded in-process; any other container is handed
// to ffmpeg when it is installed.
func Decode(ctx context.Context, data []byte) (*Buffer, error) {
	format := Sniff(data)
	slog.Debug("decoding audio", "format", format, "bytes", len(data))

	var (
		buf *Buffer
		err error
	)
	switch format {
	case FormatEmpty:
		return nil, &DecodeError{Err: fmt.Errorf("%w: input is empty", ErrUnknownFormat)}
	case FormatWAV:
		buf, err = decodeWAV(data)
	case FormatOgg:
		buf, err = decodeOgg(data)
	case FormatFLAC:
		buf, err = decodeBeep(flac.Decode(bytes.NewReader(data)))
	case FormatMP3:
		buf, err = decodeBeep(mp3.Decode(io.NopCloser(bytes.NewReader(data))))
	default:
		buf, err = decodeFFmpeg(ctx, data)
	}
	if err != nil {
		return nil, &DecodeError{Format: format, Err: err}
	}
	if err := buf.Validate(); err != nil {
		return nil, &DecodeError{Format: format, Err: err}
	}
	return buf, nil
}

func decodeWAV(data []byte) (*Buffer, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read PCM buffer: %w", err)
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("unsupported WAV encoding %d (only integer PCM is supported)", d.WavAudioFormat)
	}
	switch d.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported WAV bit depth %d", d.BitDepth)
	}

	channels := int(d.NumChans)
	if pcm != nil && pcm.Format != nil && pcm.Format.NumChannels > 0 {
		channels = pcm.Format.NumChannels
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count %d", channels)
	}

	var ints []int
	if pcm != nil {
		ints = pcm.Data
	}
	return deinterleave(intsToFloats(ints, int(d.BitDepth)), channels, int(d.SampleRate)), nil
}

// intsToFloats scales integer PCM to [-1, 1]. 8-bit WAV is unsigned.
func intsToFloats(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	if bitDepth == 8 {
		for i, v := range data {
			out[i] = float32(v-128) / 128
		}
		return out
	}
	scale := float32(int64(1) << uint(bitDepth-1))
	for i, v := range data {
		out[i] = float32(v) / scale
	}
	return out
}

func decodeOgg(data []byte) (*Buffer, error) {
	r, err := oggvorbis.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open Ogg Vorbis stream: %w", err)
	}

	var samples []float32
	block := make([]float32, readBlockLen)
	for {
		n, err := r.Read(block)
		samples = append(samples, block[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read Ogg Vorbis data: %w", err)
		}
	}
	return deinterleave(samples, r.Channels(), r.SampleRate()), nil
}

// decodeBeep drains a beep decoder. beep always streams stereo frames; mono
// sources carry the same value on both sides, so only the left one is kept.
func decodeBeep(s beep.StreamSeekCloser, format beep.Format, err error) (*Buffer, error) {
	if err != nil {
		return nil, err
	}
	defer s.Close()

	channels := format.NumChannels
	if channels < 1 || channels > 2 {
		channels = 2
	}
	out := make([][]float32, channels)
	if n := s.Len(); n > 0 {
		for c := range out {
			out[c] = make([]float32, 0, n)
		}
	}

	frames := make([][2]float64, 512)
	for {
		n, ok := s.Stream(frames)
		for _, f := range frames[:n] {
			for c := range out {
				out[c] = append(out[c], float32(f[c]))
			}
		}
		if !ok {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	return &Buffer{Channels: out, SampleRate: int(format.SampleRate)}, nil
}

func decodeFFmpeg(ctx context.Context, data []byte) (*Buffer, error) {
	if !ffmpeg.Available() {
		return nil, fmt.Errorf("%w (install ffmpeg to decode this container)", ErrUnknownFormat)
	}
	pcm, err := ffmpeg.DecodePCM(ctx, data)
	if err != nil {
		return nil, err
	}
	return deinterleave(pcm.Samples, pcm.Channels, pcm.SampleRate), nil
}

// deinterleave splits interleaved frames into per-channel slices. A trailing
// partial frame is dropped.
func deinterleave(samples []float32, channels, sampleRate int) *Buffer {
	if channels <= 0 {
		return &Buffer{SampleRate: sampleRate}
	}
	frames := len(samples) / channels
	out := make([][]float32, channels)
	for c := range out {
		out[c] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for c := 0; c < channels; c++ {
			out[c][i] = samples[i*channels+c]
		}
	}
	return &Buffer{Channels: out, SampleRate: sampleRate}
}
