package audio

import (
	"fmt"
	"time"
)

// TargetSampleRate is the canonical rate every decoded input is resampled to
// before chunking. At 16-bit mono a 60 s window is ~1.92 MB of PCM.
const TargetSampleRate = 16000

// Buffer is decoded audio: one float sample slice per channel, all equal length,
// amplitudes in [-1, 1].
type Buffer struct {
	Channels   [][]float32
	SampleRate int
}

// Frames returns the number of samples per channel.
func (b *Buffer) Frames() int {
	if b == nil || len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b == nil || b.SampleRate <= 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// Validate checks the channel-length and sample-rate invariants.
func (b *Buffer) Validate() error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", b.SampleRate)
	}
	for i, ch := range b.Channels {
		if len(ch) != len(b.Channels[0]) {
			return fmt.Errorf("channel %d has %d samples, channel 0 has %d", i, len(ch), len(b.Channels[0]))
		}
	}
	return nil
}

// Mono is single-channel audio at a fixed sample rate.
type Mono struct {
	Samples    []float32
	SampleRate int
}

// Duration returns the clip length in seconds.
func (m *Mono) Duration() float64 {
	if m == nil || m.SampleRate <= 0 {
		return 0
	}
	return float64(len(m.Samples)) / float64(m.SampleRate)
}

// Window is a contiguous, non-overlapping slice of a Mono clip.
// Samples aliases the parent clip and must not be modified.
type Window struct {
	Index      int
	Start      float64 // seconds from the start of the clip
	End        float64
	Samples    []float32
	SampleRate int
}

// Duration returns the length of this window in seconds.
func (w Window) Duration() float64 {
	return w.End - w.Start
}

// String returns a human-readable representation for logging.
func (w Window) String() string {
	return fmt.Sprintf("window %d: %s-%s", w.Index, formatOffset(w.Start), formatOffset(w.End))
}

func formatOffset(sec float64) string {
	d := time.Duration(sec * float64(time.Second)).Round(time.Millisecond)
	return d.String()
}

// Blob is a self-describing encoded audio payload.
type Blob struct {
	Data     []byte
	MIMEType string
}
