package audio

import (
	"fmt"
	"math"

	"github.com/gopxl/beep"
)

// resampleQuality is the beep interpolation quality (1 is linear, higher
// values use more neighbouring samples).
const resampleQuality = 4

// Downmix averages all channels into one.
func Downmix(b *Buffer) []float32 {
	frames := b.Frames()
	mono := make([]float32, frames)
	if len(b.Channels) == 0 {
		return mono
	}
	if len(b.Channels) == 1 {
		copy(mono, b.Channels[0])
		return mono
	}

	n := float32(len(b.Channels))
	for i := 0; i < frames; i++ {
		var sum float32
		for _, ch := range b.Channels {
			sum += ch[i]
		}
		mono[i] = sum / n
	}
	return mono
}

// Resample downmixes b to one channel and converts it to targetRate. The
// result always holds round(duration * targetRate) samples.
func Resample(b *Buffer, targetRate int) (*Mono, error) {
	if targetRate <= 0 {
		return nil, fmt.Errorf("target sample rate must be positive, got %d", targetRate)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	mono := Downmix(b)
	want := int(math.Round(b.Duration() * float64(targetRate)))
	if len(mono) == 0 || want == 0 {
		return &Mono{Samples: []float32{}, SampleRate: targetRate}, nil
	}
	if b.SampleRate == targetRate {
		return &Mono{Samples: mono, SampleRate: targetRate}, nil
	}

	src := &monoStreamer{samples: mono}
	r := beep.Resample(resampleQuality, beep.SampleRate(b.SampleRate), beep.SampleRate(targetRate), src)

	out := make([]float32, 0, want+1)
	frames := make([][2]float64, 1024)
	for len(out) < want {
		n, ok := r.Stream(frames)
		for _, f := range frames[:n] {
			out = append(out, float32(f[0]))
		}
		if !ok || n == 0 {
			break
		}
	}

	// Interpolation can leave the tail a sample short or long.
	if len(out) > want {
		out = out[:want]
	}
	for len(out) < want {
		out = append(out, 0)
	}
	return &Mono{Samples: out, SampleRate: targetRate}, nil
}

// monoStreamer feeds a mono slice to beep, which works in stereo frames.
type monoStreamer struct {
	samples []float32
	pos     int
}

func (s *monoStreamer) Stream(frames [][2]float64) (int, bool) {
	if s.pos >= len(s.samples) {
		return 0, false
	}
	n := 0
	for n < len(frames) && s.pos < len(s.samples) {
		v := float64(s.samples[s.pos])
		frames[n] = [2]float64{v, v}
		n++
		s.pos++
	}
	return n, true
}

func (s *monoStreamer) Err() error { return nil }
