package audio

import (
	"math"
	"testing"
)

func monoOfDuration(seconds float64, rate int) *Mono {
	return &Mono{
		Samples:    make([]float32, int(math.Round(seconds*float64(rate)))),
		SampleRate: rate,
	}
}

func TestChunk_Coverage(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		window   float64
		want     int
	}{
		{"shorter than window", 25, 60, 1},
		{"exactly one window", 60, 60, 1},
		{"even multiple", 180, 60, 3},
		{"short trailing window", 125, 60, 3},
		{"fractional duration", 61.37, 60, 2},
		{"tiny windows", 10, 3, 4},
	}

	const rate = 100
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := monoOfDuration(tt.duration, rate)
			windows := Chunk(m, tt.window)
			if len(windows) != tt.want {
				t.Fatalf("got %d windows, want %d", len(windows), tt.want)
			}

			if windows[0].Start != 0 {
				t.Errorf("first window starts at %f, want 0", windows[0].Start)
			}
			last := windows[len(windows)-1]
			if last.End != m.Duration() {
				t.Errorf("last window ends at %f, want %f", last.End, m.Duration())
			}

			covered := 0
			for i, w := range windows {
				if w.Index != i {
					t.Errorf("window %d has Index %d", i, w.Index)
				}
				if i > 0 && w.Start != windows[i-1].End {
					t.Errorf("window %d starts at %f, previous ended at %f", i, w.Start, windows[i-1].End)
				}
				if w.End <= w.Start {
					t.Errorf("window %d is empty: [%f, %f)", i, w.Start, w.End)
				}
				if w.Duration() > tt.window+1e-9 {
					t.Errorf("window %d lasts %f, longer than %f", i, w.Duration(), tt.window)
				}
				if w.SampleRate != rate {
					t.Errorf("window %d SampleRate = %d, want %d", i, w.SampleRate, rate)
				}
				covered += len(w.Samples)
			}
			if covered != len(m.Samples) {
				t.Errorf("windows cover %d samples, clip has %d", covered, len(m.Samples))
			}
		})
	}
}

func TestChunk_EvenMultipleHasNoShortTail(t *testing.T) {
	windows := Chunk(monoOfDuration(120, 16000), 60)
	if len(windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(windows))
	}
	for i, w := range windows {
		if w.Duration() != 60 {
			t.Errorf("window %d lasts %f, want 60", i, w.Duration())
		}
		if len(w.Samples) != 60*16000 {
			t.Errorf("window %d has %d samples, want %d", i, len(w.Samples), 60*16000)
		}
	}
}

func TestChunk_Empty(t *testing.T) {
	if got := Chunk(&Mono{SampleRate: 16000}, 60); len(got) != 0 {
		t.Errorf("expected no windows for empty clip, got %d", len(got))
	}
	if got := Chunk(nil, 60); len(got) != 0 {
		t.Errorf("expected no windows for nil clip, got %d", len(got))
	}
}

func TestChunk_WindowsAliasSource(t *testing.T) {
	m := &Mono{Samples: []float32{0.1, 0.2, 0.3, 0.4, 0.5}, SampleRate: 2}
	windows := Chunk(m, 1)
	if len(windows) != 3 {
		t.Fatalf("got %d windows, want 3", len(windows))
	}
	if windows[1].Samples[0] != 0.3 {
		t.Errorf("window 1 first sample = %f, want 0.3", windows[1].Samples[0])
	}
	if cap(windows[0].Samples) != len(windows[0].Samples) {
		t.Error("window slice capacity should be clipped to its length")
	}
	if windows[2].End != 2.5 {
		t.Errorf("last window ends at %f, want 2.5", windows[2].End)
	}
}

func TestWindowString(t *testing.T) {
	w := Window{Index: 2, Start: 120, End: 150.5}
	if got, want := w.String(), "window 2: 2m0s-2m30.5s"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
