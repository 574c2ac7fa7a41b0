package audio

// DefaultWindowSeconds is the nominal window length used for chunked uploads.
const DefaultWindowSeconds = 60

// Chunk partitions m into consecutive windows of windowSeconds, the last one
// clamped to the remaining audio. Boundaries are computed on sample offsets so
// windows never overlap or leave gaps and the final End equals the clip
// duration exactly. An empty clip yields no windows.
func Chunk(m *Mono, windowSeconds float64) []Window {
	if m == nil || len(m.Samples) == 0 || m.SampleRate <= 0 || windowSeconds <= 0 {
		return nil
	}

	rate := float64(m.SampleRate)
	step := int(windowSeconds * rate)
	if step < 1 {
		step = 1
	}

	total := len(m.Samples)
	windows := make([]Window, 0, (total+step-1)/step)
	for cursor := 0; cursor < total; cursor += step {
		end := min(cursor+step, total)
		windows = append(windows, Window{
			Index:      len(windows),
			Start:      float64(cursor) / rate,
			End:        float64(end) / rate,
			Samples:    m.Samples[cursor:end:end],
			SampleRate: m.SampleRate,
		})
	}
	return windows
}
