package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"dualsub/internal/audio"
)

// DispatchFunc transcribes a single window.
type DispatchFunc func(ctx context.Context, w audio.Window) ([]Segment, error)

// WindowError aborts a chunked job. It names the window that failed.
type WindowError struct {
	Index int
	Start float64
	Err   error
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("window %d starting at %s failed: %v", e.Index+1, formatSRTTime(e.Start), e.Err)
}

func (e *WindowError) Unwrap() error { return e.Err }

// Stitch dispatches each window in order, waiting for one call to finish
// before starting the next. Segment times are shifted onto the global
// timeline and ids are prefixed with the window start. The first failure
// discards everything collected so far.
func Stitch(ctx context.Context, windows []audio.Window, dispatch DispatchFunc) ([]Segment, error) {
	var acc []Segment

	for _, w := range windows {
		select {
		case <-ctx.Done():
			return nil, &WindowError{Index: w.Index, Start: w.Start, Err: ctx.Err()}
		default:
		}

		slog.Info("processing window",
			"window", fmt.Sprintf("%d/%d", w.Index+1, len(windows)),
			"start", formatSRTTime(w.Start),
			"end", formatSRTTime(w.End))

		segs, err := dispatch(ctx, w)
		if err != nil {
			return nil, &WindowError{Index: w.Index, Start: w.Start, Err: err}
		}

		acc = append(acc, offsetSegments(segs, w.Start)...)
		slog.Info("window completed",
			"window", fmt.Sprintf("%d/%d", w.Index+1, len(windows)),
			"segments", len(segs))
	}

	sort.SliceStable(acc, func(i, j int) bool {
		return acc[i].Start < acc[j].Start
	})
	if acc == nil {
		acc = []Segment{}
	}
	return acc, nil
}

// offsetSegments returns copies of segs moved by offsetSec, with ids made
// unique per window. Times are not rounded; that happens at export.
func offsetSegments(segs []Segment, offsetSec float64) []Segment {
	prefix := strconv.FormatFloat(offsetSec, 'f', -1, 64)
	out := make([]Segment, len(segs))
	for i, s := range segs {
		s.Start += offsetSec
		s.End += offsetSec
		s.ID = prefix + "-" + s.ID
		out[i] = s
	}
	return out
}
