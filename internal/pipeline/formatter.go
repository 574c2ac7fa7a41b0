package pipeline

import (
	"bufio"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// formatSRTTime converts seconds to SRT time format HH:MM:SS,mmm, rounding to
// the nearest millisecond.
func formatSRTTime(seconds float64) string {
	totalMs := int64(math.Round(math.Abs(seconds) * 1000))
	hours := totalMs / 3_600_000
	minutes := totalMs / 60_000 % 60
	secs := totalMs / 1000 % 60
	millis := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// formatClock converts seconds to the MM:SS label used in text transcripts.
// Minutes are not wrapped at the hour.
func formatClock(seconds float64) string {
	total := int(math.Max(seconds, 0))
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// ParseSRTTimestamp parses HH:MM:SS,mmm back to seconds.
func ParseSRTTimestamp(s string) (float64, error) {
	s = strings.TrimSpace(s)
	clock, ms, ok := strings.Cut(s, ",")
	if !ok {
		return 0, fmt.Errorf("invalid SRT timestamp %q: missing millisecond separator", s)
	}
	parts := strings.Split(clock, ":")
	if len(parts) != 3 || len(ms) != 3 {
		return 0, fmt.Errorf("invalid SRT timestamp %q", s)
	}

	var fields [4]int64
	for i, p := range append(parts, ms) {
		v, err := strconv.ParseInt(p, 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid SRT timestamp %q", s)
		}
		fields[i] = v
	}
	if fields[1] > 59 || fields[2] > 59 {
		return 0, fmt.Errorf("invalid SRT timestamp %q: field out of range", s)
	}

	totalMs := fields[0]*3_600_000 + fields[1]*60_000 + fields[2]*1000 + fields[3]
	return float64(totalMs) / 1000, nil
}

// FormatSRT renders segments as an SRT document carrying the translated text.
// Lines longer than maxCPL are wrapped onto a second line.
func FormatSRT(segments []Segment, maxCPL int) string {
	if len(segments) == 0 {
		return ""
	}

	var sb strings.Builder
	for i, seg := range segments {
		startStr := formatSRTTime(seg.Start)
		endStr := formatSRTTime(seg.End)
		text := optimizeTextDisplay(seg.TranslatedText, maxCPL)

		fmt.Fprintf(&sb, "%d\n%s --> %s\n%s\n", i+1, startStr, endStr, text)
		if i < len(segments)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// ParseSRT reads an SRT document back into segments. Only timing and text
// survive; the text lands in TranslatedText and the cue number becomes the id.
func ParseSRT(content string) ([]Segment, error) {
	var (
		segments []Segment
		block    []string
	)

	flush := func() error {
		if len(block) == 0 {
			return nil
		}
		defer func() { block = block[:0] }()
		if len(block) < 2 {
			return fmt.Errorf("incomplete SRT cue %q", strings.Join(block, "\n"))
		}
		startStr, endStr, ok := strings.Cut(block[1], "-->")
		if !ok {
			return fmt.Errorf("cue %s: missing --> in %q", block[0], block[1])
		}
		start, err := ParseSRTTimestamp(startStr)
		if err != nil {
			return fmt.Errorf("cue %s: %w", block[0], err)
		}
		end, err := ParseSRTTimestamp(endStr)
		if err != nil {
			return fmt.Errorf("cue %s: %w", block[0], err)
		}
		segments = append(segments, Segment{
			ID:             strings.TrimSpace(block[0]),
			Start:          start,
			End:            end,
			TranslatedText: strings.Join(block[2:], "\n"),
		})
		return nil
	}

	sc := bufio.NewScanner(strings.NewReader(content))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		block = append(block, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return segments, nil
}

// FormatText renders a plain bilingual transcript: a [MM:SS - MM:SS] label,
// the original line and the translation, one blank line between entries.
func FormatText(segments []Segment) string {
	var sb strings.Builder
	for i, seg := range segments {
		fmt.Fprintf(&sb, "[%s - %s]\n%s\n%s\n",
			formatClock(seg.Start), formatClock(seg.End),
			strings.TrimSpace(seg.OriginalText),
			strings.TrimSpace(seg.TranslatedText))
		if i < len(segments)-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// optimizeTextDisplay returns text on a single line if it fits within maxCPL,
// otherwise splits it into at most two lines.
func optimizeTextDisplay(text string, maxCPL int) string {
	text = strings.TrimSpace(text)
	if text == "" || maxCPL <= 0 {
		return text
	}
	if utf8.RuneCountInString(text) <= maxCPL {
		return text
	}
	return splitTextIntoLines(text, maxCPL)
}

// splitTextIntoLines splits text into a maximum of two lines using
// findSplitPosition for break points.
func splitTextIntoLines(text string, maxCPL int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= maxCPL {
		return text
	}

	splitPos := findSplitPosition(text, maxCPL)

	// A closing mark never starts the second line.
	for splitPos < len(runes) && isPunctuation(runes[splitPos]) && !isOpening(runes[splitPos]) {
		splitPos++
	}

	firstLine := strings.TrimSpace(string(runes[:splitPos]))
	remaining := strings.TrimSpace(string(runes[splitPos:]))

	if remaining == "" {
		return firstLine
	}
	return firstLine + "\n" + remaining
}
