package pipeline

import (
	"math"
	"strings"
	"testing"
)

func TestFormatSRTTime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.123, "00:01:01,123"},
		{3661.999, "01:01:01,999"},
		{3600, "01:00:00,000"},
		{0.083, "00:00:00,083"},
		{7200.5, "02:00:00,500"},
		{59.9996, "00:01:00,000"},
		{36000, "10:00:00,000"},
	}

	for _, tt := range tests {
		got := formatSRTTime(tt.seconds)
		if got != tt.want {
			t.Errorf("formatSRTTime(%f) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestParseSRTTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"00:00:00,000", 0},
		{"00:01:01,123", 61.123},
		{" 01:01:01,999 ", 3661.999},
		{"10:00:00,000", 36000},
	}
	for _, tt := range tests {
		got, err := ParseSRTTimestamp(tt.in)
		if err != nil {
			t.Errorf("ParseSRTTimestamp(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseSRTTimestamp(%q) = %f, want %f", tt.in, got, tt.want)
		}
	}
}

func TestParseSRTTimestamp_Invalid(t *testing.T) {
	for _, in := range []string{
		"",
		"00:00:01.500",
		"00:01,500",
		"00:60:00,000",
		"00:00:61,000",
		"aa:00:00,000",
		"00:00:00,50",
		"00:00:-1,000",
	} {
		if _, err := ParseSRTTimestamp(in); err == nil {
			t.Errorf("ParseSRTTimestamp(%q): expected error", in)
		}
	}
}

func TestFormatSRT(t *testing.T) {
	segments := []Segment{
		{ID: "a", Start: 0, End: 2.5, OriginalText: "Hello.", TranslatedText: "你好。"},
		{ID: "b", Start: 61.123, End: 65, OriginalText: "Bye.", TranslatedText: "再见。"},
	}

	want := "1\n00:00:00,000 --> 00:00:02,500\n你好。\n\n" +
		"2\n00:01:01,123 --> 00:01:05,000\n再见。\n"
	if got := FormatSRT(segments, 25); got != want {
		t.Errorf("FormatSRT mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatSRT_Empty(t *testing.T) {
	if got := FormatSRT(nil, 25); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestSRTRoundTrip(t *testing.T) {
	segments := []Segment{
		{ID: "1", Start: 0, End: 4.2, TranslatedText: "第一句。"},
		{ID: "2", Start: 4.2, End: 9.8764, TranslatedText: "这是一句非常非常长的中文翻译，它会超过每行二十五个字符的限制并被拆成两行。"},
		{ID: "3", Start: 60.001, End: 65.4321, TranslatedText: "第三句。"},
		{ID: "4", Start: 3599.9994, End: 3725.5, TranslatedText: "跨越一小时。"},
	}

	parsed, err := ParseSRT(FormatSRT(segments, 25))
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if len(parsed) != len(segments) {
		t.Fatalf("parsed %d cues, want %d", len(parsed), len(segments))
	}
	for i, seg := range segments {
		if math.Abs(parsed[i].Start-seg.Start) > 0.0005 {
			t.Errorf("cue %d start = %f, want %f (±1ms)", i+1, parsed[i].Start, seg.Start)
		}
		if math.Abs(parsed[i].End-seg.End) > 0.0005 {
			t.Errorf("cue %d end = %f, want %f (±1ms)", i+1, parsed[i].End, seg.End)
		}
		if strings.ReplaceAll(parsed[i].TranslatedText, "\n", "") != seg.TranslatedText {
			t.Errorf("cue %d text = %q, want %q", i+1, parsed[i].TranslatedText, seg.TranslatedText)
		}
	}
}

func TestParseSRT_Malformed(t *testing.T) {
	if _, err := ParseSRT("1\n00:00:01,000 00:00:02,000\ntext\n"); err == nil {
		t.Error("expected error for missing arrow")
	}
	if _, err := ParseSRT("1\n"); err == nil {
		t.Error("expected error for incomplete cue")
	}
}

func TestFormatText(t *testing.T) {
	segments := []Segment{
		{Start: 5, End: 9.9, OriginalText: " Hello. ", TranslatedText: "你好。"},
		{Start: 3661, End: 3670, OriginalText: "Later.", TranslatedText: "稍后。"},
	}
	want := "[00:05 - 00:09]\nHello.\n你好。\n\n[61:01 - 61:10]\nLater.\n稍后。\n"
	if got := FormatText(segments); got != want {
		t.Errorf("FormatText mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestOptimizeTextDisplay_ShortText(t *testing.T) {
	result := optimizeTextDisplay("Hello world", 42)
	if result != "Hello world" {
		t.Errorf("got %q, want 'Hello world'", result)
	}
}

func TestOptimizeTextDisplay_Empty(t *testing.T) {
	result := optimizeTextDisplay("", 42)
	if result != "" {
		t.Errorf("got %q, want empty string", result)
	}
}

func TestOptimizeTextDisplay_LongText(t *testing.T) {
	text := "This is a very long subtitle text that definitely exceeds the maximum characters per line limit"
	result := optimizeTextDisplay(text, 42)

	if lines := strings.Count(result, "\n"); lines != 1 {
		t.Errorf("expected exactly 1 newline (2 lines), got %d newlines", lines)
	}
}

func TestSplitTextIntoLines_ShortText(t *testing.T) {
	result := splitTextIntoLines("Hello", 42)
	if result != "Hello" {
		t.Errorf("got %q, want 'Hello'", result)
	}
}

func TestSplitTextIntoLines_SplitsAtSpace(t *testing.T) {
	result := splitTextIntoLines("Hello world foo bar baz", 12)
	if result != "Hello world\nfoo bar baz" {
		t.Errorf("got %q", result)
	}
}

func TestSplitTextIntoLines_CJKPunctuation(t *testing.T) {
	result := splitTextIntoLines("我们今天讨论音频分块，然后再讨论结果拼接的问题。", 12)
	if result != "我们今天讨论音频分块，\n然后再讨论结果拼接的问题。" {
		t.Errorf("got %q", result)
	}
}

func TestSplitTextIntoLines_ClosingMarkStaysOnFirstLine(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"一二三四五六七八九十，再说一遍", "一二三四五六七八九十，\n再说一遍"},
		{"一二三四五六七八九十。」好的", "一二三四五六七八九十。」\n好的"},
		{"一二三四五六七八九十《书名》", "一二三四五六七八九十\n《书名》"},
	}
	for _, tt := range tests {
		if got := splitTextIntoLines(tt.text, 10); got != tt.want {
			t.Errorf("splitTextIntoLines(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}
