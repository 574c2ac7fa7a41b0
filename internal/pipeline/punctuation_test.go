package pipeline

import (
	"testing"
)

func TestGetPriority(t *testing.T) {
	tests := []struct {
		r        rune
		expected int
	}{
		// High priority
		{'.', priorityHigh},
		{'!', priorityHigh},
		{'?', priorityHigh},
		{'。', priorityHigh},
		{'！', priorityHigh},
		{'？', priorityHigh},

		// Medium priority
		{';', priorityMedium},
		{':', priorityMedium},
		{')', priorityMedium},
		{'；', priorityMedium},
		{'：', priorityMedium},
		{'」', priorityMedium},

		// Low priority
		{',', priorityLow},
		{'(', priorityLow},
		{'-', priorityLow},
		{'，', priorityLow},
		{'、', priorityLow},
		{'…', priorityLow},

		// None
		{'a', priorityNone},
		{'1', priorityNone},
		{' ', priorityNone},
		{'中', priorityNone},
	}

	for _, tt := range tests {
		got := getPriority(tt.r)
		if got != tt.expected {
			t.Errorf("getPriority(%q) = %d, want %d", tt.r, got, tt.expected)
		}
	}
}

func TestIsPunctuation(t *testing.T) {
	tests := []struct {
		r    rune
		want bool
	}{
		{'.', true},
		{',', true},
		{'，', true},
		{'…', true},
		{'a', false},
		{' ', false},
	}
	for _, tt := range tests {
		if got := isPunctuation(tt.r); got != tt.want {
			t.Errorf("isPunctuation(%q) = %v, want %v", tt.r, got, tt.want)
		}
	}
}

func TestFindSplitPosition(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   int
	}{
		{"fits", "short", 10, 5},
		{"space", "aaaa bbbb cccc", 10, 9},
		{"prefers sentence end over comma", "一二三四。五，六七八九十", 8, 5},
		{"comma in second half", "一二三四五，六七八九十", 8, 6},
		{"punctuation in first half ignored", "一，三四五六七八九十", 8, 8},
		{"hard cut", "一二三四五六七八九十", 8, 8},
	}
	for _, tt := range tests {
		if got := findSplitPosition(tt.text, tt.maxLen); got != tt.want {
			t.Errorf("%s: findSplitPosition(%q, %d) = %d, want %d", tt.name, tt.text, tt.maxLen, got, tt.want)
		}
	}
}
