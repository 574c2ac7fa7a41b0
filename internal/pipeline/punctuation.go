package pipeline

import "strings"

// Punctuation priority levels, lower is a better line break.
const (
	priorityHigh   = 0
	priorityMedium = 1
	priorityLow    = 2
	priorityNone   = -1
)

var highPriority = map[rune]struct{}{
	'.': {}, '!': {}, '?': {},
	'。': {}, '！': {}, '？': {}, // 。！？
}

var mediumPriority = map[rune]struct{}{
	';': {}, ':': {}, ')': {}, ']': {}, '}': {},
	'；': {}, '：': {}, '》': {}, '」': {}, '】': {}, '）': {}, // ；：》」】）
}

var lowPriority = map[rune]struct{}{
	',': {}, '(': {}, '[': {}, '{': {}, '-': {},
	'，': {}, '、': {}, '《': {}, '「': {}, '【': {}, '（': {}, // ，、《「【（
	'…': {}, // …
}

// getPriority returns the priority of a punctuation rune.
func getPriority(r rune) int {
	if _, ok := highPriority[r]; ok {
		return priorityHigh
	}
	if _, ok := mediumPriority[r]; ok {
		return priorityMedium
	}
	if _, ok := lowPriority[r]; ok {
		return priorityLow
	}
	return priorityNone
}

// isPunctuation checks whether a rune is in any punctuation set.
func isPunctuation(r rune) bool {
	return getPriority(r) != priorityNone
}

// isOpening reports whether r opens a bracket or quote.
func isOpening(r rune) bool {
	return strings.ContainsRune("([{《「【（", r)
}

// findSplitPosition finds the best position to split text at or before maxLen
// (in runes). Breaking after the strongest punctuation in the second half of
// the line wins; otherwise the last space; otherwise a hard cut at maxLen.
// Translations are mostly CJK without spaces, so punctuation matters more than
// word boundaries.
func findSplitPosition(text string, maxLen int) int {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return len(runes)
	}

	bestPos, bestPriority := -1, priorityNone
	for i := maxLen - 1; i >= maxLen/2 && i > 0; i-- {
		p := getPriority(runes[i])
		if p == priorityNone {
			continue
		}
		if bestPos < 0 || p < bestPriority {
			bestPos, bestPriority = i+1, p
		}
		if p == priorityHigh {
			break
		}
	}
	if bestPos > 0 {
		return bestPos
	}

	for i := maxLen; i > 0; i-- {
		if runes[i] == ' ' {
			return i
		}
	}
	return maxLen
}
