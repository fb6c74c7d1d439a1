package model

import (
	"fmt"
	"strconv"
	"strings"
)

// patternSeparator joins individual patterns within a memory text blob.
const patternSeparator = "~"

// fieldSeparator joins a pattern's candle deltas from its high/low diff targets.
const fieldSeparator = "{}"

// PatternMemory holds the learned patterns for one coin on one timeframe: seven
// parallel sequences keyed by pattern index, plus a shared match threshold.
type PatternMemory struct {
	Patterns     [][]float64
	HighDiffs    []float64
	LowDiffs     []float64
	Weights      []float64
	WeightsHigh  []float64
	WeightsLow   []float64
	Threshold    float64
}

// Size is the number of stored patterns.
func (m PatternMemory) Size() int { return len(m.Patterns) }

// IsEmpty is true when the memory holds no patterns.
func (m PatternMemory) IsEmpty() bool { return len(m.Patterns) == 0 }

// Validate checks that all seven sequences are the same length and the
// threshold is non-negative.
func (m PatternMemory) Validate() error {
	n := len(m.Patterns)
	for name, seq := range map[string]int{
		"high_diffs":   len(m.HighDiffs),
		"low_diffs":    len(m.LowDiffs),
		"weights":      len(m.Weights),
		"weights_high": len(m.WeightsHigh),
		"weights_low":  len(m.WeightsLow),
	} {
		if seq != n {
			return fmt.Errorf("pattern memory: %s has length %d, want %d", name, seq, n)
		}
	}
	if m.Threshold < 0 {
		return fmt.Errorf("pattern memory: negative threshold %.8f", m.Threshold)
	}
	return nil
}

// ToMemoryText renders the patterns (not the weights or threshold, which live
// in their own sibling files) using the on-disk format:
// "v1 v2 … vK{}H{}L" patterns joined by "~".
func (m PatternMemory) ToMemoryText() string {
	entries := make([]string, 0, len(m.Patterns))
	for i, pattern := range m.Patterns {
		vals := make([]string, len(pattern))
		for j, v := range pattern {
			vals[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		entry := strings.Join(vals, " ") + fieldSeparator +
			strconv.FormatFloat(m.HighDiffs[i], 'g', -1, 64) + fieldSeparator +
			strconv.FormatFloat(m.LowDiffs[i], 'g', -1, 64)
		entries = append(entries, entry)
	}
	return strings.Join(entries, patternSeparator)
}

// FromMemoryText parses the pattern-memory on-disk format plus the three
// sibling weight-file contents and a threshold into a PatternMemory. Blank
// entries and unparsable floats are skipped rather than aborting the whole
// file — a single corrupt pattern never poisons the rest.
func FromMemoryText(text, weightsText, weightsHighText, weightsLowText string, threshold float64) PatternMemory {
	var m PatternMemory
	m.Threshold = threshold

	for _, raw := range strings.Split(text, patternSeparator) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		fields := strings.Split(raw, fieldSeparator)
		if len(fields) < 3 {
			continue
		}
		pattern := parseFloatsSpace(fields[0])
		if len(pattern) == 0 {
			continue
		}
		high, okHigh := safeFloat(fields[1])
		low, okLow := safeFloat(fields[2])
		if !okHigh || !okLow {
			continue
		}
		m.Patterns = append(m.Patterns, pattern)
		m.HighDiffs = append(m.HighDiffs, high)
		m.LowDiffs = append(m.LowDiffs, low)
	}

	m.Weights = parseFloatsSpace(weightsText)
	m.WeightsHigh = parseFloatsSpace(weightsHighText)
	m.WeightsLow = parseFloatsSpace(weightsLowText)

	// Pad any short weight sequence with neutral 1.0/1.0/1.0 so a memory file
	// rewritten without matching weight files still yields a usable memory.
	n := len(m.Patterns)
	m.Weights = padFloats(m.Weights, n, 1.0)
	m.WeightsHigh = padFloats(m.WeightsHigh, n, 1.0)
	m.WeightsLow = padFloats(m.WeightsLow, n, 1.0)

	return m
}

// ToWeightsText renders one of the three weight sequences as a space-separated
// float list, matching the on-disk weight-file format.
func ToWeightsText(weights []float64) string {
	vals := make([]string, len(weights))
	for i, v := range weights {
		vals[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(vals, " ")
}

func padFloats(seq []float64, n int, fill float64) []float64 {
	if len(seq) >= n {
		return seq[:n]
	}
	out := make([]float64, n)
	copy(out, seq)
	for i := len(seq); i < n; i++ {
		out[i] = fill
	}
	return out
}

func parseFloatsSpace(text string) []float64 {
	var out []float64
	for _, tok := range strings.Fields(text) {
		if v, ok := safeFloat(tok); ok {
			out = append(out, v)
		}
	}
	return out
}

func safeFloat(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
