package ui

import "strings"

// sparklineChars are the Unicode block characters used for bar rendering,
// eight levels from lowest to full height.
var sparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders values as a row of block characters scaled against the
// largest value. The stats command uses it to sketch the query latency
// histogram in one line. An empty or all-zero series renders as baseline
// bars.
func Sparkline(values []int64) string {
	if len(values) == 0 {
		return ""
	}

	var max int64
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	if max == 0 {
		return strings.Repeat(string(sparklineChars[0]), len(values))
	}

	var sb strings.Builder
	sb.Grow(len(values) * 3)
	for _, v := range values {
		if v < 0 {
			v = 0
		}
		idx := int(v * int64(len(sparklineChars)-1) / max)
		sb.WriteRune(sparklineChars[idx])
	}
	return sb.String()
}
