package timeline

import "math"

// EstimateSeconds converts a word count into seconds at wordsPerSecond, floored at minSeconds.
func EstimateSeconds(words int, wordsPerSecond, minSeconds float64) float64 {
	if wordsPerSecond <= 0 {
		return minSeconds
	}
	return math.Max(float64(words)/wordsPerSecond, minSeconds)
}

// SegmentDuration picks the length of a segment: the measured audio duration when
// known, else the segment's known duration, else an estimate from its word count.
// Measured and known durations are only raised to twice the transition so every clip
// leaves room for its incoming and outgoing transitions.
func SegmentDuration(in Input, opts Options) float64 {
	floor := 2 * opts.TransitionSeconds
	switch {
	case usable(in.AudioDuration):
		return math.Max(in.AudioDuration, floor)
	case usable(in.Segment.Duration):
		return math.Max(in.Segment.Duration, floor)
	default:
		return math.Max(EstimateSeconds(in.Segment.WordCount(), opts.WordsPerSecond, opts.MinSegmentSeconds), floor)
	}
}

func usable(seconds float64) bool {
	return seconds > 0 && !math.IsNaN(seconds) && !math.IsInf(seconds, 0)
}

// round keeps float sums stable to the millisecond.
func round(seconds float64) float64 {
	return math.Round(seconds*1000) / 1000
}
