// Package timeline implements the scrubber engine behind the trim and GIF
// screens: frame quantization, the zoomable viewport over a single media
// timeline, and the start/end selection markers.
//
// All types in this package are single-writer. Callers that receive events
// from several goroutines must serialize them (see internal/editor).
package timeline

import (
	"fmt"
	"math"
)

// DefaultFrameRate is used whenever the frame rate is unknown or invalid.
const DefaultFrameRate = 30.0

// EffectiveFrameRate substitutes DefaultFrameRate for non-positive or
// non-finite rates.
func EffectiveFrameRate(fps float64) float64 {
	if fps > 0 && !math.IsInf(fps, 0) && !math.IsNaN(fps) {
		return fps
	}
	return DefaultFrameRate
}

// SnapTimeToFrame rounds t to the nearest frame boundary and clamps the
// result to [0, duration]. The media end is always reachable even when the
// duration does not fall on a frame boundary, which keeps the function
// idempotent.
func SnapTimeToFrame(t, fps, duration float64) float64 {
	f := EffectiveFrameRate(fps)
	duration = math.Max(duration, 0)
	if math.IsNaN(t) || t <= 0 {
		return 0
	}
	if t >= duration {
		return duration
	}
	snapped := math.Round(t*f) / f
	return clamp(snapped, 0, duration)
}

// TimeToFrame returns the frame index containing t, using the same rounding
// as SnapTimeToFrame.
func TimeToFrame(t, fps float64) int64 {
	return int64(math.Round(t * EffectiveFrameRate(fps)))
}

// FrameToTime is the inverse of TimeToFrame.
func FrameToTime(frame int64, fps float64) float64 {
	return float64(frame) / EffectiveFrameRate(fps)
}

// FormatTimecode renders t as HH:MM:SS:FF at the rounded frame rate.
func FormatTimecode(t, fps float64) string {
	base := int64(math.Round(EffectiveFrameRate(fps)))
	if base <= 0 {
		base = int64(DefaultFrameRate)
	}
	frames := TimeToFrame(math.Max(t, 0), float64(base))
	ff := frames % base
	totalSeconds := frames / base
	return fmt.Sprintf("%02d:%02d:%02d:%02d", totalSeconds/3600, (totalSeconds/60)%60, totalSeconds%60, ff)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
