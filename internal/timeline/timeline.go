package timeline

import "math"

// Change identifies what changed on a Timeline.
type Change int

const (
	// ChangeMedia means a new media file replaced the timeline wholesale.
	ChangeMedia Change = iota
	// ChangeDuration means the duration of the current media was refined.
	ChangeDuration
	// ChangeFrameRate means the frame-rate detector reported a new rate.
	ChangeFrameRate
)

func (c Change) String() string {
	switch c {
	case ChangeMedia:
		return "media"
	case ChangeDuration:
		return "duration"
	case ChangeFrameRate:
		return "frame_rate"
	default:
		return "unknown"
	}
}

// Observer is notified after the Timeline has committed a change.
type Observer interface {
	TimelineChanged(c Change, tl *Timeline)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(c Change, tl *Timeline)

func (f ObserverFunc) TimelineChanged(c Change, tl *Timeline) { f(c, tl) }

// Timeline is the single owned state of the media being edited. Viewport and
// Markers hold a non-owning reference and react to its notifications.
type Timeline struct {
	durationSec  float64
	frameRateFps float64
	generation   uint64

	observers []Observer
}

// New returns an empty timeline; duration is unknown until LoadMedia.
func New() *Timeline {
	return &Timeline{}
}

// Subscribe registers o. Observers are notified in registration order.
func (t *Timeline) Subscribe(o Observer) {
	t.observers = append(t.observers, o)
}

// LoadMedia replaces the timeline for a newly loaded file. Invalid durations
// are stored as zero, leaving dependents uninitialized.
func (t *Timeline) LoadMedia(durationSec, frameRateFps float64) {
	t.durationSec = sanitizeDuration(durationSec)
	t.frameRateFps = frameRateFps
	t.generation++
	t.notify(ChangeMedia)
}

// SetDuration refines the duration of the current media.
func (t *Timeline) SetDuration(durationSec float64) {
	d := sanitizeDuration(durationSec)
	if d == t.durationSec {
		return
	}
	t.durationSec = d
	t.notify(ChangeDuration)
}

// SetFrameRate records the detected frame rate of the current media.
func (t *Timeline) SetFrameRate(fps float64) {
	if fps == t.frameRateFps {
		return
	}
	t.frameRateFps = fps
	t.notify(ChangeFrameRate)
}

// Duration returns the media duration in seconds, zero when unknown.
func (t *Timeline) Duration() float64 { return t.durationSec }

// RawFrameRate returns the detected frame rate, possibly zero.
func (t *Timeline) RawFrameRate() float64 { return t.frameRateFps }

// FrameRate returns the frame rate used for quantization.
func (t *Timeline) FrameRate() float64 { return EffectiveFrameRate(t.frameRateFps) }

// Generation increments on every LoadMedia.
func (t *Timeline) Generation() uint64 { return t.generation }

// Loaded reports whether a positive duration is known.
func (t *Timeline) Loaded() bool { return t.durationSec > 0 }

// Snap quantizes sec to a frame boundary within the media.
func (t *Timeline) Snap(sec float64) float64 {
	return SnapTimeToFrame(sec, t.frameRateFps, t.durationSec)
}

func (t *Timeline) notify(c Change) {
	for _, o := range t.observers {
		o.TimelineChanged(c, t)
	}
}

func sanitizeDuration(d float64) float64 {
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0
	}
	return d
}
