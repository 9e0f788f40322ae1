package timeline

import (
	"io"
	"log/slog"
	"math"
)

const (
	// ZoomStep is the visible-duration factor applied per zoom-in tick.
	ZoomStep = 0.85
	// PanFraction is the share of the visible duration moved per key press.
	PanFraction = 0.1
	// DefaultThumbnailCount is used until the container has been measured.
	DefaultThumbnailCount = 10
)

// Mode is the viewport lifecycle state.
type Mode int

const (
	// ModeUninitialized: duration unknown, all outputs empty.
	ModeUninitialized Mode = iota
	// ModeAutoFit: the viewport tracks the full duration.
	ModeAutoFit
	// ModeUserControlled: the user zoomed or panned; duration refinements
	// clamp instead of resetting.
	ModeUserControlled
)

func (m Mode) String() string {
	switch m {
	case ModeAutoFit:
		return "auto_fit"
	case ModeUserControlled:
		return "user_controlled"
	default:
		return "uninitialized"
	}
}

// Layout describes the thumbnail strip in pixels.
type Layout struct {
	ContainerWidthPx float64
	ThumbWidthPx     float64
	GapPx            float64
}

// ThumbnailCount returns how many thumbnails fit in containerWidthPx.
func (l Layout) ThumbnailCount(containerWidthPx float64) int {
	pitch := l.ThumbWidthPx + l.GapPx
	if containerWidthPx <= 0 || pitch <= 0 {
		return DefaultThumbnailCount
	}
	n := int(math.Floor((containerWidthPx + l.GapPx) / pitch))
	if n < 1 {
		return 1
	}
	return n
}

// Viewport owns the visible sub-range of the timeline.
type Viewport struct {
	tl     *Timeline
	layout Layout
	cache  ThumbnailCache
	logger *slog.Logger

	mode     Mode
	startSec float64
	durSec   float64

	requested []float64
	bucket    int
}

// NewViewport attaches a viewport to tl. cache may be nil.
func NewViewport(tl *Timeline, layout Layout, cache ThumbnailCache, logger *slog.Logger) *Viewport {
	if cache == nil {
		cache = noopCache{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	v := &Viewport{
		tl:     tl,
		layout: layout,
		cache:  cache,
		logger: logger,
		bucket: -1,
	}
	tl.Subscribe(v)
	if tl.Loaded() {
		v.fit()
	}
	return v
}

// Mode returns the current lifecycle state.
func (v *Viewport) Mode() Mode { return v.mode }

// VisibleStart returns the first visible second.
func (v *Viewport) VisibleStart() float64 { return v.startSec }

// VisibleDuration returns the visible span in seconds.
func (v *Viewport) VisibleDuration() float64 { return v.durSec }

// VisibleEnd returns VisibleStart + VisibleDuration.
func (v *Viewport) VisibleEnd() float64 { return v.startSec + v.durSec }

// Layout returns the current strip geometry.
func (v *Viewport) Layout() Layout { return v.layout }

// Contains reports whether sec lies inside the visible range.
func (v *Viewport) Contains(sec float64) bool {
	return sec >= v.startSec && sec <= v.startSec+v.durSec
}

// ThumbnailCount returns the number of thumbnails for containerWidthPx
// using the viewport's thumbnail size and gap.
func (v *Viewport) ThumbnailCount(containerWidthPx float64) int {
	return v.layout.ThumbnailCount(containerWidthPx)
}

// MinDuration is the narrowest visible span: one frame per thumbnail,
// never more than the media duration.
func (v *Viewport) MinDuration() float64 {
	d := v.tl.Duration()
	perFrame := float64(v.ThumbnailCount(v.layout.ContainerWidthPx)) / v.tl.FrameRate()
	return math.Min(perFrame, d)
}

// MaxDuration is the media duration.
func (v *Viewport) MaxDuration() float64 { return v.tl.Duration() }

// ZoomLevel maps the visible duration onto [0,1]; 0 is fully zoomed out.
func (v *Viewport) ZoomLevel() float64 {
	hi, lo := v.MaxDuration(), v.MinDuration()
	if hi-lo <= 0 {
		return 0
	}
	return clamp((hi-v.durSec)/(hi-lo), 0, 1)
}

// CoordinateSpace maps pointer positions on the zoomed strip to time.
func (v *Viewport) CoordinateSpace() CoordinateSpace {
	return CoordinateSpace{
		VisibleStart:     v.startSec,
		VisibleEnd:       v.startSec + v.durSec,
		ContainerWidthPx: v.layout.ContainerWidthPx,
	}
}

// Timestamps returns the thumbnail positions for the visible range using
// fence-post spacing, so the last point lands on the visible end.
func (v *Viewport) Timestamps() []float64 {
	if v.mode == ModeUninitialized {
		return nil
	}
	n := v.ThumbnailCount(v.layout.ContainerWidthPx)
	if n <= 1 {
		return []float64{v.startSec}
	}
	interval := v.durSec / float64(n-1)
	ts := make([]float64, n)
	for i := range ts {
		ts[i] = v.startSec + float64(i)*interval
	}
	ts[n-1] = v.startSec + v.durSec
	return ts
}

// SetContainerWidth records a new measurement of the strip.
func (v *Viewport) SetContainerWidth(px float64) {
	if px == v.layout.ContainerWidthPx {
		return
	}
	v.layout.ContainerWidthPx = px
	v.reclamp()
}

// HandleWheel zooms around the pointer. A negative deltaY zooms in; zero is
// ignored. The time under the pointer stays under the pointer.
func (v *Viewport) HandleWheel(pointerXPx, deltaY, containerWidthPx float64) {
	if v.mode == ModeUninitialized || deltaY == 0 || math.IsNaN(deltaY) {
		return
	}
	if containerWidthPx > 0 {
		v.layout.ContainerWidthPx = containerWidthPx
	}

	fraction := 0.5
	if containerWidthPx > 0 {
		fraction = clamp(pointerXPx/containerWidthPx, 0, 1)
	}

	cur := v.durSec
	anchor := v.startSec + fraction*cur

	factor := 1 / ZoomStep
	if deltaY < 0 {
		factor = ZoomStep
	}
	newDur := clamp(cur*factor, v.MinDuration(), v.MaxDuration())
	newStart := anchor - fraction*newDur

	v.setMode(ModeUserControlled)
	v.apply(newStart, newDur)
}

// SetZoomCenter re-centers the current window on percent of the duration.
// It does not change the mode; playback follow and click seeks use it.
func (v *Viewport) SetZoomCenter(percent float64) {
	if v.mode == ModeUninitialized || math.IsNaN(percent) {
		return
	}
	center := clamp(percent, 0, 1) * v.tl.Duration()
	v.apply(center-v.durSec/2, v.durSec)
}

// SetVisibleRange overrides the window, clamped to the invariants.
func (v *Viewport) SetVisibleRange(startSec, durationSec float64) {
	if v.mode == ModeUninitialized {
		return
	}
	v.setMode(ModeUserControlled)
	v.apply(startSec, durationSec)
}

// PanBy shifts the window by deltaSec without changing its span.
func (v *Viewport) PanBy(deltaSec float64) {
	v.SetVisibleRange(v.startSec+deltaSec, v.durSec)
}

// PanStep moves one keyboard step; direction < 0 pans toward the start.
func (v *Viewport) PanStep(direction int) {
	switch {
	case direction < 0:
		v.PanBy(-PanFraction * v.durSec)
	case direction > 0:
		v.PanBy(PanFraction * v.durSec)
	}
}

// PanPixels converts a drag of deltaPx on a strip of widthPx into a pan.
// Dragging right reveals earlier time.
func (v *Viewport) PanPixels(deltaPx, widthPx float64) {
	if widthPx <= 0 {
		return
	}
	v.PanBy(-deltaPx / widthPx * v.durSec)
}

// Fit returns to the full range and hands control back to AutoFit.
func (v *Viewport) Fit() {
	if v.mode == ModeUninitialized {
		return
	}
	v.fit()
}

// TimelineChanged implements Observer.
func (v *Viewport) TimelineChanged(c Change, tl *Timeline) {
	switch c {
	case ChangeMedia:
		v.cache.CancelPending()
		v.requested = nil
		v.bucket = -1
		if !tl.Loaded() {
			v.reset()
			return
		}
		v.fit()
	case ChangeDuration:
		if !tl.Loaded() {
			v.reset()
			return
		}
		if v.mode != ModeUserControlled {
			v.fit()
			return
		}
		v.apply(v.startSec, v.durSec)
	case ChangeFrameRate:
		v.reclamp()
	}
}

func (v *Viewport) reclamp() {
	switch v.mode {
	case ModeUninitialized:
	case ModeAutoFit:
		v.fit()
	default:
		v.apply(v.startSec, v.durSec)
	}
}

func (v *Viewport) fit() {
	v.setMode(ModeAutoFit)
	v.apply(0, v.tl.Duration())
}

func (v *Viewport) reset() {
	v.setMode(ModeUninitialized)
	v.startSec, v.durSec = 0, 0
	v.requested = nil
}

// apply commits a clamped window and keeps the thumbnail requests in sync.
func (v *Viewport) apply(startSec, durationSec float64) {
	hi := v.MaxDuration()
	if math.IsNaN(durationSec) {
		durationSec = v.durSec
	}
	if math.IsNaN(startSec) {
		startSec = v.startSec
	}
	v.durSec = clamp(durationSec, v.MinDuration(), hi)
	v.startSec = clamp(startSec, 0, hi-v.durSec)
	v.syncThumbnails()
}

func (v *Viewport) setMode(m Mode) {
	if v.mode == m {
		return
	}
	v.logger.Debug("viewport mode changed", "from", v.mode.String(), "to", m.String())
	v.mode = m
}

func (v *Viewport) syncThumbnails() {
	ts := v.Timestamps()
	if equalTimestamps(ts, v.requested) {
		return
	}
	b := v.zoomBucket()
	if v.requested != nil && b != v.bucket {
		v.cache.CancelPending()
	}
	v.bucket = b
	v.requested = ts
	if len(ts) > 0 {
		v.cache.RequestThumbnails(ts)
	}
}

// zoomBucket changes once per doubling of magnification, so panning and
// small zoom adjustments keep earlier requests alive.
func (v *Viewport) zoomBucket() int {
	if v.durSec <= 0 {
		return -1
	}
	return int(math.Floor(math.Log2(v.MaxDuration()/v.durSec) + 1e-9))
}

func equalTimestamps(a, b []float64) bool {
	if len(a) != len(b) || (a == nil) != (b == nil) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
