package timeline

import (
	"errors"
	"io"
	"log/slog"
	"math"
)

var (
	// ErrDragActive is returned when a drag begins while another is open.
	ErrDragActive = errors.New("marker drag already active")
	// ErrNoDrag is returned for drag commands with no open session.
	ErrNoDrag = errors.New("no marker drag in progress")
)

// Marker identifies one of the two selection handles.
type Marker int

const (
	MarkerStart Marker = iota
	MarkerEnd
)

// ParseMarker accepts "start" or "end".
func ParseMarker(s string) (Marker, bool) {
	switch s {
	case "start":
		return MarkerStart, true
	case "end":
		return MarkerEnd, true
	}
	return MarkerStart, false
}

func (m Marker) String() string {
	if m == MarkerEnd {
		return "end"
	}
	return "start"
}

// Opposite returns the other handle.
func (m Marker) Opposite() Marker {
	if m == MarkerEnd {
		return MarkerStart
	}
	return MarkerEnd
}

// CoordinateSpace is one strip a pointer can drag on: the full-timeline
// scrubber or the zoomed thumbnail strip.
type CoordinateSpace struct {
	VisibleStart     float64
	VisibleEnd       float64
	ContainerWidthPx float64
}

// FullSpace spans the whole timeline over widthPx.
func FullSpace(tl *Timeline, widthPx float64) CoordinateSpace {
	return CoordinateSpace{VisibleStart: 0, VisibleEnd: tl.Duration(), ContainerWidthPx: widthPx}
}

// TimeAt maps a pointer x offset to unquantized time. Positions outside the
// strip clamp to its edges.
func (c CoordinateSpace) TimeAt(pointerXPx float64) float64 {
	fraction := 0.0
	if c.ContainerWidthPx > 0 && !math.IsNaN(pointerXPx) {
		fraction = clamp(pointerXPx/c.ContainerWidthPx, 0, 1)
	}
	return c.VisibleStart + fraction*(c.VisibleEnd-c.VisibleStart)
}

// Selection is the frame-quantized [Start, End] range. Start == End is a
// valid single-frame selection.
type Selection struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End - Start.
func (s Selection) Duration() float64 { return s.End - s.Start }

// SingleFrame reports a zero-length selection.
func (s Selection) SingleFrame() bool { return s.Start == s.End }

// Seeker receives the live preview position while scrubbing.
type Seeker interface {
	Seek(sec float64)
}

// MarkerEventKind classifies marker notifications.
type MarkerEventKind int

const (
	EventDragStarted MarkerEventKind = iota
	EventDragSwapped
	EventDragEnded
	EventDragCancelled
	EventSelectionChanged
)

func (k MarkerEventKind) String() string {
	switch k {
	case EventDragStarted:
		return "drag_started"
	case EventDragSwapped:
		return "drag_swapped"
	case EventDragEnded:
		return "drag_ended"
	case EventDragCancelled:
		return "drag_cancelled"
	default:
		return "selection_changed"
	}
}

// MarkerEvent is delivered to listeners after the state has been committed.
// Marker is the handle being dragged, after any swap.
type MarkerEvent struct {
	Kind      MarkerEventKind
	Marker    Marker
	Selection Selection
}

// Markers owns the selection and the marker drag lifecycle.
type Markers struct {
	tl       *Timeline
	defaults SelectionDefaults
	seeker   Seeker
	logger   *slog.Logger

	sel       Selection
	pristine  bool
	active    *DragSession
	listeners []func(MarkerEvent)
}

// NewMarkers attaches a marker controller to tl. defaults and seeker may be
// nil; defaults then select the full duration.
func NewMarkers(tl *Timeline, defaults SelectionDefaults, seeker Seeker, logger *slog.Logger) *Markers {
	if defaults == nil {
		defaults = DefaultSelection(OperationTrim, 0)
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := &Markers{tl: tl, defaults: defaults, seeker: seeker, logger: logger}
	tl.Subscribe(m)
	m.resetSelection()
	return m
}

// Subscribe registers fn for marker events.
func (m *Markers) Subscribe(fn func(MarkerEvent)) {
	m.listeners = append(m.listeners, fn)
}

// Selection returns the committed selection.
func (m *Markers) Selection() Selection { return m.sel }

// StartTime returns the selection start in seconds.
func (m *Markers) StartTime() float64 { return m.sel.Start }

// EndTime returns the selection end in seconds.
func (m *Markers) EndTime() float64 { return m.sel.End }

// IsDragging reports whether a drag session is open.
func (m *Markers) IsDragging() bool { return m.active != nil }

// ActiveDragMarker returns the handle being dragged.
func (m *Markers) ActiveDragMarker() (Marker, bool) {
	if m.active == nil {
		return MarkerStart, false
	}
	return m.active.marker, true
}

// ActiveDrag returns the open session, or nil.
func (m *Markers) ActiveDrag() *DragSession { return m.active }

// SetDefaults replaces the selection defaults used on the next media load.
func (m *Markers) SetDefaults(defaults SelectionDefaults) {
	if defaults != nil {
		m.defaults = defaults
	}
}

// SetSelection assigns both ends at once, e.g. from form inputs. Values are
// quantized and an inverted pair is swapped.
func (m *Markers) SetSelection(startSec, endSec float64) Selection {
	m.pristine = false
	return m.assign(startSec, endSec)
}

func (m *Markers) assign(startSec, endSec float64) Selection {
	s := Selection{Start: m.tl.Snap(startSec), End: m.tl.Snap(endSec)}
	if s.Start > s.End {
		s.Start, s.End = s.End, s.Start
	}
	m.sel = s
	m.emit(EventSelectionChanged, MarkerStart)
	return m.sel
}

// BeginDrag opens a drag session for marker on space. Only one session may
// be open; callers must End or Cancel it on every exit path.
func (m *Markers) BeginDrag(marker Marker, space CoordinateSpace) (*DragSession, error) {
	if m.active != nil {
		return nil, ErrDragActive
	}
	s := &DragSession{m: m, marker: marker, space: space, origin: m.sel, pristine: m.pristine}
	m.active = s
	m.emit(EventDragStarted, marker)
	return s, nil
}

// TimelineChanged implements Observer. A selection the user has not touched
// follows duration refinements; an edited one is only re-quantized.
func (m *Markers) TimelineChanged(c Change, tl *Timeline) {
	switch {
	case c == ChangeMedia:
		if m.active != nil {
			m.active.close(EventDragCancelled)
		}
		m.resetSelection()
	case c == ChangeDuration && m.pristine && m.active == nil:
		m.resetSelection()
	default:
		m.assign(m.sel.Start, m.sel.End)
	}
}

func (m *Markers) resetSelection() {
	d := m.defaults(m.tl.Duration())
	m.assign(d.Start, d.End)
	m.pristine = true
}

func (m *Markers) emit(kind MarkerEventKind, marker Marker) {
	ev := MarkerEvent{Kind: kind, Marker: marker, Selection: m.sel}
	for _, fn := range m.listeners {
		fn(ev)
	}
}

// DragSession captures the gesture context from pointer-down to pointer-up.
type DragSession struct {
	m        *Markers
	marker   Marker
	space    CoordinateSpace
	origin   Selection
	pristine bool
	closed   bool
}

// Marker returns the handle currently being dragged. It flips when the
// pointer crosses the opposite handle.
func (s *DragSession) Marker() Marker { return s.marker }

// Active reports whether the session still owns the controller.
func (s *DragSession) Active() bool { return !s.closed && s.m.active == s }

// Move applies a pointer position. Crossing the opposite marker swaps the
// roles instead of clamping: dragging start past end makes the old end the
// new start and the pointer the new end.
func (s *DragSession) Move(pointerXPx float64) Selection {
	m := s.m
	if !s.Active() {
		return m.sel
	}
	q := m.tl.Snap(s.space.TimeAt(pointerXPx))
	m.pristine = false

	swapped := false
	switch s.marker {
	case MarkerStart:
		if q > m.sel.End {
			m.sel = Selection{Start: m.sel.End, End: q}
			swapped = true
		} else {
			m.sel.Start = q
		}
	case MarkerEnd:
		if q < m.sel.Start {
			m.sel = Selection{Start: q, End: m.sel.Start}
			swapped = true
		} else {
			m.sel.End = q
		}
	}

	if swapped {
		s.marker = s.marker.Opposite()
		m.logger.Debug("marker swapped", "now", s.marker.String(), "start", m.sel.Start, "end", m.sel.End)
		m.emit(EventDragSwapped, s.marker)
	}
	if m.seeker != nil {
		m.seeker.Seek(q)
	}
	m.emit(EventSelectionChanged, s.marker)
	return m.sel
}

// End commits the drag and releases the session. Idempotent.
func (s *DragSession) End() {
	s.close(EventDragEnded)
}

// Cancel restores the selection from pointer-down and releases the session.
// Idempotent; a no-op after End.
func (s *DragSession) Cancel() {
	if !s.Active() {
		return
	}
	tl := s.m.tl
	s.m.sel = Selection{Start: tl.Snap(s.origin.Start), End: tl.Snap(s.origin.End)}
	s.m.pristine = s.pristine
	s.close(EventDragCancelled)
}

func (s *DragSession) close(kind MarkerEventKind) {
	if s.closed {
		return
	}
	s.closed = true
	if s.m.active == s {
		s.m.active = nil
		s.m.emit(kind, s.marker)
	}
}
