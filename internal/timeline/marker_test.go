package timeline

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fullStrip maps 1 px to 1 s over a 100 s timeline.
var fullStrip = CoordinateSpace{VisibleStart: 0, VisibleEnd: 100, ContainerWidthPx: 100}

func newTestMarkers(t *testing.T, duration float64) (*Timeline, *Markers, *fakeSeeker, *[]MarkerEvent) {
	t.Helper()
	tl := New()
	seeker := &fakeSeeker{}
	m := NewMarkers(tl, DefaultSelection(OperationTrim, 0), seeker, nil)
	events := &[]MarkerEvent{}
	m.Subscribe(func(ev MarkerEvent) { *events = append(*events, ev) })
	tl.LoadMedia(duration, 30)
	return tl, m, seeker, events
}

func TestMarkers_DefaultSelectionOnLoad(t *testing.T) {
	_, m, _, _ := newTestMarkers(t, 100)
	assert.Equal(t, Selection{Start: 0, End: 100}, m.Selection())

	tl := New()
	gif := NewMarkers(tl, DefaultSelection(OperationGIF, 0), nil, nil)
	tl.LoadMedia(100, 30)
	assert.Equal(t, Selection{Start: 0, End: DefaultGIFWindowSec}, gif.Selection())

	tl.LoadMedia(2, 30)
	assert.Equal(t, Selection{Start: 0, End: 2}, gif.Selection())
}

func TestMarkers_DragStartThroughEndSwaps(t *testing.T) {
	_, m, seeker, _ := newTestMarkers(t, 100)
	m.SetSelection(10, 50)

	s, err := m.BeginDrag(MarkerStart, fullStrip)
	require.NoError(t, err)
	defer s.End()

	got := s.Move(60)

	assert.Equal(t, Selection{Start: 50, End: 60}, got)
	assert.Equal(t, MarkerEnd, s.Marker())
	assert.Equal(t, []float64{60}, seeker.positions)

	got = s.Move(65)
	assert.Equal(t, Selection{Start: 50, End: 65}, got)
}

func TestMarkers_DragEndThroughStartSwaps(t *testing.T) {
	_, m, seeker, _ := newTestMarkers(t, 100)
	m.SetSelection(10, 50)

	s, err := m.BeginDrag(MarkerEnd, fullStrip)
	require.NoError(t, err)
	defer s.End()

	assert.Equal(t, Selection{Start: 5, End: 10}, s.Move(5))
	assert.Equal(t, MarkerStart, s.Marker())
	assert.Equal(t, Selection{Start: 2, End: 10}, s.Move(2))
	assert.Equal(t, Selection{Start: 10, End: 30}, s.Move(30))
	assert.Equal(t, MarkerEnd, s.Marker())
	assert.Equal(t, []float64{5, 2, 30}, seeker.positions)
}

func TestMarkers_DragOntoOppositeMarkerAllowsZeroLength(t *testing.T) {
	_, m, _, _ := newTestMarkers(t, 100)
	m.SetSelection(10, 50)

	s, err := m.BeginDrag(MarkerStart, fullStrip)
	require.NoError(t, err)
	sel := s.Move(50)
	s.End()

	assert.Equal(t, Selection{Start: 50, End: 50}, sel)
	assert.True(t, sel.SingleFrame())
	assert.Equal(t, MarkerStart, s.Marker())
}

func TestMarkers_MoveQuantizesAndClamps(t *testing.T) {
	_, m, _, _ := newTestMarkers(t, 100)
	space := CoordinateSpace{VisibleStart: 0, VisibleEnd: 100, ContainerWidthPx: 700}

	s, err := m.BeginDrag(MarkerEnd, space)
	require.NoError(t, err)
	defer s.End()

	sel := s.Move(333)
	assert.Equal(t, SnapTimeToFrame(100*333.0/700, 30, 100), sel.End)
	assert.Equal(t, TimeToFrame(sel.End, 30), TimeToFrame(SnapTimeToFrame(sel.End, 30, 100), 30))

	assert.Equal(t, 100.0, s.Move(9999).End)
	assert.Equal(t, Selection{Start: 0, End: 0}, s.Move(-50))
}

func TestMarkers_ZoomedSpaceMapsThroughVisibleRange(t *testing.T) {
	tl, m, _, _ := newTestMarkers(t, 100)
	v := NewViewport(tl, Layout{ContainerWidthPx: 400, ThumbWidthPx: 96, GapPx: 4}, nil, nil)
	v.SetVisibleRange(40, 20)

	s, err := m.BeginDrag(MarkerStart, v.CoordinateSpace())
	require.NoError(t, err)
	defer s.End()

	assert.Equal(t, 45.0, s.Move(100).Start)
}

func TestMarkers_SpaceCapturedAtPointerDown(t *testing.T) {
	tl, m, _, _ := newTestMarkers(t, 100)
	v := NewViewport(tl, Layout{ContainerWidthPx: 100, ThumbWidthPx: 10, GapPx: 0}, nil, nil)
	v.SetVisibleRange(0, 50)

	s, err := m.BeginDrag(MarkerEnd, v.CoordinateSpace())
	require.NoError(t, err)
	defer s.End()

	v.SetVisibleRange(50, 50)
	assert.Equal(t, 25.0, s.Move(50).End)
}

func TestMarkers_OverlappingDragRejected(t *testing.T) {
	_, m, _, _ := newTestMarkers(t, 100)

	first, err := m.BeginDrag(MarkerStart, fullStrip)
	require.NoError(t, err)

	second, err := m.BeginDrag(MarkerEnd, fullStrip)
	assert.ErrorIs(t, err, ErrDragActive)
	assert.Nil(t, second)

	marker, ok := m.ActiveDragMarker()
	assert.True(t, ok)
	assert.Equal(t, MarkerStart, marker)

	first.End()
	assert.False(t, m.IsDragging())

	third, err := m.BeginDrag(MarkerEnd, fullStrip)
	require.NoError(t, err)
	third.End()
}

func TestMarkers_EndIsIdempotentAndStaleMovesIgnored(t *testing.T) {
	_, m, seeker, events := newTestMarkers(t, 100)
	m.SetSelection(10, 50)
	*events = nil

	s, err := m.BeginDrag(MarkerStart, fullStrip)
	require.NoError(t, err)
	s.Move(20)
	s.End()
	s.End()
	s.Cancel()

	assert.Equal(t, Selection{Start: 20, End: 50}, s.Move(30))
	assert.Equal(t, Selection{Start: 20, End: 50}, m.Selection())
	assert.Len(t, seeker.positions, 1)

	kinds := make([]MarkerEventKind, 0, len(*events))
	for _, ev := range *events {
		kinds = append(kinds, ev.Kind)
	}
	assert.Equal(t, []MarkerEventKind{EventDragStarted, EventSelectionChanged, EventDragEnded}, kinds)
}

func TestMarkers_CancelRestoresSelection(t *testing.T) {
	_, m, _, _ := newTestMarkers(t, 100)
	m.SetSelection(10, 50)

	s, err := m.BeginDrag(MarkerEnd, fullStrip)
	require.NoError(t, err)
	s.Move(5)
	s.Cancel()

	assert.Equal(t, Selection{Start: 10, End: 50}, m.Selection())
	assert.False(t, m.IsDragging())
}

func TestMarkers_NewMediaClosesDragAndResets(t *testing.T) {
	tl, m, _, events := newTestMarkers(t, 100)
	s, err := m.BeginDrag(MarkerStart, fullStrip)
	require.NoError(t, err)
	s.Move(30)

	tl.LoadMedia(40, 25)

	assert.False(t, m.IsDragging())
	assert.False(t, s.Active())
	assert.Equal(t, Selection{Start: 0, End: 40}, m.Selection())

	var cancelled bool
	for _, ev := range *events {
		if ev.Kind == EventDragCancelled {
			cancelled = true
		}
	}
	assert.True(t, cancelled)
}

func TestMarkers_SetSelectionOrdersAndQuantizes(t *testing.T) {
	_, m, _, _ := newTestMarkers(t, 100)

	sel := m.SetSelection(70.01, 12.02)
	assert.Equal(t, SnapTimeToFrame(12.02, 30, 100), sel.Start)
	assert.Equal(t, SnapTimeToFrame(70.01, 30, 100), sel.End)

	sel = m.SetSelection(-5, 500)
	assert.Equal(t, Selection{Start: 0, End: 100}, sel)
}

func TestMarkers_DurationChangeRequantizes(t *testing.T) {
	tl, m, _, _ := newTestMarkers(t, 100)
	m.SetSelection(20, 90)

	tl.SetDuration(60)
	assert.Equal(t, Selection{Start: 20, End: 60}, m.Selection())

	tl.SetFrameRate(4)
	m.SetSelection(10.1, 20.3)
	assert.Equal(t, Selection{Start: 10, End: 20.25}, m.Selection())
}

func TestMarkers_SelectionInvariantUnderRandomDrags(t *testing.T) {
	tl, m, _, _ := newTestMarkers(t, 250)
	v := NewViewport(tl, testLayout, nil, nil)
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 500; i++ {
		space := FullSpace(tl, 900)
		if rng.Intn(2) == 0 {
			v.HandleWheel(rng.Float64()*800, -1, 800)
			space = v.CoordinateSpace()
		}
		s, err := m.BeginDrag(Marker(rng.Intn(2)), space)
		require.NoError(t, err)
		for j := 0; j < 10; j++ {
			sel := s.Move(rng.Float64()*1400 - 200)
			require.LessOrEqual(t, sel.Start, sel.End)
			require.Equal(t, tl.Snap(sel.Start), sel.Start)
			require.Equal(t, tl.Snap(sel.End), sel.End)
		}
		if rng.Intn(4) == 0 {
			s.Cancel()
		} else {
			s.End()
		}
		require.LessOrEqual(t, m.StartTime(), m.EndTime())
	}
}

func TestCoordinateSpace_TimeAt(t *testing.T) {
	space := CoordinateSpace{VisibleStart: 10, VisibleEnd: 30, ContainerWidthPx: 200}

	assert.Equal(t, 10.0, space.TimeAt(-1))
	assert.Equal(t, 20.0, space.TimeAt(100))
	assert.Equal(t, 30.0, space.TimeAt(201))
	assert.Equal(t, 10.0, CoordinateSpace{VisibleStart: 10, VisibleEnd: 30}.TimeAt(50))
}

func TestMarkers_UntouchedSelectionFollowsDuration(t *testing.T) {
	tl, m, _, _ := newTestMarkers(t, 0)
	assert.Equal(t, Selection{}, m.Selection())

	tl.SetDuration(42)
	assert.Equal(t, Selection{Start: 0, End: 42}, m.Selection())

	tl.SetDuration(45)
	assert.Equal(t, Selection{Start: 0, End: 45}, m.Selection())

	m.SetSelection(5, 40)
	tl.SetDuration(50)
	assert.Equal(t, Selection{Start: 5, End: 40}, m.Selection())
}

func TestMarkers_CancelKeepsSelectionUntouched(t *testing.T) {
	tl, m, _, _ := newTestMarkers(t, 20)

	s, err := m.BeginDrag(MarkerEnd, FullSpace(tl, 200))
	require.NoError(t, err)
	s.Move(100)
	s.Cancel()

	tl.SetDuration(30)
	assert.Equal(t, Selection{Start: 0, End: 30}, m.Selection())
}
