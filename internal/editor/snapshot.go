package editor

import (
	"github.com/heimdex/heimdex-editor/internal/media"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/thumbnail"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// Thumb is one slot of the thumbnail strip.
type Thumb struct {
	Timestamp float64 `json:"timestamp"`
	Key       int64   `json:"key"`
	Ready     bool    `json:"ready"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
}

// Snapshot is the read-only projection rendered by clients. MediaGeneration
// changes on every media load and never on duration refinements.
type Snapshot struct {
	Version   uint64       `json:"version"`
	Media     *media.Media `json:"media,omitempty"`
	Operation string       `json:"operation"`

	Mode              string  `json:"mode"`
	Duration          float64 `json:"duration"`
	FrameRate         float64 `json:"frameRate"`
	FrameRateDetected bool    `json:"frameRateDetected"`
	MediaGeneration   uint64  `json:"mediaGeneration"`

	ZoomLevel       float64   `json:"zoomLevel"`
	VisibleStart    float64   `json:"visibleStart"`
	VisibleDuration float64   `json:"visibleDuration"`
	Timestamps      []float64 `json:"timestamps"`
	Thumbnails      []Thumb   `json:"thumbnails"`
	ThumbnailsReady bool      `json:"thumbnailsReady"`

	Start             float64 `json:"start"`
	End               float64 `json:"end"`
	StartTimecode     string  `json:"startTimecode"`
	EndTimecode       string  `json:"endTimecode"`
	SelectionDuration float64 `json:"selectionDuration"`
	IsDragging        bool    `json:"isDragging"`
	ActiveDragMarker  string  `json:"activeDragMarker,omitempty"`

	Cursor playback.CursorState `json:"cursor"`
}

// Snapshot returns the current projection.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	fps := s.tl.FrameRate()
	sel := s.mk.Selection()
	snap := Snapshot{
		Version:           s.version,
		Operation:         string(s.op),
		Mode:              s.vp.Mode().String(),
		Duration:          s.tl.Duration(),
		FrameRate:         fps,
		FrameRateDetected: s.tl.RawFrameRate() > 0,
		MediaGeneration:   s.tl.Generation(),
		ZoomLevel:         s.vp.ZoomLevel(),
		VisibleStart:      s.vp.VisibleStart(),
		VisibleDuration:   s.vp.VisibleDuration(),
		Timestamps:        []float64{},
		Thumbnails:        []Thumb{},
		Start:             sel.Start,
		End:               sel.End,
		StartTimecode:     timeline.FormatTimecode(sel.Start, fps),
		EndTimecode:       timeline.FormatTimecode(sel.End, fps),
		SelectionDuration: sel.Duration(),
		IsDragging:        s.mk.IsDragging(),
		Cursor:            s.cursor.State(),
	}
	if s.media != nil {
		m := *s.media
		snap.Media = &m
	}
	if marker, ok := s.mk.ActiveDragMarker(); ok {
		snap.ActiveDragMarker = marker.String()
	}

	ts := s.vp.Timestamps()
	if len(ts) == 0 {
		return snap
	}
	snap.Timestamps = ts

	var ready map[float64]*timeline.BitmapRef
	if s.cache != nil {
		ready = s.cache.GetThumbnails(ts)
		snap.ThumbnailsReady = s.cache.IsReady()
	}
	snap.Thumbnails = make([]Thumb, len(ts))
	for i, t := range ts {
		th := Thumb{Timestamp: t, Key: thumbnail.Key(t)}
		if ref := ready[t]; ref != nil {
			th.Ready = true
			th.Width = ref.Width
			th.Height = ref.Height
		}
		snap.Thumbnails[i] = th
	}
	return snap
}
