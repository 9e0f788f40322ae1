// Package editor owns one editing session: the timeline, its viewport and
// markers, the preview cursor and the thumbnail cache. Every command runs
// under the session lock, which makes the session the single writer the
// timeline types require.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/heimdex/heimdex-editor/internal/media"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// ErrNoMedia is returned by commands that need a loaded media file.
var ErrNoMedia = errors.New("no media loaded")

// DefaultDragTimeout is how long an open drag may go without a pointer event
// before a new pointer-down may take it over.
const DefaultDragTimeout = 15 * time.Second

// Strip names the surface a marker drag starts on.
type Strip string

const (
	// StripScrubber is the full-duration scrubber bar.
	StripScrubber Strip = "scrubber"
	// StripThumbnails is the zoomed thumbnail strip.
	StripThumbnails Strip = "thumbnails"
)

// MediaOpener registers a file and returns its probed metadata.
type MediaOpener interface {
	Open(ctx context.Context, path string) (*media.Media, error)
}

// SourceCache is a thumbnail cache bound to one media file at a time.
type SourceCache interface {
	timeline.ThumbnailCache
	SetSource(m *media.Media)
}

type Options struct {
	Layout       timeline.Layout
	Operation    timeline.Operation
	GIFWindowSec float64
	DragTimeout  time.Duration
	Logger       *slog.Logger
}

type Session struct {
	mu sync.Mutex

	tl     *timeline.Timeline
	vp     *timeline.Viewport
	mk     *timeline.Markers
	cursor *playback.Cursor
	cache  SourceCache
	opener MediaOpener
	logger *slog.Logger

	media     *media.Media
	op        timeline.Operation
	gifWindow float64
	version   uint64

	dragTimeout time.Duration
	dragTouched time.Time
	now         func() time.Time

	lmu       sync.Mutex
	listeners []func(Snapshot)
}

// NewSession builds a session. opener and cache may be nil.
func NewSession(opener MediaOpener, cache SourceCache, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Operation == "" {
		opts.Operation = timeline.OperationTrim
	}
	if opts.DragTimeout <= 0 {
		opts.DragTimeout = DefaultDragTimeout
	}

	s := &Session{
		tl:        timeline.New(),
		cursor:    playback.NewCursor(),
		cache:     cache,
		opener:    opener,
		logger:    logger,
		op:        opts.Operation,
		gifWindow: opts.GIFWindowSec,

		dragTimeout: opts.DragTimeout,
		now:         time.Now,
	}

	s.vp = timeline.NewViewport(s.tl, opts.Layout, cache, logger)
	s.mk = timeline.NewMarkers(s.tl, timeline.DefaultSelection(s.op, s.gifWindow), s.cursor, logger)
	return s
}

// Cursor returns the preview cursor.
func (s *Session) Cursor() *playback.Cursor { return s.cursor }

// Subscribe registers fn to receive a snapshot after every change.
func (s *Session) Subscribe(fn func(Snapshot)) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// LoadMedia opens path and makes it the session's media.
func (s *Session) LoadMedia(ctx context.Context, path string) (*media.Media, error) {
	if s.opener == nil {
		return nil, fmt.Errorf("load media: no opener configured")
	}
	m, err := s.opener.Open(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("load media: %w", err)
	}
	s.Attach(m)
	return m, nil
}

// Attach makes m the session's media. Any open drag is cancelled and the
// viewport and selection return to their defaults.
func (s *Session) Attach(m *media.Media) {
	s.run(func() {
		s.media = m
		if s.cache != nil {
			s.cache.SetSource(m)
		}
		s.cursor.Reset()
		if m == nil {
			s.tl.LoadMedia(0, 0)
			return
		}
		s.tl.LoadMedia(m.Duration, m.FrameRate)
		s.logger.Info("media attached",
			"media_id", m.ID,
			"duration", m.Duration,
			"frame_rate", s.tl.FrameRate(),
		)
	})
}

// SetMetadata applies duration and frame rate reported by the player for
// the current media. Non-positive values are ignored.
func (s *Session) SetMetadata(durationSec, fps float64) error {
	return s.runErr(func() error {
		if s.media == nil {
			return ErrNoMedia
		}
		if durationSec > 0 {
			s.media.Duration = durationSec
			s.tl.SetDuration(durationSec)
		}
		if fps > 0 {
			s.media.FrameRate = fps
			s.tl.SetFrameRate(fps)
		}
		return nil
	})
}

// SetOperation switches between the trim and GIF screens and applies that
// screen's default selection.
func (s *Session) SetOperation(op timeline.Operation) {
	s.run(func() {
		s.op = op
		defaults := timeline.DefaultSelection(op, s.gifWindow)
		s.mk.SetDefaults(defaults)
		d := defaults(s.tl.Duration())
		s.mk.SetSelection(d.Start, d.End)
	})
}

func (s *Session) SetContainerWidth(px float64) {
	s.run(func() { s.vp.SetContainerWidth(px) })
}

func (s *Session) Wheel(pointerXPx, deltaY, containerWidthPx float64) {
	s.run(func() { s.vp.HandleWheel(pointerXPx, deltaY, containerWidthPx) })
}

func (s *Session) ZoomCenter(percent float64) {
	s.run(func() { s.vp.SetZoomCenter(percent) })
}

func (s *Session) SetVisibleRange(startSec, durationSec float64) {
	s.run(func() { s.vp.SetVisibleRange(startSec, durationSec) })
}

// PanStep pans one keyboard step; direction < 0 moves toward the start.
func (s *Session) PanStep(direction int) {
	s.run(func() { s.vp.PanStep(direction) })
}

func (s *Session) PanPixels(deltaPx, widthPx float64) {
	s.run(func() { s.vp.PanPixels(deltaPx, widthPx) })
}

func (s *Session) Fit() {
	s.run(func() { s.vp.Fit() })
}

// SetSelection assigns both markers, e.g. from numeric inputs.
func (s *Session) SetSelection(startSec, endSec float64) (timeline.Selection, error) {
	var sel timeline.Selection
	err := s.runErr(func() error {
		if !s.tl.Loaded() {
			return ErrNoMedia
		}
		sel = s.mk.SetSelection(startSec, endSec)
		return nil
	})
	return sel, err
}

// BeginDrag opens a marker drag on strip. widthPx is the strip width the
// client measured at pointer-down. A drag idle for longer than the drag
// timeout is cancelled first, so a client that vanished mid-gesture does not
// lock the markers.
func (s *Session) BeginDrag(marker timeline.Marker, strip Strip, widthPx float64) error {
	return s.runErr(func() error {
		if !s.tl.Loaded() {
			return ErrNoMedia
		}
		if d := s.mk.ActiveDrag(); d != nil && s.now().Sub(s.dragTouched) > s.dragTimeout {
			s.logger.Warn("cancelling abandoned marker drag",
				"marker", d.Marker().String(),
				"idle", s.now().Sub(s.dragTouched).Round(time.Millisecond))
			d.Cancel()
		}
		var space timeline.CoordinateSpace
		switch strip {
		case StripThumbnails:
			space = s.vp.CoordinateSpace()
			if widthPx > 0 {
				space.ContainerWidthPx = widthPx
			}
		default:
			space = timeline.FullSpace(s.tl, widthPx)
		}
		if _, err := s.mk.BeginDrag(marker, space); err != nil {
			return err
		}
		s.dragTouched = s.now()
		return nil
	})
}

// DragMove feeds a pointer position to the open drag.
func (s *Session) DragMove(pointerXPx float64) (timeline.Selection, error) {
	var sel timeline.Selection
	err := s.runErr(func() error {
		d := s.mk.ActiveDrag()
		if d == nil {
			return timeline.ErrNoDrag
		}
		sel = d.Move(pointerXPx)
		s.dragTouched = s.now()
		return nil
	})
	return sel, err
}

// DragEnd commits the open drag.
func (s *Session) DragEnd() error {
	return s.closeDrag((*timeline.DragSession).End)
}

// DragCancel abandons the open drag and restores the previous selection.
func (s *Session) DragCancel() error {
	return s.closeDrag((*timeline.DragSession).Cancel)
}

func (s *Session) closeDrag(fn func(*timeline.DragSession)) error {
	return s.runErr(func() error {
		d := s.mk.ActiveDrag()
		if d == nil {
			return timeline.ErrNoDrag
		}
		fn(d)
		return nil
	})
}

// Seek moves the preview to sec and brings it into view.
func (s *Session) Seek(sec float64) {
	s.run(func() {
		if !s.tl.Loaded() {
			return
		}
		t := s.tl.Snap(sec)
		s.cursor.Seek(t)
		s.follow(t)
	})
}

// TimeUpdate records the player position. While playing, the viewport
// scrolls to keep the position visible.
func (s *Session) TimeUpdate(sec float64, playing bool) {
	s.run(func() {
		s.cursor.Update(sec, playing)
		if playing && s.tl.Loaded() {
			s.follow(s.cursor.State().Position)
		}
	})
}

func (s *Session) follow(t float64) {
	if s.vp.Contains(t) {
		return
	}
	s.vp.SetZoomCenter(t / s.tl.Duration())
}

// Selection returns the committed selection with the media it belongs to.
func (s *Session) Selection() (timeline.Selection, *media.Media, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.media == nil || !s.tl.Loaded() {
		return timeline.Selection{}, nil, 0, ErrNoMedia
	}
	m := *s.media
	return s.mk.Selection(), &m, s.tl.FrameRate(), nil
}

// Operation returns the active editing screen.
func (s *Session) Operation() timeline.Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.op
}

// Media returns a copy of the current media record, or nil.
func (s *Session) Media() *media.Media {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.media == nil {
		return nil
	}
	m := *s.media
	return &m
}

// ThumbnailsChanged bumps the snapshot version after a bitmap lands.
func (s *Session) ThumbnailsChanged() {
	s.run(func() {})
}

func (s *Session) run(fn func()) {
	_ = s.runErr(func() error {
		fn()
		return nil
	})
}

// runErr executes fn as one command and publishes the resulting snapshot.
func (s *Session) runErr(fn func() error) error {
	s.mu.Lock()
	err := fn()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.lmu.Lock()
	listeners := s.listeners
	s.lmu.Unlock()
	for _, l := range listeners {
		l(snap)
	}
	return nil
}
