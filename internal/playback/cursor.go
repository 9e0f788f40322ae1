package playback

import (
	"math"
	"sync"
)

// CursorState is the preview player position as last reported.
type CursorState struct {
	Position float64 `json:"position"`
	Playing  bool    `json:"playing"`
	// SeekCount increases on every Seek so clients can tell an explicit
	// seek from ordinary playback progress.
	SeekCount uint64 `json:"seekCount"`
}

// Cursor tracks the preview position. It satisfies timeline.Seeker, so
// marker scrubbing moves the preview frame.
type Cursor struct {
	mu        sync.Mutex
	state     CursorState
	listeners []func(CursorState)
}

func NewCursor() *Cursor {
	return &Cursor{}
}

// Subscribe registers fn for every position change.
func (c *Cursor) Subscribe(fn func(CursorState)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Seek moves the preview to sec.
func (c *Cursor) Seek(sec float64) {
	c.update(func(s *CursorState) {
		s.Position = sanitize(sec)
		s.SeekCount++
	})
}

// Update records a progress report from the player.
func (c *Cursor) Update(sec float64, playing bool) {
	c.update(func(s *CursorState) {
		s.Position = sanitize(sec)
		s.Playing = playing
	})
}

func (c *Cursor) SetPlaying(playing bool) {
	c.update(func(s *CursorState) { s.Playing = playing })
}

func (c *Cursor) State() CursorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Reset returns the cursor to the start, paused.
func (c *Cursor) Reset() {
	c.update(func(s *CursorState) {
		s.Position = 0
		s.Playing = false
	})
}

func (c *Cursor) update(fn func(*CursorState)) {
	c.mu.Lock()
	fn(&c.state)
	st := c.state
	listeners := c.listeners
	c.mu.Unlock()
	for _, l := range listeners {
		l(st)
	}
}

func sanitize(sec float64) float64 {
	if math.IsNaN(sec) || math.IsInf(sec, 0) || sec < 0 {
		return 0
	}
	return sec
}
