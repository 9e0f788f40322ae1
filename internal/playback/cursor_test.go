package playback

import (
	"math"
	"testing"
)

func TestCursor_Seek(t *testing.T) {
	c := NewCursor()
	var got []CursorState
	c.Subscribe(func(s CursorState) { got = append(got, s) })

	c.Seek(4.5)
	c.Seek(-1)
	c.Seek(math.NaN())

	if len(got) != 3 {
		t.Fatalf("notifications = %d, want 3", len(got))
	}
	if got[0].Position != 4.5 || got[0].SeekCount != 1 {
		t.Errorf("first = %+v, want position 4.5, seek 1", got[0])
	}
	if got[1].Position != 0 || got[2].Position != 0 {
		t.Errorf("invalid seeks = %v, %v, want 0", got[1].Position, got[2].Position)
	}
	if c.State().SeekCount != 3 {
		t.Errorf("SeekCount = %d, want 3", c.State().SeekCount)
	}
}

func TestCursor_UpdateAndReset(t *testing.T) {
	c := NewCursor()
	c.Update(2, true)

	st := c.State()
	if st.Position != 2 || !st.Playing {
		t.Errorf("State() = %+v, want playing at 2", st)
	}
	if st.SeekCount != 0 {
		t.Errorf("SeekCount = %d, want 0 for progress updates", st.SeekCount)
	}

	c.SetPlaying(false)
	if c.State().Playing {
		t.Error("Playing = true after SetPlaying(false)")
	}

	c.Reset()
	if st := c.State(); st.Position != 0 || st.Playing {
		t.Errorf("State() after Reset = %+v", st)
	}
}
