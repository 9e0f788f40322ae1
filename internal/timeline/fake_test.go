package timeline

type fakeCache struct {
	requests [][]float64
	cancels  int
}

func (c *fakeCache) RequestThumbnails(ts []float64) {
	c.requests = append(c.requests, append([]float64(nil), ts...))
}

func (c *fakeCache) CancelPending() { c.cancels++ }

func (c *fakeCache) GetThumbnails(ts []float64) map[float64]*BitmapRef {
	out := make(map[float64]*BitmapRef, len(ts))
	for _, t := range ts {
		out[t] = nil
	}
	return out
}

func (c *fakeCache) IsReady() bool { return true }

func (c *fakeCache) last() []float64 {
	if len(c.requests) == 0 {
		return nil
	}
	return c.requests[len(c.requests)-1]
}

type fakeSeeker struct {
	positions []float64
}

func (s *fakeSeeker) Seek(sec float64) { s.positions = append(s.positions, sec) }

var testLayout = Layout{ContainerWidthPx: 800, ThumbWidthPx: 160, GapPx: 4}
