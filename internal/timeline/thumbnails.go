package timeline

// BitmapRef points at a materialized thumbnail.
type BitmapRef struct {
	Timestamp float64 `json:"timestamp"`
	Path      string  `json:"path"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
}

// ThumbnailCache materializes bitmaps for timestamps off the caller's
// goroutine. Implementations must never block the caller on generation or
// on cancellation.
type ThumbnailCache interface {
	// RequestThumbnails ensures a bitmap will eventually exist for each
	// timestamp. Already cached or in-flight timestamps are skipped.
	RequestThumbnails(timestamps []float64)
	// CancelPending aborts in-flight generation. Safe to call when idle.
	CancelPending()
	// GetThumbnails returns whatever is ready now. Missing timestamps map
	// to nil.
	GetThumbnails(timestamps []float64) map[float64]*BitmapRef
	// IsReady reports whether the decoder has been initialized.
	IsReady() bool
}

type noopCache struct{}

func (noopCache) RequestThumbnails([]float64) {}
func (noopCache) CancelPending() {}
func (noopCache) GetThumbnails([]float64) map[float64]*BitmapRef { return map[float64]*BitmapRef{} }
func (noopCache) IsReady() bool { return false }
