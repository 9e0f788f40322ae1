// Package thumbnail generates and caches strip thumbnails for the open media
// file. Generation runs on a small worker pool; the editor's event loop only
// enqueues work and reads what is already on disk.
package thumbnail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/heimdex/heimdex-editor/internal/media"
	"github.com/heimdex/heimdex-editor/internal/pipeline"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

var (
	// ErrNotReady is returned by Lookup for a timestamp with no bitmap yet.
	ErrNotReady = errors.New("thumbnail not ready")
	// ErrNoSource is returned when no media file is attached.
	ErrNoSource = errors.New("no media source")
)

// Options configures a Cache. Height is only reported for sources whose
// dimensions were never probed.
type Options struct {
	Dir      string
	Width    int
	Height   int
	Workers  int
	MaxBytes uint64
	Logger   *slog.Logger
}

type job struct {
	ms  int64
	sec float64
	gen uint64
	ctx context.Context
	src media.Media
}

// Cache implements timeline.ThumbnailCache over ffmpeg. Bitmaps are keyed by
// whole milliseconds so nearby float timestamps share one file.
type Cache struct {
	ff   pipeline.FFmpeg
	repo media.Repository
	opts Options
	log  *slog.Logger

	mu       sync.Mutex
	src      *media.Media
	gen      uint64
	ctx      context.Context
	cancel   context.CancelFunc
	queue    []job
	workers  int
	inflight map[int64]uint64
	wanted   map[int64]struct{}
	ready    map[int64]*timeline.BitmapRef
	onReady  []func(timeline.BitmapRef)

	group errgroup.Group
}

// New returns an idle cache. repo may be nil, in which case nothing is
// persisted between sessions.
func New(ff pipeline.FFmpeg, repo media.Repository, opts Options) *Cache {
	if opts.Width <= 0 {
		opts.Width = 160
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.Dir == "" {
		opts.Dir = filepath.Join(os.TempDir(), "heimdex-thumbnails")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Cache{
		ff:       ff,
		repo:     repo,
		opts:     opts,
		log:      logger,
		inflight: make(map[int64]uint64),
		wanted:   make(map[int64]struct{}),
		ready:    make(map[int64]*timeline.BitmapRef),
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// Key converts a timestamp to the cache key in milliseconds.
func Key(sec float64) int64 {
	return int64(math.Round(sec * 1000))
}

// OnReady registers fn to run after a bitmap for the current source is
// published. fn runs on a worker goroutine.
func (c *Cache) OnReady(fn func(timeline.BitmapRef)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReady = append(c.onReady, fn)
}

// SetSource attaches the media file thumbnails are generated from. Pending
// work for the previous file is cancelled and its results are dropped.
func (c *Cache) SetSource(m *media.Media) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.ready = make(map[int64]*timeline.BitmapRef)
	if m == nil {
		c.src = nil
		return
	}
	cp := *m
	c.src = &cp
	c.log.Debug("thumbnail source set", "media_id", m.ID, "fingerprint", m.Fingerprint)
}

// RequestThumbnails implements timeline.ThumbnailCache.
func (c *Cache) RequestThumbnails(timestamps []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.src == nil {
		return
	}
	queued := 0
	for _, ts := range timestamps {
		ms := Key(ts)
		c.wanted[ms] = struct{}{}
		if _, ok := c.ready[ms]; ok {
			continue
		}
		if g, ok := c.inflight[ms]; ok && g == c.gen {
			continue
		}
		c.inflight[ms] = c.gen
		c.queue = append(c.queue, job{ms: ms, sec: float64(ms) / 1000, gen: c.gen, ctx: c.ctx, src: *c.src})
		queued++
	}
	for c.workers < c.opts.Workers && c.workers < len(c.queue) {
		c.workers++
		c.group.Go(c.work)
	}
	if queued > 0 {
		c.log.Debug("thumbnails queued", "count", queued, "backlog", len(c.queue))
	}
}

// CancelPending implements timeline.ThumbnailCache. It never waits for
// running ffmpeg processes; their results are discarded on completion.
func (c *Cache) CancelPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

func (c *Cache) cancelLocked() {
	c.cancel()
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.gen++
	c.queue = nil
	c.inflight = make(map[int64]uint64)
	c.wanted = make(map[int64]struct{})
}

// GetThumbnails implements timeline.ThumbnailCache.
func (c *Cache) GetThumbnails(timestamps []float64) map[float64]*timeline.BitmapRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[float64]*timeline.BitmapRef, len(timestamps))
	for _, ts := range timestamps {
		if ref, ok := c.ready[Key(ts)]; ok {
			cp := *ref
			cp.Timestamp = ts
			out[ts] = &cp
		} else {
			out[ts] = nil
		}
	}
	return out
}

// IsReady implements timeline.ThumbnailCache.
func (c *Cache) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.src != nil && c.src.Duration > 0 && c.ff.Available()
}

// Lookup returns the bitmap for a millisecond key of the current source.
func (c *Cache) Lookup(ms int64) (*timeline.BitmapRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.src == nil {
		return nil, ErrNoSource
	}
	ref, ok := c.ready[ms]
	if !ok {
		return nil, ErrNotReady
	}
	cp := *ref
	return &cp, nil
}

// Pending returns the number of queued or running jobs for the current
// generation.
func (c *Cache) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// Wait blocks until every queued job has been processed.
func (c *Cache) Wait() error {
	return c.group.Wait()
}

// Close cancels outstanding work and waits for the workers to exit.
func (c *Cache) Close() error {
	c.mu.Lock()
	c.cancel()
	c.queue = nil
	c.mu.Unlock()
	return c.group.Wait()
}

func (c *Cache) work() error {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.workers--
			c.mu.Unlock()
			return nil
		}
		j := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		c.process(j)
	}
}

func (c *Cache) process(j job) {
	if j.ctx.Err() != nil {
		return
	}

	ref, bytes, err := c.fromIndex(j)
	if ref == nil && err == nil {
		ref, bytes, err = c.generate(j)
	}
	if err != nil {
		if j.ctx.Err() == nil {
			c.log.Warn("thumbnail generation failed", "timestamp_ms", j.ms, "error", err)
		}
		c.mu.Lock()
		if g, ok := c.inflight[j.ms]; ok && g == j.gen {
			delete(c.inflight, j.ms)
		}
		c.mu.Unlock()
		return
	}

	c.index(j, ref.Path, bytes)

	c.mu.Lock()
	if j.gen != c.gen || c.src == nil || c.src.Fingerprint != j.src.Fingerprint {
		c.mu.Unlock()
		c.log.Debug("dropping stale thumbnail", "timestamp_ms", j.ms, "generation", j.gen)
		return
	}
	delete(c.inflight, j.ms)
	c.ready[j.ms] = ref
	listeners := slices.Clone(c.onReady)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(*ref)
	}
	c.prune(j.src.Fingerprint)
}

// fromIndex reuses a bitmap generated in an earlier session.
func (c *Cache) fromIndex(j job) (*timeline.BitmapRef, int64, error) {
	if c.repo == nil {
		return nil, 0, nil
	}
	row, err := c.repo.GetThumbnail(j.ctx, j.src.Fingerprint, j.ms, c.opts.Width)
	if err != nil || row == nil {
		return nil, 0, nil
	}
	if _, err := os.Stat(row.Path); err != nil {
		_ = c.repo.DeleteThumbnail(j.ctx, row.Fingerprint, row.TimestampMs, row.Width)
		return nil, 0, nil
	}
	if err := c.repo.TouchThumbnail(j.ctx, row.Fingerprint, row.TimestampMs, row.Width); err != nil {
		c.log.Debug("failed to touch thumbnail", "error", err)
	}
	return c.bitmap(j, row.Path), row.Bytes, nil
}

func (c *Cache) generate(j job) (*timeline.BitmapRef, int64, error) {
	out := c.pathFor(j.src.Fingerprint, j.ms)
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return nil, 0, fmt.Errorf("create thumbnail dir: %w", err)
	}
	if err := c.ff.GenerateThumbnail(j.ctx, j.src.Path, out, grabTime(j.sec, j.src), c.opts.Width); err != nil {
		return nil, 0, err
	}
	info, err := os.Stat(out)
	if err != nil {
		return nil, 0, fmt.Errorf("stat thumbnail: %w", err)
	}
	return c.bitmap(j, out), info.Size(), nil
}

// grabTime keeps a seek inside the last decodable frame. The strip's final
// timestamp lands on the media end, where ffmpeg finds no frame to output.
func grabTime(sec float64, src media.Media) float64 {
	if src.Duration <= 0 {
		return sec
	}
	last := src.Duration - 1/timeline.EffectiveFrameRate(src.FrameRate)
	return math.Max(0, math.Min(sec, last))
}

func (c *Cache) bitmap(j job, path string) *timeline.BitmapRef {
	ref := &timeline.BitmapRef{Timestamp: j.sec, Path: path, Width: c.opts.Width}
	if j.src.Width > 0 && j.src.Height > 0 {
		h := int(math.Round(float64(c.opts.Width) * float64(j.src.Height) / float64(j.src.Width)))
		ref.Height = h + h%2
	} else {
		ref.Height = c.opts.Height
	}
	return ref
}

func (c *Cache) pathFor(fingerprint string, ms int64) string {
	dir := fingerprint
	if len(dir) > 16 {
		dir = dir[:16]
	}
	return filepath.Join(c.opts.Dir, dir, fmt.Sprintf("%d_w%d.jpg", ms, c.opts.Width))
}

func (c *Cache) index(j job, path string, bytes int64) {
	if c.repo == nil {
		return
	}
	now := time.Now()
	err := c.repo.PutThumbnail(context.Background(), &media.Thumbnail{
		Fingerprint: j.src.Fingerprint,
		TimestampMs: j.ms,
		Width:       c.opts.Width,
		Path:        path,
		Bytes:       bytes,
		CreatedAt:   now,
		LastUsedAt:  now,
	})
	if err != nil {
		c.log.Warn("failed to index thumbnail", "path", path, "error", err)
	}
}

// prune evicts least recently used bitmaps until the on-disk total fits the
// byte budget. Bitmaps the current view still wants are kept.
func (c *Cache) prune(fingerprint string) {
	if c.repo == nil || c.opts.MaxBytes == 0 {
		return
	}
	ctx := context.Background()
	total, err := c.repo.ThumbnailBytes(ctx)
	if err != nil || total < 0 || uint64(total) <= c.opts.MaxBytes {
		return
	}

	c.mu.Lock()
	keep := make(map[int64]struct{}, len(c.wanted))
	for ms := range c.wanted {
		keep[ms] = struct{}{}
	}
	c.mu.Unlock()

	rows, err := c.repo.ListThumbnailsByAge(ctx)
	if err != nil {
		c.log.Warn("failed to list thumbnails for pruning", "error", err)
		return
	}
	before := total
	for _, row := range rows {
		if uint64(total) <= c.opts.MaxBytes {
			break
		}
		if _, ok := keep[row.TimestampMs]; ok && row.Fingerprint == fingerprint {
			continue
		}
		if err := os.Remove(row.Path); err != nil && !os.IsNotExist(err) {
			c.log.Warn("failed to remove thumbnail", "path", row.Path, "error", err)
			continue
		}
		if err := c.repo.DeleteThumbnail(ctx, row.Fingerprint, row.TimestampMs, row.Width); err != nil {
			continue
		}
		total -= row.Bytes
		if row.Fingerprint == fingerprint {
			c.mu.Lock()
			if ref, ok := c.ready[row.TimestampMs]; ok && ref.Path == row.Path {
				delete(c.ready, row.TimestampMs)
			}
			c.mu.Unlock()
		}
	}
	c.log.Info("thumbnail cache pruned",
		"before", humanize.Bytes(uint64(before)),
		"after", humanize.Bytes(uint64(max(total, 0))),
		"budget", humanize.Bytes(c.opts.MaxBytes),
	)
}
