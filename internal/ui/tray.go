package ui

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/getlantern/systray"

	"github.com/heimdex/heimdex-editor/internal/editor"
)

// CacheRefreshInterval is how often the tray re-reads thumbnail disk usage.
const CacheRefreshInterval = 30 * time.Second

type Tray struct {
	session *editor.Session
	logger  *slog.Logger

	mediaItem     *systray.MenuItem
	selectionItem *systray.MenuItem
	zoomItem      *systray.MenuItem
	cacheItem     *systray.MenuItem
	fitItem       *systray.MenuItem

	mu sync.Mutex

	cacheUsage func() (uint64, error)
	onQuit     func()
	stop       chan struct{}
	stopOnce   sync.Once
}

type TrayConfig struct {
	Session    *editor.Session
	Logger     *slog.Logger
	CacheUsage func() (uint64, error)
	OnQuit     func()
}

func NewTray(cfg TrayConfig) *Tray {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Tray{
		session:    cfg.Session,
		logger:     logger,
		cacheUsage: cfg.CacheUsage,
		onQuit:     cfg.OnQuit,
		stop:       make(chan struct{}),
	}
}

func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetIcon(iconBytes)
	systray.SetTitle("Heimdex")
	systray.SetTooltip("Heimdex Editor")

	t.mu.Lock()
	t.mediaItem = systray.AddMenuItem("No media", "Loaded media")
	t.mediaItem.Disable()

	t.selectionItem = systray.AddMenuItem("Selection: -", "Current selection")
	t.selectionItem.Disable()

	t.zoomItem = systray.AddMenuItem("Zoom: -", "Thumbnail strip zoom")
	t.zoomItem.Disable()

	t.cacheItem = systray.AddMenuItem("Thumbnail cache: -", "Disk used by thumbnails")
	t.cacheItem.Disable()

	systray.AddSeparator()

	t.fitItem = systray.AddMenuItem("Zoom to Fit", "Show the whole timeline")

	systray.AddSeparator()

	quitItem := systray.AddMenuItem("Quit", "Quit Heimdex Editor")
	t.mu.Unlock()

	if t.session != nil {
		t.session.Subscribe(t.Update)
		t.Update(t.session.Snapshot())
	}
	go t.watchCache(CacheRefreshInterval)

	go func() {
		for {
			select {
			case <-t.fitItem.ClickedCh:
				if t.session != nil {
					t.session.Fit()
				}
			case <-quitItem.ClickedCh:
				t.logger.Info("quit requested from tray")
				if t.onQuit != nil {
					t.onQuit()
				}
				systray.Quit()
				return
			}
		}
	}()

	t.logger.Info("system tray ready")
}

func (t *Tray) onExit() {
	t.stopOnce.Do(func() { close(t.stop) })
	t.logger.Info("system tray exiting")
}

// watchCache polls disk usage off the snapshot path; snapshots arrive on
// every wheel tick and pointer move.
func (t *Tray) watchCache(interval time.Duration) {
	t.refreshCache()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.refreshCache()
		case <-t.stop:
			return
		}
	}
}

func (t *Tray) refreshCache() {
	if t.cacheUsage == nil {
		return
	}
	used, err := t.cacheUsage()
	if err != nil {
		t.logger.Debug("failed to read thumbnail cache usage", "error", err)
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cacheItem != nil {
		t.cacheItem.SetTitle(cacheLabel(used))
	}
}

// Update refreshes the menu labels from snap.
func (t *Tray) Update(snap editor.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.mediaItem == nil {
		return
	}
	t.mediaItem.SetTitle(mediaLabel(snap))
	t.selectionItem.SetTitle(selectionLabel(snap))
	t.zoomItem.SetTitle(zoomLabel(snap))
	if snap.Mode == "uninitialized" {
		t.fitItem.Disable()
	} else {
		t.fitItem.Enable()
	}
}

// Quit closes the tray, e.g. when the process is shutting down on a signal.
func (t *Tray) Quit() {
	t.stopOnce.Do(func() { close(t.stop) })
	systray.Quit()
}

func cacheLabel(used uint64) string {
	return "Thumbnail cache: " + humanize.Bytes(used)
}

func mediaLabel(snap editor.Snapshot) string {
	if snap.Media == nil {
		return "No media"
	}
	if snap.Media.Size > 0 {
		return fmt.Sprintf("%s (%s)", snap.Media.Filename, humanize.Bytes(uint64(snap.Media.Size)))
	}
	return snap.Media.Filename
}

func selectionLabel(snap editor.Snapshot) string {
	if snap.Duration <= 0 {
		return "Selection: -"
	}
	return fmt.Sprintf("Selection: %s - %s", snap.StartTimecode, snap.EndTimecode)
}

func zoomLabel(snap editor.Snapshot) string {
	switch {
	case snap.Duration <= 0:
		return "Zoom: -"
	case snap.Mode == "auto_fit":
		return "Zoom: fit"
	default:
		return fmt.Sprintf("Zoom: %.0f%% (%s visible)", snap.ZoomLevel*100, humanize.FtoaWithDigits(snap.VisibleDuration, 2)+"s")
	}
}
