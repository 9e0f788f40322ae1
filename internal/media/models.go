// Package media records the files opened in the editor, their probed
// metadata and the on-disk thumbnail index.
package media

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Media is one opened source file. Fingerprint identifies the content across
// renames and is the key for cached thumbnails.
type Media struct {
	ID          string    `json:"id"`
	Path        string    `json:"path"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	Mtime       time.Time `json:"mtime"`
	Fingerprint string    `json:"fingerprint"`
	Duration    float64   `json:"duration"`
	FrameRate   float64   `json:"frame_rate"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Codec       string    `json:"codec,omitempty"`
	OpenedAt    time.Time `json:"opened_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Thumbnail is an index row for one extracted frame on disk.
type Thumbnail struct {
	Fingerprint string    `json:"fingerprint"`
	TimestampMs int64     `json:"timestamp_ms"`
	Width       int       `json:"width"`
	Path        string    `json:"path"`
	Bytes       int64     `json:"bytes"`
	CreatedAt   time.Time `json:"created_at"`
	LastUsedAt  time.Time `json:"last_used_at"`
}

// ConfigEntry is a row of the key/value config table.
type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".m4v":  true,
	".webm": true,
	".avi":  true,
}

func NewID() string {
	return uuid.NewString()
}

func IsVideoFile(filename string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(filename))]
}
