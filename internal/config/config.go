// Package config provides configuration management for the Heimdex editor.
// Values come from defaults, an optional JSON config file and HEIMDEX_*
// environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/heimdex/heimdex-editor/internal/timeline"
)

const (
	// Default values
	DefaultPort          = 8787
	DefaultLogLevel      = "info"
	DefaultDataDir       = ".heimdex"
	DefaultThumbWidth    = 160
	DefaultThumbHeight   = 90
	DefaultThumbGap      = 4
	DefaultThumbWorkers  = 4
	DefaultCacheMaxBytes = "512MB"
	DefaultFFmpegBinary  = "ffmpeg"
	DefaultDragTimeout   = 15 * time.Second

	// EnvPrefix is prepended to every key, e.g. HEIMDEX_PORT.
	EnvPrefix = "HEIMDEX"
	// EnvConfigFile points at an optional JSON config file.
	EnvConfigFile = "HEIMDEX_CONFIG"

	// Database filename
	DBFilename = "heimdex.db"
)

// Keys
const (
	KeyPort          = "port"
	KeyLogLevel      = "log_level"
	KeyDataDir       = "data_dir"
	KeyHeadless      = "headless"
	KeyThumbWidth    = "thumb_width"
	KeyThumbHeight   = "thumb_height"
	KeyThumbGap      = "thumb_gap"
	KeyThumbWorkers  = "thumb_workers"
	KeyCacheMaxBytes = "cache_max_bytes"
	KeyFFmpegBinary  = "ffmpeg_bin"
	KeyOperation     = "operation"
	KeyGIFWindow     = "gif_window"
	KeyDragTimeout   = "drag_timeout"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	CacheDir() string
	CacheMaxBytes() uint64
	Headless() bool
	ThumbWidth() int
	ThumbHeight() int
	ThumbGap() int
	ThumbWorkers() int
	FFmpegBinary() string
	Operation() timeline.Operation
	GIFWindowSec() float64
	DragTimeout() time.Duration
}

// ViperConfig is a validated snapshot of the loaded settings.
type ViperConfig struct {
	port          int
	logLevel      string
	dataDir       string
	headless      bool
	thumbWidth    int
	thumbHeight   int
	thumbGap      int
	thumbWorkers  int
	cacheMaxBytes uint64
	ffmpegBinary  string
	operation     timeline.Operation
	gifWindow     float64
	dragTimeout   time.Duration
}

// New loads configuration from the environment and the optional file named
// by HEIMDEX_CONFIG.
func New() (*ViperConfig, error) {
	return Load(os.Getenv(EnvConfigFile))
}

// Load reads configFile (may be empty) and applies environment overrides.
func Load(configFile string) (*ViperConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyPort, DefaultPort)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyDataDir, defaultDataDir())
	v.SetDefault(KeyHeadless, true)
	v.SetDefault(KeyThumbWidth, DefaultThumbWidth)
	v.SetDefault(KeyThumbHeight, DefaultThumbHeight)
	v.SetDefault(KeyThumbGap, DefaultThumbGap)
	v.SetDefault(KeyThumbWorkers, DefaultThumbWorkers)
	v.SetDefault(KeyCacheMaxBytes, DefaultCacheMaxBytes)
	v.SetDefault(KeyFFmpegBinary, DefaultFFmpegBinary)
	v.SetDefault(KeyOperation, string(timeline.OperationTrim))
	v.SetDefault(KeyGIFWindow, timeline.DefaultGIFWindowSec)
	v.SetDefault(KeyDragTimeout, DefaultDragTimeout.String())
}

func fromViper(v *viper.Viper) (*ViperConfig, error) {
	cfg := &ViperConfig{
		port:         v.GetInt(KeyPort),
		logLevel:     v.GetString(KeyLogLevel),
		dataDir:      v.GetString(KeyDataDir),
		headless:     v.GetBool(KeyHeadless),
		thumbWidth:   v.GetInt(KeyThumbWidth),
		thumbHeight:  v.GetInt(KeyThumbHeight),
		thumbGap:     v.GetInt(KeyThumbGap),
		thumbWorkers: v.GetInt(KeyThumbWorkers),
		ffmpegBinary: v.GetString(KeyFFmpegBinary),
		gifWindow:    v.GetFloat64(KeyGIFWindow),
		dragTimeout:  v.GetDuration(KeyDragTimeout),
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("invalid %s_PORT: port must be between 1 and 65535", EnvPrefix)
	}
	if cfg.thumbWidth <= 0 || cfg.thumbHeight <= 0 || cfg.thumbGap < 0 {
		return nil, errors.New("thumbnail dimensions must be positive")
	}
	if cfg.thumbWorkers <= 0 {
		return nil, fmt.Errorf("invalid %s: must be positive", KeyThumbWorkers)
	}
	if cfg.dragTimeout <= 0 {
		return nil, fmt.Errorf("invalid %s: must be a positive duration", KeyDragTimeout)
	}

	maxBytes, err := humanize.ParseBytes(v.GetString(KeyCacheMaxBytes))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyCacheMaxBytes, err)
	}
	cfg.cacheMaxBytes = maxBytes

	op, err := timeline.ParseOperation(v.GetString(KeyOperation))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyOperation, err)
	}
	cfg.operation = op

	if cfg.dataDir == "" {
		cfg.dataDir = defaultDataDir()
	}
	return cfg, nil
}

// Port returns the HTTP server port
func (c *ViperConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *ViperConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *ViperConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *ViperConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// CacheDir is where generated thumbnails live.
func (c *ViperConfig) CacheDir() string {
	return filepath.Join(c.dataDir, "thumbnails")
}

// CacheMaxBytes is the thumbnail cache budget; 0 disables pruning.
func (c *ViperConfig) CacheMaxBytes() uint64 {
	return c.cacheMaxBytes
}

// Headless disables the system tray.
func (c *ViperConfig) Headless() bool {
	return c.headless
}

func (c *ViperConfig) ThumbWidth() int {
	return c.thumbWidth
}

func (c *ViperConfig) ThumbHeight() int {
	return c.thumbHeight
}

func (c *ViperConfig) ThumbGap() int {
	return c.thumbGap
}

func (c *ViperConfig) ThumbWorkers() int {
	return c.thumbWorkers
}

func (c *ViperConfig) FFmpegBinary() string {
	return c.ffmpegBinary
}

// Operation is the editing screen a new session starts on.
func (c *ViperConfig) Operation() timeline.Operation {
	return c.operation
}

func (c *ViperConfig) GIFWindowSec() float64 {
	return c.gifWindow
}

// DragTimeout is how long an unfinished marker drag holds the markers.
func (c *ViperConfig) DragTimeout() time.Duration {
	return c.dragTimeout
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
