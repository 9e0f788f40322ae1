package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

var ErrUnavailable = errors.New("ffmpeg not available")

type FFmpeg interface {
	Probe(filePath string) (*ProbeResult, error)
	GenerateThumbnail(ctx context.Context, filePath, outputPath string, timeOffset float64, width int) error
	Available() bool
}

type ProbeResult struct {
	Duration   float64
	Width      int
	Height     int
	Codec      string
	Bitrate    int64
	FrameRate  float64
	AudioCodec string
}

// ProbeTimeout bounds a single ffprobe run.
const ProbeTimeout = 30 * time.Second

type RealFFmpeg struct {
	binary string
	probe  string
	logger *slog.Logger
}

func NewRealFFmpeg(binary string, logger *slog.Logger) *RealFFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &RealFFmpeg{binary: binary, probe: ProbeBinary(binary), logger: logger}
}

// ProbeBinary returns the ffprobe installed alongside an ffmpeg binary. A bare
// command name resolves through PATH like ffmpeg itself.
func ProbeBinary(binary string) string {
	dir, name := filepath.Split(binary)
	probe := "ffprobe"
	if strings.HasSuffix(strings.ToLower(name), ".exe") {
		probe += ".exe"
	}
	if dir == "" {
		return probe
	}
	return filepath.Join(dir, probe)
}

// Available reports whether both ffmpeg and its ffprobe can be run.
func (f *RealFFmpeg) Available() bool {
	if _, err := exec.LookPath(f.binary); err != nil {
		return false
	}
	_, err := exec.LookPath(f.probe)
	return err == nil
}

func (f *RealFFmpeg) Probe(filePath string) (*ProbeResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ProbeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.probe, ProbeArgs(filePath)...)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("ffprobe failed: %w: %s", err, tail(exitErr.Stderr, 512))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}
	res, err := ParseProbe(out)
	if err != nil {
		return nil, err
	}
	f.logger.Debug("probed media",
		"duration", res.Duration,
		"fps", res.FrameRate,
		"width", res.Width,
		"height", res.Height,
		"codec", res.Codec)
	return res, nil
}

// GenerateThumbnail extracts the frame at timeOffset into outputPath, scaled
// to width with the aspect ratio preserved. Cancelling ctx kills ffmpeg.
func (f *RealFFmpeg) GenerateThumbnail(ctx context.Context, filePath, outputPath string, timeOffset float64, width int) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create thumbnail dir: %w", err)
	}
	args := ThumbnailArgs(filePath, outputPath, timeOffset, width)

	cmd := exec.CommandContext(ctx, f.binary, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffmpeg thumbnail at %.3fs failed: %w: %s", timeOffset, err, tail(out, 512))
	}
	return nil
}

// ThumbnailArgs returns the ffmpeg arguments for a single-frame grab.
func ThumbnailArgs(filePath, outputPath string, timeOffset float64, width int) []string {
	if width <= 0 {
		width = 160
	}
	return ffmpeg.Input(filePath, ffmpeg.KwArgs{"ss": strconv.FormatFloat(timeOffset, 'f', 3, 64)}).
		Output(outputPath, ffmpeg.KwArgs{
			"vframes": 1,
			"vf":      fmt.Sprintf("scale=%d:-2", width),
			"q:v":     4,
		}).
		OverWriteOutput().
		GetArgs()
}

// ProbeArgs returns the ffprobe arguments for a JSON format and stream dump.
func ProbeArgs(filePath string) []string {
	args := ffmpeg.ConvertKwargsToCmdLineArgs(ffmpeg.KwArgs{
		"v":            "error",
		"show_format":  "",
		"show_streams": "",
		"of":           "json",
	})
	return append(args, filePath)
}

type probeJSON struct {
	Streams []struct {
		CodecType    string `json:"codec_type"`
		CodecName    string `json:"codec_name"`
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		Duration     string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
}

// ParseProbe decodes ffprobe JSON output.
func ParseProbe(data []byte) (*ProbeResult, error) {
	var p probeJSON
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("cannot parse ffprobe JSON: %w", err)
	}

	res := &ProbeResult{}
	res.Duration, _ = strconv.ParseFloat(p.Format.Duration, 64)
	res.Bitrate, _ = strconv.ParseInt(p.Format.BitRate, 10, 64)

	for _, s := range p.Streams {
		switch s.CodecType {
		case "video":
			if res.Codec != "" {
				continue
			}
			res.Codec = s.CodecName
			res.Width = s.Width
			res.Height = s.Height
			res.FrameRate = ParseFrameRate(s.AvgFrameRate)
			if res.FrameRate <= 0 {
				res.FrameRate = ParseFrameRate(s.RFrameRate)
			}
			if res.Duration <= 0 {
				res.Duration, _ = strconv.ParseFloat(s.Duration, 64)
			}
		case "audio":
			if res.AudioCodec == "" {
				res.AudioCodec = s.CodecName
			}
		}
	}
	return res, nil
}

// ParseFrameRate parses ffprobe rates such as "30000/1001" or "25".
// Unknown or malformed rates yield 0.
func ParseFrameRate(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	num, den, found := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return strings.TrimSpace(string(b))
}

type StubFFmpeg struct {
	logger *slog.Logger
}

func NewStubFFmpeg(logger *slog.Logger) *StubFFmpeg {
	return &StubFFmpeg{logger: logger}
}

func (f *StubFFmpeg) Available() bool { return false }

func (f *StubFFmpeg) Probe(filePath string) (*ProbeResult, error) {
	if f.logger != nil {
		f.logger.Info("ffmpeg stub: probe requested without ffmpeg installed", "path", filePath)
	}
	return nil, ErrUnavailable
}

func (f *StubFFmpeg) GenerateThumbnail(ctx context.Context, filePath, outputPath string, timeOffset float64, width int) error {
	return ErrUnavailable
}
