package playback

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
)

// DefaultChunkSize bounds responses to open-ended range requests.
const DefaultChunkSize = 8 << 20

var ErrNoFile = errors.New("no file to serve")

var knownTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/x-m4v",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".webm": "video/webm",
	".avi":  "video/x-msvideo",
	".jpg":  "image/jpeg",
}

func contentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if t, ok := knownTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

type PlaybackService interface {
	ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error
	ServeThumbnail(w http.ResponseWriter, r *http.Request, path string) error
}

type Server struct {
	logger    *slog.Logger
	chunkSize int64
}

func NewServer(logger *slog.Logger) *Server {
	return &Server{logger: logger, chunkSize: DefaultChunkSize}
}

// SetChunkSize changes the open-ended range cap; n <= 0 disables it.
func (s *Server) SetChunkSize(n int64) {
	s.chunkSize = n
}

// ServeFile streams filePath honoring a single byte range.
func (s *Server) ServeFile(w http.ResponseWriter, r *http.Request, filePath string) error {
	if filePath == "" {
		return ErrNoFile
	}
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			http.Error(w, "file not found", http.StatusNotFound)
			return nil
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	size := stat.Size()
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentTypeFor(filePath))

	parsed, err := ParseRange(r.Header.Get("Range"), size)
	switch {
	case errors.Is(err, ErrUnsatisfiable):
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return nil
	case err != nil && !errors.Is(err, ErrInvalidRange):
		return err
	}

	if parsed == nil {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", size))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			io.Copy(w, file)
		}
		return nil
	}

	rng := parsed.Cap(s.chunkSize)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", rng.ContentLength()))
	w.Header().Set("Content-Range", rng.ContentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return nil
	}

	if _, err := file.Seek(rng.Start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	if _, err := io.CopyN(w, file, rng.ContentLength()); err != nil && s.logger != nil {
		s.logger.Debug("range copy interrupted", "path", filePath, "error", err)
	}
	if s.logger != nil {
		s.logger.Debug("served range",
			"start", rng.Start,
			"length", humanize.Bytes(uint64(rng.ContentLength())),
			"total", humanize.Bytes(uint64(size)),
		)
	}
	return nil
}

// ServeThumbnail serves a generated bitmap. Thumbnail paths embed the media
// fingerprint and timestamp, so responses never change and may be cached.
func (s *Server) ServeThumbnail(w http.ResponseWriter, r *http.Request, path string) error {
	w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
	return s.ServeFile(w, r, path)
}
